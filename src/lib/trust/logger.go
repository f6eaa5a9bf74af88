package trust

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

const envVar = "LOGLEVEL"

// Logger carries a tag and its own mask.  Tags let LOGLEVEL turn on
// debugging for one driver without drowning in the others.
type Logger struct {
	tag  string
	mask int32
}

var defaultLogger = &Logger{mask: int32(fatalMask | ErrorMask | WarnMask | InfoMask)}

var tagLevels = map[string]MaskLevel{}

func init() {
	loadEnv(os.Getenv(envVar))
}

// loadEnv parses comma separated "tag=level" directives.  A directive
// without a tag sets the default mask.
func loadEnv(directives string) {
	for _, d := range strings.Split(directives, ",") {
		if d == "" {
			continue
		}
		v := strings.SplitN(d, "=", 2)
		m, err := ParseLevel(v[len(v)-1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid %s directive '%s': %v\n", envVar, d, err)
			continue
		}
		if len(v) == 1 {
			defaultLogger.SetMask(m)
		} else {
			tagLevels[v[0]] = m
		}
	}
}

// ParseLevel turns a level name into the mask that shows that level and
// everything more severe.  Numeric masks are accepted as-is.
func ParseLevel(s string) (MaskLevel, error) {
	switch strings.ToLower(s) {
	case "n", "none", "off":
		return Nothing, nil
	case "e", "error":
		return ErrorMask, nil
	case "w", "warn":
		return ErrorMask | WarnMask, nil
	case "i", "info":
		return ErrorMask | WarnMask | InfoMask, nil
	case "d", "debug":
		return ErrorMask | WarnMask | InfoMask | DebugMask, nil
	case "s", "stats", "t", "trace":
		return ErrorMask | WarnMask | InfoMask | DebugMask | StatsMask, nil
	}
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil || n < 0 || n > 0x1f {
		return Nothing, fmt.Errorf("unknown log level %q", s)
	}
	return MaskLevel(n), nil
}

// NewLogger returns a logger for the tag.  If LOGLEVEL named the tag, that
// mask wins, otherwise the logger starts with the default mask.
func NewLogger(tag string) *Logger {
	m, ok := tagLevels[tag]
	if !ok {
		m = defaultLogger.Mask()
	}
	l := &Logger{tag: tag}
	l.SetMask(m)
	return l
}

func (l *Logger) Tag() string {
	return l.tag
}

func (l *Logger) Mask() MaskLevel {
	return MaskLevel(atomic.LoadInt32(&l.mask))
}

// SetMask replaces the logger's mask; fatal messages are always shown.
func (l *Logger) SetMask(m MaskLevel) {
	atomic.StoreInt32(&l.mask, int32((m&0x1f)|fatalMask))
}

func (l *Logger) Errorf(format string, params ...interface{}) {
	logf(l.tag, l.Mask(), ErrorMask, format, params...)
}

func (l *Logger) Warnf(format string, params ...interface{}) {
	logf(l.tag, l.Mask(), WarnMask, format, params...)
}

func (l *Logger) Infof(format string, params ...interface{}) {
	logf(l.tag, l.Mask(), InfoMask, format, params...)
}

func (l *Logger) Debugf(format string, params ...interface{}) {
	logf(l.tag, l.Mask(), DebugMask, format, params...)
}

func (l *Logger) Statsf(category string, format string, params ...interface{}) {
	logf(l.tag, l.Mask(), StatsMask, format, append([]interface{}{category}, params...)...)
}
