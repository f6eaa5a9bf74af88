package trust

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type MaskLevel int

const (
	Nothing   MaskLevel = 0x0
	ErrorMask MaskLevel = 0x1
	WarnMask  MaskLevel = 0x2
	InfoMask  MaskLevel = 0x4
	DebugMask MaskLevel = 0x8
	StatsMask MaskLevel = 0x10
	fatalMask MaskLevel = 0x80
)

var (
	outMu sync.Mutex
	out   io.Writer = color.Output

	// exit is replaced by tests that exercise Fatalf.
	exit = os.Exit

	errorPrefix = color.New(color.FgRed, color.Bold).SprintFunc()
	warnPrefix  = color.New(color.FgYellow).SprintFunc()
	infoPrefix  = color.New(color.Reset).SprintFunc()
	debugPrefix = color.New(color.FgGreen).SprintFunc()
	statsPrefix = color.New(color.FgCyan).SprintFunc()
)

// SetLevel lets you set an error mask directly. You can pass in something like
// ErrorMask | DebugMask to control exactly what gets printed.  It returns the
// previous mask.
func SetLevel(mask MaskLevel) MaskLevel {
	if mask&0x1f == 0 {
		Warnf("trust.SetLevel is turning off log messages")
	}
	r := defaultLogger.Mask() & 0x1f
	defaultLogger.SetMask(mask)
	return r
}

func Level() MaskLevel {
	return defaultLogger.Mask()
}

// LevelToString names the levels enabled in the default mask.
func LevelToString() string {
	return maskString(defaultLogger.Mask())
}

func maskString(m MaskLevel) string {
	names := []string{}
	if m&ErrorMask > 0 {
		names = append(names, "error")
	}
	if m&WarnMask > 0 {
		names = append(names, "warn")
	}
	if m&InfoMask > 0 {
		names = append(names, "info")
	}
	if m&DebugMask > 0 {
		names = append(names, "debug")
	}
	if m&StatsMask > 0 {
		names = append(names, "stats")
	}
	return strings.Join(names, " ")
}

// SetOutput redirects all log output.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	out = w
}

func logf(tag string, mask MaskLevel, l MaskLevel, format string, params ...interface{}) {
	if mask&l == 0 {
		return
	}
	start := 0
	var prefix string
	switch {
	case l&fatalMask > 0:
		prefix = errorPrefix("FATAL:")
	case l&ErrorMask > 0:
		prefix = errorPrefix("ERROR:")
	case l&WarnMask > 0:
		prefix = warnPrefix(" WARN:")
	case l&InfoMask > 0:
		prefix = infoPrefix(" INFO:")
	case l&DebugMask > 0:
		prefix = debugPrefix("DEBUG:")
	case l&StatsMask > 0:
		s, ok := params[0].(string)
		if !ok {
			s = "unknown"
		}
		prefix = statsPrefix(fmt.Sprintf("STATS[%s]:", s))
		start = 1
	}
	if tag != "" {
		prefix += "[" + tag + "]"
	}
	if len(format) == 0 {
		format = "\n"
	} else if format[len(format)-1] != '\n' {
		format += "\n"
	}
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprint(out, prefix, " ")
	fmt.Fprintf(out, format, params[start:]...)
}

//Fatalf prints the given log message (format + params) and then
//exits with the exitCode provided.  Fatalf is not maskable.
func Fatalf(exitCode int, format string, params ...interface{}) {
	logf("", fatalMask, fatalMask, format, params...)
	exit(exitCode)
}

//Errorf prints the given log message (format + params) using the ErrorMask level.
func Errorf(format string, params ...interface{}) {
	defaultLogger.Errorf(format, params...)
}

//Warnf prints the given log message (format + params) using the WarnMask level.
func Warnf(format string, params ...interface{}) {
	defaultLogger.Warnf(format, params...)
}

//Infof prints the given log message (format + params) using the InfoMask level.
func Infof(format string, params ...interface{}) {
	defaultLogger.Infof(format, params...)
}

//Debugf prints the given log message (format + params) using the DebugMask level.
func Debugf(format string, params ...interface{}) {
	defaultLogger.Debugf(format, params...)
}

//Stats prints the given log message (format + params) using the StatsMask level and
//takes an extra parameter that will be visible in the log message as the category
//of stats that is reported.
func Statsf(category string, format string, params ...interface{}) {
	defaultLogger.Statsf(category, format, params...)
}
