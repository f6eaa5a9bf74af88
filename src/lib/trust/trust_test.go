package trust

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	color.NoColor = true
	var buf bytes.Buffer
	SetOutput(&buf)
	prev := Level()
	t.Cleanup(func() {
		SetOutput(color.Output)
		SetLevel(prev)
	})
	return &buf
}

func TestMaskFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(ErrorMask | WarnMask)

	Debugf("hidden %d", 1)
	Infof("hidden too")
	Warnf("shown %d", 2)
	Errorf("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, " WARN: shown 2\n")
	assert.Contains(t, out, "ERROR: also shown\n")
	assert.Equal(t, "error warn", LevelToString())
}

func TestStatsCategory(t *testing.T) {
	buf := capture(t)
	SetLevel(StatsMask)
	Statsf("seq", "%d blocks", 3)
	assert.Equal(t, "STATS[seq]: 3 blocks\n", buf.String())
}

func TestTaggedLogger(t *testing.T) {
	buf := capture(t)
	l := NewLogger("cryptodrv")
	l.SetMask(mustParse(t, "debug"))
	l.Debugf("owner %d", 7)
	assert.Equal(t, "DEBUG:[cryptodrv] owner 7\n", buf.String())
	assert.Equal(t, "cryptodrv", l.Tag())
}

func TestEnvDirectives(t *testing.T) {
	prev := Level()
	defer SetLevel(prev)
	defer func() { delete(tagLevels, "shadrv") }()

	loadEnv("warn,shadrv=debug,bogus=nope")
	assert.Equal(t, ErrorMask|WarnMask|fatalMask, Level())
	assert.Equal(t, ErrorMask|WarnMask|InfoMask|DebugMask|fatalMask, NewLogger("shadrv").Mask())
	assert.Equal(t, ErrorMask|WarnMask|fatalMask, NewLogger("aesdrv").Mask())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]MaskLevel{
		"e":     ErrorMask,
		"INFO":  ErrorMask | WarnMask | InfoMask,
		"trace": ErrorMask | WarnMask | InfoMask | DebugMask | StatsMask,
		"0x3":   ErrorMask | WarnMask,
		"off":   Nothing,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
	_, err = ParseLevel("0x100")
	assert.Error(t, err)
}

func TestFatalfExits(t *testing.T) {
	buf := capture(t)
	code := -1
	old := exit
	exit = func(c int) { code = c }
	defer func() { exit = old }()
	SetLevel(Nothing)

	Fatalf(3, "sequencer wedged")
	assert.Equal(t, 3, code)
	assert.Contains(t, buf.String(), "FATAL: sequencer wedged")
}

func mustParse(t *testing.T, s string) MaskLevel {
	t.Helper()
	m, err := ParseLevel(s)
	require.NoError(t, err)
	return m
}
