package internal

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		ok    bool
	}{
		{"ERROR", LogLevelError, true},
		{"warn", LogLevelWarn, true},
		{" Info ", LogLevelInfo, true},
		{"DEBUG", LogLevelDebug, true},
		{"trace", LogLevelTrace, true},
		{"", LogLevelInfo, false},
		{"verbose", LogLevelInfo, false},
	}
	for _, tt := range tests {
		level, ok := ParseLogLevel(tt.name)
		assert.Equal(t, tt.level, level, tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	l := NewLogger(LogLevelError)
	assert.Equal(t, LogLevelError, l.level)
	l.SetLevel(LogLevelTrace)
	assert.Equal(t, LogLevelTrace, l.level)
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	}()

	l := NewLogger(LogLevelWarn)
	l.Error("e%d", 1)
	l.Warn("w%d", 2)
	l.Info("i%d", 3)
	l.Debug("d%d", 4)
	l.Trace("t%d", 5)
	assert.Equal(t, "[ERROR] e1\n[WARN] w2\n", buf.String())

	buf.Reset()
	l.SetLevel(LogLevelTrace)
	l.Info("i")
	l.Trace("t")
	assert.Equal(t, "[INFO] i\n[TRACE] t\n", buf.String())
}
