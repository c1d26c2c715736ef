package internal

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	}()
	fn()
	return buf.String()
}

func TestLogger_LevelFiltering(t *testing.T) {
	out := captureLog(t, func() {
		l := NewLogger(LogLevelWarn)
		l.Error("e %d", 1)
		l.Warn("w")
		l.Info("hidden")
		l.Debug("hidden")
	})

	assert.Contains(t, out, "[ERROR] e 1")
	assert.Contains(t, out, "[WARN] w")
	assert.NotContains(t, out, "hidden")
}

func TestLogger_Component(t *testing.T) {
	out := captureLog(t, func() {
		NewLogger(LogLevelInfo).With("Dispatcher").Info("lanes=%d", 8)
	})
	assert.Equal(t, "[INFO] [Dispatcher] lanes=8", strings.TrimSpace(out))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelTrace, ParseLogLevel("trace"))
	assert.Equal(t, LogLevelError, ParseLogLevel("ERROR"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}
