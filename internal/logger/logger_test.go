package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, verbose bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verbose)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	buf := capture(t, true)

	Debug("test message %s", "arg")

	assert.Equal(t, "[DEBUG] test message arg\n", buf.String())
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("test message")
	Info("info message")

	assert.Empty(t, buf.String())
}

func TestInfo_WhenVerbose(t *testing.T) {
	buf := capture(t, true)

	Info("synced %d files", 3)

	assert.Equal(t, "[INFO] synced 3 files\n", buf.String())
}

func TestWarn_AlwaysPrinted(t *testing.T) {
	buf := capture(t, false)

	Warn("refresh failed for %s", "p1")

	assert.Equal(t, "[WARN] refresh failed for p1\n", buf.String())
}

func TestError_AlwaysPrinted(t *testing.T) {
	buf := capture(t, false)

	Error("boom")

	assert.Equal(t, "[ERROR] boom\n", buf.String())
}

func TestSection(t *testing.T) {
	buf := capture(t, true)
	Section("Sync")
	assert.Equal(t, "\n=== Sync ===\n", buf.String())

	buf.Reset()
	SetVerbose(false)
	Section("Sync")
	assert.Empty(t, buf.String())
}

func TestLogger_ReturnsZapLogger(t *testing.T) {
	buf := capture(t, false)

	Logger().Error("structured")

	assert.Contains(t, buf.String(), "structured")
}
