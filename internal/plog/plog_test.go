package plog

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	orig := std
	std = log.New(&buf, "", 0)
	defer func() { std = orig }()
	fn()
	return buf.String()
}

func TestDebug_SuppressedUnlessEnabled(t *testing.T) {
	SetDebug(false)
	out := captureOutput(t, func() { Debug("hidden %d", 1) })
	assert.Empty(t, out)

	SetDebug(true)
	defer SetDebug(false)
	out = captureOutput(t, func() { Debug("visible %d", 1) })
	assert.Contains(t, out, "DEBUG: visible 1")
}

func TestWarn_AlwaysEmitsWithPrefix(t *testing.T) {
	SetDebug(false)
	out := captureOutput(t, func() { Warn("disk full at %s", "/data") })
	assert.Contains(t, out, "WARNING: disk full at /data")
}

func TestInfo_EmitsWithoutPrefix(t *testing.T) {
	out := captureOutput(t, func() { Info("plain message") })
	assert.Contains(t, out, "plain message")
	assert.NotContains(t, out, "WARNING:")
	assert.NotContains(t, out, "DEBUG:")
}
