package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoCFWritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("info")
	t.Cleanup(func() { SetOutput(bytes.NewBuffer(nil)) })

	InfoCF("widget", "session opened", map[string]interface{}{"session": "abc"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "widget", line["component"])
	assert.Equal(t, "abc", line["session"])
	assert.Equal(t, "session opened", line["message"])
	assert.Equal(t, "info", line["level"])
}

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("warn")
	t.Cleanup(func() { SetLevel("info") })

	DebugCF("bridge", "measure", nil)
	InfoC("bridge", "posted")
	assert.Zero(t, buf.Len())

	WarnCF("bridge", "post failed", nil)
	assert.Contains(t, buf.String(), "post failed")
}

func TestSetLevelUnknownFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("verbose-ish")

	InfoC("x", "visible")
	assert.Contains(t, buf.String(), "visible")
}
