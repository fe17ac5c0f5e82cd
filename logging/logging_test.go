// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger, err := Setup("warn", "json", &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	slog.Warn("kept", "kind", "donation")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "donation", line["kind"])
}

func TestSetup_Text(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	_, err := Setup("debug", "text", &buf)
	require.NoError(t, err)

	slog.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestSetup_Invalid(t *testing.T) {
	_, err := Setup("loud", "text", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = Setup("info", "xml", &bytes.Buffer{})
	assert.Error(t, err)
}
