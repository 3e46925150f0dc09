// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chatdesk.log")
	logger, err := Setup(Options{Level: "debug", File: path, Destination: ToFile})
	require.NoError(t, err)

	logger.Debug().Str("conversation_id", "c1").Msg("started conversation")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "started conversation")
	assert.Contains(t, string(data), "conversation_id=c1")
}

func TestSetup_FileRequiresPath(t *testing.T) {
	_, err := Setup(Options{Destination: ToFile})
	assert.Error(t, err)
}

func TestSetup_BadLevel(t *testing.T) {
	_, err := Setup(Options{Level: "loud", Destination: ToStderr})
	assert.Error(t, err)
}

func TestSetup_StderrHasNoCloser(t *testing.T) {
	logger, err := Setup(Options{Level: "info", Format: "json", Destination: ToStderr})
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
}

func TestNew_FiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.WarnLevel)

	logger.Info().Msg("hidden")
	logger.Warn().Str("outcome", "plain_text").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", gjson.GetBytes(lines[0], "message").String())
	assert.Equal(t, "plain_text", gjson.GetBytes(lines[0], "outcome").String())
	assert.Equal(t, "warn", gjson.GetBytes(lines[0], "level").String())
}
