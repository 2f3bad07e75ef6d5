package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONCarriesService(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "site-backend", "debug", "json")
	log.Info().Str("k", "v").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "site-backend", line["service"])
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "v", line["k"])
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	_ = New(&buf, "", "verbose", "json")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
