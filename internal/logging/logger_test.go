package logging

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithComponent_JSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	log := WithComponent("resolver")
	log.Info().Str("candidate", "鲁迅").Msg("[Resolver] exact match")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "resolver", entry["component"])
	assert.Equal(t, "鲁迅", entry["candidate"])
	assert.Equal(t, "[Resolver] exact match", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("DEBUG").String())
	assert.Equal(t, "warn", parseLevel("warning").String())
	assert.Equal(t, "info", parseLevel("").String())
	assert.Equal(t, "info", parseLevel("bogus").String())
}
