package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.TraceLevel, ParseLevel(" trace "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backlogdb.log")

	log := New("warn", path)
	log.Info().Msg("dropped")
	log.Warn().Str("name", "Hades").Msg("kept")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"name":"Hades"`)
	assert.NotContains(t, string(b), "dropped")
}

func TestNew_ConsoleOnly(t *testing.T) {
	log := New("debug", "")
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
}
