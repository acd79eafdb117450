package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger, closer, err := New(Config{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("token_id", "1-0xaaa").Msg("override target not in token list")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"token_id":"1-0xaaa"`)
	assert.Contains(t, lines[0], `"level":"warn"`)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	logger, closer, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	assert.NoError(t, closer.Close())
}

func TestContext(t *testing.T) {
	assert.Equal(t, zerolog.Disabled, FromContext(context.Background()).GetLevel())

	logger := zerolog.New(nil).Level(zerolog.DebugLevel)
	ctx := WithLogger(context.Background(), logger)
	assert.Equal(t, zerolog.DebugLevel, FromContext(ctx).GetLevel())
}
