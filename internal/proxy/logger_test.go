package proxy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmid-labs/scangate/internal/config"
)

func TestNewLogger_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scangate.log")
	logger, err := NewLogger(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: path,
	})
	require.NoError(t, err)

	logger.Info().Str("component", "test").Msg("hello")
	logger.Debug().Msg("filtered")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"message":"hello"`)
	assert.NotContains(t, string(content), "filtered")
}

func TestNewLogger_BadOutputPath(t *testing.T) {
	t.Parallel()

	_, err := NewLogger(config.LoggingConfig{
		Output: filepath.Join(t.TempDir(), "nodir", "scangate.log"),
	})
	assert.Error(t, err)
}

func TestUsesConsole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.LoggingConfig
		want bool
	}{
		{name: "json format", cfg: config.LoggingConfig{Format: "json"}, want: false},
		{name: "console format", cfg: config.LoggingConfig{Format: "console"}, want: true},
		{name: "pretty overrides json", cfg: config.LoggingConfig{Format: "json", Pretty: true}, want: true},
		{name: "default non-terminal", cfg: config.LoggingConfig{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := os.CreateTemp(t.TempDir(), "out")
			require.NoError(t, err)
			defer f.Close()

			assert.Equal(t, tt.want, usesConsole(tt.cfg, f))
		})
	}
}

func TestGetRequestID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))

	ctx = AddRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))

	generated := AddRequestID(context.Background(), "")
	assert.NotEmpty(t, GetRequestID(generated))
}
