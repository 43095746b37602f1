package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/amkoya-stack/cycles-sub000/internal/platform/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Level(t *testing.T) {
	ctx := context.Background()

	logger := newLogger(&config.Config{LogLevel: "warn"})
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	logger = newLogger(&config.Config{LogLevel: "nonsense"})
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
}

func TestConfigFrom(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	_, err := configFrom(cmd)
	assert.Error(t, err)

	cfg := &config.Config{Port: "8080"}
	cmd.SetContext(config.WithContext(context.Background(), cfg))
	got, err := configFrom(cmd)
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}

func TestSweepCommand_RejectsUnknownSweep(t *testing.T) {
	cmd := sweepCommand()
	cmd.SetContext(config.WithContext(context.Background(), &config.Config{}))
	err := cmd.RunE(cmd, []string{"compaction"})
	assert.ErrorContains(t, err, `unknown sweep "compaction"`)
}
