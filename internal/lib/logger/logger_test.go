package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/linemk/farm-shop/internal/lib/logger/handlers/slogpretty"
	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	local := SetupLogger(EnvLocal)
	_, pretty := local.Handler().(*slogpretty.PrettyHandler)
	assert.True(t, pretty)
	assert.True(t, local.Enabled(context.Background(), slog.LevelDebug))

	dev := SetupLogger(EnvDev)
	assert.True(t, dev.Enabled(context.Background(), slog.LevelDebug))

	prod := SetupLogger(EnvProd)
	assert.False(t, prod.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, prod.Enabled(context.Background(), slog.LevelInfo))
}
