package slogpretty

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPrettyHandler_WritesMessageAndAttrs(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	h := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}.NewPrettyHandler(&buf)

	log := slog.New(h).With(slog.String("op", "service.CartService.AddItem"))
	log.Info("item added", slog.Int64("productID", 3))

	out := buf.String()
	assert.Contains(t, out, "INFO:")
	assert.Contains(t, out, "item added")
	assert.Contains(t, out, `"op": "service.CartService.AddItem"`)
	assert.Contains(t, out, `"productID": 3`)
}

func TestPrettyHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelWarn}}.NewPrettyHandler(&buf)

	slog.New(h).Info("hidden")
	assert.Empty(t, buf.String())
}
