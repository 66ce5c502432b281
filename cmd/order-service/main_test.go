package main

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/vladislavdragonenkov/orderflow/internal/app"
)

func TestSetupLogger(t *testing.T) {
	prevFormatter := log.StandardLogger().Formatter
	prevLevel := log.GetLevel()
	t.Cleanup(func() {
		log.SetFormatter(prevFormatter)
		log.SetLevel(prevLevel)
	})

	tests := []struct {
		name      string
		format    string
		level     string
		wantJSON  bool
		wantLevel log.Level
	}{
		{name: "defaults", format: "text", level: "info", wantLevel: log.InfoLevel},
		{name: "json debug", format: " JSON ", level: "debug", wantJSON: true, wantLevel: log.DebugLevel},
		{name: "bad level falls back", format: "text", level: "loud", wantLevel: log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := app.DefaultConfig()
			cfg.LogFormat = tt.format
			cfg.LogLevel = tt.level

			setupLogger(cfg)

			_, isJSON := log.StandardLogger().Formatter.(*log.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
			assert.Equal(t, tt.wantLevel, log.GetLevel())
		})
	}
}
