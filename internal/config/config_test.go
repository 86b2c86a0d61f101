package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "release"},
		Pipeline: PipelineConfig{
			MaxAttempts:      3,
			RetryDelay:       1500 * time.Millisecond,
			MinDuration:      0.8,
			FallbackDuration: 3,
		},
		Render: RenderConfig{Width: 1280, Height: 720, FPS: 30, FadeIn: 0.5},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "invalid mode", mutate: func(c *Config) { c.Server.Mode = "prod" }, wantErr: true},
		{name: "zero attempts", mutate: func(c *Config) { c.Pipeline.MaxAttempts = 0 }, wantErr: true},
		{name: "negative retry delay", mutate: func(c *Config) { c.Pipeline.RetryDelay = -time.Second }, wantErr: true},
		{name: "zero min duration", mutate: func(c *Config) { c.Pipeline.MinDuration = 0 }, wantErr: true},
		{name: "zero fps", mutate: func(c *Config) { c.Render.FPS = 0 }, wantErr: true},
		{name: "negative fade in", mutate: func(c *Config) { c.Render.FadeIn = -1 }, wantErr: true},
		{name: "zero retry delay allowed", mutate: func(c *Config) { c.Pipeline.RetryDelay = 0 }, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("Validate() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}
