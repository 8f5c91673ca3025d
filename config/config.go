// Package config reads the tester settings from the environment and an optional .env file.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"charge_point_tester/common"
)

const (
	envVarWebSocketURL      = "WEBSOCKET_URL"
	envVarWebSocketProtocol = "SEC_WEB_SOCKET_PROTOCOL"
)

type Config struct {
	// WebSocketURL is the central system endpoint, e.g. ws://localhost:5028/OCPP1.
	WebSocketURL string `env:"WEBSOCKET_URL" validate:"required,url"`
	// Protocol is the Sec-WebSocket-Protocol token, e.g. ocpp1.6.
	Protocol string `env:"SEC_WEB_SOCKET_PROTOCOL" validate:"required"`

	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn warning error"`
	SettleDelay     time.Duration `env:"METER_VALUES_SETTLE_DELAY" envDefault:"20s" validate:"gte=0"`
	ResponseTimeout time.Duration `env:"RESPONSE_TIMEOUT" envDefault:"30s" validate:"gte=0"`

	NatsURL     string `env:"NATS_URL" validate:"omitempty,url"`
	NatsSubject string `env:"NATS_SUBJECT" envDefault:"ocpp.tester" validate:"required"`
}

// Load reads envFile (when it exists) into the process environment and parses
// the configuration. Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, common.ConfigError.Wrap(err, "cannot read %s", envFile)
		}
	}
	return Parse(env.Options{})
}

// Parse builds a Config from the environment described by opts.
func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, common.ConfigError.Wrap(err, "invalid environment")
	}
	if cfg.WebSocketURL == "" {
		return nil, common.ConfigError.New("no required %v found", envVarWebSocketURL)
	}
	if cfg.Protocol == "" {
		return nil, common.ConfigError.New("no required %v found", envVarWebSocketProtocol)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, common.ConfigError.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}
