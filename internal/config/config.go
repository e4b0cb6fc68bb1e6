package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"8080"`
	DatabaseURL  string `env:"DATABASE_URL,required"`
	RedisURL     string `env:"REDIS_URL,required"`
	GatewayToken string `env:"GATEWAY_TOKEN"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	// Penalty window for the point policy: hours spent connected between
	// StartHour and EndHour (local to Timezone) earn PointsPerHour each.
	PenaltyStartHour int    `env:"PENALTY_WINDOW_START_HOUR" envDefault:"0"`
	PenaltyEndHour   int    `env:"PENALTY_WINDOW_END_HOUR" envDefault:"6"`
	PenaltyTimezone  string `env:"PENALTY_TZ" envDefault:"Asia/Tokyo"`
	PointsPerHour    int    `env:"POINTS_PER_HOUR" envDefault:"1"`

	// Sessions open longer than this are force-closed by the sweeper.
	// Zero disables the sweeper.
	MaxSessionAgeHours int `env:"MAX_SESSION_AGE_HOURS" envDefault:"0"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) MaxSessionAge() time.Duration {
	return time.Duration(c.MaxSessionAgeHours) * time.Hour
}

func (c *Config) PenaltyLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.PenaltyTimezone)
	if err != nil {
		return nil, fmt.Errorf("load penalty timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) Validate() error {
	if c.PenaltyStartHour < 0 || c.PenaltyStartHour > 23 {
		return fmt.Errorf("PENALTY_WINDOW_START_HOUR must be in 0..23, got %d", c.PenaltyStartHour)
	}
	if c.PenaltyEndHour < 0 || c.PenaltyEndHour > 23 {
		return fmt.Errorf("PENALTY_WINDOW_END_HOUR must be in 0..23, got %d", c.PenaltyEndHour)
	}
	if c.PointsPerHour < 0 {
		return fmt.Errorf("POINTS_PER_HOUR must not be negative, got %d", c.PointsPerHour)
	}
	if c.MaxSessionAgeHours < 0 {
		return fmt.Errorf("MAX_SESSION_AGE_HOURS must not be negative, got %d", c.MaxSessionAgeHours)
	}
	if _, err := c.PenaltyLocation(); err != nil {
		return err
	}

	if c.GatewayToken == "" {
		log.Warn().Msg("GATEWAY_TOKEN is empty: the event API accepts unauthenticated requests")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
