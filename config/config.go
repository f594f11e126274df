package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		// HTTP listen port
		Port string `env:"SERVER_PORT" envDefault:"5250"`

		// Path to the sqlite database file
		DatabasePath string `env:"DATABASE_PATH" envDefault:"database/marketpulse.db"`
	}

	// Recalculation configuration
	Recalculation struct {
		// Number of concurrent workers per rollup stage
		ProcessorCount int `env:"RECALC_PROCESSOR_COUNT" envDefault:"4"`

		// Maximum number of retries for a failed report write
		MaxRetries int `env:"RECALC_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"RECALC_RETRY_DELAY" envDefault:"5"`

		// Hour of day (0-23) for the scheduled full recalculation
		ScheduleHour int `env:"RECALC_SCHEDULE_HOUR" envDefault:"2"`
	}

	// Cache configuration
	Cache struct {
		// Reference-value time-to-live in hours
		TTLHours int `env:"CACHE_TTL_HOURS" envDefault:"24"`
	}

	// Compare configuration
	Compare struct {
		// Request-level timeout for a comparison query in seconds
		TimeoutSeconds int `env:"COMPARE_TIMEOUT" envDefault:"30"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
