// Package config wraps env parsing so services declare configuration as
// tagged structs instead of reading os.Getenv by hand.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct pointer using
// its `env` tags.
//
// Example:
//
//	type Config struct {
//	    Port    int      `env:"HTTP_PORT" envDefault:"8080"`
//	    Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
