package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads configuration from the environment. A local .env file is
// honored when present; missing is fine in production.
func Load() (App, error) {
	_ = godotenv.Load()

	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return App{}, err
	}
	return cfg, nil
}
