// Package config loads and validates the configuration of the data layer.
//
// Configuration is read with Viper from a YAML file, environment variables and
// an optional .env file (godotenv). Environment variables map onto nested keys
// by underscore splitting, so HYPERDATA_CACHE_TTL and CACHE_TTL both reach
// cache.ttl.
//
// # Usage
//
//	var cfg config.Config
//	if err := config.LoadConfig("halctl", &cfg); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
