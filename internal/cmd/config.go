package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration. Environment variables override
// everything in here.
type Config struct {
	Session struct {
		RoundSeconds int  `yaml:"round_seconds"`
		AutoAdvance  bool `yaml:"auto_advance"`
	} `yaml:"session"`
	Admin struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"admin"`
	Auth struct {
		TokenTTLMinutes int `yaml:"token_ttl_minutes"`
	} `yaml:"auth"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

func defaultConfig() *Config {
	config := &Config{}
	config.Session.RoundSeconds = 30
	config.Admin.Username = "admin"
	config.Admin.Password = "password"
	config.Auth.TokenTTLMinutes = 12 * 60
	return config
}

// applyEnvOverrides layers environment variables over the YAML values.
func applyEnvOverrides(config *Config) {
	config.Session.RoundSeconds = getEnvAsInt("ROUND_SECONDS", config.Session.RoundSeconds)
	config.Session.AutoAdvance = getEnvAsBool("AUTO_ADVANCE", config.Session.AutoAdvance)
	config.Admin.Username = getEnv("ADMIN_USERNAME", config.Admin.Username)
	config.Admin.Password = getEnv("ADMIN_PASSWORD", config.Admin.Password)
	config.Auth.TokenTTLMinutes = getEnvAsInt("TOKEN_TTL_MINUTES", config.Auth.TokenTTLMinutes)
}
