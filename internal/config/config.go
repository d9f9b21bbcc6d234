package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration. It is loaded once at
// startup and passed explicitly to the components that need it.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Google struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURL  string `yaml:"redirect_url"`
	} `yaml:"google"`
	Auth struct {
		SecretKey              string `yaml:"secret_key"`
		Algorithm              string `yaml:"algorithm"`
		AccessTokenExpireMin   int64  `yaml:"access_token_expire_min"`
		RefreshTokenExpireDays int64  `yaml:"refresh_token_expire_days"`
	} `yaml:"auth"`
}

// AccessTokenTTL returns the access-token lifetime, defaulting to 30 minutes.
func (c *Config) AccessTokenTTL() time.Duration {
	if c.Auth.AccessTokenExpireMin <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Auth.AccessTokenExpireMin) * time.Minute
}

// RefreshTokenTTL returns the refresh-token lifetime, defaulting to 7 days.
func (c *Config) RefreshTokenTTL() time.Duration {
	if c.Auth.RefreshTokenExpireDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.Auth.RefreshTokenExpireDays) * 24 * time.Hour
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if config.Auth.Algorithm == "" {
		config.Auth.Algorithm = "HS256"
	}

	return config, nil
}
