/**
 * @description
 * This file handles the configuration management for the console service.
 * It uses the 'viper' library to load configuration from environment
 * variables, providing a centralized and consistent way to manage
 * application settings. The gateway credential and app id are injected here
 * and never hard-coded.
 */
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort      string `mapstructure:"SERVER_PORT"`
	OnepayBaseURL   string `mapstructure:"ONEPAY_BASE_URL"`
	OnepayAuthToken string `mapstructure:"ONEPAY_AUTH_TOKEN"`
	OnepayAppID     string `mapstructure:"ONEPAY_APP_ID"`
	SettleDelayMS   int    `mapstructure:"SETTLE_DELAY_MS"`
}

// SettleDelay is the delay before the creation flow's post-success side
// effect fires.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8090")
	viper.SetDefault("SETTLE_DELAY_MS", 2000)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("ONEPAY_BASE_URL")
	_ = viper.BindEnv("ONEPAY_AUTH_TOKEN")
	_ = viper.BindEnv("ONEPAY_APP_ID")
	_ = viper.BindEnv("SETTLE_DELAY_MS")

	if err = viper.Unmarshal(&config); err != nil {
		return config, err
	}

	if config.OnepayBaseURL == "" {
		return config, errors.New("ONEPAY_BASE_URL must be set")
	}
	if config.OnepayAuthToken == "" {
		return config, errors.New("ONEPAY_AUTH_TOKEN must be set")
	}
	if config.OnepayAppID == "" {
		return config, errors.New("ONEPAY_APP_ID must be set")
	}
	return config, nil
}
