//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads the process configuration from the environment and an
// optional config.yaml in the working directory. Environment variables win
// over the file; every key is reachable as DATABOT_<KEY>.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the process needs to run.
type Config struct {
	// AppID and AppSecret identify the bot to the chat transport.
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	// TenantID scopes the identity provider used for token exchange.
	TenantID string `mapstructure:"tenant_id"`

	// DownstreamHost is the base URL of the data platform.
	DownstreamHost string `mapstructure:"downstream_host"`
	// DownstreamClientID and DownstreamClientSecret authenticate the
	// on-behalf-of exchange.
	DownstreamClientID     string `mapstructure:"downstream_client_id"`
	DownstreamClientSecret string `mapstructure:"downstream_client_secret"`
	// SpaceID selects the assistant space queries are sent to.
	SpaceID string `mapstructure:"space_id"`

	// Port is the HTTP listen port.
	Port int `mapstructure:"port"`
	// PublicURL is the externally reachable base URL, used to build chart
	// links in replies.
	PublicURL string `mapstructure:"public_url"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TokenURL returns the identity provider's token endpoint for the tenant.
func (c *Config) TokenURL() string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", c.TenantID)
}

// Load reads configuration from config.yaml (when present) and the
// environment, applies defaults and validates required fields.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DATABOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8000)
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// AutomaticEnv alone does not surface env-only keys through Unmarshal;
	// bind each key explicitly.
	for _, key := range []string{
		"app_id", "app_secret", "tenant_id",
		"downstream_host", "downstream_client_id", "downstream_client_secret",
		"space_id", "port", "public_url", "log_level",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"tenant_id", c.TenantID},
		{"downstream_host", c.DownstreamHost},
		{"downstream_client_id", c.DownstreamClientID},
		{"downstream_client_secret", c.DownstreamClientSecret},
		{"space_id", c.SpaceID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}
