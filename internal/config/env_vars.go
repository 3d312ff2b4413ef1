package config

import "fmt"

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

var _ EnvConfig = (*Config)(nil)

func (c *Config) GetPort() string {
	port := c.Server.Port
	if port == "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (c *Config) GetAppName() string {
	return c.Server.AppName
}

// GetBaseURL returns the externally visible base URL (e.g., "https://forum.example.com").
// Callback links in confirmation and reset emails are built from it.
func (c *Config) GetBaseURL() string {
	return c.Server.BaseURL
}

func (c *Config) GetEnv() string {
	if c.Server.Env == "" {
		return "DEV"
	}
	return c.Server.Env
}

func (c *Config) IsDev() bool {
	return c.GetEnv() == "DEV"
}
