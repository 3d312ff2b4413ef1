package config

import "time"

type SMTPConfig interface {
	GetSmtpHost() string
	GetSmtpPort() int
	GetSmtpAccount() string
	GetSmtpPassword() string
	GetSmtpFrom() string
	GetSmtpTimeout() time.Duration
	GetMailWorkers() int
	GetMailQueueSize() int
}

var _ SMTPConfig = (*Config)(nil)

func (c *Config) GetSmtpHost() string {
	return c.SMTP.Host
}

func (c *Config) GetSmtpPort() int {
	return c.SMTP.Port
}

func (c *Config) GetSmtpAccount() string {
	return c.SMTP.Account
}

func (c *Config) GetSmtpPassword() string {
	return c.SMTP.Password
}

// GetSmtpFrom falls back to the SMTP account when no sender address is configured
func (c *Config) GetSmtpFrom() string {
	if c.SMTP.From == "" {
		return c.SMTP.Account
	}
	return c.SMTP.From
}

func (c *Config) GetSmtpTimeout() time.Duration {
	return c.SMTP.Timeout
}

func (c *Config) GetMailWorkers() int {
	return c.SMTP.Workers
}

func (c *Config) GetMailQueueSize() int {
	return c.SMTP.QueueSize
}
