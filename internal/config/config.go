package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

// Config is the full service configuration. Each section is also exposed through a small
// getter interface so consumers depend on the values they read, not on this struct.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	SMTP     SMTP     `yaml:"smtp"`
	Security Security `yaml:"security"`
	Log      Log      `yaml:"log"`
}

type Server struct {
	Port         string        `yaml:"port" env:"PORT" env-default:"8080"`
	BaseURL      string        `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	AppName      string        `yaml:"app_name" env:"APP_NAME" env-default:"Forum ByteBank"`
	Env          string        `yaml:"env" env:"ENV" env-default:"DEV"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" env-default:"60s"`
}

// Database selects the credential store. An empty URL keeps users in memory.
type Database struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// Redis backs the used-token ledger and the session store. An empty address keeps both in memory.
type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type SMTP struct {
	Host      string        `yaml:"host" env:"SMTP_HOST" env-default:"smtp.gmail.com"`
	Port      int           `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Account   string        `yaml:"account" env:"SMTP_ACCOUNT"`
	Password  string        `yaml:"password" env:"SMTP_PASSWORD"`
	From      string        `yaml:"from" env:"SMTP_FROM"`
	Timeout   time.Duration `yaml:"timeout" env:"SMTP_TIMEOUT" env-default:"20s"`
	Workers   int           `yaml:"workers" env:"MAIL_WORKERS" env-default:"2"`
	QueueSize int           `yaml:"queue_size" env:"MAIL_QUEUE_SIZE" env-default:"64"`
}

type Security struct {
	TokenSecret           string        `yaml:"token_secret" env:"TOKEN_SECRET" env-default:"change-me-in-production"`
	ConfirmEmailTokenTTL  time.Duration `yaml:"confirm_email_token_ttl" env:"CONFIRM_EMAIL_TOKEN_TTL" env-default:"24h"`
	ResetPasswordTokenTTL time.Duration `yaml:"reset_password_token_ttl" env:"RESET_PASSWORD_TOKEN_TTL" env-default:"3h"`
	LockoutMaxAttempts    int           `yaml:"lockout_max_attempts" env:"LOCKOUT_MAX_ATTEMPTS" env-default:"5"`
	LockoutDuration       time.Duration `yaml:"lockout_duration" env:"LOCKOUT_DURATION" env-default:"5m"`
	SessionTTL            time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"12h"`
	PersistentSessionTTL  time.Duration `yaml:"persistent_session_ttl" env:"PERSISTENT_SESSION_TTL" env-default:"336h"`
	SessionCookieName     string        `yaml:"session_cookie_name" env:"SESSION_COOKIE_NAME" env-default:"forum_session"`
}

// defaultTokenSecret mirrors the TOKEN_SECRET env-default and is only accepted in DEV
const defaultTokenSecret = "change-me-in-production"

// minTokenSecretBytes is the HMAC-SHA256 key size
const minTokenSecretBytes = 32

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Load reads the configuration from path (yaml/json/toml/env file) when one is given, and from
// the environment otherwise. Environment variables always override file values.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, errors.Wrapf(err, "[config.Load] read %s", path)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, errors.Wrap(err, "[config.Load] read env")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Security.LockoutMaxAttempts < 1 {
		return errors.New("[config] LOCKOUT_MAX_ATTEMPTS must be at least 1")
	}
	if c.Security.TokenSecret == "" {
		return errors.New("[config] TOKEN_SECRET is required")
	}
	if !c.IsDev() {
		if c.Security.TokenSecret == defaultTokenSecret {
			return errors.Errorf("[config] TOKEN_SECRET must be changed from the default when ENV is %s", c.Server.Env)
		}
		if len(c.Security.TokenSecret) < minTokenSecretBytes {
			return errors.Errorf("[config] TOKEN_SECRET must be at least %d bytes when ENV is %s", minTokenSecretBytes, c.Server.Env)
		}
	}
	if c.SMTP.Workers < 1 {
		c.SMTP.Workers = 1
	}
	return nil
}

// Usage returns the environment variable help text.
func Usage() string {
	var cfg Config
	text, _ := cleanenv.GetDescription(&cfg, nil)
	return text
}
