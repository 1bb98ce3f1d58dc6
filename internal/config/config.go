package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Addr        string `mapstructure:"api_addr" validate:"required"` // API bind address, e.g. "127.0.0.1:8080" or ":8080" in Docker
	LogDir      string `mapstructure:"log_dir" validate:"required"`
	LogStderr   bool   `mapstructure:"log_stderr"`
	DatabaseURL string `mapstructure:"database_url"` // empty means in-memory store
	DropAll     bool   `mapstructure:"drop_all"`

	HTTPTimeoutMS  int `mapstructure:"http_timeout_ms" validate:"gt=0"`
	RetryAttempts  int `mapstructure:"retry_attempts" validate:"gte=1"`
	RetryBackoffMS int `mapstructure:"retry_backoff_ms" validate:"gte=0"`
	MaxConcurrent  int `mapstructure:"max_concurrent_checks" validate:"gte=1"`
	MaxFailures    int `mapstructure:"max_failures" validate:"gte=1"`

	AdminEmail   string `mapstructure:"admin_email" validate:"omitempty,email"`
	SenderEmail  string `mapstructure:"sender_email" validate:"required_with=SMTPServer,omitempty,email"`
	SMTPServer   string `mapstructure:"smtp_server"`
	SMTPPort     int    `mapstructure:"smtp_port" validate:"gt=0,lte=65535"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	SMTPUseTLS   bool   `mapstructure:"smtp_use_tls"`
	SlackWebhook string `mapstructure:"slack_webhook" validate:"omitempty,url"`

	AllowedOrigins string `mapstructure:"allowed_origins"`
	RateLimitRPM   int    `mapstructure:"rate_limit_rpm" validate:"gte=0"`
	RateLimitBurst int    `mapstructure:"rate_limit_burst" validate:"gte=0"`

	ConsoleAddr    string `mapstructure:"console_addr" validate:"required"`
	ConsoleAPIBase string `mapstructure:"console_api_base" validate:"omitempty,url"`
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// SelfBase is the API's own root as reachable from this host: the listen
// address with a wildcard or empty host replaced by loopback.
func (c Config) SelfBase() string {
	host, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return "http://" + c.Addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_addr", "127.0.0.1:8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_stderr", false)
	v.SetDefault("database_url", "")
	v.SetDefault("drop_all", false)

	v.SetDefault("http_timeout_ms", 10000)
	v.SetDefault("retry_attempts", 1)
	v.SetDefault("retry_backoff_ms", 300)
	v.SetDefault("max_concurrent_checks", 16)
	v.SetDefault("max_failures", 3)

	v.SetDefault("admin_email", "")
	v.SetDefault("sender_email", "")
	v.SetDefault("smtp_server", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("smtp_use_tls", true)
	v.SetDefault("slack_webhook", "")

	v.SetDefault("allowed_origins", "*")
	v.SetDefault("rate_limit_rpm", 0)
	v.SetDefault("rate_limit_burst", 0)

	v.SetDefault("console_addr", "127.0.0.1:8081")
	v.SetDefault("console_api_base", "")
}

// Load reads defaults, then the optional env-style file at path, then the
// process environment. A missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return formatValidationErrors(ve)
		}
		return err
	}
	return nil
}

func formatValidationErrors(ve validator.ValidationErrors) error {
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, fe := range ve {
		fmt.Fprintf(&sb, "- field '%s' failed on '%s'\n", fe.Namespace(), fe.Tag())
	}
	return errors.New(sb.String())
}
