package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dripmate/services"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "DRIPMATE"

type Config struct {
	APIURL      string        `mapstructure:"api_url"`
	APIPort     int           `mapstructure:"api_port"`
	APIPath     string        `mapstructure:"api_path"`
	StatePath   string        `mapstructure:"state_path"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	LogLevel    string        `mapstructure:"log_level"`
	Debug       bool          `mapstructure:"debug"`
	SentryDSN   string        `mapstructure:"sentry_dsn"`
	Environment string        `mapstructure:"environment"`
	WebAddr     string        `mapstructure:"web_addr"`
	UIHosts     []string      `mapstructure:"ui_hosts"`
	StubAddr    string        `mapstructure:"stub_addr"`
	StubSecret  string        `mapstructure:"stub_secret"`
}

var keys = []string{
	"api_url", "api_port", "api_path", "state_path", "http_timeout", "log_level",
	"debug", "sentry_dsn", "environment", "web_addr", "ui_hosts", "stub_addr", "stub_secret",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "")
	v.SetDefault("api_port", services.DefaultAPIPort)
	v.SetDefault("api_path", services.DefaultAPIPath)
	v.SetDefault("state_path", defaultStatePath())
	v.SetDefault("http_timeout", "60s")
	v.SetDefault("log_level", "info")
	v.SetDefault("debug", false)
	v.SetDefault("sentry_dsn", "")
	v.SetDefault("environment", "local")
	v.SetDefault("web_addr", ":5173")
	v.SetDefault("ui_hosts", []string{})
	v.SetDefault("stub_addr", ":8000")
	v.SetDefault("stub_secret", "dripmate-dev-secret")
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".dripmate", "state.db")
	}
	return filepath.Join(home, ".dripmate", "state.db")
}

// Load reads .env, then DRIPMATE_* variables, then the optional config file.
// An empty configFile looks for dripmate.yaml in the working directory and
// ~/.dripmate.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("dripmate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".dripmate"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return nil, fmt.Errorf("api_port %d out of range", cfg.APIPort)
	}
	if cfg.HTTPTimeout < 0 {
		return nil, fmt.Errorf("http_timeout must not be negative")
	}
	return &cfg, nil
}

// BaseURL picks the API base URL: api_url when set, otherwise the UI host's
// hostname (or localhost) with api_port and api_path.
func (c *Config) BaseURL() services.BaseURLResolver {
	if c.APIURL != "" {
		return services.StaticBaseURL(c.APIURL)
	}
	return services.HostBaseURL(c.APIPort, c.APIPath)
}
