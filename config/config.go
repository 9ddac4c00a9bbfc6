// Package config reads moss.yaml through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/skyezerfox/moss/constants"
	"github.com/skyezerfox/moss/models"
	"github.com/skyezerfox/moss/registry"
)

type Config struct {
	HTTP     HTTPConfig
	Status   StatusConfig
	LogLevel zerolog.Level
	Servers  []models.ServerDescriptor
}

type HTTPConfig struct {
	Host       string
	Port       int
	CheckRate  float64
	CheckBurst int
	TrustProxy bool
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StatusConfig struct {
	APIURL    string
	Timeout   time.Duration
	UserAgent string
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.check_rate", 2.0)
	v.SetDefault("http.check_burst", 4)
	v.SetDefault("http.trust_proxy", false)

	v.SetDefault("status.api_url", constants.StatusAPIURL)
	v.SetDefault("status.timeout", "10s")
	v.SetDefault("status.user_agent", constants.AppName)

	v.SetDefault("log.level", "info")
}

// Setup points v at moss.yaml in dir, with MOSS_ environment overrides.
func Setup(v *viper.Viper, dir string) {
	v.SetConfigName("moss")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("moss")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// Read loads the config file, writing a sample one when none exists.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := v.SafeWriteConfig(); err != nil {
			return fmt.Errorf("failed to write sample config: %w", err)
		}
	}
	return nil
}

// FromViper builds a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	level, err := zerolog.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log.level: %w", err)
	}

	servers, err := Servers(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Host:       v.GetString("http.host"),
			Port:       v.GetInt("http.port"),
			CheckRate:  v.GetFloat64("http.check_rate"),
			CheckBurst: v.GetInt("http.check_burst"),
			TrustProxy: v.GetBool("http.trust_proxy"),
		},
		Status: StatusConfig{
			APIURL:    strings.TrimSuffix(v.GetString("status.api_url"), "/"),
			Timeout:   v.GetDuration("status.timeout"),
			UserAgent: v.GetString("status.user_agent"),
		},
		LogLevel: level,
		Servers:  servers,
	}

	if cfg.Status.APIURL == "" {
		return nil, fmt.Errorf("status.api_url must not be empty")
	}
	if cfg.HTTP.CheckBurst < 1 {
		cfg.HTTP.CheckBurst = 1
	}
	return cfg, nil
}

// Servers reads the servers block. Without one the built-in table is used.
func Servers(v *viper.Viper) ([]models.ServerDescriptor, error) {
	var servers []models.ServerDescriptor
	if err := v.UnmarshalKey("servers", &servers); err != nil {
		return nil, fmt.Errorf("invalid servers block: %w", err)
	}
	if len(servers) == 0 {
		return registry.Default(), nil
	}

	for i, s := range servers {
		if s.Name == "" {
			return nil, fmt.Errorf("invalid configuration block for server %d - missing name", i)
		}
		if s.Address == "" {
			return nil, fmt.Errorf("invalid configuration block for server %s - missing address", s.Name)
		}
	}
	return servers, nil
}
