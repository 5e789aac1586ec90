package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Game        GameConfig        `mapstructure:"game"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Development DevelopmentConfig `mapstructure:"development"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type GameConfig struct {
	AFKTimeoutMs        int `mapstructure:"afk_timeout_ms"`
	DisconnectTimeoutMs int `mapstructure:"disconnect_timeout_ms"`
}

type AuthConfig struct {
	TokenSecret     string `mapstructure:"token_secret"`
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`
}

type DevelopmentConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

func (g GameConfig) AFKTimeout() time.Duration {
	return time.Duration(g.AFKTimeoutMs) * time.Millisecond
}

func (g GameConfig) DisconnectTimeout() time.Duration {
	return time.Duration(g.DisconnectTimeoutMs) * time.Millisecond
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Enable environment variables
	viper.SetEnvPrefix("GAMBIT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("game.afk_timeout_ms", 20000)
	viper.SetDefault("game.disconnect_timeout_ms", 60000)
	viper.SetDefault("auth.token_secret", "dev-only-secret")
	viper.SetDefault("auth.token_ttl_minutes", 240)
	viper.SetDefault("development.debug", false)
	viper.SetDefault("development.log_level", "info")

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			return loadDefaults(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func loadDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Game: GameConfig{
			AFKTimeoutMs:        20000,
			DisconnectTimeoutMs: 60000,
		},
		Auth: AuthConfig{
			TokenSecret:     "dev-only-secret",
			TokenTTLMinutes: 240,
		},
		Development: DevelopmentConfig{
			Debug:    false,
			LogLevel: "info",
		},
	}
}
