// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Shop     ShopConfig     `mapstructure:"shop"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds the admin user list and the admin API settings.
type AdminConfig struct {
	IDs        []int64 `mapstructure:"ids"`
	ListenAddr string  `mapstructure:"listen_addr"`
	APIToken   string  `mapstructure:"api_token"`
}

// DeliveryConfig holds the delivery gating and earnings policy settings.
// Earnings mode is either "flat" (one delivery, flat_min..flat_max) or
// "multi" (count_min..count_max deliveries at base_min..base_max each).
type DeliveryConfig struct {
	CooldownMinutes int    `mapstructure:"cooldown_minutes"`
	EarningsMode    string `mapstructure:"earnings_mode"`
	FlatMin         int64  `mapstructure:"flat_min"`
	FlatMax         int64  `mapstructure:"flat_max"`
	BaseMin         int64  `mapstructure:"base_min"`
	BaseMax         int64  `mapstructure:"base_max"`
	CountMin        int    `mapstructure:"count_min"`
	CountMax        int    `mapstructure:"count_max"`
	ExpMin          int64  `mapstructure:"exp_min"`
	ExpMax          int64  `mapstructure:"exp_max"`
	MilestoneStep   int64  `mapstructure:"milestone_step"`
	MilestoneMax    int64  `mapstructure:"milestone_max"`
}

// Cooldown returns the delivery cooldown as a duration.
func (d *DeliveryConfig) Cooldown() time.Duration {
	return time.Duration(d.CooldownMinutes) * time.Minute
}

// ShopConfig holds shop behavior settings.
type ShopConfig struct {
	PendingTTL time.Duration `mapstructure:"pending_ttl"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, DATABASE_HOST, DELIVERY_COOLDOWN_MINUTES.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file not found is OK, env vars can provide all config.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "deliverybot")
	v.SetDefault("database.name", "deliverybot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Admin API defaults
	v.SetDefault("admin.listen_addr", ":8080")

	// Delivery defaults. The flat mode pays 100-300 per delivery; the multi
	// mode pays base 35-200 times a randomized 1-3 delivery count.
	v.SetDefault("delivery.cooldown_minutes", 2)
	v.SetDefault("delivery.earnings_mode", "flat")
	v.SetDefault("delivery.flat_min", 100)
	v.SetDefault("delivery.flat_max", 300)
	v.SetDefault("delivery.base_min", 35)
	v.SetDefault("delivery.base_max", 200)
	v.SetDefault("delivery.count_min", 1)
	v.SetDefault("delivery.count_max", 3)
	v.SetDefault("delivery.exp_min", 1)
	v.SetDefault("delivery.exp_max", 3)
	v.SetDefault("delivery.milestone_step", 100)
	v.SetDefault("delivery.milestone_max", 100)

	// Shop defaults
	v.SetDefault("shop.pending_ttl", "2m")
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}
