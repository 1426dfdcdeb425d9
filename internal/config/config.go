package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DatasetSourceFile     = "file"
	DatasetSourceDatabase = "database"
)

type Config struct {
	Server struct {
		Port            string
		Mode            string
		ShutdownTimeout time.Duration
		RequestTimeout  time.Duration
	}
	Dataset struct {
		Path   string
		Source string
		Sheet  string
	}
	Model struct {
		Path string
	}
	Database struct {
		URL string
	}
	Redis struct {
		URL string
	}
	Cache struct {
		TTL time.Duration
	}
	RateLimit struct {
		PerMinute int
	}
	CORS struct {
		AllowedOrigins []string
	}
	Log struct {
		Level string
	}
	Health struct {
		Interval time.Duration
	}
	Migrations struct {
		Path string
	}
}

// Load reads configuration. Environment variables override config.yaml, which overrides defaults.
func Load() (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("dataset.path", "data/worldcities.csv")
	v.SetDefault("dataset.source", DatasetSourceFile)
	v.SetDefault("dataset.sheet", "")
	v.SetDefault("model.path", "titanic_model.json")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("rate_limit.per_minute", 120)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("log.level", "info")
	v.SetDefault("health.interval", 30*time.Second)
	v.SetDefault("migrations.path", "migrations")
}

func fromViper(v *viper.Viper) *Config {
	var config Config

	config.Server.Port = v.GetString("server.port")
	config.Server.Mode = v.GetString("server.mode")
	config.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")
	config.Server.RequestTimeout = v.GetDuration("server.request_timeout")
	config.Dataset.Path = v.GetString("dataset.path")
	config.Dataset.Source = strings.ToLower(v.GetString("dataset.source"))
	config.Dataset.Sheet = v.GetString("dataset.sheet")
	config.Model.Path = v.GetString("model.path")
	config.Database.URL = v.GetString("database.url")
	config.Redis.URL = v.GetString("redis.url")
	config.Cache.TTL = v.GetDuration("cache.ttl")
	config.RateLimit.PerMinute = v.GetInt("rate_limit.per_minute")
	config.CORS.AllowedOrigins = splitList(v.GetString("cors.allowed_origins"))
	config.Log.Level = v.GetString("log.level")
	config.Health.Interval = v.GetDuration("health.interval")
	config.Migrations.Path = v.GetString("migrations.path")

	return &config
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}

	switch c.Dataset.Source {
	case DatasetSourceFile:
		if c.Dataset.Path == "" {
			return errors.New("dataset.path is required when dataset.source is file")
		}
	case DatasetSourceDatabase:
		if c.Database.URL == "" {
			return errors.New("database.url is required when dataset.source is database")
		}
	default:
		return fmt.Errorf("unknown dataset source %q", c.Dataset.Source)
	}

	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if c.RateLimit.PerMinute <= 0 {
		return errors.New("rate_limit.per_minute must be positive")
	}
	if c.Health.Interval <= 0 {
		return errors.New("health.interval must be positive")
	}

	return nil
}
