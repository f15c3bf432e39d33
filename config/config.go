// Package config loads application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envFile = "config/.env"

// NewConfig loads configuration from environment using viper with typed defaults and validation.
func NewConfig() (*Config, error) {
	v := viper.New()
	if envMap, err := godotenv.Read(envFile); err == nil {
		for k, v := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, v)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("http.request_timeout", 5*time.Second)

	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.db_name", "reposage")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.migrations_dir", "db/migrations")
	v.SetDefault("postgres.migrate_timeout", 10*time.Second)
	v.SetDefault("postgres.query_timeout", 2*time.Second)
	v.SetDefault("postgres.max_conns", 20)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.skip_migrations", false)

	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("queue.name", "analysis-jobs")
	v.SetDefault("queue.prefix", "")
	v.SetDefault("queue.group", "analysis-workers")
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.visibility_timeout", 30*time.Second)
	v.SetDefault("queue.block_timeout", 5*time.Second)
	v.SetDefault("queue.publish_retry_max_elapsed", 3*time.Second)
	v.SetDefault("queue.job_timeout", 30*time.Second)

	v.SetDefault("github.app_id", "")
	v.SetDefault("github.private_key_path", "")
	v.SetDefault("github.webhook_secret", "")
	v.SetDefault("github.api_url", "https://api.github.com/")
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"server.host",
		"server.port",
		"server.shutdown_timeout",
		"http.request_timeout",
		"postgres.url",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.db_name",
		"postgres.ssl_mode",
		"postgres.migrations_dir",
		"postgres.migrate_timeout",
		"postgres.query_timeout",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.skip_migrations",
		"redis.url",
		"queue.name",
		"queue.prefix",
		"queue.group",
		"queue.concurrency",
		"queue.max_attempts",
		"queue.visibility_timeout",
		"queue.block_timeout",
		"queue.publish_retry_max_elapsed",
		"queue.job_timeout",
		"github.app_id",
		"github.private_key_path",
		"github.webhook_secret",
		"github.api_url",
	}

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}
