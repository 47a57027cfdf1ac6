package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Redis          RedisConfig          `mapstructure:"redis"`
	ScrapeCreators ScrapeCreatorsConfig `mapstructure:"scrapecreators"`
	Search         SearchConfig         `mapstructure:"search"`
	Worker         WorkerConfig         `mapstructure:"worker"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
	// AdminToken guards /api/v1/admin; empty disables the admin routes.
	AdminToken string `mapstructure:"admin_token"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite
	Path            string        `mapstructure:"path"`   // sqlite file
	URL             string        `mapstructure:"url"`    // postgres DSN, wins over the discrete fields
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// DSN returns the driver-specific connection string.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		if c.URL != "" {
			return c.URL
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	if c.Path == "" {
		return "file::memory:?cache=shared"
	}
	return c.Path + "?_busy_timeout=5000"
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // r2, s3, s3compatible, local; empty auto-detects
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	LocalPath string `mapstructure:"local_path"`
}

type RedisConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

type ScrapeCreatorsConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SearchConfig struct {
	// PlatformTimeout bounds a single platform request during fan-out.
	PlatformTimeout time.Duration `mapstructure:"platform_timeout"`
	HistoryLimit    int           `mapstructure:"history_limit"`
}

type WorkerConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	MaxRounds       int           `mapstructure:"max_rounds"`
	MaxChainDepth   int           `mapstructure:"max_chain_depth"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	ThumbnailPolicy string        `mapstructure:"thumbnail_policy"` // required or best_effort
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	// LeaseTimeout > 0 enables reclaiming jobs stuck in processing.
	LeaseTimeout     time.Duration `mapstructure:"lease_timeout"`
	ScheduleInterval time.Duration `mapstructure:"schedule_interval"`
	Trigger          string        `mapstructure:"trigger"` // http, redis, local
	TriggerURL       string        `mapstructure:"trigger_url"`
}

const (
	ThumbnailRequired   = "required"
	ThumbnailBestEffort = "best_effort"
)

func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment endpoints
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.bucket", "S3_BUCKET")
	v.BindEnv("storage.public_url", "S3_PUBLIC_URL")
	v.BindEnv("redis.url", "REDIS_URL")
	v.BindEnv("scrapecreators.api_key", "SCRAPE_CREATORS_API_KEY")
	v.BindEnv("server.admin_token", "ADMIN_TOKEN")
	v.BindEnv("worker.trigger_url", "WORKER_TRIGGER_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/reelvault.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("storage.type", "")
	v.SetDefault("storage.bucket", "media")
	v.SetDefault("storage.local_path", "./data/media")

	v.SetDefault("redis.queue", "reelvault:worker:signals")

	v.SetDefault("scrapecreators.base_url", "https://api.scrapecreators.com")
	v.SetDefault("scrapecreators.timeout", 30*time.Second)

	v.SetDefault("search.platform_timeout", 45*time.Second)
	v.SetDefault("search.history_limit", 25)

	v.SetDefault("worker.batch_size", 5)
	v.SetDefault("worker.max_rounds", 3)
	v.SetDefault("worker.max_chain_depth", 20)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.thumbnail_policy", ThumbnailRequired)
	v.SetDefault("worker.download_timeout", 2*time.Minute)
	v.SetDefault("worker.lease_timeout", time.Duration(0))
	v.SetDefault("worker.schedule_interval", time.Minute)
	v.SetDefault("worker.trigger", "local")
	v.SetDefault("worker.trigger_url", "http://localhost:8080")
}

// Validate rejects settings the worker and server cannot run with.
func (c *Config) Validate() error {
	switch c.Worker.ThumbnailPolicy {
	case ThumbnailRequired, ThumbnailBestEffort:
	default:
		return fmt.Errorf("invalid worker.thumbnail_policy %q", c.Worker.ThumbnailPolicy)
	}
	switch c.Worker.Trigger {
	case "http", "redis", "local":
	default:
		return fmt.Errorf("invalid worker.trigger %q", c.Worker.Trigger)
	}
	if c.Worker.BatchSize <= 0 || c.Worker.MaxRounds <= 0 {
		return fmt.Errorf("worker.batch_size and worker.max_rounds must be positive")
	}
	if c.Worker.Trigger == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("worker.trigger=redis requires redis.url")
	}
	return nil
}
