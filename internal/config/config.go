package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	defaultQuotaLimitBytes int64 = 10 * 1024 * 1024 * 1024
	bytesPerMB             int64 = 1024 * 1024
)

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"production"`
	Domain     string     `yaml:"domain" env:"DOMAIN" env-required:"true"`
	HTTPServer HTTPServer `yaml:"http_server"`
	Auth       Auth       `yaml:"auth"`
	Upload     Upload     `yaml:"upload"`
	Quota      Quota      `yaml:"quota"`
	Storage    Storage    `yaml:"storage"`
	PGSQL      PQSQL      `yaml:"pgsql"`
	R2         R2         `yaml:"r2"`
	Redis      Redis      `yaml:"redis"`
	Cache      Cache      `yaml:"cache"`
	RateLimit  RateLimit  `yaml:"rate_limit"`
}

type HTTPServer struct {
	Address        string `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	MetricsAddress string `yaml:"metrics_address" env:"METRICS_ADDRESS"`
	// PublicScheme rebuilds the literal request URL media records are keyed on.
	PublicScheme string `yaml:"public_scheme" env:"PUBLIC_SCHEME" env-default:"https"`
}

type Auth struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLE_AUTH" env-default:"false"`
	Password string `yaml:"password" env:"PASSWORD"`
}

type Upload struct {
	MaxSizeMB int64 `yaml:"max_size_mb" env:"MAX_SIZE_MB" env-default:"10"`
}

type Quota struct {
	FreeLimitBytes int64         `yaml:"free_limit_bytes" env:"R2_FREE_LIMIT_BYTES"`
	FreeLimit      int64         `yaml:"free_limit" env:"R2_FREE_LIMIT"`
	AccountID      string        `yaml:"account_id" env:"CLOUDFLARE_ACCOUNT_ID"`
	Email          string        `yaml:"email" env:"CLOUDFLARE_EMAIL"`
	APIKey         string        `yaml:"api_key" env:"CLOUDFLARE_API_KEY"`
	APIBase        string        `yaml:"api_base" env:"CLOUDFLARE_API_BASE" env-default:"https://api.cloudflare.com/client/v4"`
	Timeout        time.Duration `yaml:"timeout" env:"USAGE_TIMEOUT" env-default:"5s"`
	WatchInterval  time.Duration `yaml:"watch_interval" env:"USAGE_WATCH_INTERVAL" env-default:"5m"`
}

// Storage selects the backends. "memory" keeps records and blobs in process
// and is meant for local development.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

type PQSQL struct {
	Host     string `yaml:"host" env:"PG_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"PG_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"PG_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"PG_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"PG_DBNAME" env-default:"imgbed"`
	SSLMode  string `yaml:"sslmode" env:"PG_SSLMODE" env-default:"disable"`
}

// R2 is reached through its S3-compatible endpoint.
type R2 struct {
	Endpoint        string `yaml:"endpoint" env:"R2_ENDPOINT" env-default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"R2_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"R2_SECRET_ACCESS_KEY"`
	BucketName      string `yaml:"bucket" env:"R2_BUCKET" env-default:"imgbed"`
	Region          string `yaml:"region" env:"R2_REGION" env-default:"auto"`
	UseSSL          bool   `yaml:"use_ssl" env:"R2_USE_SSL" env-default:"true"`
}

// Redis is optional. An empty address disables response caching and rate limiting.
type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Cache struct {
	TTL         time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"24h"`
	NotFoundTTL time.Duration `yaml:"not_found_ttl" env:"NOT_FOUND_CACHE_TTL" env-default:"1m"`
}

// RateLimit values are requests per minute per client; 0 turns the limit off.
type RateLimit struct {
	Upload  int64 `yaml:"upload" env:"UPLOAD_RATE_LIMIT" env-default:"30"`
	Shorten int64 `yaml:"shorten" env:"SHORTEN_RATE_LIMIT" env-default:"60"`
}

// AuthEnabled reports whether the session gate is active. A missing password
// disables it regardless of ENABLE_AUTH.
func (c *Config) AuthEnabled() bool {
	return c.Auth.Enabled && c.Auth.Password != ""
}

func (c *Config) MaxUploadBytes() int64 {
	mb := c.Upload.MaxSizeMB
	if mb <= 0 {
		mb = 10
	}
	return mb * bytesPerMB
}

func (c *Config) QuotaLimitBytes() int64 {
	if c.Quota.FreeLimitBytes > 0 {
		return c.Quota.FreeLimitBytes
	}
	if c.Quota.FreeLimit > 0 {
		return c.Quota.FreeLimit
	}
	return defaultQuotaLimitBytes
}

// HasMetricsCredentials reports whether all three Cloudflare credentials are set.
func (q Quota) HasMetricsCredentials() bool {
	return q.AccountID != "" && q.Email != "" && q.APIKey != ""
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("failed to read config: %s", err)
	}

	return cfg
}

// Load reads the config file at path, or only the environment when path is empty.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, err
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
