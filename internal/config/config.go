package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int    `mapstructure:"port"`
	InternalSecret string `mapstructure:"internal_secret"`
	CookieDomain   string `mapstructure:"cookie_domain"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// WSAllowedOrigins 返回逗号分隔的 Origin 白名单。
func (a APIConfig) WSAllowedOrigins() []string {
	if strings.TrimSpace(a.AllowedOrigins) == "" {
		return nil
	}
	parts := strings.Split(a.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 host:port 形式的地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Region           string `mapstructure:"region"`
	Bucket           string `mapstructure:"bucket"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig 包含 JWT 密钥位置与令牌有效期。
type AuthConfig struct {
	PrivateKeyPath  string `mapstructure:"private_key_path"`
	PublicKeyPath   string `mapstructure:"public_key_path"`
	AccessTTLMin    int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLHours int    `mapstructure:"refresh_ttl_hours"`
}

// AccessTTL 返回访问令牌有效期。
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTTLMin) * time.Minute
}

// RefreshTTL 返回刷新令牌有效期。
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLHours) * time.Hour
}

// ClamdConfig 包含病毒扫描服务地址。
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// LimitsConfig 聚合各类业务限额。
type LimitsConfig struct {
	MaxDrafts             int `mapstructure:"max_drafts"`
	AssetMaxBytes         int `mapstructure:"asset_max_bytes"`
	AssetsPerUser         int `mapstructure:"assets_per_user"`
	AssetUploadsPerDay    int `mapstructure:"asset_uploads_per_day"`
	LoginRateLimitPerHour int `mapstructure:"login_rate_limit_per_hour"`
	LoginLockThreshold    int `mapstructure:"login_lock_threshold"`
	LoginLockTTLMin       int `mapstructure:"login_lock_ttl_minutes"`
}

// LoginLockTTL 返回登录锁定时长。
func (l LimitsConfig) LoginLockTTL() time.Duration {
	return time.Duration(l.LoginLockTTLMin) * time.Minute
}

// WorkerConfig 包含任务消费端设置。
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "mailcanvas")
	v.SetDefault("database.user", "mailcanvas")
	v.SetDefault("database.password", "mailcanvas")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "emails")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("auth.private_key_path", "keys/jwt_rs256.pem")
	v.SetDefault("auth.public_key_path", "keys/jwt_rs256.pub.pem")
	v.SetDefault("auth.access_ttl_minutes", 15)
	v.SetDefault("auth.refresh_ttl_hours", 720)
	v.SetDefault("clamd.addr", "tcp://localhost:3310")
	v.SetDefault("limits.max_drafts", 50)
	v.SetDefault("limits.asset_max_bytes", 5*1024*1024)
	v.SetDefault("limits.assets_per_user", 200)
	v.SetDefault("limits.asset_uploads_per_day", 100)
	v.SetDefault("limits.login_rate_limit_per_hour", 10)
	v.SetDefault("limits.login_lock_threshold", 5)
	v.SetDefault("limits.login_lock_ttl_minutes", 15)
	v.SetDefault("worker.concurrency", 10)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                         "API_PORT",
		"api.internal_secret":              "INTERNAL_API_SECRET",
		"api.cookie_domain":                "COOKIE_DOMAIN",
		"api.allowed_origins":              "WS_ALLOWED_ORIGINS",
		"database.host":                    "DATABASE_HOST",
		"database.port":                    "DATABASE_PORT",
		"database.name":                    "POSTGRES_DB",
		"database.user":                    "POSTGRES_USER",
		"database.password":                "POSTGRES_PASSWORD",
		"database.sslmode":                 "DATABASE_SSLMODE",
		"redis.host":                       "REDIS_HOST",
		"redis.port":                       "REDIS_PORT",
		"minio.endpoint":                   "MINIO_ENDPOINT",
		"minio.public_endpoint":            "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":              "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":          "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                    "MINIO_USE_SSL",
		"minio.region":                     "MINIO_REGION",
		"minio.bucket":                     "MINIO_BUCKET",
		"minio.bucket_lookup":              "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":         "MINIO_AUTO_CREATE_BUCKET",
		"auth.private_key_path":            "JWT_PRIVATE_KEY_PATH",
		"auth.public_key_path":             "JWT_PUBLIC_KEY_PATH",
		"auth.access_ttl_minutes":          "JWT_ACCESS_TTL_MINUTES",
		"auth.refresh_ttl_hours":           "JWT_REFRESH_TTL_HOURS",
		"clamd.addr":                       "CLAMD_ADDR",
		"limits.max_drafts":                "LIMIT_MAX_DRAFTS",
		"limits.asset_max_bytes":           "LIMIT_ASSET_MAX_BYTES",
		"limits.assets_per_user":           "LIMIT_ASSETS_PER_USER",
		"limits.asset_uploads_per_day":     "LIMIT_ASSET_UPLOADS_PER_DAY",
		"limits.login_rate_limit_per_hour": "LIMIT_LOGIN_RATE_PER_HOUR",
		"limits.login_lock_threshold":      "LIMIT_LOGIN_LOCK_THRESHOLD",
		"limits.login_lock_ttl_minutes":    "LIMIT_LOGIN_LOCK_TTL_MINUTES",
		"worker.concurrency":               "WORKER_CONCURRENCY",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Auth.PrivateKeyPath == "" {
		return errors.New("jwt private key path is required")
	}
	if cfg.Auth.PublicKeyPath == "" {
		return errors.New("jwt public key path is required")
	}
	if cfg.Auth.AccessTTLMin <= 0 {
		return errors.New("jwt access ttl must be positive")
	}
	if cfg.Auth.RefreshTTLHours <= 0 {
		return errors.New("jwt refresh ttl must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}
