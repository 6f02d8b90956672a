package config

import (
	"errors"
	"fmt"
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
	Upload   UploadConfig   `mapstructure:"upload"`
	Mail     MailConfig     `mapstructure:"mail"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
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

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string        `mapstructure:"endpoint"`
	AccessKeyID      string        `mapstructure:"access_key_id"`
	SecretAccessKey  string        `mapstructure:"secret_access_key"`
	UseSSL           bool          `mapstructure:"use_ssl"`
	Region           string        `mapstructure:"region"`
	AutoCreateBucket bool          `mapstructure:"auto_create_bucket"`
	Buckets          BucketsConfig `mapstructure:"buckets"`
}

// BucketsConfig 按文件类别划分对象存储 Bucket。
// Fallback 承接未识别类别的对象。
type BucketsConfig struct {
	Resumes         string `mapstructure:"resumes"`
	JobDescriptions string `mapstructure:"job_descriptions"`
	Recordings      string `mapstructure:"recordings"`
	Fallback        string `mapstructure:"fallback"`
}

// All returns every configured bucket name, fallback included.
func (b BucketsConfig) All() []string {
	return []string{b.Resumes, b.JobDescriptions, b.Recordings, b.Fallback}
}

// AuthConfig contains signing key locations and token lifetime.
// Secret material is always passed in explicitly; nothing is read from
// ambient global state.
type AuthConfig struct {
	PrivateKeyFile string        `mapstructure:"private_key_file"`
	PublicKeyFile  string        `mapstructure:"public_key_file"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
}

// UploadConfig contains file upload limits.
type UploadConfig struct {
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// MailConfig contains outbound email settings for the worker.
type MailConfig struct {
	ResendAPIKey  string `mapstructure:"resend_api_key"`
	FromAddress   string `mapstructure:"from_address"`
	VerifyBaseURL string `mapstructure:"verify_base_url"`
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

// Addr returns the host:port pair for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
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
	v.SetDefault("database.name", "interprep")
	v.SetDefault("database.user", "interprep")
	v.SetDefault("database.password", "interprep")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("minio.buckets.resumes", "user-resumes")
	v.SetDefault("minio.buckets.job_descriptions", "job-descriptions")
	v.SetDefault("minio.buckets.recordings", "interview-recordings")
	v.SetDefault("minio.buckets.fallback", "temp-uploads")
	v.SetDefault("auth.private_key_file", "keys/jwt.pem")
	v.SetDefault("auth.public_key_file", "keys/jwt.pub.pem")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("upload.max_file_size", int64(10*1024*1024))
	v.SetDefault("mail.from_address", "no-reply@interprep.local")
	v.SetDefault("mail.verify_base_url", "http://localhost:8080/v1/auth/verify")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                       "API_PORT",
		"database.host":                  "DATABASE_HOST",
		"database.port":                  "DATABASE_PORT",
		"database.name":                  "POSTGRES_DB",
		"database.user":                  "POSTGRES_USER",
		"database.password":              "POSTGRES_PASSWORD",
		"database.sslmode":               "DATABASE_SSLMODE",
		"redis.host":                     "REDIS_HOST",
		"redis.port":                     "REDIS_PORT",
		"minio.endpoint":                 "MINIO_ENDPOINT",
		"minio.access_key_id":            "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":        "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                  "MINIO_USE_SSL",
		"minio.region":                   "MINIO_REGION",
		"minio.auto_create_bucket":       "MINIO_AUTO_CREATE_BUCKET",
		"minio.buckets.resumes":          "MINIO_BUCKET_RESUMES",
		"minio.buckets.job_descriptions": "MINIO_BUCKET_JOB_DESCRIPTIONS",
		"minio.buckets.recordings":       "MINIO_BUCKET_RECORDINGS",
		"minio.buckets.fallback":         "MINIO_BUCKET_FALLBACK",
		"auth.private_key_file":          "AUTH_PRIVATE_KEY_FILE",
		"auth.public_key_file":           "AUTH_PUBLIC_KEY_FILE",
		"auth.token_ttl":                 "AUTH_TOKEN_TTL",
		"upload.max_file_size":           "UPLOAD_MAX_FILE_SIZE",
		"mail.resend_api_key":            "MAIL_RESEND_API_KEY",
		"mail.from_address":              "MAIL_FROM_ADDRESS",
		"mail.verify_base_url":           "MAIL_VERIFY_BASE_URL",
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
	for _, bucket := range cfg.MinIO.Buckets.All() {
		if bucket == "" {
			return errors.New("every minio bucket name is required")
		}
	}
	if cfg.Auth.PrivateKeyFile == "" {
		return errors.New("auth private key file is required")
	}
	if cfg.Auth.PublicKeyFile == "" {
		return errors.New("auth public key file is required")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return errors.New("auth token ttl must be positive")
	}
	if cfg.Upload.MaxFileSize <= 0 {
		return errors.New("upload max file size must be positive")
	}
	return nil
}
