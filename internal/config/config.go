// Package config provides YAML-based configuration loading for cmms.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration, loaded from cmms.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Notify   NotifyConfig   `yaml:"notify"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Mode            string        `yaml:"mode"` // release, debug
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the GORM driver. DSN wins over the discrete fields.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite, mysql
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Issuer    string        `yaml:"issuer"`
}

// RedisConfig points at the token revocation store. Empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// UploadsConfig selects where work order photos are kept.
type UploadsConfig struct {
	Driver   string      `yaml:"driver"` // local, minio
	Dir      string      `yaml:"dir"`
	MaxBytes int64       `yaml:"max_bytes"`
	MinIO    MinIOConfig `yaml:"minio"`
}

// MinIOConfig holds object storage credentials.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// NotifyConfig enables outbound chat notifications.
type NotifyConfig struct {
	Slack   ChatConfig `yaml:"slack"`
	Discord ChatConfig `yaml:"discord"`
}

// ChatConfig is a bot token plus the channel to post into.
type ChatConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether the chat platform is configured.
func (c ChatConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// Load reads a YAML config file from path and returns a validated Config.
// A missing file is not an error: defaults and environment overrides apply.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		data = nil
	}
	return parse(data, os.Getenv)
}

// Parse unmarshals YAML bytes into a validated Config, ignoring the environment.
func Parse(data []byte) (*Config, error) {
	return parse(data, func(string) string { return "" })
}

func parse(data []byte, getenv func(string) string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv(getenv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays CMMS_* environment variables.
func (c *Config) applyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("CMMS_SERVER_MODE", &c.Server.Mode)
	str("CMMS_DB_DRIVER", &c.Database.Driver)
	str("CMMS_DB_DSN", &c.Database.DSN)
	str("CMMS_DB_HOST", &c.Database.Host)
	str("CMMS_DB_USER", &c.Database.User)
	str("CMMS_DB_PASSWORD", &c.Database.Password)
	str("CMMS_DB_NAME", &c.Database.Name)
	str("CMMS_JWT_SECRET", &c.Auth.JWTSecret)
	str("CMMS_REDIS_ADDR", &c.Redis.Addr)
	str("CMMS_REDIS_PASSWORD", &c.Redis.Password)
	str("CMMS_UPLOADS_DRIVER", &c.Uploads.Driver)
	str("CMMS_UPLOADS_DIR", &c.Uploads.Dir)
	str("CMMS_MINIO_ENDPOINT", &c.Uploads.MinIO.Endpoint)
	str("CMMS_MINIO_ACCESS_KEY", &c.Uploads.MinIO.AccessKey)
	str("CMMS_MINIO_SECRET_KEY", &c.Uploads.MinIO.SecretKey)
	str("CMMS_MINIO_BUCKET", &c.Uploads.MinIO.Bucket)
	str("CMMS_SLACK_TOKEN", &c.Notify.Slack.BotToken)
	str("CMMS_SLACK_CHANNEL", &c.Notify.Slack.ChannelID)
	str("CMMS_DISCORD_TOKEN", &c.Notify.Discord.BotToken)
	str("CMMS_DISCORD_CHANNEL", &c.Notify.Discord.ChannelID)
	str("CMMS_LOG_LEVEL", &c.Log.Level)
	str("CMMS_LOG_FORMAT", &c.Log.Format)

	if v := getenv("CMMS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := getenv("CMMS_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.DSN == "" {
			c.Database.DSN = "cmms.db"
		}
	case "mysql":
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.Name == "" {
			c.Database.Name = "cmms"
		}
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 12 * time.Hour
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "cmms"
	}
	if c.Uploads.Driver == "" {
		c.Uploads.Driver = "local"
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "static/uploads"
	}
	if c.Uploads.MaxBytes == 0 {
		c.Uploads.MaxBytes = 16 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.Mode != "release" && c.Server.Mode != "debug" {
		errs = append(errs, fmt.Sprintf("server.mode %q must be release or debug", c.Server.Mode))
	}
	switch c.Database.Driver {
	case "sqlite":
	case "mysql":
		if c.Database.DSN == "" && c.Database.User == "" {
			errs = append(errs, "database.user is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "auth.jwt_secret is required")
	}
	switch c.Uploads.Driver {
	case "local":
	case "minio":
		if c.Uploads.MinIO.Endpoint == "" {
			errs = append(errs, "uploads.minio.endpoint is required")
		}
		if c.Uploads.MinIO.Bucket == "" {
			errs = append(errs, "uploads.minio.bucket is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("uploads.driver %q must be local or minio", c.Uploads.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
