package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Session    SessionConfig    `mapstructure:"session"`
	OAuth      OAuthConfig      `mapstructure:"oauth"`
	Generation GenerationConfig `mapstructure:"generation"`
	Publishing PublishingConfig `mapstructure:"publishing"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
}

type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Mode     string `mapstructure:"mode"`
	BaseURL  string `mapstructure:"base_url"`
	Timezone string `mapstructure:"timezone"` // 每日配额按该时区的零点重置
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type SessionConfig struct {
	Secret     string `mapstructure:"secret"`
	CookieName string `mapstructure:"cookie_name"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Secure     bool   `mapstructure:"secure"`
}

type OAuthConfig struct {
	Google GoogleOAuthConfig `mapstructure:"google"`
}

type GoogleOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type GenerationConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"` // 用户未提供时使用的默认 key
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type PublishingConfig struct {
	Endpoint       string `mapstructure:"endpoint"` // 为空时使用 Blogger 官方地址
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type RateLimitConfig struct {
	Anonymous AnonymousLimitConfig `mapstructure:"anonymous"`
}

type AnonymousLimitConfig struct {
	Limit         int    `mapstructure:"limit"`
	WindowSeconds int    `mapstructure:"window_seconds"`
	UserAgentLen  int    `mapstructure:"user_agent_len"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

type EncryptionConfig struct {
	Key string `mapstructure:"key"` // 32 字节
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

// SessionMaxAge 会话有效期
func (c SessionConfig) SessionMaxAge() time.Duration {
	if c.MaxAgeDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

// Timeout 生成接口的等待上限
func (c GenerationConfig) Timeout() time.Duration {
	return secondsOrDefault(c.TimeoutSeconds, 50*time.Second)
}

// Timeout 发布接口的等待上限
func (c PublishingConfig) Timeout() time.Duration {
	return secondsOrDefault(c.TimeoutSeconds, 50*time.Second)
}

// Window 匿名限流窗口
func (c AnonymousLimitConfig) Window() time.Duration {
	return secondsOrDefault(c.WindowSeconds, 5*time.Minute)
}

// Location 解析服务器时区，无效时回退到本地时区
func (c ServerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func secondsOrDefault(seconds int, def time.Duration) time.Duration {
	if seconds <= 0 {
		return def
	}
	return time.Duration(seconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("session.cookie_name", "brevity_auth_session")
	v.SetDefault("session.max_age_days", 30)
	v.SetDefault("generation.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("generation.model", "gemini-1.5-pro")
	v.SetDefault("generation.timeout_seconds", 50)
	v.SetDefault("publishing.timeout_seconds", 50)
	v.SetDefault("ratelimit.anonymous.limit", 2)
	v.SetDefault("ratelimit.anonymous.window_seconds", 300)
	v.SetDefault("ratelimit.anonymous.user_agent_len", 32)
	v.SetDefault("ratelimit.anonymous.key_prefix", "ratelimit:anon")
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
