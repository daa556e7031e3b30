package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Tenant    TenantConfig    `mapstructure:"tenant"`
	ERP       ERPConfig       `mapstructure:"erp"`
	Seed      SeedConfig      `mapstructure:"seed"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// IsDev 是否为开发环境
func (c AppConfig) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

// IsProd 是否为生产环境
func (c AppConfig) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"readTimeout"`
	WriteTimeout int      `mapstructure:"writeTimeout"`
	AllowOrigins []string `mapstructure:"allowOrigins"`
}

// Addr 监听地址
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Database     string `mapstructure:"database"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Charset      string `mapstructure:"charset"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	LogLevel     string `mapstructure:"logLevel"`
	AutoMigrate  bool   `mapstructure:"autoMigrate"`
}

// DSN 生成数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
			c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.Username, c.Password, c.Database)
	case "sqlite":
		if c.Database == "" {
			return ":memory:"
		}
		return c.Database
	default:
		return ""
	}
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"poolSize"`
	Mode     string `mapstructure:"mode"` // standalone 外部 Redis，memory 内存模式
}

// Addr 获取Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
	Expire int64  `mapstructure:"expire"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAge     int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// TenantConfig 租户配置
type TenantConfig struct {
	DefaultKey string `mapstructure:"defaultKey"`
}

// ERPConfig 外部ERP配置
type ERPConfig struct {
	URL           string        `mapstructure:"url"`
	DB            string        `mapstructure:"db"`
	UID           int64         `mapstructure:"uid"`
	Password      string        `mapstructure:"password"`
	Timeout       time.Duration `mapstructure:"timeout"`
	PriceCacheTTL time.Duration `mapstructure:"priceCacheTTL"`
}

// Enabled 是否配置了ERP
func (c ERPConfig) Enabled() bool {
	return c.URL != ""
}

// SeedConfig 初始数据配置
type SeedConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AdminEmail    string `mapstructure:"adminEmail"`
	AdminPassword string `mapstructure:"adminPassword"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Max        int           `mapstructure:"max"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// Load 加载配置文件
// configPath 为空时按约定目录查找 config.yaml
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.AddConfigPath(filepath.Dir(configPath))
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = v.GetString("app.env")
	}
	if env != "" && env != "default" {
		if err := mergeEnv(v, configPath, env); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	resolveEnvVars(cfg)
	return cfg, nil
}

// mergeEnv 合并环境配置，文件不存在时忽略
func mergeEnv(v *viper.Viper, configPath, env string) error {
	name := fmt.Sprintf("config.%s", env)
	if configPath != "" {
		path := filepath.Join(filepath.Dir(configPath), name+filepath.Ext(configPath))
		if _, err := os.Stat(path); err != nil {
			return nil
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(name)
	}

	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to merge env config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "portal")
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.readTimeout", 30)
	v.SetDefault("server.http.writeTimeout", 30)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.maxOpenConns", 100)
	v.SetDefault("database.logLevel", "warn")
	v.SetDefault("redis.mode", "memory")
	v.SetDefault("jwt.issuer", "portal")
	v.SetDefault("jwt.expire", 86400)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "console")
	v.SetDefault("tenant.defaultKey", "default")
	v.SetDefault("erp.timeout", 10*time.Second)
	v.SetDefault("erp.priceCacheTTL", 5*time.Minute)
	v.SetDefault("rateLimit.max", 100)
	v.SetDefault("rateLimit.expiration", time.Minute)
}

// resolveEnvVars 解析环境变量占位符
func resolveEnvVars(cfg *Config) {
	cfg.Database.Host = resolveEnvVar(cfg.Database.Host)
	cfg.Database.Username = resolveEnvVar(cfg.Database.Username)
	cfg.Database.Password = resolveEnvVar(cfg.Database.Password)
	cfg.Database.Database = resolveEnvVar(cfg.Database.Database)
	cfg.Redis.Host = resolveEnvVar(cfg.Redis.Host)
	cfg.Redis.Password = resolveEnvVar(cfg.Redis.Password)
	cfg.JWT.Secret = resolveEnvVar(cfg.JWT.Secret)
	cfg.ERP.URL = resolveEnvVar(cfg.ERP.URL)
	cfg.ERP.Password = resolveEnvVar(cfg.ERP.Password)
	cfg.Seed.AdminPassword = resolveEnvVar(cfg.Seed.AdminPassword)
}

// resolveEnvVar 解析单个环境变量，未设置的占位符解析为空
func resolveEnvVar(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envKey := strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}")
		return os.Getenv(envKey)
	}
	return value
}
