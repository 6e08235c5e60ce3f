// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 基础配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 管理接口限流
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	// 通知派发配置
	Notification NotificationConfig `mapstructure:"notification"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒），需大于批量派发耗时
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：mysql, sqlite
	Driver string `mapstructure:"driver"`
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用 SQL 日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
	// 启动时自动建表
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// RedisConfig Redis 配置，Host 为空时不使用 Redis
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	MaxPoolSize  int    `mapstructure:"max_pool_size"`
	ConnTimeout  int    `mapstructure:"conn_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// KafkaConfig Kafka 配置，Brokers 为空时不发布事件
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 管理接口限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 每分钟请求数
	PerMinute int `mapstructure:"per_minute"`
}

// NotificationConfig 通知派发配置
type NotificationConfig struct {
	// 是否启用外发
	Enabled bool `mapstructure:"enabled"`
	// 网关实例/默认通知目标
	DefaultTarget string `mapstructure:"default_target"`
	// 网关凭证
	Token string `mapstructure:"token"`
	// 网关地址
	Endpoint string `mapstructure:"endpoint"`
	// 使用模拟网关，不发出真实请求
	Simulate bool `mapstructure:"simulate"`
	// 国家区号
	CountryCode string `mapstructure:"country_code"`
	// 用户号码位数
	SubscriberDigits int `mapstructure:"subscriber_digits"`
	// 相邻两次发送最小间隔
	ThrottleInterval time.Duration `mapstructure:"throttle_interval"`
	// 单次发送超时
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	// 批量派发并发数
	Workers int `mapstructure:"workers"`
	// 通知事件 topic
	EventsTopic string `mapstructure:"events_topic"`
	// 批量派发锁过期时间
	CampaignLockTTL time.Duration `mapstructure:"campaign_lock_ttl"`
	// 失败重试扫描间隔，0 表示关闭
	RetrySweepInterval time.Duration `mapstructure:"retry_sweep_interval"`
	// 失败记录进入重试前的静置时间
	RetryMinAge time.Duration `mapstructure:"retry_min_age"`
	// 每轮重试条数
	RetrySweepBatch int `mapstructure:"retry_sweep_batch"`
	// 网关熔断
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig 熔断配置
type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// Load 从 TOML 文件加载配置，文件缺失时使用默认值，支持 APP_ 前缀环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// 自动绑定环境变量（使用 _ 替代 .）
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required for %s driver", c.Database.Driver)
	}
	n := c.Notification
	if n.CountryCode == "" || strings.Trim(n.CountryCode, "0123456789") != "" {
		return fmt.Errorf("invalid notification.country_code: %q", n.CountryCode)
	}
	if n.SubscriberDigits <= 0 {
		return fmt.Errorf("invalid notification.subscriber_digits: %d", n.SubscriberDigits)
	}
	if n.ThrottleInterval < 0 {
		return fmt.Errorf("notification.throttle_interval must not be negative")
	}
	if n.ThrottleInterval == 0 && !n.Simulate {
		return fmt.Errorf("notification.throttle_interval must be positive unless notification.simulate is set")
	}
	if n.Enabled && !n.Simulate && n.Endpoint == "" {
		return fmt.Errorf("notification.endpoint is required unless notification.simulate is set")
	}
	if n.SendTimeout <= 0 {
		return fmt.Errorf("notification.send_timeout must be positive")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "payroll-notification")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 600)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:notification.db?cache=shared")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.write_timeout", 5)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.per_minute", 60)

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.default_target", "")
	v.SetDefault("notification.token", "")
	v.SetDefault("notification.endpoint", "")
	v.SetDefault("notification.simulate", false)
	v.SetDefault("notification.country_code", "212")
	v.SetDefault("notification.subscriber_digits", 9)
	v.SetDefault("notification.throttle_interval", "1s")
	v.SetDefault("notification.send_timeout", "30s")
	v.SetDefault("notification.workers", 1)
	v.SetDefault("notification.events_topic", "payroll.notification.events")
	v.SetDefault("notification.campaign_lock_ttl", "30m")
	v.SetDefault("notification.retry_sweep_interval", "0s")
	v.SetDefault("notification.retry_min_age", "5m")
	v.SetDefault("notification.retry_sweep_batch", 50)
	v.SetDefault("notification.breaker.max_requests", 1)
	v.SetDefault("notification.breaker.interval", "60s")
	v.SetDefault("notification.breaker.timeout", "30s")
	v.SetDefault("notification.breaker.consecutive_failures", 5)
}
