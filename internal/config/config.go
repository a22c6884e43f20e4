package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`     // 服务器配置
	Postgres  PostgresConfig  `mapstructure:"postgres"`   // PostgreSQL配置
	Redis     RedisConfig     `mapstructure:"redis"`      // Redis配置（令牌刷新分布式锁）
	Google    GoogleConfig    `mapstructure:"google"`     // Google API 与 OAuth 配置
	Sync      SyncConfig      `mapstructure:"sync"`       // 同步调度配置
	AutoReply AutoReplyConfig `mapstructure:"auto_reply"` // 自动回复协作方
	Reply     ReplyConfig     `mapstructure:"reply"`      // 手动/批量回复
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`             // 服务端口
	Mode            string        `mapstructure:"mode"`             // Gin运行模式：debug/release/test
	Pprof           bool          `mapstructure:"pprof"`            // 是否注册 pprof
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // 优雅退出等待时间
	LogLevel        string        `mapstructure:"log_level"`        // logrus 级别
	LogFormat       string        `mapstructure:"log_format"`       // text/json
}

// PostgresConfig PostgreSQL数据库配置
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL 形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // GORM日志级别：silent/error/warn/info
	AutoMigrate     bool          `mapstructure:"auto_migrate"`      // 启动时是否 AutoMigrate
}

// RedisConfig Redis配置，未启用时令牌刷新只做进程内去重
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GoogleConfig Google OAuth 客户端与各 API 基础地址
type GoogleConfig struct {
	ClientID             string `mapstructure:"client_id"`
	ClientSecret         string `mapstructure:"client_secret"`
	TokenURL             string `mapstructure:"token_url"`              // 为空时使用 google.Endpoint
	AccountManagementURL string `mapstructure:"account_management_url"` // mybusinessaccountmanagement v1
	BusinessInfoURL      string `mapstructure:"business_info_url"`      // mybusinessbusinessinformation v1
	MyBusinessURL        string `mapstructure:"my_business_url"`        // mybusiness v4（评论/媒体/回复）
	PerformanceURL       string `mapstructure:"performance_url"`        // businessprofileperformance v1
	Timeout              int    `mapstructure:"timeout"`                // 请求超时（秒）
	Proxy                string `mapstructure:"proxy"`                  // 代理地址
	LocationsPageSize    int    `mapstructure:"locations_page_size"`
	ReviewsPageSize      int    `mapstructure:"reviews_page_size"`
	MediaPageSize        int    `mapstructure:"media_page_size"`
	KeywordsPageSize     int    `mapstructure:"keywords_page_size"`
}

// SyncConfig 同步调度配置
type SyncConfig struct {
	Cron          string        `mapstructure:"cron"`           // 定时同步Cron表达式，为空则不启用
	Timezone      string        `mapstructure:"timezone"`       // Cron 时区，为空为 UTC
	CronSyncType  string        `mapstructure:"cron_sync_type"` // 定时任务使用的同步类型
	CronSecret    string        `mapstructure:"cron_secret"`    // 内部触发共享密钥（X-Cron-Secret）
	Concurrency   int           `mapstructure:"concurrency"`    // 单账号内按门店并发数
	MaxPages      int           `mapstructure:"max_pages"`      // full 同步单资源最大页数保护
	MetricsDays   int           `mapstructure:"metrics_days"`   // 每日指标窗口（天）
	KeywordMonths int           `mapstructure:"keyword_months"` // 关键词窗口（月）
	Timeout       time.Duration `mapstructure:"timeout"`        // 单账号同步超时
}

// AutoReplyConfig 新评论自动回复协作方
type AutoReplyConfig struct {
	URL       string        `mapstructure:"url"`        // 为空则不投递
	Workers   int           `mapstructure:"workers"`    // 后台 worker 数
	QueueSize int           `mapstructure:"queue_size"` // 队列容量，满时丢弃并告警
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ReplyConfig 回复配置
type ReplyConfig struct {
	Interval time.Duration `mapstructure:"interval"` // 批量回复间隔
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	return load(v)
}

// LoadConfigFile 从指定文件加载（测试与命令行 --config 使用）
func LoadConfigFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// 2. 读取 config.yaml（文件不存在时使用默认值）
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.pprof", true)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "text")

	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)
	v.SetDefault("postgres.log_level", "warn")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("google.account_management_url", "https://mybusinessaccountmanagement.googleapis.com/v1")
	v.SetDefault("google.business_info_url", "https://mybusinessbusinessinformation.googleapis.com/v1")
	v.SetDefault("google.my_business_url", "https://mybusiness.googleapis.com/v4")
	v.SetDefault("google.performance_url", "https://businessprofileperformance.googleapis.com/v1")
	v.SetDefault("google.timeout", 30)
	v.SetDefault("google.locations_page_size", 100)
	v.SetDefault("google.reviews_page_size", 50)
	v.SetDefault("google.media_page_size", 100)
	v.SetDefault("google.keywords_page_size", 100)

	v.SetDefault("sync.cron_sync_type", "incremental")
	v.SetDefault("sync.concurrency", 1)
	v.SetDefault("sync.max_pages", 200)
	v.SetDefault("sync.metrics_days", 30)
	v.SetDefault("sync.keyword_months", 3)
	v.SetDefault("sync.timeout", 15*time.Minute)

	v.SetDefault("auto_reply.workers", 2)
	v.SetDefault("auto_reply.queue_size", 256)
	v.SetDefault("auto_reply.timeout", 30*time.Second)

	v.SetDefault("reply.interval", 500*time.Millisecond)
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Google.ClientSecret = v
	}
	if v := os.Getenv("GOOGLE_PROXY"); v != "" {
		cfg.Google.Proxy = v
	}
	if v := os.Getenv("SYNC_CRON_SECRET"); v != "" {
		cfg.Sync.CronSecret = v
	}
	if v := os.Getenv("AUTO_REPLY_URL"); v != "" {
		cfg.AutoReply.URL = v
	}
}
