package config

import (
	"github.com/blues/dps/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Task     TaskConfig     `mapstructure:"task"`
	Receipt  ReceiptConfig  `mapstructure:"receipt"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// StripeConfig 支付网关配置
type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`     // API密钥
	WebhookSecret string `mapstructure:"webhook_secret"` // webhook签名密钥
	Currency      string `mapstructure:"currency"`       // 部署固定币种
	SuccessURL    string `mapstructure:"success_url"`    // 支付成功跳转地址
	CancelURL     string `mapstructure:"cancel_url"`     // 支付取消跳转地址
}

// StorageConfig 对象存储配置
type StorageConfig struct {
	Bucket string `mapstructure:"bucket"` // S3桶名
	Region string `mapstructure:"region"` // 区域
}

// AuthConfig 鉴权配置
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"` // JWT签名密钥
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

// ReceiptConfig 收据生成配置
type ReceiptConfig struct {
	PoolSize   int `mapstructure:"pool_size"`   // 协程池大小
	MaxRetries int `mapstructure:"max_retries"` // 单次任务最大重试次数
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/dps")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "donation")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("stripe.currency", "lkr")
	viper.SetDefault("stripe.success_url", "http://localhost:5173/success?session_id={CHECKOUT_SESSION_ID}")
	viper.SetDefault("stripe.cancel_url", "http://localhost:5173/cancel")
	viper.SetDefault("storage.bucket", "donation-assets")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("task.interval", 300)
	viper.SetDefault("receipt.pool_size", 4)
	viper.SetDefault("receipt.max_retries", 3)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
