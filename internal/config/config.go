// Package config 加载 TOML 配置，并允许 .env / 环境变量覆盖敏感项
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// MainConfig 应用基本信息
type MainConfig struct {
	AppName string `toml:"appName"`
	Mode    string `toml:"mode"` // dev | release
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	TLS     bool   `toml:"tls"` // 开启后强制 https 跳转
}

// DatabaseConfig 关系库连接配置，Driver 取 mysql / postgres / sqlite
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
	SqlitePath   string `toml:"sqlitePath"`
	MaxOpenConns int    `toml:"maxOpenConns"`
	MaxIdleConns int    `toml:"maxIdleConns"`
}

// RedisConfig Enabled=false 时退化为进程内缓存
type RedisConfig struct {
	Enabled      bool   `toml:"enabled"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	Db           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

// CacheConfig 名册和实体缓存的统一 TTL
type CacheConfig struct {
	TTLMinutes int `toml:"ttlMinutes"`
}

func (c CacheConfig) TTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

// LogConfig 日志配置，lumberjack 负责切割
type LogConfig struct {
	LogPath    string `toml:"logPath"`
	FileName   string `toml:"fileName"`
	MaxSize    int    `toml:"maxSize"`    // MB
	MaxBackups int    `toml:"maxBackups"` // 个
	MaxAge     int    `toml:"maxAge"`     // 天
	Level      string `toml:"level"`
}

// KafkaConfig 广播走 kafka 时使用
type KafkaConfig struct {
	HostPort  string `toml:"hostPort"`
	Topic     string `toml:"topic"`
	GroupID   string `toml:"groupId"` // 为空时按节点生成，保证每个节点都收到全量帧
	Partition int    `toml:"partition"`
	Timeout   int    `toml:"timeout"` // 秒
}

// BroadcastConfig Mode 取 channel / kafka / redis
type BroadcastConfig struct {
	Mode         string      `toml:"mode"`
	Workers      int         `toml:"workers"`
	QueueSize    int         `toml:"queueSize"`
	RedisChannel string      `toml:"redisChannel"`
	SendBuffer   int         `toml:"sendBuffer"` // 每个 websocket 连接的发送缓冲
	Kafka        KafkaConfig `toml:"kafka"`
}

type JWTConfig struct {
	Secret            string `toml:"secret"`
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // 分钟
}

type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 0-1023，多节点部署需唯一
}

// RateLimitConfig 按用户限流，RPS<=0 关闭
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// Config 聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`
	DatabaseConfig  `toml:"databaseConfig"`
	RedisConfig     `toml:"redisConfig"`
	CacheConfig     `toml:"cacheConfig"`
	LogConfig       `toml:"logConfig"`
	BroadcastConfig `toml:"broadcastConfig"`
	JWTConfig       `toml:"jwtConfig"`
	SnowflakeConfig `toml:"snowflakeConfig"`
	RateLimitConfig `toml:"rateLimitConfig"`
}

// DefaultPaths 配置文件候选路径，优先本地配置
var DefaultPaths = []string{
	"configs/config_local.toml",
	"configs/config.toml",
	"../../configs/config_local.toml",
	"../../configs/config.toml",
}

var ErrConfigNotFound = errors.New("could not find configuration file in any of the search paths")

// Load 依次尝试 paths，解析第一个存在的文件，然后应用环境变量覆盖
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := Default()
	found := false
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		found = true
		break
	}
	if !found {
		return nil, ErrConfigNotFound
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// Default 单机开发可直接运行的默认值
func Default() *Config {
	return &Config{
		MainConfig:     MainConfig{AppName: "chat_fanout_server", Mode: "dev", Host: "0.0.0.0", Port: 8000},
		DatabaseConfig: DatabaseConfig{Driver: "sqlite", SqlitePath: "./data/chat.db", MaxOpenConns: 50, MaxIdleConns: 10},
		RedisConfig:    RedisConfig{Host: "127.0.0.1", Port: 6379, PoolSize: 50, MinIdleConns: 15},
		CacheConfig:    CacheConfig{TTLMinutes: 30},
		LogConfig:      LogConfig{LogPath: "./logs", Level: "info", MaxSize: 100, MaxBackups: 5, MaxAge: 30},
		BroadcastConfig: BroadcastConfig{
			Mode: "channel", Workers: 8, QueueSize: 1024, RedisChannel: "chat:fanout", SendBuffer: 256,
			Kafka: KafkaConfig{HostPort: "127.0.0.1:9092", Topic: "chat_fanout", Partition: 1, Timeout: 1},
		},
		JWTConfig:       JWTConfig{AccessTokenExpiry: 60 * 24},
		RateLimitConfig: RateLimitConfig{RPS: 20, Burst: 40},
	}
}

// Validate 只检查启动必需项
func (c *Config) Validate() error {
	switch c.DatabaseConfig.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseConfig.Driver)
	}
	switch c.BroadcastConfig.Mode {
	case "channel", "kafka", "redis":
	default:
		return fmt.Errorf("unsupported broadcast mode %q", c.BroadcastConfig.Mode)
	}
	if c.BroadcastConfig.Mode == "redis" && !c.RedisConfig.Enabled {
		return errors.New("broadcast mode redis requires redisConfig.enabled")
	}
	if c.JWTConfig.Secret == "" {
		return errors.New("jwtConfig.secret is empty")
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CHAT_JWT_SECRET"); v != "" {
		c.JWTConfig.Secret = v
	}
	if v := os.Getenv("CHAT_DB_DRIVER"); v != "" {
		c.DatabaseConfig.Driver = v
	}
	if v := os.Getenv("CHAT_DB_HOST"); v != "" {
		c.DatabaseConfig.Host = v
	}
	if v := os.Getenv("CHAT_DB_PASSWORD"); v != "" {
		c.DatabaseConfig.Password = v
	}
	if v := os.Getenv("CHAT_REDIS_HOST"); v != "" {
		c.RedisConfig.Host = v
	}
	if v := os.Getenv("CHAT_REDIS_PASSWORD"); v != "" {
		c.RedisConfig.Password = v
	}
	if v := os.Getenv("CHAT_KAFKA_HOSTPORT"); v != "" {
		c.BroadcastConfig.Kafka.HostPort = v
	}
	if v := os.Getenv("CHAT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MainConfig.Port = port
		}
	}
}
