package client

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 客户端启动配置，来源为可选的 miniworld.yaml（命令行参数可覆盖关键项）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Window   WindowConfig   `mapstructure:"window"`
	World    WorldConfig    `mapstructure:"world"`
	LogFile  string         `mapstructure:"log_file"`
	Debug    DebugConfig    `mapstructure:"debug"`
	Username string         `mapstructure:"username"`
	Backoff  ReconnectRules `mapstructure:"reconnect"`
}

type ServerConfig struct {
	// URL 为 WebSocket 接入点，如 ws://localhost:8080/ws
	URL string `mapstructure:"url"`
	// HandshakeTimeoutMs 拨号握手超时（毫秒）
	HandshakeTimeoutMs int `mapstructure:"handshake_timeout_ms"`
}

type WindowConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type WorldConfig struct {
	// Image 世界底图的固定资源名，按服务器基地址拼接为 HTTP URL 拉取
	Image string `mapstructure:"image"`
	// Width/Height 底图的既定尺寸；拉取失败时仍按该尺寸约束镜头
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type DebugConfig struct {
	// Addr 本地诊断 HTTP 服务监听地址，空则不启动
	Addr string `mapstructure:"addr"`
	// Verbose 启动即开启 Debug 级别日志
	Verbose bool `mapstructure:"verbose"`
}

// ReconnectRules 断线重连规则：线性退避 base*attempt，超过 MaxAttempts 即终止
type ReconnectRules struct {
	BaseDelayMs int `mapstructure:"base_delay_ms"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

// HandshakeTimeout 返回拨号握手超时时长
func (c ServerConfig) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMs) * time.Millisecond
}

// BaseDelay 返回重连退避基准时长
func (r ReconnectRules) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// LoadConfig 读取配置文件并套用默认值；文件缺失不算错误，格式损坏才报错
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("miniworld")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
	}

	v.SetDefault("server.url", "ws://localhost:8080/ws")
	v.SetDefault("server.handshake_timeout_ms", 5000)
	v.SetDefault("window.width", 1024)
	v.SetDefault("window.height", 768)
	v.SetDefault("world.image", "world.jpg")
	v.SetDefault("world.width", 2048)
	v.SetDefault("world.height", 2048)
	v.SetDefault("log_file", "miniworld.log")
	v.SetDefault("debug.addr", "")
	v.SetDefault("debug.verbose", false)
	v.SetDefault("username", "")
	v.SetDefault("reconnect.base_delay_ms", 2000)
	v.SetDefault("reconnect.max_attempts", 5)

	if err := v.ReadInConfig(); err != nil {
		// 工作目录里找不到文件就全部走默认值；文件损坏或显式路径读不到仍然报错
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
