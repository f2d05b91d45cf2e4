package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	speechmodel "github.com/zhouzirui/linguabot/backend/internal/model/speech"
	"github.com/zhouzirui/linguabot/backend/internal/service/widget"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Widget  widget.Config `envPrefix:"WIDGET_"`
	Session SessionConfig
	Speech  speechmodel.SpeechConfig `envPrefix:"SPEECH_"`
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// LogConfig 日志级别与输出格式（json 或 console）。
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// SessionConfig 会话注册表配置
type SessionConfig struct {
	TTL            time.Duration `env:"WIDGET_SESSION_TTL" envDefault:"24h"`
	SweepInterval  time.Duration `env:"WIDGET_SWEEP_INTERVAL" envDefault:"1m"`
	ResizeDebounce time.Duration `env:"WIDGET_RESIZE_DEBOUNCE" envDefault:"100ms"`
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	addr, err := loadServerAddr()
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if cfg.Session.TTL <= 0 {
		return nil, fmt.Errorf("invalid WIDGET_SESSION_TTL value %q", cfg.Session.TTL)
	}
	return cfg, nil
}

// loadServerAddr 解析服务器监听地址。
func loadServerAddr() (string, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}
