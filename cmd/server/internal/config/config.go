package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 统一配置结构
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Log      LogConfig
	Security SecurityConfig
	Report   ReportConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Env  string `yaml:"env"`  // dev, staging, production
	Port string `yaml:"port"`
}

// DataConfig 数据目录配置
type DataConfig struct {
	Dir          string `yaml:"dir"`
	UsersDir     string `yaml:"users_dir"`
	AuditLogsDir string `yaml:"audit_logs_dir"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // 非空时同时写入滚动日志文件
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWTSecret            string `yaml:"jwt_secret"`
	AdminDefaultPassword string `yaml:"admin_default_password"`
}

// ReportConfig 报表相关配置
type ReportConfig struct {
	// MaxFeedUpdates 单次任务聚合读取的 update 上限，防止无界查询
	MaxFeedUpdates int `yaml:"max_feed_updates"`
}

// fileOverlay CONFIG_FILE 指向的 YAML 覆盖文件结构
type fileOverlay struct {
	Server   ServerConfig   `yaml:"server"`
	Data     DataConfig     `yaml:"data"`
	Log      LogConfig      `yaml:"log"`
	Security SecurityConfig `yaml:"security"`
	Report   ReportConfig   `yaml:"report"`
}

// LoadConfig 从环境变量加载配置，CONFIG_FILE 存在时先以 YAML 文件为底
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Env:  getEnv("ENV", "dev"),
			Port: getEnv("PORT", "8000"),
		},
		Data: DataConfig{
			Dir:          getEnv("DATA_DIR", "./data"),
			UsersDir:     getEnv("USERS_DIR", "./users"),
			AuditLogsDir: getEnv("AUDIT_LOGS_DIR", "./audit_logs"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Security: SecurityConfig{
			JWTSecret:            getEnv("USER_JWT_SECRET", ""),
			AdminDefaultPassword: getEnv("ADMIN_DEFAULT_PASSWORD", ""),
		},
		Report: ReportConfig{
			MaxFeedUpdates: getEnvInt("MAX_FEED_UPDATES", 100),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyOverlay(cfg, path); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	return cfg, nil
}

// applyOverlay 读取 YAML 文件并覆盖未被环境变量显式设置的字段
func applyOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}

	// 环境变量优先，文件只填补空位
	if os.Getenv("ENV") == "" && overlay.Server.Env != "" {
		cfg.Server.Env = overlay.Server.Env
	}
	if os.Getenv("PORT") == "" && overlay.Server.Port != "" {
		cfg.Server.Port = overlay.Server.Port
	}
	if os.Getenv("DATA_DIR") == "" && overlay.Data.Dir != "" {
		cfg.Data.Dir = overlay.Data.Dir
	}
	if os.Getenv("USERS_DIR") == "" && overlay.Data.UsersDir != "" {
		cfg.Data.UsersDir = overlay.Data.UsersDir
	}
	if os.Getenv("AUDIT_LOGS_DIR") == "" && overlay.Data.AuditLogsDir != "" {
		cfg.Data.AuditLogsDir = overlay.Data.AuditLogsDir
	}
	if os.Getenv("LOG_LEVEL") == "" && overlay.Log.Level != "" {
		cfg.Log.Level = overlay.Log.Level
	}
	if os.Getenv("LOG_FILE") == "" && overlay.Log.File != "" {
		cfg.Log.File = overlay.Log.File
	}
	if os.Getenv("USER_JWT_SECRET") == "" && overlay.Security.JWTSecret != "" {
		cfg.Security.JWTSecret = overlay.Security.JWTSecret
	}
	if os.Getenv("ADMIN_DEFAULT_PASSWORD") == "" && overlay.Security.AdminDefaultPassword != "" {
		cfg.Security.AdminDefaultPassword = overlay.Security.AdminDefaultPassword
	}
	if os.Getenv("MAX_FEED_UPDATES") == "" && overlay.Report.MaxFeedUpdates > 0 {
		cfg.Report.MaxFeedUpdates = overlay.Report.MaxFeedUpdates
	}
	return nil
}

// ValidateConfig 验证配置的有效性
func ValidateConfig(cfg *Config) error {
	var errors []string

	// 1. JWT Secret 验证
	if cfg.Security.JWTSecret == "" {
		errors = append(errors, "USER_JWT_SECRET is required")
	} else if len(cfg.Security.JWTSecret) < 32 {
		errors = append(errors, "USER_JWT_SECRET must be at least 32 characters long")
	}

	// 2. 生产环境必须配置管理员密码
	if cfg.Server.Env == "production" {
		if cfg.Security.AdminDefaultPassword == "" {
			errors = append(errors, "ADMIN_DEFAULT_PASSWORD is required in production environment")
		}
		if cfg.Security.AdminDefaultPassword == "admin123" ||
			cfg.Security.AdminDefaultPassword == "changeme" {
			errors = append(errors, "ADMIN_DEFAULT_PASSWORD cannot be a weak/default password in production")
		}
		if cfg.Security.AdminDefaultPassword != "" && len(cfg.Security.AdminDefaultPassword) < 8 {
			errors = append(errors, "ADMIN_DEFAULT_PASSWORD must be at least 8 characters long in production")
		}
	}

	// 3. 端口验证
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid PORT value: %s (must be 1-65535)", cfg.Server.Port))
	}

	// 4. 日志级别验证
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %s (must be: debug, info, warn, error)", cfg.Log.Level))
	}

	// 5. 环境验证
	validEnvs := map[string]bool{"dev": true, "development": true, "staging": true, "production": true}
	if !validEnvs[cfg.Server.Env] {
		errors = append(errors, fmt.Sprintf("invalid ENV: %s (must be: dev, development, staging, production)", cfg.Server.Env))
	}

	// 6. 聚合上限验证
	if cfg.Report.MaxFeedUpdates < 1 {
		errors = append(errors, fmt.Sprintf("invalid MAX_FEED_UPDATES: %d (must be >= 1)", cfg.Report.MaxFeedUpdates))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsProduction 判断是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetServerAddr 获取服务器监听地址
func (c *Config) GetServerAddr() string {
	return ":" + c.Server.Port
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整数环境变量，解析失败时返回默认值
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
