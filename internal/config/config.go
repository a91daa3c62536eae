package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	FrontendURL string           `json:"frontend_url"`
	Database    DatabaseConfig   `json:"database"`
	JWT         JWTConfig        `json:"jwt"`
	Mail        MailConfig       `json:"mail"`
	Scheduler   SchedulerConfig  `json:"scheduler"`
	RateLimit   RateLimitConfig  `json:"rate_limit"`
	FileStore   FileStoreConfig  `json:"file_store"`
	CORSOrigins []string         `json:"cors_origins"`
	LogConfig   logger.LogConfig `json:"log_config"`
}

type DatabaseConfig struct {
	DSN          string `json:"dsn"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Password     string `json:"password"`
	DBName       string `json:"dbname"`
	SSLMode      string `json:"sslmode"`
	MaxOpenConns int    `json:"max_open_conns"`
}

type JWTConfig struct {
	AccessSecret      string `json:"access_secret"`
	RefreshSecret     string `json:"refresh_secret"`
	AccessTTLMinutes  int    `json:"access_ttl_minutes"`
	RefreshTTLHours   int    `json:"refresh_ttl_hours"`
	CookieSecure      bool   `json:"cookie_secure"`
	ResetTokenMinutes int    `json:"reset_token_minutes"`
}

type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
}

type SchedulerConfig struct {
	BatchLimit        int `json:"batch_limit"`
	StartDelaySeconds int `json:"start_delay_seconds"`
}

type RateLimitConfig struct {
	LoginWindowMinutes int `json:"login_window_minutes"`
	LoginMaxAttempts   int `json:"login_max_attempts"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWT.AccessSecret == "" || cfg.JWT.RefreshSecret == "" {
		return nil, fmt.Errorf("jwt.access_secret and jwt.refresh_secret are required")
	}
	if cfg.JWT.AccessSecret == cfg.JWT.RefreshSecret {
		return nil, fmt.Errorf("jwt.access_secret and jwt.refresh_secret must differ")
	}
	if cfg.JWT.AccessTTLMinutes == 0 {
		cfg.JWT.AccessTTLMinutes = 30
	}
	if cfg.JWT.RefreshTTLHours == 0 {
		cfg.JWT.RefreshTTLHours = 24
	}
	if cfg.JWT.ResetTokenMinutes == 0 {
		cfg.JWT.ResetTokenMinutes = 15
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Scheduler.BatchLimit == 0 {
		cfg.Scheduler.BatchLimit = 10
	}
	if cfg.Scheduler.StartDelaySeconds == 0 {
		cfg.Scheduler.StartDelaySeconds = 5
	}
	if cfg.RateLimit.LoginWindowMinutes == 0 {
		cfg.RateLimit.LoginWindowMinutes = 15
	}
	if cfg.RateLimit.LoginMaxAttempts == 0 {
		cfg.RateLimit.LoginMaxAttempts = 5
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
		cfg.FileStore.Data = map[string]interface{}{"dir": "./attachments"}
	}
	return &cfg, nil
}
