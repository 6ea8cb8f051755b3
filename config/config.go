package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server struct {
		Port int
	}
	DB struct {
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
	}
	JWT struct {
		SecretKey string
		ExpiresIn int // в часах
	}
	Scheduler struct {
		OverdueScanInterval time.Duration
	}
}

// NewConfig загружает конфигурацию из config.yaml и переменных окружения.
// Переменные окружения (SERVER_PORT, DB_HOST, ...) имеют приоритет над файлом.
func NewConfig() (*Config, error) {
	v := viper.New()

	// Значения по умолчанию
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.dbname", "bnpl_db")
	v.SetDefault("jwt.secretkey", "your-secret-key-here")
	v.SetDefault("jwt.expiresin", 24)
	v.SetDefault("scheduler.overduescaninterval", time.Hour)

	// Переменные окружения: точки в ключах заменяются на подчеркивания
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Файл конфигурации необязателен
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %v", err)
		}
	}

	cfg := &Config{}
	cfg.Server.Port = v.GetInt("server.port")
	cfg.DB.Host = v.GetString("db.host")
	cfg.DB.Port = v.GetInt("db.port")
	cfg.DB.User = v.GetString("db.user")
	cfg.DB.Password = v.GetString("db.password")
	cfg.DB.DBName = v.GetString("db.dbname")
	cfg.JWT.SecretKey = v.GetString("jwt.secretkey")
	cfg.JWT.ExpiresIn = v.GetInt("jwt.expiresin")
	cfg.Scheduler.OverdueScanInterval = v.GetDuration("scheduler.overduescaninterval")

	if cfg.Server.Port <= 0 {
		return nil, fmt.Errorf("неверный порт сервера: %d", cfg.Server.Port)
	}
	if cfg.Scheduler.OverdueScanInterval <= 0 {
		return nil, fmt.Errorf("неверный интервал пересчета штрафов: %v", cfg.Scheduler.OverdueScanInterval)
	}

	return cfg, nil
}
