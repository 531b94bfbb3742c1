package app

import (
	"os"
	"strconv"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// HTTPAddr — адрес JSON API магазина.
	HTTPAddr string
	// MetricsAddr — адрес /metrics и health-проб.
	MetricsAddr string
	// PostgresDSN включает PostgreSQL-хранилище; пустое значение
	// запускает приложение на in-memory хранилище.
	PostgresDSN string
	// KafkaBrokers — список брокеров через запятую; пустое значение
	// отключает публикацию уведомлений.
	KafkaBrokers string
	// LowStockThreshold — порог уведомления о дозакупке.
	LowStockThreshold int32
}

// DefaultConfig возвращает базовые настройки.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:          ":8080",
		MetricsAddr:       ":9090",
		LowStockThreshold: 10,
	}
}

// ConfigFromEnv накладывает переменные окружения поверх базовых настроек.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if addr := os.Getenv("STORE_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if addr := os.Getenv("STORE_METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}
	cfg.PostgresDSN = os.Getenv("STORE_PG_DSN")
	cfg.KafkaBrokers = os.Getenv("KAFKA_BROKERS")
	if raw := os.Getenv("STORE_LOW_STOCK_THRESHOLD"); raw != "" {
		if threshold, err := strconv.Atoi(raw); err == nil && threshold >= 0 {
			cfg.LowStockThreshold = int32(threshold)
		}
	}
	return cfg
}
