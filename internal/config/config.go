package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config объединяет все настройки процесса, читаемые из переменных окружения.
type Config struct {
	APIPort string `env:"API_PORT" envDefault:"8080"`
	Env     string `env:"APP_ENV" envDefault:"development"`

	DBHost string `env:"DB_HOST" envDefault:"localhost"`
	DBPort string `env:"DB_PORT" envDefault:"5432"`
	DBUser string `env:"DB_USER"`
	DBPass string `env:"DB_PASS"`
	DBName string `env:"DB_NAME"`

	JWTSecret   string        `env:"JWT_SECRET" envDefault:"dev-secret"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`
	PublicURL   string        `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	BotToken    string        `env:"BOT_TOKEN"`
	HookSecret  string        `env:"WEBHOOK_SECRET"`
	TokenTTL    time.Duration `env:"REQUEST_TOKEN_TTL" envDefault:"12h"`
	BindCodeTTL time.Duration `env:"BIND_CODE_TTL" envDefault:"30m"`

	SMTPAddr string `env:"SMTP_ADDR"` // host:port; пусто = почта отключена
	SMTPFrom string `env:"SMTP_FROM" envDefault:"noreply@tourops.local"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать конфигурацию: %w", err)
	}
	return cfg, nil
}

// DSN возвращает строку подключения к PostgreSQL.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}
