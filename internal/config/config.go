package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"5000"`
	DBPath      string `env:"DB_PATH" envDefault:"deepgpt.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	DeepSeekAPIKey  string `env:"DEEPSEEK_API_KEY"`
	DeepSeekBaseURL string `env:"DEEPSEEK_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	QwenAPIKey      string `env:"QWEN_API_KEY"`
	QwenBaseURL     string `env:"QWEN_BASE_URL" envDefault:"https://dashscope.aliyuncs.com/compatible-mode/v1"`
	KimiAPIKey      string `env:"KIMI_API_KEY"`
	KimiBaseURL     string `env:"KIMI_BASE_URL" envDefault:"https://api.moonshot.cn/v1"`

	ProviderTimeoutSeconds int `env:"PROVIDER_TIMEOUT_SECONDS" envDefault:"60"`
	HistoryWindow          int `env:"HISTORY_WINDOW" envDefault:"10"`

	// Límite de mensajes por cliente y sesión dentro de la ventana. 0 lo desactiva.
	ChatRateLimit         int `env:"CHAT_RATE_LIMIT" envDefault:"0"`
	ChatRateWindowSeconds int `env:"CHAT_RATE_WINDOW_SECONDS" envDefault:"60"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 10
	}
	if cfg.ProviderTimeoutSeconds <= 0 {
		cfg.ProviderTimeoutSeconds = 60
	}
	if cfg.ChatRateWindowSeconds <= 0 {
		cfg.ChatRateWindowSeconds = 60
	}
	return &cfg, nil
}
