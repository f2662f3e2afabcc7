package llm

import (
	"time"

	"deepgpt/internal/config"
	"deepgpt/internal/domain"
)

// ProviderConfig describe un proveedor de chat completions compatible con OpenAI.
type ProviderConfig struct {
	Type        domain.ModelType
	DisplayName string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	APIKey      string
	Timeout     time.Duration
}

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
)

// ProviderConfigs arma la configuración fija de los tres proveedores a partir de cfg.
func ProviderConfigs(cfg *config.Config) []ProviderConfig {
	timeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second
	return []ProviderConfig{
		{
			Type:        domain.ModelDeepSeek,
			DisplayName: DisplayName(domain.ModelDeepSeek),
			BaseURL:     cfg.DeepSeekBaseURL,
			Model:       "deepseek-chat",
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
			APIKey:      cfg.DeepSeekAPIKey,
			Timeout:     timeout,
		},
		{
			Type:        domain.ModelQwen,
			DisplayName: DisplayName(domain.ModelQwen),
			BaseURL:     cfg.QwenBaseURL,
			Model:       "qwen-turbo",
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
			APIKey:      cfg.QwenAPIKey,
			Timeout:     timeout,
		},
		{
			Type:        domain.ModelKimi,
			DisplayName: DisplayName(domain.ModelKimi),
			BaseURL:     cfg.KimiBaseURL,
			Model:       "moonshot-v1-8k",
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
			APIKey:      cfg.KimiAPIKey,
			Timeout:     timeout,
		},
	}
}

// DisplayName devuelve el nombre legible de un proveedor.
func DisplayName(m domain.ModelType) string {
	switch m {
	case domain.ModelDeepSeek:
		return "DeepSeek"
	case domain.ModelQwen:
		return "Qwen (通义千问)"
	case domain.ModelKimi:
		return "Kimi"
	default:
		return string(m)
	}
}
