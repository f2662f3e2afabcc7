package domain

import (
	"fmt"
	"strings"
)

// ModelType identifica a uno de los tres proveedores soportados.
type ModelType string

const (
	ModelDeepSeek ModelType = "deepseek"
	ModelQwen     ModelType = "qwen"
	ModelKimi     ModelType = "kimi"
)

// DefaultModelType responde cuando el cliente no indica modelo.
const DefaultModelType = ModelDeepSeek

// ModelTypes lista los proveedores en orden estable.
var ModelTypes = []ModelType{ModelDeepSeek, ModelQwen, ModelKimi}

// ParseModelType normaliza y valida el identificador recibido por la API.
func ParseModelType(raw string) (ModelType, error) {
	m := ModelType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range ModelTypes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported model type: %q", raw)
}

func (m ModelType) String() string {
	return string(m)
}
