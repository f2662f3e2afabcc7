package llm

import (
	"go.uber.org/zap"

	"deepgpt/internal/config"
	"deepgpt/internal/domain"
)

// Registry mantiene un adaptador por proveedor, construido una sola vez al arrancar.
type Registry struct {
	clients   map[domain.ModelType]ChatClient
	available map[domain.ModelType]bool
}

// NewRegistry crea los tres adaptadores HTTP desde la configuración.
func NewRegistry(cfg *config.Config, logger *zap.Logger) *Registry {
	r := &Registry{
		clients:   make(map[domain.ModelType]ChatClient),
		available: make(map[domain.ModelType]bool),
	}
	for _, pc := range ProviderConfigs(cfg) {
		client := NewHTTPClient(pc, logger)
		r.clients[pc.Type] = client
		r.available[pc.Type] = client.Configured()
		if !client.Configured() {
			logger.Warn("provider credential not configured", zap.String("provider", string(pc.Type)))
		}
	}
	return r
}

// NewStaticRegistry permite inyectar clientes arbitrarios (tests, modo offline).
func NewStaticRegistry(clients map[domain.ModelType]ChatClient) *Registry {
	r := &Registry{
		clients:   make(map[domain.ModelType]ChatClient, len(clients)),
		available: make(map[domain.ModelType]bool, len(clients)),
	}
	for m, c := range clients {
		r.clients[m] = c
		r.available[m] = c != nil
	}
	return r
}

// Get devuelve el adaptador del proveedor, si existe.
func (r *Registry) Get(m domain.ModelType) (ChatClient, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.clients[m]
	return c, ok && c != nil
}

// Available indica si el proveedor tiene credencial configurada.
func (r *Registry) Available(m domain.ModelType) bool {
	if r == nil {
		return false
	}
	return r.available[m]
}
