package handler

import (
	"github.com/deppfellow/schemaguard/internal/server"
)

// Handlers groups all HTTP handlers so the router receives one value.
type Handlers struct {
	Health  *HealthHandler
	Gateway *GatewayHandler
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		Gateway: NewGatewayHandler(s),
	}
}
