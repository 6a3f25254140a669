package api

import (
	apirouter "github.com/mrz1836/go-api-router"

	"github.com/minkyc/minkyc-go/internal/protocol"
)

// Service exposes read-only ledger queries over HTTP. It is an audit/consumer
// surface: it never mutates protocol state.
type Service struct {
	Protocol *protocol.Protocol
}

// RegisterRoutes registers all the package specific routes
func RegisterRoutes(router *apirouter.Router, s *Service) {

	// Health
	router.HTTPRouter.GET("/v1/health", router.Request(s.health))

	// Lookups
	router.HTTPRouter.GET("/v1/identity/:address", router.Request(s.identity))
	router.HTTPRouter.GET("/v1/receipt/:address", router.Request(s.receipt))
	router.HTTPRouter.GET("/v1/owner/:key/count", router.Request(s.ownerCount))
}
