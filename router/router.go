package router

import (
	"github.com/julienschmidt/httprouter"
	apirouter "github.com/mrz1836/go-api-router"

	"github.com/minkyc/minkyc-go/api"
)

// Handlers isolates the handlers / router for the query API (helps with testing)
func Handlers(s *api.Service) *httprouter.Router {

	// Create a new router
	r := apirouter.New()

	// This is used for the "Origin" to be returned as the origin
	r.CrossOriginAllowOriginAll = true

	// Register all actions
	api.RegisterRoutes(r, s)

	// Return the router
	return r.HTTPRouter.Router
}
