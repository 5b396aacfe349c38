package routes

import (
	"mixmaster/admin"
	"mixmaster/api"
	"mixmaster/auth"
	"mixmaster/ratelim"

	"github.com/julienschmidt/httprouter"
)

// Deps carries everything the route table mounts.
type Deps struct {
	API     *api.Handler
	Auth    *auth.Handler
	Admin   *admin.Site
	Limiter ratelim.Limiter
	// MediaDir is served under MediaURL when uploads live on local disk.
	MediaURL string
	MediaDir string
}

func RoutesWrapper(router *httprouter.Router, d Deps) {
	AddUtilityRoutes(router)
	AddAuthRoutes(router, d.Auth, d.Limiter)
	AddCatalogRoutes(router, d.API)
	AddUserRoutes(router, d.API, d.Limiter)
	if d.Admin != nil {
		AddAdminRoutes(router, d.Admin)
	}
	if d.MediaDir != "" {
		AddStaticRoutes(router, d.MediaURL, d.MediaDir)
	}
}
