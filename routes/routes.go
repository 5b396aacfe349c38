package routes

import (
	"net/http"

	"mixmaster/admin"
	"mixmaster/api"
	"mixmaster/auth"
	"mixmaster/forms"
	"mixmaster/metrics"
	"mixmaster/middleware"
	"mixmaster/ratelim"
	"mixmaster/utils"

	"github.com/julienschmidt/httprouter"
)

// APIPrefix is the root of every JSON endpoint.
const APIPrefix = "/api/v1"

// Index is the health check.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "MixMaster API is running",
	})
}

// handle registers h under pattern and labels its requests with pattern.
func handle(router *httprouter.Router, method, pattern string, h httprouter.Handle) {
	router.Handle(method, pattern, metrics.Track(pattern, h))
}

func AddUtilityRoutes(router *httprouter.Router) {
	handle(router, http.MethodGet, "/health", Index)
	router.Handler(http.MethodGet, "/metrics", metrics.TrackHandler("/metrics", metrics.Handler()))
}

func AddStaticRoutes(router *httprouter.Router, mediaURL, mediaDir string) {
	files := http.FileServer(http.Dir(mediaDir))
	handle(router, http.MethodGet, mediaURL+"/*filepath", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		r.URL.Path = ps.ByName("filepath")
		files.ServeHTTP(w, r)
	})
}

func AddAuthRoutes(router *httprouter.Router, h *auth.Handler, limiter ratelim.Limiter) {
	handle(router, http.MethodPost, APIPrefix+"/auth/login", ratelim.Limit(limiter, h.Login))
	handle(router, http.MethodPost, APIPrefix+"/auth/logout", h.Logout)
	handle(router, http.MethodPost, APIPrefix+"/auth/refresh", ratelim.Limit(limiter, h.Refresh))
}

// AddCatalogRoutes mounts the same resource endpoints for every registered
// entity except users, plus the drink extensions.
func AddCatalogRoutes(router *httprouter.Router, h *api.Handler) {
	for _, e := range h.Catalog.Entities() {
		if e.Name == "user" {
			continue
		}
		base := APIPrefix + "/" + e.Resource
		handle(router, http.MethodGet, base, middleware.Authenticate(h.List(e)))
		handle(router, http.MethodPost, base, middleware.Authenticate(h.Create(e)))
		// GET /:id also answers /search.
		handle(router, http.MethodGet, base+"/:id", middleware.Authenticate(h.Retrieve(e)))
		handle(router, http.MethodPut, base+"/:id", middleware.Authenticate(h.Update(e, forms.Replace)))
		handle(router, http.MethodPatch, base+"/:id", middleware.Authenticate(h.Update(e, forms.Patch)))
		handle(router, http.MethodDelete, base+"/:id", middleware.Authenticate(h.Delete(e)))
	}

	drinks := h.Catalog.MustEntity("drink")
	base := APIPrefix + "/" + drinks.Resource
	handle(router, http.MethodPost, base+"/:id/duplicate", middleware.Authenticate(h.Duplicate(drinks)))
	handle(router, http.MethodPost, base+"/:id/image", middleware.Authenticate(h.UploadImage(drinks)))
	handle(router, http.MethodGet, base+"/:id/card", middleware.Authenticate(h.Card(drinks)))
}

func AddUserRoutes(router *httprouter.Router, h *api.Handler, limiter ratelim.Limiter) {
	base := APIPrefix + "/" + h.Catalog.MustEntity("user").Resource
	handle(router, http.MethodGet, base, middleware.Authenticate(h.UserList))
	handle(router, http.MethodPost, base, ratelim.Limit(limiter, middleware.OptionalAuth(h.UserCreate)))
	// GET /:id also answers /me.
	handle(router, http.MethodGet, base+"/:id", middleware.Authenticate(h.UserRetrieve))
	handle(router, http.MethodPut, base+"/:id", middleware.Authenticate(h.UserUpdate(forms.Replace)))
	handle(router, http.MethodPatch, base+"/:id", middleware.Authenticate(h.UserUpdate(forms.Patch)))
	handle(router, http.MethodDelete, base+"/:id", middleware.Authenticate(h.UserDelete))
}

func AddAdminRoutes(router *httprouter.Router, site *admin.Site) {
	pattern := admin.Prefix + "/*path"
	h := metrics.TrackHandler(pattern, site.Handler())
	router.Handler(http.MethodGet, pattern, h)
	router.Handler(http.MethodPost, pattern, h)
}
