// Package api serves the catalog as JSON under /api/v1. Every entity gets
// the same list/create/retrieve/update/delete handlers; drinks and users add
// their own extensions.
package api

import (
	"errors"
	"log"
	"net/http"

	"mixmaster/catalog"
	"mixmaster/forms"
	"mixmaster/globals"
	"mixmaster/media"
	"mixmaster/utils"
)

// Handler carries the dependencies of every endpoint.
type Handler struct {
	Catalog *catalog.Catalog
	Media   media.Store
	// PublicBaseURL prefixes links printed on drink cards. The request host
	// is used when empty.
	PublicBaseURL string
}

func New(c *catalog.Catalog, m media.Store, publicBaseURL string) *Handler {
	return &Handler{Catalog: c, Media: m, PublicBaseURL: publicBaseURL}
}

// fail maps an error to its HTTP outcome. Validation errors carry the
// field-error map; anything unrecognised is a store fault.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *forms.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.RespondWithJSON(w, http.StatusBadRequest, map[string]any{"errors": verr.Errors})
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, catalog.ErrUnsupported):
		utils.RespondWithError(w, http.StatusNotFound, "not found")
	default:
		id, _ := r.Context().Value(globals.RequestIDKey).(string)
		log.Printf("%s %s failed [%s]: %v", r.Method, r.URL.Path, id, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func badRequest(w http.ResponseWriter, err error) {
	utils.RespondWithError(w, http.StatusBadRequest, err.Error())
}
