package api

import (
	"errors"
	"net/http"

	"mixmaster/catalog"
	"mixmaster/forms"
	"mixmaster/ids"
	"mixmaster/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// MeSegment addresses the authenticated user.
const MeSegment = "me"

// privileged fields only administrators may set.
var privileged = []string{"is_admin", "is_active"}

func (h *Handler) users() *catalog.Entity { return h.Catalog.MustEntity("user") }

// caller loads the authenticated user, or nil for anonymous and stale tokens.
func (h *Handler) caller(r *http.Request) (bson.M, error) {
	uid := utils.GetUserIDFromRequest(r)
	if uid == "" {
		return nil, nil
	}
	doc, err := h.Catalog.Get(r.Context(), h.users(), uid)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if active, ok := doc["is_active"].(bool); ok && !active {
		return nil, nil
	}
	return doc, nil
}

func isAdmin(user bson.M) bool {
	admin, _ := user["is_admin"].(bool)
	return admin
}

// authorize resolves the caller and the target id, allowing admins and the
// user themselves. It writes the error response and returns false otherwise.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, id string) (bson.M, string, bool) {
	me, err := h.caller(r)
	if err != nil {
		fail(w, r, err)
		return nil, "", false
	}
	if me == nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return nil, "", false
	}
	if id == MeSegment {
		id = ids.Of(me)
	}
	if !isAdmin(me) && id != ids.Of(me) {
		utils.RespondWithError(w, http.StatusForbidden, "forbidden")
		return nil, "", false
	}
	return me, id, true
}

func stripPrivileged(input map[string]any, me bson.M) {
	if isAdmin(me) {
		return
	}
	for _, f := range privileged {
		delete(input, f)
	}
}

// UserList returns everyone to administrators and only themselves to others.
func (h *Handler) UserList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	me, err := h.caller(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if me == nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	e := h.users()
	if !isAdmin(me) {
		utils.RespondWithJSON(w, http.StatusOK, e.PresentAll([]bson.M{me}))
		return
	}
	docs, err := h.Catalog.List(r.Context(), e, nil)
	if err != nil {
		fail(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, e.PresentAll(docs))
}

// UserCreate is open registration. Only administrators may create other
// administrators or inactive accounts.
func (h *Handler) UserCreate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	me, err := h.caller(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	input, err := utils.DecodeJSONObject(w, r)
	if err != nil {
		badRequest(w, err)
		return
	}
	stripPrivileged(input, me)
	e := h.users()
	doc, err := h.Catalog.Create(r.Context(), e, input)
	if err != nil {
		fail(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, e.Present(doc))
}

func (h *Handler) UserRetrieve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, id, ok := h.authorize(w, r, ps.ByName("id"))
	if !ok {
		return
	}
	e := h.users()
	doc, err := h.Catalog.Get(r.Context(), e, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, e.Present(doc))
}

func (h *Handler) UserUpdate(mode forms.Mode) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		me, id, ok := h.authorize(w, r, ps.ByName("id"))
		if !ok {
			return
		}
		input, err := utils.DecodeJSONObject(w, r)
		if err != nil {
			badRequest(w, err)
			return
		}
		stripPrivileged(input, me)
		e := h.users()
		doc, err := h.Catalog.Update(r.Context(), e, id, input, mode)
		if err != nil {
			fail(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, e.Present(doc))
	}
}

func (h *Handler) UserDelete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, id, ok := h.authorize(w, r, ps.ByName("id"))
	if !ok {
		return
	}
	if err := h.Catalog.Delete(r.Context(), h.users(), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
