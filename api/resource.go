package api

import (
	"net/http"

	"mixmaster/catalog"
	"mixmaster/forms"
	"mixmaster/utils"

	"github.com/julienschmidt/httprouter"
)

// SearchSegment is the path segment of the search endpoint. It is served by
// the retrieve route, so no entity id can collide with it.
const SearchSegment = "search"

func (h *Handler) List(e *catalog.Entity) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		docs, err := h.Catalog.List(r.Context(), e, e.ListFilter(r.URL.Query()))
		if err != nil {
			fail(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, e.PresentAll(docs))
	}
}

func (h *Handler) Create(e *catalog.Entity) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		input, err := utils.DecodeJSONObject(w, r)
		if err != nil {
			badRequest(w, err)
			return
		}
		doc, err := h.Catalog.Create(r.Context(), e, input)
		if err != nil {
			fail(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, e.Present(doc))
	}
}

// Retrieve also answers GET <resource>/search for searchable entities.
func (h *Handler) Retrieve(e *catalog.Entity) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("id")
		if id == SearchSegment && len(e.SearchFields) > 0 {
			h.search(w, r, e)
			return
		}
		doc, err := h.Catalog.Get(r.Context(), e, id)
		if err != nil {
			fail(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, e.Present(doc))
	}
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, e *catalog.Entity) {
	docs, err := h.Catalog.Search(r.Context(), e, r.URL.Query().Get("q"))
	if err != nil {
		fail(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, e.PresentAll(docs))
}

// Update serves PUT (forms.Replace) and PATCH (forms.Patch).
func (h *Handler) Update(e *catalog.Entity, mode forms.Mode) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		input, err := utils.DecodeJSONObject(w, r)
		if err != nil {
			badRequest(w, err)
			return
		}
		doc, err := h.Catalog.Update(r.Context(), e, ps.ByName("id"), input, mode)
		if err != nil {
			fail(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, e.Present(doc))
	}
}

func (h *Handler) Delete(e *catalog.Entity) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := h.Catalog.Delete(r.Context(), e, ps.ByName("id")); err != nil {
			fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
