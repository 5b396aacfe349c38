package api

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"mixmaster/cards"
	"mixmaster/catalog"
	"mixmaster/forms"
	"mixmaster/media"
	"mixmaster/models"
	"mixmaster/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// MaxImageBytes bounds image uploads.
const MaxImageBytes = 10 << 20

func (h *Handler) Duplicate(e *catalog.Entity) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		doc, err := h.Catalog.Duplicate(r.Context(), e, ps.ByName("id"))
		if err != nil {
			fail(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, e.Present(doc))
	}
}

// UploadImage stores a resized image and a thumbnail for the drink and
// replaces any previous pair.
func (h *Handler) UploadImage(e *catalog.Entity) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("id")
		current, err := h.Catalog.Get(r.Context(), e, id)
		if err != nil {
			fail(w, r, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes)
		if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
			fail(w, r, forms.Invalid("image", "Unable to parse upload."))
			return
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			fail(w, r, forms.Invalid("image", "No file was submitted."))
			return
		}
		defer file.Close()
		if !utils.ValidateImageFileType(w, header) {
			return
		}

		processed, err := media.ProcessImage(file)
		if err != nil {
			fail(w, r, forms.Invalid("image", "Upload a valid image."))
			return
		}

		key := fmt.Sprintf("%s/%s/%s", e.Resource, id, uuid.NewString())
		fullURL, err := h.Media.Put(r.Context(), key+".jpg", processed.Full, "image/jpeg")
		if err != nil {
			fail(w, r, err)
			return
		}
		thumbURL, err := h.Media.Put(r.Context(), key+"_thumb.jpg", processed.Thumbnail, "image/jpeg")
		if err != nil {
			if derr := h.Media.Delete(r.Context(), key+".jpg"); derr != nil {
				log.Printf("remove orphaned %s.jpg: %v", key, derr)
			}
			fail(w, r, err)
			return
		}

		doc, err := h.Catalog.SetFields(r.Context(), e, id, bson.M{"image_url": fullURL, "thumbnail_url": thumbURL})
		if err != nil {
			for _, k := range []string{key + ".jpg", key + "_thumb.jpg"} {
				if derr := h.Media.Delete(r.Context(), k); derr != nil {
					log.Printf("remove orphaned %s: %v", k, derr)
				}
			}
			fail(w, r, err)
			return
		}
		for _, field := range []string{"image_url", "thumbnail_url"} {
			old, _ := current[field].(string)
			if k, ok := h.Media.KeyOf(old); ok {
				if err := h.Media.Delete(r.Context(), k); err != nil {
					log.Printf("remove old %s of %s %s: %v", field, e.Name, id, err)
				}
			}
		}
		utils.RespondWithJSON(w, http.StatusOK, e.Present(doc))
	}
}

// Card renders the drink as a printable PDF.
func (h *Handler) Card(e *catalog.Entity) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		doc, err := h.Catalog.Get(r.Context(), e, ps.ByName("id"))
		if err != nil {
			fail(w, r, err)
			return
		}
		drink, err := models.DrinkFromDoc(doc)
		if err != nil {
			fail(w, r, err)
			return
		}
		pdf, err := cards.Render(drink, h.drinkLink(r, drink))
		if err != nil {
			fail(w, r, err)
			return
		}

		name := drink.Slug
		if name == "" {
			name = drink.ID.Hex()
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "attachment; filename="+name+".pdf")
		w.WriteHeader(http.StatusOK)
		w.Write(pdf)
	}
}

func (h *Handler) drinkLink(r *http.Request, d models.Drink) string {
	base := h.PublicBaseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return strings.TrimSuffix(base, "/") + "/api/v1/drinks/" + d.ID.Hex()
}
