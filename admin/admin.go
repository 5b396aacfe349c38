// Package admin is the server-rendered management site. One set of views and
// templates drives every registered entity: list, add, change and delete.
package admin

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"mixmaster/catalog"
	"mixmaster/forms"
	"mixmaster/ids"

	"github.com/alexedwards/scs/v2"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Prefix is the path the site is mounted under.
const Prefix = "/admin"

const (
	SiteHeader = "Administração de Drinks"
	SiteTitle  = "MixMaster Admin"
)

const (
	sessionUserKey  = "admin:user_id"
	sessionFlashKey = "admin:flash"
)

//go:embed templates/*.html
var templateFS embed.FS

// Site serves every registered entity through the same views.
type Site struct {
	Catalog  *catalog.Catalog
	Sessions *scs.SessionManager

	pages map[string]*template.Template
	urls  map[string]string
}

// New parses the templates and derives the URL table of every entity.
func New(c *catalog.Catalog, sessions *scs.SessionManager) (*Site, error) {
	s := &Site{Catalog: c, Sessions: sessions, pages: map[string]*template.Template{}, urls: map[string]string{}}
	for _, e := range c.Entities() {
		base := Prefix + "/" + e.Name + "/"
		s.urls[e.URLName("list")] = base
		s.urls[e.URLName("add")] = base + "add/"
		s.urls[e.URLName("change")] = base + "%s/change/"
		s.urls[e.URLName("delete")] = base + "%s/delete/"
	}

	funcs := template.FuncMap{
		"url":     s.Reverse,
		"title":   Title,
		"display": forms.Display,
		"label":   fieldLabel,
	}
	for _, page := range []string{"index.html", "login.html", "list.html", "form.html", "delete.html", "notfound.html"} {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse admin template %s: %w", page, err)
		}
		s.pages[page] = t
	}
	return s, nil
}

// Handler wraps the site in session loading so it can be mounted on any
// router.
func (s *Site) Handler() http.Handler {
	return s.Sessions.LoadAndSave(http.HandlerFunc(s.serve))
}

// Reverse resolves a URL name such as "drinks_drink_change". Change and
// delete URLs take the document id.
func (s *Site) Reverse(name string, args ...string) string {
	pattern, ok := s.urls[name]
	if !ok {
		log.Printf("admin: unknown URL name %q", name)
		return Prefix + "/"
	}
	if len(args) == 0 {
		return pattern
	}
	return fmt.Sprintf(pattern, args[0])
}

// Title turns a stored field name into a column header, e.g.
// "alcohol_content" becomes "Alcohol Content".
func Title(name string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " "))
}

func fieldLabel(f forms.BoundField) string {
	if f.Label != "" {
		return f.Label
	}
	return Title(f.Name)
}

// opts describes the entity a page is about.
type opts struct {
	Name       string
	Label      string
	ListURL    string
	AddURL     string
	CanAdd     bool
	CanChange  bool
	CanDelete  bool
	ChangeName string
	DeleteName string
}

// page is the data every template receives.
type page struct {
	SiteHeader string
	Title      string
	User       string
	Flash      string
	Opts       *opts

	Entities []opts

	Headers []string
	Rows    []row

	Add            bool
	Change         bool
	ObjectID       string
	Object         string
	Fields         []forms.BoundField
	NonFieldErrors []string
	ShowDelete     bool
	DeleteURL      string
	CancelURL      string

	Next  string
	Email string
	Error string
}

type row struct {
	ID        string
	Cells     []string
	ChangeURL string
	DeleteURL string
}

func (s *Site) optsFor(e *catalog.Entity) *opts {
	// Every logged-in user is an active admin, who may do everything.
	return &opts{
		Name:       e.Name,
		Label:      e.Label,
		ListURL:    s.Reverse(e.URLName("list")),
		AddURL:     s.Reverse(e.URLName("add")),
		CanAdd:     true,
		CanChange:  true,
		CanDelete:  true,
		ChangeName: e.URLName("change"),
		DeleteName: e.URLName("delete"),
	}
}

func (s *Site) render(w http.ResponseWriter, status int, name string, p *page) {
	p.SiteHeader = SiteHeader
	if p.Title == "" {
		p.Title = SiteTitle
	}
	var buf strings.Builder
	if err := s.pages[name].ExecuteTemplate(&buf, "base", p); err != nil {
		log.Printf("render admin %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (s *Site) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusNotFound, "notfound.html", &page{Title: "Page not found", User: s.userEmail(r)})
}

func (s *Site) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	log.Printf("admin %s %s: %v", r.Method, r.URL.Path, err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (s *Site) flash(r *http.Request, msg string) {
	s.Sessions.Put(r.Context(), sessionFlashKey, msg)
}

func (s *Site) popFlash(r *http.Request) string {
	return s.Sessions.PopString(r.Context(), sessionFlashKey)
}

// objectLabel is the human name of a stored document.
func objectLabel(doc bson.M) string {
	for _, key := range []string{"name", "email"} {
		if v, ok := doc[key].(string); ok && v != "" {
			return v
		}
	}
	return ids.Of(doc)
}
