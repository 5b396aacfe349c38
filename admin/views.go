package admin

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"mixmaster/catalog"
	"mixmaster/forms"
	"mixmaster/ids"
)

// serve dispatches on the path below Prefix:
//
//	/                       index
//	/login/  /logout/       session
//	/<model>/               list
//	/<model>/add/           add
//	/<model>/<id>/change/   change
//	/<model>/<id>/delete/   delete
func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, Prefix)
	if rest == "" {
		http.Redirect(w, r, Prefix+"/", http.StatusFound)
		return
	}
	if !strings.HasSuffix(rest, "/") {
		http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if parts[0] == "login" && len(parts) == 1 {
		s.login(w, r)
		return
	}
	if parts[0] == "logout" && len(parts) == 1 {
		s.logout(w, r)
		return
	}
	if _, ok := s.currentUser(r); !ok {
		http.Redirect(w, r, Prefix+"/login/?next="+r.URL.Path, http.StatusFound)
		return
	}

	if parts[0] == "" {
		s.index(w, r)
		return
	}
	e, ok := s.Catalog.Entity(parts[0])
	if !ok {
		s.notFound(w, r)
		return
	}
	switch {
	case len(parts) == 1:
		s.list(w, r, e)
	case len(parts) == 2 && parts[1] == "add":
		s.add(w, r, e)
	case len(parts) == 3 && parts[2] == "change":
		s.change(w, r, e, parts[1])
	case len(parts) == 3 && parts[2] == "delete":
		s.delete(w, r, e, parts[1])
	default:
		s.notFound(w, r)
	}
}

func (s *Site) index(w http.ResponseWriter, r *http.Request) {
	var entities []opts
	for _, e := range s.Catalog.Entities() {
		entities = append(entities, *s.optsFor(e))
	}
	s.render(w, http.StatusOK, "index.html", &page{
		User:     s.userEmail(r),
		Flash:    s.popFlash(r),
		Entities: entities,
	})
}

func (s *Site) list(w http.ResponseWriter, r *http.Request, e *catalog.Entity) {
	docs, err := s.Catalog.List(r.Context(), e, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	o := s.optsFor(e)
	headers := make([]string, len(e.ListDisplay))
	for i, col := range e.ListDisplay {
		headers[i] = Title(col)
	}
	rows := make([]row, 0, len(docs))
	for _, doc := range docs {
		id := ids.Of(doc)
		cells := make([]string, len(e.ListDisplay))
		for i, col := range e.ListDisplay {
			cells[i] = forms.Display(doc[col])
		}
		rows = append(rows, row{
			ID:        id,
			Cells:     cells,
			ChangeURL: s.Reverse(o.ChangeName, id),
			DeleteURL: s.Reverse(o.DeleteName, id),
		})
	}
	s.render(w, http.StatusOK, "list.html", &page{
		Title:   e.Label,
		User:    s.userEmail(r),
		Flash:   s.popFlash(r),
		Opts:    o,
		Headers: headers,
		Rows:    rows,
	})
}

func (s *Site) add(w http.ResponseWriter, r *http.Request, e *catalog.Entity) {
	schema := e.AdminSchema()
	o := s.optsFor(e)
	p := &page{Title: e.Label + ": add", User: s.userEmail(r), Opts: o, Add: true, CancelURL: o.ListURL}

	if r.Method == http.MethodGet {
		s.renderForm(w, r, schema, p, schema.Defaults(), nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	input := schema.FromValues(r.PostForm)
	doc, err := s.Catalog.CreateFromForm(r.Context(), e, input)
	if err != nil {
		s.formError(w, r, schema, p, input, err)
		return
	}
	s.flash(r, "\""+objectLabel(doc)+"\" was added successfully.")
	s.redirectAfterSave(w, r, o, ids.Of(doc))
}

func (s *Site) change(w http.ResponseWriter, r *http.Request, e *catalog.Entity, id string) {
	doc, err := s.Catalog.Get(r.Context(), e, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	schema := e.AdminSchema()
	o := s.optsFor(e)
	p := &page{
		Title:      e.Label + ": change",
		User:       s.userEmail(r),
		Opts:       o,
		Change:     true,
		ObjectID:   id,
		Object:     objectLabel(doc),
		ShowDelete: o.CanDelete,
		DeleteURL:  s.Reverse(o.DeleteName, id),
		CancelURL:  o.ListURL,
	}

	if r.Method == http.MethodGet {
		values, err := s.Catalog.FormValues(r.Context(), e, doc)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.renderForm(w, r, schema, p, values, nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	input := schema.FromValues(r.PostForm)
	updated, err := s.Catalog.UpdateFromForm(r.Context(), e, id, input)
	if err != nil {
		s.formError(w, r, schema, p, input, err)
		return
	}
	s.flash(r, "\""+objectLabel(updated)+"\" was changed successfully.")
	s.redirectAfterSave(w, r, o, id)
}

func (s *Site) delete(w http.ResponseWriter, r *http.Request, e *catalog.Entity, id string) {
	doc, err := s.Catalog.Get(r.Context(), e, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	o := s.optsFor(e)
	if r.Method == http.MethodGet {
		s.render(w, http.StatusOK, "delete.html", &page{
			Title:     e.Label + ": delete",
			User:      s.userEmail(r),
			Opts:      o,
			ObjectID:  id,
			Object:    objectLabel(doc),
			CancelURL: s.Reverse(o.ChangeName, id),
		})
		return
	}
	if err := s.Catalog.Delete(r.Context(), e, id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.flash(r, "\""+objectLabel(doc)+"\" was deleted successfully.")
	http.Redirect(w, r, o.ListURL, http.StatusFound)
}

func (s *Site) redirectAfterSave(w http.ResponseWriter, r *http.Request, o *opts, id string) {
	target := o.ListURL
	switch {
	case r.PostForm.Has("_continue"):
		target = s.Reverse(o.ChangeName, id)
	case r.PostForm.Has("_addanother"):
		target = o.AddURL
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// formError re-renders the submitted input with its errors. Anything other
// than a validation failure is a fault.
func (s *Site) formError(w http.ResponseWriter, r *http.Request, schema *forms.Schema, p *page, input map[string]any, err error) {
	var verr *forms.ValidationError
	if !errors.As(err, &verr) {
		s.fail(w, r, err)
		return
	}
	s.renderForm(w, r, schema, p, input, verr.Errors)
}

func (s *Site) renderForm(w http.ResponseWriter, r *http.Request, schema *forms.Schema, p *page, values map[string]any, errs forms.Errors) {
	fields, err := schema.Bind(r.Context(), values, errs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p.Fields = fields
	p.NonFieldErrors = nonFieldErrors(fields, errs)
	status := http.StatusOK
	if len(errs) > 0 {
		status = http.StatusBadRequest
	}
	s.render(w, status, "form.html", p)
}

// nonFieldErrors collects errors keyed by names no rendered field carries.
func nonFieldErrors(fields []forms.BoundField, errs forms.Errors) []string {
	shown := make(map[string]bool, len(fields))
	for _, f := range fields {
		shown[f.Name] = true
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		if !shown[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var out []string
	for _, k := range keys {
		out = append(out, errs[k]...)
	}
	return out
}
