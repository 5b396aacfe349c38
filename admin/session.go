package admin

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"mixmaster/auth"
	"mixmaster/ids"

	"go.mongodb.org/mongo-driver/bson"
)

// currentUser loads the logged-in user. Accounts that were deactivated or
// lost admin rights since login are treated as logged out.
func (s *Site) currentUser(r *http.Request) (bson.M, bool) {
	id := s.Sessions.GetString(r.Context(), sessionUserKey)
	if id == "" {
		return nil, false
	}
	user, err := s.Catalog.Get(r.Context(), s.Catalog.MustEntity("user"), id)
	if err != nil {
		return nil, false
	}
	if !isStaff(user) {
		return nil, false
	}
	return user, true
}

func (s *Site) userEmail(r *http.Request) string {
	user, ok := s.currentUser(r)
	if !ok {
		return ""
	}
	email, _ := user["email"].(string)
	return email
}

func isStaff(user bson.M) bool {
	admin, _ := user["is_admin"].(bool)
	active, ok := user["is_active"].(bool)
	return admin && (active || !ok)
}

func (s *Site) login(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.FormValue("next"))
	if r.Method == http.MethodGet {
		if _, ok := s.currentUser(r); ok {
			http.Redirect(w, r, next, http.StatusFound)
			return
		}
		s.render(w, http.StatusOK, "login.html", &page{Title: "Log in", Next: next, Flash: s.popFlash(r)})
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	user, err := auth.Authenticate(r.Context(), s.Catalog.Store(), email, r.PostFormValue("password"))
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), err == nil && !isStaff(user):
		s.render(w, http.StatusOK, "login.html", &page{
			Title: "Log in",
			Next:  next,
			Email: email,
			Error: "Please enter the correct email and password for an admin account.",
		})
		return
	case err != nil:
		log.Printf("admin login: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := s.Sessions.RenewToken(r.Context()); err != nil {
		log.Printf("admin login: renew session: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.Sessions.Put(r.Context(), sessionUserKey, ids.Of(user))
	log.Printf("🔑 admin login: %s", email)
	http.Redirect(w, r, next, http.StatusFound)
}

func (s *Site) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Destroy(r.Context()); err != nil {
		log.Printf("admin logout: %v", err)
	}
	http.Redirect(w, r, Prefix+"/login/", http.StatusFound)
}

// safeNext keeps post-login redirects on the site.
func safeNext(next string) string {
	if strings.HasPrefix(next, Prefix+"/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return Prefix + "/"
}
