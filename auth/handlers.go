package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"mixmaster/db"
	"mixmaster/ids"
	"mixmaster/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// Handler serves the token endpoints.
type Handler struct {
	Store db.Store
	TTL   time.Duration
}

// Authenticate checks an email/password pair against the users collection.
// Inactive users never authenticate.
func Authenticate(ctx context.Context, store db.Store, email, password string) (bson.M, error) {
	user, err := store.Collection(db.Users).FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	hash, _ := user["password_hash"].(string)
	if active, ok := user["is_active"].(bool); (ok && !active) || !CheckPassword(hash, password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	oid, _ := ids.Parse(ids.Of(user))
	if err := store.Collection(db.Users).UpdateOne(ctx, oid, bson.M{"last_login": now}); err != nil {
		log.Printf("record last login for %s: %v", ids.Of(user), err)
	} else {
		user["last_login"] = now
	}
	return user, nil
}

// ErrInvalidCredentials is returned for unknown emails, wrong passwords and
// inactive accounts alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := Authenticate(r.Context(), h.Store, input.Email, input.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		log.Printf("login: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	token, claims, err := IssueToken(user, h.TTL)
	if err != nil {
		log.Printf("login: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": claims.ExpiresAt.Time.UTC(),
		"user":       ids.Present(user, "password_hash"),
	})
}

// Logout revokes the presented token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, ok := bearerClaims(w, r)
	if !ok {
		return
	}
	if err := Revocations.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		log.Printf("logout: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	utils.SendResponse(w, http.StatusOK, nil, "User logged out successfully", nil)
}

// Refresh swaps a valid token for a new one and revokes the old one.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, ok := bearerClaims(w, r)
	if !ok {
		return
	}
	oid, err := ids.Parse(claims.UserID)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	user, err := h.Store.Collection(db.Users).FindOne(r.Context(), db.ByID(oid))
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if err != nil {
		log.Printf("refresh: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}
	if active, ok := user["is_active"].(bool); ok && !active {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	token, fresh, err := IssueToken(user, h.TTL)
	if err != nil {
		log.Printf("refresh: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}
	if err := Revocations.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		log.Printf("refresh: revoke old token: %v", err)
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": fresh.ExpiresAt.Time.UTC(),
	})
}

func bearerClaims(w http.ResponseWriter, r *http.Request) (*Claims, bool) {
	tokenString, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
		return nil, false
	}
	claims, err := ParseToken(r.Context(), tokenString)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
		return nil, false
	}
	return claims, true
}
