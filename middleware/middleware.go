package middleware

import (
	"context"
	"net/http"

	"mixmaster/auth"
	"mixmaster/globals"
	"mixmaster/utils"

	"github.com/julienschmidt/httprouter"
)

func Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
			return
		}
		claims, err := auth.ParseToken(r.Context(), tokenString)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, r.WithContext(withClaims(r.Context(), claims)), ps)
	}
}

func OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if tokenString, ok := auth.BearerToken(r.Header.Get("Authorization")); ok {
			if claims, err := auth.ParseToken(r.Context(), tokenString); err == nil {
				r = r.WithContext(withClaims(r.Context(), claims))
			}
		}
		// Proceed regardless of token state
		next(w, r, ps)
	}
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, globals.UserIDKey, claims.UserID)
	return context.WithValue(ctx, globals.RoleKey, claims.Role)
}
