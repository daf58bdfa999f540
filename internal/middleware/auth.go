package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/authgate/internal/ctxkeys"
	"github.com/templui/authgate/internal/service"
)

// BearerAuthenticator resolves a bearer credential to a user id.
type BearerAuthenticator interface {
	AuthenticateRequest(ctx context.Context, bearer string) (string, error)
}

// RequireBearer rejects requests without a valid bearer access token and
// stores the authenticated user id in the request context.
func RequireBearer(authenticator BearerAuthenticator) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			userID, err := authenticator.AuthenticateRequest(r.Context(), token)
			if err != nil {
				if service.IsRejection(err) {
					unauthorized(w)
					return
				}
				slog.Error("bearer authentication failed", "error", err, "request_id", ctxkeys.RequestID(r.Context()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"detail":"Internal Server Error"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(ctxkeys.WithUserID(r.Context(), userID)))
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"detail":"Could not validate credentials."}`))
}
