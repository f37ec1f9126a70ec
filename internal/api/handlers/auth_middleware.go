package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shop-service/internal/models"
	"shop-service/internal/service"
)

const (
	CartSessionHeader = "X-Cart-Session"
	cartSessionCookie = "cart_session"

	// matches carts.session_token
	maxSessionTokenLen = 64
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Identity resolves "Authorization: Token <key>" into a Caller. Requests
// without the header continue as anonymous; a bad token is rejected.
func Identity(auth Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, found := strings.Cut(header, " ")
			if !found || (!strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer")) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "expected Authorization: Token <key>")
				return
			}

			user, err := auth.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
					return
				}
				writeFailure(w, r, logger, err)
				return
			}

			c := CallerFrom(r.Context())
			c.UserID = user.UserID
			c.IsStaff = user.IsStaff
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), c)))
		})
	}
}

// CartSession gives anonymous callers a session token, read from the
// X-Cart-Session header or cookie and issued when absent. Tokens longer
// than maxSessionTokenLen are rejected. The token is echoed back so the
// client can keep using the same cart.
func CartSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := CallerFrom(r.Context())
		if c.Authenticated() {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(CartSessionHeader))
		if token == "" {
			if cookie, err := r.Cookie(cartSessionCookie); err == nil {
				token = cookie.Value
			}
		}
		if len(token) > maxSessionTokenLen {
			writeError(w, http.StatusBadRequest, "invalid_session",
				fmt.Sprintf("cart session token must be at most %d characters", maxSessionTokenLen))
			return
		}
		if token == "" {
			token = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     cartSessionCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(CartSessionHeader, token)

		c.SessionToken = token
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), c)))
	})
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CallerFrom(r.Context()).Authenticated() {
			writeError(w, http.StatusUnauthorized, "unauthorized", service.ErrUnauthorized.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := CallerFrom(r.Context())
		switch {
		case !c.Authenticated():
			writeError(w, http.StatusUnauthorized, "unauthorized", service.ErrUnauthorized.Error())
		case !c.IsStaff:
			writeError(w, http.StatusForbidden, "forbidden", service.ErrForbidden.Error())
		default:
			next.ServeHTTP(w, r)
		}
	})
}
