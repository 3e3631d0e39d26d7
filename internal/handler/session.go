package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/product-desk/internal/domain/auth"
	"github.com/xenking/product-desk/internal/wire"
)

type roleKey struct{}

func roleFromContext(ctx context.Context) (auth.Role, bool) {
	role, ok := ctx.Value(roleKey{}).(auth.Role)
	return role, ok
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var password string
	err := readBody(w, r, func(d *jx.Decoder) error {
		var err error
		password, err = wire.DecodePassword(d)
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	role, ok := h.authn.Authenticate(password)
	if !ok {
		zctx.From(r.Context()).Info("Login rejected")
		writeError(w, http.StatusUnauthorized, "Incorrect password")
		return
	}

	http.SetCookie(w, h.sessionCookie(string(role), int(auth.SessionMaxAge.Seconds())))
	zctx.From(r.Context()).Info("Login", zap.String("role", string(role)))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeRole(e, role) })
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, wire.EncodeSuccess)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	role, _ := roleFromContext(r.Context())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeRole(e, role) })
}

// requireSession rejects requests without a valid session cookie with 401.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(auth.SessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		role, err := auth.ParseRole(c.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), roleKey{}, role)))
	})
}

// requireRole rejects sessions with a different role with 403. It must run
// after requireSession.
func requireRole(want auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if role, _ := roleFromContext(r.Context()); role != want {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
