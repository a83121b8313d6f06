package auth

import (
	"context"
	"net/http"
	"strings"

	apperrors "clipbook/pkg/errors"
	httputil "clipbook/pkg/httputil"
	"clipbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type contextKey string

const identityKey contextKey = "identity"

// FromContext returns the authenticated identity set by Authenticated.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

type Middleware struct {
	auth Authenticator
	log  *logger.Logger
}

func NewMiddleware(auth Authenticator, log *logger.Logger) *Middleware {
	return &Middleware{
		auth: auth,
		log:  log,
	}
}

// Authenticated resolves the bearer token and stores the identity in the
// request context before invoking next.
func (m *Middleware) Authenticated(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		identity, err := m.resolve(r)
		if err != nil {
			if writeErr := httputil.WriteError(w, err); writeErr != nil {
				m.log.Error("failed to write error response", "middleware", "Authenticated", "error", writeErr)
			}
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next(w, r.WithContext(ctx), ps)
	}
}

// AdminOnly is Authenticated plus an admin-role gate.
func (m *Middleware) AdminOnly(next httprouter.Handle) httprouter.Handle {
	return m.Authenticated(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		identity, _ := FromContext(r.Context())
		if identity == nil || !identity.IsAdmin() {
			if writeErr := httputil.WriteError(w, apperrors.Forbidden("Admin privileges required")); writeErr != nil {
				m.log.Error("failed to write error response", "middleware", "AdminOnly", "error", writeErr)
			}
			return
		}
		next(w, r, ps)
	})
}

func (m *Middleware) resolve(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, apperrors.Unauthorized("Authorization header is required")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.Unauthorized("Authorization header must be a bearer token")
	}

	identity, err := m.auth.Authenticate(parts[1])
	if err != nil {
		m.log.Warn("Token authentication failed", "error", err, "path", r.URL.Path)
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}

	return identity, nil
}
