package httputil

import (
	"context"
	"net/http"
	"strings"

	"github.com/bissquit/barber-queue/internal/domain"
)

// CORSMiddleware creates CORS middleware that handles preflight requests
// and adds appropriate CORS headers to responses.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originsSet[origin] || originsSet["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+CustomerPhoneHeader)
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type contextKey string

// Context keys for storing viewer information.
const (
	BarberIDKey contextKey = "barber_id"
	RoleKey     contextKey = "role"
)

// CustomerPhoneHeader identifies an anonymous customer viewing a queue.
const CustomerPhoneHeader = "X-Customer-Phone"

// TokenValidator interface for validating tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (barberID string, role domain.Role, err error)
}

// AuthMiddleware authenticates a bearer token when one is present.
// Requests without an Authorization header pass through anonymously;
// a malformed or invalid token is rejected.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				Error(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			barberID, role, err := validator.ValidateToken(r.Context(), parts[1])
			if err != nil {
				Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), BarberIDKey, barberID)
			ctx = context.WithValue(ctx, RoleKey, role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireBarber rejects requests that were not authenticated as a barber.
func RequireBarber(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(RoleKey).(domain.Role)
		if !ok {
			Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if role != domain.RoleBarber {
			Error(w, http.StatusForbidden, "insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetBarberID extracts the authenticated barber ID from context.
func GetBarberID(ctx context.Context) string {
	if id, ok := ctx.Value(BarberIDKey).(string); ok {
		return id
	}
	return ""
}

// GetViewer builds the viewer identity of a request: the authenticated barber,
// if any, and the customer phone header.
func GetViewer(r *http.Request) domain.Viewer {
	return domain.Viewer{
		BarberID: GetBarberID(r.Context()),
		Phone:    domain.NormalizePhone(r.Header.Get(CustomerPhoneHeader)),
	}
}
