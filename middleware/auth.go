package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/utils"
)

// Authenticator resolves bearer tokens and checks stored roles.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (primitive.ObjectID, error)
	HasRole(ctx context.Context, userID primitive.ObjectID, role models.Role) (bool, error)
}

// Key type for context
type contextKey string

const userIDKey = contextKey("userID")

// WithUserID attaches the authenticated user id to ctx.
func WithUserID(ctx context.Context, id primitive.ObjectID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the id stored by AuthMiddleware.
func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(userIDKey).(primitive.ObjectID)
	return id, ok && !id.IsZero()
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a websocket handshake, so upgrade requests may pass ?token= instead.
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if websocket.IsWebSocketUpgrade(r) {
			if token := r.URL.Query().Get("token"); token != "" {
				return token, nil
			}
		}
		return "", models.Errorf(models.ErrUnauthorized, "authorization header missing")
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", models.Errorf(models.ErrUnauthorized, "invalid authorization header format")
	}
	return parts[1], nil
}

// AuthMiddleware verifies the bearer token and attaches the user id to the
// request context.
func AuthMiddleware(authn Authenticator, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				utils.RespondError(w, r, logger, err)
				return
			}
			userID, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				utils.RespondError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// AdminMiddleware must run after AuthMiddleware. The role is read from the
// store on every request.
func AdminMiddleware(authn Authenticator, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				utils.RespondError(w, r, logger, models.Errorf(models.ErrUnauthorized, "authentication required"))
				return
			}
			isAdmin, err := authn.HasRole(r.Context(), userID, models.RoleAdmin)
			if err != nil {
				utils.RespondError(w, r, logger, err)
				return
			}
			if !isAdmin {
				utils.RespondError(w, r, logger, models.Errorf(models.ErrForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
