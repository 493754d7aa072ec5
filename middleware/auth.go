package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-storefront/apperrors"
	"go-storefront/auth"
	"go-storefront/logger"
	"go-storefront/utils"
)

// Key type for context
type contextKey string

const (
	AdminContextKey    = contextKey("admin")
	CustomerContextKey = contextKey("customer")
)

// Auth holds what the auth middlewares need to check credentials
type Auth struct {
	issuer   *utils.TokenIssuer
	verifier auth.Verifier
	log      *logger.Logger
}

func NewAuth(issuer *utils.TokenIssuer, verifier auth.Verifier, log *logger.Logger) *Auth {
	return &Auth{issuer: issuer, verifier: verifier, log: log.WithComponent("auth")}
}

// bearerToken reads "Authorization: Bearer <token>". Websocket upgrades may pass ?token= instead,
// since browsers cannot set headers on them.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			if token := r.URL.Query().Get("token"); token != "" {
				return token, true
			}
		}
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// AuthMiddleware verifies admin JWTs and attaches the claims to the context
func (a *Auth) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := bearerToken(r)
		if !ok {
			utils.WriteError(w, apperrors.Unauthorized("Authorization header missing or malformed"))
			return
		}

		claims, err := a.issuer.ParseJWT(tokenStr)
		if err != nil {
			logger.FromContext(r.Context(), a.log).Debug("Rejected admin token", "error", err)
			utils.WriteError(w, apperrors.Unauthorized("Invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), AdminContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware ensures that the caller has admin privileges
func (a *Auth) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := AdminFromContext(r.Context())
		if !ok || claims.Role != utils.RoleAdmin {
			utils.WriteError(w, apperrors.Forbidden(apperrors.CodeForbidden, "Admins only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin chains AuthMiddleware and AdminMiddleware
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return a.AuthMiddleware(a.AdminMiddleware(next))
}

// CustomerAuth requires a verified customer identity
func (a *Auth) CustomerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := bearerToken(r)
		if !ok {
			utils.WriteError(w, apperrors.Unauthorized("Sign in required"))
			return
		}
		id, err := a.verifier.Verify(r.Context(), tokenStr)
		if err != nil {
			logger.FromContext(r.Context(), a.log).Debug("Rejected customer token", "error", err)
			utils.WriteError(w, apperrors.Unauthorized("Invalid or expired sign-in"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCustomer(r.Context(), id)))
	})
}

// OptionalCustomer attaches the customer identity when a token is sent.
// No token means an anonymous request; a bad token is still rejected.
func (a *Auth) OptionalCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := bearerToken(r); !ok {
			next.ServeHTTP(w, r)
			return
		}
		a.CustomerAuth(next).ServeHTTP(w, r)
	})
}

func WithCustomer(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, CustomerContextKey, id)
}

// CustomerFromContext returns the verified customer, if any
func CustomerFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(CustomerContextKey).(auth.Identity)
	return id, ok && id.UID != ""
}

// AdminFromContext returns the admin claims set by AuthMiddleware
func AdminFromContext(ctx context.Context) (*utils.Claims, bool) {
	claims, ok := ctx.Value(AdminContextKey).(*utils.Claims)
	return claims, ok
}
