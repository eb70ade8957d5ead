package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"godlykids/internal/models"
	"godlykids/internal/security"
	"godlykids/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey       ContextKey = "user"
	KidProfileContextKey ContextKey = "kid"
	SessionIDContextKey  ContextKey = "sessionID"
)

// Cookie names
const (
	SessionCookie    = "session_id"
	KidSessionCookie = "kid_session_id"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService    *service.AuthService
	profileService *service.ProfileService
	rateLimiter    *security.RateLimiter
	csrf           *security.CSRFGenerator
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, profileService *service.ProfileService, rateLimiter *security.RateLimiter, csrf *security.CSRFGenerator) *Middleware {
	return &Middleware{
		authService:    authService,
		profileService: profileService,
		rateLimiter:    rateLimiter,
		csrf:           csrf,
	}
}

// RequireAuth requires a valid parent session. The user and the session ID
// land in the request context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Authentication required", "", nil)
			return
		}

		user, err := m.authService.ValidateSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookie))
			respondWithError(w, http.StatusUnauthorized, "Session expired", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, SessionIDContextKey, cookie.Value)
		next(w, r.WithContext(ctx))
	}
}

// RequireKidAuth requires a valid kid session. The kid profile and the
// session ID land in the request context.
func (m *Middleware) RequireKidAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(KidSessionCookie)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Kid login required", "", nil)
			return
		}

		profile, err := m.profileService.ValidateKidSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, KidSessionCookie))
			respondWithError(w, http.StatusUnauthorized, "Kid session expired", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), KidProfileContextKey, profile)
		ctx = context.WithValue(ctx, SessionIDContextKey, cookie.Value)
		next(w, r.WithContext(ctx))
	}
}

// RequireAnySession accepts either a parent or a kid session. Economy and
// avatar routes work the same for both, keyed by the session ID.
func (m *Middleware) RequireAnySession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(KidSessionCookie); err == nil {
			if profile, err := m.profileService.ValidateKidSession(cookie.Value); err == nil {
				ctx := context.WithValue(r.Context(), KidProfileContextKey, profile)
				ctx = context.WithValue(ctx, SessionIDContextKey, cookie.Value)
				next(w, r.WithContext(ctx))
				return
			}
			http.SetCookie(w, security.CreateDeleteCookie(r, KidSessionCookie))
		}

		m.RequireAuth(next)(w, r)
	}
}

// RequireCSRF validates the X-CSRF-Token header on state changing requests.
// Runs after an auth middleware so the session ID is already in the context.
func (m *Middleware) RequireCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		sessionID := GetSessionIDFromContext(r.Context())
		token := r.Header.Get("X-CSRF-Token")
		if !m.csrf.ValidateToken(sessionID, token) {
			respondWithError(w, http.StatusForbidden, "Invalid CSRF token", "", nil)
			return
		}
		next(w, r)
	}
}

// RateLimit rejects clients that exceed the configured request rate
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.rateLimiter.Allow(ip) {
			respondWithError(w, http.StatusTooManyRequests, "Too many requests", "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetUserFromContext retrieves the parent user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetKidFromContext retrieves the kid profile from the request context
func GetKidFromContext(ctx context.Context) *models.Profile {
	profile, ok := ctx.Value(KidProfileContextKey).(*models.Profile)
	if !ok {
		return nil
	}
	return profile
}

// GetSessionIDFromContext retrieves the session ID the request
// authenticated with
func GetSessionIDFromContext(ctx context.Context) string {
	sessionID, _ := ctx.Value(SessionIDContextKey).(string)
	return sessionID
}
