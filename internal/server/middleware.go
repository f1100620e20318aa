package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// TokenValidator verifies bearer tokens into principals
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*types.UserClaims, error)
}

// responseWriter captures the status code for logging and metrics
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs every request and feeds the metrics
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		s.logger.HTTPRequest(r.Method, r.URL.Path, clientIP(r), rw.statusCode, duration.Milliseconds())
		s.metrics.Observe(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// corsMiddleware sets permissive CORS headers for browser clients
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware sets standard hardening headers
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates the bearer token and stores the principal and
// the caller's address in the request context. Auth endpoints stay open.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := types.ContextWithClientIP(r.Context(), clientIP(r))

		if strings.HasPrefix(r.URL.Path, "/api/v1/auth/") {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeMiddlewareError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "Authorization header with a bearer token is required.")
			return
		}

		claims, err := s.tokens.ValidateAccessToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			s.logger.Security("token_rejected", "", map[string]interface{}{"path": r.URL.Path})
			writeMiddlewareError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "Invalid or expired token.")
			return
		}

		ctx = types.ContextWithClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitMiddleware throttles by principal, falling back to client IP
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := clientIP(r)
		if claims, ok := types.ClaimsFromContext(r.Context()); ok {
			key = claims.UserID
		}

		if !s.limiter.Allow(key) {
			writeMiddlewareError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the caller address, honoring X-Forwarded-For
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeMiddlewareError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  code,
		"detail": detail,
	})
}
