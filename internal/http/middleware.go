package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/services"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ws/") {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)
		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Int("bytes", recorder.bytes).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type contextKey string

const ctxSession contextKey = "session"

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// WithAuth loads the caller's live session from the bearer token.
func WithAuth(sessions *services.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			sess, err := sessions.Authenticate(r.Context(), token)
			if err != nil {
				serr, _ := services.AsServiceError(err)
				WriteJSON(w, serr.Status, ErrorResponse{Message: serr.Message, Kind: string(serr.Kind)})
				return
			}
			ctx := context.WithValue(r.Context(), ctxSession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func CurrentSession(r *http.Request) models.Session {
	if value, ok := r.Context().Value(ctxSession).(models.Session); ok {
		return value
	}
	return models.Session{}
}

// RequireRole admits sessions whose role passes allowed. Any other
// session is signed out before the 403 is written.
func (s *Server) RequireRole(allowed func(models.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed(CurrentSession(r).Role) {
				next.ServeHTTP(w, r)
				return
			}
			s.writeServiceError(w, r, services.ErrPermissionDenied("You do not have access to this area."))
		})
	}
}

// revoke ends the request's session and returns the message to show.
func (s *Server) revoke(r *http.Request, message string) string {
	sess := CurrentSession(r)
	if sess.ID == "" {
		return message
	}
	if err := s.Sessions.SignOut(r.Context(), sess); err != nil {
		log.Error().Err(err).Str("email", sess.Identity.Email).Msg("could not revoke session")
		return message
	}
	log.Warn().Str("email", sess.Identity.Email).Str("path", r.URL.Path).Msg("session revoked after permission failure")
	return message + " You have been signed out."
}
