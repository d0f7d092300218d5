package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"kknotes-backend-go/internal/services"
)

type ErrorResponse struct {
	Message string            `json:"message"`
	Kind    string            `json:"kind,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// writeServiceError maps any error onto the service error taxonomy. A
// permission failure also ends the caller's session.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	serr, ok := services.AsServiceError(err)
	if !ok || serr.Kind == services.KindRemoteUnavailable {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	if serr.Kind == services.KindPermissionDenied {
		serr.Message = s.revoke(r, serr.Message)
	}
	WriteJSON(w, serr.Status, ErrorResponse{
		Message: serr.Message,
		Kind:    string(serr.Kind),
		Fields:  serr.Fields,
	})
}

func decodeJSON(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return services.ErrValidation("Invalid payload")
	}
	return nil
}
