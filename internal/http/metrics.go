package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"kknotes-backend-go/internal/services"
)

type MetricsHistoryResponse struct {
	Items []services.MetricSample `json:"items"`
}

func (s *Server) MetricsHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 120)
	if limit > 500 {
		limit = 500
	}
	items, err := s.Metrics.History(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MetricsHistoryResponse{Items: items})
}

// MetricsSocket streams samples to superadmins.
func (s *Server) MetricsSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Authenticate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !sess.Role.IsSuperAdmin() {
		WriteError(w, http.StatusForbidden, "Not allowed")
		return
	}
	s.serveSocket(w, r, s.MetricsHub, sess, nil)
}

// SampleMetrics records one sample and pushes it to live clients.
func (s *Server) SampleMetrics(ctx context.Context) services.MetricSample {
	sample := services.CaptureMetrics(s.Config.MetricsDiskPath)
	sample.ChatClients = s.ChatHub.Len()
	if err := s.Metrics.Record(ctx, sample); err != nil {
		log.Error().Err(err).Msg("metrics record")
	}
	s.MetricsHub.Broadcast(sample)
	return sample
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value < 1 {
		return fallback
	}
	return value
}
