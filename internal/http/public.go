package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/services"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Sessions string `json:"sessions"`
}

type PublicConfigResponse struct {
	Version     string          `json:"version"`
	Features    map[string]bool `json:"features"`
	LastUpdated int64           `json:"lastUpdated,omitempty"`
}

type SemestersResponse struct {
	Items []string `json:"items"`
}

// NavAction is one navigator transition requested by a client.
type NavAction struct {
	Type     string                `json:"type"`
	Semester string                `json:"semester,omitempty"`
	Subject  string                `json:"subject,omitempty"`
	Filter   string                `json:"filter,omitempty"`
	Retry    *services.ReadRequest `json:"retry,omitempty"`
}

type NavRequest struct {
	State  *services.NavState `json:"state"`
	Action NavAction          `json:"action"`
}

type NavResponse struct {
	State services.NavState `json:"state"`
	View  services.View     `json:"view"`
}

// Health pings the tree store and the session store concurrently.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Store: "ok", Sessions: "ok"}
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		if _, err := s.Store.Get(ctx, "config/version"); err != nil {
			resp.Store = "unavailable"
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.Sessions.Store.Ping(ctx); err != nil {
			resp.Sessions = "unavailable"
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		resp.Status = "degraded"
		WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) PublicConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.Navigator.Catalog.Config(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if cfg.Features == nil {
		cfg.Features = map[string]bool{}
	}
	WriteJSON(w, http.StatusOK, PublicConfigResponse{
		Version:     cfg.Version,
		Features:    cfg.Features,
		LastUpdated: cfg.LastUpdated,
	})
}

func (s *Server) ListSemesters(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, SemestersResponse{Items: models.Semesters})
}

func (s *Server) ListSubjects(w http.ResponseWriter, r *http.Request) {
	sem, ok := s.semesterParam(w, r)
	if !ok {
		return
	}
	writeView(w, s.Navigator.SubjectsView(r.Context(), sem))
}

func (s *Server) ListEntries(collection services.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sem, ok := s.semesterParam(w, r)
		if !ok {
			return
		}
		query := r.URL.Query()
		subject := strings.TrimSpace(query.Get("subject"))
		filter := services.CleanSearchTerm(query.Get("q"))
		writeView(w, s.Navigator.NotesView(r.Context(), collection, sem, subject, filter))
	}
}

// Navigate applies one transition to the client-held navigator state.
func (s *Server) Navigate(w http.ResponseWriter, r *http.Request) {
	var req NavRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	state := services.InitialNavState()
	if req.State != nil {
		state = *req.State
	}
	next, view, err := s.navigate(r.Context(), state, req.Action)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if view.Status == services.StatusError {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, NavResponse{State: next, View: view})
}

func (s *Server) navigate(ctx context.Context, state services.NavState, action NavAction) (services.NavState, services.View, error) {
	nav := s.Navigator
	switch action.Type {
	case "select_semester":
		return nav.SelectSemester(ctx, state, action.Semester)
	case "select_subject":
		return nav.SelectSubject(ctx, state, action.Semester, action.Subject, services.CleanSearchTerm(action.Filter))
	case "back":
		return nav.Back(ctx, state)
	case "retry":
		if action.Retry == nil {
			return state, services.View{}, services.ErrValidation("Nothing to retry for this view")
		}
		return nav.Retry(ctx, state, *action.Retry)
	case "render", "":
		return nav.Render(ctx, state, services.CleanSearchTerm(action.Filter))
	default:
		return state, services.View{}, services.ErrValidation("Unknown navigation action")
	}
}

func (s *Server) semesterParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	sem := chi.URLParam(r, "sem")
	if !models.IsSemester(sem) {
		s.writeServiceError(w, r, services.ErrValidation("Unknown semester"))
		return "", false
	}
	return sem, true
}

// writeView answers 503 for views that failed to load; the body still
// carries the retry descriptor.
func writeView(w http.ResponseWriter, view services.View) {
	status := http.StatusOK
	if view.Status == services.StatusError {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, view)
}
