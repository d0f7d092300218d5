package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/services"
)

type AdminsResponse struct {
	Items []models.Admin `json:"items"`
}

func (s *Server) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := s.Mutator.ListAdmins(r.Context(), CurrentSession(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, AdminsResponse{Items: admins})
}

func (s *Server) DeletableAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := s.Mutator.DeletableAdmins(r.Context(), CurrentSession(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, AdminsResponse{Items: admins})
}

func (s *Server) AddAdmin(w http.ResponseWriter, r *http.Request) {
	var input services.AdminInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	res, err := s.Mutator.AddAdmin(r.Context(), CurrentSession(r), input)
	s.writeResult(w, r, http.StatusCreated, res, err)
}

func (s *Server) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	res, err := s.Mutator.DeleteAdmin(r.Context(), CurrentSession(r), chi.URLParam(r, "id"), confirmed(r))
	s.writeResult(w, r, http.StatusOK, res, err)
}
