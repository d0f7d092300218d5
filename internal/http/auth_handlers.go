package httpapi

import (
	"net/http"

	"kknotes-backend-go/internal/models"
)

type SignInRequest struct {
	IDToken string `json:"idToken"`
}

type SignInResponse struct {
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expiresAt"`
	User      models.Identity `json:"user"`
	Role      models.Role     `json:"role"`
}

type MeResponse struct {
	User         models.Identity `json:"user"`
	Role         models.Role     `json:"role"`
	IsAdmin      bool            `json:"isAdmin"`
	IsSuperAdmin bool            `json:"isSuperAdmin"`
	ExpiresAt    int64           `json:"expiresAt"`
}

func (s *Server) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	res, err := s.Sessions.SignIn(r.Context(), req.IDToken)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, SignInResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.Session.Identity,
		Role:      res.Session.Role,
	})
}

func (s *Server) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.SignOut(r.Context(), CurrentSession(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	sess := CurrentSession(r)
	WriteJSON(w, http.StatusOK, MeResponse{
		User:         sess.Identity,
		Role:         sess.Role,
		IsAdmin:      sess.Role.IsAdmin(),
		IsSuperAdmin: sess.Role.IsSuperAdmin(),
		ExpiresAt:    sess.ExpiresAt.Unix(),
	})
}
