package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"kknotes-backend-go/internal/services"
)

type EntryRequest struct {
	Subject string `json:"subject"`
	Title   string `json:"title"`
	Link    string `json:"link"`
}

type SubjectRequest struct {
	Name string `json:"name"`
}

func confirmed(r *http.Request) bool {
	value, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return value
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, status int, res services.Result, err error) {
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, status, res)
}

func (s *Server) AddEntry(collection services.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EntryRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		res, err := s.Mutator.AddEntry(r.Context(), CurrentSession(r), collection, services.EntryInput{
			Semester: chi.URLParam(r, "sem"),
			Subject:  req.Subject,
			Title:    req.Title,
			Link:     req.Link,
		})
		s.writeResult(w, r, http.StatusCreated, res, err)
	}
}

func (s *Server) UpdateEntry(collection services.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EntryRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		res, err := s.Mutator.UpdateEntry(r.Context(), CurrentSession(r), collection, chi.URLParam(r, "id"), services.EntryInput{
			Semester: chi.URLParam(r, "sem"),
			Subject:  req.Subject,
			Title:    req.Title,
			Link:     req.Link,
		})
		s.writeResult(w, r, http.StatusOK, res, err)
	}
}

func (s *Server) DeleteEntry(collection services.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject := strings.TrimSpace(r.URL.Query().Get("subject"))
		res, err := s.Mutator.DeleteEntry(r.Context(), CurrentSession(r), collection,
			chi.URLParam(r, "sem"), subject, chi.URLParam(r, "id"), confirmed(r))
		s.writeResult(w, r, http.StatusOK, res, err)
	}
}

func (s *Server) AddSubject(w http.ResponseWriter, r *http.Request) {
	var req SubjectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	res, err := s.Mutator.AddSubject(r.Context(), CurrentSession(r), services.SubjectInput{
		Semester: chi.URLParam(r, "sem"),
		Name:     req.Name,
	})
	s.writeResult(w, r, http.StatusCreated, res, err)
}

func (s *Server) EditSubject(w http.ResponseWriter, r *http.Request) {
	var req SubjectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	res, err := s.Mutator.EditSubject(r.Context(), CurrentSession(r), chi.URLParam(r, "id"), services.SubjectInput{
		Semester: chi.URLParam(r, "sem"),
		Name:     req.Name,
	})
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	res, err := s.Mutator.DeleteSubject(r.Context(), CurrentSession(r), chi.URLParam(r, "sem"), chi.URLParam(r, "id"), confirmed(r))
	s.writeResult(w, r, http.StatusOK, res, err)
}
