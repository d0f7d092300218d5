package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type ChatHistoryResponse struct {
	Messages []models.ChatMessage `json:"messages"`
}

func (s *Server) ChatHistory(w http.ResponseWriter, r *http.Request) {
	messages, err := s.Chat.Recent(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ChatHistoryResponse{Messages: messages})
}

func (s *Server) PostChat(w http.ResponseWriter, r *http.Request) {
	var input services.ChatInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	msg, err := s.Chat.Post(r.Context(), CurrentSession(r), input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, msg)
}

// ChatSocket streams the rendered feed. The first frame is the current feed.
func (s *Server) ChatSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Authenticate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var fallback []models.ChatMessage
	if s.Chat.Latest() == nil {
		if fallback, err = s.Chat.Recent(r.Context()); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	s.serveSocket(w, r, s.ChatHub, sess, func() any {
		messages := s.Chat.Latest()
		if messages == nil {
			messages = fallback
		}
		return services.ChatFeed{Type: "chat", Messages: messages}
	})
}

func (s *Server) serveSocket(w http.ResponseWriter, r *http.Request, hub *services.Hub, sess models.Session, initial func() any) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if err := hub.Add(conn, sess.ID, initial); err != nil {
		hub.Remove(conn)
		_ = conn.Close()
		return
	}
	defer func() {
		hub.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// runChat keeps the chat subscription alive, resubscribing after failures.
func (s *Server) runChat(ctx context.Context) {
	for {
		err := s.Chat.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("chat subscription failed")
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return
		}
	}
}
