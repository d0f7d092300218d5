package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/store"
)

const DefaultChatLimit = 50

type ChatInput struct {
	Text string `json:"text" validate:"notblank,max=1000"`
}

// ChatFeed is one full rendering of the recent messages.
type ChatFeed struct {
	Type     string               `json:"type"`
	Messages []models.ChatMessage `json:"messages"`
}

// Chat renders the live feed from a store subscription and posts messages.
type Chat struct {
	Store   store.Store
	Hub     *Hub
	Limit   int
	Monitor *ReadMonitor

	mu   sync.RWMutex
	last []models.ChatMessage
}

func NewChat(s store.Store, hub *Hub, limit int, monitor *ReadMonitor) *Chat {
	if limit <= 0 {
		limit = DefaultChatLimit
	}
	return &Chat{Store: s, Hub: hub, Limit: limit, Monitor: monitor}
}

func (c *Chat) query() store.Query {
	return store.Query{OrderByChild: "timestamp", LimitToLast: c.Limit}
}

// Run keeps the feed subscription open until ctx ends. Every snapshot
// replaces the rendered feed and is pushed to connected clients.
func (c *Chat) Run(ctx context.Context) error {
	unsubscribe, err := c.Store.Subscribe(ctx, "chat", c.query(), func(snap store.Snapshot) {
		messages := RenderChat(snap, c.Limit)
		c.mu.Lock()
		c.last = messages
		c.mu.Unlock()
		if c.Hub != nil {
			c.Hub.Broadcast(ChatFeed{Type: "chat", Messages: messages})
		}
	})
	if err != nil {
		c.Monitor.Reconnect()
		return storeError("Could not subscribe to chat", err)
	}
	<-ctx.Done()
	unsubscribe()
	return nil
}

// Latest is the most recently rendered feed, nil before the first snapshot.
func (c *Chat) Latest() []models.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Chat) Recent(ctx context.Context) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := c.Monitor.Watch(ctx, "chat", func(ctx context.Context) error {
		snap, err := c.Store.Query(ctx, "chat", c.query())
		if err != nil {
			return err
		}
		messages = RenderChat(snap, c.Limit)
		return nil
	})
	if err != nil {
		return nil, storeError("Could not load chat", err)
	}
	return messages, nil
}

// Post appends a message. Authorship is copied from the session as it is
// now; later role changes do not touch existing messages.
func (c *Chat) Post(ctx context.Context, sess models.Session, input ChatInput) (models.ChatMessage, error) {
	if sess.ID == "" {
		return models.ChatMessage{}, ErrUnauthorized("Sign in to chat")
	}
	input.Text = CleanText(input.Text)
	if err := validateInput(input); err != nil {
		return models.ChatMessage{}, err
	}
	displayName := strings.TrimSpace(sess.Identity.DisplayName)
	if displayName == "" {
		displayName = sess.Identity.Email
	}
	msg := models.ChatMessage{
		Text:         input.Text,
		DisplayName:  displayName,
		PhotoURL:     sess.Identity.PhotoURL,
		UID:          sess.Identity.UID,
		Email:        sess.Identity.Email,
		IsAdmin:      sess.Role.IsAdmin(),
		IsSuperAdmin: sess.Role.IsSuperAdmin(),
	}
	id, err := c.Store.Push(ctx, "chat", map[string]any{
		"text":         msg.Text,
		"displayName":  msg.DisplayName,
		"photoURL":     msg.PhotoURL,
		"uid":          msg.UID,
		"email":        msg.Email,
		"isAdmin":      msg.IsAdmin,
		"isSuperAdmin": msg.IsSuperAdmin,
		"timestamp":    store.ServerTimestamp,
	})
	if err != nil {
		return models.ChatMessage{}, storeError("Could not send your message", err)
	}
	msg.ID = id
	log.Debug().Str("uid", msg.UID).Str("id", id).Msg("chat message posted")
	return msg, nil
}

// RenderChat orders a snapshot ascending by timestamp and keeps the last
// limit messages.
func RenderChat(snap store.Snapshot, limit int) []models.ChatMessage {
	messages := []models.ChatMessage{}
	for _, child := range snap.Children() {
		var msg models.ChatMessage
		if err := child.Decode(&msg); err != nil {
			continue
		}
		msg.ID = child.Key
		messages = append(messages, msg)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Timestamp != messages[j].Timestamp {
			return messages[i].Timestamp < messages[j].Timestamp
		}
		return messages[i].ID < messages[j].ID
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages
}
