package models

import (
	"encoding/json"
	"time"
)

// Semesters lists the catalogue's top-level keys in display order.
var Semesters = []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8"}

func IsSemester(key string) bool {
	for _, sem := range Semesters {
		if sem == key {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleGuest      Role = "guest"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

// Subject is one entry of the per-semester subject array. Key is derived
// for note paths and is never persisted.
type Subject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key,omitempty"`
}

// UnmarshalJSON also accepts the older plain-string entries.
func (s *Subject) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = Subject{Name: name}
		return nil
	}
	type plain Subject
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = Subject(decoded)
	return nil
}

// Note is a link to an externally hosted file. Videos share the shape.
type Note struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Timestamp   int64  `json:"timestamp,omitempty"`
	LastUpdated int64  `json:"lastUpdated,omitempty"`
}

type Admin struct {
	Key         string `json:"key,omitempty"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	IsPermanent bool   `json:"isPermanent"`
	DateAdded   int64  `json:"dateAdded,omitempty"`
	Deletable   bool   `json:"deletable"`
}

type AppConfig struct {
	PermanentAdmin string          `json:"permanentAdmin"`
	Version        string          `json:"version"`
	LastUpdated    int64           `json:"lastUpdated,omitempty"`
	Features       map[string]bool `json:"features,omitempty"`
}

type ChatMessage struct {
	ID           string `json:"id,omitempty"`
	Text         string `json:"text"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoURL"`
	UID          string `json:"uid"`
	Email        string `json:"email"`
	IsAdmin      bool   `json:"isAdmin"`
	IsSuperAdmin bool   `json:"isSuperAdmin"`
	Timestamp    int64  `json:"timestamp"`
}

// Identity is what the external identity provider vouches for.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

type Session struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
