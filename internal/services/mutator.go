package services

import (
	"github.com/rs/zerolog/log"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/store"
)

type MutationStatus string

const (
	MutationPending MutationStatus = "pending"
	MutationSuccess MutationStatus = "success"
	MutationError   MutationStatus = "error"
)

// Result reports a mutation outcome with the list re-read after the write.
type Result struct {
	Status  MutationStatus `json:"status"`
	Message string         `json:"message,omitempty"`
	ID      string         `json:"id,omitempty"`
	View    *View          `json:"view,omitempty"`
	Admins  []models.Admin `json:"admins,omitempty"`
}

// Mutator performs every admin write. Each operation validates its input
// before touching the store.
type Mutator struct {
	Store     store.Store
	Navigator *Navigator
	// Observer, when set, sees every status transition.
	Observer func(op string, status MutationStatus)
}

func NewMutator(s store.Store, navigator *Navigator) *Mutator {
	return &Mutator{Store: s, Navigator: navigator}
}

// run drives the pending -> success|error transition around op.
func (m *Mutator) run(op string, fn func() (Result, error)) (Result, error) {
	m.observe(op, MutationPending)
	result, err := fn()
	if err != nil {
		m.observe(op, MutationError)
		message := err.Error()
		if serr, ok := AsServiceError(err); ok {
			message = serr.Message
		} else {
			log.Error().Err(err).Str("op", op).Msg("mutation failed")
		}
		return Result{Status: MutationError, Message: message}, err
	}
	result.Status = MutationSuccess
	m.observe(op, MutationSuccess)
	return result, nil
}

func (m *Mutator) observe(op string, status MutationStatus) {
	if m.Observer != nil {
		m.Observer(op, status)
	}
}

func requireAdmin(actor models.Session) error {
	if actor.ID == "" {
		return ErrUnauthorized("Sign in to continue")
	}
	if !actor.Role.IsAdmin() {
		return ErrPermissionDenied("Admin access required")
	}
	return nil
}

func requireSuperAdmin(actor models.Session) error {
	if actor.ID == "" {
		return ErrUnauthorized("Sign in to continue")
	}
	if !actor.Role.IsSuperAdmin() {
		return ErrPermissionDenied("Super admin access required")
	}
	return nil
}
