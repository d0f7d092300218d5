package services

import (
	"context"
	"strings"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/store"
)

type AdminInput struct {
	Email string      `json:"email" validate:"required,email,max=254"`
	Role  models.Role `json:"role" validate:"omitempty,oneof=admin superadmin"`
}

// ListAdmins returns every admin ordered by key, flagging which ones the
// admin panel may delete.
func (m *Mutator) ListAdmins(ctx context.Context, actor models.Session) ([]models.Admin, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	return m.readAdmins(ctx)
}

// DeletableAdmins is the delete candidate set. The permanent admin is
// never part of it.
func (m *Mutator) DeletableAdmins(ctx context.Context, actor models.Session) ([]models.Admin, error) {
	admins, err := m.ListAdmins(ctx, actor)
	if err != nil {
		return nil, err
	}
	deletable := make([]models.Admin, 0, len(admins))
	for _, admin := range admins {
		if admin.Deletable {
			deletable = append(deletable, admin)
		}
	}
	return deletable, nil
}

func (m *Mutator) readAdmins(ctx context.Context) ([]models.Admin, error) {
	snap, err := m.Store.Get(ctx, "admins")
	if err != nil {
		return nil, storeError("Could not load admins", err)
	}
	permanent, err := m.permanentAdmin(ctx)
	if err != nil {
		return nil, err
	}
	admins := []models.Admin{}
	for _, child := range snap.Children() {
		var admin models.Admin
		if err := child.Decode(&admin); err != nil {
			continue
		}
		admin.Key = child.Key
		admin.Deletable = !isPermanentAdmin(admin, permanent)
		admins = append(admins, admin)
	}
	return admins, nil
}

func (m *Mutator) permanentAdmin(ctx context.Context) (string, error) {
	snap, err := m.Store.Get(ctx, "config/permanentAdmin")
	if err != nil {
		return "", storeError("Could not load configuration", err)
	}
	value, _ := snap.Value.(string)
	return NormalizeEmail(value), nil
}

func isPermanentAdmin(admin models.Admin, permanent string) bool {
	return admin.IsPermanent || (permanent != "" && strings.EqualFold(admin.Email, permanent))
}

// AddAdmin checks for an existing record by email and then writes. The
// check and the write are separate store calls, so concurrent submissions
// of the same email can both succeed.
func (m *Mutator) AddAdmin(ctx context.Context, actor models.Session, input AdminInput) (Result, error) {
	return m.run("add_admin", func() (Result, error) {
		if err := requireSuperAdmin(actor); err != nil {
			return Result{}, err
		}
		input.Email = NormalizeEmail(input.Email)
		if err := validateInput(input); err != nil {
			return Result{}, err
		}
		if input.Role == "" {
			input.Role = models.RoleAdmin
		}
		existing, err := m.Store.Query(ctx, "admins", store.Query{OrderByChild: "email", EqualTo: input.Email})
		if err != nil {
			return Result{}, storeError("Could not check existing admins", err)
		}
		if existing.Exists() {
			return Result{}, ErrConflict("An admin with this email already exists")
		}
		all, err := m.Store.Get(ctx, "admins")
		if err != nil {
			return Result{}, storeError("Could not load admins", err)
		}
		taken, _ := all.Value.(map[string]any)
		key := ResolveAdminKey(input.Email, func(candidate string) bool {
			_, ok := taken[candidate]
			return ok
		})
		if err := m.Store.Set(ctx, store.JoinPath("admins", key), map[string]any{
			"email":       input.Email,
			"role":        string(input.Role),
			"isPermanent": false,
			"dateAdded":   store.ServerTimestamp,
		}); err != nil {
			return Result{}, storeError("Could not save the admin", err)
		}
		admins, err := m.readAdmins(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{ID: key, Admins: admins}, nil
	})
}

// DeleteAdmin refuses the permanent admin. Only this service enforces
// that; the store itself does not.
func (m *Mutator) DeleteAdmin(ctx context.Context, actor models.Session, key string, confirmed bool) (Result, error) {
	return m.run("delete_admin", func() (Result, error) {
		if err := requireSuperAdmin(actor); err != nil {
			return Result{}, err
		}
		if strings.TrimSpace(key) == "" {
			return Result{}, ErrValidation("id is required")
		}
		if !isPathKey(key) {
			return Result{}, ErrNotFound("Admin not found")
		}
		if !confirmed {
			return Result{}, ErrConfirmationRequired("Remove this admin? They will lose admin access immediately.")
		}
		path := store.JoinPath("admins", key)
		snap, err := m.Store.Get(ctx, path)
		if err != nil {
			return Result{}, storeError("Could not load the admin", err)
		}
		if !snap.Exists() {
			return Result{}, ErrNotFound("Admin not found")
		}
		var admin models.Admin
		if err := snap.Decode(&admin); err != nil {
			return Result{}, storeError("Could not load the admin", err)
		}
		permanent, err := m.permanentAdmin(ctx)
		if err != nil {
			return Result{}, err
		}
		if isPermanentAdmin(admin, permanent) {
			return Result{}, ErrValidation("The permanent admin cannot be removed")
		}
		if err := m.Store.Remove(ctx, path); err != nil {
			return Result{}, storeError("Could not remove the admin", err)
		}
		admins, err := m.readAdmins(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{ID: key, Admins: admins}, nil
	})
}
