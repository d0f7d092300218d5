package services

import (
	"context"
	"strings"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/store"
)

// RoleResolver derives a role from the permanent-admin config and the
// admins collection. It never writes and never elevates on failure.
type RoleResolver struct {
	Store   store.Store
	Monitor *ReadMonitor
}

func (r *RoleResolver) Resolve(ctx context.Context, email string) (models.Role, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return models.RoleGuest, nil
	}

	var permanent string
	var admins store.Snapshot
	err := r.Monitor.Watch(ctx, "role", func(ctx context.Context) error {
		snap, err := r.Store.Get(ctx, "config/permanentAdmin")
		if err != nil {
			return err
		}
		if value, ok := snap.Value.(string); ok {
			permanent = value
		}
		if strings.EqualFold(strings.TrimSpace(permanent), email) {
			return nil
		}
		admins, err = r.Store.Query(ctx, "admins", store.Query{OrderByChild: "email", EqualTo: email})
		return err
	})
	if err != nil {
		return models.RoleGuest, storeError("Could not verify your role", err)
	}
	if strings.EqualFold(strings.TrimSpace(permanent), email) {
		return models.RoleSuperAdmin, nil
	}

	children := admins.Children()
	if len(children) == 0 {
		return models.RoleGuest, nil
	}
	for _, child := range children {
		var admin models.Admin
		if err := child.Decode(&admin); err != nil {
			continue
		}
		if admin.Role == models.RoleSuperAdmin {
			return models.RoleSuperAdmin, nil
		}
	}
	return models.RoleAdmin, nil
}
