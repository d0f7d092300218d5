package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/store"
)

const sampleNoteLink = "https://drive.google.com/sample-link"

// Bootstrap creates config, the permanent admin and sample notes when
// they are missing. Running it again changes nothing.
type Bootstrap struct {
	Store          store.Store
	PermanentAdmin string
	Version        string
	Features       map[string]bool
}

func (b Bootstrap) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.ensureConfig(ctx) })
	g.Go(func() error { return b.ensurePermanentAdmin(ctx) })
	g.Go(func() error { return b.ensureSampleNotes(ctx) })
	return g.Wait()
}

func (b Bootstrap) ensureConfig(ctx context.Context) error {
	snap, err := b.Store.Get(ctx, "config")
	if err != nil {
		return WrapError(err, "read config")
	}
	if snap.Exists() {
		return nil
	}
	features := map[string]any{}
	for name, enabled := range b.Features {
		features[name] = enabled
	}
	if err := b.Store.Set(ctx, "config", map[string]any{
		"permanentAdmin": NormalizeEmail(b.PermanentAdmin),
		"version":        b.Version,
		"features":       features,
		"lastUpdated":    store.ServerTimestamp,
	}); err != nil {
		return WrapError(err, "write config")
	}
	log.Info().Str("version", b.Version).Msg("config initialised")
	return nil
}

func (b Bootstrap) ensurePermanentAdmin(ctx context.Context) error {
	email := NormalizeEmail(b.PermanentAdmin)
	if email == "" {
		return nil
	}
	existing, err := b.Store.Query(ctx, "admins", store.Query{OrderByChild: "email", EqualTo: email})
	if err != nil {
		return WrapError(err, "read admins")
	}
	if existing.Exists() {
		return nil
	}
	all, err := b.Store.Get(ctx, "admins")
	if err != nil {
		return WrapError(err, "read admins")
	}
	taken, _ := all.Value.(map[string]any)
	key := ResolveAdminKey(email, func(candidate string) bool {
		_, ok := taken[candidate]
		return ok
	})
	if err := b.Store.Set(ctx, store.JoinPath("admins", key), map[string]any{
		"email":       email,
		"role":        string(models.RoleSuperAdmin),
		"isPermanent": true,
		"dateAdded":   store.ServerTimestamp,
	}); err != nil {
		return WrapError(err, "write permanent admin")
	}
	log.Info().Str("email", email).Msg("permanent admin created")
	return nil
}

func (b Bootstrap) ensureSampleNotes(ctx context.Context) error {
	snap, err := b.Store.Query(ctx, "notes", store.Query{LimitToLast: 1})
	if err != nil {
		return WrapError(err, "read notes")
	}
	if snap.Exists() {
		return nil
	}
	fields := make(map[string]any, len(models.Semesters))
	for i, sem := range models.Semesters {
		fields[store.JoinPath(sem, "sample")] = map[string]any{
			"title":     fmt.Sprintf("Sample S%d Note", i+1),
			"link":      sampleNoteLink,
			"timestamp": store.ServerTimestamp,
		}
	}
	if err := b.Store.Update(ctx, "notes", fields); err != nil {
		return WrapError(err, "write sample notes")
	}
	log.Info().Msg("sample notes created")
	return nil
}
