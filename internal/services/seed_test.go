package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/store"
)

func TestBootstrapIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	boot := Bootstrap{
		Store:          s,
		PermanentAdmin: " Owner@KKNotes.dev ",
		Version:        "1.0.0",
		Features:       map[string]bool{"chat": true, "videos": false},
	}

	require.NoError(t, boot.Run(ctx))
	first, err := s.Get(ctx, "")
	require.NoError(t, err)

	require.NoError(t, boot.Run(ctx))
	second, err := s.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, first.Value, second.Value)

	admins, err := s.Get(ctx, "admins")
	require.NoError(t, err)
	require.Len(t, admins.Children(), 1)
	var admin models.Admin
	require.NoError(t, admins.Children()[0].Decode(&admin))
	assert.Equal(t, "owner@kknotes.dev", admin.Email)
	assert.Equal(t, models.RoleSuperAdmin, admin.Role)
	assert.True(t, admin.IsPermanent)

	config, err := (&Catalog{Store: s}).Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, "owner@kknotes.dev", config.PermanentAdmin)
	assert.Equal(t, "1.0.0", config.Version)
	assert.Equal(t, map[string]bool{"chat": true, "videos": false}, config.Features)
	assert.NotZero(t, config.LastUpdated)
}

func TestBootstrapSeedsSampleNotes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, Bootstrap{Store: s, PermanentAdmin: testPermanentAdmin}.Run(ctx))

	catalog := &Catalog{Store: s}
	for i, sem := range models.Semesters {
		notes, err := catalog.Entries(ctx, CollectionNotes, sem, "", "")
		require.NoError(t, err)
		require.Len(t, notes, 1, sem)
		assert.Equal(t, "sample", notes[0].ID)
		assert.Equal(t, sampleNoteLink, notes[0].Link)
		assert.Contains(t, notes[0].Title, string(rune('1'+i)))
	}
}

func TestBootstrapKeepsExistingData(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.Set(ctx, "notes/s2/n1", map[string]any{"title": "Real", "link": "https://x.io"}))
	require.NoError(t, s.Set(ctx, "config", map[string]any{"permanentAdmin": "first@kknotes.dev", "version": "0.9"}))
	require.NoError(t, s.Set(ctx, "admins/boss", map[string]any{"email": "new@kknotes.dev", "role": "superadmin", "isPermanent": true}))

	require.NoError(t, Bootstrap{Store: s, PermanentAdmin: "new@kknotes.dev", Version: "1.0"}.Run(ctx))

	notes, err := s.Get(ctx, "notes")
	require.NoError(t, err)
	assert.Len(t, notes.Children(), 1)
	version, err := s.Get(ctx, "config/version")
	require.NoError(t, err)
	assert.Equal(t, "0.9", version.Value)
	admins, err := s.Get(ctx, "admins")
	require.NoError(t, err)
	assert.Len(t, admins.Children(), 1)
}
