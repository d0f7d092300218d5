package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kknotes-backend-go/internal/models"
)

func subjectIDs(t *testing.T, env *testEnv, sem string) []models.Subject {
	t.Helper()
	subjects, err := env.navigator.Catalog.Subjects(env.ctx, sem)
	require.NoError(t, err)
	for i := range subjects {
		subjects[i].Key = ""
	}
	return subjects
}

func TestSubjectIDsAreNeverReused(t *testing.T) {
	env := newTestEnv(t)
	actor := adminSession()
	require.NoError(t, env.store.Set(env.ctx, "subjects/s1", []any{}))

	res, err := env.mutator.AddSubject(env.ctx, actor, SubjectInput{Semester: "s1", Name: "Calculus"})
	require.NoError(t, err)
	assert.Equal(t, MutationSuccess, res.Status)
	assert.Equal(t, []models.Subject{{ID: 1, Name: "Calculus"}}, subjectIDs(t, env, "s1"))

	_, err = env.mutator.AddSubject(env.ctx, actor, SubjectInput{Semester: "s1", Name: "Physics"})
	require.NoError(t, err)
	assert.Equal(t, []models.Subject{{ID: 1, Name: "Calculus"}, {ID: 2, Name: "Physics"}}, subjectIDs(t, env, "s1"))

	_, err = env.mutator.DeleteSubject(env.ctx, actor, "s1", "1", true)
	require.NoError(t, err)
	assert.Equal(t, []models.Subject{{ID: 2, Name: "Physics"}}, subjectIDs(t, env, "s1"))

	res, err = env.mutator.AddSubject(env.ctx, actor, SubjectInput{Semester: "s1", Name: "Chemistry"})
	require.NoError(t, err)
	assert.Equal(t, "3", res.ID)
	assert.Equal(t, []models.Subject{{ID: 2, Name: "Physics"}, {ID: 3, Name: "Chemistry"}}, subjectIDs(t, env, "s1"))

	// Deleting the highest id still does not free it.
	_, err = env.mutator.DeleteSubject(env.ctx, actor, "s1", "3", true)
	require.NoError(t, err)
	res, err = env.mutator.AddSubject(env.ctx, actor, SubjectInput{Semester: "s1", Name: "Biology"})
	require.NoError(t, err)
	assert.Equal(t, "4", res.ID)
}

func TestAddSubjectUsesMaxExistingID(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Set(env.ctx, "subjects/s2", []any{
		map[string]any{"id": 7, "name": "Networks"},
		map[string]any{"id": 3, "name": "Databases"},
	}))
	res, err := env.mutator.AddSubject(env.ctx, adminSession(), SubjectInput{Semester: "s2", Name: "Compilers"})
	require.NoError(t, err)
	assert.Equal(t, "8", res.ID)
	require.NotNil(t, res.View)
	assert.Equal(t, ScreenSubjects, res.View.Screen)
	assert.Len(t, res.View.Subjects, 3)
}

func TestDeleteSubjectKeepsNotes(t *testing.T) {
	env := newTestEnv(t)
	actor := adminSession()
	_, err := env.mutator.AddSubject(env.ctx, actor, SubjectInput{Semester: "s1", Name: "Calculus"})
	require.NoError(t, err)
	_, err = env.mutator.AddNote(env.ctx, actor, EntryInput{Semester: "s1", Subject: "1", Title: "Limits", Link: "https://drive.example.com/limits"})
	require.NoError(t, err)
	_, err = env.mutator.AddVideo(env.ctx, actor, EntryInput{Semester: "s1", Subject: "1", Title: "Lecture 1", Link: "https://video.example.com/1"})
	require.NoError(t, err)

	_, err = env.mutator.DeleteSubject(env.ctx, actor, "s1", "1", true)
	require.NoError(t, err)

	assert.Empty(t, subjectIDs(t, env, "s1"))
	notes, err := env.navigator.Catalog.Entries(env.ctx, CollectionNotes, "s1", "1", "")
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	videos, err := env.navigator.Catalog.Entries(env.ctx, CollectionVideos, "s1", "1", "")
	require.NoError(t, err)
	assert.Len(t, videos, 1)
}

func TestDeleteSubjectRequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	actor := adminSession()
	_, err := env.mutator.AddSubject(env.ctx, actor, SubjectInput{Semester: "s1", Name: "Calculus"})
	require.NoError(t, err)

	res, err := env.mutator.DeleteSubject(env.ctx, actor, "s1", "1", false)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfirmationRequired))
	assert.Equal(t, MutationError, res.Status)
	assert.Contains(t, res.Message, "kept")
	assert.Len(t, subjectIDs(t, env, "s1"), 1)
}

func TestEditSubject(t *testing.T) {
	env := newTestEnv(t)
	actor := adminSession()
	_, err := env.mutator.AddSubject(env.ctx, actor, SubjectInput{Semester: "s3", Name: "Calculs"})
	require.NoError(t, err)

	_, err = env.mutator.EditSubject(env.ctx, actor, "1", SubjectInput{Semester: "s3", Name: "Calculus"})
	require.NoError(t, err)
	assert.Equal(t, []models.Subject{{ID: 1, Name: "Calculus"}}, subjectIDs(t, env, "s3"))

	_, err = env.mutator.EditSubject(env.ctx, actor, "9", SubjectInput{Semester: "s3", Name: "Ghost"})
	assert.True(t, IsKind(err, KindNotFound))
}

func TestSubjectValidation(t *testing.T) {
	env := newTestEnv(t)
	actor := adminSession()

	_, err := env.mutator.AddSubject(env.ctx, actor, SubjectInput{Semester: "s1", Name: "   "})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	_, err = env.mutator.AddSubject(env.ctx, actor, SubjectInput{Semester: "s9", Name: "Math"})
	assert.True(t, IsKind(err, KindValidation))

	snap, err := env.store.Get(env.ctx, "subjects")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestLegacyStringSubjectsSurviveRewrite(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Set(env.ctx, "subjects/s4", []any{"Old Maths"}))

	_, err := env.mutator.AddSubject(env.ctx, adminSession(), SubjectInput{Semester: "s4", Name: "New Physics"})
	require.NoError(t, err)

	snap, err := env.store.Get(env.ctx, "subjects/s4")
	require.NoError(t, err)
	assert.Equal(t, []any{"Old Maths", map[string]any{"id": float64(1), "name": "New Physics"}}, snap.Value)

	subjects, err := env.navigator.Catalog.Subjects(env.ctx, "s4")
	require.NoError(t, err)
	assert.Equal(t, "old-maths", subjects[0].Key)
	assert.Equal(t, "1", subjects[1].Key)
}

func TestLegacyStringSubjectsAreEditableByKey(t *testing.T) {
	env := newTestEnv(t)
	actor := adminSession()
	require.NoError(t, env.store.Set(env.ctx, "subjects/s1", []any{"Maths", map[string]any{"id": 1, "name": "Physics"}}))

	res, err := env.mutator.EditSubject(env.ctx, actor, "maths", SubjectInput{Semester: "s1", Name: "Applied Maths"})
	require.NoError(t, err)
	assert.Equal(t, "applied-maths", res.ID)

	snap, err := env.store.Get(env.ctx, "subjects/s1")
	require.NoError(t, err)
	assert.Equal(t, []any{"Applied Maths", map[string]any{"id": float64(1), "name": "Physics"}}, snap.Value)

	_, err = env.mutator.DeleteSubject(env.ctx, actor, "s1", "maths", true)
	assert.True(t, IsKind(err, KindNotFound))

	_, err = env.mutator.DeleteSubject(env.ctx, actor, "s1", "applied-maths", true)
	require.NoError(t, err)
	subjects, err := env.navigator.Catalog.Subjects(env.ctx, "s1")
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Physics", subjects[0].Name)

	_, err = env.mutator.DeleteSubject(env.ctx, actor, "s1", "a/b", true)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestSubjectMutationsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.mutator.AddSubject(env.ctx, guestSession(), SubjectInput{Semester: "s1", Name: "Math"})
	assert.True(t, IsKind(err, KindPermissionDenied))

	_, err = env.mutator.AddSubject(env.ctx, models.Session{}, SubjectInput{Semester: "s1", Name: "Math"})
	assert.True(t, IsKind(err, KindUnauthorized))
}
