package services

import (
	"context"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/store"
)

type EntryInput struct {
	Semester string `json:"semester" validate:"semester"`
	Subject  string `json:"subject" validate:"omitempty,max=64,pathkey"`
	Title    string `json:"title" validate:"notblank,max=200"`
	Link     string `json:"link" validate:"notblank,absurl"`
}

func (in EntryInput) clean() EntryInput {
	in.Subject = CleanText(in.Subject)
	in.Title = CleanText(in.Title)
	in.Link = CleanText(in.Link)
	return in
}

// AddEntry pushes a new note or video stamped with the store clock.
func (m *Mutator) AddEntry(ctx context.Context, actor models.Session, collection Collection, input EntryInput) (Result, error) {
	return m.run("add_"+collection.Singular(), func() (Result, error) {
		if err := requireAdmin(actor); err != nil {
			return Result{}, err
		}
		if !collection.Valid() {
			return Result{}, ErrValidation("Unknown collection")
		}
		input = input.clean()
		if err := validateInput(input); err != nil {
			return Result{}, err
		}
		id, err := m.Store.Push(ctx, entriesPath(collection, input.Semester, input.Subject), map[string]any{
			"title":     input.Title,
			"link":      input.Link,
			"timestamp": store.ServerTimestamp,
		})
		if err != nil {
			return Result{}, storeError("Could not save the "+collection.Singular(), err)
		}
		view := m.Navigator.NotesView(ctx, collection, input.Semester, input.Subject, "")
		return Result{ID: id, View: &view}, nil
	})
}

// UpdateEntry rewrites title and link of an existing entry.
func (m *Mutator) UpdateEntry(ctx context.Context, actor models.Session, collection Collection, id string, input EntryInput) (Result, error) {
	return m.run("update_"+collection.Singular(), func() (Result, error) {
		if err := requireAdmin(actor); err != nil {
			return Result{}, err
		}
		if !collection.Valid() {
			return Result{}, ErrValidation("Unknown collection")
		}
		input = input.clean()
		if err := validateInput(input); err != nil {
			return Result{}, err
		}
		if id == "" {
			return Result{}, ErrValidation("id is required")
		}
		if !isPathKey(id) {
			return Result{}, ErrNotFound("This " + collection.Singular() + " no longer exists")
		}
		path := store.JoinPath(entriesPath(collection, input.Semester, input.Subject), id)
		if err := m.requireEntry(ctx, collection, path); err != nil {
			return Result{}, err
		}
		if err := m.Store.Update(ctx, path, map[string]any{
			"title":       input.Title,
			"link":        input.Link,
			"lastUpdated": store.ServerTimestamp,
		}); err != nil {
			return Result{}, storeError("Could not update the "+collection.Singular(), err)
		}
		view := m.Navigator.NotesView(ctx, collection, input.Semester, input.Subject, "")
		return Result{ID: id, View: &view}, nil
	})
}

// DeleteEntry removes an entry once the caller has confirmed.
func (m *Mutator) DeleteEntry(ctx context.Context, actor models.Session, collection Collection, sem, subject, id string, confirmed bool) (Result, error) {
	return m.run("delete_"+collection.Singular(), func() (Result, error) {
		if err := requireAdmin(actor); err != nil {
			return Result{}, err
		}
		if !collection.Valid() {
			return Result{}, ErrValidation("Unknown collection")
		}
		if !models.IsSemester(sem) {
			return Result{}, ErrValidation("Unknown semester")
		}
		if id == "" {
			return Result{}, ErrValidation("id is required")
		}
		if subject != "" && !isPathKey(subject) {
			return Result{}, ErrValidation("subject must not contain / . # $ [ or ]")
		}
		if !isPathKey(id) {
			return Result{}, ErrNotFound("This " + collection.Singular() + " no longer exists")
		}
		if !confirmed {
			return Result{}, ErrConfirmationRequired("Are you sure you want to delete this " + collection.Singular() + "? This cannot be undone.")
		}
		path := store.JoinPath(entriesPath(collection, sem, subject), id)
		if err := m.requireEntry(ctx, collection, path); err != nil {
			return Result{}, err
		}
		if err := m.Store.Remove(ctx, path); err != nil {
			return Result{}, storeError("Could not delete the "+collection.Singular(), err)
		}
		view := m.Navigator.NotesView(ctx, collection, sem, subject, "")
		return Result{ID: id, View: &view}, nil
	})
}

func (m *Mutator) requireEntry(ctx context.Context, collection Collection, path string) error {
	snap, err := m.Store.Get(ctx, path)
	if err != nil {
		return storeError("Could not load the "+collection.Singular(), err)
	}
	fields, ok := snap.Value.(map[string]any)
	if !ok {
		return ErrNotFound("This " + collection.Singular() + " no longer exists")
	}
	if _, hasTitle := fields["title"]; !hasTitle {
		return ErrNotFound("This " + collection.Singular() + " no longer exists")
	}
	return nil
}

func (m *Mutator) AddNote(ctx context.Context, actor models.Session, input EntryInput) (Result, error) {
	return m.AddEntry(ctx, actor, CollectionNotes, input)
}

func (m *Mutator) UpdateNote(ctx context.Context, actor models.Session, id string, input EntryInput) (Result, error) {
	return m.UpdateEntry(ctx, actor, CollectionNotes, id, input)
}

func (m *Mutator) DeleteNote(ctx context.Context, actor models.Session, sem, subject, id string, confirmed bool) (Result, error) {
	return m.DeleteEntry(ctx, actor, CollectionNotes, sem, subject, id, confirmed)
}

func (m *Mutator) AddVideo(ctx context.Context, actor models.Session, input EntryInput) (Result, error) {
	return m.AddEntry(ctx, actor, CollectionVideos, input)
}

func (m *Mutator) UpdateVideo(ctx context.Context, actor models.Session, id string, input EntryInput) (Result, error) {
	return m.UpdateEntry(ctx, actor, CollectionVideos, id, input)
}

func (m *Mutator) DeleteVideo(ctx context.Context, actor models.Session, sem, subject, id string, confirmed bool) (Result, error) {
	return m.DeleteEntry(ctx, actor, CollectionVideos, sem, subject, id, confirmed)
}
