package services

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/store"
)

type Collection string

const (
	CollectionNotes  Collection = "notes"
	CollectionVideos Collection = "videos"
)

func (c Collection) Valid() bool {
	return c == CollectionNotes || c == CollectionVideos
}

// Singular is the entry name used in user-facing messages.
func (c Collection) Singular() string {
	if c == CollectionVideos {
		return "video"
	}
	return "note"
}

// Catalog reads the public semester/subject/entry hierarchy.
type Catalog struct {
	Store   store.Store
	Monitor *ReadMonitor
}

func subjectsPath(sem string) string {
	return store.JoinPath("subjects", sem)
}

func subjectCounterPath(sem string) string {
	return store.JoinPath("subjectCounters", sem)
}

// entriesPath addresses notes/{sem} or notes/{sem}/{subjectKey}.
func entriesPath(collection Collection, sem, subject string) string {
	return store.JoinPath(string(collection), sem, subject)
}

// SubjectKey is the segment notes are filed under: the id, or the slug
// of the name for entries without one.
func SubjectKey(subject models.Subject) string {
	if subject.ID > 0 {
		return strconv.Itoa(subject.ID)
	}
	return Slugify(subject.Name)
}

// Subjects returns a semester's subjects ascending by id. Entries without
// ids keep their source order.
func (c *Catalog) Subjects(ctx context.Context, sem string) ([]models.Subject, error) {
	if !models.IsSemester(sem) {
		return nil, ErrValidation("Unknown semester")
	}
	var subjects []models.Subject
	err := c.Monitor.Watch(ctx, subjectsPath(sem), func(ctx context.Context) error {
		snap, err := c.Store.Get(ctx, subjectsPath(sem))
		if err != nil {
			return err
		}
		subjects, err = decodeSubjects(snap)
		return err
	})
	if err != nil {
		return nil, storeError("Could not load subjects", err)
	}
	sorted := append([]models.Subject(nil), subjects...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for i := range sorted {
		sorted[i].Key = SubjectKey(sorted[i])
	}
	return sorted, nil
}

// decodeSubjects keeps source order and skips holes.
func decodeSubjects(snap store.Snapshot) ([]models.Subject, error) {
	subjects := []models.Subject{}
	switch snap.Value.(type) {
	case nil:
		return subjects, nil
	case []any:
		var decoded []models.Subject
		if err := snap.Decode(&decoded); err != nil {
			return nil, err
		}
		for _, subject := range decoded {
			if subject.ID != 0 || subject.Name != "" {
				subjects = append(subjects, subject)
			}
		}
	default:
		for _, child := range snap.Children() {
			var subject models.Subject
			if err := child.Decode(&subject); err != nil {
				continue
			}
			if subject.ID != 0 || subject.Name != "" {
				subjects = append(subjects, subject)
			}
		}
	}
	return subjects, nil
}

// Entries lists notes or videos in store key order. Subject subtrees
// sharing the semester node are skipped.
func (c *Catalog) Entries(ctx context.Context, collection Collection, sem, subject, filter string) ([]models.Note, error) {
	if !collection.Valid() {
		return nil, ErrValidation("Unknown collection")
	}
	if !models.IsSemester(sem) {
		return nil, ErrValidation("Unknown semester")
	}
	path := entriesPath(collection, sem, subject)
	var entries []models.Note
	err := c.Monitor.Watch(ctx, path, func(ctx context.Context) error {
		snap, err := c.Store.Get(ctx, path)
		if err != nil {
			return err
		}
		entries = decodeEntries(snap)
		return nil
	})
	if err != nil {
		return nil, storeError("Could not load "+string(collection), err)
	}
	return FilterEntries(entries, filter), nil
}

func decodeEntries(snap store.Snapshot) []models.Note {
	entries := []models.Note{}
	for _, child := range snap.Children() {
		fields, ok := child.Value.(map[string]any)
		if !ok {
			continue
		}
		if _, hasTitle := fields["title"].(string); !hasTitle {
			continue
		}
		var note models.Note
		if err := child.Decode(&note); err != nil {
			continue
		}
		note.ID = child.Key
		entries = append(entries, note)
	}
	return entries
}

// FilterEntries narrows entries to titles containing term, keeping order.
func FilterEntries(entries []models.Note, term string) []models.Note {
	term = strings.ToLower(CleanSearchTerm(term))
	if term == "" {
		return entries
	}
	filtered := make([]models.Note, 0, len(entries))
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Title), term) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func (c *Catalog) Config(ctx context.Context) (models.AppConfig, error) {
	var cfg models.AppConfig
	err := c.Monitor.Watch(ctx, "config", func(ctx context.Context) error {
		snap, err := c.Store.Get(ctx, "config")
		if err != nil {
			return err
		}
		if !snap.Exists() {
			return nil
		}
		return snap.Decode(&cfg)
	})
	if err != nil {
		return models.AppConfig{}, storeError("Could not load configuration", err)
	}
	return cfg, nil
}
