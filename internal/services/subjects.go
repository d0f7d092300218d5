package services

import (
	"context"

	"kknotes-backend-go/internal/models"
)

// Subjects are stored as one array per semester and rewritten whole. Two
// admins editing the same semester at once race; the last write wins.
// The per-semester counter only guarantees ids are not reused after a
// delete.

type SubjectInput struct {
	Semester string `json:"semester" validate:"semester"`
	Name     string `json:"name" validate:"notblank,max=100"`
}

type subjectList struct {
	subjects []models.Subject
	counter  int
}

func (l subjectList) maxID() int {
	highest := l.counter
	for _, subject := range l.subjects {
		if subject.ID > highest {
			highest = subject.ID
		}
	}
	return highest
}

// indexOf finds a subject by its SubjectKey, so entries stored without an
// id are addressed by the slug of their name.
func (l subjectList) indexOf(key string) int {
	if !isPathKey(key) {
		return -1
	}
	for i, subject := range l.subjects {
		if SubjectKey(subject) == key {
			return i
		}
	}
	return -1
}

// stored converts the list back to its persisted form. Entries without
// ids stay plain strings.
func (l subjectList) stored() []any {
	out := make([]any, 0, len(l.subjects))
	for _, subject := range l.subjects {
		if subject.ID == 0 {
			out = append(out, subject.Name)
			continue
		}
		out = append(out, map[string]any{"id": subject.ID, "name": subject.Name})
	}
	return out
}

func (m *Mutator) readSubjects(ctx context.Context, sem string) (subjectList, error) {
	snap, err := m.Store.Get(ctx, subjectsPath(sem))
	if err != nil {
		return subjectList{}, storeError("Could not load subjects", err)
	}
	subjects, err := decodeSubjects(snap)
	if err != nil {
		return subjectList{}, storeError("Could not load subjects", err)
	}
	counterSnap, err := m.Store.Get(ctx, subjectCounterPath(sem))
	if err != nil {
		return subjectList{}, storeError("Could not load subjects", err)
	}
	counter := 0
	if value, ok := counterSnap.Value.(float64); ok {
		counter = int(value)
	}
	return subjectList{subjects: subjects, counter: counter}, nil
}

// writeSubjects rewrites the array and the counter in one update.
func (m *Mutator) writeSubjects(ctx context.Context, sem string, list subjectList) error {
	var value any
	if len(list.subjects) > 0 {
		value = list.stored()
	}
	err := m.Store.Update(ctx, "", map[string]any{
		subjectsPath(sem):       value,
		subjectCounterPath(sem): list.maxID(),
	})
	return storeError("Could not save subjects", err)
}

// AddSubject appends a subject with id one above any id ever assigned in
// the semester; the first subject gets 1.
func (m *Mutator) AddSubject(ctx context.Context, actor models.Session, input SubjectInput) (Result, error) {
	return m.run("add_subject", func() (Result, error) {
		if err := requireAdmin(actor); err != nil {
			return Result{}, err
		}
		input.Name = CleanText(input.Name)
		if err := validateInput(input); err != nil {
			return Result{}, err
		}
		list, err := m.readSubjects(ctx, input.Semester)
		if err != nil {
			return Result{}, err
		}
		subject := models.Subject{ID: list.maxID() + 1, Name: input.Name}
		list.subjects = append(list.subjects, subject)
		if err := m.writeSubjects(ctx, input.Semester, list); err != nil {
			return Result{}, err
		}
		view := m.Navigator.SubjectsView(ctx, input.Semester)
		return Result{ID: SubjectKey(subject), View: &view}, nil
	})
}

// EditSubject renames a subject. Renaming an entry without an id changes
// its key; notes filed under the old key stay where they are.
func (m *Mutator) EditSubject(ctx context.Context, actor models.Session, key string, input SubjectInput) (Result, error) {
	return m.run("edit_subject", func() (Result, error) {
		if err := requireAdmin(actor); err != nil {
			return Result{}, err
		}
		input.Name = CleanText(input.Name)
		if err := validateInput(input); err != nil {
			return Result{}, err
		}
		list, err := m.readSubjects(ctx, input.Semester)
		if err != nil {
			return Result{}, err
		}
		idx := list.indexOf(key)
		if idx < 0 {
			return Result{}, ErrNotFound("Subject not found")
		}
		list.subjects[idx].Name = input.Name
		if err := m.writeSubjects(ctx, input.Semester, list); err != nil {
			return Result{}, err
		}
		view := m.Navigator.SubjectsView(ctx, input.Semester)
		return Result{ID: SubjectKey(list.subjects[idx]), View: &view}, nil
	})
}

// DeleteSubject drops the subject from the list. Notes and videos filed
// under it stay in place.
func (m *Mutator) DeleteSubject(ctx context.Context, actor models.Session, sem, key string, confirmed bool) (Result, error) {
	return m.run("delete_subject", func() (Result, error) {
		if err := requireAdmin(actor); err != nil {
			return Result{}, err
		}
		if !models.IsSemester(sem) {
			return Result{}, ErrValidation("Unknown semester")
		}
		if !confirmed {
			return Result{}, ErrConfirmationRequired("Delete this subject? Its notes and videos are kept but will no longer be listed.")
		}
		list, err := m.readSubjects(ctx, sem)
		if err != nil {
			return Result{}, err
		}
		idx := list.indexOf(key)
		if idx < 0 {
			return Result{}, ErrNotFound("Subject not found")
		}
		list.counter = list.maxID()
		list.subjects = append(list.subjects[:idx:idx], list.subjects[idx+1:]...)
		if err := m.writeSubjects(ctx, sem, list); err != nil {
			return Result{}, err
		}
		view := m.Navigator.SubjectsView(ctx, sem)
		return Result{ID: key, View: &view}, nil
	})
}
