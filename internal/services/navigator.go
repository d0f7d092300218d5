package services

import (
	"context"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/store"
)

type Screen string

const (
	ScreenSubjects Screen = "subjects"
	ScreenNotes    Screen = "notes"
)

type ViewStatus string

const (
	StatusReady ViewStatus = "ready"
	StatusEmpty ViewStatus = "empty"
	StatusError ViewStatus = "error"
)

const (
	emptySubjectsMessage = "No subjects have been added to this semester yet."
	emptyNotesMessage    = "No notes have been shared for this subject yet."
	emptyVideosMessage   = "No videos have been shared for this subject yet."
)

// NavState is the navigator's whole state. Clients hold it and send it
// back with every action; the service keeps nothing between calls.
type NavState struct {
	Semester       string           `json:"semester"`
	Subject        string           `json:"subject,omitempty"`
	Subjects       []models.Subject `json:"subjects,omitempty"`
	SubjectsLoaded bool             `json:"subjectsLoaded"`
}

func InitialNavState() NavState {
	return NavState{Semester: models.Semesters[0]}
}

func (s NavState) Screen() Screen {
	if s.Subject != "" {
		return ScreenNotes
	}
	return ScreenSubjects
}

// ReadRequest describes a read so a failed one can be re-issued as is.
type ReadRequest struct {
	Screen   Screen `json:"screen"`
	Semester string `json:"semester"`
	Subject  string `json:"subject,omitempty"`
	Filter   string `json:"filter,omitempty"`
}

type View struct {
	Screen   Screen           `json:"screen"`
	Status   ViewStatus       `json:"status"`
	Message  string           `json:"message,omitempty"`
	Semester string           `json:"semester"`
	Subject  string           `json:"subject,omitempty"`
	Subjects []models.Subject `json:"subjects,omitempty"`
	Notes    []models.Note    `json:"notes,omitempty"`
	Retry    *ReadRequest     `json:"retry,omitempty"`
}

type Navigator struct {
	Catalog *Catalog
}

func NewNavigator(s store.Store, monitor *ReadMonitor) *Navigator {
	return &Navigator{Catalog: &Catalog{Store: s, Monitor: monitor}}
}

// SelectSemester is legal from any state and drops the subject selection.
func (n *Navigator) SelectSemester(ctx context.Context, state NavState, sem string) (NavState, View, error) {
	if !models.IsSemester(sem) {
		return state, View{}, ErrValidation("Unknown semester")
	}
	next := NavState{Semester: sem}
	view := n.loadSubjects(ctx, &next)
	return next, view, nil
}

// SelectSubject is legal only while viewing the same semester's subjects.
func (n *Navigator) SelectSubject(ctx context.Context, state NavState, sem, subject, filter string) (NavState, View, error) {
	if state.Screen() != ScreenSubjects || state.Semester != sem {
		return state, View{}, ErrValidation("Pick a subject from the semester you are viewing")
	}
	if subject == "" {
		return state, View{}, ErrValidation("Subject is required")
	}
	if !isPathKey(subject) {
		return state, View{}, ErrValidation("Invalid subject")
	}
	next := state
	next.Subject = subject
	return next, n.NotesView(ctx, CollectionNotes, sem, subject, filter), nil
}

// Back returns to the subject list, reusing the cached subjects.
func (n *Navigator) Back(ctx context.Context, state NavState) (NavState, View, error) {
	if state.Screen() != ScreenNotes {
		return state, View{}, ErrValidation("Already viewing subjects")
	}
	next := state
	next.Subject = ""
	if next.SubjectsLoaded {
		return next, subjectsView(next.Semester, next.Subjects), nil
	}
	view := n.loadSubjects(ctx, &next)
	return next, view, nil
}

// Retry re-issues the read described by req. It must describe the read of
// the current state.
func (n *Navigator) Retry(ctx context.Context, state NavState, req ReadRequest) (NavState, View, error) {
	if req.Screen != state.Screen() || req.Semester != state.Semester || req.Subject != state.Subject {
		return state, View{}, ErrValidation("Nothing to retry for this view")
	}
	return n.issue(ctx, state, req)
}

// Render re-reads the current state, e.g. after a mutation.
func (n *Navigator) Render(ctx context.Context, state NavState, filter string) (NavState, View, error) {
	if !models.IsSemester(state.Semester) {
		return state, View{}, ErrValidation("Unknown semester")
	}
	return n.issue(ctx, state, ReadRequest{
		Screen:   state.Screen(),
		Semester: state.Semester,
		Subject:  state.Subject,
		Filter:   filter,
	})
}

func (n *Navigator) issue(ctx context.Context, state NavState, req ReadRequest) (NavState, View, error) {
	if req.Screen == ScreenNotes {
		return state, n.NotesView(ctx, CollectionNotes, req.Semester, req.Subject, req.Filter), nil
	}
	next := state
	view := n.loadSubjects(ctx, &next)
	return next, view, nil
}

// loadSubjects reads the semester's subjects and refreshes the cache on success.
func (n *Navigator) loadSubjects(ctx context.Context, state *NavState) View {
	subjects, err := n.Catalog.Subjects(ctx, state.Semester)
	if err != nil {
		return errorView(ScreenSubjects, state.Semester, "", "", err)
	}
	state.Subjects = subjects
	state.SubjectsLoaded = true
	return subjectsView(state.Semester, subjects)
}

// SubjectsView renders a semester's subject list without navigator state.
func (n *Navigator) SubjectsView(ctx context.Context, sem string) View {
	state := NavState{Semester: sem}
	return n.loadSubjects(ctx, &state)
}

// NotesView renders one entry list. It is also used to refresh after mutations.
func (n *Navigator) NotesView(ctx context.Context, collection Collection, sem, subject, filter string) View {
	entries, err := n.Catalog.Entries(ctx, collection, sem, subject, filter)
	if err != nil {
		return errorView(ScreenNotes, sem, subject, filter, err)
	}
	view := View{Screen: ScreenNotes, Semester: sem, Subject: subject, Notes: entries, Status: StatusReady}
	if len(entries) == 0 {
		view.Status = StatusEmpty
		view.Message = emptyNotesMessage
		if collection == CollectionVideos {
			view.Message = emptyVideosMessage
		}
	}
	return view
}

func subjectsView(sem string, subjects []models.Subject) View {
	view := View{Screen: ScreenSubjects, Semester: sem, Subjects: subjects, Status: StatusReady}
	if len(subjects) == 0 {
		view.Status = StatusEmpty
		view.Message = emptySubjectsMessage
	}
	return view
}

func errorView(screen Screen, sem, subject, filter string, err error) View {
	message := "Something went wrong. Please try again."
	if serr, ok := AsServiceError(err); ok {
		message = serr.Message
	}
	return View{
		Screen:   screen,
		Status:   StatusError,
		Message:  message,
		Semester: sem,
		Subject:  subject,
		Retry:    &ReadRequest{Screen: screen, Semester: sem, Subject: subject, Filter: filter},
	}
}
