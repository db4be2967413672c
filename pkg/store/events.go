package store

import "github.com/google/uuid"

// EventKind says which part of the store changed.
type EventKind string

const (
	TaskChanged       EventKind = "task-changed"
	ProjectChanged    EventKind = "project-changed"
	CollectionChanged EventKind = "collection-changed"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is emitted after each in-memory mutation. Creations and deletions are
// CollectionChanged; in-place edits are TaskChanged or ProjectChanged.
// ProjectID is set for project events and for task events touching a project.
type Event struct {
	Kind      EventKind
	Op        Op
	TaskID    uuid.UUID
	ProjectID uuid.UUID
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// Subscribe registers fn for change notifications. fn runs synchronously
// inside the mutating call, so it must not call back into a mutation.
func (s *TaskStore) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *TaskStore) emit(e Event) {
	subs := append([]subscriber(nil), s.subs...)
	for _, sub := range subs {
		sub.fn(e)
	}
}
