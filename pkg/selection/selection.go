// Package selection drives the select/edit interaction of a task list.
//
// A Machine is in one of three modes:
//
//	Idle                 nothing selected
//	Selected(id)         one row highlighted
//	Editing(id, draft)   the row's title is being edited
//
// Only CommitEdit has a side effect (a rename through the TaskSource).
package selection

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/obask/taskonizer/pkg/model"
	"github.com/obask/taskonizer/pkg/store"
)

type Mode string

const (
	Idle     Mode = "IDLE"
	Selected Mode = "SELECTED"
	Editing  Mode = "EDITING"
)

type Direction int

const (
	Next Direction = 1
	Prev Direction = -1
)

var ErrInvalidTransition = errors.New("invalid transition")

// State is a snapshot of the machine. TaskID is zero when Idle and Draft is
// only meaningful while Editing.
type State struct {
	Mode   Mode
	TaskID uuid.UUID
	Draft  string
}

// TaskSource is the part of the store the machine needs.
type TaskSource interface {
	Task(id uuid.UUID) (model.Task, error)
	RenameTask(id uuid.UUID, title string) error
}

type Machine struct {
	src   TaskSource
	state State
	items []uuid.UUID
}

func New(src TaskSource) *Machine {
	return &Machine{src: src, state: State{Mode: Idle}}
}

func (m *Machine) State() State { return m.state }

// SetItems replaces the list the selection moves through, normally the ids
// of the currently displayed filter in display order.
func (m *Machine) SetItems(ids []uuid.UUID) {
	m.items = append(m.items[:0], ids...)
}

func (m *Machine) Items() []uuid.UUID {
	return append([]uuid.UUID(nil), m.items...)
}

func (m *Machine) Select(id uuid.UUID) error {
	if m.state.Mode == Editing {
		return m.invalid("select")
	}
	m.state = State{Mode: Selected, TaskID: id}
	return nil
}

// SelectFirst selects the first item, or goes Idle when there are none.
func (m *Machine) SelectFirst() error {
	if m.state.Mode == Editing {
		return m.invalid("select first")
	}
	if len(m.items) == 0 {
		m.state = State{Mode: Idle}
		return nil
	}
	m.state = State{Mode: Selected, TaskID: m.items[0]}
	return nil
}

// BeginEdit starts editing the selected task, seeding the draft with its title.
func (m *Machine) BeginEdit(id uuid.UUID) error {
	if m.state.Mode != Selected || m.state.TaskID != id {
		return m.invalid("begin edit")
	}
	t, err := m.src.Task(id)
	if err != nil {
		return err
	}
	m.state = State{Mode: Editing, TaskID: id, Draft: t.Title}
	return nil
}

func (m *Machine) UpdateDraft(text string) error {
	if m.state.Mode != Editing {
		return m.invalid("update draft")
	}
	m.state.Draft = text
	return nil
}

// CommitEdit renames the task to the draft and returns to Selected. A
// persistence failure still leaves the machine in Selected since the rename
// was applied in memory; a task that vanished meanwhile leaves it Idle.
func (m *Machine) CommitEdit() error {
	if m.state.Mode != Editing {
		return m.invalid("commit edit")
	}
	id, draft := m.state.TaskID, m.state.Draft
	err := m.src.RenameTask(id, draft)
	if errors.Is(err, store.ErrNotFound) {
		m.state = State{Mode: Idle}
		return err
	}
	m.state = State{Mode: Selected, TaskID: id}
	return err
}

// CancelEdit drops the draft.
func (m *Machine) CancelEdit() error {
	if m.state.Mode != Editing {
		return m.invalid("cancel edit")
	}
	m.state = State{Mode: Selected, TaskID: m.state.TaskID}
	return nil
}

// MoveSelection moves to the neighbouring item, wrapping at both ends. It
// does nothing while Idle or Editing. If the selected task is no longer in
// the list the first item is selected.
func (m *Machine) MoveSelection(dir Direction) {
	if m.state.Mode != Selected || len(m.items) == 0 {
		return
	}
	cur := -1
	for i, id := range m.items {
		if id == m.state.TaskID {
			cur = i
			break
		}
	}
	if cur < 0 {
		m.state.TaskID = m.items[0]
		return
	}
	n := len(m.items)
	step := 1
	if dir < 0 {
		step = -1
	}
	m.state.TaskID = m.items[((cur+step)%n+n)%n]
}

// HandleEvent keeps the machine consistent with the store: when the task the
// machine points at is deleted it goes back to Idle. Pass it to
// TaskStore.Subscribe.
func (m *Machine) HandleEvent(e store.Event) {
	if e.Kind != store.CollectionChanged || e.Op != store.OpDelete {
		return
	}
	if m.state.Mode != Idle && e.TaskID == m.state.TaskID {
		m.state = State{Mode: Idle}
	}
	for i, id := range m.items {
		if id == e.TaskID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			break
		}
	}
}

func (m *Machine) invalid(op string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, m.state.Mode)
}
