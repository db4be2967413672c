package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind names the collections kept by a persistence context.
type EntityKind string

const (
	KindTask    EntityKind = "task"
	KindProject EntityKind = "project"
)

// Entity is anything a persistence context can insert, delete and query back.
type Entity interface {
	Kind() EntityKind
	EntityID() uuid.UUID
}

// Task is a single to-do entry.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"created_at"`
	IsCompleted bool       `json:"is_completed"`
	Category    Category   `json:"category"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
}

func (t *Task) Kind() EntityKind    { return KindTask }
func (t *Task) EntityID() uuid.UUID { return t.ID }

// InProject reports whether the task references the given project.
func (t *Task) InProject(id uuid.UUID) bool {
	return t.ProjectID != nil && *t.ProjectID == id
}

// Clone returns a copy that shares no memory with t.
func (t *Task) Clone() Task {
	c := *t
	if t.ProjectID != nil {
		pid := *t.ProjectID
		c.ProjectID = &pid
	}
	return c
}

// Project is a user-named grouping that tasks may point at.
type Project struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (p *Project) Kind() EntityKind    { return KindProject }
func (p *Project) EntityID() uuid.UUID { return p.ID }

// Draft is a task read from another tool, before it has an id.
type Draft struct {
	Title     string
	Category  Category
	Project   string // project name, resolved on import
	Completed bool
	CreatedAt time.Time
}
