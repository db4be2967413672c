// Package store owns the in-memory task and project collections and is the
// only place they are mutated.
//
// A TaskStore is driven by a single actor (the front end) and is not safe
// for concurrent use. Durability is delegated to a Persister after every
// mutation; a failed save is reported but never rolls memory back.
package store

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/obask/taskonizer/pkg/model"
)

// Persister is the durability boundary. Entities handed to Insert stay owned
// by the store and may be changed in place before the next Save.
type Persister interface {
	Insert(e model.Entity)
	Delete(e model.Entity)
	Save() error
	QueryAll(kind model.EntityKind) ([]model.Entity, error)
}

type TaskStore struct {
	p Persister

	tasks    []*model.Task
	projects []*model.Project
	taskByID map[uuid.UUID]*model.Task
	projByID map[uuid.UUID]*model.Project

	subs    []subscriber
	nextSub uint64

	now         func() time.Time
	loc         *time.Location
	today       TodayPolicy
	emptyTitles EmptyTitlePolicy
}

type Option func(*TaskStore)

// WithClock replaces time.Now for creation stamps and the today filter.
func WithClock(now func() time.Time) Option {
	return func(s *TaskStore) { s.now = now }
}

// WithLocation sets the zone that defines a calendar day. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *TaskStore) { s.loc = loc }
}

func WithTodayPolicy(p TodayPolicy) Option {
	return func(s *TaskStore) { s.today = p }
}

func WithEmptyTitlePolicy(p EmptyTitlePolicy) Option {
	return func(s *TaskStore) { s.emptyTitles = p }
}

func New(p Persister, opts ...Option) *TaskStore {
	s := &TaskStore{
		p:           p,
		taskByID:    make(map[uuid.UUID]*model.Task),
		projByID:    make(map[uuid.UUID]*model.Project),
		now:         time.Now,
		loc:         time.Local,
		today:       DefaultTodayPolicy,
		emptyTitles: DefaultEmptyTitlePolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collections with what the persister holds.
// Unknown categories fall back to the default and references to missing
// projects are cleared.
func (s *TaskStore) Load() error {
	projects, err := s.p.QueryAll(model.KindProject)
	if err != nil {
		return &Error{Kind: ErrPersistence, Op: "load", Err: err}
	}
	tasks, err := s.p.QueryAll(model.KindTask)
	if err != nil {
		return &Error{Kind: ErrPersistence, Op: "load", Err: err}
	}

	s.projects = s.projects[:0]
	s.tasks = s.tasks[:0]
	s.projByID = make(map[uuid.UUID]*model.Project, len(projects))
	s.taskByID = make(map[uuid.UUID]*model.Task, len(tasks))

	for _, e := range projects {
		p, ok := e.(*model.Project)
		if !ok || p == nil {
			log.Printf("Warning: skipping unreadable project entry")
			continue
		}
		s.projects = append(s.projects, p)
		s.projByID[p.ID] = p
	}
	for _, e := range tasks {
		t, ok := e.(*model.Task)
		if !ok || t == nil {
			log.Printf("Warning: skipping unreadable task entry")
			continue
		}
		if !t.Category.Valid() {
			log.Printf("Warning: task %s has unknown category %q, moving it to %s", t.ID, t.Category, model.DefaultCategory)
			t.Category = model.DefaultCategory
		}
		if t.ProjectID != nil && s.projByID[*t.ProjectID] == nil {
			log.Printf("Warning: task %s references missing project %s, clearing it", t.ID, *t.ProjectID)
			t.ProjectID = nil
		}
		s.tasks = append(s.tasks, t)
		s.taskByID[t.ID] = t
	}
	s.emit(Event{Kind: CollectionChanged, Op: OpUpdate})
	return nil
}

func (s *TaskStore) commit(op string) error {
	if err := s.p.Save(); err != nil {
		log.Printf("Warning: %s: changes kept in memory but not saved: %v", op, err)
		return &Error{Kind: ErrPersistence, Op: op, Err: err}
	}
	return nil
}

// CreateTask files a new, incomplete task. An empty title is accepted here;
// callers that want a placeholder pass one.
func (s *TaskStore) CreateTask(title string, category model.Category, projectID *uuid.UUID) (model.Task, error) {
	return s.CreateTaskAt(title, category, projectID, time.Time{})
}

// CreateTaskAt is CreateTask with an explicit creation time, for imports.
// A zero createdAt means now.
func (s *TaskStore) CreateTaskAt(title string, category model.Category, projectID *uuid.UUID, createdAt time.Time) (model.Task, error) {
	const op = "create task"
	if category == "" {
		category = model.DefaultCategory
	}
	if !category.Valid() {
		return model.Task{}, invalidCategory(op, category)
	}
	if projectID != nil && s.projByID[*projectID] == nil {
		return model.Task{}, projectNotFound(op, projectID)
	}
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	t := &model.Task{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: createdAt,
		Category:  category,
	}
	if projectID != nil {
		pid := *projectID
		t.ProjectID = &pid
	}
	s.tasks = append(s.tasks, t)
	s.taskByID[t.ID] = t
	s.p.Insert(t)

	e := Event{Kind: CollectionChanged, Op: OpCreate, TaskID: t.ID}
	if projectID != nil {
		e.ProjectID = *projectID
	}
	s.emit(e)
	return t.Clone(), s.commit(op)
}

func (s *TaskStore) RenameTask(id uuid.UUID, title string) error {
	const op = "rename task"
	t, ok := s.taskByID[id]
	if !ok {
		return notFound(op, id)
	}
	if strings.TrimSpace(title) == "" && s.emptyTitles == RejectEmptyTitles {
		return nil
	}
	t.Title = title
	s.emit(s.taskEvent(t))
	return s.commit(op)
}

func (s *TaskStore) ToggleCompletion(id uuid.UUID) error {
	const op = "toggle completion"
	t, ok := s.taskByID[id]
	if !ok {
		return notFound(op, id)
	}
	t.IsCompleted = !t.IsCompleted
	s.emit(s.taskEvent(t))
	return s.commit(op)
}

func (s *TaskStore) SetCategory(id uuid.UUID, category model.Category) error {
	const op = "set category"
	t, ok := s.taskByID[id]
	if !ok {
		return notFound(op, id)
	}
	if !category.Valid() {
		return invalidCategory(op, category)
	}
	t.Category = category
	s.emit(s.taskEvent(t))
	return s.commit(op)
}

// AssignProject points the task at projectID, or detaches it when projectID is nil.
func (s *TaskStore) AssignProject(id uuid.UUID, projectID *uuid.UUID) error {
	const op = "assign project"
	t, ok := s.taskByID[id]
	if !ok {
		return notFound(op, id)
	}
	if projectID == nil {
		t.ProjectID = nil
	} else {
		if s.projByID[*projectID] == nil {
			return projectNotFound(op, projectID)
		}
		pid := *projectID
		t.ProjectID = &pid
	}
	s.emit(s.taskEvent(t))
	return s.commit(op)
}

func (s *TaskStore) DeleteTask(id uuid.UUID) error {
	const op = "delete task"
	t, ok := s.taskByID[id]
	if !ok {
		return notFound(op, id)
	}
	for i, cur := range s.tasks {
		if cur == t {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
	delete(s.taskByID, id)
	s.p.Delete(t)

	e := Event{Kind: CollectionChanged, Op: OpDelete, TaskID: id}
	if t.ProjectID != nil {
		e.ProjectID = *t.ProjectID
	}
	s.emit(e)
	return s.commit(op)
}

func (s *TaskStore) CreateProject(name string) (model.Project, error) {
	const op = "create project"
	if strings.TrimSpace(name) == "" {
		return model.Project{}, &Error{Kind: ErrEmptyName, Op: op}
	}
	p := &model.Project{ID: uuid.New(), Name: name}
	s.projects = append(s.projects, p)
	s.projByID[p.ID] = p
	s.p.Insert(p)
	s.emit(Event{Kind: CollectionChanged, Op: OpCreate, ProjectID: p.ID})
	return *p, s.commit(op)
}

func (s *TaskStore) RenameProject(id uuid.UUID, name string) error {
	const op = "rename project"
	p, ok := s.projByID[id]
	if !ok {
		return notFound(op, id)
	}
	if strings.TrimSpace(name) == "" {
		return &Error{Kind: ErrEmptyName, Op: op, ID: id.String()}
	}
	p.Name = name
	s.emit(Event{Kind: ProjectChanged, Op: OpUpdate, ProjectID: id})
	return s.commit(op)
}

// DeleteProject removes the project and detaches every task that referenced
// it. The tasks themselves are kept.
func (s *TaskStore) DeleteProject(id uuid.UUID) error {
	const op = "delete project"
	p, ok := s.projByID[id]
	if !ok {
		return notFound(op, id)
	}
	var detached []uuid.UUID
	for _, t := range s.tasks {
		if t.InProject(id) {
			t.ProjectID = nil
			detached = append(detached, t.ID)
		}
	}
	for i, cur := range s.projects {
		if cur == p {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			break
		}
	}
	delete(s.projByID, id)
	s.p.Delete(p)

	for _, tid := range detached {
		s.emit(Event{Kind: TaskChanged, Op: OpUpdate, TaskID: tid})
	}
	s.emit(Event{Kind: CollectionChanged, Op: OpDelete, ProjectID: id})
	return s.commit(op)
}

func (s *TaskStore) taskEvent(t *model.Task) Event {
	e := Event{Kind: TaskChanged, Op: OpUpdate, TaskID: t.ID}
	if t.ProjectID != nil {
		e.ProjectID = *t.ProjectID
	}
	return e
}

// Task returns a snapshot of the task with the given id.
func (s *TaskStore) Task(id uuid.UUID) (model.Task, error) {
	t, ok := s.taskByID[id]
	if !ok {
		return model.Task{}, notFound("get task", id)
	}
	return t.Clone(), nil
}

func (s *TaskStore) Project(id uuid.UUID) (model.Project, error) {
	p, ok := s.projByID[id]
	if !ok {
		return model.Project{}, notFound("get project", id)
	}
	return *p, nil
}

// ProjectByName returns the first project with exactly this name.
func (s *TaskStore) ProjectByName(name string) (model.Project, bool) {
	for _, p := range s.projects {
		if p.Name == name {
			return *p, true
		}
	}
	return model.Project{}, false
}

// Tasks returns every task in insertion order.
func (s *TaskStore) Tasks() []model.Task {
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// Projects returns every project in creation order.
func (s *TaskStore) Projects() []model.Project {
	out := make([]model.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, *p)
	}
	return out
}
