package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/obask/taskonizer/pkg/model"
)

type memPersister struct {
	entities []model.Entity
	saves    int
	failSave error
}

func (m *memPersister) Insert(e model.Entity) { m.entities = append(m.entities, e) }

func (m *memPersister) Delete(e model.Entity) {
	for i, cur := range m.entities {
		if cur.Kind() == e.Kind() && cur.EntityID() == e.EntityID() {
			m.entities = append(m.entities[:i], m.entities[i+1:]...)
			return
		}
	}
}

func (m *memPersister) Save() error {
	m.saves++
	return m.failSave
}

func (m *memPersister) QueryAll(kind model.EntityKind) ([]model.Entity, error) {
	var out []model.Entity
	for _, e := range m.entities {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestStore(t *testing.T, opts ...Option) (*TaskStore, *memPersister) {
	t.Helper()
	p := &memPersister{}
	return New(p, opts...), p
}

func mustCreate(t *testing.T, s *TaskStore, title string, c model.Category, project *uuid.UUID) model.Task {
	t.Helper()
	task, err := s.CreateTask(title, c, project)
	if err != nil {
		t.Fatalf("CreateTask(%q) failed: %v", title, err)
	}
	return task
}

func TestCreateTaskShowsInInbox(t *testing.T) {
	s, p := newTestStore(t)
	mustCreate(t, s, "Buy milk", model.Inbox, nil)

	inbox := s.FilterByCategory(model.Inbox)
	if len(inbox) != 1 {
		t.Fatalf("Expected 1 inbox task, got %d", len(inbox))
	}
	if inbox[0].Title != "Buy milk" {
		t.Errorf("Expected title 'Buy milk', got '%s'", inbox[0].Title)
	}
	if inbox[0].IsCompleted {
		t.Errorf("Expected new task to be incomplete")
	}
	if p.saves != 1 {
		t.Errorf("Expected 1 save, got %d", p.saves)
	}
}

func TestCreateTaskDefaultsAndValidation(t *testing.T) {
	s, _ := newTestStore(t)

	task := mustCreate(t, s, "", "", nil)
	if task.Category != model.Inbox {
		t.Errorf("Expected default category Inbox, got %s", task.Category)
	}

	if _, err := s.CreateTask("x", model.Category("Tomorrow"), nil); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("Expected ErrInvalidCategory, got %v", err)
	}
	missing := uuid.New()
	if _, err := s.CreateTask("x", model.Inbox, &missing); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Expected ErrProjectNotFound, got %v", err)
	}
	if n := len(s.Tasks()); n != 1 {
		t.Errorf("Expected failed creates to add nothing, have %d tasks", n)
	}
}

func TestCategoryAlwaysValid(t *testing.T) {
	s, _ := newTestStore(t)
	for _, c := range model.AllCategories() {
		mustCreate(t, s, string(c), c, nil)
	}
	task := s.Tasks()[0]
	if err := s.SetCategory(task.ID, "bogus"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("Expected ErrInvalidCategory, got %v", err)
	}
	for _, task := range s.Tasks() {
		if !task.Category.Valid() {
			t.Errorf("Task %s has invalid category %q", task.Title, task.Category)
		}
	}
	if got, _ := s.Task(task.ID); got.Category != model.Inbox {
		t.Errorf("Expected rejected SetCategory to keep Inbox, got %s", got.Category)
	}
}

func TestRenameTask(t *testing.T) {
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "Buy milk", model.Inbox, nil)
	b := mustCreate(t, s, "Call mom", model.Inbox, nil)

	if err := s.RenameTask(a.ID, "Buy oat milk"); err != nil {
		t.Fatalf("RenameTask failed: %v", err)
	}
	inbox := s.FilterByCategory(model.Inbox)
	if inbox[0].Title != "Buy oat milk" {
		t.Errorf("Expected renamed title, got '%s'", inbox[0].Title)
	}
	if inbox[1].ID != b.ID || inbox[1].Title != "Call mom" {
		t.Errorf("Unrelated task changed: %+v", inbox[1])
	}

	if err := s.RenameTask(uuid.New(), "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRenameTaskEmptyTitlePolicy(t *testing.T) {
	s, p := newTestStore(t)
	task := mustCreate(t, s, "Buy milk", model.Inbox, nil)
	saves := p.saves

	if err := s.RenameTask(task.ID, "   "); err != nil {
		t.Fatalf("Expected blank rename to be ignored silently, got %v", err)
	}
	if got, _ := s.Task(task.ID); got.Title != "Buy milk" {
		t.Errorf("Expected title unchanged, got '%s'", got.Title)
	}
	if p.saves != saves {
		t.Errorf("Expected no save for an ignored rename")
	}

	s2, _ := newTestStore(t, WithEmptyTitlePolicy(AllowEmptyTitles))
	task2 := mustCreate(t, s2, "Buy milk", model.Inbox, nil)
	if err := s2.RenameTask(task2.ID, ""); err != nil {
		t.Fatalf("RenameTask failed: %v", err)
	}
	if got, _ := s2.Task(task2.ID); got.Title != "" {
		t.Errorf("Expected empty title to be accepted, got '%s'", got.Title)
	}
}

func TestToggleCompletionIsInvolution(t *testing.T) {
	s, _ := newTestStore(t)
	task := mustCreate(t, s, "Buy milk", model.Inbox, nil)

	if err := s.ToggleCompletion(task.ID); err != nil {
		t.Fatalf("ToggleCompletion failed: %v", err)
	}
	if got, _ := s.Task(task.ID); !got.IsCompleted {
		t.Errorf("Expected task completed after one toggle")
	}
	if err := s.ToggleCompletion(task.ID); err != nil {
		t.Fatalf("ToggleCompletion failed: %v", err)
	}
	if got, _ := s.Task(task.ID); got.IsCompleted {
		t.Errorf("Expected task incomplete after two toggles")
	}
	if err := s.ToggleCompletion(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAssignProject(t *testing.T) {
	s, _ := newTestStore(t)
	home, err := s.CreateProject("Home")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	task := mustCreate(t, s, "Fix sink", model.Inbox, nil)

	if err := s.AssignProject(task.ID, &home.ID); err != nil {
		t.Fatalf("AssignProject failed: %v", err)
	}
	if got, _ := s.Task(task.ID); !got.InProject(home.ID) {
		t.Errorf("Expected task in project Home")
	}

	missing := uuid.New()
	if err := s.AssignProject(task.ID, &missing); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Expected ErrProjectNotFound, got %v", err)
	}
	if err := s.AssignProject(uuid.New(), &home.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := s.AssignProject(task.ID, nil); err != nil {
		t.Fatalf("AssignProject(nil) failed: %v", err)
	}
	if got, _ := s.Task(task.ID); got.ProjectID != nil {
		t.Errorf("Expected project cleared, got %v", *got.ProjectID)
	}
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	s, _ := newTestStore(t)
	home, _ := s.CreateProject("Home")
	task := mustCreate(t, s, "Fix sink", model.Inbox, &home.ID)

	other := uuid.New()
	*task.ProjectID = other
	task.Title = "changed"

	got, _ := s.Task(task.ID)
	if got.Title != "Fix sink" || !got.InProject(home.ID) {
		t.Errorf("Expected stored task unaffected by snapshot edits, got %+v", got)
	}
}

func TestDeleteTask(t *testing.T) {
	s, p := newTestStore(t)
	a := mustCreate(t, s, "a", model.Inbox, nil)
	b := mustCreate(t, s, "b", model.Inbox, nil)

	if err := s.DeleteTask(a.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := s.Task(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected deleted task to be gone, got %v", err)
	}
	if err := s.DeleteTask(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	remaining, _ := p.QueryAll(model.KindTask)
	if len(remaining) != 1 || remaining[0].EntityID() != b.ID {
		t.Errorf("Expected persister to hold only b, got %v", remaining)
	}
}

func TestProjectLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.CreateProject("  "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
	p, err := s.CreateProject("Home")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if err := s.RenameProject(p.ID, "House"); err != nil {
		t.Fatalf("RenameProject failed: %v", err)
	}
	if got, ok := s.ProjectByName("House"); !ok || got.ID != p.ID {
		t.Errorf("Expected to find renamed project, got %+v %v", got, ok)
	}
	if err := s.RenameProject(p.ID, ""); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
	if err := s.RenameProject(uuid.New(), "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteProject(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProjectClearsReferences(t *testing.T) {
	s, _ := newTestStore(t)
	home, _ := s.CreateProject("Home")
	work, _ := s.CreateProject("Work")
	mustCreate(t, s, "Fix sink", model.Inbox, &home.ID)
	mustCreate(t, s, "Paint wall", model.Someday, &home.ID)
	mustCreate(t, s, "Write report", model.Inbox, &work.ID)

	if err := s.DeleteProject(home.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if len(s.Tasks()) != 3 {
		t.Fatalf("Expected tasks to survive project deletion, got %d", len(s.Tasks()))
	}
	for _, task := range s.Tasks() {
		if task.InProject(home.ID) {
			t.Errorf("Task %q still references deleted project", task.Title)
		}
	}
	if got, _ := s.ProjectByName("Work"); got.ID != work.ID {
		t.Errorf("Expected Work to be kept")
	}
}

func TestPersistenceErrorKeepsMemory(t *testing.T) {
	s, p := newTestStore(t)
	task := mustCreate(t, s, "Buy milk", model.Inbox, nil)

	cause := errors.New("disk full")
	p.failSave = cause
	err := s.ToggleCompletion(task.ID)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Expected ErrPersistence, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected error to wrap the cause, got %v", err)
	}
	if got, _ := s.Task(task.ID); !got.IsCompleted {
		t.Errorf("Expected in-memory change to survive a failed save")
	}

	p.failSave = nil
	created, err := s.CreateTask("after", model.Inbox, nil)
	if err != nil || created.Title != "after" {
		t.Errorf("Expected store to keep working after a failed save, got %v", err)
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	s, _ := newTestStore(t)
	var events []Event
	unsubscribe := s.Subscribe(func(e Event) { events = append(events, e) })

	home, _ := s.CreateProject("Home")
	task := mustCreate(t, s, "Fix sink", model.Inbox, &home.ID)
	_ = s.RenameTask(task.ID, "Fix kitchen sink")
	_ = s.DeleteProject(home.ID)

	want := []Event{
		{Kind: CollectionChanged, Op: OpCreate, ProjectID: home.ID},
		{Kind: CollectionChanged, Op: OpCreate, TaskID: task.ID, ProjectID: home.ID},
		{Kind: TaskChanged, Op: OpUpdate, TaskID: task.ID, ProjectID: home.ID},
		{Kind: TaskChanged, Op: OpUpdate, TaskID: task.ID},
		{Kind: CollectionChanged, Op: OpDelete, ProjectID: home.ID},
	}
	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("Event %d: expected %+v, got %+v", i, want[i], events[i])
		}
	}

	unsubscribe()
	mustCreate(t, s, "quiet", model.Inbox, nil)
	if len(events) != len(want) {
		t.Errorf("Expected no events after unsubscribe")
	}
}

func TestNoEventOnFailedMutation(t *testing.T) {
	s, _ := newTestStore(t)
	count := 0
	s.Subscribe(func(Event) { count++ })
	_ = s.RenameTask(uuid.New(), "x")
	_, _ = s.CreateTask("x", "bogus", nil)
	if count != 0 {
		t.Errorf("Expected no events for rejected mutations, got %d", count)
	}
}

func TestLoadNormalizes(t *testing.T) {
	p := &memPersister{}
	home := &model.Project{ID: uuid.New(), Name: "Home"}
	gone := uuid.New()
	p.Insert(home)
	p.Insert(&model.Task{ID: uuid.New(), Title: "ok", Category: model.Someday, ProjectID: &home.ID, CreatedAt: time.Now()})
	p.Insert(&model.Task{ID: uuid.New(), Title: "odd", Category: "Later", ProjectID: &gone, CreatedAt: time.Now()})
	p.Insert((*model.Task)(nil))
	p.Insert((*model.Project)(nil))

	s := New(p)
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	tasks := s.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	if !tasks[0].InProject(home.ID) || tasks[0].Category != model.Someday {
		t.Errorf("Expected first task loaded as is, got %+v", tasks[0])
	}
	if tasks[1].Category != model.Inbox {
		t.Errorf("Expected unknown category to fall back to Inbox, got %s", tasks[1].Category)
	}
	if tasks[1].ProjectID != nil {
		t.Errorf("Expected dangling project reference to be cleared")
	}
	if projects := s.Projects(); len(projects) != 1 || projects[0].ID != home.ID {
		t.Errorf("Expected only Home to load, got %+v", projects)
	}
}
