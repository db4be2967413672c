package util

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/obask/taskonizer/pkg/model"
	"github.com/obask/taskonizer/pkg/store"
)

type fixedColors string

func (c fixedColors) ColorID(*uuid.UUID) string { return string(c) }

func TestConvertTaskToCalendarEvent(t *testing.T) {
	created := time.Date(2023, 1, 1, 12, 0, 0, 0, time.Local)
	pid := uuid.New()
	task := &model.Task{
		ID:          uuid.New(),
		Title:       "Test Task",
		CreatedAt:   created,
		IsCompleted: true,
		Category:    model.Logbook,
		ProjectID:   &pid,
	}

	event, err := ConvertTaskToCalendarEvent(task, "Work", fixedColors("5"))
	if err != nil {
		t.Fatalf("ConvertTaskToCalendarEvent failed: %v", err)
	}

	if event.ExtendedProperties == nil || event.ExtendedProperties.Private == nil {
		t.Fatal("ExtendedProperties or Private map is nil")
	}
	if id, ok := GetTaskIDFromEvent(event); !ok || id != task.ID {
		t.Errorf("Expected task id %s, got %v", task.ID, id)
	}
	if event.Summary != "✓ Test Task" {
		t.Errorf("Expected completed prefix, got '%s'", event.Summary)
	}
	if event.Start.Date != "2023-01-01" || event.End.Date != "2023-01-02" {
		t.Errorf("Expected all-day event on 2023-01-01, got %s..%s", event.Start.Date, event.End.Date)
	}
	if event.ColorId != "5" {
		t.Errorf("Expected color 5, got %s", event.ColorId)
	}
	for _, want := range []string{"Category: Logbook", "Project: Work", "Status: completed"} {
		if !strings.Contains(event.Description, want) {
			t.Errorf("Expected description to contain %q, got: %s", want, event.Description)
		}
	}
}

func TestConvertTaskRejectsNil(t *testing.T) {
	if _, err := ConvertTaskToCalendarEvent(nil, "", nil); err == nil {
		t.Errorf("Expected error for nil task")
	}
	if _, err := ConvertTaskToCalendarEvent(&model.Task{ID: uuid.New()}, "", nil); err == nil {
		t.Errorf("Expected error for task without creation date")
	}
}

type nopPersister struct{}

func (nopPersister) Insert(model.Entity) {}
func (nopPersister) Delete(model.Entity) {}
func (nopPersister) Save() error { return nil }
func (nopPersister) QueryAll(model.EntityKind) ([]model.Entity, error) { return nil, nil }

func TestImportDrafts(t *testing.T) {
	s := store.New(nopPersister{})
	existing, _ := s.CreateProject("Home")
	entry := time.Date(2023, 3, 4, 5, 6, 7, 0, time.UTC)

	drafts := []model.Draft{
		{Title: "Fix sink", Project: "Home", Category: model.Today, CreatedAt: entry},
		{Title: "Write report", Project: "Work", Category: model.Upcoming},
		{Title: "   "},
		{Title: "Call mom", Completed: true, Category: model.Logbook},
		{Title: "Review PR", Project: "Work"},
	}
	n, err := ImportDrafts(s, drafts)
	if err != nil {
		t.Fatalf("ImportDrafts failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 imported, got %d", n)
	}

	projects := s.Projects()
	if len(projects) != 2 || projects[0].ID != existing.ID || projects[1].Name != "Work" {
		t.Fatalf("Expected Home reused and Work created once, got %+v", projects)
	}
	tasks := s.Tasks()
	if !tasks[0].InProject(existing.ID) || !tasks[0].CreatedAt.Equal(entry) || tasks[0].Category != model.Today {
		t.Errorf("Unexpected first task %+v", tasks[0])
	}
	if !tasks[2].IsCompleted {
		t.Errorf("Expected Call mom completed")
	}
	if tasks[3].Category != model.Inbox || !tasks[3].InProject(projects[1].ID) {
		t.Errorf("Expected Review PR in Inbox under Work, got %+v", tasks[3])
	}
}
