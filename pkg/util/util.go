package util

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/obask/taskonizer/pkg/model"
	"github.com/obask/taskonizer/pkg/store"
	"google.golang.org/api/calendar/v3"
)

// PrivateTaskIDKey is the private extended property holding the task id on
// exported calendar events.
const PrivateTaskIDKey = "taskonizer_id"

// ColorSource picks the calendar color of a project.
type ColorSource interface {
	ColorID(projectID *uuid.UUID) string
}

// ConvertTaskToCalendarEvent renders a task as an all-day event on the day it
// was created. projectName may be empty; colors may be nil.
func ConvertTaskToCalendarEvent(task *model.Task, projectName string, colors ColorSource) (*calendar.Event, error) {
	if task == nil {
		return nil, fmt.Errorf("could not convert nil Task")
	}
	if task.CreatedAt.IsZero() {
		return nil, fmt.Errorf("task has no creation date: %s", task.ID)
	}

	summary := task.Title
	if task.IsCompleted {
		summary = "✓ " + task.Title
	}

	var descBuilder strings.Builder
	descBuilder.WriteString(fmt.Sprintf("Category: %s\n", task.Category))
	if projectName != "" {
		descBuilder.WriteString(fmt.Sprintf("Project: %s\n", projectName))
	}
	status := "open"
	if task.IsCompleted {
		status = "completed"
	}
	descBuilder.WriteString(fmt.Sprintf("Status: %s\n", status))
	descBuilder.WriteString(fmt.Sprintf("ID: %s\n", task.ID))

	day := task.CreatedAt.Local()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)

	event := &calendar.Event{
		Summary:     summary,
		Description: descBuilder.String(),
		Start:       &calendar.EventDateTime{Date: start.Format(time.DateOnly)},
		End:         &calendar.EventDateTime{Date: start.AddDate(0, 0, 1).Format(time.DateOnly)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				PrivateTaskIDKey: task.ID.String(),
			},
		},
	}
	// Tasks should not block time.
	event.Transparency = "transparent"
	if colors != nil {
		event.ColorId = colors.ColorID(task.ProjectID)
	}
	return event, nil
}

// GetTaskIDFromEvent reads the task id back from an exported event.
func GetTaskIDFromEvent(event *calendar.Event) (uuid.UUID, bool) {
	if event == nil || event.ExtendedProperties == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(event.ExtendedProperties.Private[PrivateTaskIDKey])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// ImportDrafts creates the drafts in s, creating projects by name as needed.
// Drafts with an empty title are skipped. It stops at the first store error
// other than a failed save, which is logged and counted as imported.
func ImportDrafts(s *store.TaskStore, drafts []model.Draft) (int, error) {
	imported := 0
	for _, d := range drafts {
		if strings.TrimSpace(d.Title) == "" {
			continue
		}
		var projectID *uuid.UUID
		if d.Project != "" {
			p, ok := s.ProjectByName(d.Project)
			if !ok {
				created, err := s.CreateProject(d.Project)
				if err != nil && !isSaveError(err) {
					return imported, err
				}
				p = created
			}
			projectID = &p.ID
		}
		task, err := s.CreateTaskAt(d.Title, d.Category, projectID, d.CreatedAt)
		if err != nil && !isSaveError(err) {
			return imported, err
		}
		if d.Completed {
			if err := s.ToggleCompletion(task.ID); err != nil && !isSaveError(err) {
				return imported, err
			}
		}
		imported++
	}
	return imported, nil
}

func isSaveError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, store.ErrPersistence) {
		log.Printf("Warning: import continues without saving: %v", err)
		return true
	}
	return false
}
