package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/obask/taskonizer/pkg/model"
)

// Group is one section of a project-grouped list. Project is nil for the
// bucket of tasks without a project.
type Group struct {
	Project *model.Project
	Tasks   []model.Task
}

// Name is the section header, "No Project" for the unassigned bucket.
func (g Group) Name() string {
	if g.Project == nil {
		return "No Project"
	}
	return g.Project.Name
}

// FilterByCategory returns the tasks in category c, in insertion order.
func (s *TaskStore) FilterByCategory(c model.Category) []model.Task {
	var out []model.Task
	for _, t := range s.tasks {
		if t.Category == c {
			out = append(out, t.Clone())
		}
	}
	return out
}

// FilterByToday returns the tasks created during the current local calendar
// day, whatever their category.
func (s *TaskStore) FilterByToday() []model.Task {
	start, end := s.dayBounds(s.now())
	var out []model.Task
	for _, t := range s.tasks {
		if !t.CreatedAt.Before(start) && t.CreatedAt.Before(end) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// TodayView is the "Today" list according to the configured TodayPolicy.
func (s *TaskStore) TodayView() []model.Task {
	if s.today == TodayByCreationDate {
		return s.FilterByToday()
	}
	return s.FilterByCategory(model.Today)
}

func (s *TaskStore) TodayPolicy() TodayPolicy {
	return s.today
}

func (s *TaskStore) dayBounds(now time.Time) (time.Time, time.Time) {
	now = now.In(s.loc)
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// CountByCategory is len(FilterByCategory(c)) without building the slice.
func (s *TaskStore) CountByCategory(c model.Category) int {
	n := 0
	for _, t := range s.tasks {
		if t.Category == c {
			n++
		}
	}
	return n
}

// GroupByProject partitions tasks into the unassigned bucket followed by one
// bucket per project, in project order. Empty buckets are left out and each
// bucket keeps the order tasks had in the input.
func (s *TaskStore) GroupByProject(tasks []model.Task) []Group {
	var none []model.Task
	byProject := make(map[uuid.UUID][]model.Task)
	for _, t := range tasks {
		if t.ProjectID == nil || s.projByID[*t.ProjectID] == nil {
			none = append(none, t)
			continue
		}
		byProject[*t.ProjectID] = append(byProject[*t.ProjectID], t)
	}

	var groups []Group
	if len(none) > 0 {
		groups = append(groups, Group{Tasks: none})
	}
	for _, p := range s.projects {
		if ts := byProject[p.ID]; len(ts) > 0 {
			proj := *p
			groups = append(groups, Group{Project: &proj, Tasks: ts})
		}
	}
	return groups
}
