package taskwarrior

import (
	"fmt"
	"strings"
	"time"

	"github.com/obask/taskonizer/pkg/model"
)

const (
	PENDING   = "pending"
	COMPLETED = "completed"
	WAITING   = "waiting"
	DELETED   = "deleted"
	RECURRING = "recurring"
)

type CustomTime struct {
	time.Time
}

const taskwarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, always UTC

// UnmarshalJSON implements the json.Unmarshaler interface for CustomTime.
func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		ct.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(taskwarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Taskwarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface for CustomTime.
func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.Format(taskwarriorTimeLayout) + `"`), nil
}

func (ct *CustomTime) set() bool {
	return ct != nil && !ct.IsZero()
}

// Task is the subset of a `task export` record that maps onto a to-do.
type Task struct {
	UUID        string      `json:"uuid"`
	Description string      `json:"description"`
	Entry       *CustomTime `json:"entry,omitempty"`
	Due         *CustomTime `json:"due,omitempty"`
	Scheduled   *CustomTime `json:"scheduled,omitempty"`
	Wait        *CustomTime `json:"wait,omitempty"`
	Status      string      `json:"status"`
	Project     string      `json:"project,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

func (t *Task) hasTag(tag string) bool {
	for _, cur := range t.Tags {
		if strings.EqualFold(cur, tag) {
			return true
		}
	}
	return false
}

// Category maps the Taskwarrior state onto a list:
//
//	completed            -> Logbook
//	deleted              -> Trash
//	waiting / +someday   -> Someday
//	due or scheduled     -> Today when that falls on now's day, Upcoming otherwise
//	+next                -> Anytime
//	everything else      -> Inbox
func (t *Task) Category(now time.Time) model.Category {
	switch t.Status {
	case COMPLETED:
		return model.Logbook
	case DELETED:
		return model.Trash
	case WAITING:
		return model.Someday
	}
	if t.hasTag("someday") {
		return model.Someday
	}
	when := t.Scheduled
	if !when.set() {
		when = t.Due
	}
	if when.set() {
		local := when.In(now.Location())
		if !local.After(endOfDay(now)) {
			return model.Today
		}
		return model.Upcoming
	}
	if t.hasTag("next") {
		return model.Anytime
	}
	return model.Inbox
}

func endOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-1), now.Location())
}

// ToDraft converts the record for import. Tasks past their date land in Today.
func (t *Task) ToDraft(now time.Time) model.Draft {
	d := model.Draft{
		Title:     t.Description,
		Category:  t.Category(now),
		Project:   t.Project,
		Completed: t.Status == COMPLETED,
	}
	if t.Entry.set() {
		d.CreatedAt = t.Entry.Time
	}
	return d
}
