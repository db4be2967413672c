package model

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the list a task is filed under. A task is always in exactly one.
type Category string

const (
	Inbox    Category = "Inbox"
	Today    Category = "Today"
	Upcoming Category = "Upcoming"
	Anytime  Category = "Anytime"
	Someday  Category = "Someday"
	Logbook  Category = "Logbook"
	Trash    Category = "Trash"
)

// DefaultCategory is used for new tasks and for stored values that no longer parse.
const DefaultCategory = Inbox

var ErrInvalidCategory = errors.New("invalid category")

var allCategories = []Category{Inbox, Today, Upcoming, Anytime, Someday, Logbook, Trash}

// AllCategories returns the categories in sidebar order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func (c Category) Valid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory matches s against the category names, ignoring case and surrounding space.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range allCategories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}
