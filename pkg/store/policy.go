package store

import (
	"fmt"
	"strings"
)

// TodayPolicy decides what the "Today" list shows.
type TodayPolicy string

const (
	// TodayByCategory shows tasks filed under the Today category.
	TodayByCategory TodayPolicy = "category"
	// TodayByCreationDate shows tasks created during the current local day.
	TodayByCreationDate TodayPolicy = "created"
)

const DefaultTodayPolicy = TodayByCategory

func ParseTodayPolicy(s string) (TodayPolicy, error) {
	switch TodayPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", TodayByCategory:
		return TodayByCategory, nil
	case TodayByCreationDate:
		return TodayByCreationDate, nil
	}
	return "", fmt.Errorf("unknown today policy %q (want %q or %q)", s, TodayByCategory, TodayByCreationDate)
}

// EmptyTitlePolicy decides what RenameTask does with a blank title.
type EmptyTitlePolicy int

const (
	// RejectEmptyTitles leaves the stored title untouched, without error.
	RejectEmptyTitles EmptyTitlePolicy = iota
	AllowEmptyTitles
)

const DefaultEmptyTitlePolicy = RejectEmptyTitles
