package orgmode

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/obask/taskonizer/pkg/model"
)

var (
	headlineRegex = regexp.MustCompile(`^(\*+)\s+(?:(TODO|DONE)\s+)?(?:\[#([A-Z])\]\s*)?(.*?)(?:\s+(:(?:[\w@]+:)+))?\s*$`)
	dateRegex     = regexp.MustCompile(`(SCHEDULED|DEADLINE):\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
)

// ParseFile parses an Org-mode file into import drafts.
func ParseFile(filePath string, now time.Time) ([]model.Draft, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file, now)
}

// ParseFiles parses multiple Org-mode files in order.
func ParseFiles(filePaths []string, now time.Time) ([]model.Draft, error) {
	var all []model.Draft
	for _, filePath := range filePaths {
		drafts, err := ParseFile(filePath, now)
		if err != nil {
			return nil, err
		}
		all = append(all, drafts...)
	}
	return all, nil
}

type entry struct {
	draft model.Draft
	tags  []string
	when  time.Time
}

// Parse reads TODO and DONE headlines. The closest enclosing headline
// without a keyword names the project. Tags and SCHEDULED/DEADLINE stamps
// pick the category the same way the Taskwarrior importer does.
func Parse(r io.Reader, now time.Time) ([]model.Draft, error) {
	scanner := bufio.NewScanner(r)
	var out []model.Draft
	var current *entry
	// titles of plain headlines by level, for project lookup
	var outline []string

	flush := func() {
		if current == nil {
			return
		}
		current.draft.Category = categorize(current, now)
		out = append(out, current.draft)
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if m := headlineRegex.FindStringSubmatch(line); m != nil && strings.HasPrefix(line, "*") {
			flush()
			level := len(m[1])
			keyword, title := m[2], strings.TrimSpace(m[4])
			if len(outline) >= level {
				outline = outline[:level-1]
			}
			if keyword == "" {
				for len(outline) < level-1 {
					outline = append(outline, "")
				}
				outline = append(outline, title)
				continue
			}
			current = &entry{
				draft: model.Draft{
					Title:     title,
					Project:   nearestProject(outline),
					Completed: keyword == "DONE",
				},
			}
			if m[5] != "" {
				current.tags = strings.Split(strings.Trim(m[5], ":"), ":")
			}
			continue
		}

		if current == nil {
			continue
		}
		for _, m := range dateRegex.FindAllStringSubmatch(line, -1) {
			when, err := time.ParseInLocation("2006-01-02", m[2], now.Location())
			if err != nil {
				continue
			}
			// SCHEDULED wins over DEADLINE.
			if current.when.IsZero() || m[1] == "SCHEDULED" {
				current.when = when
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nearestProject(outline []string) string {
	for i := len(outline) - 1; i >= 0; i-- {
		if outline[i] != "" {
			return outline[i]
		}
	}
	return ""
}

func categorize(e *entry, now time.Time) model.Category {
	if e.draft.Completed {
		return model.Logbook
	}
	for _, tag := range e.tags {
		if strings.EqualFold(tag, "someday") {
			return model.Someday
		}
	}
	if !e.when.IsZero() {
		y, m, d := now.Date()
		tomorrow := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
		if e.when.Before(tomorrow) {
			return model.Today
		}
		return model.Upcoming
	}
	for _, tag := range e.tags {
		if strings.EqualFold(tag, "next") {
			return model.Anytime
		}
	}
	return model.Inbox
}
