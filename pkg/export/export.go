// Package export renders a task list in one of several file formats.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/obask/taskonizer/pkg/model"
	"github.com/obask/taskonizer/pkg/store"
	"github.com/obask/taskonizer/pkg/util"
	"google.golang.org/api/calendar/v3"
)

var Formats = []string{"json", "csv", "pdf", "calendar"}

type Exporter struct {
	st     *store.TaskStore
	colors util.ColorSource
}

// NewExporter builds an exporter over st. colors is only used by the
// calendar format and may be nil.
func NewExporter(st *store.TaskStore, colors util.ColorSource) *Exporter {
	return &Exporter{st: st, colors: colors}
}

type row struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Project   string    `json:"project,omitempty"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Export renders tasks, grouped by project, under the given list title.
func (e *Exporter) Export(format, title string, tasks []model.Task) ([]byte, error) {
	groups := e.st.GroupByProject(tasks)
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(e.rows(groups), "", "  ")
	case "csv":
		var b bytes.Buffer
		w := csv.NewWriter(&b)
		if err := w.Write([]string{"id", "title", "category", "project", "completed", "created_at"}); err != nil {
			return nil, err
		}
		for _, r := range e.rows(groups) {
			if err := w.Write([]string{r.ID, r.Title, r.Category, r.Project, fmt.Sprint(r.Completed), r.CreatedAt.Format(time.RFC3339)}); err != nil {
				return nil, err
			}
		}
		w.Flush()
		return b.Bytes(), w.Error()
	case "pdf":
		return e.pdf(title, groups)
	case "calendar":
		return e.calendarEvents(groups)
	default:
		return nil, fmt.Errorf("unknown format %s", format)
	}
}

func (e *Exporter) rows(groups []store.Group) []row {
	out := make([]row, 0)
	for _, g := range groups {
		project := ""
		if g.Project != nil {
			project = g.Project.Name
		}
		for _, t := range g.Tasks {
			out = append(out, row{
				ID:        t.ID.String(),
				Title:     t.Title,
				Category:  string(t.Category),
				Project:   project,
				Completed: t.IsCompleted,
				CreatedAt: t.CreatedAt,
			})
		}
	}
	return out
}

func (e *Exporter) pdf(title string, groups []store.Group) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, tr(title))
	pdf.Ln(14)

	if len(groups) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(40, 6, "No tasks")
	}
	for _, g := range groups {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(40, 8, tr(g.Name()))
		pdf.Ln(9)
		pdf.SetFont("Arial", "", 10)
		for _, t := range g.Tasks {
			box := "[ ]"
			if t.IsCompleted {
				box = "[x]"
			}
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("%s %s", box, t.Title)), "0", "L", false)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// calendarEvents writes an Events resource whose items can be inserted
// with the Calendar API as they are.
func (e *Exporter) calendarEvents(groups []store.Group) ([]byte, error) {
	events := &calendar.Events{Kind: "calendar#events"}
	for _, g := range groups {
		project := ""
		if g.Project != nil {
			project = g.Project.Name
		}
		for i := range g.Tasks {
			ev, err := util.ConvertTaskToCalendarEvent(&g.Tasks[i], project, e.colors)
			if err != nil {
				return nil, err
			}
			events.Items = append(events.Items, ev)
		}
	}
	return json.MarshalIndent(events, "", "  ")
}
