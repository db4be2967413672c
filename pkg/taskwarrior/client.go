package taskwarrior

import (
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/obask/taskonizer/pkg/model"
)

type Client struct {
	// Binary is the task executable, "task" when empty.
	Binary string
}

func NewClient() *Client {
	return &Client{Binary: "task"}
}

// GetTasks runs `task <filter> export` and decodes the result. Recurring
// templates are left out; their instances are exported on their own.
func (c *Client) GetTasks(filter []string) ([]Task, error) {
	args := append(append([]string{}, filter...), "export", "rc.hooks=0")
	bin := c.Binary
	if bin == "" {
		bin = "task"
	}
	cmd := exec.Command(bin, args...)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("taskwarrior command failed: exit code %d, %s, stderr: %s",
				exitErr.ExitCode(), err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("taskwarrior command failed: %w", err)
	}

	var tasks []Task
	if err := json.Unmarshal(output, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal taskwarrior output: %w", err)
	}
	return withoutTemplates(tasks), nil
}

// ParseTasks decodes an export read from r. It accepts both the JSON array
// `task export` prints and a stream of one object per line.
func (c *Client) ParseTasks(r io.Reader) ([]Task, error) {
	var tasks []Task
	decoder := json.NewDecoder(r)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode task json: %w", err)
		}
		if len(raw) > 0 && raw[0] == '[' {
			var batch []Task
			if err := json.Unmarshal(raw, &batch); err != nil {
				return nil, fmt.Errorf("failed to decode task json: %w", err)
			}
			tasks = append(tasks, batch...)
			continue
		}
		var task Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, fmt.Errorf("failed to decode task json: %w", err)
		}
		tasks = append(tasks, task)
	}
	return withoutTemplates(tasks), nil
}

// Drafts converts exported tasks for import, relative to now.
func Drafts(tasks []Task, now time.Time) []model.Draft {
	out := make([]model.Draft, 0, len(tasks))
	for i := range tasks {
		out = append(out, tasks[i].ToDraft(now))
	}
	return out
}

func withoutTemplates(tasks []Task) []Task {
	out := tasks[:0]
	for _, t := range tasks {
		if t.Status != RECURRING {
			out = append(out, t)
		}
	}
	return out
}
