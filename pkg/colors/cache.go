// Package colors hands out a stable Google Calendar event color to each project.
package colors

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/obask/taskonizer/pkg/store"
)

// NoProjectColor is Graphite, used for tasks outside any project.
const NoProjectColor = "8"

type slot struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

// ColorCache assigns one of the calendar event colors to each project. When
// all colors are taken the least recently used project gives its color up.
type ColorCache struct {
	Path     string
	Projects map[uuid.UUID]*slot
	dirty    bool
	now      func() time.Time
}

const cacheFile = "project_colors.json"

// palette is the calendar event color ids, minus the one kept for "no project".
var palette = func() []string {
	var ids []string
	for i := 1; i <= 11; i++ {
		if id := strconv.Itoa(i); id != NoProjectColor {
			ids = append(ids, id)
		}
	}
	return ids
}()

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "taskonizer", cacheFile), nil
}

// NewColorCache opens the cache at path (DefaultPath when empty).
func NewColorCache(path string) (*ColorCache, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cache := &ColorCache{
		Path:     path,
		Projects: make(map[uuid.UUID]*slot),
		now:      time.Now,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cache.Load(); err != nil {
			return nil, err
		}
	}
	return cache, nil
}

func (c *ColorCache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(&c.Projects)
}

func (c *ColorCache) Save() error {
	if !c.dirty {
		return nil
	}
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		log.Printf("Error creating color cache directory: %v", err)
		return err
	}

	f, err := os.Create(c.Path)
	if err != nil {
		log.Printf("Error creating color cache file: %v", err)
		return err
	}
	defer f.Close()
	err = json.NewEncoder(f).Encode(c.Projects)
	if err == nil {
		c.dirty = false
	}
	return err
}

// ColorID returns the color for a project, assigning one if needed. A nil
// project gets NoProjectColor.
func (c *ColorCache) ColorID(projectID *uuid.UUID) string {
	if projectID == nil {
		return NoProjectColor
	}
	if s, ok := c.Projects[*projectID]; ok {
		s.LastUsed = c.now()
		c.dirty = true
		return s.ColorID
	}
	return c.assign(*projectID)
}

func (c *ColorCache) assign(projectID uuid.UUID) string {
	used := make(map[string]bool)
	for _, s := range c.Projects {
		used[s.ColorID] = true
	}
	for _, id := range palette {
		if !used[id] {
			c.Projects[projectID] = &slot{ColorID: id, LastUsed: c.now()}
			c.dirty = true
			return id
		}
	}

	// Every color is taken: recycle the least recently used one.
	var oldest uuid.UUID
	var oldestTime time.Time
	first := true
	for p, s := range c.Projects {
		if first || s.LastUsed.Before(oldestTime) {
			oldest, oldestTime, first = p, s.LastUsed, false
		}
	}
	recycled := c.Projects[oldest].ColorID
	delete(c.Projects, oldest)
	c.Projects[projectID] = &slot{ColorID: recycled, LastUsed: c.now()}
	c.dirty = true
	return recycled
}

// Release frees the color held by a project.
func (c *ColorCache) Release(projectID uuid.UUID) {
	if _, ok := c.Projects[projectID]; ok {
		delete(c.Projects, projectID)
		c.dirty = true
	}
}

// HandleEvent releases the color of deleted projects. Pass it to TaskStore.Subscribe.
func (c *ColorCache) HandleEvent(e store.Event) {
	if e.Kind == store.CollectionChanged && e.Op == store.OpDelete && e.TaskID == uuid.Nil {
		c.Release(e.ProjectID)
	}
}
