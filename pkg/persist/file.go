// Package persist holds the persistence contexts a TaskStore commits to.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/obask/taskonizer/pkg/model"
)

const (
	xdgAppName = "taskonizer"
	dataFile   = "tasks.json"
)

type document struct {
	Projects []*model.Project `json:"projects"`
	Tasks    []*model.Task    `json:"tasks"`
}

// FileContext keeps every entity in a single JSON document. Entities are
// serialized as they are at Save time, so in-place edits need no bookkeeping.
type FileContext struct {
	Path string
	mu   sync.RWMutex
	doc  document
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName, dataFile), nil
}

// NewFileContext opens the document at path, or at DefaultPath when path is
// empty. A missing file is an empty context.
func NewFileContext(path string) (*FileContext, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	fc := &FileContext{Path: path}

	if _, err := os.Stat(path); err == nil {
		if err := fc.Load(); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

func (fc *FileContext) Load() error {
	f, err := os.Open(fc.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	var doc document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode %s: %w", fc.Path, err)
	}
	doc.Tasks = slices.DeleteFunc(doc.Tasks, func(t *model.Task) bool { return t == nil })
	doc.Projects = slices.DeleteFunc(doc.Projects, func(p *model.Project) bool { return p == nil })

	fc.mu.Lock()
	fc.doc = doc
	fc.mu.Unlock()
	return nil
}

// Save writes the document next to its destination and renames it into place.
func (fc *FileContext) Save() error {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	dir := filepath.Dir(fc.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, dataFile+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&fc.doc); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fc.Path)
}

func (fc *FileContext) Insert(e model.Entity) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	switch v := e.(type) {
	case *model.Task:
		fc.doc.Tasks = append(fc.doc.Tasks, v)
	case *model.Project:
		fc.doc.Projects = append(fc.doc.Projects, v)
	}
}

func (fc *FileContext) Delete(e model.Entity) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	id := e.EntityID()
	switch e.Kind() {
	case model.KindTask:
		for i, t := range fc.doc.Tasks {
			if t.ID == id {
				fc.doc.Tasks = append(fc.doc.Tasks[:i], fc.doc.Tasks[i+1:]...)
				return
			}
		}
	case model.KindProject:
		for i, p := range fc.doc.Projects {
			if p.ID == id {
				fc.doc.Projects = append(fc.doc.Projects[:i], fc.doc.Projects[i+1:]...)
				return
			}
		}
	}
}

// QueryAll returns the live entities of the given kind in insertion order.
func (fc *FileContext) QueryAll(kind model.EntityKind) ([]model.Entity, error) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	var out []model.Entity
	switch kind {
	case model.KindTask:
		for _, t := range fc.doc.Tasks {
			out = append(out, t)
		}
	case model.KindProject:
		for _, p := range fc.doc.Projects {
			out = append(out, p)
		}
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	return out, nil
}
