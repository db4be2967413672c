package colors

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/obask/taskonizer/pkg/model"
	"github.com/obask/taskonizer/pkg/store"
)

func newTestCache(t *testing.T) *ColorCache {
	t.Helper()
	c, err := NewColorCache(filepath.Join(t.TempDir(), "colors.json"))
	if err != nil {
		t.Fatalf("NewColorCache failed: %v", err)
	}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return c
}

func TestColorIDStable(t *testing.T) {
	c := newTestCache(t)
	if got := c.ColorID(nil); got != NoProjectColor {
		t.Errorf("Expected %s for no project, got %s", NoProjectColor, got)
	}
	a, b := uuid.New(), uuid.New()
	ca := c.ColorID(&a)
	cb := c.ColorID(&b)
	if ca == cb {
		t.Errorf("Expected distinct colors, both got %s", ca)
	}
	if ca == NoProjectColor || cb == NoProjectColor {
		t.Errorf("Project colors must not reuse the no-project color")
	}
	if again := c.ColorID(&a); again != ca {
		t.Errorf("Expected stable color %s, got %s", ca, again)
	}
}

func TestColorIDEvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestCache(t)
	ids := make([]uuid.UUID, len(palette))
	for i := range ids {
		ids[i] = uuid.New()
		c.ColorID(&ids[i])
	}
	// Touch the first project so the second becomes the oldest.
	first := c.ColorID(&ids[0])
	secondColor := c.Projects[ids[1]].ColorID

	extra := uuid.New()
	if got := c.ColorID(&extra); got != secondColor {
		t.Errorf("Expected recycled color %s, got %s", secondColor, got)
	}
	if _, ok := c.Projects[ids[1]]; ok {
		t.Errorf("Expected LRU project evicted")
	}
	if c.Projects[ids[0]].ColorID != first {
		t.Errorf("Expected recently used project to keep its color")
	}
}

func TestSaveAndReload(t *testing.T) {
	c := newTestCache(t)
	id := uuid.New()
	color := c.ColorID(&id)
	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reloaded, err := NewColorCache(c.Path)
	if err != nil {
		t.Fatalf("NewColorCache failed: %v", err)
	}
	if got := reloaded.ColorID(&id); got != color {
		t.Errorf("Expected %s after reload, got %s", color, got)
	}
}

type nopPersister struct{}

func (nopPersister) Insert(model.Entity) {}
func (nopPersister) Delete(model.Entity) {}
func (nopPersister) Save() error { return nil }
func (nopPersister) QueryAll(model.EntityKind) ([]model.Entity, error) { return nil, nil }

func TestDeletedProjectReleasesColor(t *testing.T) {
	c := newTestCache(t)
	s := store.New(nopPersister{})
	s.Subscribe(c.HandleEvent)

	home, _ := s.CreateProject("Home")
	task, _ := s.CreateTask("Fix sink", model.Inbox, &home.ID)
	c.ColorID(&home.ID)

	_ = s.DeleteTask(task.ID)
	if _, ok := c.Projects[home.ID]; !ok {
		t.Fatalf("Deleting a task must not release its project's color")
	}
	_ = s.DeleteProject(home.ID)
	if _, ok := c.Projects[home.ID]; ok {
		t.Errorf("Expected color released after project deletion")
	}
}
