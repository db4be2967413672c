package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obask/taskonizer/pkg/store"
)

func TestLoadFileMissingGivesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.TodayPolicy != store.TodayByCategory {
		t.Errorf("Expected default today policy %q, got %q", store.TodayByCategory, cfg.TodayPolicy)
	}
	if cfg.EmptyTitles {
		t.Errorf("Expected empty titles rejected by default")
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	want := &Config{DataFile: "/tmp/tasks.json", TodayPolicy: store.TodayByCreationDate, EmptyTitles: true}
	if err := SaveFile(path, want); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if *got != *want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if n := len(got.StoreOptions()); n != 2 {
		t.Errorf("Expected 2 store options, got %d", n)
	}
}

func TestLoadFileRejectsUnknownPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"today_policy": "tomorrow"}`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Errorf("Expected error for unknown today policy")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDSN, "user:pw@tcp(localhost:3306)/tasks")
	t.Setenv(EnvTodayPolicy, "created")
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if cfg.DSN != "user:pw@tcp(localhost:3306)/tasks" {
		t.Errorf("Expected DSN from env, got %q", cfg.DSN)
	}
	if cfg.TodayPolicy != store.TodayByCreationDate {
		t.Errorf("Expected created policy, got %q", cfg.TodayPolicy)
	}

	t.Setenv(EnvTodayPolicy, "bogus")
	if err := cfg.applyEnv(); err == nil {
		t.Errorf("Expected error for bogus policy")
	}
}

func TestUpdateFileKeepsEnvOutOfFile(t *testing.T) {
	t.Setenv(EnvDSN, "user:secret@tcp(db:3306)/tasks")
	t.Setenv(EnvDataFile, "/elsewhere/tasks.json")
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveFile(path, &Config{DataFile: "/home/tasks.json", TodayPolicy: store.TodayByCategory}); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	err := UpdateFile(path, func(c *Config) { c.TodayPolicy = store.TodayByCreationDate })
	if err != nil {
		t.Fatalf("UpdateFile failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "secret") || strings.Contains(string(raw), "/elsewhere") {
		t.Errorf("Expected environment values to stay out of the file, got %s", raw)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if got.TodayPolicy != store.TodayByCreationDate || got.DataFile != "/home/tasks.json" || got.DSN != "" {
		t.Errorf("Unexpected config after update: %+v", got)
	}
}
