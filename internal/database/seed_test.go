package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCatalogDefault(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	if len(c.LearningPaths) == 0 {
		t.Fatal("default catalog has no learning paths")
	}
	for _, p := range c.LearningPaths {
		if len(p.Modules) == 0 {
			t.Errorf("path %q has no modules", p.Title)
		}
		for _, m := range p.Modules {
			if m.XPReward <= 0 {
				t.Errorf("module %q has no xp reward", m.Title)
			}
		}
	}

	if len(c.Challenges) == 0 {
		t.Fatal("default catalog has no challenges")
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := []byte(`
learning_paths:
  - title: Custom
    modules:
      - title: Only Module
        xp_reward: 10
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	p := c.LearningPaths[0]
	if p.LevelRequirement != 1 || p.TierRequirement != "free" {
		t.Errorf("defaults not applied: %+v", p)
	}
}

func TestLoadCatalogRejectsUntitledPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("learning_paths:\n  - description: nope\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("LoadCatalog() error = nil, want error")
	}
}
