package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	m, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Run.Trace {
		t.Error("default trace = true, want false")
	}
	if m.Run.MaxCallDepth != 10_000 {
		t.Errorf("default max-call-depth = %d, want 10000", m.Run.MaxCallDepth)
	}
	if m.Profile.Enabled {
		t.Error("default profile enabled = true, want false")
	}
	if m.Profile.DB != "teeny-profile.db" {
		t.Errorf("default profile db = %q", m.Profile.DB)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[run]
trace = true
max-call-depth = 64

[profile]
enabled = true
db = "stats.db"
`
	if err := os.WriteFile(filepath.Join(dir, "teeny.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !m.Run.Trace {
		t.Error("trace = false, want true")
	}
	if m.Run.MaxCallDepth != 64 {
		t.Errorf("max-call-depth = %d, want 64", m.Run.MaxCallDepth)
	}
	if !m.Profile.Enabled {
		t.Error("profile enabled = false, want true")
	}
	if m.Profile.DB != "stats.db" {
		t.Errorf("profile db = %q, want stats.db", m.Profile.DB)
	}
	if m.Dir == "" {
		t.Error("Dir not set at load time")
	}
}

func TestLoadPartialManifestKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "teeny.toml"), []byte("[run]\ntrace = true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !m.Run.Trace {
		t.Error("trace = false, want true")
	}
	if m.Run.MaxCallDepth != 10_000 {
		t.Errorf("max-call-depth = %d, want default 10000", m.Run.MaxCallDepth)
	}
}

func TestLoadBadToml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "teeny.toml"), []byte("[run\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load of malformed toml succeeded")
	}
}

func TestDBPath(t *testing.T) {
	m := Default()
	m.Dir = "/work/project"
	if got := m.DBPath(); got != filepath.Join("/work/project", "teeny-profile.db") {
		t.Errorf("DBPath = %q", got)
	}

	m.Profile.DB = "/var/lib/teeny.db"
	if got := m.DBPath(); got != "/var/lib/teeny.db" {
		t.Errorf("absolute DBPath = %q", got)
	}
}
