// Package manifest handles teeny.toml runtime configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a teeny.toml configuration file. Every field has
// a working default, so running without a manifest is the common case;
// CLI flags override whatever the manifest says.
type Manifest struct {
	Run     Run     `toml:"run"`
	Profile Profile `toml:"profile"`

	// Dir is the directory containing the teeny.toml file (set at load time).
	Dir string `toml:"-"`
}

// Run configures the interpreter.
type Run struct {
	Trace        bool `toml:"trace"`
	MaxCallDepth int  `toml:"max-call-depth"`
}

// Profile configures run-statistics recording.
type Profile struct {
	Enabled bool   `toml:"enabled"`
	DB      string `toml:"db"`
}

// Default returns the configuration used when no teeny.toml exists.
func Default() *Manifest {
	return &Manifest{
		Run:     Run{MaxCallDepth: 10_000},
		Profile: Profile{DB: "teeny-profile.db"},
	}
}

// Load parses a teeny.toml file from the given directory. A missing
// file is not an error: the defaults are returned.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "teeny.toml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if m.Run.MaxCallDepth <= 0 {
		m.Run.MaxCallDepth = Default().Run.MaxCallDepth
	}
	if m.Profile.DB == "" {
		m.Profile.DB = Default().Profile.DB
	}

	return m, nil
}

// DBPath returns the profile database path, resolved against the
// manifest directory when relative.
func (m *Manifest) DBPath() string {
	if m.Dir == "" || filepath.IsAbs(m.Profile.DB) {
		return m.Profile.DB
	}
	return filepath.Join(m.Dir, m.Profile.DB)
}
