package scoring

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Built-in profile names. Files in the profile directory may add more or
// override these.
const (
	ProfileStandard = "standard"
	ProfileLegacy   = "legacy"
)

// rawProfile is the on-disk YAML shape of one weight table.
type rawProfile struct {
	Name         string  `yaml:"name"`
	Click        float64 `yaml:"click"`
	Share        float64 `yaml:"share"`
	DurationUnit float64 `yaml:"duration_unit"`
	View         float64 `yaml:"view"`
}

// ProfileRepository resolves weight tables by name. Built-in profiles are
// always present; *.yaml files in dir override or extend them. Profiles are
// loaded once at startup and cached in memory.
type ProfileRepository struct {
	profiles map[string]Weights
}

// NewProfileRepository creates a repository seeded with the built-in profiles
// and, when dir is non-empty, every *.yaml profile file found there. A missing
// directory is valid (built-ins only); a malformed file is an error.
func NewProfileRepository(dir string) (*ProfileRepository, error) {
	repo := &ProfileRepository{
		profiles: map[string]Weights{
			ProfileStandard: Standard(),
			ProfileLegacy:   Legacy(),
		},
	}
	if dir == "" {
		return repo, nil
	}
	if err := repo.load(dir); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *ProfileRepository) load(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scoring profile dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("scoring profile path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read scoring profile dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read scoring profile %q: %w", path, err)
		}

		var raw rawProfile
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse scoring profile %q: %w", path, err)
		}
		if raw.Name == "" {
			return fmt.Errorf("scoring profile %q: name is required", path)
		}
		if raw.Click < 0 || raw.Share < 0 || raw.DurationUnit < 0 || raw.View < 0 {
			return fmt.Errorf("scoring profile %q: weights must be non-negative", path)
		}

		r.profiles[raw.Name] = Weights{
			Click:        decimal.NewFromFloat(raw.Click),
			Share:        decimal.NewFromFloat(raw.Share),
			DurationUnit: decimal.NewFromFloat(raw.DurationUnit),
			View:         decimal.NewFromFloat(raw.View),
		}
	}

	return nil
}

// Get returns the weight table registered under name.
func (r *ProfileRepository) Get(name string) (Weights, error) {
	w, ok := r.profiles[name]
	if !ok {
		return Weights{}, fmt.Errorf("unknown scoring profile %q", name)
	}
	return w, nil
}

// Names returns every registered profile name (unordered).
func (r *ProfileRepository) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	return names
}
