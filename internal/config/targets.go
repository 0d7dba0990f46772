package config

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/groblegark/bootgate/internal/gate"
	"github.com/groblegark/bootgate/internal/model"
)

// targetsFile mirrors the TOML targets file:
//
//	[targets.billing]
//	repos = ["BillingRepo", "LedgerRepo"]
//
//	[repos.BillingRepo]
//	url = "postgres://..."
type targetsFile struct {
	Targets map[string]targetEntry `toml:"targets"`
	Repos   map[string]repoEntry   `toml:"repos"`
}

type targetEntry struct {
	Repos []string `toml:"repos"`
}

type repoEntry struct {
	URL string `toml:"url"`
}

// TOMLSource is a gate.ConfigSource backed by a TOML targets file. The file
// is parsed once per process; Load is idempotent per target.
type TOMLSource struct {
	path string

	once    sync.Once
	parsed  targetsFile
	readErr error
}

// Compile-time check that TOMLSource implements gate.ConfigSource.
var _ gate.ConfigSource = (*TOMLSource)(nil)

// NewTOMLSource returns a source reading the targets file at path.
func NewTOMLSource(path string) *TOMLSource {
	return &TOMLSource{path: path}
}

// Load parses the targets file (first call only) and verifies the target is
// declared with resolvable repositories. Unknown targets, unreadable files,
// and repositories without a URL all wrap gate.ErrNotLoaded.
func (s *TOMLSource) Load(target string) error {
	s.once.Do(func() {
		if _, err := toml.DecodeFile(s.path, &s.parsed); err != nil {
			s.readErr = err
		}
	})
	if s.readErr != nil {
		return fmt.Errorf("%w: reading %s: %v", gate.ErrNotLoaded, s.path, s.readErr)
	}
	entry, ok := s.parsed.Targets[target]
	if !ok {
		return fmt.Errorf("%w: unknown target %q in %s", gate.ErrNotLoaded, target, s.path)
	}
	for _, name := range entry.Repos {
		repo, ok := s.parsed.Repos[name]
		if !ok || repo.URL == "" {
			return fmt.Errorf("%w: repository %q has no url in %s", gate.ErrNotLoaded, name, s.path)
		}
	}
	return nil
}

// Repos returns the target's repositories in the order the targets file
// lists them. Empty for targets that were never loaded.
func (s *TOMLSource) Repos(target string) []model.RepoConfig {
	entry, ok := s.parsed.Targets[target]
	if !ok {
		return nil
	}
	repos := make([]model.RepoConfig, 0, len(entry.Repos))
	for _, name := range entry.Repos {
		repos = append(repos, model.RepoConfig{
			Name:   name,
			Target: target,
			URL:    s.parsed.Repos[name].URL,
		})
	}
	return repos
}
