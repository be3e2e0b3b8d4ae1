// Package registry holds the boards served by the stub. A Registry is built
// once from the configured profiles and is read-only afterwards, so lookups
// are safe from any number of goroutines without locking.
package registry

import (
	"errors"
	"slices"

	"github.com/Sternrassler/jira-stub/pkg/fixture"
	"github.com/rs/zerolog"
)

// ErrNoProfiles is returned by Load when no profile names are given.
var ErrNoProfiles = errors.New("no profiles configured")

// ProfileLoader loads a single named profile.
type ProfileLoader interface {
	LoadProfile(name string) (*fixture.Profile, error)
}

// Registry maps board identifiers to their fixtures.
type Registry struct {
	boards         map[int64]fixture.Document
	configurations map[int64]fixture.Document
	issues         map[int64][]fixture.Document
	issueIndex     map[string]fixture.Document
	profiles       []string
	failed         []string
}

// Load builds a registry from profiles, in order. A profile that fails to
// load is logged and skipped; it never contributes a partial entry. A later
// profile with the same board identifier replaces the earlier one.
func Load(loader ProfileLoader, profiles []string, logger zerolog.Logger) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}

	var loaded []*fixture.Profile
	var failed []string
	owner := make(map[int64]string)

	for _, name := range profiles {
		p, err := loader.LoadProfile(name)
		if err != nil {
			profilesLoaded.WithLabelValues("failed").Inc()
			failed = append(failed, name)
			continue
		}

		if prev, ok := owner[p.BoardID]; ok {
			logger.Warn().
				Int64("board_id", p.BoardID).
				Str("profile", name).
				Str("replaced_profile", prev).
				Msg("Board id defined by more than one profile")
		}
		owner[p.BoardID] = name
		loaded = append(loaded, p)
		profilesLoaded.WithLabelValues("loaded").Inc()
	}

	r := New(loaded...)
	r.failed = failed
	boardsRegistered.Set(float64(len(r.boards)))

	logger.Info().
		Int("boards", len(r.boards)).
		Strs("profiles", r.profiles).
		Strs("failed_profiles", r.failed).
		Msg("Board registry ready")

	return r, nil
}

// New builds a registry from parsed profiles, in order. A later profile with
// the same board identifier replaces the earlier one, which is then no
// longer listed by LoadedProfiles.
func New(profiles ...*fixture.Profile) *Registry {
	r := &Registry{
		boards:         make(map[int64]fixture.Document, len(profiles)),
		configurations: make(map[int64]fixture.Document, len(profiles)),
		issues:         make(map[int64][]fixture.Document, len(profiles)),
	}
	owner := make(map[int64]string, len(profiles))
	for _, p := range profiles {
		if prev, ok := owner[p.BoardID]; ok {
			r.profiles = slices.DeleteFunc(r.profiles, func(name string) bool { return name == prev })
		}
		owner[p.BoardID] = p.Name

		r.boards[p.BoardID] = p.Board
		r.configurations[p.BoardID] = p.Configuration
		r.issues[p.BoardID] = p.Issues
		r.profiles = append(r.profiles, p.Name)
	}
	r.indexIssues()
	return r
}

// indexIssues maps issue ids and keys to issues. Boards are visited in
// ascending id order and the first match wins.
func (r *Registry) indexIssues() {
	r.issueIndex = make(map[string]fixture.Document)
	for _, id := range r.BoardIDs() {
		for _, issue := range r.issues[id] {
			for _, field := range []string{"id", "key"} {
				v, ok := issue.StringField(field)
				if !ok || v == "" {
					continue
				}
				if _, seen := r.issueIndex[v]; !seen {
					r.issueIndex[v] = issue
				}
			}
		}
	}
}

// Board returns the board document registered under id.
func (r *Registry) Board(id int64) (fixture.Document, bool) {
	doc, ok := r.boards[id]
	return doc, ok
}

// Configuration returns the board configuration registered under id.
func (r *Registry) Configuration(id int64) (fixture.Document, bool) {
	doc, ok := r.configurations[id]
	return doc, ok
}

// Issues returns the ordered issue collection of board id. The slice is
// shared and must not be modified.
func (r *Registry) Issues(id int64) ([]fixture.Document, bool) {
	issues, ok := r.issues[id]
	return issues, ok
}

// Issue finds an issue by its id or key across all boards.
func (r *Registry) Issue(idOrKey string) (fixture.Document, bool) {
	doc, ok := r.issueIndex[idOrKey]
	return doc, ok
}

// BoardIDs returns the registered board identifiers in ascending order.
func (r *Registry) BoardIDs() []int64 {
	ids := make([]int64, 0, len(r.boards))
	for id := range r.boards {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Boards returns the board documents in ascending id order.
func (r *Registry) Boards() []fixture.Document {
	ids := r.BoardIDs()
	docs := make([]fixture.Document, len(ids))
	for i, id := range ids {
		docs[i] = r.boards[id]
	}
	return docs
}

// Len returns the number of registered boards.
func (r *Registry) Len() int {
	return len(r.boards)
}

// LoadedProfiles returns the names of the profiles whose boards are registered.
func (r *Registry) LoadedProfiles() []string {
	return slices.Clone(r.profiles)
}

// FailedProfiles returns the names of the profiles that were skipped.
func (r *Registry) FailedProfiles() []string {
	return slices.Clone(r.failed)
}
