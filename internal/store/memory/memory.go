// Package memory is an in-process core.Store. It backs the tests and the
// CLI's --dry-run mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/glossary/internal/core"
)

// Store keeps entries and changes in slices guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	entries []core.Entry
	changes []core.Change
	now     func() time.Time
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) insert(scope core.Scope, source, target string) core.Entry {
	s.nextID++
	now := s.now()
	e := core.Entry{
		ID:        s.nextID,
		Project:   scope.Project,
		Language:  scope.Language,
		Source:    source,
		Target:    target,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.entries = append(s.entries, e)
	return e
}

func (s *Store) index(scope core.Scope, id int64) int {
	for i, e := range s.entries {
		if e.ID == id && e.Project == scope.Project && e.Language == scope.Language {
			return i
		}
	}
	return -1
}

// FindOrCreate returns the first entry with source in scope, creating one
// with an empty target when none exists. The bool reports creation.
func (s *Store) FindOrCreate(ctx context.Context, scope core.Scope, source string) (core.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.Entry{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// entries are appended in ID order, so the first hit has the lowest ID
	for _, e := range s.entries {
		if e.Project == scope.Project && e.Language == scope.Language && e.Source == source {
			return e, false, nil
		}
	}
	return s.insert(scope, source, ""), true, nil
}

// CreateAudited adds an entry and its change record under one lock.
func (s *Store) CreateAudited(ctx context.Context, actor core.Actor, scope core.Scope, source, target string, action core.ChangeAction) (core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.insert(scope, source, target)
	s.changes = append(s.changes, core.NewChange(ctx, actor, action, e))
	return e, nil
}

// Save replaces the stored copy of e and bumps its UpdatedAt.
func (s *Store) Save(ctx context.Context, e *core.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(e)
}

func (s *Store) saveLocked(e *core.Entry) error {
	i := s.index(e.Scope(), e.ID)
	if i < 0 {
		return core.ErrNotFound
	}
	e.UpdatedAt = s.now()
	e.CreatedAt = s.entries[i].CreatedAt
	s.entries[i] = *e
	return nil
}

// EditAudited updates e and records the edit under one lock.
func (s *Store) EditAudited(ctx context.Context, actor core.Actor, e *core.Entry, source, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	edited := *e
	edited.Source, edited.Target = source, target
	if err := s.saveLocked(&edited); err != nil {
		return err
	}
	*e = edited
	s.changes = append(s.changes, core.NewChange(ctx, actor, core.ActionEdit, edited))
	return nil
}

// Audit appends a change record.
func (s *Store) Audit(ctx context.Context, c core.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, c)
	return nil
}

// List returns the entries of scope ordered by source, then id.
func (s *Store) List(ctx context.Context, scope core.Scope, filter core.ListFilter) ([]core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	letter := strings.ToLower(filter.Letter)

	var out []core.Entry
	for _, e := range s.entries {
		if e.Project != scope.Project || e.Language != scope.Language {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Source), search) &&
			!strings.Contains(strings.ToLower(e.Target), search) {
			continue
		}
		if letter != "" && !strings.HasPrefix(strings.ToLower(e.Source), letter) {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].ID < out[j].ID
	})

	return page(out, filter.Offset, filter.Limit), nil
}

// Get returns the entry with id in scope, or core.ErrNotFound.
func (s *Store) Get(ctx context.Context, scope core.Scope, id int64) (core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return core.Entry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(scope, id)
	if i < 0 {
		return core.Entry{}, core.ErrNotFound
	}
	return s.entries[i], nil
}

// Changes returns change records matching filter, newest first.
func (s *Store) Changes(ctx context.Context, filter core.ChangeFilter) ([]core.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Change
	for i := len(s.changes) - 1; i >= 0; i-- {
		c := s.changes[i]
		switch {
		case filter.Project != "" && c.Project != filter.Project,
			filter.Language != "" && c.Language != filter.Language,
			filter.EntryID != 0 && c.EntryID != filter.EntryID,
			filter.Action != "" && c.Action != filter.Action:
			continue
		}
		out = append(out, c)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func page(entries []core.Entry, offset, limit int) []core.Entry {
	if offset > 0 {
		if offset >= len(entries) {
			return nil
		}
		entries = entries[offset:]
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
