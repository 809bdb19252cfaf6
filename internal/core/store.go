package core

import "context"

// Store persists glossary entries and their audit trail.
//
// Implementations live under internal/store. None of them lock the natural
// key, so two concurrent FindOrCreate calls for the same source may both
// create an entry.
type Store interface {
	// FindOrCreate returns the first entry (lowest ID) with the given
	// source, creating one with an empty target when none exists. It never
	// writes an audit record.
	FindOrCreate(ctx context.Context, scope Scope, source string) (Entry, bool, error)

	// CreateAudited inserts a new entry and its change record atomically.
	// An empty action is recorded as ActionNew.
	CreateAudited(ctx context.Context, actor Actor, scope Scope, source, target string, action ChangeAction) (Entry, error)

	// Save persists the source and target of e without auditing.
	Save(ctx context.Context, e *Entry) error

	// EditAudited replaces source and target, persists e and appends an
	// ActionEdit change.
	EditAudited(ctx context.Context, actor Actor, e *Entry, source, target string) error

	// Audit appends a change record built elsewhere, typically with
	// NewChange.
	Audit(ctx context.Context, c Change) error

	// List returns the entries of scope ordered by source.
	List(ctx context.Context, scope Scope, filter ListFilter) ([]Entry, error)

	// Get returns one entry of scope, or ErrNotFound.
	Get(ctx context.Context, scope Scope, id int64) (Entry, error)

	// Changes returns audit records, newest first.
	Changes(ctx context.Context, filter ChangeFilter) ([]Change, error)
}
