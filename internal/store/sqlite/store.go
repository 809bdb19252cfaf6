package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/JonMunkholm/glossary/internal/core"
)

// runner is satisfied by *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements core.Store on a SQLite database opened with Open.
type Store struct {
	DB *sql.DB
	SQ sq.StatementBuilderType
}

var _ core.Store = (*Store)(nil)

// New wraps a database opened with Open.
func New(db *sql.DB) *Store {
	return &Store{DB: db, SQ: sq.StatementBuilder}
}

var entryColumns = []string{"id", "project", "language", "source", "target", "created_at", "updated_at"}

func scanEntry(row interface{ Scan(...any) error }) (core.Entry, error) {
	var (
		e                core.Entry
		created, updated string
	)
	if err := row.Scan(&e.ID, &e.Project, &e.Language, &e.Source, &e.Target, &created, &updated); err != nil {
		return core.Entry{}, err
	}
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return e, nil
}

func (s *Store) insertEntry(ctx context.Context, r runner, scope core.Scope, source, target string) (core.Entry, error) {
	now := time.Now().UTC()
	q := s.SQ.Insert("dictionary").
		Columns("project", "language", "source", "target", "created_at", "updated_at").
		Values(scope.Project, scope.Language, source, target, formatTime(now), formatTime(now))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return core.Entry{}, err
	}
	res, err := r.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry id: %w", err)
	}
	return core.Entry{
		ID:        id,
		Project:   scope.Project,
		Language:  scope.Language,
		Source:    source,
		Target:    target,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Store) updateEntry(ctx context.Context, r runner, e *core.Entry) error {
	now := time.Now().UTC()
	q := s.SQ.Update("dictionary").
		Set("source", e.Source).
		Set("target", e.Target).
		Set("updated_at", formatTime(now)).
		Where(sq.Eq{"id": e.ID, "project": e.Project, "language": e.Language})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	res, err := r.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("update entry %d: %w", e.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	e.UpdatedAt = now
	return nil
}

func (s *Store) insertChange(ctx context.Context, r runner, c core.Change) error {
	q := s.SQ.Insert("dictionary_change").
		Columns("id", "action", "entry_id", "project", "language", "user_id", "user_name",
			"target", "ip_address", "user_agent", "created_at").
		Values(c.ID, string(c.Action), c.EntryID, c.Project, c.Language, c.UserID, c.UserName,
			c.Target, c.IPAddress, c.UserAgent, formatTime(c.CreatedAt))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	if _, err := r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}

// FindOrCreate returns the oldest entry with source in scope, inserting one
// with an empty target when none exists. The bool reports creation.
func (s *Store) FindOrCreate(ctx context.Context, scope core.Scope, source string) (core.Entry, bool, error) {
	q := s.SQ.Select(entryColumns...).From("dictionary").
		Where(sq.Eq{"project": scope.Project, "language": scope.Language, "source": source}).
		OrderBy("id").Limit(1)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return core.Entry{}, false, err
	}

	e, err := scanEntry(s.DB.QueryRowContext(ctx, sqlStr, args...))
	switch {
	case err == nil:
		return e, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return core.Entry{}, false, fmt.Errorf("find entry: %w", err)
	}

	e, err = s.insertEntry(ctx, s.DB, scope, source, "")
	if err != nil {
		return core.Entry{}, false, err
	}
	return e, true, nil
}

// CreateAudited inserts an entry and its change record in one transaction.
func (s *Store) CreateAudited(ctx context.Context, actor core.Actor, scope core.Scope, source, target string, action core.ChangeAction) (core.Entry, error) {
	var e core.Entry
	err := WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		if e, err = s.insertEntry(ctx, tx, scope, source, target); err != nil {
			return err
		}
		return s.insertChange(ctx, tx, core.NewChange(ctx, actor, action, e))
	})
	if err != nil {
		return core.Entry{}, err
	}
	return e, nil
}

// Save writes source and target of e back to its row.
func (s *Store) Save(ctx context.Context, e *core.Entry) error {
	return s.updateEntry(ctx, s.DB, e)
}

// EditAudited updates e and records the edit in one transaction.
func (s *Store) EditAudited(ctx context.Context, actor core.Actor, e *core.Entry, source, target string) error {
	edited := *e
	edited.Source, edited.Target = source, target

	err := WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := s.updateEntry(ctx, tx, &edited); err != nil {
			return err
		}
		return s.insertChange(ctx, tx, core.NewChange(ctx, actor, core.ActionEdit, edited))
	})
	if err != nil {
		return err
	}
	*e = edited
	return nil
}

// Audit inserts a change record.
func (s *Store) Audit(ctx context.Context, c core.Change) error {
	return s.insertChange(ctx, s.DB, c)
}

// likePattern escapes LIKE wildcards in a lowercased term.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(strings.ToLower(term))
}

// List returns the entries of scope ordered by source, then id. Search and
// Letter match case-insensitively, Unicode included.
func (s *Store) List(ctx context.Context, scope core.Scope, filter core.ListFilter) ([]core.Entry, error) {
	q := s.SQ.Select(entryColumns...).From("dictionary").
		Where(sq.Eq{"project": scope.Project, "language": scope.Language}).
		OrderBy("source", "id")

	if filter.Search != "" {
		p := "%" + likePattern(filter.Search) + "%"
		q = q.Where(sq.Or{
			sq.Expr(`ulower(source) LIKE ? ESCAPE '\'`, p),
			sq.Expr(`ulower(target) LIKE ? ESCAPE '\'`, p),
		})
	}
	if filter.Letter != "" {
		q = q.Where(sq.Expr(`ulower(source) LIKE ? ESCAPE '\'`, likePattern(filter.Letter)+"%"))
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			// SQLite requires LIMIT before OFFSET
			q = q.Limit(uint64(1<<63 - 1))
		}
		q = q.Offset(uint64(filter.Offset))
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the entry with id in scope, or core.ErrNotFound.
func (s *Store) Get(ctx context.Context, scope core.Scope, id int64) (core.Entry, error) {
	q := s.SQ.Select(entryColumns...).From("dictionary").
		Where(sq.Eq{"id": id, "project": scope.Project, "language": scope.Language})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return core.Entry{}, err
	}
	e, err := scanEntry(s.DB.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// Changes returns change records matching filter, newest first.
func (s *Store) Changes(ctx context.Context, filter core.ChangeFilter) ([]core.Change, error) {
	q := s.SQ.Select("id", "action", "entry_id", "project", "language", "user_id", "user_name",
		"target", "ip_address", "user_agent", "created_at").
		From("dictionary_change").
		OrderBy("seq DESC")

	where := sq.Eq{}
	if filter.Project != "" {
		where["project"] = filter.Project
	}
	if filter.Language != "" {
		where["language"] = filter.Language
	}
	if filter.EntryID != 0 {
		where["entry_id"] = filter.EntryID
	}
	if filter.Action != "" {
		where["action"] = string(filter.Action)
	}
	if len(where) > 0 {
		q = q.Where(where)
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var out []core.Change
	for rows.Next() {
		var (
			c       core.Change
			action  string
			created string
		)
		if err := rows.Scan(&c.ID, &action, &c.EntryID, &c.Project, &c.Language, &c.UserID, &c.UserName,
			&c.Target, &c.IPAddress, &c.UserAgent, &created); err != nil {
			return nil, err
		}
		c.Action = core.ChangeAction(action)
		c.CreatedAt = parseTime(created)
		out = append(out, c)
	}
	return out, rows.Err()
}
