package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/glossary/internal/core"
)

// Store implements core.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// New returns a store on pool. Run Migrate first.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const entryColumns = `id, project, language, source, target, created_at, updated_at`

func scanEntry(row pgx.Row) (core.Entry, error) {
	var e core.Entry
	err := row.Scan(&e.ID, &e.Project, &e.Language, &e.Source, &e.Target, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func insertEntry(ctx context.Context, q DBTX, scope core.Scope, source, target string) (core.Entry, error) {
	e, err := scanEntry(q.QueryRow(ctx, `
        INSERT INTO dictionary (project, language, source, target)
        VALUES ($1, $2, $3, $4)
        RETURNING `+entryColumns,
		scope.Project, scope.Language, source, target))
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

func updateEntry(ctx context.Context, q DBTX, e *core.Entry) error {
	err := q.QueryRow(ctx, `
        UPDATE dictionary SET source = $1, target = $2, updated_at = now()
        WHERE id = $3 AND project = $4 AND language = $5
        RETURNING updated_at`,
		e.Source, e.Target, e.ID, e.Project, e.Language).Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update entry %d: %w", e.ID, err)
	}
	return nil
}

func insertChange(ctx context.Context, q DBTX, c core.Change) error {
	_, err := q.Exec(ctx, `
        INSERT INTO dictionary_change
            (id, action, entry_id, project, language, user_id, user_name, target, ip_address, user_agent, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		toPgUUID(c.ID), string(c.Action), c.EntryID, c.Project, c.Language,
		toPgText(c.UserID), toPgText(c.UserName), c.Target,
		toPgText(c.IPAddress), toPgText(c.UserAgent), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}

// FindOrCreate returns the oldest entry with source in scope, inserting one
// with an empty target when none exists. The bool reports creation.
func (s *Store) FindOrCreate(ctx context.Context, scope core.Scope, source string) (core.Entry, bool, error) {
	e, err := scanEntry(s.pool.QueryRow(ctx, `
        SELECT `+entryColumns+` FROM dictionary
        WHERE project = $1 AND language = $2 AND source = $3
        ORDER BY id LIMIT 1`,
		scope.Project, scope.Language, source))
	switch {
	case err == nil:
		return e, false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return core.Entry{}, false, fmt.Errorf("find entry: %w", err)
	}

	e, err = insertEntry(ctx, s.pool, scope, source, "")
	if err != nil {
		return core.Entry{}, false, err
	}
	return e, true, nil
}

// CreateAudited inserts an entry and its change record in one transaction.
func (s *Store) CreateAudited(ctx context.Context, actor core.Actor, scope core.Scope, source, target string, action core.ChangeAction) (core.Entry, error) {
	var e core.Entry
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		if e, err = insertEntry(ctx, tx, scope, source, target); err != nil {
			return err
		}
		return insertChange(ctx, tx, core.NewChange(ctx, actor, action, e))
	})
	if err != nil {
		return core.Entry{}, err
	}
	return e, nil
}

// Save writes source and target of e back to its row.
func (s *Store) Save(ctx context.Context, e *core.Entry) error {
	return updateEntry(ctx, s.pool, e)
}

// EditAudited updates e and records the edit in one transaction.
func (s *Store) EditAudited(ctx context.Context, actor core.Actor, e *core.Entry, source, target string) error {
	edited := *e
	edited.Source, edited.Target = source, target

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := updateEntry(ctx, tx, &edited); err != nil {
			return err
		}
		return insertChange(ctx, tx, core.NewChange(ctx, actor, core.ActionEdit, edited))
	})
	if err != nil {
		return err
	}
	*e = edited
	return nil
}

// Audit inserts a change record.
func (s *Store) Audit(ctx context.Context, c core.Change) error {
	return insertChange(ctx, s.pool, c)
}

// likePattern escapes LIKE wildcards in a lowercased term.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(strings.ToLower(term))
}

// List returns the entries of scope ordered by source, then id.
func (s *Store) List(ctx context.Context, scope core.Scope, filter core.ListFilter) ([]core.Entry, error) {
	var (
		b    strings.Builder
		args = []any{scope.Project, scope.Language}
	)
	b.WriteString(`SELECT ` + entryColumns + ` FROM dictionary WHERE project = $1 AND language = $2`)

	if filter.Search != "" {
		args = append(args, "%"+likePattern(filter.Search)+"%")
		fmt.Fprintf(&b, ` AND (LOWER(source) LIKE $%d OR LOWER(target) LIKE $%d)`, len(args), len(args))
	}
	if filter.Letter != "" {
		args = append(args, likePattern(filter.Letter)+"%")
		fmt.Fprintf(&b, ` AND LOWER(source) LIKE $%d`, len(args))
	}
	b.WriteString(` ORDER BY source COLLATE "C", id`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&b, ` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Entry, error) {
		return scanEntry(r)
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Get returns the entry with id in scope, or core.ErrNotFound.
func (s *Store) Get(ctx context.Context, scope core.Scope, id int64) (core.Entry, error) {
	e, err := scanEntry(s.pool.QueryRow(ctx, `
        SELECT `+entryColumns+` FROM dictionary
        WHERE id = $1 AND project = $2 AND language = $3`,
		id, scope.Project, scope.Language))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// Changes returns change records matching filter, newest first.
func (s *Store) Changes(ctx context.Context, filter core.ChangeFilter) ([]core.Change, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Project != "" {
		add("project = $%d", filter.Project)
	}
	if filter.Language != "" {
		add("language = $%d", filter.Language)
	}
	if filter.EntryID != 0 {
		add("entry_id = $%d", filter.EntryID)
	}
	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}

	query := `SELECT id, action, entry_id, project, language, user_id, user_name,
        target, ip_address, user_agent, created_at FROM dictionary_change`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	changes, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Change, error) {
		var (
			c                        core.Change
			id                       pgtype.UUID
			action                   string
			userID, userName, ip, ua pgtype.Text
		)
		err := r.Scan(&id, &action, &c.EntryID, &c.Project, &c.Language, &userID, &userName,
			&c.Target, &ip, &ua, &c.CreatedAt)
		c.ID = uuidToString(id)
		c.Action = core.ChangeAction(action)
		c.UserID, c.UserName = userID.String, userName.String
		c.IPAddress, c.UserAgent = ip.String, ua.String
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	return changes, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(s string) pgtype.UUID {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
