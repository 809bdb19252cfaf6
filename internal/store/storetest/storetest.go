// Package storetest is a behavioural suite shared by the core.Store
// implementations.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/glossary/internal/core"
)

var (
	de    = core.Scope{Project: "demo", Language: "de"}
	fr    = core.Scope{Project: "demo", Language: "fr"}
	alice = core.Actor{ID: "u1", Name: "Alice"}
)

// Run exercises s. The store must be empty.
func Run(t *testing.T, s core.Store) {
	t.Run("FindOrCreate", func(t *testing.T) { testFindOrCreate(t, s) })
	t.Run("CreateAudited", func(t *testing.T) { testCreateAudited(t, s) })
	t.Run("SaveAndEdit", func(t *testing.T) { testSaveAndEdit(t, s) })
	t.Run("List", func(t *testing.T) { testList(t, s) })
	t.Run("ListUnicode", func(t *testing.T) { testListUnicode(t, s) })
	t.Run("Changes", func(t *testing.T) { testChanges(t, s) })
}

func testFindOrCreate(t *testing.T, s core.Store) {
	ctx := context.Background()
	scope := core.Scope{Project: "foc", Language: "de"}

	first, created, err := s.FindOrCreate(ctx, scope, "Hello")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, first.Target)
	assert.NotZero(t, first.ID)

	again, created, err := s.FindOrCreate(ctx, scope, "Hello")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	dup, err := s.CreateAudited(ctx, alice, scope, "Hello", "Servus", core.ActionUpload)
	require.NoError(t, err)
	assert.Greater(t, dup.ID, first.ID)

	lowest, _, err := s.FindOrCreate(ctx, scope, "Hello")
	require.NoError(t, err)
	assert.Equal(t, first.ID, lowest.ID, "first entry wins among duplicates")

	audit, err := s.Changes(ctx, core.ChangeFilter{Project: "foc", EntryID: first.ID})
	require.NoError(t, err)
	assert.Empty(t, audit, "lookups are never audited")
}

func testCreateAudited(t *testing.T, s core.Store) {
	ctx := core.ContextWithUserAgent(core.ContextWithIPAddress(context.Background(), "10.0.0.1"), "curl/8")

	e, err := s.CreateAudited(ctx, alice, de, "cat", "Katze", "")
	require.NoError(t, err)
	assert.Equal(t, "demo/de: cat -> Katze", e.String())

	got, err := s.Get(ctx, de, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Katze", got.Target)

	_, err = s.Get(ctx, fr, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "entries are scoped")

	audit, err := s.Changes(ctx, core.ChangeFilter{EntryID: e.ID})
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, core.ActionNew, audit[0].Action)
	assert.Equal(t, "u1", audit[0].UserID)
	assert.Equal(t, "Alice", audit[0].UserName)
	assert.Equal(t, "Katze", audit[0].Target)
	assert.Equal(t, "10.0.0.1", audit[0].IPAddress)
	assert.Equal(t, "curl/8", audit[0].UserAgent)
	assert.False(t, audit[0].CreatedAt.IsZero())
}

func testSaveAndEdit(t *testing.T, s core.Store) {
	ctx := context.Background()

	e, _, err := s.FindOrCreate(ctx, de, "dog")
	require.NoError(t, err)

	e.Target = "Hund"
	require.NoError(t, s.Save(ctx, &e))

	got, err := s.Get(ctx, de, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hund", got.Target)

	audit, err := s.Changes(ctx, core.ChangeFilter{EntryID: e.ID})
	require.NoError(t, err)
	assert.Empty(t, audit, "save is not audited")

	require.NoError(t, s.EditAudited(ctx, alice, &got, "doggy", "Hündchen"))
	assert.Equal(t, "doggy", got.Source)

	reloaded, err := s.Get(ctx, de, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "doggy", reloaded.Source)
	assert.Equal(t, "Hündchen", reloaded.Target)

	audit, err = s.Changes(ctx, core.ChangeFilter{EntryID: e.ID})
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, core.ActionEdit, audit[0].Action)
	assert.Equal(t, "Hündchen", audit[0].Target)

	missing := core.Entry{ID: 1 << 40, Project: de.Project, Language: de.Language}
	assert.ErrorIs(t, s.EditAudited(ctx, alice, &missing, "x", "y"), core.ErrNotFound)
	assert.ErrorIs(t, s.Save(ctx, &missing), core.ErrNotFound)
}

func testList(t *testing.T, s core.Store) {
	ctx := context.Background()
	scope := core.Scope{Project: "list", Language: "de"}

	for _, src := range []string{"zebra", "apple", "apricot", "banana", "50%_off"} {
		_, err := s.CreateAudited(ctx, alice, scope, src, "t-"+src, "")
		require.NoError(t, err)
	}

	all, err := s.List(ctx, scope, core.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"50%_off", "apple", "apricot", "banana", "zebra"}, sources(all))

	byLetter, err := s.List(ctx, scope, core.ListFilter{Letter: "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "apricot"}, sources(byLetter))

	bySearch, err := s.List(ctx, scope, core.ListFilter{Search: "T-BAN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"banana"}, sources(bySearch))

	wildcard, err := s.List(ctx, scope, core.ListFilter{Search: "%_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"50%_off"}, sources(wildcard), "wildcards match literally")

	paged, err := s.List(ctx, scope, core.ListFilter{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "apricot"}, sources(paged))

	offsetOnly, err := s.List(ctx, scope, core.ListFilter{Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"zebra"}, sources(offsetOnly))
}

func testListUnicode(t *testing.T, s core.Store) {
	ctx := context.Background()
	scope := core.Scope{Project: "list-unicode", Language: "fr"}

	for _, src := range []string{"Étoile", "eagle", "Über"} {
		_, err := s.CreateAudited(ctx, alice, scope, src, "t-"+src, "")
		require.NoError(t, err)
	}

	byLetter, err := s.List(ctx, scope, core.ListFilter{Letter: "é"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Étoile"}, sources(byLetter))

	byUpperLetter, err := s.List(ctx, scope, core.ListFilter{Letter: "É"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Étoile"}, sources(byUpperLetter))

	plainE, err := s.List(ctx, scope, core.ListFilter{Letter: "e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"eagle"}, sources(plainE))

	bySearch, err := s.List(ctx, scope, core.ListFilter{Search: "étoile"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Étoile"}, sources(bySearch))

	byTarget, err := s.List(ctx, scope, core.ListFilter{Search: "T-ÜBER"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Über"}, sources(byTarget))
}

func testChanges(t *testing.T, s core.Store) {
	ctx := context.Background()
	scope := core.Scope{Project: "changes", Language: "de"}

	for _, src := range []string{"a", "b", "c"} {
		_, err := s.CreateAudited(ctx, alice, scope, src, src, core.ActionUpload)
		require.NoError(t, err)
	}
	e, err := s.CreateAudited(ctx, alice, scope, "d", "d", core.ActionNew)
	require.NoError(t, err)
	require.NoError(t, s.Audit(ctx, core.NewChange(ctx, alice, core.ActionUpload, e)))

	uploads, err := s.Changes(ctx, core.ChangeFilter{Project: "changes", Action: core.ActionUpload, Limit: 2})
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, "d", uploads[0].Target, "newest first")
	assert.Equal(t, "c", uploads[1].Target)

	all, err := s.Changes(ctx, core.ChangeFilter{Project: "changes", Language: "de"})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func sources(entries []core.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Source)
	}
	return out
}
