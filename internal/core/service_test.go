package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/glossary/internal/core"
	"github.com/JonMunkholm/glossary/internal/format"
	"github.com/JonMunkholm/glossary/internal/store/memory"
)

var (
	scope = core.Scope{Project: "P", Language: "L"}
	actor = core.Actor{ID: "u1", Name: "Alice"}
)

func newService(t *testing.T, store core.Store) *core.Service {
	t.Helper()
	return core.NewService(store, core.Config{})
}

func importUnits(t *testing.T, store core.Store, policy core.Policy, units ...format.Unit) core.ImportStats {
	t.Helper()
	stats, err := core.NewImporter(store, nil).Import(context.Background(), actor, scope, units, policy)
	require.NoError(t, err)
	return stats
}

func entries(t *testing.T, store core.Store) []core.Entry {
	t.Helper()
	list, err := store.List(context.Background(), scope, core.ListFilter{})
	require.NoError(t, err)
	return list
}

func changes(t *testing.T, store core.Store) []core.Change {
	t.Helper()
	list, err := store.Changes(context.Background(), core.ChangeFilter{})
	require.NoError(t, err)
	return list
}

type untranslated struct{ source string }

func (u untranslated) Source() string       { return u.source }
func (u untranslated) Target() string       { return "" }
func (u untranslated) IsTranslatable() bool { return true }
func (u untranslated) IsTranslated() bool   { return false }

func TestImport_UntranslatedIsSkipped(t *testing.T) {
	store := memory.New()

	stats := importUnits(t, store, core.PolicyOverwrite,
		untranslated{"cat"}, untranslated{"dog"}, format.Pair("", "orphan"))

	assert.Equal(t, 3, stats.Skipped)
	assert.Zero(t, stats.Applied)
	assert.Empty(t, entries(t, store))
	assert.Empty(t, changes(t, store))
}

func TestImport_OversizedIsDiscardedSilently(t *testing.T) {
	store := memory.New()
	long := strings.Repeat("x", core.MaxTermLength+1)

	stats := importUnits(t, store, core.PolicyOverwrite,
		format.Pair(long, "short"), format.Pair("short", long))

	assert.Zero(t, stats.Applied)
	assert.Zero(t, stats.Skipped)
	assert.Equal(t, 2, stats.Discarded)
	assert.Empty(t, entries(t, store))
}

func TestImport_SameRecordTwiceWithOverwrite(t *testing.T) {
	store := memory.New()

	first := importUnits(t, store, core.PolicyOverwrite, format.Pair("cat", "chat"))
	second := importUnits(t, store, core.PolicyOverwrite, format.Pair("cat", "chat"))

	assert.Equal(t, 1, first.Applied)
	assert.Zero(t, second.Applied, "equal target is a no-op")
	assert.Equal(t, 1, second.Unchanged)

	list := entries(t, store)
	require.Len(t, list, 1)
	assert.Equal(t, "chat", list[0].Target)
}

func TestImport_AddCreatesDuplicates(t *testing.T) {
	store := memory.New()

	stats := importUnits(t, store, core.PolicyAdd,
		format.Pair("cat", "chat"), format.Pair("cat", "minou"))

	assert.Equal(t, 2, stats.Applied)
	list := entries(t, store)
	require.Len(t, list, 2)
	assert.Equal(t, "cat", list[0].Source)
	assert.Equal(t, "cat", list[1].Source)
	assert.NotEqual(t, list[0].ID, list[1].ID)
	assert.ElementsMatch(t, []string{"chat", "minou"}, []string{list[0].Target, list[1].Target})

	for _, c := range changes(t, store) {
		assert.Equal(t, core.ActionUpload, c.Action)
	}
}

func TestImport_DefaultPolicyKeepsExisting(t *testing.T) {
	store := memory.New()
	importUnits(t, store, core.PolicyOverwrite, format.Pair("cat", "chat"))

	for _, policy := range []core.Policy{core.PolicySkip, "", "merge"} {
		stats := importUnits(t, store, policy, format.Pair("cat", "minou"))
		assert.Zero(t, stats.Applied, "policy %q", policy)
		assert.Equal(t, 1, stats.Conflicts, "policy %q", policy)
	}

	list := entries(t, store)
	require.Len(t, list, 1)
	assert.Equal(t, "chat", list[0].Target)
}

func TestImport_Scenario(t *testing.T) {
	store := memory.New()

	// fresh glossary
	stats := importUnits(t, store, core.PolicySkip, format.Pair("cat", "chat"))
	assert.Equal(t, core.ImportStats{Applied: 1}, stats)

	list := entries(t, store)
	require.Len(t, list, 1)
	assert.Equal(t, "chat", list[0].Target)

	audit := changes(t, store)
	require.Len(t, audit, 1)
	assert.Equal(t, core.ActionUpload, audit[0].Action)
	assert.Equal(t, list[0].ID, audit[0].EntryID)
	assert.Equal(t, "chat", audit[0].Target)

	// overwrite
	stats = importUnits(t, store, core.PolicyOverwrite, format.Pair("cat", "kitty"))
	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, "kitty", entries(t, store)[0].Target)
	assert.Len(t, changes(t, store), 1, "overwrites are not audited")

	// default policy with the same target
	stats = importUnits(t, store, core.PolicySkip, format.Pair("cat", "kitty"))
	assert.Zero(t, stats.Applied)
	assert.Equal(t, 1, stats.Unchanged)
}

func TestUpload_CSVFallbackRunsOnce(t *testing.T) {
	store := memory.New()
	svc := newService(t, store)

	// headerless two-column file: the default layout reads location,source
	data := []byte("cat,chat\ndog,chien\n")

	result, err := svc.Upload(context.Background(), actor, scope, "terms.csv", data, core.PolicyOverwrite)
	require.NoError(t, err)

	assert.True(t, result.Retried)
	assert.Equal(t, format.CSV, result.Format)
	assert.Equal(t, 2, result.Applied)
	assert.Zero(t, result.Skipped)

	list := entries(t, store)
	require.Len(t, list, 2)
	assert.Equal(t, "cat", list[0].Source)
	assert.Equal(t, "chat", list[0].Target)
}

func TestUpload_FallbackDoesNotRecurse(t *testing.T) {
	store := memory.New()
	svc := newService(t, store)

	// one column: nothing is translated in either layout
	data := []byte("cat\ndog\n")

	result, err := svc.Upload(context.Background(), actor, scope, "terms.csv", data, core.PolicyOverwrite)
	require.NoError(t, err)

	assert.True(t, result.Retried)
	assert.Zero(t, result.Applied)
	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, entries(t, store))
}

func TestUpload_NoFallbackForHeaderedCSV(t *testing.T) {
	store := memory.New()
	svc := newService(t, store)

	data := []byte("source,target\ncat,chat\n")

	result, err := svc.Upload(context.Background(), actor, scope, "terms.csv", data, "")
	require.NoError(t, err)
	assert.False(t, result.Retried)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, core.PolicySkip, result.Policy)
}

func TestUpload_NoFallbackForOtherFormats(t *testing.T) {
	svc := newService(t, memory.New())

	data := []byte(`[{"source":"cat","target":""}]`)

	result, err := svc.Upload(context.Background(), actor, scope, "terms.json", data, core.PolicyOverwrite)
	require.NoError(t, err)
	assert.False(t, result.Retried)
	assert.Equal(t, 1, result.Skipped)
}

func TestUpload_Validation(t *testing.T) {
	svc := core.NewService(memory.New(), core.Config{MaxFileSize: 8})
	ctx := context.Background()

	_, err := svc.Upload(ctx, actor, scope, "big.csv", []byte("source,target\n"), "")
	assert.ErrorIs(t, err, core.ErrFileTooLarge)

	_, err = svc.Upload(ctx, core.Actor{}, scope, "a.csv", []byte("a"), "")
	assert.ErrorIs(t, err, core.ErrNoActor)

	_, err = svc.Upload(ctx, actor, core.Scope{Project: "P"}, "a.csv", []byte("a"), "")
	assert.ErrorIs(t, err, core.ErrInvalidScope)
}

func TestUpload_UnknownFormat(t *testing.T) {
	registry := format.NewRegistry()
	registry.Register(format.NewJSONLoader())
	svc := core.NewService(memory.New(), core.Config{}, core.WithRegistry(registry))

	_, err := svc.Upload(context.Background(), actor, scope, "terms.po", []byte("msgid \"a\"\nmsgstr \"b\"\n"), "")
	assert.ErrorIs(t, err, core.ErrUnknownFormat)
	assert.Equal(t, "FILE002", core.MapError(err).Code)
}

func TestUpload_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := core.NewMetrics(reg)
	svc := core.NewService(memory.New(), core.Config{}, core.WithMetrics(metrics))

	_, err := svc.Upload(context.Background(), actor, scope, "terms.csv", []byte("cat,chat\n"), core.PolicyOverwrite)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "glossary_uploads_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// failingStore fails Save after a number of successful calls.
type failingStore struct {
	*memory.Store
	saves int
	after int
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) Save(ctx context.Context, e *core.Entry) error {
	if f.saves >= f.after {
		return errDiskFull
	}
	f.saves++
	return f.Store.Save(ctx, e)
}

func TestImport_StoreFailureStopsPass(t *testing.T) {
	store := &failingStore{Store: memory.New(), after: 1}

	stats, err := core.NewImporter(store, nil).Import(context.Background(), actor, scope, []format.Unit{
		format.Pair("cat", "chat"),
		format.Pair("dog", "chien"),
		format.Pair("cow", "vache"),
	}, core.PolicyOverwrite)

	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 1, stats.Applied, "counts reached before the failure are kept")
}

func TestImport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := core.NewImporter(memory.New(), nil).Import(ctx, actor, scope, []format.Unit{format.Pair("a", "b")}, core.PolicyAdd)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateAndEdit(t *testing.T) {
	store := memory.New()
	svc := newService(t, store)
	ctx := context.Background()

	e, err := svc.Create(ctx, actor, scope, "  cat ", "chat")
	require.NoError(t, err)
	assert.Equal(t, "cat", e.Source)
	assert.Equal(t, "P/L: cat -> chat", e.String())

	edited, err := svc.Edit(ctx, actor, scope, e.ID, "cat", "minou")
	require.NoError(t, err)
	assert.Equal(t, "minou", edited.Target)

	audit := changes(t, store)
	require.Len(t, audit, 2)
	assert.Equal(t, core.ActionEdit, audit[0].Action)
	assert.Equal(t, "minou", audit[0].Target)
	assert.Equal(t, core.ActionNew, audit[1].Action)
}

func TestEdit_Validation(t *testing.T) {
	svc := newService(t, memory.New())
	ctx := context.Background()

	e, err := svc.Create(ctx, actor, scope, "cat", "chat")
	require.NoError(t, err)

	tests := []struct {
		name           string
		actor          core.Actor
		id             int64
		source, target string
		want           error
	}{
		{"empty source", actor, e.ID, " ", "x", core.ErrEmptySource},
		{"source too long", actor, e.ID, strings.Repeat("s", core.MaxTermLength+1), "x", core.ErrTooLong},
		{"target too long", actor, e.ID, "cat", strings.Repeat("t", core.MaxTermLength+1), core.ErrTooLong},
		{"missing entry", actor, 404, "cat", "x", core.ErrNotFound},
		{"no actor", core.Actor{}, e.ID, "cat", "x", core.ErrNoActor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Edit(ctx, tt.actor, scope, tt.id, tt.source, tt.target)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestChanges_RejectsUnknownAction(t *testing.T) {
	svc := newService(t, memory.New())
	_, err := svc.Changes(context.Background(), core.ChangeFilter{Action: "dictionary_delete"})
	assert.Error(t, err)
}
