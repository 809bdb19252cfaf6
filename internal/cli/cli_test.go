package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/glossary/internal/core"
)

func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	flags := NewFlags()
	flags.User = "tester"
	flags.Getenv = func(string) string { return "" }

	cmd := CreateRootCommand(flags)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--sqlite", dbPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateRootCommand(t *testing.T) {
	cmd := CreateRootCommand(NewFlags())
	assert.Equal(t, "glossary", cmd.Use)

	for _, name := range []string{"sqlite", "database-url", "user", "log-level", "output", "dry-run"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s", name)
	}

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"import", "list", "add", "edit", "changes", "formats"})
}

func TestImportListEdit(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "glossary.db")
	file := filepath.Join(dir, "terms.csv")
	require.NoError(t, os.WriteFile(file, []byte("cat,Katze\ndog,Hund\n"), 0o644))

	out, err := run(t, db, "import", "web", "de", file, "--method", "add")
	require.NoError(t, err)
	assert.Contains(t, out, "2 applied")
	assert.Contains(t, out, "(read as source,target)")

	out, err = run(t, db, "-o", "json", "list", "web", "de")
	require.NoError(t, err)
	var entries []core.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "cat", entries[0].Source)

	_, err = run(t, db, "edit", "web", "de", "1", "cat", "Kater")
	require.NoError(t, err)

	out, err = run(t, db, "list", "web", "de", "--letter", "c")
	require.NoError(t, err)
	assert.Contains(t, out, "Kater")
	assert.NotContains(t, out, "Hund")

	out, err = run(t, db, "-o", "yaml", "changes", "web", "de", "--action", "dictionary_edit")
	require.NoError(t, err)
	var changes []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &changes))
	require.Len(t, changes, 1)
	assert.Equal(t, "tester", changes[0]["userid"])
}

func TestAddValidation(t *testing.T) {
	db := filepath.Join(t.TempDir(), "glossary.db")

	_, err := run(t, db, "add", "web", "de", "", "leer")
	assert.ErrorIs(t, err, core.ErrEmptySource)

	_, err = run(t, db, "edit", "web", "de", "x", "a", "b")
	assert.Error(t, err)

	_, err = run(t, db, "edit", "web", "de", "99", "a", "b")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = run(t, db, "-o", "xml", "list", "web", "de")
	assert.Error(t, err)
}

func TestDryRun(t *testing.T) {
	flags := NewFlags()
	flags.User = "tester"
	flags.Getenv = func(string) string { return "" }

	cmd := CreateRootCommand(flags)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--dry-run", "add", "web", "de", "cat", "Katze"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Katze")
}

func TestMissingUser(t *testing.T) {
	flags := NewFlags()
	flags.User = ""
	flags.Getenv = func(string) string { return "" }

	cmd := CreateRootCommand(flags)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--dry-run", "add", "web", "de", "cat", "Katze"})
	assert.ErrorIs(t, cmd.Execute(), core.ErrNoActor)
}

func TestFormats(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "g.db"), "formats")
	require.NoError(t, err)
	for _, f := range []string{"csv", "json", "yaml", "po"} {
		assert.Contains(t, out, f)
	}
}
