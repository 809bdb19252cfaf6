package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/glossary/internal/core"
)

func render(t *testing.T, d GlossaryPageData) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, GlossaryPage(d).Render(context.Background(), &buf))
	return buf.String()
}

func TestGlossaryPage(t *testing.T) {
	scope := core.Scope{Project: "web", Language: "de"}
	html := render(t, GlossaryPageData{
		Scope: scope,
		Entries: []core.Entry{
			{ID: 1, Project: "web", Language: "de", Source: "<b>cat</b>", Target: "Katze & Kater"},
			{ID: 2, Project: "web", Language: "de", Source: "dog", Target: "Hund"},
		},
		Search:   `"x"`,
		Letter:   "c",
		Selected: 2,
	})

	assert.Contains(t, html, "<title>Glossary web/de</title>")
	assert.Contains(t, html, "&lt;b&gt;cat&lt;/b&gt;")
	assert.Contains(t, html, "Katze &amp; Kater")
	assert.Contains(t, html, `value="&#34;x&#34;"`)
	assert.Contains(t, html, `<tr id="entry-2" class="selected">`)
	assert.Contains(t, html, `<tr id="entry-1">`)
	assert.Contains(t, html, `href="/projects/web/de/dictionary?letter=c" class="active"`)
	assert.NotContains(t, html, "No entries.")
}

func TestGlossaryPageEmpty(t *testing.T) {
	html := render(t, GlossaryPageData{Scope: core.Scope{Project: "web", Language: "fr"}})
	assert.Contains(t, html, "No entries.")
	assert.NotContains(t, html, "<table>")
	assert.NotContains(t, html, `class="active"`)
}

func TestGlossaryPageCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	err := GlossaryPage(GlossaryPageData{}).Render(ctx, &buf)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())
}

func TestLetterURL(t *testing.T) {
	d := GlossaryPageData{Scope: core.Scope{Project: "my app", Language: "pt-BR"}}
	assert.Equal(t, "/projects/my%20app/pt-BR/dictionary", d.BaseURL())
	assert.Equal(t, "/projects/my%20app/pt-BR/dictionary?letter=%C3%A9", d.LetterURL("é"))
	assert.Equal(t, "entry-7", RowID(core.Entry{ID: 7}))
}
