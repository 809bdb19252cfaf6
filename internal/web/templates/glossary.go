// Package templates holds the HTML pages served by the web package.
package templates

import (
	"fmt"
	"net/url"

	"github.com/JonMunkholm/glossary/internal/core"
)

// GlossaryPageData is what the listing page renders.
type GlossaryPageData struct {
	Scope    core.Scope
	Entries  []core.Entry
	Search   string
	Letter   string
	Selected int64
}

// Letters are the first-letter filters offered in the page navigation.
var Letters = []string{
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
}

// BaseURL is the unfiltered listing of the glossary.
func (d GlossaryPageData) BaseURL() string {
	return core.GlossaryURL(d.Scope)
}

func (d GlossaryPageData) LetterURL(letter string) string {
	return d.BaseURL() + "?letter=" + url.QueryEscape(letter)
}

// RowID is the anchor of an entry's table row.
func RowID(e core.Entry) string {
	return fmt.Sprintf("entry-%d", e.ID)
}
