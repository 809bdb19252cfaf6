package core

import (
	"fmt"
	"net/url"
	"time"
)

// MaxTermLength is the longest source or target accepted, in code points.
const MaxTermLength = 200

// Scope identifies one glossary: a project and a target language.
type Scope struct {
	Project  string // project slug
	Language string // language code
}

func (s Scope) String() string {
	return s.Project + "/" + s.Language
}

// Entry is one source -> target term pair.
//
// Project and Language are fixed at creation. Several entries may share a
// source when they were added with the "add" upload policy.
type Entry struct {
	ID        int64     `json:"id"`
	Project   string    `json:"project"`
	Language  string    `json:"language"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Scope returns the glossary the entry belongs to.
func (e Entry) Scope() Scope {
	return Scope{Project: e.Project, Language: e.Language}
}

func (e Entry) String() string {
	return fmt.Sprintf("%s/%s: %s -> %s", e.Project, e.Language, e.Source, e.Target)
}

// ParentURL is the listing page of the entry's glossary.
func (e Entry) ParentURL() string {
	return GlossaryURL(e.Scope())
}

// URL is the edit location of the entry.
func (e Entry) URL() string {
	return fmt.Sprintf("%s?id=%d", GlossaryURL(e.Scope()), e.ID)
}

// GlossaryURL is the listing page of a glossary.
func GlossaryURL(s Scope) string {
	return "/projects/" + url.PathEscape(s.Project) + "/" + url.PathEscape(s.Language) + "/dictionary"
}

// Actor is the authenticated user performing a change.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Policy selects how uploads treat sources that already exist.
type Policy string

const (
	// PolicyAdd creates a second entry with the same source.
	PolicyAdd Policy = "add"
	// PolicyOverwrite replaces the target of the existing entry.
	PolicyOverwrite Policy = "overwrite"
	// PolicySkip leaves existing entries alone. Any unrecognised policy
	// behaves the same way.
	PolicySkip Policy = "skip"
)

// ListFilter narrows a glossary listing.
type ListFilter struct {
	Search string // case-insensitive substring of source or target
	Letter string // first letter of source, case-insensitive
	Limit  int
	Offset int
}

// ChangeFilter narrows an audit log query. Zero values match everything.
type ChangeFilter struct {
	Project  string
	Language string
	EntryID  int64
	Action   ChangeAction
	Limit    int
}

// ImportStats are the counters of one import pass.
type ImportStats struct {
	Applied   int `json:"applied"`
	Skipped   int `json:"skipped"`
	Discarded int `json:"discarded"`
	Unchanged int `json:"unchanged"`
	Conflicts int `json:"conflicts"`
}

// UploadResult describes a finished upload.
type UploadResult struct {
	Scope    Scope         `json:"-"`
	FileName string        `json:"fileName"`
	Format   string        `json:"format"`
	Policy   Policy        `json:"policy"`
	Applied  int           `json:"applied"`
	Skipped  int           `json:"skipped"`
	Retried  bool          `json:"retried"`
	Stats    ImportStats   `json:"stats"`
	Duration time.Duration `json:"duration"`
}
