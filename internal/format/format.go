// Package format turns uploaded glossary files into a flat sequence of
// source/target records.
//
// Every loader produces a [Store] whose [Unit] values expose the same four
// accessors regardless of the file type, so the importer never needs to know
// which format it is reading. Loaders are looked up through a [Registry],
// either by name or by file name, with content sniffing as the last resort.
package format

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

// Format names. These double as the registry keys.
const (
	CSV  = "csv"
	JSON = "json"
	YAML = "yaml"
	PO   = "po"
)

// ErrUnknownFormat is returned when no loader matches a requested format.
var ErrUnknownFormat = errors.New("unknown file format")

// Unit is a single term pair read from a file.
type Unit interface {
	Source() string
	Target() string
	IsTranslatable() bool
	IsTranslated() bool
}

// Store is the parsed content of one file.
type Store struct {
	Format string
	Units  []Unit
}

// Loader parses raw file content into a Store.
type Loader interface {
	Format() string
	Extensions() []string
	Load(data []byte) (*Store, error)
}

// pair is the Unit used by the key/value formats (JSON, YAML).
type pair struct {
	source string
	target string
}

func (p pair) Source() string       { return p.source }
func (p pair) Target() string       { return p.target }
func (p pair) IsTranslatable() bool { return p.source != "" }
func (p pair) IsTranslated() bool   { return p.target != "" }

// Pair builds a plain translated-when-non-empty unit. It is mostly useful to
// callers that already hold term pairs in memory.
func Pair(source, target string) Unit {
	return pair{source: source, target: target}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// clean strips a UTF-8 BOM and replaces every invalid byte with U+FFFD so
// that the individual parsers only ever see well-formed text.
func clean(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
			data = data[1:]
			continue
		}
		buf.Write(data[:size])
		data = data[size:]
	}
	return buf.Bytes()
}
