package format

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Registry maps format names and file extensions to loaders.
type Registry struct {
	byFormat    map[string]Loader
	byExtension map[string]Loader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byFormat:    make(map[string]Loader),
		byExtension: make(map[string]Loader),
	}
}

// DefaultRegistry returns a registry with every built-in loader.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewCSVLoader())
	r.Register(NewJSONLoader())
	r.Register(NewYAMLLoader())
	r.Register(NewPOLoader())
	return r
}

// Register adds l, replacing any loader with the same format or extension.
func (r *Registry) Register(l Loader) {
	r.byFormat[l.Format()] = l
	for _, ext := range l.Extensions() {
		r.byExtension[strings.ToLower(ext)] = l
	}
}

// Get returns the loader registered for format.
func (r *Registry) Get(format string) (Loader, bool) {
	l, ok := r.byFormat[strings.ToLower(format)]
	return l, ok
}

// Formats lists registered format names in sorted order.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.byFormat))
	for name := range r.byFormat {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect picks a loader for fileName, falling back to content sniffing
// when the extension is unknown.
func (r *Registry) Detect(fileName string, data []byte) (Loader, error) {
	if l, ok := r.byExtension[strings.ToLower(filepath.Ext(fileName))]; ok {
		return l, nil
	}

	format := sniff(data)
	if l, ok := r.byFormat[format]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, fileName)
}

// Load detects the format of fileName and parses data with it.
func (r *Registry) Load(fileName string, data []byte) (*Store, error) {
	l, err := r.Detect(fileName, data)
	if err != nil {
		return nil, err
	}
	return l.Load(data)
}

func sniff(data []byte) string {
	head := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(head) > 512 {
		head = head[:512]
	}

	switch {
	case bytes.HasPrefix(head, []byte("{")), bytes.HasPrefix(head, []byte("[")):
		return JSON
	case bytes.Contains(head, []byte("msgid ")):
		return PO
	default:
		return CSV
	}
}
