package format

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// JSONLoader reads either a flat object mapping source terms to targets or
// an array of {"source": ..., "target": ...} objects.
//
// Keys starting with '$' (such as "$schema") and non-string values in the
// flat form are ignored.
type JSONLoader struct{}

func NewJSONLoader() *JSONLoader { return &JSONLoader{} }

func (l *JSONLoader) Format() string { return JSON }

func (l *JSONLoader) Extensions() []string { return []string{".json"} }

type jsonTerm struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Fuzzy  bool   `json:"fuzzy,omitempty"`
}

func (l *JSONLoader) Load(data []byte) (*Store, error) {
	data = clean(data)
	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, "[") {
		var terms []jsonTerm
		if err := json.Unmarshal(data, &terms); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		store := &Store{Format: JSON, Units: make([]Unit, 0, len(terms))}
		for _, t := range terms {
			target := t.Target
			if t.Fuzzy {
				target = ""
			}
			store.Units = append(store.Units, pair{source: t.Source, target: target})
		}
		return store, nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, "$") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	store := &Store{Format: JSON, Units: make([]Unit, 0, len(keys))}
	for _, k := range keys {
		s, ok := m[k].(string)
		if !ok {
			continue
		}
		store.Units = append(store.Units, pair{source: k, target: s})
	}
	return store, nil
}
