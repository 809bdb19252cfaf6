package format

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLLoader reads a mapping of source terms to targets, or a sequence of
// mappings with source and target keys. Document order is preserved.
type YAMLLoader struct{}

func NewYAMLLoader() *YAMLLoader { return &YAMLLoader{} }

func (l *YAMLLoader) Format() string { return YAML }

func (l *YAMLLoader) Extensions() []string { return []string{".yaml", ".yml"} }

func (l *YAMLLoader) Load(data []byte) (*Store, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(clean(data), &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	store := &Store{Format: YAML}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return store, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, value := root.Content[i], root.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				continue
			}
			store.Units = append(store.Units, pair{source: key.Value, target: scalar(value)})
		}
	case yaml.SequenceNode:
		for _, item := range root.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("invalid yaml term at line %d: expected mapping", item.Line)
			}
			var p pair
			for i := 0; i+1 < len(item.Content); i += 2 {
				key, value := item.Content[i], item.Content[i+1]
				if value.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("invalid yaml term at line %d: %s must be a scalar", value.Line, key.Value)
				}
				switch key.Value {
				case "source":
					p.source = scalar(value)
				case "target":
					p.target = scalar(value)
				}
			}
			store.Units = append(store.Units, p)
		}
	default:
		return nil, fmt.Errorf("invalid yaml: expected mapping or sequence at line %d", root.Line)
	}
	return store, nil
}

// scalar returns the node's text, with null (~, null or nothing) read as
// an empty value.
func scalar(n *yaml.Node) string {
	if n.Tag == "!!null" {
		return ""
	}
	return n.Value
}
