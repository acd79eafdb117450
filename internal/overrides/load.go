package overrides

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/tokenid"
)

// file is the on-disk layout:
//
//	overrides:
//	  "1-0xabc...":
//	    partOf: null            # exclude
//	  "8453-0xdef...":
//	    partOf: ["1-0xabc..."]  # group with
type file struct {
	Overrides map[string]map[string]any `yaml:"overrides"`
}

const partOfKey = "partOf"

// LoadFile reads an override table from a YAML file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse overrides file %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes an override table from YAML.
// Keys and targets are canonicalized with tokenid.Canonical.
func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal overrides: %w", err)
	}

	entries := make(map[domain.TokenID]Entry, len(f.Overrides))
	for key, raw := range f.Overrides {
		id, err := tokenid.Canonical(domain.TokenID(key))
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrInvalidEntry, key, err)
		}
		if _, dup := entries[id]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidEntry, id)
		}

		entry, err := decodeEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrInvalidEntry, key, err)
		}
		entries[id] = entry
	}

	return NewTable(entries), nil
}

func decodeEntry(raw map[string]any) (Entry, error) {
	value, ok := raw[partOfKey]
	if !ok {
		return Entry{}, fmt.Errorf("missing %s", partOfKey)
	}
	if value == nil {
		return Excluded(), nil
	}

	list, ok := value.([]any)
	if !ok {
		return Entry{}, fmt.Errorf("%s must be null or a list, got %T", partOfKey, value)
	}

	targets := make([]domain.TokenID, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return Entry{}, fmt.Errorf("%s target must be a string, got %T", partOfKey, item)
		}
		id, err := tokenid.Canonical(domain.TokenID(s))
		if err != nil {
			return Entry{}, err
		}
		targets = append(targets, id)
	}

	return PartOf(targets...), nil
}

// Marshal encodes t in the LoadFile layout, keys sorted.
func Marshal(t *Table) ([]byte, error) {
	out := yaml.MapSlice{}
	for _, id := range t.IDs() {
		e, _ := t.Lookup(id)
		var partOf any
		if !e.Exclude {
			targets := make([]string, len(e.PartOf))
			for i, target := range e.PartOf {
				targets[i] = string(target)
			}
			partOf = targets
		}
		out = append(out, yaml.MapItem{
			Key:   string(id),
			Value: yaml.MapSlice{{Key: partOfKey, Value: partOf}},
		})
	}

	data, err := yaml.Marshal(yaml.MapSlice{{Key: "overrides", Value: out}})
	if err != nil {
		return nil, fmt.Errorf("marshal overrides: %w", err)
	}
	return data, nil
}
