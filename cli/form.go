// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// readForm loads a form file as a JSON object. JSON files are returned
// byte for byte; JSONC files have their comments and trailing commas
// stripped; YAML files are converted.
func readForm(fs afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML form %s: %w", path, err)
		}
		if len(doc.Content) == 0 {
			return nil, fmt.Errorf("form %s is empty", path)
		}
		form, err := yamlValue(&doc)
		if err != nil {
			return nil, fmt.Errorf("invalid YAML form %s: %w", path, err)
		}
		if form == nil {
			return nil, fmt.Errorf("form %s is empty", path)
		}
		if _, ok := form.(map[string]any); !ok {
			return nil, fmt.Errorf("form %s must be a mapping of fields", path)
		}
		out, err := json.Marshal(form)
		if err != nil {
			return nil, fmt.Errorf("form %s cannot be converted to JSON: %w", path, err)
		}
		return out, nil
	case ".jsonc":
		data = jsonc.ToJSON(data)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("form %s is not valid JSON", path)
	}
	return data, nil
}

// yamlValue converts a YAML node to a JSON-ready value. Numbers written
// with a leading zero or a plus sign keep their text: 0612345678 is a
// phone number and 01000 a postal code, not octal or float values.
func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			v, err := yamlValue(val)
			if err != nil {
				return nil, err
			}
			if key.ShortTag() == "!!merge" {
				mergeInto(m, v)
				continue
			}
			m[key.Value] = v
		}
		return m, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!str":
			return n.Value, nil
		case "!!int", "!!float":
			if keepsText(n.Value) {
				return n.Value, nil
			}
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

// mergeInto applies a "<<" merge key; fields already set win
func mergeInto(m map[string]any, merged any) {
	sources := []any{merged}
	if list, ok := merged.([]any); ok {
		sources = list
	}
	for _, src := range sources {
		fields, ok := src.(map[string]any)
		if !ok {
			continue
		}
		for k, v := range fields {
			if _, set := m[k]; !set {
				m[k] = v
			}
		}
	}
}

func keepsText(s string) bool {
	if strings.HasPrefix(s, "+") {
		return true
	}
	return len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9'
}
