package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// parseConfigFile decodes a document and flattens it into section keys.
func parseConfigFile(data []byte, format string) (map[string]string, error) {
	var doc any

	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	out := make(map[string]string)
	if doc == nil {
		return out, nil
	}
	if err := flatten("", doc, out); err != nil {
		return nil, err
	}
	return out, nil
}

// flatten writes leaves of v into out. Objects join keys with ":" and arrays
// use the element index, so {"services":{"catalog":{"http":["a"]}}} becomes
// "services:catalog:http:0" = "a".
func flatten(prefix string, v any, out map[string]string) error {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			if err := flatten(join(prefix, k), child, out); err != nil {
				return err
			}
		}
	case []any:
		for i, child := range node {
			if err := flatten(join(prefix, strconv.Itoa(i)), child, out); err != nil {
				return err
			}
		}
	case nil:
		out[prefix] = ""
	case string:
		out[prefix] = node
	case json.Number:
		out[prefix] = node.String()
	case bool, int, int64, uint64, float64:
		out[prefix] = fmt.Sprint(node)
	default:
		return fmt.Errorf("unsupported value at %q: %T", prefix, v)
	}
	return nil
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + KeyDelimiter + key
}
