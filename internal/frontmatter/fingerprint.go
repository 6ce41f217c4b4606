package frontmatter

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"
)

// Fingerprint computes the mdfp content fingerprint of a page. Volatile keys
// (fingerprint, lastmod) are excluded so the value only moves with content.
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	hashed := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == mdfp.FingerprintField || k == "lastmod" {
			continue
		}
		hashed[k] = v
	}

	fm := ""
	if len(hashed) > 0 {
		serialized, err := canonicalYAML(hashed)
		if err != nil {
			return "", fmt.Errorf("serialize frontmatter: %w", err)
		}
		fm = strings.TrimSuffix(string(serialized), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, string(body)), nil
}

// canonicalYAML encodes fields with recursively sorted keys.
func canonicalYAML(fields map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sortedNode(fields)); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortedNode(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range keys {
			var val yaml.Node
			if err := val.Encode(sortedNode(vv[k])); err != nil {
				val = yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprint(vv[k])}
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, &val)
		}
		return n
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = sortedNode(item)
		}
		return out
	default:
		return v
	}
}
