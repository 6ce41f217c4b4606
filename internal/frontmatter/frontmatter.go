// Package frontmatter separates `---` delimited YAML metadata from a
// Markdown body.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Split separates YAML frontmatter from the Markdown body.
//
// If the document does not start with a delimiter line, had is false and body
// is the full input. A closing delimiter on the last line without a trailing
// newline is accepted.
func Split(content []byte) (frontmatter []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte(delimiter + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, nil
	}
	if bytes.Equal(rest, []byte(delimiter)) {
		return []byte{}, []byte{}, true, nil
	}

	closeSeq := []byte(nl + delimiter + nl)
	if idx := bytes.Index(rest, closeSeq); idx >= 0 {
		return rest[:idx+len(nl)], rest[idx+len(closeSeq):], true, nil
	}
	if tail := []byte(nl + delimiter); bytes.HasSuffix(rest, tail) {
		return rest[:len(rest)-len(delimiter)], []byte{}, true, nil
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// ParseYAML parses raw YAML frontmatter (without --- delimiters) into a map.
func ParseYAML(frontmatter []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(frontmatter, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Extract returns the metadata and body of a document. It never fails: a
// missing closing delimiter or invalid YAML yields empty metadata and the whole
// input as body.
func Extract(content []byte) (map[string]any, []byte) {
	raw, body, had, err := Split(content)
	if err != nil || !had {
		return map[string]any{}, content
	}
	fields, err := ParseYAML(raw)
	if err != nil {
		return map[string]any{}, content
	}
	return fields, body
}

// Text returns the named field as display text. Only non-empty strings,
// non-zero numbers, true and timestamps count; everything else reports false.
func Text(fields map[string]any, key string) (string, bool) {
	switch v := fields[key].(type) {
	case string:
		return v, v != ""
	case int:
		return strconv.Itoa(v), v != 0
	case int64:
		return strconv.FormatInt(v, 10), v != 0
	case uint64:
		return strconv.FormatUint(v, 10), v != 0
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), v != 0
	case bool:
		return "true", v
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 {
			return v.Format(time.DateOnly), true
		}
		return v.Format(time.RFC3339), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), false
	}
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
