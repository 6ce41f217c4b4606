package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	fm, body, had, err := Split([]byte("---\ntitle: Intro\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Intro\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_CRLF_SplitsFrontmatterAndBody(t *testing.T) {
	fm, body, had, err := Split([]byte("---\r\ntitle: Intro\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Intro\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_EmptyBlock(t *testing.T) {
	fm, body, had, err := Split([]byte("---\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_ClosingDelimiterAtEOF(t *testing.T) {
	fm, body, had, err := Split([]byte("---\ntitle: Only\n---"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Only\n"), fm)
	require.Empty(t, body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, had, err := Split([]byte("---\ntitle: x\n# Title\n"))
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestParseYAML(t *testing.T) {
	fields, err := ParseYAML([]byte("title: abc\ntags:\n  - one\n"))
	require.NoError(t, err)
	require.Equal(t, "abc", fields["title"])
	require.Equal(t, []any{"one"}, fields["tags"])

	fields, err = ParseYAML(nil)
	require.NoError(t, err)
	require.Empty(t, fields)

	_, err = ParseYAML([]byte(": not yaml"))
	require.Error(t, err)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTitle any
		wantBody  string
	}{
		{"valid", "---\ntitle: Intro\n---\nBody\n", "Intro", "Body\n"},
		{"no frontmatter", "# Heading\n", nil, "# Heading\n"},
		{"missing close", "---\ntitle: Intro\nBody\n", nil, "---\ntitle: Intro\nBody\n"},
		{"invalid yaml", "---\ntitle: [unclosed\n---\nBody\n", nil, "---\ntitle: [unclosed\n---\nBody\n"},
		{"korean", "---\ntitle: 자료구조\n---\n본문\n", "자료구조", "본문\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, body := Extract([]byte(tt.input))
			require.NotNil(t, fields)
			require.Equal(t, tt.wantTitle, fields["title"])
			require.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestText(t *testing.T) {
	fields := map[string]any{
		"s":     "Hello",
		"empty": "",
		"n":     42,
		"zero":  0,
		"yes":   true,
		"no":    false,
		"list":  []any{"a"},
	}
	cases := []struct {
		key  string
		want string
		ok   bool
	}{
		{"s", "Hello", true},
		{"empty", "", false},
		{"n", "42", true},
		{"zero", "0", false},
		{"yes", "true", true},
		{"no", "true", false},
		{"list", "[a]", false},
		{"missing", "", false},
	}
	for _, c := range cases {
		got, ok := Text(fields, c.key)
		require.Equal(t, c.ok, ok, c.key)
		if ok {
			require.Equal(t, c.want, got, c.key)
		}
	}
}

func TestFingerprint_StableAcrossKeyOrderAndVolatileFields(t *testing.T) {
	body := []byte("# Title\n\nBody\n")
	a, err := Fingerprint(map[string]any{"title": "T", "tags": []any{"x"}}, body)
	require.NoError(t, err)
	b, err := Fingerprint(map[string]any{"tags": []any{"x"}, "title": "T", "lastmod": "2024-01-01"}, body)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.NotEmpty(t, a)

	c, err := Fingerprint(map[string]any{"title": "T", "tags": []any{"x"}}, []byte("# Title\n\nChanged\n"))
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}
