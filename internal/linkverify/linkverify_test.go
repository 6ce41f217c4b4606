package linkverify

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSite(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestExtractLinksFromReader(t *testing.T) {
	src := `<html><head><link rel="stylesheet" href="/style.css"></head>
<body><a href="/a/">A</a><img src="img/x.png" alt="x"><a>no href</a><script src="/script.js"></script></body></html>`
	links, err := ExtractLinksFromReader(strings.NewReader(src))
	require.NoError(t, err)

	var urls []string
	for _, l := range links {
		urls = append(urls, l.URL)
	}
	assert.Equal(t, []string{"/style.css", "/a/", "img/x.png", "/script.js"}, urls)
	assert.Equal(t, "link", links[0].Tag)
	assert.Equal(t, "src", links[2].Attribute)
}

func TestExtractLinksFromReader_Within(t *testing.T) {
	src := `<main class="page"><nav class="breadcrumb trail"><a href="/">home</a> &gt; <span><a href="/x/">x</a></span></nav><p><a href="/y.html">y</a></p></main>`
	links, err := ExtractLinksFromReader(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, links, 3)

	assert.Equal(t, []string{"page", "breadcrumb", "trail"}, links[1].Within)
	assert.True(t, links[1].InClass("breadcrumb"))
	assert.Equal(t, []string{"page"}, links[2].Within)
	assert.False(t, links[2].InClass("breadcrumb"))
}

func TestIsInternal(t *testing.T) {
	cases := map[string]bool{
		"/a/":                    true,
		"b.html":                 true,
		"../c.html?x=1#top":      true,
		"#section":               false,
		"":                       false,
		"mailto:me@example.com":  false,
		"https://example.com/":   false,
		"//cdn.example.com/x.js": false,
	}
	for link, want := range cases {
		assert.Equal(t, want, IsInternal(link), link)
	}
}

func TestVerify(t *testing.T) {
	root := t.TempDir()
	writeSite(t, root, map[string]string{
		"index.html":       `<a href="/a/">a</a><a href="/missing.html">m</a><a href="https://example.com">x</a>`,
		"a/index.html":     `<a href="b.html#top">b</a><a href="../index.html">up</a>`,
		"a/b.html":         `<a href="/nodir/">n</a><a href="?q=1">self</a><link href="/style.css">`,
		"style.css":        `body{}`,
		"empty/readme.txt": `not a page`,
		"c/page.html":      `<a href="/empty">dir</a>`,
	})

	broken, err := NewVerifier(root).Verify(context.Background())
	require.NoError(t, err)
	require.Len(t, broken, 3)

	assert.Equal(t, "a/b.html", broken[0].Page)
	assert.Equal(t, "/nodir/", broken[0].URL)
	assert.Equal(t, "c/page.html", broken[1].Page)
	assert.Equal(t, "directory without index.html", broken[1].Reason)
	assert.Equal(t, "index.html", broken[2].Page)
	assert.Equal(t, "/missing.html", broken[2].URL)
}

func TestVerify_DirectoryLinkResolvesToIndex(t *testing.T) {
	root := t.TempDir()
	writeSite(t, root, map[string]string{
		"index.html":   `<a href="/a/">a</a><a href="/a">a</a>`,
		"a/index.html": `ok`,
	})
	broken, err := NewVerifier(root).Verify(context.Background())
	require.NoError(t, err)
	assert.Empty(t, broken)
}

func TestVerify_SkipWithin(t *testing.T) {
	root := t.TempDir()
	writeSite(t, root, map[string]string{
		"notes/deep/c.html": `<nav class="breadcrumb"><a href="/">home</a> &gt; <a href="/notes/">notes</a> &gt; <a href="/notes/deep/">deep</a> &gt; c</nav><a href="/gone.html">gone</a>`,
		"index.html":        `home`,
	})

	broken, err := NewVerifier(root).Verify(context.Background())
	require.NoError(t, err)
	assert.Len(t, broken, 3)

	broken, err = NewVerifier(root, "breadcrumb").Verify(context.Background())
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Equal(t, "/gone.html", broken[0].URL)
}

func TestVerify_Canceled(t *testing.T) {
	root := t.TempDir()
	writeSite(t, root, map[string]string{"index.html": `x`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewVerifier(root).Verify(ctx)
	require.Error(t, err)
}
