package bundler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleHTMLWithoutHead(t *testing.T) {
	out, err := assembleHTML("<html><body><p>hi</p></body></html>", page{
		ImportMap: map[string]string{"a": "b"},
		Script:    "console.log(1)",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<html>\n<head>\n<script type=\"importmap\">"), out)
	assert.Contains(t, out, "<script type=\"module\">\nconsole.log(1)\n</script>\n</body>")
}

func TestAssembleHTMLFragment(t *testing.T) {
	out, err := assembleHTML("<div id=\"root\"></div>", page{Script: "run()"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<head>"), out)
	assert.True(t, strings.HasSuffix(out, "run()\n</script>\n"), out)
}

func TestAssembleHTMLMergesExistingImportMap(t *testing.T) {
	tmpl := `<html><head><script type="importmap">{"imports": {"mine": "/mine.js", "a": "/old.js"}}</script></head><body></body></html>`
	out, err := assembleHTML(tmpl, page{ImportMap: map[string]string{"a": "/new.js"}})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, `<script type="importmap">`))
	assert.Contains(t, out, `"mine": "/mine.js"`)
	assert.Contains(t, out, `"a": "/new.js"`)
	assert.NotContains(t, out, "/old.js")
}

func TestAssembleHTMLEscapesClosingTags(t *testing.T) {
	out, err := assembleHTML(FallbackTemplate, page{
		Script: `const s = "</script>";`,
		CSS:    `a::after { content: "</style>"; }`,
	})
	require.NoError(t, err)
	assert.Contains(t, out, `const s = "<\/script>";`)
	assert.Contains(t, out, `content: "<\/style>"`)
	assert.Equal(t, 1, strings.Count(out, "</style>"))
}

func TestStripImports(t *testing.T) {
	src := "@import url(\"https://fonts.example.com/a.css\");\n@import './local.css';\n.x { color: red; }\n"
	body, remote := stripImports(src)
	assert.Equal(t, []string{`@import url("https://fonts.example.com/a.css");`}, remote)
	assert.NotContains(t, body, "@import")
	assert.Contains(t, body, ".x { color: red; }")
}

func TestCollectCSSHoistsRemoteImports(t *testing.T) {
	css, paths := collectCSS(FileMap{
		"b.css": "@import url(//cdn.example.com/b.css);\n.b{}",
		"a.css": ".a{}",
		"x.js":  "",
	})
	assert.Equal(t, []string{"a.css", "b.css"}, paths)
	assert.True(t, strings.HasPrefix(css, "@import url(//cdn.example.com/b.css);\n.a{}\n.b{}"), css)

	css, paths = collectCSS(FileMap{"x.js": ""})
	assert.Empty(t, css)
	assert.Empty(t, paths)
}
