package bundler

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

func loaderFor(file string) api.Loader {
	switch path.Ext(file) {
	case ".tsx":
		return api.LoaderTSX
	case ".ts":
		return api.LoaderTS
	case ".mjs":
		return api.LoaderJS
	default:
		return api.LoaderJSX
	}
}

// transformScript compiles JSX (and TypeScript) to plain ES modules with the
// automatic React runtime. On failure the simplified fallback output is
// returned together with a TransformError.
func transformScript(file, src string, minify bool) (string, *TransformError) {
	res := api.Transform(src, api.TransformOptions{
		Loader:           loaderFor(file),
		JSX:              api.JSXAutomatic,
		Target:           api.ESNext,
		Sourcefile:       file,
		MinifyWhitespace: minify,
		MinifySyntax:     minify,
	})
	if len(res.Errors) > 0 {
		m := res.Errors[0]
		te := &TransformError{File: file, Message: m.Text, Fallback: true}
		if m.Location != nil {
			te.Line = m.Location.Line
			te.Column = m.Location.Column
		}
		return fallbackTransform(src), te
	}
	return string(res.Code), nil
}

// minifyCSS strips whitespace from a stylesheet; on error the input is
// returned unchanged.
func minifyCSS(css string) string {
	res := api.Transform(css, api.TransformOptions{
		Loader:           api.LoaderCSS,
		MinifyWhitespace: true,
	})
	if len(res.Errors) > 0 {
		return css
	}
	return string(res.Code)
}

var (
	selfClosingRE = regexp.MustCompile(`<([A-Za-z][\w.]*)((?:\s+[\w-]+(?:=(?:"[^"]*"|'[^']*'|\{[^{}]*\}))?)*)\s*/>`)
	jsxAttrRE     = regexp.MustCompile(`([\w-]+)(?:=("[^"]*"|'[^']*'|\{[^{}]*\}))?`)
)

// fallbackTransform rewrites self-closing JSX elements into jsx() calls and
// leaves everything else alone. It exists so that a file esbuild rejects
// still produces something loadable for simple components.
func fallbackTransform(src string) string {
	used := false
	out := selfClosingRE.ReplaceAllStringFunc(src, func(m string) string {
		sub := selfClosingRE.FindStringSubmatch(m)
		used = true
		tag := sub[1]
		if r := tag[0]; r >= 'a' && r <= 'z' && !strings.Contains(tag, ".") {
			tag = fmt.Sprintf("%q", tag)
		}
		var props []string
		for _, a := range jsxAttrRE.FindAllStringSubmatch(sub[2], -1) {
			val := a[2]
			switch {
			case val == "":
				val = "true"
			case val[0] == '{':
				val = strings.TrimSpace(val[1 : len(val)-1])
			}
			props = append(props, fmt.Sprintf("%q: %s", a[1], val))
		}
		return fmt.Sprintf("_jsx(%s, {%s})", tag, strings.Join(props, ", "))
	})
	if !used {
		return src
	}
	return "import { jsx as _jsx } from \"react/jsx-runtime\";\n" + out
}

var specQuoteRE = regexp.MustCompile(`\b(?:from|import)\s*\(?\s*(["'])([^"'\n]+)["']`)

// quoteStyles records which quote character each specifier used in the
// untransformed source, so rewritten specifiers keep the author's style.
func quoteStyles(src string) map[string]byte {
	out := map[string]byte{}
	for _, m := range specQuoteRE.FindAllStringSubmatch(src, -1) {
		if _, seen := out[m[2]]; !seen {
			out[m[2]] = m[1][0]
		}
	}
	return out
}

// quoteSpec renders value as a string literal using quote q when it can be
// written without escapes.
func quoteSpec(value string, q byte) string {
	if q != '\'' && q != '"' {
		q = '"'
	}
	if strings.ContainsAny(value, "\\\n"+string(q)) {
		return fmt.Sprintf("%q", value)
	}
	return string(q) + value + string(q)
}
