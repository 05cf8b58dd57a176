package bundler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// TemplateFile is the project file used as the page template.
const TemplateFile = "index.html"

// FallbackTemplate is used when the project has no index.html.
const FallbackTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
</head>
<body>
<div id="root"></div>
</body>
</html>
`

var (
	closeScriptRE = regexp.MustCompile(`(?i)</(script)`)
	closeStyleRE  = regexp.MustCompile(`(?i)</(style)`)
)

// page is what gets injected into the template.
type page struct {
	ImportMap map[string]string
	CSS       string
	Script    string
}

// templateScan is the result of one pass over the template.
type templateScan struct {
	headEnd   int // offset just after <head ...>, or -1
	htmlEnd   int // offset just after <html ...>, or -1
	bodyClose int // offset of the last </body>, or -1
	htmlClose int // offset of the last </html>, or -1
	removals  []edit
	imports   map[string]string // entries of an existing import map
}

func attrs(z *html.Tokenizer, hasAttr bool) map[string]string {
	out := map[string]string{}
	for hasAttr {
		var k, v []byte
		k, v, hasAttr = z.TagAttr()
		out[strings.ToLower(string(k))] = string(v)
	}
	return out
}

func isLocalRef(ref string) bool {
	return ref != "" && !isRemote(ref) && !strings.HasPrefix(ref, "data:")
}

// scanTemplate walks the template once, recording insertion points and the
// elements the bundle replaces: local module scripts, local stylesheets and
// any existing import map.
func scanTemplate(tmpl string) (templateScan, error) {
	ts := templateScan{headEnd: -1, htmlEnd: -1, bodyClose: -1, htmlClose: -1}
	z := html.NewTokenizer(strings.NewReader(tmpl))
	pos := 0
	scriptStart := -1
	var scriptAttrs map[string]string
	var scriptText bytes.Buffer
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return ts, fmt.Errorf("error parsing HTML: %w", err)
			}
			return ts, nil
		}
		start := pos
		pos += len(z.Raw())
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "html":
				if ts.htmlEnd < 0 {
					ts.htmlEnd = pos
				}
			case "head":
				if ts.headEnd < 0 {
					ts.headEnd = pos
				}
			case "script":
				scriptStart = start
				scriptAttrs = attrs(z, hasAttr)
				scriptText.Reset()
			case "link":
				a := attrs(z, hasAttr)
				if strings.EqualFold(a["rel"], "stylesheet") && isLocalRef(a["href"]) {
					ts.removals = append(ts.removals, edit{start, pos, ""})
				}
			}
		case html.TextToken:
			if scriptStart >= 0 {
				scriptText.Write(z.Raw())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script":
				if scriptStart < 0 {
					break
				}
				switch {
				case scriptAttrs["type"] == "importmap":
					var m struct {
						Imports map[string]string `json:"imports"`
					}
					if err := json.Unmarshal(scriptText.Bytes(), &m); err == nil {
						ts.imports = m.Imports
					}
					ts.removals = append(ts.removals, edit{scriptStart, pos, ""})
				case isLocalRef(scriptAttrs["src"]):
					ts.removals = append(ts.removals, edit{scriptStart, pos, ""})
				}
				scriptStart = -1
			case "body":
				ts.bodyClose = start
			case "html":
				ts.htmlClose = start
			}
		}
	}
}

func renderImportMap(imports map[string]string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Imports map[string]string `json:"imports"`
	}{imports}); err != nil {
		return "", err
	}
	return closeScriptRE.ReplaceAllString(buf.String(), `<\/$1`), nil
}

// assembleHTML injects the import map and stylesheet at the start of <head>
// and the module script before </body>. Missing head or body elements are
// tolerated.
func assembleHTML(tmpl string, p page) (string, error) {
	ts, err := scanTemplate(tmpl)
	if err != nil {
		return "", err
	}

	imports := make(map[string]string, len(p.ImportMap)+len(ts.imports))
	for k, v := range ts.imports {
		imports[k] = v
	}
	for k, v := range p.ImportMap {
		imports[k] = v
	}
	im, err := renderImportMap(imports)
	if err != nil {
		return "", err
	}

	var head strings.Builder
	head.WriteString("\n<script type=\"importmap\">\n")
	head.WriteString(im)
	head.WriteString("</script>\n")
	if p.CSS != "" {
		head.WriteString("<style>\n")
		head.WriteString(closeStyleRE.ReplaceAllString(p.CSS, `<\/$1`))
		head.WriteString("\n</style>\n")
	}
	body := "<script type=\"module\">\n" +
		closeScriptRE.ReplaceAllString(p.Script, `<\/$1`) +
		"\n</script>\n"

	edits := []edit{}
	switch {
	case ts.headEnd >= 0:
		edits = append(edits, edit{ts.headEnd, ts.headEnd, head.String()})
	case ts.htmlEnd >= 0:
		edits = append(edits, edit{ts.htmlEnd, ts.htmlEnd, "\n<head>" + head.String() + "</head>\n"})
	default:
		edits = append(edits, edit{0, 0, "<head>" + head.String() + "</head>\n"})
	}
	switch {
	case ts.bodyClose >= 0:
		edits = append(edits, edit{ts.bodyClose, ts.bodyClose, body})
	case ts.htmlClose >= 0:
		edits = append(edits, edit{ts.htmlClose, ts.htmlClose, body})
	default:
		edits = append(edits, edit{len(tmpl), len(tmpl), "\n" + body})
	}
	edits = append(edits, ts.removals...)
	return applyEdits(tmpl, edits), nil
}
