package bundler

import (
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// collectCSS concatenates every stylesheet in path order. @import rules that
// point at project files are dropped because every stylesheet is included
// anyway; remote ones are hoisted to the top where CSS requires them.
func collectCSS(files FileMap) (string, []string) {
	var paths []string
	var remote []string
	var body strings.Builder
	for _, p := range files.Paths() {
		if !isCSS(p) {
			continue
		}
		paths = append(paths, p)
		src, imports := stripImports(files[p])
		remote = append(remote, imports...)
		body.WriteString(strings.TrimSpace(src))
		body.WriteByte('\n')
	}
	if len(paths) == 0 {
		return "", nil
	}
	out := strings.Join(remote, "\n")
	if out != "" {
		out += "\n"
	}
	return out + body.String(), paths
}

// stripImports removes @import rules from src and returns the remote ones.
func stripImports(src string) (string, []string) {
	l := css.NewLexer(parse.NewInputString(src))
	var out strings.Builder
	var remote []string
	pos := 0
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				// Leave unparseable stylesheets as written.
				return src, nil
			}
			break
		}
		start := pos
		pos += len(data)
		if tt != css.AtKeywordToken || !strings.EqualFold(string(data), "@import") {
			out.Write(data)
			continue
		}
		var target string
		for {
			tt, data = l.Next()
			if tt == css.ErrorToken {
				break
			}
			pos += len(data)
			switch tt {
			case css.StringToken:
				target = string(data[1 : len(data)-1])
			case css.URLToken:
				target = urlTarget(string(data))
			}
			if tt == css.SemicolonToken {
				break
			}
		}
		if isRemote(target) {
			remote = append(remote, strings.TrimSpace(src[start:pos]))
		}
	}
	return out.String(), remote
}

func urlTarget(tok string) string {
	s := strings.TrimSuffix(strings.TrimPrefix(tok, "url("), ")")
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

func isRemote(target string) bool {
	return strings.Contains(target, "://") || strings.HasPrefix(target, "//")
}
