package bundler

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

// FileMap maps project-relative paths to source text. Paths are
// case-sensitive and use forward slashes.
type FileMap map[string]string

// InscriptionMap maps bare module specifiers to an inscription id or URL.
type InscriptionMap map[string]string

// EntryCandidates is the ordered list of conventional entry paths; the first
// one present in the file map is the entry.
var EntryCandidates = []string{
	"src/main.jsx",
	"src/main.js",
	"src/index.jsx",
	"src/index.js",
	"main.jsx",
	"index.js",
}

// DefaultContentBase is the path prefix under which inscription content is
// served.
const DefaultContentBase = "/content/"

// WellKnownLibraries are always present in the generated import map unless
// overridden by an inscription with the same specifier.
var WellKnownLibraries = map[string]string{
	"react":             "https://esm.sh/react@18.2.0",
	"react-dom":         "https://esm.sh/react-dom@18.2.0",
	"react-dom/client":  "https://esm.sh/react-dom@18.2.0/client",
	"react/jsx-runtime": "https://esm.sh/react@18.2.0/jsx-runtime",
	"three":             "https://esm.sh/three@0.160.0",
	"@react-three/fiber": "https://esm.sh/@react-three/fiber@8.15.12" +
		"?external=react,react-dom,three",
	"@react-three/drei": "https://esm.sh/@react-three/drei@9.92.7" +
		"?external=react,react-dom,three,@react-three/fiber",
	"leva": "https://esm.sh/leva@0.9.35?external=react,react-dom",
}

// jsExtensions are tried, in order, when an import omits its extension.
var jsExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".json", ".css"}

// indexFiles are tried when an import names a directory.
var indexFiles = []string{"index.js", "index.jsx", "index.ts", "index.tsx"}

var inscriptionIDPattern = regexp.MustCompile(`^[0-9a-f]{64}i[0-9]+$`)

// IsInscriptionID reports whether s looks like an inscription id: 64 hex
// characters, "i", and an index.
func IsInscriptionID(s string) bool {
	return inscriptionIDPattern.MatchString(s)
}

// isLocal reports whether spec names a project file rather than a package
// or URL.
func isLocal(spec string) bool {
	switch {
	case strings.HasPrefix(spec, "//"):
		return false
	case spec == "." || spec == "..":
		return true
	}
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/")
}

// normalizeKey turns "./src//a.js" or "/src/a.js" into "src/a.js".
func normalizeKey(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return p
}

// normalize returns a copy of files keyed by normalised paths.
func (fm FileMap) normalize() FileMap {
	out := make(FileMap, len(fm))
	for k, v := range fm {
		out[normalizeKey(k)] = v
	}
	return out
}

// Paths returns the file paths in sorted order.
func (fm FileMap) Paths() []string {
	out := make([]string, 0, len(fm))
	for k := range fm {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FindEntry returns the first entry candidate present in files.
func FindEntry(files FileMap) (string, error) {
	for _, c := range EntryCandidates {
		if _, ok := files[c]; ok {
			return c, nil
		}
	}
	return "", &EntryNotFoundError{Candidates: EntryCandidates}
}

// resolve maps a local specifier imported from file `from` to a key in files.
// Query strings and fragments are ignored. It reports false when nothing
// matches.
func resolve(files FileMap, from, spec string) (string, bool) {
	if i := strings.IndexAny(spec, "?#"); i >= 0 {
		spec = spec[:i]
	}
	var base string
	if strings.HasPrefix(spec, "/") {
		base = normalizeKey(spec)
	} else {
		base = normalizeKey(path.Join(path.Dir(from), spec))
	}
	if base == "" || base == "." {
		return "", false
	}
	if _, ok := files[base]; ok {
		return base, true
	}
	for _, ext := range jsExtensions {
		if _, ok := files[base+ext]; ok {
			return base + ext, true
		}
	}
	for _, idx := range indexFiles {
		p := base + "/" + idx
		if _, ok := files[p]; ok {
			return p, true
		}
	}
	return "", false
}

// importMapTarget turns an inscription map value into an import map URL:
// inscription ids are served under contentBase, anything else is literal.
func importMapTarget(value, contentBase string) string {
	if contentBase != "" && IsInscriptionID(value) {
		return contentBase + value
	}
	return value
}

// ImportMap merges the well-known libraries (lowest priority), the libraries
// override map and the inscriptions (highest priority).
func ImportMap(inscriptions InscriptionMap, libraries map[string]string, contentBase string) map[string]string {
	out := make(map[string]string, len(WellKnownLibraries)+len(inscriptions))
	for k, v := range WellKnownLibraries {
		out[k] = v
	}
	for k, v := range libraries {
		out[k] = v
	}
	for k, v := range inscriptions {
		out[k] = importMapTarget(v, contentBase)
	}
	return out
}

func hasExt(p string, exts ...string) bool {
	e := path.Ext(p)
	for _, x := range exts {
		if e == x {
			return true
		}
	}
	return false
}

func isScript(p string) bool { return hasExt(p, ".js", ".jsx", ".ts", ".tsx", ".mjs") }
func isCSS(p string) bool    { return hasExt(p, ".css") }
func isJSON(p string) bool   { return hasExt(p, ".json") }
