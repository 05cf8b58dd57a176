package bundler

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

type refKind int

const (
	refStatic refKind = iota
	refSideEffect
	refReexport
	refDynamic
)

// importRef is one module reference found in transformed source.
type importRef struct {
	Kind   refKind
	Spec   string
	Quote  byte
	Clause string // bindings of a static import or re-export

	// SpecStart and SpecEnd span the string literal including its quotes;
	// Start and End span the whole statement or import() call.
	SpecStart, SpecEnd int
	Start, End         int
}

type exportKind int

const (
	exportDecl        exportKind = iota // export const|let|var|function|class
	exportDefaultExpr                   // export default <expression>
	exportDefaultDecl                   // export default function f / class C
	exportDefaultAnon                   // export default function () / class {}
	exportList                          // export { a, b as c }
)

// exportRef is one export statement. Start and End span the text that is
// removed or replaced when the module is wrapped.
type exportRef struct {
	Kind       exportKind
	Start, End int
	Names      []binding
	// Decl is the declaration head that replaces Start..End for an anonymous
	// default function or class, e.g. "async function".
	Decl string
}

// binding pairs an external name (imported or exported) with a local one.
// Name "*" is a namespace binding.
type binding struct {
	Name  string
	Local string
}

type scanResult struct {
	Imports []importRef
	Exports []exportRef
	// Tokens is nil when the source could not be lexed.
	Tokens []token
}

// ----------------------------------------------------------------------------
// Token scanner
// ----------------------------------------------------------------------------

type scanner struct {
	src  string
	toks []token
}

func (s *scanner) at(i int) token {
	if i < 0 || i >= len(s.toks) {
		return token{}
	}
	return s.toks[i]
}

// matching returns the index of the bracket closing the one at i, or the
// last token index when unbalanced.
func (s *scanner) matching(i int) int {
	depth := 0
	for j := i; j < len(s.toks); j++ {
		switch s.toks[j].text {
		case "{", "(", "[":
			depth++
		case "}", ")", "]":
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(s.toks) - 1
}

// stmtEnd extends a statement ending at the specifier token j over import
// attributes and a trailing semicolon, returning the last token index.
func (s *scanner) stmtEnd(j int) int {
	if t := s.at(j + 1).text; (t == "assert" || t == "with") && s.at(j+2).text == "{" {
		j = s.matching(j + 2)
	}
	if s.at(j+1).text == ";" {
		j++
	}
	return j
}

// skipExpr advances from j to the first "," or ";" at depth zero, or to a
// closing bracket that ends the enclosing group.
func (s *scanner) skipExpr(j int) int {
	depth := 0
	for ; j < len(s.toks); j++ {
		switch s.toks[j].text {
		case "{", "(", "[":
			depth++
		case "}", ")", "]":
			if depth == 0 {
				return j
			}
			depth--
		case ",", ";":
			if depth == 0 {
				return j
			}
		}
	}
	return j
}

func isIdentName(text string) bool {
	r, _ := utf8.DecodeRuneInString(text)
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func scanTokens(src string, toks []token) scanResult {
	s := &scanner{src: src, toks: toks}
	res := scanResult{Tokens: toks}
	for i := 0; i < len(toks); i++ {
		if p := s.at(i - 1).text; p == "." || p == "?." {
			continue
		}
		switch toks[i].text {
		case "import":
			if ref, last, ok := s.parseImport(i); ok {
				res.Imports = append(res.Imports, ref)
				i = last
			}
		case "export":
			if ref, ok := s.parseReexport(i); ok {
				res.Imports = append(res.Imports, ref)
				i = s.lastIndexAt(ref.End)
				continue
			}
			if exp, ok := s.parseExport(i); ok {
				res.Exports = append(res.Exports, exp)
			}
		}
	}
	return res
}

// lastIndexAt returns the index of the token ending at offset end.
func (s *scanner) lastIndexAt(end int) int {
	return sort.Search(len(s.toks), func(k int) bool { return s.toks[k].end >= end })
}

func (s *scanner) ref(kind refKind, str token, start, end int, clause string) importRef {
	return importRef{
		Kind:      kind,
		Spec:      str.text[1 : len(str.text)-1],
		Quote:     str.text[0],
		Clause:    clause,
		SpecStart: str.start,
		SpecEnd:   str.end,
		Start:     start,
		End:       end,
	}
}

func (s *scanner) parseImport(i int) (importRef, int, bool) {
	t, n := s.toks[i], s.at(i+1)
	switch {
	case n.text == "(":
		str := s.at(i + 2)
		if !str.isString() {
			return importRef{}, 0, false
		}
		if c := s.at(i + 3).text; c != ")" && c != "," {
			return importRef{}, 0, false
		}
		closeIdx := s.matching(i + 1)
		return s.ref(refDynamic, str, t.start, s.toks[closeIdx].end, ""), closeIdx, true
	case n.isString():
		last := s.stmtEnd(i + 1)
		return s.ref(refSideEffect, n, t.start, s.toks[last].end, ""), last, true
	}
	depth := 0
	for j := i + 1; j < len(s.toks); j++ {
		tx := s.toks[j].text
		switch {
		case tx == "{":
			depth++
		case tx == "}":
			depth--
		case depth == 0 && tx == "from" && j > i+1 && s.at(j+1).isString():
			clause := strings.TrimSpace(s.src[s.toks[i+1].start:s.toks[j].start])
			last := s.stmtEnd(j + 1)
			return s.ref(refStatic, s.toks[j+1], t.start, s.toks[last].end, clause), last, true
		case tx == "," || tx == "*" || s.toks[j].isString() || isIdentName(tx):
		default:
			return importRef{}, 0, false
		}
	}
	return importRef{}, 0, false
}

// parseReexport recognises `export {..} from "x"` and `export * [as ns] from "x"`.
func (s *scanner) parseReexport(i int) (importRef, bool) {
	t, n := s.toks[i], s.at(i+1)
	var from int
	switch n.text {
	case "{":
		from = s.matching(i+1) + 1
	case "*":
		from = i + 2
		if s.at(from).text == "as" {
			from += 2
		}
	default:
		return importRef{}, false
	}
	if s.at(from).text != "from" || !s.at(from+1).isString() {
		return importRef{}, false
	}
	clause := strings.TrimSpace(s.src[n.start:s.toks[from].start])
	last := s.stmtEnd(from + 1)
	return s.ref(refReexport, s.toks[from+1], t.start, s.toks[last].end, clause), true
}

func (s *scanner) parseExport(i int) (exportRef, bool) {
	t, n := s.toks[i], s.at(i+1)
	switch n.text {
	case "{":
		closeIdx := s.matching(i + 1)
		last := closeIdx
		if s.at(last+1).text == ";" {
			last++
		}
		inner := s.src[n.end:s.toks[closeIdx].start]
		return exportRef{Kind: exportList, Start: t.start, End: s.toks[last].end, Names: parseExportList(inner)}, true
	case "default":
		if name, ok := s.declName(i + 2); ok {
			return exportRef{
				Kind:  exportDefaultDecl,
				Start: t.start,
				End:   s.at(i + 2).start,
				Names: []binding{{Name: "default", Local: name}},
			}, true
		}
		if decl, last, ok := s.anonDecl(i + 2); ok {
			return exportRef{
				Kind:  exportDefaultAnon,
				Start: t.start,
				End:   s.toks[last].end,
				Names: []binding{{Name: "default", Local: "__boxel_default"}},
				Decl:  decl,
			}, true
		}
		return exportRef{Kind: exportDefaultExpr, Start: t.start, End: n.end}, true
	case "const", "let", "var":
		var names []binding
		for _, nm := range s.bindingNames(i + 2) {
			names = append(names, binding{Name: nm, Local: nm})
		}
		return exportRef{Kind: exportDecl, Start: t.start, End: n.start, Names: names}, true
	case "function", "async", "class":
		name, ok := s.declName(i + 1)
		if !ok {
			return exportRef{}, false
		}
		return exportRef{Kind: exportDecl, Start: t.start, End: n.start, Names: []binding{{Name: name, Local: name}}}, true
	}
	return exportRef{}, false
}

// declName returns the name of a function or class declaration starting at
// token j.
func (s *scanner) declName(j int) (string, bool) {
	switch s.at(j).text {
	case "async":
		if s.at(j+1).text != "function" {
			return "", false
		}
		j++
		fallthrough
	case "function":
		j++
		if s.at(j).text == "*" {
			j++
		}
	case "class":
		j++
		if s.at(j).text == "extends" {
			return "", false
		}
	default:
		return "", false
	}
	name := s.at(j)
	if name.isString() || !isIdentName(name.text) {
		return "", false
	}
	return name.text, true
}

// anonDecl recognises the head of an anonymous function or class starting at
// token j. It returns the head text and the index of its last token.
func (s *scanner) anonDecl(j int) (string, int, bool) {
	switch s.at(j).text {
	case "class":
		return "class", j, true
	case "async":
		if s.at(j+1).text != "function" {
			return "", 0, false
		}
		if s.at(j+2).text == "*" {
			return "async function*", j + 2, true
		}
		return "async function", j + 1, true
	case "function":
		if s.at(j+1).text == "*" {
			return "function*", j + 1, true
		}
		return "function", j, true
	}
	return "", 0, false
}

// bindingNames collects the names declared by a const/let/var declarator
// list starting at token j, including simple destructuring patterns.
func (s *scanner) bindingNames(j int) []string {
	var names []string
	for j < len(s.toks) {
		t := s.at(j)
		switch {
		case t.text == "{" || t.text == "[":
			closeIdx := s.matching(j)
			names = append(names, s.patternNames(j+1, closeIdx)...)
			j = closeIdx + 1
		case isIdentName(t.text):
			names = append(names, t.text)
			j++
		default:
			return names
		}
		if s.at(j).text == "=" {
			j = s.skipExpr(j + 1)
		}
		if s.at(j).text != "," {
			return names
		}
		j++
	}
	return names
}

func (s *scanner) patternNames(from, to int) []string {
	var names []string
	for k := from; k < to; k++ {
		t := s.toks[k]
		if t.text == "=" {
			k = s.skipExpr(k+1) - 1
			continue
		}
		if !isIdentName(t.text) || t.isString() {
			continue
		}
		switch s.at(k + 1).text {
		case ",", "}", "]", "=":
			names = append(names, t.text)
		}
	}
	return names
}

func unquoteName(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// parseExportList parses the inside of `export { a, b as c }`.
func parseExportList(inner string) []binding {
	var out []binding
	for _, part := range strings.Split(inner, ",") {
		f := strings.Fields(part)
		if len(f) == 0 {
			continue
		}
		out = append(out, binding{Name: unquoteName(f[len(f)-1]), Local: f[0]})
	}
	return out
}

// parseImportClause parses the bindings between `import` and `from`, or
// between `export` and `from` for re-exports.
func parseImportClause(clause string) []binding {
	var out []binding
	clause = strings.TrimSpace(clause)
	for clause != "" {
		switch {
		case strings.HasPrefix(clause, "{"):
			end := strings.Index(clause, "}")
			if end < 0 {
				end = len(clause)
			}
			for _, part := range strings.Split(clause[1:end], ",") {
				f := strings.Fields(part)
				if len(f) == 0 {
					continue
				}
				out = append(out, binding{Name: unquoteName(f[0]), Local: f[len(f)-1]})
			}
			if end < len(clause) {
				end++
			}
			clause = clause[end:]
		case strings.HasPrefix(clause, "*"):
			if f := strings.Fields(clause[1:]); len(f) >= 2 && f[0] == "as" {
				out = append(out, binding{Name: "*", Local: f[1]})
			}
			clause = ""
		default:
			end := strings.Index(clause, ",")
			if end < 0 {
				end = len(clause)
			}
			out = append(out, binding{Name: "default", Local: strings.TrimSpace(clause[:end])})
			clause = clause[end:]
		}
		clause = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(clause), ","))
	}
	return out
}

// ----------------------------------------------------------------------------
// Regex fallback
// ----------------------------------------------------------------------------

var (
	staticImportRE     = regexp.MustCompile(`\bimport\s+([\w$*{}\s,]+?)\s+from\s*(["'])([^"'\n]+)["']\s*;?`)
	sideEffectImportRE = regexp.MustCompile(`\bimport\s*(["'])([^"'\n]+)["']\s*;?`)
	dynamicImportRE    = regexp.MustCompile(`\bimport\s*\(\s*(["'])([^"'\n]+)["']\s*\)`)
	reexportRE         = regexp.MustCompile(`\bexport\s+(\*(?:\s+as\s+[\w$]+)?|\{[^}]*\})\s*from\s*(["'])([^"'\n]+)["']\s*;?`)
)

// scanRegex finds module references with regular expressions. It is used
// when the source cannot be lexed and does not report exports.
func scanRegex(src string) scanResult {
	var refs []importRef
	add := func(re *regexp.Regexp, kind refKind, hasClause bool) {
		for _, m := range re.FindAllStringSubmatchIndex(src, -1) {
			q := 2
			if hasClause {
				q = 4
			}
			spec := q + 2
			r := importRef{
				Kind:      kind,
				Quote:     src[m[q]],
				Spec:      src[m[spec]:m[spec+1]],
				SpecStart: m[q],
				SpecEnd:   m[spec+1] + 1,
				Start:     m[0],
				End:       m[1],
			}
			if hasClause {
				r.Clause = strings.TrimSpace(src[m[2]:m[3]])
			}
			refs = append(refs, r)
		}
	}
	add(staticImportRE, refStatic, true)
	add(sideEffectImportRE, refSideEffect, false)
	add(dynamicImportRE, refDynamic, false)
	add(reexportRE, refReexport, true)

	sort.Slice(refs, func(i, j int) bool { return refs[i].Start < refs[j].Start })
	var out []importRef
	end := -1
	for _, r := range refs {
		if r.Start < end {
			continue
		}
		out = append(out, r)
		end = r.End
	}
	return scanResult{Imports: out}
}

// scan lexes src and extracts its imports and exports. When lexing fails the
// regex fallback result is returned along with the lexer error.
func scan(src string) (scanResult, error) {
	toks, err := tokenize(src)
	if err != nil {
		return scanRegex(src), err
	}
	return scanTokens(src, toks), nil
}
