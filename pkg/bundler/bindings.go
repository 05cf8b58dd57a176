package bundler

import "strconv"

// Imports of inlined modules are read through the required module's exports
// object at each use, so bindings stay live and import cycles see the same
// values native modules would. References are found on the token stream; a
// name the module also declares locally (a parameter, a variable, a nested
// function) is read eagerly instead, since the token pass does not track
// scopes.

type braceKind int

const (
	braceBlock braceKind = iota
	braceObject
	bracePattern
	braceClass
	braceGroup // ( or [
)

// exprKeywords are the keywords after which "{" opens an object literal.
var exprKeywords = map[string]bool{
	"return": true, "yield": true, "await": true, "case": true, "typeof": true,
	"void": true, "in": true, "of": true, "default": true, "delete": true,
	"throw": true, "instanceof": true, "new": true,
}

// conditionKeywords precede a parenthesised condition rather than a
// parameter list.
var conditionKeywords = map[string]bool{
	"if": true, "while": true, "for": true, "switch": true, "with": true,
}

// member renders the property access of name on base.
func member(base, name string) string {
	switch {
	case name == "*":
		return base
	case isIdentName(name) && isPlainIdent(name):
		return base + "." + name
	default:
		return base + "[" + strconv.Quote(name) + "]"
	}
}

func isPlainIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 127:
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}

// declaredNames returns every name the token stream declares: variable
// bindings, function and class names, and anything inside a parameter list.
// Tokens inside the skipped ranges are ignored.
func declaredNames(toks []token, skip []span) map[string]bool {
	s := &scanner{toks: toks}
	out := map[string]bool{}
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if inSpans(skip, t.start) {
			continue
		}
		if p := s.at(i - 1).text; p == "." || p == "?." {
			continue
		}
		switch t.text {
		case "const", "let", "var":
			for _, n := range s.bindingNames(i + 1) {
				out[n] = true
			}
		case "function", "class":
			j := i + 1
			if s.at(j).text == "*" {
				j++
			}
			if n := s.at(j); isIdentName(n.text) && !n.isString() && n.text != "extends" {
				out[n.text] = true
			}
		case "(":
			closeIdx := s.matching(i)
			next := s.at(closeIdx + 1).text
			if next == "=>" || next == "{" && !conditionKeywords[s.at(i-1).text] {
				for k := i + 1; k < closeIdx; k++ {
					if isIdentName(toks[k].text) && !toks[k].isString() {
						out[toks[k].text] = true
					}
				}
			}
		default:
			if isIdentName(t.text) && !t.isString() && s.at(i+1).text == "=>" {
				out[t.text] = true
			}
		}
	}
	return out
}

type span struct{ start, end int }

func inSpans(spans []span, pos int) bool {
	for _, sp := range spans {
		if pos >= sp.start && pos < sp.end {
			return true
		}
	}
	return false
}

// openKind classifies the bracket at toks[i] given the enclosing kind.
func openKind(s *scanner, i int, outer braceKind, classPending bool) braceKind {
	t, prev := s.at(i), s.at(i-1)
	if t.text == "(" {
		return braceGroup
	}
	switch prev.text {
	case "const", "let", "var":
		return bracePattern
	}
	if outer == bracePattern && prev.text != "=" {
		return bracePattern
	}
	if t.text == "[" {
		return braceGroup
	}
	if classPending {
		return braceClass
	}
	switch prev.text {
	case "", ")", "]", "}", ";", "=>":
		return braceBlock
	}
	if isIdentName(prev.text) && !prev.isString() {
		if exprKeywords[prev.text] {
			return braceObject
		}
		return braceBlock
	}
	return braceObject
}

// liveRefs returns edits replacing each reference to a name in live with
// its accessor expression. Tokens inside the skipped ranges are left alone.
func liveRefs(toks []token, skip []span, live map[string]string) []edit {
	if len(live) == 0 {
		return nil
	}
	s := &scanner{toks: toks}
	var edits []edit
	stack := []braceKind{braceBlock}
	classDepth := -1

	for i, t := range toks {
		top := stack[len(stack)-1]
		switch t.text {
		case "{", "(", "[":
			pending := t.text == "{" && classDepth == len(stack)
			if pending {
				classDepth = -1
			}
			stack = append(stack, openKind(s, i, top, pending))
			continue
		case "}", ")", "]":
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			if classDepth > len(stack) {
				classDepth = -1
			}
			continue
		case "class":
			if p := s.at(i - 1).text; p != "." && p != "?." && s.at(i+1).text != ":" {
				classDepth = len(stack)
			}
			continue
		}

		expr, ok := live[t.text]
		if !ok || t.isString() || inSpans(skip, t.start) {
			continue
		}
		prev, next := s.at(i-1).text, s.at(i+1).text
		switch {
		case prev == "." || prev == "?." || prev == "break" || prev == "continue":
			continue
		case top == bracePattern && prev != "=":
			continue
		case top == braceClass:
			switch prev {
			case "{", "}", ";", "static", "get", "set", "async", "*", "accessor":
				continue
			}
		case next == ":" && (prev == "{" || prev == "," || prev == ";" || prev == "}" || prev == ""):
			// Property key or label.
			continue
		case top == braceObject && next == "(" && (prev == "{" || prev == "," || prev == "get" || prev == "set" || prev == "async" || prev == "*"):
			// Method name.
			continue
		case top == braceObject && (prev == "{" || prev == ",") && (next == "," || next == "}"):
			edits = append(edits, edit{t.start, t.end, t.text + ": " + expr})
			continue
		}
		edits = append(edits, edit{t.start, t.end, expr})
	}
	return edits
}
