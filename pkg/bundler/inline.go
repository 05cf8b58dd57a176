package bundler

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// runtime is the module registry prepended to inlined bundles. Modules are
// evaluated on first require; exports are exposed through getters so that
// late-initialised bindings are visible to importers.
const runtime = `const __boxel_defs = {}, __boxel_cache = {};
function __boxel_require(id) {
  let m = __boxel_cache[id];
  if (m) return m;
  m = __boxel_cache[id] = {};
  __boxel_defs[id](m);
  return m;
}
function __boxel_export(target, getters) {
  for (const k in getters) Object.defineProperty(target, k, { get: getters[k], enumerable: true });
}
function __boxel_reexport(target, mod, names) {
  if (names) {
    for (const k in names) {
      const from = names[k];
      Object.defineProperty(target, k, { get: from === "*" ? () => mod : () => mod[from], enumerable: true });
    }
    return;
  }
  for (const k in mod) {
    if (k !== "default" && !(k in target)) Object.defineProperty(target, k, { get: () => mod[k], enumerable: true });
  }
}
`

type edit struct {
	start, end int
	text       string
}

func applyEdits(src string, edits []edit) string {
	if len(edits) == 0 {
		return src
	}
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var sb strings.Builder
	pos := 0
	for _, e := range edits {
		if e.start < pos {
			continue
		}
		sb.WriteString(src[pos:e.start])
		sb.WriteString(e.text)
		pos = e.end
	}
	sb.WriteString(src[pos:])
	return sb.String()
}

// externals collects the bare imports of non-entry modules, which are hoisted
// to namespace imports at the top of the bundle.
type externals struct {
	names  map[string]string
	order  []string
	quotes map[string]byte
}

func (x *externals) name(spec string, q byte) string {
	if x.names == nil {
		x.names = map[string]string{}
		x.quotes = map[string]byte{}
	}
	if n, ok := x.names[spec]; ok {
		return n
	}
	n := "__ext_" + strconv.Itoa(len(x.order))
	x.names[spec] = n
	x.quotes[spec] = q
	x.order = append(x.order, spec)
	return n
}

func (x *externals) write(sb *strings.Builder) {
	for _, spec := range x.order {
		fmt.Fprintf(sb, "import * as %s from %s;\n", x.names[spec], quoteSpec(spec, x.quotes[spec]))
	}
}

func propKey(name string) string {
	if isIdentName(name) && !strings.ContainsAny(name, "-. ") {
		return name
	}
	return strconv.Quote(name)
}

// destructure renders `const {a, default: b} = source;` for the named
// bindings and `const ns = source;` for a namespace binding.
func destructure(bindings []binding, source string) string {
	var ns string
	var parts []string
	for _, b := range bindings {
		if b.Name == "*" {
			ns = b.Local
			continue
		}
		if b.Name == b.Local {
			parts = append(parts, b.Local)
		} else {
			parts = append(parts, propKey(b.Name)+": "+b.Local)
		}
	}
	var sb strings.Builder
	if ns != "" {
		fmt.Fprintf(&sb, "const %s = %s;", ns, source)
		source = ns
	}
	if len(parts) > 0 {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "const { %s } = %s;", strings.Join(parts, ", "), source)
	}
	if sb.Len() == 0 {
		return source + ";"
	}
	return sb.String()
}

// reexport renders the runtime call that forwards names of source on the
// module's exports object.
func reexport(clause, source string) string {
	if strings.TrimSpace(clause) == "*" {
		return fmt.Sprintf("__boxel_reexport(__boxel_exports, %s, null);", source)
	}
	var pairs []string
	for _, b := range parseImportClause(clause) {
		pairs = append(pairs, fmt.Sprintf("%s: %q", propKey(b.Local), b.Name))
	}
	return fmt.Sprintf("__boxel_reexport(__boxel_exports, %s, { %s });", source, strings.Join(pairs, ", "))
}

// getters renders the export getters. A local that is itself an imported
// binding reads through its accessor in live.
func getters(names []binding, live map[string]string) string {
	var parts []string
	for _, b := range names {
		local := b.Local
		if expr, ok := live[local]; ok {
			local = expr
		}
		parts = append(parts, fmt.Sprintf("%s: () => %s", propKey(b.Name), local))
	}
	return fmt.Sprintf("__boxel_export(__boxel_exports, { %s });\n", strings.Join(parts, ", "))
}

// bind replaces a static import, side-effect import or re-export with code
// reading from source.
func bind(ref importRef, source string, entry bool) string {
	switch ref.Kind {
	case refSideEffect:
		if strings.HasPrefix(source, "__boxel_require(") {
			return source + ";"
		}
		return ""
	case refReexport:
		if entry {
			return bind(importRef{Kind: refSideEffect}, source, true)
		}
		return reexport(ref.Clause, source)
	default:
		return destructure(parseImportClause(ref.Clause), source)
	}
}

// rewriteExternal maps a bare specifier through the inscription map.
func (b *build) rewriteExternal(spec string) (string, bool) {
	v, ok := b.inscriptions[spec]
	if !ok {
		return spec, false
	}
	return importMapTarget(v, b.opts.ContentBase), true
}

func (m *module) quoteOf(ref importRef) byte {
	if q, ok := m.Quotes[ref.Spec]; ok {
		return q
	}
	return ref.Quote
}

// rewriteEntryOnly rewrites bare specifiers found in the inscription map and
// leaves everything else untouched.
func (b *build) rewriteEntryOnly(m *module) string {
	var edits []edit
	for _, ref := range m.Scan.Imports {
		if isLocal(ref.Spec) {
			continue
		}
		if v, changed := b.rewriteExternal(ref.Spec); changed {
			edits = append(edits, edit{ref.SpecStart, ref.SpecEnd, quoteSpec(v, m.quoteOf(ref))})
		}
	}
	return applyEdits(m.Code, edits)
}

// rewriteModule turns module m into code that runs inside the registry. The
// top-level entry keeps its external imports in place; other modules have
// theirs hoisted into ext. Module references are hoisted to the start of the
// body, ahead of the code that uses them.
func (b *build) rewriteModule(m *module, entry bool, ext *externals) string {
	switch m.Kind {
	case modJSON:
		return fmt.Sprintf("__boxel_exports.default = %s;", strings.TrimSpace(m.Code))
	case modAsset:
		return fmt.Sprintf("__boxel_exports.default = %q;", m.Code)
	}

	var edits []edit
	var names []binding
	var skip []span
	if !entry {
		for _, e := range m.Scan.Exports {
			switch e.Kind {
			case exportDefaultExpr:
				edits = append(edits, edit{e.Start, e.End, "var __boxel_default ="})
				names = append(names, binding{Name: "default", Local: "__boxel_default"})
			case exportDefaultAnon:
				edits = append(edits, edit{e.Start, e.End, e.Decl + " __boxel_default"})
				names = append(names, e.Names...)
			default:
				edits = append(edits, edit{e.Start, e.End, ""})
				names = append(names, e.Names...)
			}
			if e.Kind == exportList {
				skip = append(skip, span{e.Start, e.End})
			}
		}
	}
	for _, ref := range m.Scan.Imports {
		if ref.Kind != refDynamic {
			skip = append(skip, span{ref.Start, ref.End})
		}
	}

	var shadowed map[string]bool
	if m.Scan.Tokens != nil {
		shadowed = declaredNames(m.Scan.Tokens, skip)
	}
	live := map[string]string{}
	var prelude []string
	hoist := func(ref importRef, code string) {
		edits = append(edits, edit{ref.Start, ref.End, ""})
		if code != "" {
			prelude = append(prelude, code)
		}
	}

	for i, ref := range m.Scan.Imports {
		target := m.Resolved[i]
		switch {
		case !isLocal(ref.Spec):
			v, changed := b.rewriteExternal(ref.Spec)
			q := m.quoteOf(ref)
			if entry || ref.Kind == refDynamic {
				if changed {
					edits = append(edits, edit{ref.SpecStart, ref.SpecEnd, quoteSpec(v, q)})
				}
				continue
			}
			hoist(ref, bind(ref, ext.name(v, q), false))
		case target == "":
			if ref.Kind == refDynamic {
				msg := strconv.Quote("cannot resolve " + ref.Spec)
				edits = append(edits, edit{ref.Start, ref.End, "Promise.reject(new Error(" + msg + "))"})
				continue
			}
			hoist(ref, bind(ref, "{}", entry))
		case isCSS(target):
			if ref.Kind == refDynamic {
				edits = append(edits, edit{ref.Start, ref.End, "Promise.resolve({})"})
				continue
			}
			hoist(ref, "")
		default:
			req := fmt.Sprintf("__boxel_require(%q)", target)
			switch ref.Kind {
			case refDynamic:
				edits = append(edits, edit{ref.Start, ref.End, "Promise.resolve().then(() => " + req + ")"})
			case refStatic:
				ns := fmt.Sprintf("__boxel_i%d", i)
				code := fmt.Sprintf("const %s = %s;", ns, req)
				var eager []binding
				for _, bd := range parseImportClause(ref.Clause) {
					if m.Scan.Tokens == nil || shadowed[bd.Local] {
						eager = append(eager, bd)
						continue
					}
					live[bd.Local] = member(ns, bd.Name)
				}
				if len(eager) > 0 {
					code += " " + destructure(eager, ns)
				}
				hoist(ref, code)
			default:
				hoist(ref, bind(ref, req, entry))
			}
		}
	}

	if m.Scan.Tokens != nil {
		edits = append(edits, liveRefs(m.Scan.Tokens, skip, live)...)
	}
	body := applyEdits(m.Code, edits)
	if len(prelude) > 0 {
		body = strings.Join(prelude, "\n") + "\n" + body
	}
	if len(names) > 0 {
		body = getters(names, live) + body
	}
	return body
}

// importsEntry reports whether some module imports the entry, which then
// has to live in the registry so the cycle can reach it.
func (b *build) importsEntry() bool {
	for _, m := range b.modules {
		for _, target := range m.Resolved {
			if target == b.entry {
				return true
			}
		}
	}
	return false
}

// emit assembles the inlined script: hoisted external imports, the module
// registry with every dependency, then the entry. The entry runs at top
// level unless another module imports it, in which case it is registered
// like any other module and required last.
func (b *build) emit() string {
	var ext externals
	wrap := b.importsEntry()
	var defs strings.Builder
	for _, p := range b.order {
		if p == b.entry && !wrap {
			continue
		}
		m := b.modules[p]
		body := b.rewriteModule(m, false, &ext)
		fmt.Fprintf(&defs, "__boxel_defs[%q] = function (__boxel_exports) {\n%s\n};\n", p, strings.TrimRight(body, "\n"))
	}
	var entry string
	if wrap {
		entry = fmt.Sprintf("__boxel_require(%q);\n", b.entry)
	} else {
		entry = b.rewriteModule(b.modules[b.entry], true, &ext)
	}

	var sb strings.Builder
	ext.write(&sb)
	if defs.Len() > 0 {
		sb.WriteString(runtime)
		sb.WriteString(defs.String())
	}
	sb.WriteString(entry)
	return sb.String()
}

func dataURL(mime, content string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString([]byte(content))
}
