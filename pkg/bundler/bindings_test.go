package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveRefs(t *testing.T) {
	live := map[string]string{"a": "M.a"}
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"call and member", "f(a); x.a; obj?.a;", "f(M.a); x.a; obj?.a;"},
		{"shorthand property", "g({ a }); g({ b, a });", "g({ a: M.a }); g({ b, a: M.a });"},
		{"property key", "g({ a: 1, k: a });", "g({ a: 1, k: M.a });"},
		{"pattern", "const { a: b } = o; const [c = a] = o;", "const { a: b } = o; const [c = M.a] = o;"},
		{"class members", "class K extends a { a() { return a; } }", "class K extends M.a { a() { return M.a; } }"},
		{"object methods", "g({ a() {}, get a() { return a; } });", "g({ a() {}, get a() { return M.a; } });"},
		{"label", "a: while (x) { break a; }", "a: while (x) { break a; }"},
		{"template", "`v=${a}`;", "`v=${M.a}`;"},
		{"block statement", "if (x) { a; }", "if (x) { M.a; }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := tokenize(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, applyEdits(tt.src, liveRefs(toks, nil, live)))
		})
	}
}

func TestLiveRefsSkipsStatements(t *testing.T) {
	src := "import { a } from './a.js';\nexport { a };\nf(a);\n"
	toks, err := tokenize(src)
	require.NoError(t, err)
	skip := []span{{0, 27}, {28, 41}}
	got := applyEdits(src, liveRefs(toks, skip, map[string]string{"a": "M.a"}))
	assert.Equal(t, "import { a } from './a.js';\nexport { a };\nf(M.a);\n", got)
}

func TestDeclaredNames(t *testing.T) {
	src := `function f(x, { y }) {}
const [p, q] = r;
let s = 1;
const g = z => z;
try {} catch (e) {}
if (cond) {}
class C {}
obj.method(arg);
`
	toks, err := tokenize(src)
	require.NoError(t, err)
	got := declaredNames(toks, nil)
	for _, n := range []string{"f", "x", "y", "p", "q", "s", "g", "z", "e", "C"} {
		assert.True(t, got[n], n)
	}
	for _, n := range []string{"r", "cond", "obj", "method", "arg"} {
		assert.False(t, got[n], n)
	}
}

func TestMember(t *testing.T) {
	assert.Equal(t, "ns.a", member("ns", "a"))
	assert.Equal(t, "ns.default", member("ns", "default"))
	assert.Equal(t, "ns", member("ns", "*"))
	assert.Equal(t, `ns["odd-name"]`, member("ns", "odd-name"))
}
