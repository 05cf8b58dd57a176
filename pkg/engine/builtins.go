package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/samber/lo"

	"github.com/chazu/boxel/pkg/csg"
	"github.com/chazu/boxel/pkg/scene"
	"github.com/chazu/boxel/pkg/sketch"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites console source before zygomys sees it:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     not be registered as globals.
//  2. kebab-case identifiers become snake_case (sketch-rect -> sketch_rect);
//     zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied verbatim.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == '"' || c == '`':
			j := skipString(b, i)
			out = append(out, b[i:j]...)
			i = j
		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}
		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2
		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j
		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// skipString returns the index just past the string literal starting at i.
// Backslash escapes are honoured in double-quoted strings only.
func skipString(b []byte, i int) int {
	q := b[i]
	j := i + 1
	for j < len(b) && b[j] != q {
		if q == '"' && b[j] == '\\' && j+1 < len(b) {
			j++
		}
		j++
	}
	if j < len(b) {
		j++
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a scene.Vec3.
type sexpVec3 struct {
	vec scene.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpObject refers to an object created earlier in the same script.
type sexpObject struct {
	id   scene.ObjectID
	kind scene.Kind
}

func (o *sexpObject) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %s)", o.kind, o.id)
}
func (o *sexpObject) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A trailing
// keyword without a value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts both :name and "name".
func toKeywordString(s zygo.Sexp) (string, error) {
	str, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected keyword or string: %w", err)
	}
	return strings.TrimPrefix(str, kwPrefix), nil
}

// toVec3 accepts a vec3 value or a single number applied to all axes.
func toVec3(s zygo.Sexp) (scene.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	if f, err := toFloat64(s); err == nil {
		return scene.Vec3{f, f, f}, nil
	}
	return scene.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toPlane(s zygo.Sexp) (sketch.Plane, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return "", err
	}
	return sketch.ParsePlane(name)
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Script state
// ---------------------------------------------------------------------------

// script accumulates the objects created by one evaluation.
type script struct {
	objects []scene.SceneObject
	index   map[scene.ObjectID]int
}

func newScript() *script {
	return &script{objects: []scene.SceneObject{}, index: map[scene.ObjectID]int{}}
}

func (sc *script) add(o scene.SceneObject) *sexpObject {
	sc.index[o.ID] = len(sc.objects)
	sc.objects = append(sc.objects, o)
	return &sexpObject{id: o.ID, kind: o.Kind}
}

func (sc *script) object(s zygo.Sexp) (*scene.SceneObject, error) {
	ref, ok := s.(*sexpObject)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T (%s)", s, s.SexpString(nil))
	}
	i, ok := sc.index[ref.id]
	if !ok {
		return nil, fmt.Errorf("unknown object %s", ref.id)
	}
	return &sc.objects[i], nil
}

// objects resolves positional arguments to objects, flattening lists.
func (sc *script) objectArgs(args []zygo.Sexp) ([]*scene.SceneObject, error) {
	var out []*scene.SceneObject
	for _, a := range args {
		if _, isObj := a.(*sexpObject); !isObj {
			items, err := sexpListToSlice(a)
			if err != nil {
				return nil, err
			}
			nested, err := sc.objectArgs(items)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		o, err := sc.object(a)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// applyCommon applies the keyword arguments shared by every object builtin.
func applyCommon(o *scene.SceneObject, pa kwArgs) error {
	vecs := map[string]*scene.Vec3{"at": &o.Position, "rotate": &o.Rotation, "scale": &o.Scale}
	for _, k := range []string{"at", "rotate", "scale"} {
		if v, ok := pa.kw[k]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*vecs[k] = vec
		}
	}
	floats := map[string]*float64{
		"metalness": &o.Material.Metalness,
		"roughness": &o.Material.Roughness,
		"opacity":   &o.Material.Opacity,
	}
	for _, k := range []string{"metalness", "roughness", "opacity"} {
		if v, ok := pa.kw[k]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*floats[k] = f
		}
	}
	strs := map[string]*string{"color": &o.Material.Color, "name": &o.Name, "layer": &o.LayerID}
	for _, k := range []string{"color", "name", "layer"} {
		if v, ok := pa.kw[k]; ok {
			s, err := toString(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*strs[k] = s
		}
	}
	o.Material = o.Material.Normalize()
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the scene builtins into a zygomys environment.
// Source code must be preprocessed with preprocessSource() so that :keyword
// tokens arrive as recognisable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *script) {
	env.AddFunction("vec3", vec3Builtin)

	for _, g := range scene.SolidGeometryTypes {
		env.AddFunction(string(g), primitiveBuiltin(sc, g))
	}

	env.AddFunction("union", booleanBuiltin(sc, scene.OpUnion))
	env.AddFunction("subtract", booleanBuiltin(sc, scene.OpSubtract))
	env.AddFunction("intersect", booleanBuiltin(sc, scene.OpIntersect))

	env.AddFunction("sketch_rect", sketchRectBuiltin(sc))
	env.AddFunction("sketch_circle", sketchCircleBuiltin(sc))
	env.AddFunction("extrude", extrudeBuiltin(sc))
	env.AddFunction("revolve", revolveBuiltin(sc))
}

// (vec3 1 2 3)
func vec3Builtin(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	var v scene.Vec3
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
		}
		v[i] = f
	}
	return &sexpVec3{vec: v}, nil
}

// (box 2 1 1 :at (vec3 0 0.5 0) :color "#ff0000")
//
// Positional numbers replace the shape's default geometry args in order.
func primitiveBuiltin(sc *script, g scene.GeometryType) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		o := scene.NewPrimitive(g)
		if len(pa.positional) > len(o.GeometryArgs) {
			return zygo.SexpNull, fmt.Errorf("%s takes at most %d arguments, got %d",
				name, len(o.GeometryArgs), len(pa.positional))
		}
		for i, p := range pa.positional {
			f, err := toFloat64(p)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: arg %d: %w", name, i+1, err)
			}
			o.GeometryArgs[i] = f
		}
		if err := applyCommon(&o, pa); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		return sc.add(o), nil
	}
}

// (subtract base cutter ... :at (vec3 0 0 0) :name "bracket")
//
// The first object is the base. Sources are hidden, never removed.
func booleanBuiltin(sc *script, op scene.Operation) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		srcs, err := sc.objectArgs(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		var pos *scene.Vec3
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: at: %w", name, err)
			}
			pos = &vec
		}
		values := lo.Map(srcs, func(o *scene.SceneObject, _ int) scene.SceneObject { return *o })
		b, err := csg.NewBoolean(op, values, pos)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		if v, ok := pa.kw["name"]; ok {
			if b.Name, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: name: %w", name, err)
			}
		}
		for _, s := range srcs {
			s.Visible = false
		}
		return sc.add(b), nil
	}
}

func sketchPlane(pa kwArgs, fn string) (sketch.Plane, error) {
	v, ok := pa.kw["plane"]
	if !ok {
		return sketch.PlaneFront, nil
	}
	p, err := toPlane(v)
	if err != nil {
		return "", fmt.Errorf("%s: plane: %w", fn, err)
	}
	return p, nil
}

func floats(args []zygo.Sexp, n int, fn string) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires %d numbers, got %d", fn, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: arg %d: %w", fn, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// (sketch-rect u1 v1 u2 v2 :plane :top)
func sketchRectBuiltin(sc *script) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		plane, err := sketchPlane(pa, "sketch-rect")
		if err != nil {
			return zygo.SexpNull, err
		}
		f, err := floats(pa.positional, 4, "sketch-rect")
		if err != nil {
			return zygo.SexpNull, err
		}
		o, err := sketch.Rectangle(plane, sketch.Point{U: f[0], V: f[1]}, sketch.Point{U: f[2], V: f[3]})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sketch-rect: %w", err)
		}
		return sc.add(o), nil
	}
}

// (sketch-circle u v radius :plane :front)
func sketchCircleBuiltin(sc *script) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		plane, err := sketchPlane(pa, "sketch-circle")
		if err != nil {
			return zygo.SexpNull, err
		}
		f, err := floats(pa.positional, 3, "sketch-circle")
		if err != nil {
			return zygo.SexpNull, err
		}
		o, err := sketch.Circle(plane, sketch.Point{U: f[0], V: f[1]}, f[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sketch-circle: %w", err)
		}
		return sc.add(o), nil
	}
}

// (extrude s 2 :color "#00ff00")
func extrudeBuiltin(sc *script) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("extrude requires a sketch and a depth")
		}
		sk, err := sc.object(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		depth, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: depth: %w", err)
		}
		o, err := sketch.Extrude(*sk, depth)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		if err := applyCommon(&o, pa); err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		return sc.add(o), nil
	}
}

// (revolve s 180 :segments 24)
func revolveBuiltin(sc *script) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 || len(pa.positional) > 2 {
			return zygo.SexpNull, fmt.Errorf("revolve requires a sketch and an optional angle")
		}
		sk, err := sc.object(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("revolve: %w", err)
		}
		angle := 360.0
		if len(pa.positional) == 2 {
			if angle, err = toFloat64(pa.positional[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("revolve: angle: %w", err)
			}
		}
		segments := sketch.DefaultSegments
		if v, ok := pa.kw["segments"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("revolve: segments: %w", err)
			}
			segments = int(f)
		}
		o, err := sketch.Revolve(*sk, angle, segments)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("revolve: %w", err)
		}
		if err := applyCommon(&o, pa); err != nil {
			return zygo.SexpNull, fmt.Errorf("revolve: %w", err)
		}
		return sc.add(o), nil
	}
}
