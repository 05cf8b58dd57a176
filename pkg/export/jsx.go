package export

import (
	"strconv"
	"strings"

	"github.com/chazu/boxel/pkg/scene"
)

// geometryTags maps geometry types to their JSX element names.
var geometryTags = map[scene.GeometryType]string{
	scene.GeometryBox:      "boxGeometry",
	scene.GeometrySphere:   "sphereGeometry",
	scene.GeometryCylinder: "cylinderGeometry",
	scene.GeometryPlane:    "planeGeometry",
	scene.GeometryCone:     "coneGeometry",
	scene.GeometryTorus:    "torusGeometry",
}

// operationTags maps boolean operations to the CSG element applied to every
// source after the base.
var operationTags = map[scene.Operation]string{
	scene.OpUnion:     "Addition",
	scene.OpSubtract:  "Subtraction",
	scene.OpIntersect: "Intersection",
}

// FormatNumber renders v with three fixed decimals, never in scientific
// notation and never as negative zero.
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	if s == "-0.000" {
		return "0.000"
	}
	return s
}

func formatList(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = FormatNumber(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatVec(v scene.Vec3) string {
	return formatList(v[:])
}

// jsxWriter accumulates indented markup.
type jsxWriter struct {
	b      strings.Builder
	indent int
}

func (w *jsxWriter) line(s string) {
	w.b.WriteString(strings.Repeat("  ", w.indent))
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

func transformAttrs(r Record) string {
	var attrs []string
	if !r.Position.IsZero() {
		attrs = append(attrs, "position={"+formatVec(r.Position)+"}")
	}
	if !r.Rotation.IsZero() {
		attrs = append(attrs, "rotation={"+formatVec(r.Rotation)+"}")
	}
	if r.Scale != (scene.Vec3{1, 1, 1}) && !r.Scale.IsZero() {
		attrs = append(attrs, "scale={"+formatVec(r.Scale)+"}")
	}
	if len(attrs) == 0 {
		return ""
	}
	return " " + strings.Join(attrs, " ")
}

func materialTag(m scene.Material) string {
	attrs := []string{
		"color=" + strconv.Quote(m.Color),
		"metalness={" + FormatNumber(m.Metalness) + "}",
		"roughness={" + FormatNumber(m.Roughness) + "}",
	}
	if m.Opacity < 1 {
		attrs = append(attrs, "transparent", "opacity={"+FormatNumber(m.Opacity)+"}")
	}
	if m.Emissive != "" && m.Emissive != scene.DefaultEmissive {
		attrs = append(attrs, "emissive="+strconv.Quote(m.Emissive))
	}
	if m.EmissiveIntensity > 0 {
		attrs = append(attrs, "emissiveIntensity={"+FormatNumber(m.EmissiveIntensity)+"}")
	}
	return "<meshStandardMaterial " + strings.Join(attrs, " ") + " />"
}

func geometryTag(g scene.GeometryType, args []float64) string {
	tag, ok := geometryTags[g]
	if !ok {
		return ""
	}
	if len(args) == 0 {
		return "<" + tag + " />"
	}
	return "<" + tag + " args={" + formatList(args) + "} />"
}

// ExportJSX renders each visible object as a mesh block. Booleans become CSG
// markup with the base source first; sketches become lines.
func ExportJSX(objects []scene.SceneObject) string {
	w := &jsxWriter{}
	for _, r := range Records(objects) {
		writeRecord(w, r)
	}
	return w.b.String()
}

func writeRecord(w *jsxWriter, r Record) {
	switch r.Type {
	case scene.KindSketch:
		pts := make([]string, len(r.Points))
		for i, p := range r.Points {
			pts[i] = formatVec(p)
		}
		w.line("<Line points={[" + strings.Join(pts, ", ") + "]} color=" + strconv.Quote(r.Material.Color) + " />")

	case scene.KindBoolean:
		if len(r.Children) < 2 {
			w.line("{/* " + string(r.ID) + ": boolean without resolvable sources */}")
			return
		}
		w.line("<mesh" + transformAttrs(r) + ">")
		w.indent++
		writeCSG(w, r)
		w.line(materialTag(r.Material))
		w.indent--
		w.line("</mesh>")

	default:
		tag := geometryTag(r.Geometry, r.Args)
		if tag == "" {
			w.line("{/* " + string(r.ID) + ": unsupported geometry " + string(r.Geometry) + " */}")
			return
		}
		w.line("<mesh" + transformAttrs(r) + ">")
		w.indent++
		w.line(tag)
		w.line(materialTag(r.Material))
		w.indent--
		w.line("</mesh>")
	}
}

// writeCSG emits a <Geometry> block: the base, then each further child
// wrapped in the operation's element. Nested booleans nest a new block.
func writeCSG(w *jsxWriter, r Record) {
	w.line("<Geometry>")
	w.indent++
	for i, c := range r.Children {
		tag := "Base"
		if i > 0 {
			tag = operationTags[r.Operation]
		}
		w.line("<" + tag + transformAttrs(c) + ">")
		w.indent++
		if c.Type == scene.KindBoolean {
			writeCSG(w, c)
		} else {
			w.line(geometryTag(c.Geometry, c.Args))
		}
		w.indent--
		w.line("</" + tag + ">")
	}
	w.indent--
	w.line("</Geometry>")
}
