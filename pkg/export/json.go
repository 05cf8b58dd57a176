// Package export serialises scene objects for use outside the builder: a
// machine-readable JSON array, declarative JSX markup for pasting into a
// component, and the inverse JSON import.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/chazu/boxel/pkg/csg"
	"github.com/chazu/boxel/pkg/scene"
	"github.com/chazu/boxel/pkg/sketch"
)

// Record is one exported object. Boolean records embed their resolved
// sources as children (base first) since the sources themselves are hidden
// and therefore not exported on their own.
type Record struct {
	ID        scene.ObjectID     `json:"id,omitempty"`
	Name      string             `json:"name,omitempty"`
	Type      scene.Kind         `json:"type"`
	Geometry  scene.GeometryType `json:"geometry,omitempty"`
	Args      []float64          `json:"args,omitempty"`
	Operation scene.Operation    `json:"operation,omitempty"`
	Children  []Record           `json:"children,omitempty"`
	Plane     string             `json:"plane,omitempty"`
	Points    []scene.Vec3       `json:"points,omitempty"`
	Material  scene.Material     `json:"material"`
	Position  scene.Vec3         `json:"position"`
	Rotation  scene.Vec3         `json:"rotation"`
	Scale     scene.Vec3         `json:"scale"`
}

// Visible returns the objects whose own visible flag is set, in order.
func Visible(objects []scene.SceneObject) []scene.SceneObject {
	out := make([]scene.SceneObject, 0, len(objects))
	for _, o := range objects {
		if o.Visible {
			out = append(out, o)
		}
	}
	return out
}

// Records converts the visible objects to export records. objects is also
// the lookup set for boolean sources, so hidden sources must be included.
func Records(objects []scene.SceneObject) []Record {
	vis := Visible(objects)
	out := make([]Record, 0, len(vis))
	for _, o := range vis {
		r := Record{
			ID:       o.ID,
			Name:     o.Name,
			Type:     o.Kind,
			Material: o.Material,
			Position: o.Position,
			Rotation: o.Rotation,
			Scale:    o.Scale,
		}
		switch o.Kind {
		case scene.KindBoolean:
			r.Operation = o.Operation
			if m := csg.Resolve(o, objects); m != nil {
				r.Children = childRecords(m.Children)
			}
		case scene.KindSketch:
			r.Geometry = o.GeometryType
			r.Args = o.GeometryArgs
			if o.SketchData != nil {
				r.Plane = o.SketchData.Plane
				r.Points = o.SketchData.Points
			}
		default:
			r.Geometry = o.GeometryType
			r.Args = o.GeometryArgs
		}
		out = append(out, r)
	}
	return out
}

func childRecords(specs []*csg.MeshSpec) []Record {
	out := make([]Record, 0, len(specs))
	for _, m := range specs {
		r := Record{
			ID:       m.ObjectID,
			Material: m.Material,
			Position: m.Position,
			Rotation: m.Rotation,
			Scale:    m.Scale,
		}
		if m.IsBoolean() {
			r.Type = scene.KindBoolean
			r.Operation = m.Operation
			r.Children = childRecords(m.Children)
		} else {
			r.Type = scene.KindPrimitive
			r.Geometry = m.Geometry
			r.Args = m.Args
		}
		out = append(out, r)
	}
	return out
}

// ExportJSON returns the visible objects as a 2-space indented JSON array.
func ExportJSON(objects []scene.SceneObject) (string, error) {
	b, err := json.MarshalIndent(Records(objects), "", "  ")
	if err != nil {
		return "", fmt.Errorf("export json: %w", err)
	}
	return string(b), nil
}

// ---------------------------------------------------------------------------
// Scene documents
// ---------------------------------------------------------------------------

// Document is the full save format: objects plus the layer and group tables.
type Document struct {
	Version int                 `json:"version"`
	Objects []scene.SceneObject `json:"objects"`
	Layers  []scene.Layer       `json:"layers,omitempty"`
	Groups  []scene.Group       `json:"groups,omitempty"`
}

// DocumentVersion is the current Document format version.
const DocumentVersion = 1

// ExportDocument serialises the whole scene, hidden objects included.
func ExportDocument(st scene.State) ([]byte, error) {
	doc := Document{
		Version: DocumentVersion,
		Objects: st.Objects,
		Layers:  st.Layers,
		Groups:  st.Groups,
	}
	if doc.Objects == nil {
		doc.Objects = []scene.SceneObject{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export document: %w", err)
	}
	return b, nil
}

// ---------------------------------------------------------------------------
// Import
// ---------------------------------------------------------------------------

// InvalidSceneImportError reports externally supplied scene JSON that could
// not be used. Nothing is imported when it is returned.
type InvalidSceneImportError struct {
	Reason string
	Err    error
}

func (e *InvalidSceneImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid scene import: %s: %v", e.Reason, e.Err)
	}
	return "invalid scene import: " + e.Reason
}

func (e *InvalidSceneImportError) Unwrap() error { return e.Err }

// ImportJSON parses either an ExportJSON array or a Document. Boolean records
// with children are expanded back into hidden source objects plus the
// boolean. The returned objects are ready for Store.ReplaceObjects.
func ImportJSON(data []byte) ([]scene.SceneObject, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &InvalidSceneImportError{Reason: "empty input"}
	}

	if trimmed[0] == '[' {
		var recs []Record
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, &InvalidSceneImportError{Reason: "malformed record array", Err: err}
		}
		var out []scene.SceneObject
		for i, r := range recs {
			objs, err := fromRecord(r, scene.Vec3{}, true)
			if err != nil {
				return nil, &InvalidSceneImportError{Reason: fmt.Sprintf("record %d", i), Err: err}
			}
			out = append(out, objs...)
		}
		return out, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &InvalidSceneImportError{Reason: "not a JSON object or array", Err: err}
	}
	objs, ok := raw["objects"]
	if !ok {
		return nil, &InvalidSceneImportError{Reason: "missing \"objects\""}
	}
	if t := bytes.TrimSpace(objs); len(t) == 0 || t[0] != '[' {
		return nil, &InvalidSceneImportError{Reason: "\"objects\" is not an array"}
	}
	var out []scene.SceneObject
	if err := json.Unmarshal(objs, &out); err != nil {
		return nil, &InvalidSceneImportError{Reason: "malformed objects", Err: err}
	}
	for i := range out {
		if errs := validateImported(out[i]); errs != nil {
			return nil, &InvalidSceneImportError{Reason: fmt.Sprintf("object %d", i), Err: errs}
		}
	}
	if out == nil {
		out = []scene.SceneObject{}
	}
	return out, nil
}

func validateImported(o scene.SceneObject) error {
	switch o.Kind {
	case scene.KindPrimitive, scene.KindGenerated3D:
		if !o.GeometryType.IsSolid() {
			return fmt.Errorf("unsupported geometry %q", o.GeometryType)
		}
	case scene.KindBoolean:
		if !o.Operation.Valid() {
			return fmt.Errorf("invalid operation %q", o.Operation)
		}
	}
	return nil
}

// fromRecord rebuilds scene objects from r. offset is the parent's world
// position for children, which are stored relative to it.
func fromRecord(r Record, offset scene.Vec3, visible bool) ([]scene.SceneObject, error) {
	o := scene.SceneObject{
		ID:       r.ID,
		Name:     r.Name,
		Kind:     r.Type,
		Material: r.Material.Normalize(),
		Position: r.Position.Add(offset),
		Rotation: r.Rotation,
		Scale:    r.Scale,
		Visible:  visible,
		LayerID:  scene.DefaultLayerID,
	}
	if o.ID == "" {
		o.ID = scene.NewObjectID(o.Kind)
	}
	if o.Scale.IsZero() {
		o.Scale = scene.Vec3{1, 1, 1}
	}

	switch r.Type {
	case scene.KindBoolean:
		if !r.Operation.Valid() {
			return nil, fmt.Errorf("invalid operation %q", r.Operation)
		}
		o.Operation = r.Operation
		var out []scene.SceneObject
		for _, c := range r.Children {
			objs, err := fromRecord(c, o.Position, false)
			if err != nil {
				return nil, err
			}
			// The child itself is last; its own sources precede it.
			o.SourceObjectIDs = append(o.SourceObjectIDs, objs[len(objs)-1].ID)
			out = append(out, objs...)
		}
		return append(out, o), nil

	case scene.KindSketch:
		o.GeometryType = r.Geometry
		o.GeometryArgs = r.Args
		o.SketchData = &scene.SketchData{
			Plane:  r.Plane,
			Points: r.Points,
			Bounds: sketch.ComputeBounds(r.Points),
		}
		return []scene.SceneObject{o}, nil

	default:
		if !r.Geometry.IsSolid() {
			return nil, fmt.Errorf("unsupported geometry %q", r.Geometry)
		}
		o.GeometryType = r.Geometry
		o.GeometryArgs = r.Args
		return []scene.SceneObject{o}, nil
	}
}
