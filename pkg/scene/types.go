package scene

import (
	"encoding/json"
	"fmt"
)

// ObjectID identifies a scene object. It is opaque and unique per scene.
type ObjectID string

// Vec3 is a world-space 3-vector. It marshals as a JSON array [x, y, z].
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// ---------------------------------------------------------------------------
// Kind
// ---------------------------------------------------------------------------

// Kind is the discriminant of a SceneObject.
type Kind int

const (
	KindPrimitive   Kind = iota // parametric primitive shape
	KindBoolean                 // union/subtract/intersect of other objects
	KindSketch                  // 2D point list on a work plane
	KindGenerated3D             // extrude/revolve output
)

var kindNames = map[Kind]string{
	KindPrimitive:   "primitive",
	KindBoolean:     "boolean",
	KindSketch:      "sketch",
	KindGenerated3D: "generated3D",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind converts a kind name back into a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown object kind %q", s)
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ---------------------------------------------------------------------------
// Geometry
// ---------------------------------------------------------------------------

// GeometryType names a concrete shape. Sketches additionally use circle and
// polyline.
type GeometryType string

const (
	GeometryBox      GeometryType = "box"
	GeometrySphere   GeometryType = "sphere"
	GeometryCylinder GeometryType = "cylinder"
	GeometryPlane    GeometryType = "plane"
	GeometryCone     GeometryType = "cone"
	GeometryTorus    GeometryType = "torus"
	GeometryCircle   GeometryType = "circle"
	GeometryPolyline GeometryType = "polyline"
)

// SolidGeometryTypes lists the shapes a primitive or generated object may use.
var SolidGeometryTypes = []GeometryType{
	GeometryBox, GeometrySphere, GeometryCylinder, GeometryPlane, GeometryCone, GeometryTorus,
}

// IsSolid reports whether g is valid for primitive and generated3D objects.
func (g GeometryType) IsSolid() bool {
	for _, s := range SolidGeometryTypes {
		if g == s {
			return true
		}
	}
	return false
}

// argArity is the minimum number of geometryArgs each shape needs to be
// interpreted. Extra trailing args (segments, theta ranges) are optional.
var argArity = map[GeometryType]int{
	GeometryBox:      3, // width, height, depth
	GeometrySphere:   1, // radius, widthSegments, heightSegments
	GeometryCylinder: 3, // radiusTop, radiusBottom, height, radialSegments, ...
	GeometryPlane:    2, // width, height
	GeometryCone:     2, // radius, height, radialSegments
	GeometryTorus:    2, // radius, tube, radialSegments, tubularSegments, arc
}

// MinArgs returns the minimum geometryArgs length for g, or 0 if unknown.
func (g GeometryType) MinArgs() int {
	return argArity[g]
}

// DefaultGeometryArgs returns the default parameter list for a shape.
func DefaultGeometryArgs(g GeometryType) []float64 {
	switch g {
	case GeometryBox:
		return []float64{1, 1, 1}
	case GeometrySphere:
		return []float64{0.5, 32, 32}
	case GeometryCylinder:
		return []float64{0.5, 0.5, 1, 32}
	case GeometryPlane:
		return []float64{1, 1}
	case GeometryCone:
		return []float64{0.5, 1, 32}
	case GeometryTorus:
		return []float64{0.5, 0.2, 16, 32}
	case GeometryCircle:
		return []float64{0.5, 32}
	default:
		return nil
	}
}

// Operation is the boolean operation recorded on a boolean object.
type Operation string

const (
	OpUnion     Operation = "union"
	OpSubtract  Operation = "subtract"
	OpIntersect Operation = "intersect"
)

// Valid reports whether op is one of the three supported operations.
func (op Operation) Valid() bool {
	return op == OpUnion || op == OpSubtract || op == OpIntersect
}

// ---------------------------------------------------------------------------
// Material
// ---------------------------------------------------------------------------

const (
	DefaultColor             = "#808080"
	DefaultMetalness         = 0.1
	DefaultRoughness         = 0.8
	DefaultOpacity           = 1.0
	DefaultEmissive          = "#000000"
	DefaultEmissiveIntensity = 0.0
	DefaultAngle             = 0.1
)

// Material holds the standard-material parameters of an object.
type Material struct {
	Color             string  `json:"color"`
	Metalness         float64 `json:"metalness"`
	Roughness         float64 `json:"roughness"`
	Opacity           float64 `json:"opacity"`
	Emissive          string  `json:"emissive"`
	EmissiveIntensity float64 `json:"emissiveIntensity"`
}

// DefaultMaterial returns the documented default material.
func DefaultMaterial() Material {
	return Material{
		Color:             DefaultColor,
		Metalness:         DefaultMetalness,
		Roughness:         DefaultRoughness,
		Opacity:           DefaultOpacity,
		Emissive:          DefaultEmissive,
		EmissiveIntensity: DefaultEmissiveIntensity,
	}
}

// UnmarshalJSON decodes a material on top of the defaults, so fields absent
// from the input keep their documented default.
func (m *Material) UnmarshalJSON(b []byte) error {
	type plain Material
	p := plain(DefaultMaterial())
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = Material(p).Normalize()
	return nil
}

// Normalize fills defaults and clamps ranges. A zero Material becomes the
// default material; otherwise only empty colours are filled in.
func (m Material) Normalize() Material {
	if m == (Material{}) {
		return DefaultMaterial()
	}
	if m.Color == "" {
		m.Color = DefaultColor
	}
	if m.Emissive == "" {
		m.Emissive = DefaultEmissive
	}
	m.Metalness = clamp01(m.Metalness)
	m.Roughness = clamp01(m.Roughness)
	m.Opacity = clamp01(m.Opacity)
	if m.EmissiveIntensity < 0 {
		m.EmissiveIntensity = 0
	}
	return m
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ---------------------------------------------------------------------------
// Sketch payload
// ---------------------------------------------------------------------------

// Bounds is the axis-aligned extent of a sketch in world space.
type Bounds struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Depth   float64 `json:"depth"`
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	CenterZ float64 `json:"centerZ"`
}

// Center returns the bounds centre as a vector.
func (b Bounds) Center() Vec3 {
	return Vec3{b.CenterX, b.CenterY, b.CenterZ}
}

// SketchData is the payload of a sketch object.
type SketchData struct {
	Plane  string `json:"plane,omitempty"`
	Points []Vec3 `json:"points"`
	Bounds Bounds `json:"bounds"`
}

// ---------------------------------------------------------------------------
// SceneObject
// ---------------------------------------------------------------------------

// SceneObject is a single entity in the scene. Which fields are meaningful
// depends on Kind: Operation and SourceObjectIDs only for booleans,
// SketchData only for sketches, GeometryType/GeometryArgs for primitives and
// generated solids.
type SceneObject struct {
	ID              ObjectID     `json:"id"`
	Name            string       `json:"name,omitempty"`
	Kind            Kind         `json:"type"`
	GeometryType    GeometryType `json:"geometryType,omitempty"`
	GeometryArgs    []float64    `json:"geometryArgs,omitempty"`
	Operation       Operation    `json:"operation,omitempty"`
	SourceObjectIDs []ObjectID   `json:"sourceObjectIds,omitempty"`
	Position        Vec3         `json:"position"`
	Rotation        Vec3         `json:"rotation"`
	Scale           Vec3         `json:"scale"`
	Material        Material     `json:"material"`
	Visible         bool         `json:"visible"`
	Locked          bool         `json:"locked"`
	LayerID         string       `json:"layerId,omitempty"`
	GroupID         string       `json:"groupId,omitempty"`
	SketchData      *SketchData  `json:"sketchData,omitempty"`
	Angle           float64      `json:"angle,omitempty"`
}

// ShapeAngle returns the boxel displacement factor, defaulting to 0.1 when
// unset or out of (0,1).
func (o *SceneObject) ShapeAngle() float64 {
	if o.Angle <= 0 || o.Angle >= 1 {
		return DefaultAngle
	}
	return o.Angle
}

// Clone returns a deep copy of the object.
func (o SceneObject) Clone() SceneObject {
	c := o
	c.GeometryArgs = append([]float64(nil), o.GeometryArgs...)
	c.SourceObjectIDs = append([]ObjectID(nil), o.SourceObjectIDs...)
	if o.SketchData != nil {
		sd := *o.SketchData
		sd.Points = append([]Vec3(nil), o.SketchData.Points...)
		c.SketchData = &sd
	}
	return c
}

// ObjectPatch is a shallow partial update for UpdateObject. Nil fields are
// left untouched; non-nil fields replace the object's value.
type ObjectPatch struct {
	Name            *string       `json:"name,omitempty"`
	GeometryType    *GeometryType `json:"geometryType,omitempty"`
	GeometryArgs    []float64     `json:"geometryArgs,omitempty"`
	Operation       *Operation    `json:"operation,omitempty"`
	SourceObjectIDs []ObjectID    `json:"sourceObjectIds,omitempty"`
	Position        *Vec3         `json:"position,omitempty"`
	Rotation        *Vec3         `json:"rotation,omitempty"`
	Scale           *Vec3         `json:"scale,omitempty"`
	Material        *Material     `json:"material,omitempty"`
	Visible         *bool         `json:"visible,omitempty"`
	Locked          *bool         `json:"locked,omitempty"`
	LayerID         *string       `json:"layerId,omitempty"`
	GroupID         *string       `json:"groupId,omitempty"`
	SketchData      *SketchData   `json:"sketchData,omitempty"`
	Angle           *float64      `json:"angle,omitempty"`
}

// apply merges the patch into o.
func (p ObjectPatch) apply(o *SceneObject) {
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.GeometryType != nil {
		o.GeometryType = *p.GeometryType
	}
	if p.GeometryArgs != nil {
		o.GeometryArgs = append([]float64(nil), p.GeometryArgs...)
	}
	if p.Operation != nil {
		o.Operation = *p.Operation
	}
	if p.SourceObjectIDs != nil {
		o.SourceObjectIDs = append([]ObjectID(nil), p.SourceObjectIDs...)
	}
	if p.Position != nil {
		o.Position = *p.Position
	}
	if p.Rotation != nil {
		o.Rotation = *p.Rotation
	}
	if p.Scale != nil {
		o.Scale = *p.Scale
	}
	if p.Material != nil {
		o.Material = p.Material.Normalize()
	}
	if p.Visible != nil {
		o.Visible = *p.Visible
	}
	if p.Locked != nil {
		o.Locked = *p.Locked
	}
	if p.LayerID != nil {
		o.LayerID = *p.LayerID
	}
	if p.GroupID != nil {
		o.GroupID = *p.GroupID
	}
	if p.SketchData != nil {
		sd := *p.SketchData
		sd.Points = append([]Vec3(nil), p.SketchData.Points...)
		o.SketchData = &sd
	}
	if p.Angle != nil {
		o.Angle = *p.Angle
	}
}

// ---------------------------------------------------------------------------
// Layers, groups, aggregate
// ---------------------------------------------------------------------------

// DefaultLayerID is the id of the layer that always exists initially.
const DefaultLayerID = "default"

// Layer is a named visibility/lock bucket for objects.
type Layer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Locked  bool   `json:"locked"`
	Color   string `json:"color"`
}

// Group is an optional named collection of objects.
type Group struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ObjectIDs []ObjectID `json:"objectIds"`
	Visible   bool       `json:"visible"`
}

// ViewMode selects the 2D sketching or 3D modeling view.
type ViewMode string

const (
	View2D ViewMode = "2d"
	View3D ViewMode = "3d"
)

// TransformMode selects the active gizmo.
type TransformMode string

const (
	TransformTranslate TransformMode = "translate"
	TransformRotate    TransformMode = "rotate"
	TransformScale     TransformMode = "scale"
)

// State is the aggregate root of the scene.
type State struct {
	Objects          []SceneObject `json:"objects"`
	SelectedIDs      []ObjectID    `json:"selectedIds"`
	SelectedObjectID *ObjectID     `json:"selectedObjectId"`
	Layers           []Layer       `json:"layers"`
	Groups           []Group       `json:"groups"`
	ViewMode         ViewMode      `json:"viewMode"`
	TransformMode    TransformMode `json:"transformMode"`
	SnapToGrid       bool          `json:"snapToGrid"`
	GridSize         float64       `json:"gridSize"`
	ShowGrid         bool          `json:"showGrid"`
}

// NewState returns the initial scene: no objects, a single default layer.
func NewState() State {
	return State{
		Objects:     []SceneObject{},
		SelectedIDs: []ObjectID{},
		Layers: []Layer{{
			ID:      DefaultLayerID,
			Name:    "Default",
			Visible: true,
			Color:   "#ffffff",
		}},
		Groups:        []Group{},
		ViewMode:      View3D,
		TransformMode: TransformTranslate,
		GridSize:      1,
		ShowGrid:      true,
	}
}

// Object returns a pointer to the object with the given id, or nil.
func (s *State) Object(id ObjectID) *SceneObject {
	for i := range s.Objects {
		if s.Objects[i].ID == id {
			return &s.Objects[i]
		}
	}
	return nil
}

// Layer returns the layer with the given id, or nil.
func (s *State) Layer(id string) *Layer {
	for i := range s.Layers {
		if s.Layers[i].ID == id {
			return &s.Layers[i]
		}
	}
	return nil
}

// Group returns the group with the given id, or nil.
func (s *State) Group(id string) *Group {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return &s.Groups[i]
		}
	}
	return nil
}

// IsVisible reports the effective visibility of o: the object, its layer and
// its group (if any) must all be visible. Unknown layers and groups are
// treated as visible.
func (s *State) IsVisible(o *SceneObject) bool {
	if !o.Visible {
		return false
	}
	if l := s.Layer(o.LayerID); l != nil && !l.Visible {
		return false
	}
	if o.GroupID != "" {
		if g := s.Group(o.GroupID); g != nil && !g.Visible {
			return false
		}
	}
	return true
}
