package csg

import "github.com/chazu/boxel/pkg/scene"

// MeshSpec is the concrete geometry a renderer draws for one object. A leaf
// carries a geometry type and args; a boolean node carries an operation and
// its resolved children, base first. Children positions are relative to the
// centroid of the sources, and the boolean's own position places that
// centroid, so moving a boolean moves its whole result.
type MeshSpec struct {
	ObjectID  scene.ObjectID
	Geometry  scene.GeometryType
	Args      []float64
	Operation scene.Operation
	Children  []*MeshSpec
	Position  scene.Vec3
	Rotation  scene.Vec3
	Scale     scene.Vec3
	Material  scene.Material
}

// IsBoolean reports whether m is a boolean node.
func (m *MeshSpec) IsBoolean() bool {
	return m.Operation != ""
}

// Resolve computes what obj looks like given the whole object list. It
// returns nil when there is nothing to draw: sketches, unsupported shapes, or
// booleans with fewer than two resolvable sources. Dangling and cyclic source
// references resolve to nothing rather than an error.
func Resolve(obj scene.SceneObject, all []scene.SceneObject) *MeshSpec {
	index := make(map[scene.ObjectID]*scene.SceneObject, len(all))
	for i := range all {
		index[all[i].ID] = &all[i]
	}
	return resolve(&obj, index, map[scene.ObjectID]bool{})
}

// ResolveAll resolves every effectively visible object of st, in scene order,
// skipping the ones that draw nothing.
func ResolveAll(st scene.State) []*MeshSpec {
	index := make(map[scene.ObjectID]*scene.SceneObject, len(st.Objects))
	for i := range st.Objects {
		index[st.Objects[i].ID] = &st.Objects[i]
	}
	var out []*MeshSpec
	for i := range st.Objects {
		o := &st.Objects[i]
		if !st.IsVisible(o) {
			continue
		}
		if m := resolve(o, index, map[scene.ObjectID]bool{}); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func resolve(o *scene.SceneObject, index map[scene.ObjectID]*scene.SceneObject, visiting map[scene.ObjectID]bool) *MeshSpec {
	if visiting[o.ID] {
		return nil
	}
	scale := o.Scale
	if scale.IsZero() {
		scale = scene.Vec3{1, 1, 1}
	}
	m := &MeshSpec{
		ObjectID: o.ID,
		Position: o.Position,
		Rotation: o.Rotation,
		Scale:    scale,
		Material: o.Material,
	}

	switch o.Kind {
	case scene.KindPrimitive, scene.KindGenerated3D:
		if !o.GeometryType.IsSolid() {
			return nil
		}
		m.Geometry = o.GeometryType
		m.Args = append([]float64(nil), o.GeometryArgs...)
		if len(m.Args) < o.GeometryType.MinArgs() {
			m.Args = scene.DefaultGeometryArgs(o.GeometryType)
		}
		return m

	case scene.KindBoolean:
		if !o.Operation.Valid() {
			return nil
		}
		visiting[o.ID] = true
		defer delete(visiting, o.ID)

		m.Operation = o.Operation
		for _, id := range o.SourceObjectIDs {
			src, ok := index[id]
			if !ok {
				continue
			}
			child := resolve(src, index, visiting)
			if child == nil {
				continue
			}
			m.Children = append(m.Children, child)
		}
		if len(m.Children) < 2 {
			return nil
		}
		var centroid scene.Vec3
		for _, c := range m.Children {
			centroid = centroid.Add(c.Position)
		}
		for i := range centroid {
			centroid[i] /= float64(len(m.Children))
		}
		for _, c := range m.Children {
			c.Position = c.Position.Add(centroid.Scale(-1))
		}
		return m
	}
	return nil
}
