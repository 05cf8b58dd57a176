package scene

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewObjectID returns a fresh id of the form "<kind>-<unixmillis>-<rand>".
// The timestamp keeps ids roughly creation-ordered; the random suffix makes
// them unique when several objects are created in the same millisecond.
func NewObjectID(k Kind) ObjectID {
	return ObjectID(fmt.Sprintf("%s-%d-%s", k, time.Now().UnixMilli(), shortUUID()))
}

// NewLayerID returns a fresh layer id.
func NewLayerID() string {
	return "layer-" + shortUUID()
}

// NewGroupID returns a fresh group id.
func NewGroupID() string {
	return "group-" + shortUUID()
}

func shortUUID() string {
	return uuid.NewString()[:8]
}

// NewPrimitive returns a visible primitive with default args, transform and
// material. The object is not added to any store.
func NewPrimitive(g GeometryType) SceneObject {
	return SceneObject{
		ID:           NewObjectID(KindPrimitive),
		Kind:         KindPrimitive,
		GeometryType: g,
		GeometryArgs: DefaultGeometryArgs(g),
		Scale:        Vec3{1, 1, 1},
		Material:     DefaultMaterial(),
		Visible:      true,
		LayerID:      DefaultLayerID,
	}
}
