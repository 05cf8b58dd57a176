// Package csg implements boolean objects: creation from existing scene
// objects, dissolving them again, and resolving a boolean into the concrete
// geometry tree a renderer draws. Booleans are evaluated on demand from their
// sources and never baked into a mesh.
package csg

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/chazu/boxel/pkg/scene"
)

var (
	// ErrTooFewSources is returned when a boolean would have fewer than two
	// distinct sources.
	ErrTooFewSources = errors.New("boolean needs at least 2 sources")
	// ErrUnknownSource is returned when a source id does not exist.
	ErrUnknownSource = errors.New("unknown source object")
	// ErrInvalidOperation is returned for operations other than
	// union/subtract/intersect.
	ErrInvalidOperation = errors.New("invalid boolean operation")
)

// NewBoolean builds (but does not store) a boolean object over sources, in
// order. When pos is nil the position is the mean of the source positions.
func NewBoolean(op scene.Operation, sources []scene.SceneObject, pos *scene.Vec3) (scene.SceneObject, error) {
	if !op.Valid() {
		return scene.SceneObject{}, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}
	if len(sources) < 2 {
		return scene.SceneObject{}, fmt.Errorf("%w: got %d", ErrTooFewSources, len(sources))
	}

	ids := make([]scene.ObjectID, len(sources))
	var sum scene.Vec3
	for i, s := range sources {
		ids[i] = s.ID
		sum = sum.Add(s.Position)
	}
	if len(lo.Uniq(ids)) != len(ids) {
		return scene.SceneObject{}, fmt.Errorf("%w: duplicate source ids", ErrTooFewSources)
	}

	position := sum
	for i := range position {
		position[i] /= float64(len(sources))
	}
	if pos != nil {
		position = *pos
	}

	base := sources[0]
	return scene.SceneObject{
		ID:              scene.NewObjectID(scene.KindBoolean),
		Name:            string(op),
		Kind:            scene.KindBoolean,
		Operation:       op,
		SourceObjectIDs: ids,
		Position:        position,
		Scale:           scene.Vec3{1, 1, 1},
		Material:        base.Material,
		Visible:         true,
		LayerID:         base.LayerID,
	}, nil
}

// CreateBoolean creates a boolean over ids in store and hides the sources.
// The sources are never deleted. Lookup, insertion and hiding happen as one
// store mutation.
func CreateBoolean(store *scene.Store, op scene.Operation, ids []scene.ObjectID, pos *scene.Vec3) (scene.SceneObject, error) {
	var (
		created scene.SceneObject
		err     error
	)
	store.Batch(func(st *scene.State) bool {
		sources := make([]scene.SceneObject, 0, len(ids))
		for _, id := range ids {
			o := st.Object(id)
			if o == nil {
				err = fmt.Errorf("%w: %s", ErrUnknownSource, id)
				return false
			}
			sources = append(sources, *o)
		}
		created, err = NewBoolean(op, sources, pos)
		if err != nil {
			return false
		}
		for _, id := range ids {
			st.Object(id).Visible = false
		}
		st.Objects = append(st.Objects, created)
		return true
	})
	if err != nil {
		return scene.SceneObject{}, err
	}
	return created, nil
}

// Dissolve deletes the boolean with id and makes its surviving sources
// visible again. It reports whether a boolean was removed.
func Dissolve(store *scene.Store, id scene.ObjectID) bool {
	removed := false
	store.Batch(func(st *scene.State) bool {
		b := st.Object(id)
		if b == nil || b.Kind != scene.KindBoolean {
			return false
		}
		sources := b.SourceObjectIDs
		st.Objects = lo.Filter(st.Objects, func(o scene.SceneObject, _ int) bool { return o.ID != id })
		for _, src := range sources {
			if o := st.Object(src); o != nil {
				o.Visible = true
			}
		}
		st.SelectedIDs = lo.Without(st.SelectedIDs, id)
		removed = true
		return true
	})
	return removed
}
