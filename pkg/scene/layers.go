package scene

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// LayerPatch is a partial layer update.
type LayerPatch struct {
	Name    *string
	Visible *bool
	Locked  *bool
	Color   *string
}

// AddLayer creates a visible, unlocked layer and returns it.
func (s *Store) AddLayer(name, color string) Layer {
	l := Layer{ID: NewLayerID(), Name: name, Visible: true, Color: color}
	if l.Color == "" {
		l.Color = "#ffffff"
	}
	s.mutate(func(st *State) bool {
		st.Layers = append(st.Layers, l)
		return true
	})
	return l
}

// Layers returns a copy of the layer list.
func (s *Store) Layers() []Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Layer(nil), s.state.Layers...)
}

// UpdateLayer applies patch to the layer with id.
func (s *Store) UpdateLayer(id string, patch LayerPatch) error {
	var err error
	s.mutate(func(st *State) bool {
		l := st.Layer(id)
		if l == nil {
			err = fmt.Errorf("update layer %q: %w", id, ErrLayerNotFound)
			return false
		}
		if patch.Name != nil {
			l.Name = *patch.Name
		}
		if patch.Visible != nil {
			l.Visible = *patch.Visible
		}
		if patch.Locked != nil {
			l.Locked = *patch.Locked
		}
		if patch.Color != nil {
			l.Color = *patch.Color
		}
		return true
	})
	return err
}

// fallbackLayer picks the layer objects are moved to when their layer goes
// away: the default layer, else the first layer other than except.
func fallbackLayer(st *State, except string) string {
	if except != DefaultLayerID && st.Layer(DefaultLayerID) != nil {
		return DefaultLayerID
	}
	for _, l := range st.Layers {
		if l.ID != except {
			return l.ID
		}
	}
	return DefaultLayerID
}

// DeleteLayer removes a layer. The last layer can never be deleted. Objects on
// the removed layer are reassigned to the fallback layer.
func (s *Store) DeleteLayer(id string) error {
	var err error
	s.mutate(func(st *State) bool {
		if st.Layer(id) == nil {
			err = fmt.Errorf("delete layer %q: %w", id, ErrLayerNotFound)
			return false
		}
		if len(st.Layers) <= 1 {
			err = ErrLastLayer
			return false
		}
		target := fallbackLayer(st, id)
		st.Layers = lo.Filter(st.Layers, func(l Layer, _ int) bool { return l.ID != id })
		for i := range st.Objects {
			if st.Objects[i].LayerID == id {
				st.Objects[i].LayerID = target
			}
		}
		return true
	})
	return err
}

// MoveToLayer assigns the given objects to layerID.
func (s *Store) MoveToLayer(ids []ObjectID, layerID string) error {
	var err error
	s.mutate(func(st *State) bool {
		if st.Layer(layerID) == nil {
			err = fmt.Errorf("move to layer %q: %w", layerID, ErrLayerNotFound)
			return false
		}
		changed := false
		for _, id := range ids {
			if o := st.Object(id); o != nil && o.LayerID != layerID {
				o.LayerID = layerID
				changed = true
			}
		}
		return changed
	})
	return err
}

// ---------------------------------------------------------------------------
// Groups
// ---------------------------------------------------------------------------

// CreateGroup groups the existing objects among ids and returns the group.
// Objects already in another group are moved.
func (s *Store) CreateGroup(name string, ids []ObjectID) Group {
	g := Group{ID: NewGroupID(), Name: name, Visible: true, ObjectIDs: []ObjectID{}}
	s.mutate(func(st *State) bool {
		for _, id := range lo.Uniq(ids) {
			o := st.Object(id)
			if o == nil {
				continue
			}
			if o.GroupID != "" {
				if old := st.Group(o.GroupID); old != nil {
					old.ObjectIDs = lo.Without(old.ObjectIDs, id)
				}
			}
			o.GroupID = g.ID
			g.ObjectIDs = append(g.ObjectIDs, id)
		}
		st.Groups = append(st.Groups, g)
		return true
	})
	return g
}

// Groups returns a copy of the group list.
func (s *Store) Groups() []Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Group, len(s.state.Groups))
	for i, g := range s.state.Groups {
		g.ObjectIDs = append([]ObjectID(nil), g.ObjectIDs...)
		out[i] = g
	}
	return out
}

// Ungroup removes the group and clears groupId on its members.
func (s *Store) Ungroup(id string) {
	s.mutate(func(st *State) bool {
		if st.Group(id) == nil {
			return false
		}
		st.Groups = lo.Filter(st.Groups, func(g Group, _ int) bool { return g.ID != id })
		for i := range st.Objects {
			if st.Objects[i].GroupID == id {
				st.Objects[i].GroupID = ""
			}
		}
		return true
	})
}

// SetGroupVisible shows or hides a whole group.
func (s *Store) SetGroupVisible(id string, visible bool) {
	s.mutate(func(st *State) bool {
		g := st.Group(id)
		if g == nil || g.Visible == visible {
			return false
		}
		g.Visible = visible
		return true
	})
}

// SnapVec rounds each component of v to the nearest multiple of size.
func SnapVec(v Vec3, size float64) Vec3 {
	for i := range v {
		v[i] = math.Round(v[i]/size) * size
	}
	return v
}
