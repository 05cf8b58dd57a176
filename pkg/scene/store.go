package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/samber/lo"
)

var (
	// ErrLastLayer is returned when deleting the only remaining layer.
	ErrLastLayer = errors.New("cannot delete the last layer")
	// ErrLayerNotFound is returned by layer operations given an unknown id.
	ErrLayerNotFound = errors.New("layer not found")
)

// Listener observes the scene after every effective mutation.
type Listener func(State)

// Store is the single mutable scene aggregate. Every method is atomic with
// respect to the others; the zero value is not usable, use NewStore.
//
// Mutations never fail for unknown object ids: they are silent no-ops, since
// UI callbacks may race with deletion.
type Store struct {
	mu        sync.Mutex
	state     State
	history   *History
	listeners map[int]Listener
	nextSub   int
}

// NewStore returns a store holding NewState().
func NewStore() *Store {
	return NewStoreFrom(NewState())
}

// NewStoreFrom returns a store seeded with a copy of st.
func NewStoreFrom(st State) *Store {
	return &Store{
		state:     cloneState(st),
		history:   NewHistory(DefaultHistoryDepth),
		listeners: make(map[int]Listener),
	}
}

// cloneState deep-copies a State so snapshots never share slices with the
// live aggregate.
func cloneState(st State) State {
	var out State
	if err := copier.CopyWithOption(&out, &st, copier.Option{DeepCopy: true}); err != nil {
		panic(fmt.Sprintf("scene: copy state: %v", err))
	}
	return out
}

// mutate runs fn under the lock. fn reports whether it changed anything; only
// then is the previous state pushed to history and listeners notified.
func (s *Store) mutate(fn func(st *State) bool) {
	s.mu.Lock()
	before := cloneState(s.state)
	changed := fn(&s.state)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.history.Push(before)
	snap := cloneState(s.state)
	listeners := s.listenerList()
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *Store) listenerList() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextSub; i++ {
		if l, ok := s.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Subscribe registers l to be called after each effective mutation. The
// returned function removes the subscription.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Batch runs fn as a single atomic mutation. fn reports whether it changed
// the state; selection consistency is restored afterwards.
func (s *Store) Batch(fn func(st *State) bool) {
	s.mutate(func(st *State) bool {
		if !fn(st) {
			return false
		}
		setSelection(st, st.SelectedIDs)
		return true
	})
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// State returns a deep copy of the current scene.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// Objects returns a copy of the object list.
func (s *Store) Objects() []SceneObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SceneObject, len(s.state.Objects))
	for i, o := range s.state.Objects {
		out[i] = o.Clone()
	}
	return out
}

// Object returns a copy of the object with the given id.
func (s *Store) Object(id ObjectID) (SceneObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o := s.state.Object(id); o != nil {
		return o.Clone(), true
	}
	return SceneObject{}, false
}

// Selection returns the selected ids and the derived single selection.
func (s *Store) Selection() ([]ObjectID, *ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]ObjectID(nil), s.state.SelectedIDs...)
	if s.state.SelectedObjectID == nil {
		return ids, nil
	}
	id := *s.state.SelectedObjectID
	return ids, &id
}

// IsVisible reports the effective visibility of the object with id.
func (s *Store) IsVisible(id ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.state.Object(id)
	return o != nil && s.state.IsVisible(o)
}

// ---------------------------------------------------------------------------
// Object commands
// ---------------------------------------------------------------------------

// AddObject appends obj. An empty or already used id is replaced by a fresh
// one, and an object on a missing layer moves to the fallback layer.
func (s *Store) AddObject(obj SceneObject) {
	s.AddObjects(obj)
}

// AddObjects appends several objects as one mutation.
func (s *Store) AddObjects(objs ...SceneObject) {
	if len(objs) == 0 {
		return
	}
	s.mutate(func(st *State) bool {
		taken := objectIDs(st.Objects)
		for _, obj := range objs {
			st.Objects = append(st.Objects, prepareObject(st, taken, obj))
		}
		return true
	})
}

func objectIDs(objs []SceneObject) map[ObjectID]bool {
	ids := make(map[ObjectID]bool, len(objs))
	for _, o := range objs {
		ids[o.ID] = true
	}
	return ids
}

// prepareObject clones obj for insertion into st. Ids in taken are not
// reused; the id assigned is added to taken.
func prepareObject(st *State, taken map[ObjectID]bool, obj SceneObject) SceneObject {
	o := obj.Clone()
	for o.ID == "" || taken[o.ID] {
		o.ID = NewObjectID(o.Kind)
	}
	taken[o.ID] = true
	if o.LayerID == "" || st.Layer(o.LayerID) == nil {
		o.LayerID = fallbackLayer(st, "")
	}
	o.Material = o.Material.Normalize()
	return o
}

// UpdateObject shallow-merges patch into the object with id. Unknown ids are
// ignored.
func (s *Store) UpdateObject(id ObjectID, patch ObjectPatch) {
	s.mutate(func(st *State) bool {
		o := st.Object(id)
		if o == nil {
			return false
		}
		patch.apply(o)
		return true
	})
}

// DeleteObject removes the object and prunes it from the selection. Booleans
// referencing it keep the dangling id.
func (s *Store) DeleteObject(id ObjectID) {
	s.mutate(func(st *State) bool {
		idx := -1
		for i := range st.Objects {
			if st.Objects[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return false
		}
		st.Objects = append(st.Objects[:idx], st.Objects[idx+1:]...)
		if lo.Contains(st.SelectedIDs, id) {
			setSelection(st, lo.Without(st.SelectedIDs, id))
		}
		return true
	})
}

// ReplaceObjects swaps the whole object list (scene import). Selection is
// cleared; objects on unknown layers are moved to the fallback layer and a
// repeated id is given to its first object only.
func (s *Store) ReplaceObjects(objs []SceneObject) {
	s.mutate(func(st *State) bool {
		next := make([]SceneObject, 0, len(objs))
		taken := map[ObjectID]bool{}
		for _, obj := range objs {
			next = append(next, prepareObject(st, taken, obj))
		}
		st.Objects = next
		setSelection(st, nil)
		return true
	})
}

// DuplicateObjects copies the given objects, offsets the copies and selects
// them. It returns the new ids in input order; unknown ids are skipped.
func (s *Store) DuplicateObjects(ids []ObjectID, offset Vec3) []ObjectID {
	var created []ObjectID
	s.mutate(func(st *State) bool {
		for _, id := range ids {
			src := st.Object(id)
			if src == nil {
				continue
			}
			c := src.Clone()
			c.ID = NewObjectID(c.Kind)
			c.Position = c.Position.Add(offset)
			st.Objects = append(st.Objects, c)
			created = append(created, c.ID)
		}
		if len(created) == 0 {
			return false
		}
		setSelection(st, created)
		return true
	})
	return created
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

// setSelection replaces the selection with the existing, de-duplicated ids
// and recomputes the derived single selection.
func setSelection(st *State, ids []ObjectID) {
	ids = lo.Uniq(lo.Filter(ids, func(id ObjectID, _ int) bool {
		return st.Object(id) != nil
	}))
	if ids == nil {
		ids = []ObjectID{}
	}
	st.SelectedIDs = ids
	if len(ids) == 1 {
		id := ids[0]
		st.SelectedObjectID = &id
	} else {
		st.SelectedObjectID = nil
	}
}

func sameSelection(st *State, ids []ObjectID) bool {
	if len(ids) != len(st.SelectedIDs) {
		return false
	}
	for i := range ids {
		if ids[i] != st.SelectedIDs[i] {
			return false
		}
	}
	return true
}

// SelectObjects replaces the selection. Ids of objects that do not exist are
// dropped.
func (s *Store) SelectObjects(ids []ObjectID) {
	s.mutate(func(st *State) bool {
		prev := append([]ObjectID(nil), st.SelectedIDs...)
		setSelection(st, ids)
		return !sameSelection(st, prev)
	})
}

// ToggleObjectSelection adds id to the selection, or removes it if already
// selected.
func (s *Store) ToggleObjectSelection(id ObjectID) {
	s.mutate(func(st *State) bool {
		if lo.Contains(st.SelectedIDs, id) {
			setSelection(st, lo.Without(st.SelectedIDs, id))
			return true
		}
		if st.Object(id) == nil {
			return false
		}
		setSelection(st, append(append([]ObjectID(nil), st.SelectedIDs...), id))
		return true
	})
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() {
	s.mutate(func(st *State) bool {
		if len(st.SelectedIDs) == 0 && st.SelectedObjectID == nil {
			return false
		}
		setSelection(st, nil)
		return true
	})
}

// ---------------------------------------------------------------------------
// View options
// ---------------------------------------------------------------------------

// SetViewMode switches between 2D and 3D.
func (s *Store) SetViewMode(m ViewMode) {
	if m != View2D && m != View3D {
		return
	}
	s.mutate(func(st *State) bool {
		if st.ViewMode == m {
			return false
		}
		st.ViewMode = m
		return true
	})
}

// SetTransformMode selects the active gizmo.
func (s *Store) SetTransformMode(m TransformMode) {
	if m != TransformTranslate && m != TransformRotate && m != TransformScale {
		return
	}
	s.mutate(func(st *State) bool {
		if st.TransformMode == m {
			return false
		}
		st.TransformMode = m
		return true
	})
}

// SetSnapToGrid toggles grid snapping.
func (s *Store) SetSnapToGrid(on bool) {
	s.mutate(func(st *State) bool {
		if st.SnapToGrid == on {
			return false
		}
		st.SnapToGrid = on
		return true
	})
}

// SetGridSize sets the snapping increment. Non-positive sizes are ignored.
func (s *Store) SetGridSize(size float64) {
	if size <= 0 {
		return
	}
	s.mutate(func(st *State) bool {
		if st.GridSize == size {
			return false
		}
		st.GridSize = size
		return true
	})
}

// SetShowGrid toggles the grid overlay.
func (s *Store) SetShowGrid(on bool) {
	s.mutate(func(st *State) bool {
		if st.ShowGrid == on {
			return false
		}
		st.ShowGrid = on
		return true
	})
}

// Snap rounds v to the grid when snapping is enabled.
func (s *Store) Snap(v Vec3) Vec3 {
	s.mu.Lock()
	on, size := s.state.SnapToGrid, s.state.GridSize
	s.mu.Unlock()
	if !on || size <= 0 {
		return v
	}
	return SnapVec(v, size)
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// Undo restores the state before the last effective mutation.
func (s *Store) Undo() bool {
	return s.travel(s.history.Undo)
}

// Redo re-applies the last undone mutation.
func (s *Store) Redo() bool {
	return s.travel(s.history.Redo)
}

func (s *Store) travel(step func(State) (State, bool)) bool {
	s.mu.Lock()
	next, ok := step(cloneState(s.state))
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.state = next
	snap := cloneState(next)
	listeners := s.listenerList()
	s.mu.Unlock()
	for _, l := range listeners {
		l(snap)
	}
	return true
}

// CanUndo reports whether Undo would do anything.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether Redo would do anything.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}
