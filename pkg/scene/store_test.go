package scene

import (
	"encoding/json"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func addBox(t *testing.T, s *Store) ObjectID {
	t.Helper()
	o := NewPrimitive(GeometryBox)
	s.AddObject(o)
	return o.ID
}

// checkSelectionInvariant asserts selectedObjectId is set iff exactly one id
// is selected, and that every selected id exists.
func checkSelectionInvariant(t *testing.T, st State) {
	t.Helper()
	if len(st.SelectedIDs) == 1 {
		require.NotNil(t, st.SelectedObjectID)
		assert.Equal(t, st.SelectedIDs[0], *st.SelectedObjectID)
	} else {
		assert.Nil(t, st.SelectedObjectID)
	}
	for _, id := range st.SelectedIDs {
		assert.NotNil(t, st.Object(id), "selected id %s must exist", id)
	}
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

func TestAddObjectAssignsDefaultLayer(t *testing.T) {
	s := NewStore()
	o := NewPrimitive(GeometrySphere)
	o.LayerID = ""
	s.AddObject(o)

	got, ok := s.Object(o.ID)
	require.True(t, ok)
	assert.Equal(t, DefaultLayerID, got.LayerID)
	assert.Equal(t, DefaultMaterial(), got.Material)
}

func TestAddObjectKeepsExplicitLayer(t *testing.T) {
	s := NewStore()
	l := s.AddLayer("parts", "")
	o := NewPrimitive(GeometryBox)
	o.LayerID = l.ID
	s.AddObject(o)

	got, _ := s.Object(o.ID)
	assert.Equal(t, l.ID, got.LayerID)
}

func TestAddObjectRenamesTakenID(t *testing.T) {
	s := NewStore()
	o := NewPrimitive(GeometryBox)
	s.AddObject(o)
	s.AddObject(o)

	objs := s.Objects()
	require.Len(t, objs, 2)
	assert.Equal(t, o.ID, objs[0].ID)
	assert.NotEqual(t, objs[0].ID, objs[1].ID)

	s.DeleteObject(o.ID)
	rest := s.Objects()
	require.Len(t, rest, 1)
	assert.Equal(t, objs[1].ID, rest[0].ID)
}

func TestAddObjectsRenamesDuplicatesWithinBatch(t *testing.T) {
	s := NewStore()
	o := NewPrimitive(GeometrySphere)
	s.AddObjects(o, o, o)

	seen := map[ObjectID]bool{}
	for _, got := range s.Objects() {
		assert.False(t, seen[got.ID], "id %s repeated", got.ID)
		seen[got.ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestUpdateObjectShallowMerge(t *testing.T) {
	s := NewStore()
	id := addBox(t, s)

	pos := Vec3{1, 2, 3}
	s.UpdateObject(id, ObjectPatch{Position: &pos})

	got, _ := s.Object(id)
	assert.Equal(t, pos, got.Position)
	assert.Equal(t, Vec3{1, 1, 1}, got.Scale, "untouched fields survive")
	assert.Equal(t, []float64{1, 1, 1}, got.GeometryArgs)
}

func TestObjectPatchFromJSON(t *testing.T) {
	s := NewStore()
	id := addBox(t, s)
	l := s.AddLayer("parts", "")

	var patch ObjectPatch
	raw := `{"position":[1,2,3],"layerId":"` + l.ID + `","geometryArgs":[2,3,4],"visible":false}`
	require.NoError(t, json.Unmarshal([]byte(raw), &patch))
	require.NotNil(t, patch.Position)
	require.NotNil(t, patch.LayerID)
	require.NotNil(t, patch.Visible)
	assert.Nil(t, patch.Name)

	s.UpdateObject(id, patch)
	got, _ := s.Object(id)
	assert.Equal(t, Vec3{1, 2, 3}, got.Position)
	assert.Equal(t, l.ID, got.LayerID)
	assert.Equal(t, []float64{2, 3, 4}, got.GeometryArgs)
	assert.False(t, got.Visible)
	assert.Equal(t, Vec3{1, 1, 1}, got.Scale)

	out, err := json.Marshal(ObjectPatch{Position: patch.Position})
	require.NoError(t, err)
	assert.JSONEq(t, `{"position":[1,2,3]}`, string(out))
}

func TestUpdateObjectUnknownIDIsNoop(t *testing.T) {
	s := NewStore()
	addBox(t, s)
	before := s.State()

	vis := false
	s.UpdateObject("nope", ObjectPatch{Visible: &vis})

	assert.Equal(t, before, s.State())
	assert.Equal(t, 1, s.history.Len())
}

func TestDeleteObjectPrunesSelection(t *testing.T) {
	s := NewStore()
	a := addBox(t, s)
	b := addBox(t, s)
	s.SelectObjects([]ObjectID{a, b})

	s.DeleteObject(a)

	ids, single := s.Selection()
	assert.Equal(t, []ObjectID{b}, ids)
	require.NotNil(t, single)
	assert.Equal(t, b, *single)
}

func TestDeleteObjectClearsSingleSelection(t *testing.T) {
	s := NewStore()
	a := addBox(t, s)
	s.SelectObjects([]ObjectID{a})
	s.DeleteObject(a)

	ids, single := s.Selection()
	assert.Empty(t, ids)
	assert.Nil(t, single)
}

func TestDeleteUnknownLeavesStateUnchanged(t *testing.T) {
	s := NewStore()
	a := addBox(t, s)
	s.SelectObjects([]ObjectID{a})

	before, err := json.Marshal(s.State())
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.DeleteObject("missing") })
	assert.NotPanics(t, func() { s.DeleteObject("missing") })

	after, err := json.Marshal(s.State())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestDeleteDoesNotCascadeToBooleans(t *testing.T) {
	s := NewStore()
	a := addBox(t, s)
	b := addBox(t, s)
	boolean := SceneObject{
		ID:              "bool-1",
		Kind:            KindBoolean,
		Operation:       OpUnion,
		SourceObjectIDs: []ObjectID{a, b},
		Visible:         true,
	}
	s.AddObject(boolean)

	s.DeleteObject(a)

	got, ok := s.Object("bool-1")
	require.True(t, ok)
	assert.Equal(t, []ObjectID{a, b}, got.SourceObjectIDs, "dangling source is kept")
}

func TestDuplicateObjects(t *testing.T) {
	s := NewStore()
	a := addBox(t, s)

	ids := s.DuplicateObjects([]ObjectID{a, "missing"}, Vec3{1, 0, 0})
	require.Len(t, ids, 1)
	assert.NotEqual(t, a, ids[0])

	c, ok := s.Object(ids[0])
	require.True(t, ok)
	assert.Equal(t, Vec3{1, 0, 0}, c.Position)

	sel, _ := s.Selection()
	assert.Equal(t, ids, sel)
}

func TestReplaceObjectsFixesUnknownLayers(t *testing.T) {
	s := NewStore()
	a := addBox(t, s)
	s.SelectObjects([]ObjectID{a})

	o := NewPrimitive(GeometryCone)
	o.LayerID = "ghost"
	s.ReplaceObjects([]SceneObject{o})

	objs := s.Objects()
	require.Len(t, objs, 1)
	assert.Equal(t, DefaultLayerID, objs[0].LayerID)
	sel, _ := s.Selection()
	assert.Empty(t, sel)
}

func TestReplaceObjectsRenamesDuplicates(t *testing.T) {
	s := NewStore()
	a := NewPrimitive(GeometryBox)
	b := NewPrimitive(GeometryCylinder)
	b.ID = a.ID
	s.ReplaceObjects([]SceneObject{a, b})

	objs := s.Objects()
	require.Len(t, objs, 2)
	assert.Equal(t, a.ID, objs[0].ID)
	assert.NotEqual(t, a.ID, objs[1].ID)
	assert.Empty(t, Validate(s.State()))
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

func TestSelectObjectsDerivedField(t *testing.T) {
	s := NewStore()
	a := addBox(t, s)
	b := addBox(t, s)

	s.SelectObjects([]ObjectID{a})
	checkSelectionInvariant(t, s.State())

	s.SelectObjects([]ObjectID{a, b})
	st := s.State()
	checkSelectionInvariant(t, st)
	assert.Nil(t, st.SelectedObjectID)

	s.SelectObjects([]ObjectID{a, "ghost", a})
	st = s.State()
	assert.Equal(t, []ObjectID{a}, st.SelectedIDs)
	checkSelectionInvariant(t, st)
}

func TestToggleObjectSelection(t *testing.T) {
	s := NewStore()
	a := addBox(t, s)
	b := addBox(t, s)

	s.ToggleObjectSelection(a)
	s.ToggleObjectSelection(b)
	ids, single := s.Selection()
	assert.Equal(t, []ObjectID{a, b}, ids)
	assert.Nil(t, single)

	s.ToggleObjectSelection(a)
	ids, single = s.Selection()
	assert.Equal(t, []ObjectID{b}, ids)
	require.NotNil(t, single)
	assert.Equal(t, b, *single)

	s.ToggleObjectSelection("ghost")
	ids, _ = s.Selection()
	assert.Equal(t, []ObjectID{b}, ids)
}

func TestClearSelection(t *testing.T) {
	s := NewStore()
	a := addBox(t, s)
	s.SelectObjects([]ObjectID{a})
	s.ClearSelection()
	ids, single := s.Selection()
	assert.Empty(t, ids)
	assert.Nil(t, single)
}

func TestSelectionInvariantRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewStore()
	var ids []ObjectID
	for i := 0; i < 6; i++ {
		ids = append(ids, addBox(t, s))
	}
	pool := append(append([]ObjectID(nil), ids...), "ghost")

	for step := 0; step < 500; step++ {
		id := pool[rng.Intn(len(pool))]
		switch rng.Intn(4) {
		case 0:
			n := rng.Intn(4)
			pick := make([]ObjectID, n)
			for i := range pick {
				pick[i] = pool[rng.Intn(len(pool))]
			}
			s.SelectObjects(pick)
		case 1:
			s.ToggleObjectSelection(id)
		case 2:
			s.DeleteObject(id)
		case 3:
			s.ClearSelection()
		}
		checkSelectionInvariant(t, s.State())
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestConcurrentUpdatesDoNotInterleave(t *testing.T) {
	s := NewStore()
	id := addBox(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := float64(i)
			p := Vec3{v, v, v}
			s.UpdateObject(id, ObjectPatch{Position: &p, Scale: &p})
		}(i)
	}
	wg.Wait()

	got, _ := s.Object(id)
	assert.Equal(t, got.Position, got.Scale, "position and scale come from the same patch")
}

// ---------------------------------------------------------------------------
// Observers and history
// ---------------------------------------------------------------------------

func TestSubscribeNotifiesOnEffectiveMutation(t *testing.T) {
	s := NewStore()
	var calls int
	cancel := s.Subscribe(func(State) { calls++ })

	addBox(t, s)
	s.DeleteObject("ghost")
	assert.Equal(t, 1, calls)

	cancel()
	addBox(t, s)
	assert.Equal(t, 1, calls)
}

func TestUndoRedo(t *testing.T) {
	s := NewStore()
	assert.False(t, s.CanUndo())

	a := addBox(t, s)
	pos := Vec3{5, 0, 0}
	s.UpdateObject(a, ObjectPatch{Position: &pos})

	require.True(t, s.Undo())
	got, _ := s.Object(a)
	assert.Equal(t, Vec3{}, got.Position)

	require.True(t, s.Undo())
	assert.Empty(t, s.Objects())
	assert.False(t, s.Undo())

	require.True(t, s.Redo())
	require.True(t, s.Redo())
	got, _ = s.Object(a)
	assert.Equal(t, pos, got.Position)
	assert.False(t, s.CanRedo())
}

func TestHistoryDepthIsBounded(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 10; i++ {
		h.Push(NewState())
	}
	assert.Equal(t, 3, h.Len())
}

// ---------------------------------------------------------------------------
// View options
// ---------------------------------------------------------------------------

func TestViewOptions(t *testing.T) {
	s := NewStore()
	s.SetViewMode(View2D)
	s.SetTransformMode(TransformScale)
	s.SetTransformMode("bogus")
	s.SetGridSize(0.5)
	s.SetGridSize(-1)
	s.SetSnapToGrid(true)
	s.SetShowGrid(false)

	st := s.State()
	assert.Equal(t, View2D, st.ViewMode)
	assert.Equal(t, TransformScale, st.TransformMode)
	assert.Equal(t, 0.5, st.GridSize)
	assert.True(t, st.SnapToGrid)
	assert.False(t, st.ShowGrid)

	assert.Equal(t, Vec3{1, -0.5, 2}, s.Snap(Vec3{1.1, -0.6, 1.9}))
}
