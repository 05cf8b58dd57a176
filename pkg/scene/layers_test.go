package scene

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteLastLayerRefused(t *testing.T) {
	s := NewStore()
	err := s.DeleteLayer(DefaultLayerID)
	require.ErrorIs(t, err, ErrLastLayer)
	assert.Len(t, s.Layers(), 1)
}

func TestDeleteLayerReassignsObjects(t *testing.T) {
	s := NewStore()
	l := s.AddLayer("wip", "#ff0000")
	o := NewPrimitive(GeometryBox)
	o.LayerID = l.ID
	s.AddObject(o)

	require.NoError(t, s.DeleteLayer(l.ID))
	got, _ := s.Object(o.ID)
	assert.Equal(t, DefaultLayerID, got.LayerID)
	assert.Len(t, s.Layers(), 1)
}

func TestDeleteDefaultLayerMovesToRemaining(t *testing.T) {
	s := NewStore()
	l := s.AddLayer("other", "")
	id := addBox(t, s)

	require.NoError(t, s.DeleteLayer(DefaultLayerID))
	got, _ := s.Object(id)
	assert.Equal(t, l.ID, got.LayerID)

	assert.ErrorIs(t, s.DeleteLayer(l.ID), ErrLastLayer)
}

func TestAddObjectAfterDefaultLayerDeleted(t *testing.T) {
	s := NewStore()
	l := s.AddLayer("other", "")
	require.NoError(t, s.DeleteLayer(DefaultLayerID))

	o := NewPrimitive(GeometryBox)
	o.LayerID = ""
	s.AddObject(o)
	got, ok := s.Object(o.ID)
	require.True(t, ok)
	assert.Equal(t, l.ID, got.LayerID)

	stray := NewPrimitive(GeometryCone)
	stray.LayerID = DefaultLayerID
	s.AddObject(stray)
	got, _ = s.Object(stray.ID)
	assert.Equal(t, l.ID, got.LayerID)

	assert.Empty(t, Validate(s.State()))
}

func TestDeleteUnknownLayer(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.DeleteLayer("ghost"), ErrLayerNotFound)
}

func TestLayerVisibilityComposition(t *testing.T) {
	s := NewStore()
	id := addBox(t, s)
	assert.True(t, s.IsVisible(id))

	hidden := false
	require.NoError(t, s.UpdateLayer(DefaultLayerID, LayerPatch{Visible: &hidden}))
	assert.False(t, s.IsVisible(id))

	shown := true
	require.NoError(t, s.UpdateLayer(DefaultLayerID, LayerPatch{Visible: &shown}))
	g := s.CreateGroup("g", []ObjectID{id})
	s.SetGroupVisible(g.ID, false)
	assert.False(t, s.IsVisible(id))

	s.SetGroupVisible(g.ID, true)
	s.UpdateObject(id, ObjectPatch{Visible: &hidden})
	assert.False(t, s.IsVisible(id))
	assert.False(t, s.IsVisible("ghost"))
}

func TestMoveToLayer(t *testing.T) {
	s := NewStore()
	l := s.AddLayer("x", "")
	id := addBox(t, s)
	require.NoError(t, s.MoveToLayer([]ObjectID{id, "ghost"}, l.ID))
	got, _ := s.Object(id)
	assert.Equal(t, l.ID, got.LayerID)
	assert.ErrorIs(t, s.MoveToLayer([]ObjectID{id}, "nope"), ErrLayerNotFound)
}

func TestGroups(t *testing.T) {
	s := NewStore()
	a := addBox(t, s)
	b := addBox(t, s)

	g1 := s.CreateGroup("one", []ObjectID{a, b, "ghost"})
	assert.Equal(t, []ObjectID{a, b}, g1.ObjectIDs)

	g2 := s.CreateGroup("two", []ObjectID{b})
	groups := s.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, []ObjectID{a}, groups[0].ObjectIDs, "b moved out of the first group")
	got, _ := s.Object(b)
	assert.Equal(t, g2.ID, got.GroupID)

	s.Ungroup(g1.ID)
	got, _ = s.Object(a)
	assert.Empty(t, got.GroupID)
	assert.Len(t, s.Groups(), 1)
}

func TestMaterialJSONDefaults(t *testing.T) {
	var m Material
	require.NoError(t, json.Unmarshal([]byte(`{"color":"#ff0000","opacity":0.5}`), &m))
	assert.Equal(t, "#ff0000", m.Color)
	assert.Equal(t, 0.5, m.Opacity)
	assert.Equal(t, DefaultRoughness, m.Roughness)
	assert.Equal(t, DefaultMetalness, m.Metalness)
}

func TestKindJSON(t *testing.T) {
	b, err := json.Marshal(KindGenerated3D)
	require.NoError(t, err)
	assert.Equal(t, `"generated3D"`, string(b))

	var k Kind
	require.NoError(t, json.Unmarshal([]byte(`"boolean"`), &k))
	assert.Equal(t, KindBoolean, k)
	assert.Error(t, json.Unmarshal([]byte(`"blob"`), &k))
}

func TestShapeAngleDefault(t *testing.T) {
	o := NewPrimitive(GeometryBox)
	assert.Equal(t, DefaultAngle, o.ShapeAngle())
	o.Angle = 0.3
	assert.Equal(t, 0.3, o.ShapeAngle())
	o.Angle = 1.5
	assert.Equal(t, DefaultAngle, o.ShapeAngle())
}
