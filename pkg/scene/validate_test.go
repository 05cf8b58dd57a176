package scene

import (
	"strings"
	"testing"
)

// hasFinding returns true if errs contains a finding of the given severity
// whose message contains substr.
func hasFinding(errs []ValidationError, sev ValidationSeverity, substr string) bool {
	for _, e := range errs {
		if e.Severity == sev && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func buildValidScene() State {
	st := NewState()
	a := NewPrimitive(GeometryBox)
	a.ID = "a"
	b := NewPrimitive(GeometrySphere)
	b.ID = "b"
	b.Visible = false
	u := SceneObject{
		ID:              "u",
		Kind:            KindBoolean,
		Operation:       OpSubtract,
		SourceObjectIDs: []ObjectID{"a", "b"},
		Scale:           Vec3{1, 1, 1},
		Material:        DefaultMaterial(),
		Visible:         true,
		LayerID:         DefaultLayerID,
	}
	st.Objects = []SceneObject{a, b, u}
	return st
}

func TestValidate_ValidScene(t *testing.T) {
	errs := Validate(buildValidScene())
	for _, e := range errs {
		t.Errorf("unexpected finding: %s", e)
	}
}

func TestValidate_EmptyScene(t *testing.T) {
	if errs := Validate(NewState()); len(errs) != 0 {
		t.Errorf("expected no findings, got %v", errs)
	}
}

func TestValidate_Findings(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(st *State)
		severity ValidationSeverity
		substr   string
	}{
		{
			name:     "duplicate id",
			mutate:   func(st *State) { st.Objects[1].ID = "a" },
			severity: SeverityError,
			substr:   "duplicate object id",
		},
		{
			name:     "unknown layer",
			mutate:   func(st *State) { st.Objects[0].LayerID = "ghost" },
			severity: SeverityError,
			substr:   "layer \"ghost\" does not exist",
		},
		{
			name:     "unknown group",
			mutate:   func(st *State) { st.Objects[0].GroupID = "g" },
			severity: SeverityWarning,
			substr:   "group \"g\" does not exist",
		},
		{
			name:     "dangling boolean source",
			mutate:   func(st *State) { st.Objects = st.Objects[1:] },
			severity: SeverityWarning,
			substr:   "no longer exists",
		},
		{
			name:     "too few sources",
			mutate:   func(st *State) { st.Objects[2].SourceObjectIDs = []ObjectID{"a"} },
			severity: SeverityError,
			substr:   "at least 2 sources",
		},
		{
			name:     "invalid operation",
			mutate:   func(st *State) { st.Objects[2].Operation = "xor" },
			severity: SeverityError,
			substr:   "invalid boolean operation",
		},
		{
			name:     "self reference",
			mutate:   func(st *State) { st.Objects[2].SourceObjectIDs = []ObjectID{"a", "u"} },
			severity: SeverityError,
			substr:   "references itself",
		},
		{
			name:     "short geometry args",
			mutate:   func(st *State) { st.Objects[0].GeometryArgs = []float64{1} },
			severity: SeverityWarning,
			substr:   "needs 3 geometry args",
		},
		{
			name:     "unsupported geometry",
			mutate:   func(st *State) { st.Objects[0].GeometryType = GeometryCircle },
			severity: SeverityError,
			substr:   "unsupported geometry type",
		},
		{
			name:     "material range",
			mutate:   func(st *State) { st.Objects[0].Material.Opacity = 2 },
			severity: SeverityWarning,
			substr:   "outside [0,1]",
		},
		{
			name: "selection out of sync",
			mutate: func(st *State) {
				st.SelectedIDs = []ObjectID{"a", "b"}
				id := ObjectID("a")
				st.SelectedObjectID = &id
			},
			severity: SeverityError,
			substr:   "out of sync",
		},
		{
			name:     "no layers",
			mutate:   func(st *State) { st.Layers = nil },
			severity: SeverityError,
			substr:   "no layers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := buildValidScene()
			tt.mutate(&st)
			errs := Validate(st)
			if !hasFinding(errs, tt.severity, tt.substr) {
				t.Errorf("expected %s containing %q, got:", tt.severity, tt.substr)
				for _, e := range errs {
					t.Logf("  %s", e)
				}
			}
		})
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors([]ValidationError{{Severity: SeverityWarning}}) {
		t.Error("warnings alone should not count as errors")
	}
	if !HasErrors([]ValidationError{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Error("expected HasErrors to be true")
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{ObjectID: "a", Message: "boom", Severity: SeverityError}
	if got := e.Error(); got != "[error] object a: boom" {
		t.Errorf("Error() = %q", got)
	}
	e = ValidationError{Message: "scene", Severity: SeverityWarning}
	if got := e.Error(); got != "[warning] scene" {
		t.Errorf("Error() = %q", got)
	}
}
