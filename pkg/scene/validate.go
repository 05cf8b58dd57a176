package scene

import "fmt"

// ValidationSeverity indicates whether a finding makes the scene unusable or
// is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // scene is inconsistent
	SeverityWarning                           // tolerated, e.g. dangling references
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	ObjectID ObjectID // which object has the problem (empty if scene-level)
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.ObjectID == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] object %s: %s", e.Severity, e.ObjectID, e.Message)
}

// Validate runs the structural checks over st. It never mutates st. Dangling
// references are reported as warnings since the model tolerates them.
func Validate(st State) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateIDs(st)...)
	errs = append(errs, validateLayers(st)...)
	errs = append(errs, validateGroups(st)...)
	errs = append(errs, validateBooleans(st)...)
	errs = append(errs, validateGeometry(st)...)
	errs = append(errs, validateSelection(st)...)
	return errs
}

// HasErrors reports whether any finding is error-severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateIDs(st State) []ValidationError {
	var errs []ValidationError
	seen := make(map[ObjectID]bool, len(st.Objects))
	for _, o := range st.Objects {
		if o.ID == "" {
			errs = append(errs, ValidationError{Message: "object with empty id", Severity: SeverityError})
			continue
		}
		if seen[o.ID] {
			errs = append(errs, ValidationError{
				ObjectID: o.ID,
				Message:  "duplicate object id",
				Severity: SeverityError,
			})
		}
		seen[o.ID] = true
	}
	return errs
}

func validateLayers(st State) []ValidationError {
	var errs []ValidationError
	if len(st.Layers) == 0 {
		errs = append(errs, ValidationError{Message: "scene has no layers", Severity: SeverityError})
	}
	for _, o := range st.Objects {
		if st.Layer(o.LayerID) == nil {
			errs = append(errs, ValidationError{
				ObjectID: o.ID,
				Message:  fmt.Sprintf("layer %q does not exist", o.LayerID),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

func validateGroups(st State) []ValidationError {
	var errs []ValidationError
	for _, o := range st.Objects {
		if o.GroupID != "" && st.Group(o.GroupID) == nil {
			errs = append(errs, ValidationError{
				ObjectID: o.ID,
				Message:  fmt.Sprintf("group %q does not exist", o.GroupID),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func validateBooleans(st State) []ValidationError {
	var errs []ValidationError
	for _, o := range st.Objects {
		if o.Kind != KindBoolean {
			continue
		}
		if !o.Operation.Valid() {
			errs = append(errs, ValidationError{
				ObjectID: o.ID,
				Message:  fmt.Sprintf("invalid boolean operation %q", o.Operation),
				Severity: SeverityError,
			})
		}
		if len(o.SourceObjectIDs) < 2 {
			errs = append(errs, ValidationError{
				ObjectID: o.ID,
				Message:  fmt.Sprintf("boolean needs at least 2 sources, has %d", len(o.SourceObjectIDs)),
				Severity: SeverityError,
			})
		}
		for _, src := range o.SourceObjectIDs {
			if src == o.ID {
				errs = append(errs, ValidationError{
					ObjectID: o.ID,
					Message:  "boolean references itself",
					Severity: SeverityError,
				})
				continue
			}
			if st.Object(src) == nil {
				errs = append(errs, ValidationError{
					ObjectID: o.ID,
					Message:  fmt.Sprintf("source %s no longer exists", src),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}

func validateGeometry(st State) []ValidationError {
	var errs []ValidationError
	for _, o := range st.Objects {
		if o.Kind != KindPrimitive && o.Kind != KindGenerated3D {
			continue
		}
		if !o.GeometryType.IsSolid() {
			errs = append(errs, ValidationError{
				ObjectID: o.ID,
				Message:  fmt.Sprintf("unsupported geometry type %q", o.GeometryType),
				Severity: SeverityError,
			})
			continue
		}
		if n := o.GeometryType.MinArgs(); len(o.GeometryArgs) < n {
			errs = append(errs, ValidationError{
				ObjectID: o.ID,
				Message:  fmt.Sprintf("%s needs %d geometry args, has %d", o.GeometryType, n, len(o.GeometryArgs)),
				Severity: SeverityWarning,
			})
		}
		m := o.Material
		if m.Metalness < 0 || m.Metalness > 1 || m.Roughness < 0 || m.Roughness > 1 || m.Opacity < 0 || m.Opacity > 1 {
			errs = append(errs, ValidationError{
				ObjectID: o.ID,
				Message:  "material parameter outside [0,1]",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func validateSelection(st State) []ValidationError {
	var errs []ValidationError
	for _, id := range st.SelectedIDs {
		if st.Object(id) == nil {
			errs = append(errs, ValidationError{
				ObjectID: id,
				Message:  "selected object does not exist",
				Severity: SeverityError,
			})
		}
	}
	single := len(st.SelectedIDs) == 1
	if single != (st.SelectedObjectID != nil) || (single && *st.SelectedObjectID != st.SelectedIDs[0]) {
		errs = append(errs, ValidationError{
			Message:  "selectedObjectId out of sync with selectedIds",
			Severity: SeverityError,
		})
	}
	return errs
}
