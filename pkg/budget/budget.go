// Package budget estimates how large an exported scene will be and grades
// the result against the inscription size target. The estimate is advisory:
// it never blocks an export.
package budget

import (
	"fmt"
	"math"
)

// Per-object byte costs used by Estimate.
const (
	BaseBytesPerObject = 500
	MaterialBytes      = 200
	TextureRefBytes    = 1000
)

// Size target bounds, in kilobytes.
const (
	DefaultMaxSizeKB = 400
	MinMaxSizeKB     = 100
	MaxMaxSizeKB     = 1000
)

// Optimization is the export optimisation level.
type Optimization string

const (
	OptimizeNone       Optimization = "none"
	OptimizeBasic      Optimization = "basic"
	OptimizeModerate   Optimization = "moderate"
	OptimizeAggressive Optimization = "aggressive"
)

// Levels lists the optimisation levels from least to most aggressive.
var Levels = []Optimization{OptimizeNone, OptimizeBasic, OptimizeModerate, OptimizeAggressive}

var optimizationFactors = map[Optimization]float64{
	OptimizeNone:       1.0,
	OptimizeBasic:      0.8,
	OptimizeModerate:   0.6,
	OptimizeAggressive: 0.4,
}

// Format is the export output format.
type Format string

const (
	FormatHTML Format = "html"
	FormatJSX  Format = "jsx"
	FormatJSON Format = "json"
)

var formatFactors = map[Format]float64{
	FormatHTML: 1.0,
	FormatJSX:  0.9,
	FormatJSON: 0.75,
}

// Factor returns the size multiplier of level o; unknown levels count as none.
func (o Optimization) Factor() float64 {
	if f, ok := optimizationFactors[o]; ok {
		return f
	}
	return 1.0
}

// Factor returns the size multiplier of format f; unknown formats count as html.
func (f Format) Factor() float64 {
	if v, ok := formatFactors[f]; ok {
		return v
	}
	return 1.0
}

// ParseOptimization validates a level name.
func ParseOptimization(s string) (Optimization, error) {
	o := Optimization(s)
	if _, ok := optimizationFactors[o]; !ok {
		return "", fmt.Errorf("unknown optimization level %q", s)
	}
	return o, nil
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if _, ok := formatFactors[f]; !ok {
		return "", fmt.Errorf("unknown export format %q", s)
	}
	return f, nil
}

// Settings are the export settings the estimate depends on.
type Settings struct {
	Optimization     Optimization `json:"optimization" toml:"optimization"`
	Format           Format       `json:"format" toml:"format"`
	IncludeMaterials bool         `json:"includeMaterials" toml:"include_materials"`
	IncludeTextures  bool         `json:"includeTextures" toml:"include_textures"`
	MaxSizeKB        float64      `json:"maxSizeKB" toml:"max_size_kb"`
}

// DefaultSettings returns html output, no optimisation, materials included
// and the default size target.
func DefaultSettings() Settings {
	return Settings{
		Optimization:     OptimizeNone,
		Format:           FormatHTML,
		IncludeMaterials: true,
		MaxSizeKB:        DefaultMaxSizeKB,
	}
}

// ClampMaxSizeKB maps an unset (zero or negative) target to the default and
// clamps the rest into [MinMaxSizeKB, MaxMaxSizeKB].
func ClampMaxSizeKB(kb float64) float64 {
	if kb <= 0 || math.IsNaN(kb) {
		return DefaultMaxSizeKB
	}
	return math.Min(math.Max(kb, MinMaxSizeKB), MaxMaxSizeKB)
}

// Status grades a size against the target.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Grade returns success up to 80% of maxKB, warning up to maxKB and error
// beyond.
func Grade(sizeKB, maxKB float64) Status {
	switch {
	case sizeKB <= 0.8*maxKB:
		return StatusSuccess
	case sizeKB <= maxKB:
		return StatusWarning
	default:
		return StatusError
	}
}

// Estimate returns the estimated export size in kilobytes for n objects.
// It is non-decreasing in n for fixed settings.
func Estimate(n int, s Settings) float64 {
	if n <= 0 {
		return 0
	}
	perObject := float64(BaseBytesPerObject)
	if s.IncludeMaterials {
		perObject += MaterialBytes
	}
	if s.IncludeTextures {
		perObject += TextureRefBytes
	}
	bytes := float64(n) * perObject * s.Optimization.Factor() * s.Format.Factor()
	return bytes / 1024
}

// Report is a graded size.
type Report struct {
	SizeKB    float64 `json:"sizeKB"`
	MaxSizeKB float64 `json:"maxSizeKB"`
	Percent   float64 `json:"percent"`
	Status    Status  `json:"status"`
}

func newReport(sizeKB, maxKB float64) Report {
	maxKB = ClampMaxSizeKB(maxKB)
	return Report{
		SizeKB:    sizeKB,
		MaxSizeKB: maxKB,
		Percent:   100 * sizeKB / maxKB,
		Status:    Grade(sizeKB, maxKB),
	}
}

// Check estimates and grades n objects under s.
func Check(n int, s Settings) Report {
	return newReport(Estimate(n, s), s.MaxSizeKB)
}

// MeasureHTML grades an actual bundle by its exact UTF-8 byte length.
func MeasureHTML(html string, maxKB float64) Report {
	return newReport(float64(len(html))/1024, maxKB)
}

// Recommend returns the least aggressive optimisation level whose estimate
// is not an error for n objects. ok is false when even the most aggressive
// level is over the target; the most aggressive level is returned then.
func Recommend(n int, s Settings) (level Optimization, ok bool) {
	for _, l := range Levels {
		s.Optimization = l
		if Check(n, s).Status != StatusError {
			return l, true
		}
	}
	return OptimizeAggressive, false
}
