package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/samber/lo"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chazu/boxel/pkg/budget"
	"github.com/chazu/boxel/pkg/bundler"
	"github.com/chazu/boxel/pkg/config"
	"github.com/chazu/boxel/pkg/csg"
	"github.com/chazu/boxel/pkg/engine"
	"github.com/chazu/boxel/pkg/export"
	"github.com/chazu/boxel/pkg/kernel"
	"github.com/chazu/boxel/pkg/kernel/sdfx"
	"github.com/chazu/boxel/pkg/measure"
	"github.com/chazu/boxel/pkg/scene"
	"github.com/chazu/boxel/pkg/sketch"
)

// SceneChangedEvent is emitted to the frontend with a state snapshot after
// every store mutation.
const SceneChangedEvent = "scene:changed"

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx     context.Context
	store   *scene.Store
	session *scene.Session
	engine  *engine.Engine
	kernel  kernel.Kernel
	cfg     config.Config
	log     *slog.Logger
	cancel  func()
}

// HTMLExport is a bundled scene and its graded size.
type HTMLExport struct {
	HTML     string                            `json:"html"`
	Size     budget.Report                     `json:"size"`
	Warnings []bundler.ImportResolutionWarning `json:"warnings"`
}

// Recommendation is the suggested optimisation level for the current scene.
type Recommendation struct {
	Level  budget.Optimization `json:"level"`
	Fits   bool                `json:"fits"`
	Report budget.Report       `json:"report"`
}

// NewApp creates a new App with an empty scene and the sdfx kernel.
func NewApp(cfg config.Config) *App {
	return &App{
		store:   scene.NewStore(),
		session: scene.NewSession(),
		engine:  engine.NewEngine(),
		kernel:  sdfx.New(),
		cfg:     cfg,
		log:     slog.Default().With("component", "app"),
	}
}

// startup is called by Wails on app startup. Store changes are forwarded
// to the frontend from here on.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.cancel = a.store.Subscribe(func(st scene.State) {
		runtime.EventsEmit(ctx, SceneChangedEvent, st)
	})
}

func (a *App) shutdown(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
}

// ---------------------------------------------------------------------------
// Scene
// ---------------------------------------------------------------------------

// State returns a snapshot of the scene.
func (a *App) State() scene.State {
	return a.store.State()
}

// AddPrimitive adds a default primitive of the given shape and selects it.
func (a *App) AddPrimitive(geometryType string) (scene.SceneObject, error) {
	g := scene.GeometryType(geometryType)
	if !g.IsSolid() {
		return scene.SceneObject{}, fmt.Errorf("unknown primitive %q", geometryType)
	}
	o := scene.NewPrimitive(g)
	o.Position = a.store.Snap(a.session.CameraTarget())
	a.store.AddObject(o)
	a.store.SelectObjects([]scene.ObjectID{o.ID})
	return o, nil
}

// UpdateObject applies a partial update. Unknown ids are ignored.
func (a *App) UpdateObject(id scene.ObjectID, patch scene.ObjectPatch) {
	a.store.UpdateObject(id, patch)
}

// DeleteObjects deletes every listed object as one undoable change.
func (a *App) DeleteObjects(ids []scene.ObjectID) {
	a.store.Batch(func(st *scene.State) bool {
		kept := lo.Reject(st.Objects, func(o scene.SceneObject, _ int) bool {
			return lo.Contains(ids, o.ID)
		})
		if len(kept) == len(st.Objects) {
			return false
		}
		st.Objects = kept
		return true
	})
}

// DuplicateSelection copies the selected objects one grid step along X.
func (a *App) DuplicateSelection() []scene.ObjectID {
	ids, _ := a.store.Selection()
	step := a.store.State().GridSize
	return a.store.DuplicateObjects(ids, scene.Vec3{step, 0, 0})
}

// Select replaces the selection.
func (a *App) Select(ids []scene.ObjectID) { a.store.SelectObjects(ids) }

// ToggleSelection adds or removes one object from the selection.
func (a *App) ToggleSelection(id scene.ObjectID) { a.store.ToggleObjectSelection(id) }

// ClearSelection empties the selection.
func (a *App) ClearSelection() { a.store.ClearSelection() }

// Undo steps back one change.
func (a *App) Undo() bool { return a.store.Undo() }

// Redo re-applies an undone change.
func (a *App) Redo() bool { return a.store.Redo() }

// Validate reports structural problems in the scene.
func (a *App) Validate() []scene.ValidationError {
	errs := scene.Validate(a.store.State())
	if errs == nil {
		errs = []scene.ValidationError{}
	}
	return errs
}

// ---------------------------------------------------------------------------
// Booleans, layers, groups
// ---------------------------------------------------------------------------

// CreateBoolean combines ids (base first) and hides the sources.
func (a *App) CreateBoolean(op string, ids []scene.ObjectID) (scene.SceneObject, error) {
	return csg.CreateBoolean(a.store, scene.Operation(op), ids, nil)
}

// DissolveBoolean removes a boolean and shows its sources again.
func (a *App) DissolveBoolean(id scene.ObjectID) bool {
	return csg.Dissolve(a.store, id)
}

// AddLayer creates a layer.
func (a *App) AddLayer(name, color string) scene.Layer { return a.store.AddLayer(name, color) }

// DeleteLayer deletes a layer and reassigns its objects.
func (a *App) DeleteLayer(id string) error { return a.store.DeleteLayer(id) }

// MoveToLayer reassigns objects to a layer.
func (a *App) MoveToLayer(ids []scene.ObjectID, layerID string) error {
	return a.store.MoveToLayer(ids, layerID)
}

// CreateGroup groups objects.
func (a *App) CreateGroup(name string, ids []scene.ObjectID) scene.Group {
	return a.store.CreateGroup(name, ids)
}

// Ungroup dissolves a group.
func (a *App) Ungroup(id string) { a.store.Ungroup(id) }

// ---------------------------------------------------------------------------
// Sketching
// ---------------------------------------------------------------------------

// Sketch records a sketch with the given tool. Rectangles take two corners,
// circles a centre and a point on the rim, polylines any number of points.
func (a *App) Sketch(plane, tool string, points []sketch.Point) (scene.SceneObject, error) {
	p, err := sketch.ParsePlane(plane)
	if err != nil {
		return scene.SceneObject{}, err
	}
	var o scene.SceneObject
	switch scene.Tool(tool) {
	case scene.ToolRectangle:
		if len(points) != 2 {
			return o, fmt.Errorf("rectangle needs 2 points, got %d", len(points))
		}
		o, err = sketch.Rectangle(p, points[0], points[1])
	case scene.ToolCircle:
		if len(points) != 2 {
			return o, fmt.Errorf("circle needs 2 points, got %d", len(points))
		}
		r := math.Hypot(points[1].U-points[0].U, points[1].V-points[0].V)
		o, err = sketch.Circle(p, points[0], r)
	case scene.ToolPolyline:
		o, err = sketch.Polyline(p, points)
	default:
		return o, fmt.Errorf("unknown sketch tool %q", tool)
	}
	if err != nil {
		return scene.SceneObject{}, err
	}
	a.store.AddObject(o)
	return o, nil
}

// Extrude adds an extrusion of a sketch.
func (a *App) Extrude(id scene.ObjectID, depth float64) (scene.SceneObject, error) {
	return a.generate(id, func(sk scene.SceneObject) (scene.SceneObject, error) {
		return sketch.Extrude(sk, depth)
	})
}

// Revolve adds a revolution of a sketch.
func (a *App) Revolve(id scene.ObjectID, angle float64, segments int) (scene.SceneObject, error) {
	return a.generate(id, func(sk scene.SceneObject) (scene.SceneObject, error) {
		return sketch.Revolve(sk, angle, segments)
	})
}

func (a *App) generate(id scene.ObjectID, fn func(scene.SceneObject) (scene.SceneObject, error)) (scene.SceneObject, error) {
	sk, ok := a.store.Object(id)
	if !ok {
		return scene.SceneObject{}, fmt.Errorf("unknown object %s", id)
	}
	o, err := fn(sk)
	if err != nil {
		return scene.SceneObject{}, err
	}
	a.store.AddObject(o)
	a.store.SelectObjects([]scene.ObjectID{o.ID})
	return o, nil
}

// ---------------------------------------------------------------------------
// Interaction session
// ---------------------------------------------------------------------------

// BeginDrag marks a gizmo drag on id as in progress.
func (a *App) BeginDrag(id scene.ObjectID) { a.session.BeginDrag(id) }

// EndDrag ends the current drag.
func (a *App) EndDrag() { a.session.EndDrag() }

// SetTool switches the active tool.
func (a *App) SetTool(tool string) { a.session.SetTool(scene.Tool(tool)) }

// SetCameraTarget records where new objects are placed.
func (a *App) SetCameraTarget(v scene.Vec3) { a.session.SetCameraTarget(v) }

// ---------------------------------------------------------------------------
// Export and size accounting
// ---------------------------------------------------------------------------

// ExportJSON serialises the visible objects.
func (a *App) ExportJSON() (string, error) {
	return export.ExportJSON(a.store.Objects())
}

// ExportJSX renders the visible objects as markup.
func (a *App) ExportJSX() string {
	return export.ExportJSX(a.store.Objects())
}

// ImportJSON replaces the scene objects. The store is unchanged on error.
func (a *App) ImportJSON(data string) error {
	objs, err := export.ImportJSON([]byte(data))
	if err != nil {
		return err
	}
	a.store.ReplaceObjects(objs)
	return nil
}

// ExportHTML bundles the scene into a single self-contained document and
// grades its size against the configured target.
func (a *App) ExportHTML(title string) (HTMLExport, error) {
	opts := a.cfg.BundlerOptions()
	libs := export.Libraries()
	for k, v := range opts.Libraries {
		libs[k] = v
	}
	opts.Libraries = libs

	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := bundler.New(opts, a.log).Bundle(ctx, export.Project(a.store.Objects(), title), nil)
	if err != nil {
		return HTMLExport{}, err
	}
	return HTMLExport{
		HTML:     res.HTML,
		Size:     budget.MeasureHTML(res.HTML, a.cfg.Build.MaxSizeKB),
		Warnings: res.Warnings,
	}, nil
}

// EstimateSize grades the estimated export size of the visible objects.
func (a *App) EstimateSize(settings budget.Settings) budget.Report {
	return budget.Check(len(export.Visible(a.store.Objects())), settings)
}

// RecommendOptimization suggests the least aggressive level that fits.
func (a *App) RecommendOptimization(settings budget.Settings) Recommendation {
	n := len(export.Visible(a.store.Objects()))
	level, ok := budget.Recommend(n, settings)
	settings.Optimization = level
	return Recommendation{Level: level, Fits: ok, Report: budget.Check(n, settings)}
}

// Bounds returns the world bounds of the visible geometry.
func (a *App) Bounds() (measure.Box, error) {
	box, errs, err := measure.SceneBounds(a.kernel, a.store.State())
	for _, e := range errs {
		a.log.Warn("bounds", "err", e)
	}
	return box, err
}

// ---------------------------------------------------------------------------
// Scripting console
// ---------------------------------------------------------------------------

// Evaluate runs a script without touching the scene.
func (a *App) Evaluate(source string) engine.EvalResult {
	return a.evaluate(source)
}

// RunScript runs a script and adds the objects it created to the scene.
// Nothing is added when the script fails.
func (a *App) RunScript(source string) engine.EvalResult {
	res := a.evaluate(source)
	if len(res.Errors) == 0 && len(res.Objects) > 0 {
		a.store.AddObjects(res.Objects...)
	}
	return res
}

func (a *App) evaluate(source string) engine.EvalResult {
	res := engine.EvalResult{Objects: []scene.SceneObject{}, Errors: []engine.EvalError{}}
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	objs, evalErrs, err := a.engine.EvaluateContext(ctx, source)
	if err != nil {
		a.log.Error("evaluate", "err", err)
		res.Errors = append(res.Errors, engine.EvalError{Message: err.Error()})
		return res
	}
	if len(evalErrs) > 0 {
		res.Errors = evalErrs
		return res
	}
	res.Objects = objs
	return res
}

var errNoSelection = errors.New("nothing selected")

// SelectionBounds returns the bounds of the primary selection.
func (a *App) SelectionBounds() (measure.Box, error) {
	_, primary := a.store.Selection()
	if primary == nil {
		return measure.Box{}, errNoSelection
	}
	return measure.ObjectBounds(a.kernel, a.store.State(), *primary)
}
