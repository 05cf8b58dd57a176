package scene

import "sync"

// Tool names the active editing tool.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolPolyline  Tool = "polyline"
)

// Session is the transient interaction state shared between the renderer and
// the interaction controller: whether a gizmo drag is in progress, the active
// tool and the camera target. It is owned by the top-level controller and
// passed explicitly to whoever needs it.
type Session struct {
	mu           sync.Mutex
	dragging     bool
	dragObject   ObjectID
	tool         Tool
	cameraTarget Vec3
}

// NewSession returns a session with the select tool active.
func NewSession() *Session {
	return &Session{tool: ToolSelect}
}

// BeginDrag marks id as being dragged by the gizmo. Camera orbit controls
// should be suspended while Dragging reports true.
func (s *Session) BeginDrag(id ObjectID) {
	s.mu.Lock()
	s.dragging = true
	s.dragObject = id
	s.mu.Unlock()
}

// EndDrag clears the drag state.
func (s *Session) EndDrag() {
	s.mu.Lock()
	s.dragging = false
	s.dragObject = ""
	s.mu.Unlock()
}

// Dragging reports whether a drag is active and on which object.
func (s *Session) Dragging() (ObjectID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragObject, s.dragging
}

// SetTool changes the active tool.
func (s *Session) SetTool(t Tool) {
	s.mu.Lock()
	s.tool = t
	s.mu.Unlock()
}

// Tool returns the active tool.
func (s *Session) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetCameraTarget records the point the camera orbits around.
func (s *Session) SetCameraTarget(v Vec3) {
	s.mu.Lock()
	s.cameraTarget = v
	s.mu.Unlock()
}

// CameraTarget returns the current orbit target.
func (s *Session) CameraTarget() Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameraTarget
}
