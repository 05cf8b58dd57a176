package scene

// DefaultHistoryDepth bounds the number of undo snapshots kept.
const DefaultHistoryDepth = 50

// History is a snapshot-based undo/redo stack. Each entry is the full scene
// state before one effective mutation. It is not safe for concurrent use;
// Store guards it with its own lock.
type History struct {
	past   []State
	future []State
	limit  int
}

// NewHistory returns a history keeping at most limit undo steps.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryDepth
	}
	return &History{limit: limit}
}

// Push records st as the state preceding a new mutation and drops the redo
// stack.
func (h *History) Push(st State) {
	h.past = append(h.past, st)
	if len(h.past) > h.limit {
		h.past = h.past[len(h.past)-h.limit:]
	}
	h.future = nil
}

// Undo pops the most recent snapshot, remembering current for Redo.
func (h *History) Undo(current State) (State, bool) {
	if len(h.past) == 0 {
		return State{}, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, current)
	return prev, true
}

// Redo re-applies the most recently undone state.
func (h *History) Redo(current State) (State, bool) {
	if len(h.future) == 0 {
		return State{}, false
	}
	next := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, current)
	return next, true
}

func (h *History) CanUndo() bool { return len(h.past) > 0 }
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Len returns the number of undo steps available.
func (h *History) Len() int { return len(h.past) }
