package runtime

// history is the linear undo/redo buffer.
//
// Invariants: 0 <= statePtr < tailPtr <= len(memento), memento[0] is never written
// after construction. Entries at or past tailPtr are dead and must not be read.
type history struct {
	memento  []string
	statePtr int
	tailPtr  int
}

func newHistory(initial string) history {
	return history{
		memento:  []string{initial},
		statePtr: 0,
		tailPtr:  1,
	}
}

func (h *history) current() string {
	return h.memento[h.statePtr]
}

// push records state right after the cursor, discarding any redo chain.
func (h *history) push(state string) {
	next := h.statePtr + 1
	if next < len(h.memento) {
		h.memento[next] = state
	} else {
		h.memento = append(h.memento, state)
	}
	h.statePtr = next
	h.tailPtr = next + 1
}

// truncate drops the redo chain without moving the cursor.
func (h *history) truncate() {
	h.tailPtr = h.statePtr + 1
}

func (h *history) canBack() bool {
	return h.statePtr > 0
}

func (h *history) canForward() bool {
	return h.statePtr < h.tailPtr-1
}

func (h *history) back() bool {
	if !h.canBack() {
		return false
	}
	h.statePtr--
	return true
}

func (h *history) forward() bool {
	if !h.canForward() {
		return false
	}
	h.statePtr++
	return true
}

// collapse returns to the initial entry. Storage is kept; it is dead past tailPtr.
func (h *history) collapse() {
	h.statePtr = 0
	h.tailPtr = 1
}

// live returns a copy of the readable entries.
func (h *history) live() []string {
	out := make([]string, h.tailPtr)
	copy(out, h.memento[:h.tailPtr])
	return out
}
