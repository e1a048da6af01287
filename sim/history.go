package sim

import "github.com/citygrid/citygrid/logging"

// historyCap bounds the undo stack; the oldest entries fall off first.
const historyCap = 100

// History records applied actions for undo and redo, and queues actions
// submitted between ticks for application at the next Input phase.
type History struct {
	undo    []Action
	redo    []Action
	pending []Action
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Do applies the action immediately and records it. A new action clears
// the redo stack.
func (h *History) Do(w *World, a Action) error {
	if err := a.Apply(w); err != nil {
		return err
	}
	h.push(a)
	return nil
}

// Enqueue defers the action until the next tick's Input phase.
func (h *History) Enqueue(a Action) {
	h.pending = append(h.pending, a)
}

// Undo reverts the most recent action and moves it to the redo stack.
func (h *History) Undo(w *World) error {
	if len(h.undo) == 0 {
		return ErrNothingToUndo
	}
	a := h.undo[len(h.undo)-1]
	inv := a.Invert()
	if err := inv.Apply(w); err != nil {
		return err
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, a)
	return nil
}

// Redo reapplies the most recently undone action.
func (h *History) Redo(w *World) error {
	if len(h.redo) == 0 {
		return ErrNothingToRedo
	}
	a := h.redo[len(h.redo)-1]
	if err := a.Apply(w); err != nil {
		return err
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, a)
	return nil
}

// UndoDepth and RedoDepth report stack sizes for UI and tests.
func (h *History) UndoDepth() int { return len(h.undo) }
func (h *History) RedoDepth() int { return len(h.redo) }

// Clear drops all recorded and pending actions. Used after loading a save,
// since recorded inverses reference pre-load state.
func (h *History) Clear() {
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
	h.pending = h.pending[:0]
}

func (h *History) push(a Action) {
	h.redo = h.redo[:0]
	h.undo = append(h.undo, a)
	if len(h.undo) > historyCap {
		copy(h.undo, h.undo[1:])
		h.undo = h.undo[:historyCap]
	}
}

// commandSystem drains the queued actions at the start of each tick so all
// player edits land at a deterministic point in the frame.
func commandSystem(w *World) {
	if len(w.History.pending) == 0 {
		return
	}
	queued := w.History.pending
	w.History.pending = nil
	for _, a := range queued {
		if err := w.History.Do(w, a); err != nil {
			logging.Logf("commands: %s rejected: %v", a.Name(), err)
		}
	}
}
