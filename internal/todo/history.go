// Package todo holds the in-memory task list together with its undo/redo history.
package todo

import (
	"strings"
	"time"

	"taskstack/internal/model"
)

// History is an ordered task list with two-stack undo/redo over full snapshots.
//
// Every mutation pushes the pre-mutation list onto the undo stack and empties
// the redo stack. Guarded no-ops (empty text, bad index, nothing to clear,
// nothing to undo or redo) leave every stack untouched and report false.
//
// A History is not safe for concurrent use; callers serialize access.
type History struct {
	tasks []model.Task
	undo  [][]model.Task
	redo  [][]model.Task
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Add appends a task. Text is trimmed; blank text is ignored.
func (h *History) Add(text string, deadline *time.Time) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	task := model.Task{Text: text, Deadline: deadline}
	h.checkpoint()
	h.tasks = append(h.tasks, task.Clone())
	return true
}

// Remove deletes the task at index, shifting later tasks left.
func (h *History) Remove(index int) bool {
	if index < 0 || index >= len(h.tasks) {
		return false
	}
	h.checkpoint()
	h.tasks = append(h.tasks[:index:index], h.tasks[index+1:]...)
	return true
}

// Clear empties the list.
func (h *History) Clear() bool {
	if len(h.tasks) == 0 {
		return false
	}
	h.checkpoint()
	h.tasks = nil
	return true
}

// Undo restores the most recent snapshot, saving the current list for Redo.
func (h *History) Undo() bool {
	if len(h.undo) == 0 {
		return false
	}
	h.redo = append(h.redo, snapshot(h.tasks))
	h.tasks = pop(&h.undo)
	return true
}

// Redo reapplies the most recently undone state.
func (h *History) Redo() bool {
	if len(h.redo) == 0 {
		return false
	}
	h.undo = append(h.undo, snapshot(h.tasks))
	h.tasks = pop(&h.redo)
	return true
}

// Tasks returns a copy of the current list in display order.
func (h *History) Tasks() []model.Task {
	return snapshot(h.tasks)
}

// Task returns a copy of the task at index.
func (h *History) Task(index int) (model.Task, bool) {
	if index < 0 || index >= len(h.tasks) {
		return model.Task{}, false
	}
	return h.tasks[index].Clone(), true
}

func (h *History) Len() int       { return len(h.tasks) }
func (h *History) CanUndo() bool  { return len(h.undo) > 0 }
func (h *History) CanRedo() bool  { return len(h.redo) > 0 }
func (h *History) UndoDepth() int { return len(h.undo) }
func (h *History) RedoDepth() int { return len(h.redo) }

// checkpoint records the current list before a mutation and invalidates redo.
func (h *History) checkpoint() {
	h.undo = append(h.undo, snapshot(h.tasks))
	h.redo = nil
}

func snapshot(tasks []model.Task) []model.Task {
	if len(tasks) == 0 {
		return nil
	}
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// pop removes and returns the top of stack. The popped snapshot is owned by
// nobody else, so it can be installed as the live list without copying.
func pop(stack *[][]model.Task) []model.Task {
	s := *stack
	top := s[len(s)-1]
	s[len(s)-1] = nil
	*stack = s[:len(s)-1]
	return top
}
