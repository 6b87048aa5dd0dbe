package service

import (
	"errors"
	"strings"
	"time"

	"taskstack/internal/model"
	"taskstack/internal/session"
	"taskstack/internal/todo"
)

// ErrNotLoggedIn is returned for task operations in an anonymous session.
var ErrNotLoggedIn = errors.New("not logged in")

// ErrStaleIndex is returned when the task at an index no longer matches what the caller saw.
var ErrStaleIndex = errors.New("task list changed")

// TaskView is a read-only rendering of a user's list after an operation.
type TaskView struct {
	User    string
	Tasks   []model.Task
	CanUndo bool
	CanRedo bool
}

// TaskService gates task-list operations behind the chat session's login.
type TaskService struct {
	sessions *session.Manager
}

func NewTaskService(sessions *session.Manager) *TaskService {
	return &TaskService{sessions: sessions}
}

// List returns the current list.
func (s *TaskService) List(chatID int64) (TaskView, error) {
	view, _, err := s.apply(chatID, func(*todo.History) bool { return false })
	return view, err
}

// Add appends a task. changed is false when text is blank.
func (s *TaskService) Add(chatID int64, text string, deadline *time.Time) (view TaskView, changed bool, err error) {
	return s.apply(chatID, func(h *todo.History) bool { return h.Add(text, deadline) })
}

// Remove deletes the task at a zero-based index. Out of range is a no-op.
func (s *TaskService) Remove(chatID int64, index int) (TaskView, bool, error) {
	return s.apply(chatID, func(h *todo.History) bool { return h.Remove(index) })
}

// RemoveIfMatches deletes the task at index only if it is still the expected
// task, text and deadline both. Presentation code that rendered the list
// earlier uses it to avoid acting on a shifted index.
func (s *TaskService) RemoveIfMatches(chatID int64, index int, expected model.Task) (TaskView, bool, error) {
	stale := false
	view, changed, err := s.apply(chatID, func(h *todo.History) bool {
		task, ok := h.Task(index)
		if !ok || !sameTask(task, expected) {
			stale = true
			return false
		}
		return h.Remove(index)
	})
	if err == nil && stale {
		err = ErrStaleIndex
	}
	return view, changed, err
}

// Task returns one task by zero-based index.
func (s *TaskService) Task(chatID int64, index int) (model.Task, bool, error) {
	var (
		task  model.Task
		found bool
	)
	_, _, err := s.apply(chatID, func(h *todo.History) bool {
		task, found = h.Task(index)
		return false
	})
	return task, found, err
}

func (s *TaskService) Clear(chatID int64) (TaskView, bool, error) {
	return s.apply(chatID, func(h *todo.History) bool { return h.Clear() })
}

func (s *TaskService) Undo(chatID int64) (TaskView, bool, error) {
	return s.apply(chatID, func(h *todo.History) bool { return h.Undo() })
}

func (s *TaskService) Redo(chatID int64) (TaskView, bool, error) {
	return s.apply(chatID, func(h *todo.History) bool { return h.Redo() })
}

func (s *TaskService) apply(chatID int64, op func(h *todo.History) bool) (TaskView, bool, error) {
	var (
		view    TaskView
		changed bool
	)
	err := s.sessions.With(chatID, func(sess *session.Session) error {
		h, ok := sess.Tasks()
		if !ok {
			return ErrNotLoggedIn
		}
		changed = op(h)
		user, _ := sess.Auth().CurrentUser()
		view = viewOf(user, h)
		return nil
	})
	return view, changed, err
}

func sameTask(a, b model.Task) bool {
	if a.Text != strings.TrimSpace(b.Text) {
		return false
	}
	if a.Deadline == nil || b.Deadline == nil {
		return a.Deadline == nil && b.Deadline == nil
	}
	return a.Deadline.Equal(*b.Deadline)
}

func viewOf(user string, h *todo.History) TaskView {
	return TaskView{
		User:    user,
		Tasks:   h.Tasks(),
		CanUndo: h.CanUndo(),
		CanRedo: h.CanRedo(),
	}
}
