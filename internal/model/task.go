package model

import "time"

// Task is a single to-do entry. Tasks are addressed by their position in a list.
type Task struct {
	Text     string
	Deadline *time.Time
}

// Clone returns a copy that shares no memory with t.
func (t Task) Clone() Task {
	c := Task{Text: t.Text}
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	return c
}

// HasDeadline reports whether the task carries a deadline.
func (t Task) HasDeadline() bool {
	return t.Deadline != nil
}
