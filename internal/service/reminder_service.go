package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"taskstack/internal/model"
	"taskstack/internal/session"
	"taskstack/internal/todo"
)

const (
	iconDefault = "🟢"
	iconDue     = "⏳"
	iconOverdue = "⚠️"
)

// Reminder is a message destined for one chat.
type Reminder struct {
	ChatID int64
	Text   string
}

// ReminderService builds deadline notifications for logged-in sessions.
type ReminderService struct {
	sessions *session.Manager
	window   time.Duration
}

func NewReminderService(sessions *session.Manager, window time.Duration) *ReminderService {
	return &ReminderService{sessions: sessions, window: window}
}

// DueReminders returns a reminder for every logged-in chat that has overdue
// tasks or tasks due within the window.
func (s *ReminderService) DueReminders(now time.Time) []Reminder {
	var out []Reminder
	s.sessions.Authenticated(func(sess *session.Session, _ string, tasks *todo.History) {
		if text, ok := DeadlineDigest(tasks.Tasks(), now, s.window); ok {
			out = append(out, Reminder{ChatID: sess.ChatID, Text: text})
		}
	})
	return out
}

// DailyDigests returns the full list summary for every logged-in chat with tasks.
func (s *ReminderService) DailyDigests(now time.Time) []Reminder {
	var out []Reminder
	s.sessions.Authenticated(func(sess *session.Session, user string, tasks *todo.History) {
		if tasks.Len() == 0 {
			return
		}
		out = append(out, Reminder{ChatID: sess.ChatID, Text: DailySummary(user, tasks.Tasks(), now)})
	})
	return out
}

// DeadlineDigest lists overdue tasks and tasks due within window. ok is false
// when there is nothing to report. Task numbers are 1-based list positions.
func DeadlineDigest(tasks []model.Task, now time.Time, window time.Duration) (string, bool) {
	var overdue, soon strings.Builder
	for i, task := range tasks {
		if !task.HasDeadline() {
			continue
		}
		d := task.Deadline.In(now.Location())
		switch {
		case now.After(d):
			overdue.WriteString(FormatTask(i+1, task, now))
		case d.Sub(now) <= window:
			soon.WriteString(FormatTask(i+1, task, now))
		}
	}
	if overdue.Len() == 0 && soon.Len() == 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteString("⏰ <b>Deadline reminder</b>\n")
	if overdue.Len() > 0 {
		b.WriteString("\n<b>Overdue</b>\n")
		b.WriteString(overdue.String())
	}
	if soon.Len() > 0 {
		b.WriteString(fmt.Sprintf("\n<b>Due within %s</b>\n", humanDuration(window)))
		b.WriteString(soon.String())
	}
	return strings.TrimSpace(b.String()), true
}

// DailySummary renders the whole list for the daily digest. Empty lists get
// no digest, so tasks is expected to be non-empty.
func DailySummary(user string, tasks []model.Task, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>Daily digest for %s</b>\n", html.EscapeString(user)))
	b.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format(todo.DateLayout)))
	for i, task := range tasks {
		b.WriteString(FormatTask(i+1, task, now))
	}
	return strings.TrimSpace(b.String())
}

// FormatTask renders one numbered task line with a deadline status icon.
func FormatTask(num int, task model.Task, now time.Time) string {
	icon := iconDefault
	if task.Deadline != nil {
		d := task.Deadline.In(now.Location())
		switch {
		case now.After(d):
			icon = iconOverdue
		case d.Sub(now) <= 48*time.Hour:
			icon = iconDue
		}
	}
	title := html.EscapeString(strings.TrimSpace(task.Text))
	return fmt.Sprintf("%s %d. %s — %s\n", icon, num, title, todo.FormatDeadline(task.Deadline))
}

func humanDuration(d time.Duration) string {
	if d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
