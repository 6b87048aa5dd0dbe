package service

import (
	"context"

	"taskstack/internal/session"
)

// AuthService exposes signup and login for the session bound to a chat.
type AuthService struct {
	sessions *session.Manager
}

func NewAuthService(sessions *session.Manager) *AuthService {
	return &AuthService{sessions: sessions}
}

func (s *AuthService) SignUp(ctx context.Context, chatID int64, username, password string) error {
	return s.sessions.With(chatID, func(sess *session.Session) error {
		return sess.Auth().SignUp(ctx, username, password)
	})
}

func (s *AuthService) LogIn(ctx context.Context, chatID int64, username, password string) error {
	return s.sessions.With(chatID, func(sess *session.Session) error {
		return sess.Auth().LogIn(ctx, username, password)
	})
}

func (s *AuthService) LogOut(chatID int64) {
	_ = s.sessions.With(chatID, func(sess *session.Session) error {
		sess.Auth().LogOut()
		return nil
	})
}

// CurrentUser returns the logged-in username for the chat, if any.
func (s *AuthService) CurrentUser(chatID int64) (string, bool) {
	var (
		user string
		ok   bool
	)
	_ = s.sessions.With(chatID, func(sess *session.Session) error {
		user, ok = sess.Auth().CurrentUser()
		return nil
	})
	return user, ok
}
