// Package session tracks who is logged in and keeps per-chat state isolated.
package session

import (
	"context"

	"taskstack/internal/auth"
)

// Controller is the Anonymous/Authenticated state machine for a single session.
type Controller struct {
	dir     *auth.Directory
	current string
}

// NewController starts in the anonymous state.
func NewController(dir *auth.Directory) *Controller {
	return &Controller{dir: dir}
}

// SignUp registers a new account. It never logs the user in.
func (c *Controller) SignUp(ctx context.Context, username, password string) error {
	return c.dir.Register(ctx, username, password)
}

// LogIn verifies credentials and, on success, makes username the active identity.
// On failure the active identity is left as it was.
func (c *Controller) LogIn(ctx context.Context, username, password string) error {
	user, err := c.dir.Verify(ctx, username, password)
	if err != nil {
		return err
	}
	c.current = user
	return nil
}

// LogOut returns the session to the anonymous state.
func (c *Controller) LogOut() {
	c.current = ""
}

// CurrentUser returns the active identity; ok is false when anonymous.
func (c *Controller) CurrentUser() (username string, ok bool) {
	return c.current, c.current != ""
}
