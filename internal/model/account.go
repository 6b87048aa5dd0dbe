package model

import "time"

// Account stores a registered username and its password digest.
// Rows are namespaced by SessionID so that chat sessions never see each other's accounts.
type Account struct {
	ID             uint   `gorm:"primaryKey"`
	SessionID      string `gorm:"index:idx_session_username,unique;not null"`
	Username       string `gorm:"index:idx_session_username,unique;not null"`
	PasswordDigest string `gorm:"not null"`
	CreatedAt      time.Time
}
