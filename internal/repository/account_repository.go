package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskstack/internal/auth"
	"taskstack/internal/model"
)

// AccountRepository stores accounts for a single session.
// It implements auth.Store.
type AccountRepository struct {
	db        *gorm.DB
	sessionID string
}

func NewAccountRepository(db *gorm.DB, sessionID string) *AccountRepository {
	return &AccountRepository{db: db, sessionID: sessionID}
}

var _ auth.Store = (*AccountRepository)(nil)

func (r *AccountRepository) Lookup(ctx context.Context, username string) (string, bool, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND username = ?", r.sessionID, username).
		First(&account).Error
	switch {
	case err == nil:
		return account.PasswordDigest, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("find account: %w", err)
	}
}

func (r *AccountRepository) Insert(ctx context.Context, username, digest string) error {
	account := model.Account{
		SessionID:      r.sessionID,
		Username:       username,
		PasswordDigest: digest,
	}
	if err := r.db.WithContext(ctx).Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return auth.ErrDuplicateUser
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Count returns the number of accounts registered in this session.
func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("session_id = ?", r.sessionID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// DeleteSession removes every account registered under sessionID.
func DeleteSession(db *gorm.DB) func(ctx context.Context, sessionID string) error {
	return func(ctx context.Context, sessionID string) error {
		if err := db.WithContext(ctx).Where("session_id = ?", sessionID).
			Delete(&model.Account{}).Error; err != nil {
			return fmt.Errorf("delete session accounts: %w", err)
		}
		return nil
	}
}
