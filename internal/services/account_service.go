package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/auth"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// AccountService handles registration, login and profile maintenance.
// Profile and password changes re-check the current password, since the
// session token alone does not prove the user is still at the keyboard.
type AccountService struct {
	storage *storage.SQLiteRepository
	hasher  auth.PasswordHasher
	now     func() time.Time
}

func NewAccountService(storage *storage.SQLiteRepository, hasher auth.PasswordHasher) *AccountService {
	return &AccountService{storage: storage, hasher: hasher, now: time.Now}
}

func (s *AccountService) Register(ctx context.Context, name, email, password string) (core.User, error) {
	email = normalizeEmail(email)
	if _, err := s.storage.GetUserByEmail(ctx, email); err == nil {
		return core.User{}, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return core.User{}, fmt.Errorf("check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := core.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.storage.CreateUser(ctx, u); err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (core.User, error) {
	u, err := s.storage.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrInvalidEmail
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return core.User{}, ErrIncorrectPassword
	}
	return u, nil
}

// UpdateProfile changes the user's name and email after verifying the
// current password. The new email must not belong to another account.
func (s *AccountService) UpdateProfile(ctx context.Context, userID, name, email, password string) (core.User, error) {
	email = normalizeEmail(email)

	if other, err := s.storage.GetUserByEmail(ctx, email); err == nil {
		if other.ID != userID {
			return core.User{}, ErrEmailTaken
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return core.User{}, fmt.Errorf("check existing email: %w", err)
	}

	u, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return core.User{}, ErrPasswordMismatch
	}

	u.Name = strings.TrimSpace(name)
	u.Email = email
	if err := s.storage.UpdateUserProfile(ctx, userID, u.Name, u.Email); err != nil {
		return core.User{}, fmt.Errorf("update user profile: %w", err)
	}
	return u, nil
}

// UpdatePassword swaps the password after verifying the old one.
func (s *AccountService) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if err := s.hasher.Compare(u.PasswordHash, oldPassword); err != nil {
		return ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.storage.UpdateUserPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

func (s *AccountService) GetSettings(ctx context.Context, userID string) (core.Settings, error) {
	return s.storage.GetSettings(ctx, userID)
}

// SwitchOptions flips notification toggles. Only the options present in
// the request change; the rest keep their stored (or default) values.
type SwitchOptions struct {
	AllowBudgetAlert *bool
	AllowGoalAlert   *bool
	Allow2FA         *bool
}

func (s *AccountService) SwitchOption(ctx context.Context, userID string, opts SwitchOptions) (core.Settings, error) {
	settings, err := s.storage.GetSettings(ctx, userID)
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	settings.UserID = userID

	if opts.AllowBudgetAlert != nil {
		settings.AllowBudgetAlert = *opts.AllowBudgetAlert
	}
	if opts.AllowGoalAlert != nil {
		settings.AllowGoalAlert = *opts.AllowGoalAlert
	}
	if opts.Allow2FA != nil {
		settings.Allow2FA = *opts.Allow2FA
	}

	if err := s.storage.UpsertSettings(ctx, settings); err != nil {
		return core.Settings{}, fmt.Errorf("upsert settings: %w", err)
	}
	return settings, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
