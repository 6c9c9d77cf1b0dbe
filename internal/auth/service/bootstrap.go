package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/afci/trajet/internal/auth/domain"
	"github.com/afci/trajet/internal/auth/store"
	"github.com/afci/trajet/pkg/idx"
	"github.com/afci/trajet/pkg/slogx"
)

var (
	ErrBootstrapAlready     = errors.New("system already bootstrapped")
	ErrBootstrapInvalidData = errors.New("bootstrap admin requires email and password")
)

// PasswordHasher produces stored password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

type BootstrapService struct {
	Store     store.Store
	Passwords PasswordHasher
}

// IsBootstrapped reports whether any user exists.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	n, err := s.Store.Users().Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Bootstrap creates the first administrator when the user table is empty.
// It returns the new user id, or ErrBootstrapAlready when users exist.
func (s *BootstrapService) Bootstrap(ctx context.Context, req domain.BootstrapAdmin) (string, error) {
	l := slogx.FromContext(ctx)

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return "", ErrBootstrapInvalidData
	}

	hash, err := s.Passwords.Hash(req.Password)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}

	userID := idx.New().String()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.Users().Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrBootstrapAlready
		}

		role, err := tx.Roles().GetRoleByCode(ctx, domain.RoleAdmin)
		if err != nil {
			return fmt.Errorf("lookup admin role: %w", err)
		}

		err = tx.Users().CreateUser(ctx, domain.User{
			ID:              userID,
			Email:           email,
			NormalizedEmail: domain.NormalizeEmail(email),
			PasswordHash:    hash,
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Active:          true,
		})
		if err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
		return tx.Roles().AssignRole(ctx, userID, role.ID)
	})
	if err != nil {
		if errors.Is(err, ErrBootstrapAlready) {
			l.Debug("bootstrap skipped, users already exist")
		}
		return "", err
	}

	l.Info("bootstrapped admin account", slog.String("admin_user_id", userID))
	return userID, nil
}
