package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/afci/trajet/internal/auth/domain"
	"github.com/afci/trajet/internal/auth/store"
)

// AccountService answers questions about already authenticated accounts.
type AccountService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CheckAccount is the per-request recheck behind a valid token. It fails
// when the subject no longer exists, is disabled or is locked, so those
// changes take effect before the token expires.
func (s *AccountService) CheckAccount(ctx context.Context, subject string) error {
	_, err := s.activeUser(ctx, subject)
	return err
}

// Me returns the principal summary of subject.
func (s *AccountService) Me(ctx context.Context, subject string) (domain.PrincipalSummary, error) {
	user, err := s.activeUser(ctx, subject)
	if err != nil {
		return domain.PrincipalSummary{}, err
	}
	roles, err := s.Store.Roles().RolesForUser(ctx, user.ID)
	if err != nil {
		return domain.PrincipalSummary{}, fmt.Errorf("resolve roles: %w", err)
	}
	return domain.PrincipalSummary{
		SubjectID: user.Email,
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Roles:     roles,
	}, nil
}

// ListRoles returns every role the service knows about, ordered by code.
func (s *AccountService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.Store.Roles().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// UserIDForSubject maps a token subject to the internal user id.
func (s *AccountService) UserIDForSubject(ctx context.Context, subject string) (string, error) {
	user, err := s.activeUser(ctx, subject)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (s *AccountService) activeUser(ctx context.Context, subject string) (domain.User, error) {
	if subject == "" {
		return domain.User{}, ErrUnknownIdentity
	}
	user, err := s.Store.Users().FindByNormalizedEmail(ctx, domain.NormalizeEmail(subject))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUnknownIdentity
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.Active {
		return domain.User{}, ErrAccountDisabled
	}
	if user.IsLocked(s.now()) {
		return domain.User{}, ErrAccountLocked
	}
	return user, nil
}
