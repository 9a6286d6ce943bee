package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
)

// HashCost is the bcrypt work factor for stored passwords.
const HashCost = 12

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// Compared against when the email is unknown so both failure paths pay one bcrypt.
func timingHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("sapients-timing-equaliser"), HashCost)
	})
	return dummyHash
}

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	dummyHash []byte
}

// NewService constructs a new Service. The timing hash is computed here so the
// first unknown-email login costs the same as a wrong-password login.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, dummyHash: timingHash()}
}

// NormalizeEmail trims and case-folds an email address.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticate validates email/password credentials. An unknown email and a wrong
// password both return ErrInvalidCredentials; only storage failures differ.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Provision creates an account with a hashed password. Used by the seed command.
func (s *Service) Provision(ctx context.Context, input NewUser) (*User, error) {
	role, ok := rbac.ParseRole(input.Role)
	if !ok {
		return nil, fmt.Errorf("auth: unknown role %q", input.Role)
	}
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateUser(ctx, User{
		Email:        NormalizeEmail(input.Email),
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		Role:         role,
		AvatarURL:    strings.TrimSpace(input.AvatarURL),
	})
}
