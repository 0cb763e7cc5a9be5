package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/shared"
)

// MemberDirectory is the slice of the members service auth needs.
type MemberDirectory interface {
	GetByMemberNo(ctx context.Context, memberNo string) (*members.Member, error)
}

// Service verifies credentials. Session issuance lives in the handler.
type Service struct {
	dir    MemberDirectory
	logger *slog.Logger
}

// NewService builds Service.
func NewService(dir MemberDirectory, logger *slog.Logger) *Service {
	return &Service{dir: dir, logger: logger}
}

// Login checks a member number and password pair. Unknown member numbers and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, memberNo, password string) (*members.Member, error) {
	if memberNo == "" || password == "" {
		return nil, fmt.Errorf("%w: member number and password are required", shared.ErrValidation)
	}
	m, err := s.dir.GetByMemberNo(ctx, memberNo)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return m, nil
}
