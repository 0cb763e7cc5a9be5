package auth

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/shared"
)

type directory map[string]members.Member

func (d directory) GetByMemberNo(_ context.Context, memberNo string) (*members.Member, error) {
	m, ok := d[memberNo]
	if !ok {
		return nil, members.ErrMemberNotFound
	}
	return &m, nil
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("ramesh1234"), bcrypt.MinCost)
	require.NoError(t, err)

	dir := directory{
		"DLR1234": {ID: uuid.New(), MemberNo: "DLR1234", Name: "Ramesh", Role: members.RoleDealer, PasswordHash: string(hash)},
	}
	svc := NewService(dir, slog.Default())

	m, err := svc.Login(context.Background(), "DLR1234", "ramesh1234")
	require.NoError(t, err)
	require.Equal(t, "DLR1234", m.MemberNo)

	_, err = svc.Login(context.Background(), "DLR1234", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// Unknown member numbers read the same as wrong passwords.
	_, err = svc.Login(context.Background(), "DLR9999", "ramesh1234")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "", "")
	require.ErrorIs(t, err, shared.ErrValidation)
}
