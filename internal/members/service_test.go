package members

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/krishilink/krishilink/internal/shared"
)

type memoryRepo struct {
	byID    map[uuid.UUID]*Member
	deleted map[uuid.UUID]bool
	purged  map[uuid.UUID]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		byID:    make(map[uuid.UUID]*Member),
		deleted: make(map[uuid.UUID]bool),
		purged:  make(map[uuid.UUID]bool),
	}
}

func (r *memoryRepo) add(m Member) *Member {
	copied := m
	r.byID[m.ID] = &copied
	return &copied
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	if m, ok := r.byID[id]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, ErrMemberNotFound
}

func (r *memoryRepo) GetByMemberNo(ctx context.Context, memberNo string) (*Member, error) {
	for _, m := range r.byID {
		if m.MemberNo == memberNo {
			copied := *m
			return &copied, nil
		}
	}
	return nil, ErrMemberNotFound
}

func (r *memoryRepo) FindAdmin(ctx context.Context) (*Member, error) {
	for _, m := range r.byID {
		if m.Role == RoleAdmin {
			copied := *m
			return &copied, nil
		}
	}
	return nil, ErrAdminMissing
}

func (r *memoryRepo) ListByRole(ctx context.Context, role Role) ([]Member, error) {
	var out []Member
	for _, m := range r.byID {
		if m.Role == role {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListNonAdmin(ctx context.Context) ([]Member, error) {
	var out []Member
	for _, m := range r.byID {
		if m.Role != RoleAdmin {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memoryRepo) DirectDownline(ctx context.Context, id uuid.UUID) ([]Member, error) {
	var out []Member
	for _, m := range r.byID {
		if m.UplineID != nil && *m.UplineID == id {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memoryRepo) Create(ctx context.Context, m *Member) error {
	for _, existing := range r.byID {
		if existing.MemberNo == m.MemberNo {
			return shared.ErrDuplicate
		}
	}
	r.add(*m)
	return nil
}

func (r *memoryRepo) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateInput) (*Member, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, ErrMemberNotFound
	}
	m.Name, m.Mobile, m.Email, m.Address = in.Name, in.Mobile, in.Email, in.Address
	copied := *m
	return &copied, nil
}

func (r *memoryRepo) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	m, ok := r.byID[id]
	if !ok {
		return ErrMemberNotFound
	}
	m.PasswordHash = hash
	return nil
}

func (r *memoryRepo) SetMembership(ctx context.Context, id uuid.UUID, isMember bool) error {
	m, ok := r.byID[id]
	if !ok {
		return ErrMemberNotFound
	}
	m.IsMember = isMember
	return nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryTx) ReparentChildren(ctx context.Context, from uuid.UUID, to *uuid.UUID) error {
	for _, m := range t.repo.byID {
		if m.UplineID != nil && *m.UplineID == from {
			m.UplineID = to
		}
	}
	return nil
}

func (t *memoryTx) PurgeMemberData(ctx context.Context, id uuid.UUID) error {
	t.repo.purged[id] = true
	return nil
}

func (t *memoryTx) DeleteMember(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.repo.byID[id]; !ok {
		return ErrMemberNotFound
	}
	delete(t.repo.byID, id)
	t.repo.deleted[id] = true
	return nil
}

func seedChain(repo *memoryRepo) (admin, franchise, distributor, dealer, farmer *Member) {
	admin = repo.add(Member{ID: uuid.New(), MemberNo: "admin", Name: "Admin", Role: RoleAdmin})
	franchise = repo.add(Member{ID: uuid.New(), MemberNo: "FRN1001", Name: "Franchise", Role: RoleFranchise, UplineID: &admin.ID})
	distributor = repo.add(Member{ID: uuid.New(), MemberNo: "DIS1001", Name: "Distributor", Role: RoleDistributor, UplineID: &franchise.ID})
	dealer = repo.add(Member{ID: uuid.New(), MemberNo: "DLR1001", Name: "Dealer", Role: RoleDealer, UplineID: &distributor.ID})
	farmer = repo.add(Member{ID: uuid.New(), MemberNo: "FRM1001", Name: "Farmer", Role: RoleFarmer, UplineID: &dealer.ID})
	return
}

func TestUplineChainExcludesAdmin(t *testing.T) {
	repo := newMemoryRepo()
	_, franchise, distributor, dealer, farmer := seedChain(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	chain, err := svc.UplineChain(ctx, farmer.ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	require.Equal(t, dealer.ID, chain[0].ID)
	require.Equal(t, distributor.ID, chain[1].ID)
	require.Equal(t, franchise.ID, chain[2].ID)

	// Franchise's only upline is the Admin, so its chain is empty.
	chain, err = svc.UplineChain(ctx, franchise.ID)
	require.NoError(t, err)
	require.Empty(t, chain)
}

func TestUplineChainAdminIsEmpty(t *testing.T) {
	repo := newMemoryRepo()
	admin, _, _, _, _ := seedChain(repo)
	svc := NewService(repo, nil, nil)

	chain, err := svc.UplineChain(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Empty(t, chain)
}

func TestUplineChainDetectsCycle(t *testing.T) {
	repo := newMemoryRepo()
	a := repo.add(Member{ID: uuid.New(), Role: RoleDealer})
	b := repo.add(Member{ID: uuid.New(), Role: RoleDistributor})
	repo.byID[a.ID].UplineID = &b.ID
	repo.byID[b.ID].UplineID = &a.ID
	svc := NewService(repo, nil, nil)

	_, err := svc.UplineChain(context.Background(), a.ID)
	require.ErrorIs(t, err, shared.ErrIntegrity)
}

func TestCreateFranchiseParentedToAdmin(t *testing.T) {
	repo := newMemoryRepo()
	admin, _, distributor, _, _ := seedChain(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	// Even when another upline is requested, franchises attach to the Admin.
	m, rawPassword, err := svc.Create(ctx, *admin, CreateInput{
		Name: "New Franchise", Role: "Franchise", UplineID: &distributor.ID,
	})
	require.NoError(t, err)
	require.Equal(t, admin.ID, *m.UplineID)
	require.NotEmpty(t, rawPassword)
	require.Regexp(t, `^FRN\d{4}$`, m.MemberNo)
}

func TestCreateRequiresUplineAuthority(t *testing.T) {
	repo := newMemoryRepo()
	_, franchise, distributor, dealer, _ := seedChain(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	// A dealer cannot create a member under someone else's chain.
	_, _, err := svc.Create(ctx, *dealer, CreateInput{
		Name: "Rogue", Role: "SubDistributor", UplineID: &franchise.ID,
	})
	require.ErrorIs(t, err, shared.ErrForbidden)

	// The direct upline may.
	m, _, err := svc.Create(ctx, *distributor, CreateInput{
		Name: "Sub One", Role: "SubDistributor", UplineID: &distributor.ID,
	})
	require.NoError(t, err)
	require.Equal(t, RoleSubDistributor, m.Role)
}

func TestCreateRejectsAdminRole(t *testing.T) {
	repo := newMemoryRepo()
	admin, _, _, _, _ := seedChain(repo)
	svc := NewService(repo, nil, nil)

	_, _, err := svc.Create(context.Background(), *admin, CreateInput{Name: "Root Two", Role: "Admin"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteReparentsChildren(t *testing.T) {
	repo := newMemoryRepo()
	admin, franchise, distributor, dealer, _ := seedChain(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, *admin, distributor.ID))

	require.True(t, repo.deleted[distributor.ID])
	require.True(t, repo.purged[distributor.ID])
	moved, err := repo.Get(ctx, dealer.ID)
	require.NoError(t, err)
	require.Equal(t, franchise.ID, *moved.UplineID)
}

func TestDeleteAdminRejected(t *testing.T) {
	repo := newMemoryRepo()
	admin, _, _, _, _ := seedChain(repo)
	svc := NewService(repo, nil, nil)

	err := svc.Delete(context.Background(), *admin, admin.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestGrantMembership(t *testing.T) {
	repo := newMemoryRepo()
	admin, _, distributor, _, farmer := seedChain(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	m, err := svc.GrantMembership(ctx, *admin, distributor.ID)
	require.NoError(t, err)
	require.True(t, m.IsMember)

	_, err = svc.GrantMembership(ctx, *admin, distributor.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.GrantMembership(ctx, *admin, farmer.ID)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.GrantMembership(ctx, *distributor, farmer.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestChangePassword(t *testing.T) {
	repo := newMemoryRepo()
	_, franchise, _, _, _ := seedChain(repo)
	hash, err := bcrypt.GenerateFromPassword([]byte("old-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	franchise.PasswordHash = string(hash)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	err = svc.ChangePassword(ctx, *franchise, "wrong", "new-secret")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, *franchise, "old-secret", "tiny")
	require.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.ChangePassword(ctx, *franchise, "old-secret", "new-secret"))
	stored := repo.byID[franchise.ID].PasswordHash
	require.NotEqual(t, string(hash), stored)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("new-secret")))
}
