package catalog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/shared"
)

type memoryRepo struct {
	byID  map[uuid.UUID]*Product
	stock map[uuid.UUID]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: map[uuid.UUID]*Product{}, stock: map[uuid.UUID]int64{}}
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (*Product, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) HasActiveByName(_ context.Context, name string) (bool, error) {
	for _, p := range r.byID {
		if p.IsActive && p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) List(_ context.Context, _ uuid.UUID, activeOnly bool) ([]Listing, error) {
	var out []Listing
	for _, p := range r.byID {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, Listing{Product: *p, AdminStock: r.stock[p.ID]})
	}
	return out, nil
}

func (r *memoryRepo) Create(_ context.Context, p *Product, _ uuid.UUID, initialStock int64) error {
	p.IsActive = true
	r.byID[p.ID] = p
	r.stock[p.ID] = initialStock
	return nil
}

func (r *memoryRepo) Update(_ context.Context, id uuid.UUID, in UpdateInput, _ uuid.UUID) (*Product, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	p.Name = in.Name
	p.FranchisePrice = in.FranchisePrice
	p.DistributorPrice = in.DistributorPrice
	p.SubDistributorPrice = in.SubDistributorPrice
	p.DealerPrice = in.DealerPrice
	p.FarmerPrice = in.FarmerPrice
	r.stock[id] = in.Stock
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) Archive(_ context.Context, id uuid.UUID) error {
	p, ok := r.byID[id]
	if !ok {
		return ErrProductNotFound
	}
	p.IsActive = false
	return nil
}

type staticDirectory struct {
	admin members.Member
}

func (d staticDirectory) Admin(context.Context) (*members.Member, error) {
	cp := d.admin
	return &cp, nil
}

func testService(t *testing.T) (*Service, *memoryRepo, members.Member) {
	t.Helper()
	repo := newMemoryRepo()
	admin := members.Member{ID: uuid.New(), MemberNo: "ADMIN", Name: "Admin", Role: members.RoleAdmin}
	svc := NewService(repo, staticDirectory{admin: admin}, nil, slog.Default())
	return svc, repo, admin
}

func sampleProduct() Product {
	return Product{
		FranchisePrice:      100,
		DistributorPrice:    110,
		SubDistributorPrice: 120,
		DealerPrice:         130,
		FarmerPrice:         150,
	}
}

func TestPriceForEveryTier(t *testing.T) {
	p := sampleProduct()
	cases := map[members.Role]float64{
		members.RoleFranchise:      100,
		members.RoleDistributor:    110,
		members.RoleSubDistributor: 120,
		members.RoleDealer:         130,
		members.RoleFarmer:         150,
	}
	for role, want := range cases {
		got, err := PriceFor(p, role)
		require.NoError(t, err)
		require.Equal(t, want, got, "role %s", role)
	}
}

func TestPriceForAdminIsIntegrityError(t *testing.T) {
	_, err := PriceFor(sampleProduct(), members.RoleAdmin)
	require.ErrorIs(t, err, shared.ErrIntegrity)
}

func TestCostForAdminIsZero(t *testing.T) {
	cost, err := CostFor(sampleProduct(), members.RoleAdmin)
	require.NoError(t, err)
	require.Zero(t, cost)

	cost, err = CostFor(sampleProduct(), members.RoleDealer)
	require.NoError(t, err)
	require.Equal(t, 130.0, cost)
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc, _, _ := testService(t)
	dealer := members.Member{ID: uuid.New(), Role: members.RoleDealer}

	_, err := svc.Create(context.Background(), dealer, CreateInput{Name: "Urea 50kg"})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCreateCreditsInitialStockToAdmin(t *testing.T) {
	svc, repo, admin := testService(t)

	p, err := svc.Create(context.Background(), admin, CreateInput{
		Name:                "Urea 50kg",
		FranchisePrice:      100,
		DistributorPrice:    110,
		SubDistributorPrice: 120,
		DealerPrice:         130,
		FarmerPrice:         150,
		InitialStock:        500,
	})
	require.NoError(t, err)
	require.Equal(t, int64(500), repo.stock[p.ID])
}

func TestCreateRejectsDuplicateActiveName(t *testing.T) {
	svc, _, admin := testService(t)

	_, err := svc.Create(context.Background(), admin, CreateInput{Name: "Urea 50kg"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), admin, CreateInput{Name: "Urea 50kg"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateAllowsReusingArchivedName(t *testing.T) {
	svc, _, admin := testService(t)

	p, err := svc.Create(context.Background(), admin, CreateInput{Name: "Urea 50kg"})
	require.NoError(t, err)
	require.NoError(t, svc.Archive(context.Background(), admin, p.ID))

	_, err = svc.Create(context.Background(), admin, CreateInput{Name: "Urea 50kg"})
	require.NoError(t, err)
}

func TestCreateRejectsNegativePrice(t *testing.T) {
	svc, _, admin := testService(t)

	_, err := svc.Create(context.Background(), admin, CreateInput{Name: "Urea 50kg", DealerPrice: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateSetsAbsoluteStock(t *testing.T) {
	svc, repo, admin := testService(t)

	p, err := svc.Create(context.Background(), admin, CreateInput{Name: "Urea 50kg", InitialStock: 500})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), admin, p.ID, UpdateInput{Name: "Urea 50kg", Stock: 40})
	require.NoError(t, err)
	require.Equal(t, int64(40), repo.stock[p.ID])
}

func TestListExcludesArchived(t *testing.T) {
	svc, _, admin := testService(t)

	p, err := svc.Create(context.Background(), admin, CreateInput{Name: "Urea 50kg"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), admin, CreateInput{Name: "DAP 25kg"})
	require.NoError(t, err)
	require.NoError(t, svc.Archive(context.Background(), admin, p.ID))

	active, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "DAP 25kg", active[0].Name)

	all, err := svc.ListAll(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
