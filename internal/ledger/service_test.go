package ledger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/krishilink/krishilink/internal/catalog"
	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/shared"
)

type memoryRepo struct {
	stock        map[uuid.UUID]map[uuid.UUID]int64
	transactions []Transaction
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{stock: map[uuid.UUID]map[uuid.UUID]int64{}}
}

func (r *memoryRepo) setStock(holder, product uuid.UUID, qty int64) {
	if r.stock[holder] == nil {
		r.stock[holder] = map[uuid.UUID]int64{}
	}
	r.stock[holder][product] = qty
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (*Transaction, error) {
	for _, t := range r.transactions {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (r *memoryRepo) Inventory(_ context.Context, holderID uuid.UUID) ([]InventoryItem, error) {
	var out []InventoryItem
	for product, qty := range r.stock[holderID] {
		out = append(out, InventoryItem{ProductID: product, Quantity: qty})
	}
	return out, nil
}

func (r *memoryRepo) ListPayable(_ context.Context, buyerID uuid.UUID) ([]Transaction, error) {
	var out []Transaction
	for _, t := range r.transactions {
		if t.BuyerID == buyerID && t.PaymentStatus == StatusPending {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListBySeller(_ context.Context, sellerID uuid.UUID) ([]Transaction, error) {
	var out []Transaction
	for _, t := range r.transactions {
		if t.SellerID == sellerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListAll(context.Context) ([]Transaction, error) {
	return append([]Transaction(nil), r.transactions...), nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) StockForUpdate(_ context.Context, holderID, productID uuid.UUID) (int64, error) {
	return r.stock[holderID][productID], nil
}

func (r *memoryRepo) DecrementStock(_ context.Context, holderID, productID uuid.UUID, qty int64) error {
	if r.stock[holderID][productID] < qty {
		return ErrInsufficientStock
	}
	r.stock[holderID][productID] -= qty
	return nil
}

func (r *memoryRepo) IncrementStock(_ context.Context, holderID, productID uuid.UUID, qty int64) error {
	r.setStock(holderID, productID, r.stock[holderID][productID]+qty)
	return nil
}

func (r *memoryRepo) InsertTransaction(_ context.Context, t *Transaction) error {
	r.transactions = append(r.transactions, *t)
	return nil
}

type memberMap map[uuid.UUID]members.Member

func (m memberMap) Get(_ context.Context, id uuid.UUID) (*members.Member, error) {
	mb, ok := m[id]
	if !ok {
		return nil, members.ErrMemberNotFound
	}
	return &mb, nil
}

func (m memberMap) Admin(context.Context) (*members.Member, error) {
	for _, mb := range m {
		if mb.IsAdmin() {
			cp := mb
			return &cp, nil
		}
	}
	return nil, members.ErrAdminMissing
}

type productMap map[uuid.UUID]catalog.Product

func (p productMap) Get(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	prod, ok := p[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &prod, nil
}

type fixture struct {
	svc     *Service
	repo    *memoryRepo
	dir     memberMap
	product catalog.Product

	admin, franchise, distributor, dealer, farmer members.Member
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{repo: newMemoryRepo(), dir: memberMap{}}

	f.admin = f.addMember(members.RoleAdmin, nil, true)
	f.franchise = f.addMember(members.RoleFranchise, &f.admin.ID, true)
	f.distributor = f.addMember(members.RoleDistributor, &f.franchise.ID, true)
	f.dealer = f.addMember(members.RoleDealer, &f.distributor.ID, true)
	f.farmer = f.addMember(members.RoleFarmer, &f.dealer.ID, false)

	f.product = catalog.Product{
		ID:                  uuid.New(),
		Name:                "Urea 50kg",
		FranchisePrice:      100,
		DistributorPrice:    110,
		SubDistributorPrice: 120,
		DealerPrice:         130,
		FarmerPrice:         150,
		IsActive:            true,
	}
	f.svc = NewService(f.repo, f.dir, productMap{f.product.ID: f.product}, nil, slog.Default())
	return f
}

func (f *fixture) addMember(role members.Role, upline *uuid.UUID, isMember bool) members.Member {
	m := members.Member{ID: uuid.New(), Role: role, UplineID: upline, IsMember: isMember}
	f.dir[m.ID] = m
	return m
}

func TestPurchaseMovesStockAndRecordsMargin(t *testing.T) {
	f := newFixture(t)
	f.repo.setStock(f.franchise.ID, f.product.ID, 20)

	// Distributor pays their own tier price; the seller's margin is the
	// spread over the Franchise tier.
	tr, err := f.svc.Purchase(context.Background(), f.distributor, PurchaseInput{ProductID: f.product.ID, Quantity: 5})
	require.NoError(t, err)

	require.Equal(t, int64(15), f.repo.stock[f.franchise.ID][f.product.ID])
	require.Equal(t, int64(5), f.repo.stock[f.distributor.ID][f.product.ID])
	require.Equal(t, 110.0, tr.UnitPrice)
	require.Equal(t, 550.0, tr.TotalAmount)
	require.Equal(t, 50.0, tr.Profit)
	require.Equal(t, StatusPending, tr.PaymentStatus)
}

func TestAdminSaleProfitIsFullPrice(t *testing.T) {
	f := newFixture(t)
	f.repo.setStock(f.admin.ID, f.product.ID, 100)

	tr, err := f.svc.PurchaseFromAdmin(context.Background(), f.franchise, PurchaseInput{ProductID: f.product.ID, Quantity: 10})
	require.NoError(t, err)

	require.Equal(t, 100.0, tr.UnitPrice)
	require.Equal(t, 1000.0, tr.TotalAmount)
	require.Equal(t, 1000.0, tr.Profit)
	require.Equal(t, int64(90), f.repo.stock[f.admin.ID][f.product.ID])
	require.Equal(t, int64(10), f.repo.stock[f.franchise.ID][f.product.ID])
}

func TestOversellRejectedWithoutMutation(t *testing.T) {
	f := newFixture(t)
	f.repo.setStock(f.franchise.ID, f.product.ID, 5)

	_, err := f.svc.Purchase(context.Background(), f.distributor, PurchaseInput{ProductID: f.product.ID, Quantity: 10})
	require.ErrorIs(t, err, ErrInsufficientStock)

	require.Equal(t, int64(5), f.repo.stock[f.franchise.ID][f.product.ID])
	require.Zero(t, f.repo.stock[f.distributor.ID][f.product.ID])
	require.Empty(t, f.repo.transactions)
}

func TestFarmerPurchaseRetiresStock(t *testing.T) {
	f := newFixture(t)
	f.repo.setStock(f.dealer.ID, f.product.ID, 10)

	tr, err := f.svc.Purchase(context.Background(), f.farmer, PurchaseInput{ProductID: f.product.ID, Quantity: 3})
	require.NoError(t, err)

	require.Equal(t, int64(7), f.repo.stock[f.dealer.ID][f.product.ID])
	require.Empty(t, f.repo.stock[f.farmer.ID])
	require.Equal(t, 150.0, tr.UnitPrice)
}

func TestStockConservedAcrossTransferChain(t *testing.T) {
	f := newFixture(t)
	f.repo.setStock(f.admin.ID, f.product.ID, 100)

	_, err := f.svc.Purchase(context.Background(), f.franchise, PurchaseInput{ProductID: f.product.ID, Quantity: 40})
	require.NoError(t, err)
	_, err = f.svc.Purchase(context.Background(), f.distributor, PurchaseInput{ProductID: f.product.ID, Quantity: 25})
	require.NoError(t, err)
	_, err = f.svc.Purchase(context.Background(), f.dealer, PurchaseInput{ProductID: f.product.ID, Quantity: 15})
	require.NoError(t, err)
	_, err = f.svc.Purchase(context.Background(), f.farmer, PurchaseInput{ProductID: f.product.ID, Quantity: 6})
	require.NoError(t, err)

	require.Equal(t, int64(60), f.repo.stock[f.admin.ID][f.product.ID])
	require.Equal(t, int64(15), f.repo.stock[f.franchise.ID][f.product.ID])
	require.Equal(t, int64(10), f.repo.stock[f.distributor.ID][f.product.ID])
	require.Equal(t, int64(9), f.repo.stock[f.dealer.ID][f.product.ID])

	// Units still held plus units consumed by the farmer equal the amount
	// originally injected.
	var held int64
	for _, perProduct := range f.repo.stock {
		held += perProduct[f.product.ID]
	}
	const retired = int64(6)
	require.Equal(t, int64(100), held+retired)
}

func TestNonMemberAdminOrdersStayDealerPricedUntilMembership(t *testing.T) {
	f := newFixture(t)
	f.repo.setStock(f.admin.ID, f.product.ID, 100)
	prospect := f.addMember(members.RoleSubDistributor, &f.admin.ID, false)

	_, err := f.svc.PurchaseFromAdmin(context.Background(), prospect, PurchaseInput{ProductID: f.product.ID, Quantity: 5})
	require.ErrorIs(t, err, shared.ErrValidation)

	tr, err := f.svc.PurchaseFromAdmin(context.Background(), prospect, PurchaseInput{ProductID: f.product.ID, Quantity: 10})
	require.NoError(t, err)
	require.Equal(t, f.product.DealerPrice, tr.UnitPrice)

	// Still not a member: the minimum and the Dealer tier keep applying.
	_, err = f.svc.PurchaseFromAdmin(context.Background(), prospect, PurchaseInput{ProductID: f.product.ID, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	tr, err = f.svc.PurchaseFromAdmin(context.Background(), prospect, PurchaseInput{ProductID: f.product.ID, Quantity: 12})
	require.NoError(t, err)
	require.Equal(t, f.product.DealerPrice, tr.UnitPrice)

	// Membership granted: own tier, no minimum.
	granted := prospect
	granted.IsMember = true
	f.dir[granted.ID] = granted

	tr, err = f.svc.PurchaseFromAdmin(context.Background(), granted, PurchaseInput{ProductID: f.product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, f.product.SubDistributorPrice, tr.UnitPrice)
}

func TestPurchaseRequiresUpline(t *testing.T) {
	f := newFixture(t)
	orphan := f.addMember(members.RoleDealer, nil, true)

	_, err := f.svc.Purchase(context.Background(), orphan, PurchaseInput{ProductID: f.product.ID, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPurchaseRejectsInactiveProduct(t *testing.T) {
	f := newFixture(t)
	archived := f.product
	archived.ID = uuid.New()
	archived.IsActive = false
	f.svc = NewService(f.repo, f.dir, productMap{archived.ID: archived}, nil, slog.Default())
	f.repo.setStock(f.franchise.ID, archived.ID, 20)

	_, err := f.svc.Purchase(context.Background(), f.distributor, PurchaseInput{ProductID: archived.ID, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReceivableSumsPendingOnly(t *testing.T) {
	f := newFixture(t)
	f.repo.setStock(f.franchise.ID, f.product.ID, 20)

	_, err := f.svc.Purchase(context.Background(), f.distributor, PurchaseInput{ProductID: f.product.ID, Quantity: 5})
	require.NoError(t, err)
	_, err = f.svc.Purchase(context.Background(), f.distributor, PurchaseInput{ProductID: f.product.ID, Quantity: 2})
	require.NoError(t, err)
	f.repo.transactions[1].PaymentStatus = StatusPaid

	recv, err := f.svc.Receivable(context.Background(), f.franchise.ID)
	require.NoError(t, err)
	require.Len(t, recv.Transactions, 2)
	require.Equal(t, 550.0, recv.PendingTotal)
}
