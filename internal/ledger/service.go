package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/krishilink/krishilink/internal/catalog"
	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
	Inventory(ctx context.Context, holderID uuid.UUID) ([]InventoryItem, error)
	ListPayable(ctx context.Context, buyerID uuid.UUID) ([]Transaction, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]Transaction, error)
	ListAll(ctx context.Context) ([]Transaction, error)
	WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error
}

// MemberDirectory is the slice of the members service the ledger needs.
type MemberDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*members.Member, error)
	Admin(ctx context.Context) (*members.Member, error)
}

// CatalogPort resolves products for pricing.
type CatalogPort interface {
	Get(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service runs the purchase flows: one atomic stock transfer plus one
// transaction record per order.
type Service struct {
	repo    RepositoryPort
	dir     MemberDirectory
	catalog CatalogPort
	audit   AuditPort
	logger  *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, dir MemberDirectory, cat CatalogPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, dir: dir, catalog: cat, audit: audit, logger: logger}
}

// Purchase orders stock from the buyer's direct upline at the buyer's own
// tier price.
func (s *Service) Purchase(ctx context.Context, actor members.Member, in PurchaseInput) (*Transaction, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	if actor.UplineID == nil {
		return nil, fmt.Errorf("%w: member has no upline to purchase from", shared.ErrValidation)
	}
	seller, err := s.dir.Get(ctx, *actor.UplineID)
	if err != nil {
		return nil, fmt.Errorf("ledger: upline: %w", err)
	}

	product, err := s.activeProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	unitPrice, err := catalog.PriceFor(*product, actor.Role)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, *seller, actor, *product, in.Quantity, unitPrice)
}

// PurchaseFromAdmin orders stock straight from the Admin stockholder. Every
// order by a prospective reseller must meet the minimum quantity and is
// priced at the Dealer tier until membership is granted.
func (s *Service) PurchaseFromAdmin(ctx context.Context, actor members.Member, in PurchaseInput) (*Transaction, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	if actor.IsAdmin() {
		return nil, fmt.Errorf("%w: the admin cannot purchase", shared.ErrValidation)
	}
	admin, err := s.dir.Admin(ctx)
	if err != nil {
		return nil, err
	}
	product, err := s.activeProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	unitPrice, err := catalog.PriceFor(*product, actor.Role)
	if err != nil {
		return nil, err
	}
	if !actor.IsMember && actor.Role != members.RoleFarmer {
		if in.Quantity < minInitialQuantity {
			return nil, fmt.Errorf("%w: orders before membership must be at least %d units", shared.ErrValidation, minInitialQuantity)
		}
		unitPrice = product.DealerPrice
	}
	return s.execute(ctx, *admin, actor, *product, in.Quantity, unitPrice)
}

func (s *Service) activeProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	product, err := s.catalog.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, catalog.ErrProductInactive
	}
	return product, nil
}

// execute moves stock from seller to buyer and records the sale, all in one
// transaction. Farmer buyers consume the goods: their side of the ledger is
// never credited.
func (s *Service) execute(ctx context.Context, seller, buyer members.Member, product catalog.Product, qty int64, unitPrice float64) (*Transaction, error) {
	cost, err := catalog.CostFor(product, seller.Role)
	if err != nil {
		return nil, err
	}

	tr := &Transaction{
		ID:            uuid.New(),
		SellerID:      seller.ID,
		BuyerID:       buyer.ID,
		ProductID:     product.ID,
		Quantity:      qty,
		UnitPrice:     unitPrice,
		TotalAmount:   unitPrice * float64(qty),
		Profit:        (unitPrice - cost) * float64(qty),
		PaymentStatus: StatusPending,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxLedger) error {
		stock, err := tx.StockForUpdate(ctx, seller.ID, product.ID)
		if err != nil {
			return err
		}
		if stock < qty {
			return fmt.Errorf("%w: seller holds %d units, %d requested", ErrInsufficientStock, stock, qty)
		}
		if err := tx.DecrementStock(ctx, seller.ID, product.ID, qty); err != nil {
			return err
		}
		if buyer.Role.HoldsStock() {
			if err := tx.IncrementStock(ctx, buyer.ID, product.ID, qty); err != nil {
				return err
			}
		}
		return tx.InsertTransaction(ctx, tr)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, buyer.ID, "ledger:purchase", tr.ID, map[string]any{
		"seller":   seller.ID.String(),
		"product":  product.ID.String(),
		"quantity": qty,
		"total":    tr.TotalAmount,
	})
	return tr, nil
}

// Inventory returns the member's stock lines.
func (s *Service) Inventory(ctx context.Context, memberID uuid.UUID) ([]InventoryItem, error) {
	return s.repo.Inventory(ctx, memberID)
}

// UplineInventory returns what the member's direct upline currently holds,
// so the member can see what is available to order.
func (s *Service) UplineInventory(ctx context.Context, actor members.Member) ([]InventoryItem, error) {
	if actor.UplineID == nil {
		return nil, fmt.Errorf("%w: member has no upline", shared.ErrValidation)
	}
	return s.repo.Inventory(ctx, *actor.UplineID)
}

// Payable lists the member's own purchases still awaiting payment.
func (s *Service) Payable(ctx context.Context, buyerID uuid.UUID) ([]Transaction, error) {
	return s.repo.ListPayable(ctx, buyerID)
}

// Receivable lists the member's sales with the total still awaiting payment.
func (s *Service) Receivable(ctx context.Context, sellerID uuid.UUID) (*Receivables, error) {
	list, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	out := &Receivables{Transactions: list}
	for _, t := range list {
		if t.PaymentStatus == StatusPending {
			out.PendingTotal += t.TotalAmount
		}
	}
	return out, nil
}

// SalesReport returns the complete ledger. Admin only.
func (s *Service) SalesReport(ctx context.Context, actor members.Member) ([]Transaction, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", shared.ErrForbidden)
	}
	return s.repo.ListAll(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID.String(),
		Action:   action,
		Entity:   "transaction",
		EntityID: entityID.String(),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}
