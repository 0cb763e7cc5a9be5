package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	HasActiveByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, stockHolder uuid.UUID, activeOnly bool) ([]Listing, error)
	Create(ctx context.Context, p *Product, adminID uuid.UUID, initialStock int64) error
	Update(ctx context.Context, id uuid.UUID, in UpdateInput, adminID uuid.UUID) (*Product, error)
	Archive(ctx context.Context, id uuid.UUID) error
}

// MemberDirectory is the slice of the members service the catalog needs.
type MemberDirectory interface {
	Admin(ctx context.Context) (*members.Member, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo   RepositoryPort
	dir    MemberDirectory
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, dir MemberDirectory, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, dir: dir, audit: audit, logger: logger}
}

// Get fetches a product.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns active products with the Admin's stock, for purchase forms.
func (s *Service) List(ctx context.Context) ([]Listing, error) {
	admin, err := s.dir.Admin(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, admin.ID, true)
}

// ListAll returns every product, archived included. Admin only.
func (s *Service) ListAll(ctx context.Context, actor members.Member) ([]Listing, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", shared.ErrForbidden)
	}
	admin, err := s.dir.Admin(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, admin.ID, false)
}

// Create registers a new product; optional initial stock is credited to the
// Admin inventory atomically with the product row.
func (s *Service) Create(ctx context.Context, actor members.Member, in CreateInput) (*Product, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the admin can create products", shared.ErrForbidden)
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	for _, price := range in.prices() {
		if price < 0 {
			return nil, fmt.Errorf("%w: prices must be non-negative", shared.ErrValidation)
		}
	}
	if in.InitialStock < 0 {
		return nil, fmt.Errorf("%w: stock must be non-negative", shared.ErrValidation)
	}
	exists, err := s.repo.HasActiveByName(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: an active product named %q already exists", shared.ErrDuplicate, in.Name)
	}

	p := &Product{
		ID:                  uuid.New(),
		Name:                in.Name,
		FranchisePrice:      in.FranchisePrice,
		DistributorPrice:    in.DistributorPrice,
		SubDistributorPrice: in.SubDistributorPrice,
		DealerPrice:         in.DealerPrice,
		FarmerPrice:         in.FarmerPrice,
	}
	if err := s.repo.Create(ctx, p, actor.ID, in.InitialStock); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor.ID, "catalog:create", p.ID, map[string]any{"name": p.Name, "stock": in.InitialStock})
	return p, nil
}

// Update edits a product and resets the Admin's stock to an absolute level.
func (s *Service) Update(ctx context.Context, actor members.Member, id uuid.UUID, in UpdateInput) (*Product, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the admin can edit products", shared.ErrForbidden)
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	for _, price := range in.prices() {
		if price < 0 {
			return nil, fmt.Errorf("%w: prices must be non-negative", shared.ErrValidation)
		}
	}
	if in.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be non-negative", shared.ErrValidation)
	}
	p, err := s.repo.Update(ctx, id, in, actor.ID)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor.ID, "catalog:update", id, map[string]any{"stock": in.Stock})
	return p, nil
}

// Archive retires a product from listings and new purchases. Existing
// inventory and transaction history are preserved; there is deliberately no
// hard-delete path.
func (s *Service) Archive(ctx context.Context, actor members.Member, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only the admin can archive products", shared.ErrForbidden)
	}
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.ID, "catalog:archive", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID.String(),
		Action:   action,
		Entity:   "product",
		EntityID: entityID.String(),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}
