package members

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/krishilink/krishilink/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (*Member, error)
	GetByMemberNo(ctx context.Context, memberNo string) (*Member, error)
	FindAdmin(ctx context.Context) (*Member, error)
	ListByRole(ctx context.Context, role Role) ([]Member, error)
	ListNonAdmin(ctx context.Context) ([]Member, error)
	DirectDownline(ctx context.Context, id uuid.UUID) ([]Member, error)
	Create(ctx context.Context, m *Member) error
	UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateInput) (*Member, error)
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	SetMembership(ctx context.Context, id uuid.UUID, isMember bool) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates member lifecycle and hierarchy resolution.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Get fetches a member by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	return s.repo.Get(ctx, id)
}

// GetByMemberNo fetches a member by public number, for credential checks.
func (s *Service) GetByMemberNo(ctx context.Context, memberNo string) (*Member, error) {
	return s.repo.GetByMemberNo(ctx, memberNo)
}

// Admin returns the unique hierarchy root.
func (s *Service) Admin(ctx context.Context) (*Member, error) {
	return s.repo.FindAdmin(ctx)
}

// UplineChain resolves the ordered upline chain of a member, direct upline
// first, excluding the root Admin. An Admin (or a member with no upline)
// yields an empty chain. Traversal is capped: exceeding the cap or
// revisiting a node means the tree is corrupt and the walk aborts.
func (s *Service) UplineChain(ctx context.Context, memberID uuid.UUID) ([]ChainLink, error) {
	current, err := s.repo.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}

	var chain []ChainLink
	seen := map[uuid.UUID]bool{current.ID: true}
	for hop := 0; current.UplineID != nil; hop++ {
		if hop >= maxChainDepth {
			return nil, ErrHierarchyCorrupt
		}
		upline, err := s.repo.Get(ctx, *current.UplineID)
		if err != nil {
			return nil, fmt.Errorf("members: broken upline link from %s: %w", current.ID, err)
		}
		if seen[upline.ID] {
			return nil, ErrHierarchyCorrupt
		}
		seen[upline.ID] = true
		if upline.IsAdmin() {
			break
		}
		chain = append(chain, ChainLink{ID: upline.ID, Role: upline.Role})
		current = upline
	}
	return chain, nil
}

// Create registers a new member under an upline. Only the Admin or the
// member's own upline may create it. Franchises are always parented to the
// Admin regardless of the requested upline. Returns the member and the
// generated raw password, surfaced exactly once.
func (s *Service) Create(ctx context.Context, actor Member, in CreateInput) (*Member, string, error) {
	if in.Name == "" {
		return nil, "", fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	role, err := ParseRole(in.Role)
	if err != nil {
		return nil, "", err
	}
	if role == RoleAdmin {
		return nil, "", fmt.Errorf("%w: the admin account is fixed and cannot be created", shared.ErrValidation)
	}

	uplineID := in.UplineID
	if role == RoleFranchise {
		admin, err := s.repo.FindAdmin(ctx)
		if err != nil {
			return nil, "", err
		}
		uplineID = &admin.ID
	}
	if uplineID == nil {
		return nil, "", ErrNoUpline
	}
	if !actor.IsAdmin() && actor.ID != *uplineID {
		return nil, "", fmt.Errorf("%w: only the admin or the direct upline can register a member", shared.ErrForbidden)
	}
	if _, err := s.repo.Get(ctx, *uplineID); err != nil {
		return nil, "", fmt.Errorf("members: upline: %w", err)
	}

	suffix := 1000 + rand.Intn(9000)
	memberNo := fmt.Sprintf("%s%d", role.MemberNoPrefix(), suffix)
	rawPassword := generatePassword(in.Name, suffix)
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("members: hash password: %w", err)
	}

	m := &Member{
		ID:           uuid.New(),
		MemberNo:     memberNo,
		Name:         in.Name,
		PasswordHash: string(hash),
		Role:         role,
		UplineID:     uplineID,
		Mobile:       in.Mobile,
		Email:        in.Email,
		Address:      in.Address,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, "", err
	}

	s.recordAudit(ctx, actor.ID, "members:create", m.ID, map[string]any{
		"member_no": m.MemberNo,
		"role":      string(m.Role),
	})
	return m, rawPassword, nil
}

// UpdateProfile edits a member's contact details.
func (s *Service) UpdateProfile(ctx context.Context, actor Member, id uuid.UUID, in UpdateInput) (*Member, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the admin can edit member profiles", shared.ErrForbidden)
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	m, err := s.repo.UpdateProfile(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor.ID, "members:update", id, nil)
	return m, nil
}

// ChangePassword rotates the actor's own password after verifying the
// current one.
func (s *Service) ChangePassword(ctx context.Context, actor Member, current, next string) error {
	if current == "" || next == "" {
		return fmt.Errorf("%w: both current and new password are required", shared.ErrValidation)
	}
	if len(next) < minPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", shared.ErrValidation, minPasswordLength)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(actor.PasswordHash), []byte(current)); err != nil {
		return fmt.Errorf("%w: current password is incorrect", shared.ErrInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("members: hash password: %w", err)
	}
	if err := s.repo.SetPasswordHash(ctx, actor.ID, string(hash)); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.ID, "members:change-password", actor.ID, nil)
	return nil
}

// Delete removes a member. Their direct downline is re-attached to the
// deleted member's own upline, and their payouts, commissions, inventory and
// transactions are purged, all in one transaction.
func (s *Service) Delete(ctx context.Context, actor Member, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only the admin can remove members", shared.ErrForbidden)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		target, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if target.IsAdmin() {
			return ErrAdminProtected
		}
		if err := tx.ReparentChildren(ctx, id, target.UplineID); err != nil {
			return err
		}
		if err := tx.PurgeMemberData(ctx, id); err != nil {
			return err
		}
		return tx.DeleteMember(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.ID, "members:delete", id, nil)
	return nil
}

// GrantMembership activates membership for a reseller-tier member.
func (s *Service) GrantMembership(ctx context.Context, actor Member, id uuid.UUID) (*Member, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the admin can grant membership", shared.ErrForbidden)
	}
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.Role == RoleAdmin || target.Role == RoleFarmer {
		return nil, fmt.Errorf("%w: role %s does not require membership", shared.ErrValidation, target.Role)
	}
	if target.IsMember {
		return nil, fmt.Errorf("%w: member is already activated", shared.ErrInvalidState)
	}
	if err := s.repo.SetMembership(ctx, id, true); err != nil {
		return nil, err
	}
	target.IsMember = true
	s.recordAudit(ctx, actor.ID, "members:grant-membership", id, nil)
	return target, nil
}

// ListByRole returns members of a given role.
func (s *Service) ListByRole(ctx context.Context, role string) ([]Member, error) {
	parsed, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByRole(ctx, parsed)
}

// ListAll returns every non-admin member.
func (s *Service) ListAll(ctx context.Context) ([]Member, error) {
	return s.repo.ListNonAdmin(ctx)
}

// Downline returns a member's direct downline.
func (s *Service) Downline(ctx context.Context, id uuid.UUID) ([]Member, error) {
	return s.repo.DirectDownline(ctx, id)
}

// Tree builds the recursive downline tree rooted at a member.
func (s *Service) Tree(ctx context.Context, rootID uuid.UUID) (*TreeNode, error) {
	root, err := s.repo.Get(ctx, rootID)
	if err != nil {
		return nil, err
	}
	return s.buildTree(ctx, *root, 0)
}

func (s *Service) buildTree(ctx context.Context, m Member, depth int) (*TreeNode, error) {
	if depth >= maxChainDepth {
		return nil, ErrHierarchyCorrupt
	}
	node := &TreeNode{Member: m}
	children, err := s.repo.DirectDownline(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		sub, err := s.buildTree(ctx, child, depth+1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, sub)
	}
	return node, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID.String(),
		Action:   action,
		Entity:   "member",
		EntityID: entityID.String(),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}

func generatePassword(name string, suffix int) string {
	first := ""
	if fields := strings.Fields(name); len(fields) > 0 {
		first = strings.ToLower(fields[0])
	}
	clean := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, first)
	if clean == "" {
		clean = "member"
	}
	return fmt.Sprintf("%s%d", clean, suffix)
}
