package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/krishilink/krishilink/internal/catalog"
	"github.com/krishilink/krishilink/internal/ledger"
	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListCommissions(ctx context.Context, memberID uuid.UUID) ([]Commission, error)
	PendingCommissionSummaries(ctx context.Context) ([]CommissionSummary, error)
	PendingPayouts(ctx context.Context) ([]PendingPayout, error)
	ListPayouts(ctx context.Context, memberID uuid.UUID) ([]Payout, error)
	WithTx(ctx context.Context, fn func(context.Context, TxSettlement) error) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the payment lifecycle and the commission fan-out. The
// commission walk reads the chain and product prices through the open
// verification transaction, never through pool-backed services.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// AttachProof stores the buyer's payment proof reference. Status does not
// change; an already attached proof is never overwritten.
func (s *Service) AttachProof(ctx context.Context, actor members.Member, txID uuid.UUID, proofRef string) error {
	if proofRef == "" {
		return fmt.Errorf("%w: proof reference is required", shared.ErrValidation)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxSettlement) error {
		tr, err := tx.GetTransactionForUpdate(ctx, txID)
		if err != nil {
			return err
		}
		if tr.BuyerID != actor.ID {
			return fmt.Errorf("%w: only the buyer can attach a proof", shared.ErrForbidden)
		}
		if tr.PaymentStatus != ledger.StatusPending {
			return ErrAlreadySettled
		}
		if tr.PaymentProof != nil {
			return ErrProofAttached
		}
		return tx.SetProof(ctx, txID, proofRef)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.ID, "settlement:attach-proof", txID, nil)
	return nil
}

// MarkPaidDirect settles a transaction without commission fan-out, for
// simple downstream sales the buyer pays on the spot.
func (s *Service) MarkPaidDirect(ctx context.Context, actor members.Member, txID uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxSettlement) error {
		tr, err := tx.GetTransactionForUpdate(ctx, txID)
		if err != nil {
			return err
		}
		if tr.BuyerID != actor.ID {
			return fmt.Errorf("%w: only the buyer can settle their purchase", shared.ErrForbidden)
		}
		if tr.PaymentStatus != ledger.StatusPending {
			return ErrAlreadySettled
		}
		return tx.MarkPaid(ctx, txID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.ID, "settlement:mark-paid", txID, nil)
	return nil
}

// Verify settles a transaction and distributes commissions up the buyer's
// chain, atomically. A second verification fails and creates nothing.
func (s *Service) Verify(ctx context.Context, actor members.Member, txID uuid.UUID) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only the admin can verify payments", shared.ErrForbidden)
	}
	var created int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxSettlement) error {
		tr, err := tx.GetTransactionForUpdate(ctx, txID)
		if err != nil {
			return err
		}
		if tr.PaymentStatus != ledger.StatusPending {
			return ErrAlreadySettled
		}
		if err := tx.MarkPaid(ctx, txID); err != nil {
			return err
		}

		chain, err := tx.UplineChain(ctx, tr.BuyerID)
		if err != nil {
			return err
		}
		product, err := tx.GetProduct(ctx, tr.ProductID)
		if err != nil {
			return err
		}

		// Telescoping walk: each tier earns the spread between the tier
		// below it and its own price, never the full spread to the buyer.
		previousTierPrice := tr.UnitPrice
		for _, link := range chain {
			tierPrice, err := catalog.PriceFor(*product, link.Role)
			if err != nil {
				return err
			}
			perUnit := previousTierPrice - tierPrice
			if perUnit > 0 {
				c := &Commission{
					ID:            uuid.New(),
					MemberID:      link.ID,
					TransactionID: tr.ID,
					Amount:        perUnit * float64(tr.Quantity),
					Status:        CommissionPending,
				}
				if err := tx.InsertCommission(ctx, c); err != nil {
					return err
				}
				created++
			}
			previousTierPrice = tierPrice
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.ID, "settlement:verify", txID, map[string]any{"commissions": created})
	return nil
}

// Commissions returns a member's commission history with the pending total.
func (s *Service) Commissions(ctx context.Context, memberID uuid.UUID) ([]Commission, float64, error) {
	list, err := s.repo.ListCommissions(ctx, memberID)
	if err != nil {
		return nil, 0, err
	}
	var pending float64
	for _, c := range list {
		if c.Status == CommissionPending {
			pending += c.Amount
		}
	}
	return list, pending, nil
}

// PendingCommissions returns outstanding commission totals per member.
// Admin only.
func (s *Service) PendingCommissions(ctx context.Context, actor members.Member) ([]CommissionSummary, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", shared.ErrForbidden)
	}
	return s.repo.PendingCommissionSummaries(ctx)
}

// PayCommissions settles every pending commission of a member in bulk and
// appends the matching payout record. Nothing pending is an error, not a
// silent no-op.
func (s *Service) PayCommissions(ctx context.Context, actor members.Member, memberID uuid.UUID) (*Payout, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the admin can pay commissions", shared.ErrForbidden)
	}
	payout := &Payout{ID: uuid.New(), MemberID: memberID}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxSettlement) error {
		count, total, err := tx.PayCommissions(ctx, memberID)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNoPendingCommissions
		}
		payout.Amount = total
		return tx.InsertPayout(ctx, payout)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor.ID, "settlement:pay-commissions", memberID, map[string]any{"amount": payout.Amount})
	return payout, nil
}

// PendingPayouts returns the earned-minus-paid balance per reseller.
// Admin only.
func (s *Service) PendingPayouts(ctx context.Context, actor members.Member) ([]PendingPayout, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", shared.ErrForbidden)
	}
	return s.repo.PendingPayouts(ctx)
}

// Payouts returns a member's payout history.
func (s *Service) Payouts(ctx context.Context, memberID uuid.UUID) ([]Payout, error) {
	return s.repo.ListPayouts(ctx, memberID)
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
