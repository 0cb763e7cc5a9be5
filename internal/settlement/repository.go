package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krishilink/krishilink/internal/catalog"
	"github.com/krishilink/krishilink/internal/ledger"
	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/platform/db"
	"github.com/krishilink/krishilink/internal/shared"
)

// Repository provides PostgreSQL backed persistence for settlement state:
// transaction lifecycle fields, commissions and payouts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListCommissions returns a member's commissions, newest first.
func (r *Repository) ListCommissions(ctx context.Context, memberID uuid.UUID) ([]Commission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, member_id, transaction_id, amount, status, created_at
		FROM commissions
		WHERE member_id = $1
		ORDER BY created_at DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Commission
	for rows.Next() {
		var c Commission
		if err := rows.Scan(&c.ID, &c.MemberID, &c.TransactionID, &c.Amount, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PendingCommissionSummaries groups outstanding commissions per member.
func (r *Repository) PendingCommissionSummaries(ctx context.Context) ([]CommissionSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.member_no, m.name, m.role, SUM(c.amount)
		FROM commissions c
		JOIN members m ON m.id = c.member_id
		WHERE c.status = $1
		GROUP BY m.id, m.member_no, m.name, m.role
		ORDER BY SUM(c.amount) DESC`, CommissionPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CommissionSummary
	for rows.Next() {
		var s CommissionSummary
		if err := rows.Scan(&s.MemberID, &s.MemberNo, &s.Name, &s.Role, &s.Total); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PendingPayouts computes, per reseller, seller profit earned minus payouts
// already made, keeping only positive balances.
func (r *Repository) PendingPayouts(ctx context.Context) ([]PendingPayout, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.member_no, m.name, m.role,
		       COALESCE(e.earned, 0) - COALESCE(p.paid, 0) AS balance
		FROM members m
		LEFT JOIN (
			SELECT seller_id, SUM(profit) AS earned FROM transactions GROUP BY seller_id
		) e ON e.seller_id = m.id
		LEFT JOIN (
			SELECT member_id, SUM(amount) AS paid FROM payouts GROUP BY member_id
		) p ON p.member_id = m.id
		WHERE m.role NOT IN ($1, $2)
		  AND COALESCE(e.earned, 0) - COALESCE(p.paid, 0) > 0
		ORDER BY balance DESC`, members.RoleAdmin, members.RoleFarmer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingPayout
	for rows.Next() {
		var p PendingPayout
		if err := rows.Scan(&p.MemberID, &p.MemberNo, &p.Name, &p.Role, &p.Amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPayouts returns a member's payout history, newest first.
func (r *Repository) ListPayouts(ctx context.Context, memberID uuid.UUID) ([]Payout, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, member_id, amount, created_at
		FROM payouts
		WHERE member_id = $1
		ORDER BY created_at DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payout
	for rows.Next() {
		var p Payout
		if err := rows.Scan(&p.ID, &p.MemberID, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TxSettlement exposes the lifecycle mutations plus the reads the commission
// walk needs, all bound to one transaction so verification prices and the
// chain come from the same snapshot as the status flip.
type TxSettlement interface {
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)
	UplineChain(ctx context.Context, memberID uuid.UUID) ([]members.ChainLink, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	SetProof(ctx context.Context, id uuid.UUID, proofRef string) error
	MarkPaid(ctx context.Context, id uuid.UUID) error
	InsertCommission(ctx context.Context, c *Commission) error
	PayCommissions(ctx context.Context, memberID uuid.UUID) (count int64, total float64, err error)
	InsertPayout(ctx context.Context, p *Payout) error
}

type txSettlement struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxSettlement) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txSettlement{tx: tx})
	})
}

func (t *txSettlement) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var tr ledger.Transaction
	err := t.tx.QueryRow(ctx, `
		SELECT id, seller_id, buyer_id, product_id, quantity, unit_price, total_amount, profit, payment_status, payment_proof, created_at
		FROM transactions
		WHERE id = $1
		FOR UPDATE`, id).Scan(
		&tr.ID, &tr.SellerID, &tr.BuyerID, &tr.ProductID, &tr.Quantity,
		&tr.UnitPrice, &tr.TotalAmount, &tr.Profit, &tr.PaymentStatus, &tr.PaymentProof, &tr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound
		}
		return nil, err
	}
	return &tr, nil
}

// UplineChain walks the buyer's upline links within the transaction, direct
// upline first, stopping at the Admin. A revisited node means the tree is
// corrupt.
func (t *txSettlement) UplineChain(ctx context.Context, memberID uuid.UUID) ([]members.ChainLink, error) {
	var chain []members.ChainLink
	current := memberID
	seen := map[uuid.UUID]bool{memberID: true}
	for {
		var link members.ChainLink
		err := t.tx.QueryRow(ctx, `
			SELECT u.id, u.role
			FROM members m
			JOIN members u ON u.id = m.upline_id
			WHERE m.id = $1`, current).Scan(&link.ID, &link.Role)
		if errors.Is(err, pgx.ErrNoRows) {
			return chain, nil
		}
		if err != nil {
			return nil, err
		}
		if seen[link.ID] {
			return nil, fmt.Errorf("%w: upline chain is cyclic", shared.ErrIntegrity)
		}
		seen[link.ID] = true
		if link.Role == members.RoleAdmin {
			return chain, nil
		}
		chain = append(chain, link)
		current = link.ID
	}
}

func (t *txSettlement) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var p catalog.Product
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, franchise_price, distributor_price, sub_distributor_price, dealer_price, farmer_price, is_active, created_at, updated_at
		FROM products
		WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &p.FranchisePrice, &p.DistributorPrice, &p.SubDistributorPrice,
		&p.DealerPrice, &p.FarmerPrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (t *txSettlement) SetProof(ctx context.Context, id uuid.UUID, proofRef string) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE transactions SET payment_proof = $2
		WHERE id = $1 AND payment_status = $3 AND payment_proof IS NULL`,
		id, proofRef, ledger.StatusPending)
	if err != nil {
		return fmt.Errorf("settlement: set proof: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProofAttached
	}
	return nil
}

// MarkPaid flips PENDING to PAID. The status guard in the WHERE clause makes
// the transition exactly-once even under concurrent verifiers.
func (t *txSettlement) MarkPaid(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE transactions SET payment_status = $2
		WHERE id = $1 AND payment_status = $3`,
		id, ledger.StatusPaid, ledger.StatusPending)
	if err != nil {
		return fmt.Errorf("settlement: mark paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadySettled
	}
	return nil
}

func (t *txSettlement) InsertCommission(ctx context.Context, c *Commission) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO commissions (id, member_id, transaction_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at`,
		c.ID, c.MemberID, c.TransactionID, c.Amount, c.Status,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("settlement: insert commission: %w", err)
	}
	return nil
}

func (t *txSettlement) PayCommissions(ctx context.Context, memberID uuid.UUID) (int64, float64, error) {
	var count int64
	var total float64
	err := t.tx.QueryRow(ctx, `
		WITH paid AS (
			UPDATE commissions SET status = $2
			WHERE member_id = $1 AND status = $3
			RETURNING amount
		)
		SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM paid`,
		memberID, CommissionPaid, CommissionPending).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("settlement: pay commissions: %w", err)
	}
	return count, total, nil
}

func (t *txSettlement) InsertPayout(ctx context.Context, p *Payout) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payouts (id, member_id, amount, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at`,
		p.ID, p.MemberID, p.Amount,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("settlement: insert payout: %w", err)
	}
	return nil
}
