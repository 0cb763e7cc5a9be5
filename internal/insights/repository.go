package insights

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krishilink/krishilink/internal/members"
)

// Repository computes the dashboard aggregates straight from the tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Collect gathers the raw aggregates in one round trip.
func (r *Repository) Collect(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM members WHERE role <> $1),
			(SELECT COUNT(*) FROM products WHERE is_active),
			(SELECT COALESCE(SUM(total_amount), 0) FROM transactions),
			(SELECT COALESCE(SUM(profit), 0) FROM transactions),
			(SELECT COUNT(*) FROM transactions WHERE payment_status = 'PENDING'),
			(SELECT COALESCE(SUM(amount), 0) FROM commissions WHERE status = 'PENDING')`,
		members.RoleAdmin,
	).Scan(
		&snap.TotalMembers,
		&snap.ActiveProducts,
		&snap.TotalSales,
		&snap.TotalProfit,
		&snap.PendingVerifications,
		&snap.PendingCommissions,
	)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
