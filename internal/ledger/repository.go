package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krishilink/krishilink/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for inventory and
// transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const transactionColumns = `id, seller_id, buyer_id, product_id, quantity, unit_price, total_amount, profit, payment_status, payment_proof, created_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.SellerID, &t.BuyerID, &t.ProductID, &t.Quantity,
		&t.UnitPrice, &t.TotalAmount, &t.Profit, &t.PaymentStatus, &t.PaymentProof, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Get fetches a transaction by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// Inventory returns the stock lines a member holds, product name included.
func (r *Repository) Inventory(ctx context.Context, holderID uuid.UUID) ([]InventoryItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.product_id, p.name, i.quantity
		FROM inventory_records i
		JOIN products p ON p.id = i.product_id
		WHERE i.holder_id = $1
		ORDER BY p.name`, holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InventoryItem
	for rows.Next() {
		var item InventoryItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListPayable returns a buyer's transactions still awaiting payment.
func (r *Repository) ListPayable(ctx context.Context, buyerID uuid.UUID) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE buyer_id = $1 AND payment_status = $2
		 ORDER BY created_at DESC`, buyerID, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListBySeller returns every transaction where the member sold.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE seller_id = $1
		 ORDER BY created_at DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListAll returns the full sales ledger, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// TxLedger exposes the mutations of the purchase flow, all bound to one
// transaction.
type TxLedger interface {
	StockForUpdate(ctx context.Context, holderID, productID uuid.UUID) (int64, error)
	DecrementStock(ctx context.Context, holderID, productID uuid.UUID, qty int64) error
	IncrementStock(ctx context.Context, holderID, productID uuid.UUID, qty int64) error
	InsertTransaction(ctx context.Context, t *Transaction) error
}

type txLedger struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txLedger{tx: tx})
	})
}

// StockForUpdate locks the holder's inventory row and returns its quantity.
// A holder without a row for the product simply has zero stock.
func (t *txLedger) StockForUpdate(ctx context.Context, holderID, productID uuid.UUID) (int64, error) {
	var qty int64
	err := t.tx.QueryRow(ctx,
		`SELECT quantity FROM inventory_records
		 WHERE holder_id = $1 AND product_id = $2
		 FOR UPDATE`, holderID, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: lock stock: %w", err)
	}
	return qty, nil
}

func (t *txLedger) DecrementStock(ctx context.Context, holderID, productID uuid.UUID, qty int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE inventory_records SET quantity = quantity - $3
		 WHERE holder_id = $1 AND product_id = $2 AND quantity >= $3`,
		holderID, productID, qty)
	if err != nil {
		return fmt.Errorf("ledger: decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d units requested", ErrInsufficientStock, qty)
	}
	return nil
}

func (t *txLedger) IncrementStock(ctx context.Context, holderID, productID uuid.UUID, qty int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory_records (id, holder_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (holder_id, product_id) DO UPDATE SET quantity = inventory_records.quantity + EXCLUDED.quantity`,
		uuid.New(), holderID, productID, qty)
	if err != nil {
		return fmt.Errorf("ledger: increment stock: %w", err)
	}
	return nil
}

func (t *txLedger) InsertTransaction(ctx context.Context, tr *Transaction) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO transactions (id, seller_id, buyer_id, product_id, quantity, unit_price, total_amount, profit, payment_status, payment_proof, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at`,
		tr.ID, tr.SellerID, tr.BuyerID, tr.ProductID, tr.Quantity,
		tr.UnitPrice, tr.TotalAmount, tr.Profit, tr.PaymentStatus, tr.PaymentProof,
	).Scan(&tr.CreatedAt)
	if err != nil {
		return fmt.Errorf("ledger: insert transaction: %w", err)
	}
	return nil
}
