package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krishilink/krishilink/internal/platform/db"
	"github.com/krishilink/krishilink/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, franchise_price, distributor_price, sub_distributor_price, dealer_price, farmer_price, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.FranchisePrice, &p.DistributorPrice,
		&p.SubDistributorPrice, &p.DealerPrice, &p.FarmerPrice, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Get fetches a product by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// HasActiveByName reports whether an active product with this name exists.
func (r *Repository) HasActiveByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE name = $1 AND is_active)`, name).Scan(&exists)
	return exists, err
}

// List returns products joined with the stock the given holder carries.
// When activeOnly is set, archived products are excluded.
func (r *Repository) List(ctx context.Context, stockHolder uuid.UUID, activeOnly bool) ([]Listing, error) {
	query := `
		SELECT p.id, p.name, p.franchise_price, p.distributor_price, p.sub_distributor_price,
		       p.dealer_price, p.farmer_price, p.is_active, p.created_at, p.updated_at,
		       COALESCE(i.quantity, 0)
		FROM products p
		LEFT JOIN inventory_records i ON i.product_id = p.id AND i.holder_id = $1`
	if activeOnly {
		query += ` WHERE p.is_active`
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := r.pool.Query(ctx, query, stockHolder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		var l Listing
		err := rows.Scan(&l.ID, &l.Name, &l.FranchisePrice, &l.DistributorPrice,
			&l.SubDistributorPrice, &l.DealerPrice, &l.FarmerPrice, &l.IsActive,
			&l.CreatedAt, &l.UpdatedAt, &l.AdminStock)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Create inserts the product and, when initial stock is provided, credits it
// to the Admin's inventory in the same transaction.
func (r *Repository) Create(ctx context.Context, p *Product, adminID uuid.UUID, initialStock int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO products (id, name, franchise_price, distributor_price, sub_distributor_price, dealer_price, farmer_price, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
			RETURNING created_at, updated_at`,
			p.ID, p.Name, p.FranchisePrice, p.DistributorPrice,
			p.SubDistributorPrice, p.DealerPrice, p.FarmerPrice,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("%w: product name %q", shared.ErrDuplicate, p.Name)
			}
			return fmt.Errorf("catalog: create: %w", err)
		}
		p.IsActive = true
		if initialStock > 0 {
			_, err = tx.Exec(ctx, `
				INSERT INTO inventory_records (id, holder_id, product_id, quantity)
				VALUES ($1, $2, $3, $4)`,
				uuid.New(), adminID, p.ID, initialStock)
			if err != nil {
				return fmt.Errorf("catalog: initial stock: %w", err)
			}
		}
		return nil
	})
}

// Update rewrites name and tier prices and resets the Admin stock level to an
// absolute quantity, atomically.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in UpdateInput, adminID uuid.UUID) (*Product, error) {
	var updated *Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := scanProduct(tx.QueryRow(ctx, `
			UPDATE products
			SET name = $2, franchise_price = $3, distributor_price = $4,
			    sub_distributor_price = $5, dealer_price = $6, farmer_price = $7,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING `+productColumns,
			id, in.Name, in.FranchisePrice, in.DistributorPrice,
			in.SubDistributorPrice, in.DealerPrice, in.FarmerPrice))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO inventory_records (id, holder_id, product_id, quantity)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (holder_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
			uuid.New(), adminID, id, in.Stock)
		if err != nil {
			return fmt.Errorf("catalog: reset stock: %w", err)
		}
		updated = p
		return nil
	})
	return updated, err
}

// Archive soft-deletes the product. Inventory and transaction history stay
// intact; the product just disappears from listings and new purchases.
func (r *Repository) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
