package members

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

// Repository provides PostgreSQL backed persistence for members.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const memberColumns = `id, member_no, name, password_hash, role, upline_id, is_member, mobile, email, address, created_at, updated_at`

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.MemberNo, &m.Name, &m.PasswordHash, &m.Role, &m.UplineID,
		&m.IsMember, &m.Mobile, &m.Email, &m.Address, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Get fetches a member by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	return scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
}

// GetByMemberNo fetches a member by their public member number.
func (r *Repository) GetByMemberNo(ctx context.Context, memberNo string) (*Member, error) {
	return scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE member_no = $1`, memberNo))
}

// FindAdmin returns the unique hierarchy root.
func (r *Repository) FindAdmin(ctx context.Context) (*Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE role = $1`, RoleAdmin))
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, ErrAdminMissing
		}
		return nil, err
	}
	return m, nil
}

// ListByRole returns members holding the given role.
func (r *Repository) ListByRole(ctx context.Context, role Role) ([]Member, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE role = $1 ORDER BY created_at`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMembers(rows)
}

// ListNonAdmin returns every member except the root, for admin listings.
func (r *Repository) ListNonAdmin(ctx context.Context) ([]Member, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE role <> $1 ORDER BY created_at`, RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMembers(rows)
}

// DirectDownline returns the members whose upline is the given member.
func (r *Repository) DirectDownline(ctx context.Context, id uuid.UUID) ([]Member, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE upline_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMembers(rows)
}

func collectMembers(rows pgx.Rows) ([]Member, error) {
	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Create inserts a new member.
func (r *Repository) Create(ctx context.Context, m *Member) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO members (id, member_no, name, password_hash, role, upline_id, is_member, mobile, email, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at`,
		m.ID, m.MemberNo, m.Name, m.PasswordHash, m.Role, m.UplineID,
		m.IsMember, m.Mobile, m.Email, m.Address,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: member number %s", shared.ErrDuplicate, m.MemberNo)
		}
		return fmt.Errorf("members: create: %w", err)
	}
	return nil
}

// UpdateProfile updates editable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateInput) (*Member, error) {
	return scanMember(r.pool.QueryRow(ctx, `
		UPDATE members
		SET name = $2, mobile = $3, email = $4, address = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+memberColumns, id, in.Name, in.Mobile, in.Email, in.Address))
}

// SetMembership flips the membership-activation flag.
// SetPasswordHash replaces a member's stored password hash.
func (r *Repository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE members SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *Repository) SetMembership(ctx context.Context, id uuid.UUID, isMember bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE members SET is_member = $2, updated_at = NOW() WHERE id = $1`, id, isMember)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// TxRepository exposes the operations of the delete cascade.
type TxRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Member, error)
	ReparentChildren(ctx context.Context, from uuid.UUID, to *uuid.UUID) error
	PurgeMemberData(ctx context.Context, id uuid.UUID) error
	DeleteMember(ctx context.Context, id uuid.UUID) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	return scanMember(t.tx.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1 FOR UPDATE`, id))
}

// ReparentChildren re-attaches the direct downline of `from` to `to`,
// preserving tree connectivity before the member is removed.
func (t *txRepo) ReparentChildren(ctx context.Context, from uuid.UUID, to *uuid.UUID) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE members SET upline_id = $2, updated_at = NOW() WHERE upline_id = $1`, from, to)
	return err
}

// PurgeMemberData removes the member's dependent rows: payouts, commissions
// (their own and those backed by their transactions), inventory and the
// transactions they took part in.
func (t *txRepo) PurgeMemberData(ctx context.Context, id uuid.UUID) error {
	statements := []string{
		`DELETE FROM payouts WHERE member_id = $1`,
		`DELETE FROM commissions WHERE member_id = $1
		   OR transaction_id IN (SELECT id FROM transactions WHERE seller_id = $1 OR buyer_id = $1)`,
		`DELETE FROM inventory_records WHERE holder_id = $1`,
		`DELETE FROM transactions WHERE seller_id = $1 OR buyer_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := t.tx.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("members: purge: %w", err)
		}
	}
	return nil
}

func (t *txRepo) DeleteMember(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}
