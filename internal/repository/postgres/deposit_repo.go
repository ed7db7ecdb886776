package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// DepositLedgerRepository implements domain.DepositLedgerRepository using
// PostgreSQL. Entries are insert-only; the balance is computed, never stored.
type DepositLedgerRepository struct {
	pool *pgxpool.Pool
}

// NewDepositLedgerRepository creates a new DepositLedgerRepository
func NewDepositLedgerRepository(pool *pgxpool.Pool) *DepositLedgerRepository {
	return &DepositLedgerRepository{pool: pool}
}

const depositColumns = `id, company_id, type, network, token, amount, ref, created_at`

// Insert appends a deposit ledger movement.
func (r *DepositLedgerRepository) Insert(ctx context.Context, entry *domain.DepositLedgerEntry) (*domain.DepositLedgerEntry, error) {
	amount, err := decimalToPgNumeric(entry.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	id := entry.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO deposit_ledger (id, company_id, type, network, token, amount, ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING `+depositColumns,
		id, entry.CompanyID, string(entry.Type), entry.Network, entry.Token, amount, entry.Ref,
	)
	created, err := scanDeposit(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrNotFound)
	}
	return created, nil
}

// Balance returns the signed sum over the company's entries: credit types
// add, debit types subtract.
func (r *DepositLedgerRepository) Balance(ctx context.Context, companyID uuid.UUID) (decimal.Decimal, error) {
	var balance pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(
			CASE WHEN type IN ('fund', 'adjustment', 'hold_release') THEN amount
			     ELSE -amount
			END), 0)
		FROM deposit_ledger
		WHERE company_id = $1`,
		companyID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(balance), nil
}

// ListByCompany returns the newest entries for one company.
func (r *DepositLedgerRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int32) ([]*domain.DepositLedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+depositColumns+`
		FROM deposit_ledger
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		companyID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.DepositLedgerEntry
	for rows.Next() {
		entry, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func scanDeposit(row pgx.Row) (*domain.DepositLedgerEntry, error) {
	var e domain.DepositLedgerEntry
	var entryType string
	var amount pgtype.Numeric
	if err := row.Scan(&e.ID, &e.CompanyID, &entryType, &e.Network, &e.Token, &amount, &e.Ref, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Type = domain.DepositEntryType(entryType)
	e.Amount = pgNumericToDecimal(amount)
	return &e, nil
}
