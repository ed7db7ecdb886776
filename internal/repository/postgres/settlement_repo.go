package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rello/rello-backend/internal/domain"
)

// EodSettlementRepository implements domain.EodSettlementRepository using
// PostgreSQL. The unique index on session_id backs the
// one-settlement-per-session invariant.
type EodSettlementRepository struct {
	pool *pgxpool.Pool
}

// NewEodSettlementRepository creates a new EodSettlementRepository
func NewEodSettlementRepository(pool *pgxpool.Pool) *EodSettlementRepository {
	return &EodSettlementRepository{pool: pool}
}

const settlementColumns = `id, session_id, payer_company_id, payee_company_id, network, token,
	amount, value, status, created_at`

// Insert creates a settlement; a second settlement for the same session is
// rejected with ErrDuplicateKey.
func (r *EodSettlementRepository) Insert(ctx context.Context, s *domain.EodSettlement) (*domain.EodSettlement, error) {
	amount, err := decimalToPgNumeric(s.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	value, err := decimalToPgNumeric(s.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	}

	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO eod_settlement (id, session_id, payer_company_id, payee_company_id, network, token,
			amount, value, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING `+settlementColumns,
		id, s.SessionID, s.PayerCompanyID, s.PayeeCompanyID, s.Network, s.Token,
		amount, value, string(s.Status),
	)
	created, err := scanSettlement(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrNotFound)
	}
	return created, nil
}

// GetBySession retrieves the settlement for one session, if any.
func (r *EodSettlementRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*domain.EodSettlement, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+settlementColumns+`
		FROM eod_settlement
		WHERE session_id = $1`,
		sessionID,
	)
	s, err := scanSettlement(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrNotFound)
	}
	return s, nil
}

func scanSettlement(row pgx.Row) (*domain.EodSettlement, error) {
	var s domain.EodSettlement
	var status string
	var amount, value pgtype.Numeric
	if err := row.Scan(
		&s.ID, &s.SessionID, &s.PayerCompanyID, &s.PayeeCompanyID, &s.Network, &s.Token,
		&amount, &value, &status, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.Status = domain.SettlementStatus(status)
	s.Amount = pgNumericToDecimal(amount)
	s.Value = pgNumericToDecimal(value)
	return &s, nil
}
