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

const incomingColumns = `id, network, token, tx_hash, from_address, to_address, amount,
	confirmations, status, deal_id, created_at`

// IncomingTransferRepository implements domain.IncomingTransferRepository
// using PostgreSQL.
type IncomingTransferRepository struct {
	pool *pgxpool.Pool
}

// NewIncomingTransferRepository creates a new IncomingTransferRepository
func NewIncomingTransferRepository(pool *pgxpool.Pool) *IncomingTransferRepository {
	return &IncomingTransferRepository{pool: pool}
}

// Insert records a newly detected inbound transfer. tx_hash is unique, so
// re-detecting the same transfer yields ErrDuplicateKey.
func (r *IncomingTransferRepository) Insert(ctx context.Context, t *domain.IncomingTransfer) (*domain.IncomingTransfer, error) {
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	id := t.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO incoming_tx (id, network, token, tx_hash, from_address, to_address, amount,
			confirmations, status, deal_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		RETURNING `+incomingColumns,
		id, t.Network, t.Token, t.TxHash, t.FromAddress, t.ToAddress, amount,
		t.Confirmations, string(t.Status), t.DealID,
	)
	created, err := scanIncoming(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrTransferNotFound)
	}
	return created, nil
}

// GetByID retrieves an incoming transfer by id
func (r *IncomingTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.IncomingTransfer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+incomingColumns+` FROM incoming_tx WHERE id = $1`, id)
	t, err := scanIncoming(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrTransferNotFound)
	}
	return t, nil
}

// ListSeenBelow returns transfers still awaiting confirmations, oldest first.
func (r *IncomingTransferRepository) ListSeenBelow(ctx context.Context, threshold int32, limit int32) ([]*domain.IncomingTransfer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+incomingColumns+`
		FROM incoming_tx
		WHERE status = $1 AND confirmations < $2
		ORDER BY created_at ASC
		LIMIT $3`,
		string(domain.IncomingStatusSeen), threshold, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIncomingRows(rows)
}

// IncrementConfirmations adds exactly one confirmation. The guard keeps the
// count below the threshold and the status at seen, so the count can never
// regress or overshoot under concurrent ticks.
func (r *IncomingTransferRepository) IncrementConfirmations(ctx context.Context, id uuid.UUID, threshold int32) (*domain.IncomingTransfer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE incoming_tx
		SET confirmations = confirmations + 1
		WHERE id = $1 AND status = $2 AND confirmations < $3
		RETURNING `+incomingColumns,
		id, string(domain.IncomingStatusSeen), threshold,
	)
	t, err := scanIncoming(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrPreconditionFailed)
	}
	return t, nil
}

// MarkConfirmed moves seen -> confirmed. The condition is on status alone,
// so the transition fires at most once regardless of re-runs.
func (r *IncomingTransferRepository) MarkConfirmed(ctx context.Context, id uuid.UUID) (*domain.IncomingTransfer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE incoming_tx
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING `+incomingColumns,
		id, string(domain.IncomingStatusSeen), string(domain.IncomingStatusConfirmed),
	)
	t, err := scanIncoming(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrPreconditionFailed)
	}
	return t, nil
}

// ListRecent returns the newest transfers for the operator surface.
func (r *IncomingTransferRepository) ListRecent(ctx context.Context, limit int32) ([]*domain.IncomingTransfer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+incomingColumns+`
		FROM incoming_tx
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIncomingRows(rows)
}

// Counts summarizes inbound rows for metrics and stats.
func (r *IncomingTransferRepository) Counts(ctx context.Context) (*domain.IncomingCounts, error) {
	var c domain.IncomingCounts
	err := r.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE status = $1)
		FROM incoming_tx`,
		string(domain.IncomingStatusConfirmed),
	).Scan(&c.Total, &c.Confirmed)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanIncoming(row pgx.Row) (*domain.IncomingTransfer, error) {
	var t domain.IncomingTransfer
	var status string
	var amount pgtype.Numeric
	if err := row.Scan(
		&t.ID, &t.Network, &t.Token, &t.TxHash, &t.FromAddress, &t.ToAddress, &amount,
		&t.Confirmations, &status, &t.DealID, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = domain.IncomingStatus(status)
	t.Amount = pgNumericToDecimal(amount)
	return &t, nil
}

func scanIncomingRows(rows pgx.Rows) ([]*domain.IncomingTransfer, error) {
	var result []*domain.IncomingTransfer
	for rows.Next() {
		t, err := scanIncoming(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
