package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rello/rello-backend/internal/domain"
)

const outgoingColumns = `id, network, token, status, from_wallet_id, to_address, amount,
	tx_hash, idempotency_key, deal_id, payout_request_id, eod_settlement_id, created_at`

// OutgoingTransferRepository implements domain.OutgoingTransferRepository
// using PostgreSQL. Conditional updates are plain UPDATE ... WHERE status =
// expected RETURNING; zero rows means another worker got there first.
type OutgoingTransferRepository struct {
	pool *pgxpool.Pool
}

// NewOutgoingTransferRepository creates a new OutgoingTransferRepository
func NewOutgoingTransferRepository(pool *pgxpool.Pool) *OutgoingTransferRepository {
	return &OutgoingTransferRepository{pool: pool}
}

// Insert creates a new outgoing transfer. The unique index on
// idempotency_key turns a repeated logical request into ErrDuplicateKey.
func (r *OutgoingTransferRepository) Insert(ctx context.Context, t *domain.OutgoingTransfer) (*domain.OutgoingTransfer, error) {
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	id := t.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO outgoing_tx (id, network, token, status, from_wallet_id, to_address, amount,
			tx_hash, idempotency_key, deal_id, payout_request_id, eod_settlement_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		RETURNING `+outgoingColumns,
		id, t.Network, t.Token, string(t.Status), t.FromWalletID, t.ToAddress, amount,
		t.TxHash, t.IdempotencyKey, t.DealID, t.PayoutRequestID, t.SettlementID,
	)
	created, err := scanOutgoing(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrTransferNotFound)
	}
	return created, nil
}

// GetByID retrieves an outgoing transfer by id
func (r *OutgoingTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OutgoingTransfer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+outgoingColumns+` FROM outgoing_tx WHERE id = $1`, id)
	t, err := scanOutgoing(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrTransferNotFound)
	}
	return t, nil
}

// ListByStatus returns transfers in the given status, oldest first, so
// claiming is FIFO across workers.
func (r *OutgoingTransferRepository) ListByStatus(ctx context.Context, status domain.PayoutStatus, limit int32) ([]*domain.OutgoingTransfer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+outgoingColumns+`
		FROM outgoing_tx
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOutgoingRows(rows)
}

// AdvanceStatus moves a transfer to the next status only if it is still in
// the expected one.
func (r *OutgoingTransferRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to domain.PayoutStatus) (*domain.OutgoingTransfer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE outgoing_tx
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING `+outgoingColumns,
		id, string(from), string(to),
	)
	t, err := scanOutgoing(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrPreconditionFailed)
	}
	return t, nil
}

// MarkBroadcast assigns the transaction hash while moving signed -> broadcast.
func (r *OutgoingTransferRepository) MarkBroadcast(ctx context.Context, id uuid.UUID, txHash string) (*domain.OutgoingTransfer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE outgoing_tx
		SET status = $3, tx_hash = $4
		WHERE id = $1 AND status = $2
		RETURNING `+outgoingColumns,
		id, string(domain.PayoutStatusSigned), string(domain.PayoutStatusBroadcast), txHash,
	)
	t, err := scanOutgoing(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrPreconditionFailed)
	}
	return t, nil
}

// ListRecent returns the newest transfers in any of the given statuses for
// the operator surface.
func (r *OutgoingTransferRepository) ListRecent(ctx context.Context, statuses []domain.PayoutStatus, limit int32) ([]*domain.OutgoingTransfer, error) {
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+outgoingColumns+`
		FROM outgoing_tx
		WHERE status = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2`,
		ss, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOutgoingRows(rows)
}

// CountByStatus returns row counts keyed by status.
func (r *OutgoingTransferRepository) CountByStatus(ctx context.Context) (map[domain.PayoutStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM outgoing_tx GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.PayoutStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.PayoutStatus(status)] = count
	}
	return counts, rows.Err()
}

// CountStuck counts transfers sitting in a status longer than maxAge.
func (r *OutgoingTransferRepository) CountStuck(ctx context.Context, status domain.PayoutStatus, maxAge time.Duration) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM outgoing_tx
		WHERE status = $1 AND created_at < now() - $2::interval`,
		string(status), maxAge.String(),
	).Scan(&count)
	return count, err
}

func scanOutgoing(row pgx.Row) (*domain.OutgoingTransfer, error) {
	var t domain.OutgoingTransfer
	var status string
	var amount pgtype.Numeric
	if err := row.Scan(
		&t.ID, &t.Network, &t.Token, &status, &t.FromWalletID, &t.ToAddress, &amount,
		&t.TxHash, &t.IdempotencyKey, &t.DealID, &t.PayoutRequestID, &t.SettlementID, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = domain.PayoutStatus(status)
	t.Amount = pgNumericToDecimal(amount)
	return &t, nil
}

func scanOutgoingRows(rows pgx.Rows) ([]*domain.OutgoingTransfer, error) {
	var result []*domain.OutgoingTransfer
	for rows.Next() {
		t, err := scanOutgoing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
