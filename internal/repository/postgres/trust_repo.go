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
	"github.com/shopspring/decimal"
)

// TrustPairRepository implements domain.TrustPairRepository using
// PostgreSQL. The unique index on (company_low_id, company_high_id) backs
// the one-row-per-unordered-pair invariant.
type TrustPairRepository struct {
	pool *pgxpool.Pool
}

// NewTrustPairRepository creates a new TrustPairRepository
func NewTrustPairRepository(pool *pgxpool.Pool) *TrustPairRepository {
	return &TrustPairRepository{pool: pool}
}

const trustPairColumns = `id, company_a_id, company_b_id, company_low_id, company_high_id, status, created_at`

// Insert creates a trust pair; a second row for the same unordered pair is
// rejected with ErrDuplicateKey.
func (r *TrustPairRepository) Insert(ctx context.Context, pair *domain.TrustPair) (*domain.TrustPair, error) {
	id := pair.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO trust_pair (id, company_a_id, company_b_id, company_low_id, company_high_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+trustPairColumns,
		id, pair.CompanyAID, pair.CompanyBID, pair.CompanyLowID, pair.CompanyHighID, string(pair.Status),
	)
	created, err := scanTrustPair(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrPairNotFound)
	}
	return created, nil
}

// GetByID retrieves a trust pair by id
func (r *TrustPairRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrustPair, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+trustPairColumns+` FROM trust_pair WHERE id = $1`, id)
	pair, err := scanTrustPair(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrPairNotFound)
	}
	return pair, nil
}

// GetByCompanies retrieves a trust pair by its canonical (low, high) identity
func (r *TrustPairRepository) GetByCompanies(ctx context.Context, lowID, highID uuid.UUID) (*domain.TrustPair, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+trustPairColumns+`
		FROM trust_pair
		WHERE company_low_id = $1 AND company_high_id = $2`,
		lowID, highID,
	)
	pair, err := scanTrustPair(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrPairNotFound)
	}
	return pair, nil
}

func scanTrustPair(row pgx.Row) (*domain.TrustPair, error) {
	var p domain.TrustPair
	var status string
	if err := row.Scan(&p.ID, &p.CompanyAID, &p.CompanyBID, &p.CompanyLowID, &p.CompanyHighID, &status, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.TrustPairStatus(status)
	return &p, nil
}

// TrustSessionRepository implements domain.TrustSessionRepository using
// PostgreSQL. The unique index on (pair_id, session_date) backs the
// one-session-per-day invariant.
type TrustSessionRepository struct {
	pool *pgxpool.Pool
}

// NewTrustSessionRepository creates a new TrustSessionRepository
func NewTrustSessionRepository(pool *pgxpool.Pool) *TrustSessionRepository {
	return &TrustSessionRepository{pool: pool}
}

const trustSessionColumns = `id, pair_id, session_date, state, net_amount, net_value, settled_at, created_at`

// Insert creates a session; a second session for the same (pair, date) is
// rejected with ErrDuplicateKey.
func (r *TrustSessionRepository) Insert(ctx context.Context, session *domain.TrustSession) (*domain.TrustSession, error) {
	id := session.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO trust_session (id, pair_id, session_date, state, net_amount, net_value, created_at)
		VALUES ($1, $2, $3, $4, 0, 0, now())
		RETURNING `+trustSessionColumns,
		id, session.PairID, sessionDate(session.SessionDate), string(session.State),
	)
	created, err := scanTrustSession(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrSessionNotFound)
	}
	return created, nil
}

// GetByID retrieves a session by id
func (r *TrustSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrustSession, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+trustSessionColumns+` FROM trust_session WHERE id = $1`, id)
	session, err := scanTrustSession(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrSessionNotFound)
	}
	return session, nil
}

// GetByPairAndDate retrieves the session for one netting day
func (r *TrustSessionRepository) GetByPairAndDate(ctx context.Context, pairID uuid.UUID, date time.Time) (*domain.TrustSession, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+trustSessionColumns+`
		FROM trust_session
		WHERE pair_id = $1 AND session_date = $2`,
		pairID, sessionDate(date),
	)
	session, err := scanTrustSession(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrSessionNotFound)
	}
	return session, nil
}

// ListByState returns sessions in the given state, oldest first.
func (r *TrustSessionRepository) ListByState(ctx context.Context, state domain.TrustSessionState, limit int32) ([]*domain.TrustSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+trustSessionColumns+`
		FROM trust_session
		WHERE state = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		string(state), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.TrustSession
	for rows.Next() {
		session, err := scanTrustSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, rows.Err()
}

// Close moves a session open -> closed, guarded by the current state.
func (r *TrustSessionRepository) Close(ctx context.Context, id uuid.UUID) (*domain.TrustSession, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE trust_session
		SET state = $3
		WHERE id = $1 AND state = $2
		RETURNING `+trustSessionColumns,
		id, string(domain.TrustSessionOpen), string(domain.TrustSessionClosed),
	)
	session, err := scanTrustSession(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrPreconditionFailed)
	}
	return session, nil
}

// MarkSettled moves a session closed -> settled recording the net, guarded
// by the current state.
func (r *TrustSessionRepository) MarkSettled(ctx context.Context, id uuid.UUID, netAmount, netValue decimal.Decimal) (*domain.TrustSession, error) {
	amount, err := decimalToPgNumeric(netAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid net amount: %w", err)
	}
	value, err := decimalToPgNumeric(netValue)
	if err != nil {
		return nil, fmt.Errorf("invalid net value: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE trust_session
		SET state = $3, net_amount = $4, net_value = $5, settled_at = now()
		WHERE id = $1 AND state = $2
		RETURNING `+trustSessionColumns,
		id, string(domain.TrustSessionClosed), string(domain.TrustSessionSettled), amount, value,
	)
	session, err := scanTrustSession(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrPreconditionFailed)
	}
	return session, nil
}

func scanTrustSession(row pgx.Row) (*domain.TrustSession, error) {
	var s domain.TrustSession
	var state string
	var date pgtype.Date
	var netAmount, netValue pgtype.Numeric
	if err := row.Scan(&s.ID, &s.PairID, &date, &state, &netAmount, &netValue, &s.SettledAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.SessionDate = date.Time
	s.State = domain.TrustSessionState(state)
	s.NetAmount = pgNumericToDecimal(netAmount)
	s.NetValue = pgNumericToDecimal(netValue)
	return &s, nil
}

func sessionDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t.UTC().Truncate(24 * time.Hour), Valid: true}
}

// TrustLedgerRepository implements domain.TrustLedgerRepository using
// PostgreSQL. Entries are insert-only.
type TrustLedgerRepository struct {
	pool *pgxpool.Pool
}

// NewTrustLedgerRepository creates a new TrustLedgerRepository
func NewTrustLedgerRepository(pool *pgxpool.Pool) *TrustLedgerRepository {
	return &TrustLedgerRepository{pool: pool}
}

const trustLedgerColumns = `id, session_id, deal_id, side, network, token, amount, value, created_at`

// Insert appends a movement to a session's ledger.
func (r *TrustLedgerRepository) Insert(ctx context.Context, entry *domain.TrustLedgerEntry) (*domain.TrustLedgerEntry, error) {
	amount, err := decimalToPgNumeric(entry.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	value, err := decimalToPgNumeric(entry.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	}

	id := entry.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO trust_ledger (id, session_id, deal_id, side, network, token, amount, value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING `+trustLedgerColumns,
		id, entry.SessionID, entry.DealID, string(entry.Side), entry.Network, entry.Token, amount, value,
	)
	created, err := scanTrustLedger(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrNotFound)
	}
	return created, nil
}

// ListBySession returns all movements of one session, insertion order.
func (r *TrustLedgerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.TrustLedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+trustLedgerColumns+`
		FROM trust_ledger
		WHERE session_id = $1
		ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.TrustLedgerEntry
	for rows.Next() {
		entry, err := scanTrustLedger(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func scanTrustLedger(row pgx.Row) (*domain.TrustLedgerEntry, error) {
	var e domain.TrustLedgerEntry
	var side string
	var amount, value pgtype.Numeric
	if err := row.Scan(&e.ID, &e.SessionID, &e.DealID, &side, &e.Network, &e.Token, &amount, &value, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Side = domain.LedgerSide(side)
	e.Amount = pgNumericToDecimal(amount)
	e.Value = pgNumericToDecimal(value)
	return &e, nil
}
