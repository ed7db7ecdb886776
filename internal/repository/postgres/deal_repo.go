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

// OfferRepository implements domain.OfferRepository using PostgreSQL
type OfferRepository struct {
	pool *pgxpool.Pool
}

// NewOfferRepository creates a new OfferRepository
func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

const offerColumns = `id, company_id, direction, mode, network, token, amount, status, created_at`

// Insert publishes a new offer.
func (r *OfferRepository) Insert(ctx context.Context, offer *domain.Offer) (*domain.Offer, error) {
	amount, err := decimalToPgNumeric(offer.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	id := offer.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO offer (id, company_id, direction, mode, network, token, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING `+offerColumns,
		id, offer.CompanyID, string(offer.Direction), offer.Mode, offer.Network, offer.Token,
		amount, string(offer.Status),
	)
	created, err := scanOffer(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrOfferNotFound)
	}
	return created, nil
}

// GetActive retrieves an offer by id if it is still active.
func (r *OfferRepository) GetActive(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+offerColumns+` FROM offer WHERE id = $1 AND status = $2`,
		id, string(domain.OfferStatusActive),
	)
	offer, err := scanOffer(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrOfferNotFound)
	}
	return offer, nil
}

// ListByCompany returns the newest offers of one company.
func (r *OfferRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int32) ([]*domain.Offer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+offerColumns+`
		FROM offer
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		companyID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOfferRows(rows)
}

// ListFeed returns active offers published by other companies.
func (r *OfferRepository) ListFeed(ctx context.Context, excludeCompanyID uuid.UUID, limit int32) ([]*domain.Offer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+offerColumns+`
		FROM offer
		WHERE status = $1 AND company_id <> $2
		ORDER BY created_at DESC
		LIMIT $3`,
		string(domain.OfferStatusActive), excludeCompanyID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOfferRows(rows)
}

// Close moves an offer active -> closed, guarded by the current status so
// two concurrent acceptances cannot both win.
func (r *OfferRepository) Close(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE offer
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING `+offerColumns,
		id, string(domain.OfferStatusActive), string(domain.OfferStatusClosed),
	)
	offer, err := scanOffer(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrPreconditionFailed)
	}
	return offer, nil
}

func scanOffer(row pgx.Row) (*domain.Offer, error) {
	var o domain.Offer
	var direction, status string
	var amount pgtype.Numeric
	if err := row.Scan(&o.ID, &o.CompanyID, &direction, &o.Mode, &o.Network, &o.Token, &amount, &status, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Direction = domain.OfferDirection(direction)
	o.Status = domain.OfferStatus(status)
	o.Amount = pgNumericToDecimal(amount)
	return &o, nil
}

func scanOfferRows(rows pgx.Rows) ([]*domain.Offer, error) {
	var result []*domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, offer)
	}
	return result, rows.Err()
}

// DealRepository implements domain.DealRepository using PostgreSQL
type DealRepository struct {
	pool *pgxpool.Pool
}

// NewDealRepository creates a new DealRepository
func NewDealRepository(pool *pgxpool.Pool) *DealRepository {
	return &DealRepository{pool: pool}
}

const dealColumns = `id, offer_id, initiator_company_id, counterparty_company_id, direction, mode,
	network, token, amount, state, trust_session_id, created_at, closed_at`

// Insert creates a deal from an accepted offer.
func (r *DealRepository) Insert(ctx context.Context, deal *domain.Deal) (*domain.Deal, error) {
	amount, err := decimalToPgNumeric(deal.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	id := deal.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO deal (id, offer_id, initiator_company_id, counterparty_company_id, direction, mode,
			network, token, amount, state, trust_session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		RETURNING `+dealColumns,
		id, deal.OfferID, deal.InitiatorCompanyID, deal.CounterpartyCompanyID, string(deal.Direction),
		deal.Mode, deal.Network, deal.Token, amount, string(deal.State), deal.TrustSessionID,
	)
	created, err := scanDeal(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrDealNotFound)
	}
	return created, nil
}

// GetByID retrieves a deal by id
func (r *DealRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deal WHERE id = $1`, id)
	deal, err := scanDeal(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrDealNotFound)
	}
	return deal, nil
}

// ListByCompany returns the newest deals one company participates in.
func (r *DealRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int32) ([]*domain.Deal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+dealColumns+`
		FROM deal
		WHERE initiator_company_id = $1 OR counterparty_company_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		companyID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, deal)
	}
	return result, rows.Err()
}

// OpenExposure sums the amounts of the company's non-closed deals. Amounts
// are summed across tokens and networks at face value.
func (r *DealRepository) OpenExposure(ctx context.Context, companyID uuid.UUID) (decimal.Decimal, error) {
	var exposure pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM deal
		WHERE (initiator_company_id = $1 OR counterparty_company_id = $1)
		  AND state <> $2`,
		companyID, string(domain.DealStateClosed),
	).Scan(&exposure)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(exposure), nil
}

func scanDeal(row pgx.Row) (*domain.Deal, error) {
	var d domain.Deal
	var direction, state string
	var amount pgtype.Numeric
	if err := row.Scan(
		&d.ID, &d.OfferID, &d.InitiatorCompanyID, &d.CounterpartyCompanyID, &direction, &d.Mode,
		&d.Network, &d.Token, &amount, &state, &d.TrustSessionID, &d.CreatedAt, &d.ClosedAt,
	); err != nil {
		return nil, err
	}
	d.Direction = domain.OfferDirection(direction)
	d.State = domain.DealState(state)
	d.Amount = pgNumericToDecimal(amount)
	return &d, nil
}
