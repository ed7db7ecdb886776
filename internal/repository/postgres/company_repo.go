package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rello/rello-backend/internal/domain"
)

// CompanyRepository implements domain.CompanyRepository using PostgreSQL
type CompanyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository creates a new CompanyRepository
func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

const companyColumns = `id, name, slug, status, timezone, created_at`

// Insert creates a company; slug is unique.
func (r *CompanyRepository) Insert(ctx context.Context, company *domain.Company) (*domain.Company, error) {
	id := company.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO company (id, name, slug, status, timezone, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING `+companyColumns,
		id, company.Name, company.Slug, company.Status, company.Timezone,
	)
	created, err := scanCompany(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrCompanyNotFound)
	}
	return created, nil
}

// GetByID retrieves a company by id
func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM company WHERE id = $1`, id)
	company, err := scanCompany(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrCompanyNotFound)
	}
	return company, nil
}

// GetBySlug retrieves a company by slug
func (r *CompanyRepository) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM company WHERE slug = $1`, slug)
	company, err := scanCompany(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrCompanyNotFound)
	}
	return company, nil
}

func scanCompany(row pgx.Row) (*domain.Company, error) {
	var c domain.Company
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Status, &c.Timezone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReferenceRepository implements domain.ReferenceRepository over the
// system_kv table.
type ReferenceRepository struct {
	pool *pgxpool.Pool
}

// NewReferenceRepository creates a new ReferenceRepository
func NewReferenceRepository(pool *pgxpool.Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

// CompanyTier returns the company's tier. A missing record is not an
// error: it yields the most conservative tier.
func (r *ReferenceRepository) CompanyTier(ctx context.Context, companyID uuid.UUID) (domain.Tier, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM system_kv WHERE key = $1`,
		tierKey(companyID),
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TierS, nil
	}
	if err != nil {
		return domain.TierS, err
	}
	return domain.ParseTier(value), nil
}

// SetCompanyTier upserts the company's tier record.
func (r *ReferenceRepository) SetCompanyTier(ctx context.Context, companyID uuid.UUID, tier domain.Tier) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO system_kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		tierKey(companyID), string(tier),
	)
	return err
}

func tierKey(companyID uuid.UUID) string {
	return "company.tier." + companyID.String()
}
