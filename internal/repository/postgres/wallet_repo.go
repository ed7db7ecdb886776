package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rello/rello-backend/internal/domain"
)

// WalletRepository implements domain.WalletRepository using PostgreSQL
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

const walletColumns = `id, network, token, type, address, is_active, created_at`

// Insert registers a platform wallet.
func (r *WalletRepository) Insert(ctx context.Context, wallet *domain.PlatformWallet) (*domain.PlatformWallet, error) {
	id := wallet.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO platform_wallet (id, network, token, type, address, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+walletColumns,
		id, wallet.Network, wallet.Token, string(wallet.Type), wallet.Address, wallet.IsActive,
	)
	created, err := scanWallet(row)
	if err != nil {
		return nil, translateErr(err, domain.ErrNotFound)
	}
	return created, nil
}

// ActiveHot returns the active hot wallet for a network/token pair. A
// missing wallet is reference data absent from the store, so the caller
// gets ErrConfigurationMissing rather than a plain not-found.
func (r *WalletRepository) ActiveHot(ctx context.Context, network, token string) (*domain.PlatformWallet, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+walletColumns+`
		FROM platform_wallet
		WHERE network = $1 AND token = $2 AND type = $3 AND is_active
		LIMIT 1`,
		network, token, string(domain.WalletTypeHot),
	)
	wallet, err := scanWallet(row)
	if err != nil {
		if translated := translateErr(err, domain.ErrConfigurationMissing); translated == domain.ErrConfigurationMissing {
			return nil, fmt.Errorf("no active hot wallet for %s/%s: %w", network, token, domain.ErrConfigurationMissing)
		}
		return nil, err
	}
	return wallet, nil
}

func scanWallet(row pgx.Row) (*domain.PlatformWallet, error) {
	var w domain.PlatformWallet
	var walletType string
	if err := row.Scan(&w.ID, &w.Network, &w.Token, &walletType, &w.Address, &w.IsActive, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.Type = domain.WalletType(walletType)
	return &w, nil
}
