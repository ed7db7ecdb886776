package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WalletType distinguishes operational hot wallets from cold storage.
type WalletType string

const (
	WalletTypeHot  WalletType = "hot"
	WalletTypeCold WalletType = "cold"
)

// PlatformWallet is a platform-owned wallet payouts are sent from.
type PlatformWallet struct {
	ID        uuid.UUID  `json:"id"`
	Network   string     `json:"network"`
	Token     string     `json:"token"`
	Type      WalletType `json:"type"`
	Address   string     `json:"address"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
}

// WalletRepository stores platform wallets.
type WalletRepository interface {
	Insert(ctx context.Context, wallet *PlatformWallet) (*PlatformWallet, error)
	// ActiveHot returns the active hot wallet for a network/token pair;
	// absence is ErrConfigurationMissing.
	ActiveHot(ctx context.Context, network, token string) (*PlatformWallet, error)
}
