package ports

import (
	"context"
	"time"

	"ticketchain/internal/core/domain"

	"github.com/google/uuid"
)

// WalletRepository persists wallet identities and public keys.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)
}

// OrganizerRepository persists organizer accounts.
type OrganizerRepository interface {
	Create(ctx context.Context, organizer *domain.Organizer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Organizer, error)
	GetByUsername(ctx context.Context, username string) (*domain.Organizer, error)
	GetByWallet(ctx context.Context, walletID string) (*domain.Organizer, error)
}

// BlockStore persists the chain as an ordered sequence of blocks.
// Append is called after a block is sealed; LoadAll returns blocks in
// index order for replay at startup.
type BlockStore interface {
	Append(ctx context.Context, block *domain.Block) error
	LoadAll(ctx context.Context) ([]domain.Block, error)
}

// NonceStore tracks nonce uniqueness for signed wallet commands.
// CheckAndSet atomically records a nonce; it returns true if the nonce
// is new (valid), false if already used.
type NonceStore interface {
	CheckAndSet(ctx context.Context, walletID string, nonce string, ttl time.Duration) (bool, error)
}
