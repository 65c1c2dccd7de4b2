package service

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"ticketchain/internal/core/domain"
	"ticketchain/internal/core/ports"
	"ticketchain/pkg/apperror"

	"github.com/rs/zerolog"
)

// WalletRegistry implements ports.RegistryService over a wallet
// repository. Registration is the only side effect; lookups and
// signature checks are pure reads.
type WalletRegistry struct {
	wallets ports.WalletRepository
	log     zerolog.Logger
}

// NewWalletRegistry creates a new WalletRegistry.
func NewWalletRegistry(wallets ports.WalletRepository, log zerolog.Logger) *WalletRegistry {
	return &WalletRegistry{wallets: wallets, log: log}
}

// Register stores a wallet identifier with its ed25519 public key.
func (r *WalletRegistry) Register(ctx context.Context, walletID string, publicKey []byte) (*domain.Wallet, error) {
	if walletID == "" {
		return nil, apperror.Validation("wallet id is required")
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, apperror.ErrInvalidPublicKey()
	}

	existing, err := r.wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("check wallet: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrDuplicateWallet()
	}

	wallet := &domain.Wallet{
		ID:        walletID,
		PublicKey: ed25519.PublicKey(publicKey),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.wallets.Create(ctx, wallet); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create wallet: %w", err))
	}

	r.log.Info().Str("wallet_id", walletID).Msg("wallet registered")
	return wallet, nil
}

// Lookup returns the wallet, or nil when unknown.
func (r *WalletRegistry) Lookup(ctx context.Context, walletID string) (*domain.Wallet, error) {
	wallet, err := r.wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup wallet: %w", err))
	}
	return wallet, nil
}

// Verify checks an ed25519 signature over message for the wallet.
func (r *WalletRegistry) Verify(ctx context.Context, walletID string, message []byte, signature []byte) (bool, error) {
	wallet, err := r.Lookup(ctx, walletID)
	if err != nil {
		return false, err
	}
	if wallet == nil {
		return false, apperror.ErrUnknownWallet()
	}
	return ed25519.Verify(wallet.PublicKey, message, signature), nil
}
