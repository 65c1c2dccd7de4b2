package postgres

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"ticketchain/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, public_key, created_at) VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, w.ID, []byte(w.PublicKey), w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its identifier.
func (r *WalletRepo) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT id, public_key, created_at FROM wallets WHERE id = $1`

	w := &domain.Wallet{}
	var publicKey []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(&w.ID, &publicKey, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	w.PublicKey = ed25519.PublicKey(publicKey)
	return w, nil
}
