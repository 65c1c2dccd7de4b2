package postgres

import (
	"context"
	"errors"
	"fmt"

	"ticketchain/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrganizerRepo implements ports.OrganizerRepository.
type OrganizerRepo struct {
	pool Pool
}

// NewOrganizerRepo creates a new OrganizerRepo.
func NewOrganizerRepo(pool Pool) *OrganizerRepo {
	return &OrganizerRepo{pool: pool}
}

const organizerColumns = `id, username, password_hash, display_name, wallet_id, webhook_url, webhook_secret, created_at`

// Create inserts a new organizer into the database.
func (r *OrganizerRepo) Create(ctx context.Context, o *domain.Organizer) error {
	query := `INSERT INTO organizers (` + organizerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		o.ID, o.Username, o.PasswordHash, o.DisplayName,
		o.WalletID, o.WebhookURL, o.WebhookSecret, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert organizer: %w", err)
	}
	return nil
}

// GetByID fetches an organizer by its UUID.
func (r *OrganizerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organizer, error) {
	query := `SELECT ` + organizerColumns + ` FROM organizers WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByUsername fetches an organizer by username.
func (r *OrganizerRepo) GetByUsername(ctx context.Context, username string) (*domain.Organizer, error) {
	query := `SELECT ` + organizerColumns + ` FROM organizers WHERE username = $1`
	return r.getOne(ctx, query, username)
}

// GetByWallet fetches the organizer anchored to a wallet.
func (r *OrganizerRepo) GetByWallet(ctx context.Context, walletID string) (*domain.Organizer, error) {
	query := `SELECT ` + organizerColumns + ` FROM organizers WHERE wallet_id = $1`
	return r.getOne(ctx, query, walletID)
}

func (r *OrganizerRepo) getOne(ctx context.Context, query string, arg any) (*domain.Organizer, error) {
	o := &domain.Organizer{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&o.ID, &o.Username, &o.PasswordHash, &o.DisplayName,
		&o.WalletID, &o.WebhookURL, &o.WebhookSecret, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get organizer: %w", err)
	}
	return o, nil
}
