package postgres

import (
	"context"
	"testing"
	"time"

	"ticketchain/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrganizer() *domain.Organizer {
	webhookURL := "https://organizer.example.com/hooks"
	return &domain.Organizer{
		ID:            uuid.New(),
		Username:      "alice",
		PasswordHash:  "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		DisplayName:   "Alice Events",
		WalletID:      "org-wallet",
		WebhookURL:    &webhookURL,
		WebhookSecret: "sekret",
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func organizerRow(o *domain.Organizer) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "username", "password_hash", "display_name",
		"wallet_id", "webhook_url", "webhook_secret", "created_at",
	}).AddRow(
		o.ID, o.Username, o.PasswordHash, o.DisplayName,
		o.WalletID, o.WebhookURL, o.WebhookSecret, o.CreatedAt,
	)
}

func TestOrganizerRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrganizerRepo(mock)
	o := newTestOrganizer()

	mock.ExpectExec("INSERT INTO organizers").
		WithArgs(o.ID, o.Username, o.PasswordHash, o.DisplayName,
			o.WalletID, o.WebhookURL, o.WebhookSecret, o.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), o)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizerRepo_GetByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrganizerRepo(mock)
	o := newTestOrganizer()

	mock.ExpectQuery("SELECT (.+) FROM organizers WHERE username").
		WithArgs(o.Username).
		WillReturnRows(organizerRow(o))

	got, err := repo.GetByUsername(context.Background(), o.Username)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, o.WebhookSecret, got.WebhookSecret)
	require.NotNil(t, got.WebhookURL)
	assert.Equal(t, *o.WebhookURL, *got.WebhookURL)
}

func TestOrganizerRepo_GetByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrganizerRepo(mock)
	o := newTestOrganizer()

	mock.ExpectQuery("SELECT (.+) FROM organizers WHERE wallet_id").
		WithArgs(o.WalletID).
		WillReturnRows(organizerRow(o))

	got, err := repo.GetByWallet(context.Background(), o.WalletID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, o.Username, got.Username)
}

func TestOrganizerRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrganizerRepo(mock)

	mock.ExpectQuery("SELECT (.+) FROM organizers WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}
