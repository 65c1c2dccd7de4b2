package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organizer is an account that may create events. The organizer's wallet
// identifier receives refundable revenue attribution in event stats.
type Organizer struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	WalletID     string    `json:"wallet_id"`
	WebhookURL   *string   `json:"webhook_url,omitempty"`
	// WebhookSecret signs commit notifications (HMAC-SHA256). Shown
	// once at registration.
	WebhookSecret string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}
