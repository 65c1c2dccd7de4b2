package dto

import (
	"encoding/hex"
	"fmt"
	"time"

	"ticketchain/internal/core/domain"
	"ticketchain/internal/core/ports"

	"github.com/google/uuid"
)

// RegisterOrganizerRequest is the request body for organizer registration.
type RegisterOrganizerRequest struct {
	Username    string  `json:"username" binding:"required,min=3,max=50"`
	Password    string  `json:"password" binding:"required,min=8,max=128"`
	DisplayName string  `json:"display_name" binding:"required,min=1,max=100"`
	WalletID    string  `json:"wallet_id" binding:"required,max=100"`
	WebhookURL  *string `json:"webhook_url,omitempty"`
}

// RegisterOrganizerResponse is the response body for successful registration.
// WebhookSecret is shown exactly once here.
type RegisterOrganizerResponse struct {
	OrganizerID   string `json:"organizer_id"`
	Username      string `json:"username"`
	WalletID      string `json:"wallet_id"`
	WebhookSecret string `json:"webhook_secret"`
}

// LoginRequest is the request body for organizer login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// RegisterWalletRequest is the request body for wallet registration.
// PublicKey is the hex-encoded ed25519 public key (64 hex chars).
type RegisterWalletRequest struct {
	WalletID  string `json:"wallet_id" binding:"required,min=1,max=100"`
	PublicKey string `json:"public_key" binding:"required,len=64"`
}

// WalletResponse is the response body for a registered wallet.
type WalletResponse struct {
	WalletID  string `json:"wallet_id"`
	PublicKey string `json:"public_key"`
	CreatedAt string `json:"created_at"`
}

// TicketTypeRequest defines one tier when creating an event.
type TicketTypeRequest struct {
	Code     string `json:"code" binding:"required,min=1,max=20"`
	Price    int64  `json:"price" binding:"required,gt=0"`
	Capacity int    `json:"capacity" binding:"required,gt=0"`
}

// CreateEventRequest is the request body for event creation.
type CreateEventRequest struct {
	Name            string              `json:"name" binding:"required,min=1,max=200"`
	Venue           string              `json:"venue" binding:"required,min=1,max=200"`
	StartsAt        time.Time           `json:"starts_at" binding:"required"`
	RefundableUntil time.Time           `json:"refundable_until" binding:"required"`
	MaxPerWallet    int                 `json:"max_per_wallet" binding:"gte=0"`
	TicketTypes     []TicketTypeRequest `json:"ticket_types" binding:"required,min=1,dive"`
}

// MintRequest is the request body for minting a ticket.
type MintRequest struct {
	EventID        string `json:"event_id" binding:"required,uuid"`
	TicketTypeCode string `json:"ticket_type" binding:"required"`
	OwnerWallet    string `json:"owner_wallet" binding:"required"`
	Amount         int64  `json:"amount" binding:"gte=0"` // 0 = pay list price
}

// TransferRequest is the request body for a ticket transfer. Signature
// is the hex-encoded ed25519 signature of the canonical transfer
// payload by the current owner.
type TransferRequest struct {
	FromWallet string `json:"from_wallet" binding:"required"`
	ToWallet   string `json:"to_wallet" binding:"required"`
	Price      int64  `json:"price" binding:"required,gt=0"`
	Nonce      string `json:"nonce" binding:"required,min=8,max=128"`
	Signature  string `json:"signature" binding:"required,len=128"`
}

// RefundRequest is the request body for a ticket refund.
type RefundRequest struct {
	Wallet    string `json:"wallet" binding:"required"`
	Nonce     string `json:"nonce" binding:"required,min=8,max=128"`
	Signature string `json:"signature" binding:"required,len=128"`
}

// VerdictResponse reports the fraud outcome attached to a commit.
type VerdictResponse struct {
	Score    float64  `json:"score"`
	Decision string   `json:"decision"`
	Reasons  []string `json:"reasons,omitempty"`
}

// CommitResponse is the response body for every committed transaction.
type CommitResponse struct {
	TransactionID string          `json:"transaction_id"`
	Type          string          `json:"type"`
	TicketID      string          `json:"ticket_id,omitempty"`
	EventID       string          `json:"event_id,omitempty"`
	BlockIndex    uint64          `json:"block_index"`
	BlockHash     string          `json:"block_hash"`
	Flagged       bool            `json:"flagged"`
	Verdict       VerdictResponse `json:"verdict"`
	Timestamp     string          `json:"timestamp"`
}

// TicketResponse is the read-model view of a ticket.
type TicketResponse struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	TicketType  string `json:"ticket_type"`
	ListPrice   int64  `json:"list_price"`
	OwnerWallet string `json:"owner_wallet"`
	Status      string `json:"status"`
	MintedAt    string `json:"minted_at"`
	AcquiredAt  string `json:"acquired_at"`
}

// ArtifactResponse carries the payload an external QR generator encodes.
type ArtifactResponse struct {
	TicketID string `json:"ticket_id"`
	Payload  string `json:"payload"`
}

// DecodePublicKey parses a hex-encoded ed25519 public key.
func (r *RegisterWalletRequest) DecodePublicKey() ([]byte, error) {
	key, err := hex.DecodeString(r.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("public_key is not valid hex: %w", err)
	}
	return key, nil
}

// ToPort converts the transfer request into the service-layer form,
// decoding the hex signature.
func (r *TransferRequest) ToPort(ticketID uuid.UUID) (ports.TransferRequest, error) {
	sig, err := hex.DecodeString(r.Signature)
	if err != nil {
		return ports.TransferRequest{}, fmt.Errorf("signature is not valid hex: %w", err)
	}
	return ports.TransferRequest{
		TicketID:   ticketID,
		FromWallet: r.FromWallet,
		ToWallet:   r.ToWallet,
		Price:      r.Price,
		Nonce:      r.Nonce,
		Signature:  sig,
	}, nil
}

// ToPort converts the refund request into the service-layer form,
// decoding the hex signature.
func (r *RefundRequest) ToPort(ticketID uuid.UUID) (ports.RefundRequest, error) {
	sig, err := hex.DecodeString(r.Signature)
	if err != nil {
		return ports.RefundRequest{}, fmt.Errorf("signature is not valid hex: %w", err)
	}
	return ports.RefundRequest{
		TicketID:  ticketID,
		Wallet:    r.Wallet,
		Nonce:     r.Nonce,
		Signature: sig,
	}, nil
}

// FromReceipt builds the wire representation of a commit receipt.
func FromReceipt(r *ports.CommitReceipt) CommitResponse {
	tx := r.Transaction
	resp := CommitResponse{
		TransactionID: tx.ID.String(),
		Type:          string(tx.Type),
		BlockIndex:    r.BlockIndex,
		BlockHash:     r.BlockHash,
		Flagged:       tx.Flagged,
		Verdict: VerdictResponse{
			Score:    r.Verdict.Score,
			Decision: r.Verdict.Decision.String(),
			Reasons:  r.Verdict.Reasons,
		},
		Timestamp: tx.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if tx.TicketID != nil {
		resp.TicketID = tx.TicketID.String()
	}
	switch {
	case tx.CreateEvent != nil:
		resp.EventID = tx.CreateEvent.Event.ID.String()
	case tx.Mint != nil:
		resp.EventID = tx.Mint.EventID.String()
	}
	return resp
}

// FromTicket builds the wire representation of a ticket.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID.String(),
		EventID:     t.EventID.String(),
		TicketType:  t.TicketTypeCode,
		ListPrice:   t.ListPrice,
		OwnerWallet: t.OwnerWallet,
		Status:      string(t.Status),
		MintedAt:    t.MintedAt.UTC().Format(time.RFC3339),
		AcquiredAt:  t.AcquiredAt.UTC().Format(time.RFC3339),
	}
}

// FromTickets maps a ticket slice, never returning nil so the JSON
// encodes as an empty array.
func FromTickets(ts []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(ts))
	for i := range ts {
		out = append(out, FromTicket(&ts[i]))
	}
	return out
}
