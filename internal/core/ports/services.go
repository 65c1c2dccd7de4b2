package ports

import (
	"context"
	"time"

	"ticketchain/internal/core/domain"

	"github.com/google/uuid"
)

// RegistryService answers wallet identity and signature questions.
type RegistryService interface {
	Register(ctx context.Context, walletID string, publicKey []byte) (*domain.Wallet, error)
	// Lookup returns the wallet, or nil when unknown.
	Lookup(ctx context.Context, walletID string) (*domain.Wallet, error)
	// Verify checks an ed25519 signature over message. Returns
	// UnknownWallet if the wallet is not registered.
	Verify(ctx context.Context, walletID string, message []byte, signature []byte) (bool, error)
}

// ScoringInput is everything a fraud strategy may look at: the pending
// transaction, the acting wallet's recent committed history (newest
// last), and the ticket's list price where applicable. Strategies must
// not mutate any of it.
type ScoringInput struct {
	Tx           domain.Transaction
	History      []domain.Transaction
	ListPrice    int64
	TicketStatus domain.TicketStatus // Current status before this transaction
	AcquiredAt   time.Time           // When the acting wallet acquired the ticket
	Now          time.Time
}

// FraudStrategy is one scoring strategy. The composite scorer merges
// strategy verdicts by severity (Reject > Flag > Allow) with reason
// tags unioned.
type FraudStrategy interface {
	Evaluate(in ScoringInput) domain.FraudVerdict
}

// RiskModel is the trained scoring capability injected into the
// model-based strategy: fixed-width feature vector in, probability-like
// risk score in [0, 1] out. The core does not define how it is trained.
type RiskModel interface {
	Score(features []float64) float64
}

// --- Command surface ---

// CreateEventRequest holds validated input for event creation.
type CreateEventRequest struct {
	Name            string
	Venue           string
	StartsAt        time.Time
	RefundableUntil time.Time
	MaxPerWallet    int
	OrganizerWallet string
	TicketTypes     []domain.TicketTypeDef
}

// MintRequest holds validated input for minting a ticket.
type MintRequest struct {
	EventID        uuid.UUID
	TicketTypeCode string
	OwnerWallet    string
	Amount         int64 // What the buyer claims to pay; checked against list price
}

// TransferRequest holds validated input for a ticket transfer.
// Signature is the owner's ed25519 signature over the canonical
// transfer payload including Nonce.
type TransferRequest struct {
	TicketID   uuid.UUID
	FromWallet string
	ToWallet   string
	Price      int64
	Nonce      string
	Signature  []byte
}

// RefundRequest holds validated input for a ticket refund.
type RefundRequest struct {
	TicketID  uuid.UUID
	Wallet    string
	Nonce     string
	Signature []byte
}

// CommitReceipt is returned for every transaction that reached the
// ledger. Verdict carries the fraud outcome; a Flag decision commits
// with Flagged set on the transaction.
type CommitReceipt struct {
	Transaction domain.Transaction  `json:"transaction"`
	BlockIndex  uint64              `json:"block_index"`
	BlockHash   string              `json:"block_hash"`
	Verdict     domain.FraudVerdict `json:"verdict"`
}

// CommandService is the transaction coordinator's public surface.
type CommandService interface {
	CreateEvent(ctx context.Context, req CreateEventRequest) (*CommitReceipt, error)
	Mint(ctx context.Context, req MintRequest) (*CommitReceipt, error)
	Transfer(ctx context.Context, req TransferRequest) (*CommitReceipt, error)
	Refund(ctx context.Context, req RefundRequest) (*CommitReceipt, error)
}

// --- Query surface ---

// TypeStats aggregates one ticket type within an event.
type TypeStats struct {
	Code      string `json:"code"`
	Price     int64  `json:"price"`
	Capacity  int    `json:"capacity"`
	Sold      int    `json:"sold"`
	Remaining int    `json:"remaining"`
	Refunded  int    `json:"refunded"`
}

// EventStats aggregates an event for the reporting surface.
type EventStats struct {
	EventID   uuid.UUID   `json:"event_id"`
	Name      string      `json:"name"`
	TotalSold int         `json:"total_sold"`
	Revenue   int64       `json:"revenue"`
	Refunded  int64       `json:"refunded"`
	ByType    []TypeStats `json:"by_type"`
}

// ChainStatus summarizes the ledger for the query surface.
type ChainStatus struct {
	Length  uint64 `json:"length"`
	TipHash string `json:"tip_hash"`
	Halted  bool   `json:"halted"`
}

// QueryService is the read-only surface consumed by presentation
// collaborators. All reads go through the catalog projection, never the
// raw chain.
type QueryService interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	EventStats(ctx context.Context, id uuid.UUID) (*EventStats, error)
	TicketsByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Ticket, error)
	TicketsByWallet(ctx context.Context, walletID string) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	ChainStatus(ctx context.Context) (*ChainStatus, error)
	VerifyChain(ctx context.Context) (*ChainStatus, error)
}

// --- Organizer authentication ---

// TokenService issues and validates organizer session tokens.
type TokenService interface {
	Generate(organizerID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed token claims.
type TokenClaims struct {
	OrganizerID uuid.UUID
	Username    string
}

// HashService handles password hashing.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// RegisterOrganizerRequest holds input for organizer registration.
type RegisterOrganizerRequest struct {
	Username    string
	Password    string
	DisplayName string
	WalletID    string
	WebhookURL  *string
}

// AuthService defines organizer account logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterOrganizerRequest) (*domain.Organizer, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error)
}

// WebhookService delivers commit notifications to organizer webhooks.
type WebhookService interface {
	NotifyCommit(ctx context.Context, receipt *CommitReceipt) error
}
