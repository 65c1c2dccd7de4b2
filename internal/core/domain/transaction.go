package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType tags the variant of a ledger transaction.
type TransactionType string

const (
	TransactionTypeCreateEvent TransactionType = "CREATE_EVENT"
	TransactionTypeMint        TransactionType = "MINT"
	TransactionTypeTransfer    TransactionType = "TRANSFER"
	TransactionTypeRefund      TransactionType = "REFUND"
)

// CreateEventPayload records a new event and its ticket types.
type CreateEventPayload struct {
	Event Event `json:"event" cbor:"event"`
}

// MintPayload records the creation of a new ticket.
type MintPayload struct {
	EventID        uuid.UUID `json:"event_id" cbor:"event_id"`
	TicketTypeCode string    `json:"ticket_type" cbor:"ticket_type"`
	OwnerWallet    string    `json:"owner_wallet" cbor:"owner_wallet"`
	Price          int64     `json:"price" cbor:"price"`
}

// TransferPayload records an ownership change.
type TransferPayload struct {
	FromWallet string `json:"from_wallet" cbor:"from_wallet"`
	ToWallet   string `json:"to_wallet" cbor:"to_wallet"`
	Price      int64  `json:"price" cbor:"price"`
}

// RefundPayload records a refund and the amount returned.
type RefundPayload struct {
	OwnerWallet  string `json:"owner_wallet" cbor:"owner_wallet"`
	RefundAmount int64  `json:"refund_amount" cbor:"refund_amount"`
}

// Transaction is one immutable ledger entry. Exactly one payload pointer
// is non-nil, matching Type. TicketID is set for Mint, Transfer and
// Refund. Flagged transactions were committed with an advisory fraud
// flag; FraudReasons carries the triggered tags.
type Transaction struct {
	ID          uuid.UUID       `json:"id" cbor:"id"`
	Type        TransactionType `json:"type" cbor:"type"`
	Timestamp   time.Time       `json:"timestamp" cbor:"timestamp"`
	ActorWallet string          `json:"actor_wallet" cbor:"actor_wallet"`
	TicketID    *uuid.UUID      `json:"ticket_id,omitempty" cbor:"ticket_id,omitempty"`

	Flagged      bool     `json:"flagged,omitempty" cbor:"flagged,omitempty"`
	FraudReasons []string `json:"fraud_reasons,omitempty" cbor:"fraud_reasons,omitempty"`

	CreateEvent *CreateEventPayload `json:"create_event,omitempty" cbor:"create_event,omitempty"`
	Mint        *MintPayload        `json:"mint,omitempty" cbor:"mint,omitempty"`
	Transfer    *TransferPayload    `json:"transfer,omitempty" cbor:"transfer,omitempty"`
	Refund      *RefundPayload      `json:"refund,omitempty" cbor:"refund,omitempty"`
}

// Amount returns the monetary value the transaction moves, if any.
func (t *Transaction) Amount() int64 {
	switch t.Type {
	case TransactionTypeMint:
		if t.Mint != nil {
			return t.Mint.Price
		}
	case TransactionTypeTransfer:
		if t.Transfer != nil {
			return t.Transfer.Price
		}
	case TransactionTypeRefund:
		if t.Refund != nil {
			return t.Refund.RefundAmount
		}
	}
	return 0
}

// Validate checks structural well-formedness: the payload matches the
// tagged type and required references are present.
func (t *Transaction) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("transaction id is required")
	}
	if t.ActorWallet == "" {
		return fmt.Errorf("acting wallet is required")
	}
	switch t.Type {
	case TransactionTypeCreateEvent:
		if t.CreateEvent == nil {
			return fmt.Errorf("create_event payload is required")
		}
	case TransactionTypeMint:
		if t.Mint == nil || t.TicketID == nil {
			return fmt.Errorf("mint payload and ticket id are required")
		}
	case TransactionTypeTransfer:
		if t.Transfer == nil || t.TicketID == nil {
			return fmt.Errorf("transfer payload and ticket id are required")
		}
	case TransactionTypeRefund:
		if t.Refund == nil || t.TicketID == nil {
			return fmt.Errorf("refund payload and ticket id are required")
		}
	default:
		return fmt.Errorf("unknown transaction type %q", t.Type)
	}
	return nil
}

// TransferSigningPayload is the canonical string a wallet signs to
// authorize a transfer. Format: transfer|ticketID|from|to|price|nonce.
func TransferSigningPayload(ticketID uuid.UUID, from, to string, price int64, nonce string) string {
	return fmt.Sprintf("transfer|%s|%s|%s|%d|%s", ticketID, from, to, price, nonce)
}

// RefundSigningPayload is the canonical string a wallet signs to
// authorize a refund. Format: refund|ticketID|owner|nonce.
func RefundSigningPayload(ticketID uuid.UUID, owner, nonce string) string {
	return fmt.Sprintf("refund|%s|%s|%s", ticketID, owner, nonce)
}
