package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the lifecycle state of a ticket as derived from the
// chain. Transitions follow Minted -> Transferred* -> Refunded; Refunded
// is terminal.
type TicketStatus string

const (
	TicketStatusMinted      TicketStatus = "MINTED"
	TicketStatusTransferred TicketStatus = "TRANSFERRED"
	TicketStatusRefunded    TicketStatus = "REFUNDED"
)

// Ticket is the catalog's view of a single ticket: current owner and
// status at the replayed chain tip.
type Ticket struct {
	ID             uuid.UUID    `json:"id"`
	EventID        uuid.UUID    `json:"event_id"`
	TicketTypeCode string       `json:"ticket_type"`
	ListPrice      int64        `json:"list_price"`
	OwnerWallet    string       `json:"owner_wallet"`
	Status         TicketStatus `json:"status"`
	MintedAt       time.Time    `json:"minted_at"`
	AcquiredAt     time.Time    `json:"acquired_at"` // When the current owner got it
}

// CanTransfer returns true if the ticket may change owners.
func (t *Ticket) CanTransfer() bool {
	return t.Status != TicketStatusRefunded
}

// CanRefund returns true if the ticket may still be refunded.
func (t *Ticket) CanRefund() bool {
	return t.Status != TicketStatusRefunded
}

// ArtifactPayload builds the string an external QR generator encodes for
// this ticket. The trailing digest binds ticket, event and owner so a
// scanned artifact can be checked against the ledger.
func (t *Ticket) ArtifactPayload() string {
	data := fmt.Sprintf("%s:%s:%s", t.ID, t.EventID, t.OwnerWallet)
	sum := sha256.Sum256([]byte(data))
	return data + ":" + hex.EncodeToString(sum[:])
}
