package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"ticketchain/internal/core/domain"
	"ticketchain/internal/core/ports"
	"ticketchain/pkg/apperror"

	"github.com/google/uuid"
)

// walletHistoryCap bounds the per-wallet activity kept for fraud
// scoring. Older entries fall off; the ledger remains the full record.
const walletHistoryCap = 64

// CatalogService is the derived, disposable projection of current
// events, tickets and ownership. It is rebuilt by replaying the ledger
// and is never authoritative: business pre-checks here are dry runs, and
// the same rules are enforced again inside the commit section.
type CatalogService struct {
	mu          sync.RWMutex
	events      map[uuid.UUID]*domain.Event
	tickets     map[uuid.UUID]*domain.Ticket
	byWallet    map[string]map[uuid.UUID]struct{}
	minted      map[uuid.UUID]map[string]int // eventID -> type code -> minted
	refunded    map[uuid.UUID]map[string]int
	revenue     map[uuid.UUID]int64
	refundTotal map[uuid.UUID]int64
	activity    map[string][]domain.Transaction // Recent committed txns per wallet
}

// NewCatalogService creates an empty catalog.
func NewCatalogService() *CatalogService {
	c := &CatalogService{}
	c.reset()
	return c
}

func (c *CatalogService) reset() {
	c.events = make(map[uuid.UUID]*domain.Event)
	c.tickets = make(map[uuid.UUID]*domain.Ticket)
	c.byWallet = make(map[string]map[uuid.UUID]struct{})
	c.minted = make(map[uuid.UUID]map[string]int)
	c.refunded = make(map[uuid.UUID]map[string]int)
	c.revenue = make(map[uuid.UUID]int64)
	c.refundTotal = make(map[uuid.UUID]int64)
	c.activity = make(map[string][]domain.Transaction)
}

// Rebuild discards the projection and replays every block's transactions
// in chain order. A transaction referencing state that never existed at
// that point means the chain itself is invalid: the rebuild fails with
// CorruptHistory and must be treated as a fatal integrity error.
func (c *CatalogService) Rebuild(blocks []domain.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	for _, b := range blocks {
		for i := range b.Transactions {
			if err := c.apply(&b.Transactions[i]); err != nil {
				return apperror.ErrCorruptHistory(
					fmt.Errorf("block %d transaction %s: %w", b.Index, b.Transactions[i].ID, err))
			}
		}
	}
	return nil
}

// Apply folds one committed transaction into the projection. Called by
// the coordinator after a successful append.
func (c *CatalogService) Apply(tx *domain.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(tx)
}

func (c *CatalogService) apply(tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	switch tx.Type {
	case domain.TransactionTypeCreateEvent:
		ev := tx.CreateEvent.Event
		if _, exists := c.events[ev.ID]; exists {
			return fmt.Errorf("event %s already exists", ev.ID)
		}
		cp := ev
		c.events[ev.ID] = &cp
		c.minted[ev.ID] = make(map[string]int)
		c.refunded[ev.ID] = make(map[string]int)

	case domain.TransactionTypeMint:
		p := tx.Mint
		ev, ok := c.events[p.EventID]
		if !ok {
			return fmt.Errorf("event %s does not exist", p.EventID)
		}
		tt, ok := ev.TicketType(p.TicketTypeCode)
		if !ok {
			return fmt.Errorf("ticket type %q does not exist in event %s", p.TicketTypeCode, p.EventID)
		}
		if c.minted[ev.ID][tt.Code] >= tt.Capacity {
			return fmt.Errorf("capacity exhausted for type %q in event %s", tt.Code, ev.ID)
		}
		if _, exists := c.tickets[*tx.TicketID]; exists {
			return fmt.Errorf("ticket %s already exists", *tx.TicketID)
		}
		c.tickets[*tx.TicketID] = &domain.Ticket{
			ID:             *tx.TicketID,
			EventID:        ev.ID,
			TicketTypeCode: tt.Code,
			ListPrice:      tt.Price,
			OwnerWallet:    p.OwnerWallet,
			Status:         domain.TicketStatusMinted,
			MintedAt:       tx.Timestamp,
			AcquiredAt:     tx.Timestamp,
		}
		c.minted[ev.ID][tt.Code]++
		c.revenue[ev.ID] += p.Price
		c.indexOwner(p.OwnerWallet, *tx.TicketID)

	case domain.TransactionTypeTransfer:
		p := tx.Transfer
		tk, ok := c.tickets[*tx.TicketID]
		if !ok {
			return fmt.Errorf("ticket %s does not exist", *tx.TicketID)
		}
		if tk.OwnerWallet != p.FromWallet {
			return fmt.Errorf("ticket %s not owned by %s", tk.ID, p.FromWallet)
		}
		if tk.Status == domain.TicketStatusRefunded {
			return fmt.Errorf("ticket %s is refunded", tk.ID)
		}
		delete(c.byWallet[p.FromWallet], tk.ID)
		tk.OwnerWallet = p.ToWallet
		tk.Status = domain.TicketStatusTransferred
		tk.AcquiredAt = tx.Timestamp
		c.indexOwner(p.ToWallet, tk.ID)

	case domain.TransactionTypeRefund:
		p := tx.Refund
		tk, ok := c.tickets[*tx.TicketID]
		if !ok {
			return fmt.Errorf("ticket %s does not exist", *tx.TicketID)
		}
		if tk.OwnerWallet != p.OwnerWallet {
			return fmt.Errorf("ticket %s not owned by %s", tk.ID, p.OwnerWallet)
		}
		if tk.Status == domain.TicketStatusRefunded {
			return fmt.Errorf("ticket %s already refunded", tk.ID)
		}
		tk.Status = domain.TicketStatusRefunded
		c.refunded[tk.EventID][tk.TicketTypeCode]++
		c.refundTotal[tk.EventID] += p.RefundAmount
	}

	c.recordActivity(tx)
	return nil
}

func (c *CatalogService) indexOwner(wallet string, ticketID uuid.UUID) {
	if c.byWallet[wallet] == nil {
		c.byWallet[wallet] = make(map[uuid.UUID]struct{})
	}
	c.byWallet[wallet][ticketID] = struct{}{}
}

func (c *CatalogService) recordActivity(tx *domain.Transaction) {
	hist := append(c.activity[tx.ActorWallet], *tx)
	if len(hist) > walletHistoryCap {
		hist = hist[len(hist)-walletHistoryCap:]
	}
	c.activity[tx.ActorWallet] = hist
}

// --- Dry-run business checks ---

// CheckCreateEvent validates that the event identifier is unused.
func (c *CatalogService) CheckCreateEvent(eventID uuid.UUID) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, exists := c.events[eventID]; exists {
		return apperror.ErrDuplicateEvent()
	}
	return nil
}

// CheckMint validates capacity and the per-wallet cap for a pending
// mint, returning the ticket type definition (the list price).
func (c *CatalogService) CheckMint(eventID uuid.UUID, typeCode, wallet string) (domain.TicketTypeDef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.checkMint(eventID, typeCode, wallet)
}

func (c *CatalogService) checkMint(eventID uuid.UUID, typeCode, wallet string) (domain.TicketTypeDef, error) {
	ev, ok := c.events[eventID]
	if !ok {
		return domain.TicketTypeDef{}, apperror.ErrUnknownEventOrType()
	}
	tt, ok := ev.TicketType(typeCode)
	if !ok {
		return domain.TicketTypeDef{}, apperror.ErrUnknownEventOrType()
	}
	if c.minted[eventID][typeCode] >= tt.Capacity {
		return domain.TicketTypeDef{}, apperror.ErrCapacityExceeded()
	}
	if ev.MaxPerWallet > 0 {
		owned := 0
		for id := range c.byWallet[wallet] {
			if tk := c.tickets[id]; tk != nil && tk.EventID == eventID && tk.Status != domain.TicketStatusRefunded {
				owned++
			}
		}
		if owned >= ev.MaxPerWallet {
			return domain.TicketTypeDef{}, apperror.ErrMaxPerWalletExceeded()
		}
	}
	return tt, nil
}

// CheckTransfer validates ownership and transferability.
func (c *CatalogService) CheckTransfer(ticketID uuid.UUID, fromWallet string) (domain.Ticket, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.checkTransfer(ticketID, fromWallet)
}

func (c *CatalogService) checkTransfer(ticketID uuid.UUID, fromWallet string) (domain.Ticket, error) {
	tk, ok := c.tickets[ticketID]
	if !ok {
		return domain.Ticket{}, apperror.ErrUnknownTicket()
	}
	if !tk.CanTransfer() {
		return domain.Ticket{}, apperror.ErrTicketNotTransferable()
	}
	if tk.OwnerWallet != fromWallet {
		return domain.Ticket{}, apperror.ErrNotOwner()
	}
	return *tk, nil
}

// CheckRefund validates ownership, status and the refund window,
// returning the ticket and the tiered refund amount.
func (c *CatalogService) CheckRefund(ticketID uuid.UUID, wallet string, now time.Time) (domain.Ticket, int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.checkRefund(ticketID, wallet, now)
}

func (c *CatalogService) checkRefund(ticketID uuid.UUID, wallet string, now time.Time) (domain.Ticket, int64, error) {
	tk, ok := c.tickets[ticketID]
	if !ok {
		return domain.Ticket{}, 0, apperror.ErrUnknownTicket()
	}
	if tk.Status == domain.TicketStatusRefunded {
		return domain.Ticket{}, 0, apperror.ErrAlreadyRefunded()
	}
	if tk.OwnerWallet != wallet {
		return domain.Ticket{}, 0, apperror.ErrNotOwner()
	}
	ev, ok := c.events[tk.EventID]
	if !ok {
		return domain.Ticket{}, 0, apperror.ErrUnknownEventOrType()
	}
	amount, refundable := ev.RefundAmount(tk.ListPrice, now)
	if !refundable {
		return domain.Ticket{}, 0, apperror.ErrRefundWindowClosed()
	}
	return *tk, amount, nil
}

// Recheck runs the dry-run check for a built transaction. The
// coordinator calls this inside the exclusive commit section so that
// check-then-act is atomic with respect to other appends.
func (c *CatalogService) Recheck(tx *domain.Transaction, now time.Time) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch tx.Type {
	case domain.TransactionTypeCreateEvent:
		if _, exists := c.events[tx.CreateEvent.Event.ID]; exists {
			return apperror.ErrDuplicateEvent()
		}
	case domain.TransactionTypeMint:
		_, err := c.checkMint(tx.Mint.EventID, tx.Mint.TicketTypeCode, tx.Mint.OwnerWallet)
		return err
	case domain.TransactionTypeTransfer:
		_, err := c.checkTransfer(*tx.TicketID, tx.Transfer.FromWallet)
		return err
	case domain.TransactionTypeRefund:
		_, _, err := c.checkRefund(*tx.TicketID, tx.Refund.OwnerWallet, now)
		return err
	}
	return nil
}

// --- Read-only queries ---

// Events lists all events ordered by name.
func (c *CatalogService) Events() []domain.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Event, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Event returns one event, or nil.
func (c *CatalogService) Event(id uuid.UUID) *domain.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.events[id]
	if !ok {
		return nil
	}
	cp := *ev
	return &cp
}

// Ticket returns one ticket, or nil.
func (c *CatalogService) Ticket(id uuid.UUID) *domain.Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tk, ok := c.tickets[id]
	if !ok {
		return nil
	}
	cp := *tk
	return &cp
}

// TicketsByEvent lists all tickets of one event.
func (c *CatalogService) TicketsByEvent(eventID uuid.UUID) []domain.Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.Ticket
	for _, tk := range c.tickets {
		if tk.EventID == eventID {
			out = append(out, *tk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MintedAt.Before(out[j].MintedAt) })
	return out
}

// TicketsByWallet lists tickets currently owned by a wallet.
func (c *CatalogService) TicketsByWallet(wallet string) []domain.Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.Ticket
	for id := range c.byWallet[wallet] {
		if tk, ok := c.tickets[id]; ok {
			out = append(out, *tk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MintedAt.Before(out[j].MintedAt) })
	return out
}

// Stats aggregates sold, remaining, revenue and refunds for one event.
func (c *CatalogService) Stats(eventID uuid.UUID) (*ports.EventStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ev, ok := c.events[eventID]
	if !ok {
		return nil, apperror.ErrUnknownEventOrType()
	}

	stats := &ports.EventStats{
		EventID:  ev.ID,
		Name:     ev.Name,
		Revenue:  c.revenue[eventID],
		Refunded: c.refundTotal[eventID],
	}
	for _, tt := range ev.TicketTypes {
		sold := c.minted[eventID][tt.Code]
		stats.TotalSold += sold
		stats.ByType = append(stats.ByType, ports.TypeStats{
			Code:      tt.Code,
			Price:     tt.Price,
			Capacity:  tt.Capacity,
			Sold:      sold,
			Remaining: tt.Capacity - sold,
			Refunded:  c.refunded[eventID][tt.Code],
		})
	}
	return stats, nil
}

// RecentActivity returns the wallet's committed transactions within the
// trailing window, oldest first. Used as the fraud scorer's history.
func (c *CatalogService) RecentActivity(wallet string, window time.Duration, now time.Time) []domain.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cutoff := now.Add(-window)
	var out []domain.Transaction
	for _, tx := range c.activity[wallet] {
		if !tx.Timestamp.Before(cutoff) {
			out = append(out, tx)
		}
	}
	return out
}
