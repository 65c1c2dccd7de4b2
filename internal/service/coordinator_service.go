package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ticketchain/internal/core/domain"
	"ticketchain/internal/core/ports"
	"ticketchain/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// historyWindow is how much wallet history the scorer sees. Wide enough
// for every rule window; strategies apply their own cutoffs.
const historyWindow = 10 * time.Minute

// commandNonceTTL bounds how long a signed command nonce is remembered.
const commandNonceTTL = 10 * time.Minute

// Coordinator orchestrates the commit pipeline: structural validation,
// catalog dry-run, optimistic fraud scoring, then an atomic
// re-validate + append + apply inside one exclusive section. It holds no
// invariants of its own beyond that sequencing.
type Coordinator struct {
	ledger   *LedgerService
	catalog  *CatalogService
	registry ports.RegistryService
	scorer   ports.FraudStrategy
	nonces   ports.NonceStore
	webhooks ports.WebhookService // nil = notifications disabled
	log      zerolog.Logger
	now      func() time.Time

	// commitMu serializes check-then-append so two concurrent mints
	// cannot both observe a free slot for the last ticket.
	commitMu sync.Mutex
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(
	ledger *LedgerService,
	catalog *CatalogService,
	registry ports.RegistryService,
	scorer ports.FraudStrategy,
	nonces ports.NonceStore,
	webhooks ports.WebhookService,
	log zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		ledger:   ledger,
		catalog:  catalog,
		registry: registry,
		scorer:   scorer,
		nonces:   nonces,
		webhooks: webhooks,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateEvent validates and commits a CreateEvent transaction. Event
// creation is an organizer action and skips fraud scoring: the rules and
// model features are defined over priced ticket movements.
func (co *Coordinator) CreateEvent(ctx context.Context, req ports.CreateEventRequest) (*ports.CommitReceipt, error) {
	if req.Name == "" || len(req.TicketTypes) == 0 {
		return nil, apperror.Validation("event name and at least one ticket type are required")
	}
	seen := make(map[string]struct{}, len(req.TicketTypes))
	for _, tt := range req.TicketTypes {
		if tt.Code == "" || tt.Capacity <= 0 || tt.Price < 0 {
			return nil, apperror.Validation("ticket types need a code, positive capacity and non-negative price")
		}
		if _, dup := seen[tt.Code]; dup {
			return nil, apperror.Validation(fmt.Sprintf("duplicate ticket type code %q", tt.Code))
		}
		seen[tt.Code] = struct{}{}
	}
	if err := co.requireWallet(ctx, req.OrganizerWallet); err != nil {
		return nil, err
	}

	event := domain.Event{
		ID:              uuid.New(),
		Name:            req.Name,
		Venue:           req.Venue,
		StartsAt:        req.StartsAt,
		RefundableUntil: req.RefundableUntil,
		MaxPerWallet:    req.MaxPerWallet,
		OrganizerWallet: req.OrganizerWallet,
		TicketTypes:     req.TicketTypes,
	}

	tx := domain.Transaction{
		ID:          uuid.New(),
		Type:        domain.TransactionTypeCreateEvent,
		Timestamp:   co.now(),
		ActorWallet: req.OrganizerWallet,
		CreateEvent: &domain.CreateEventPayload{Event: event},
	}

	if err := co.catalog.CheckCreateEvent(event.ID); err != nil {
		return nil, err
	}

	return co.commit(ctx, &tx, domain.FraudVerdict{Decision: domain.DecisionAllow})
}

// Mint validates, scores and commits a Mint transaction.
func (co *Coordinator) Mint(ctx context.Context, req ports.MintRequest) (*ports.CommitReceipt, error) {
	if req.EventID == uuid.Nil || req.TicketTypeCode == "" {
		return nil, apperror.Validation("event id and ticket type are required")
	}
	if err := co.requireWallet(ctx, req.OwnerWallet); err != nil {
		return nil, err
	}

	// Dry run: capacity, per-wallet cap, list price.
	tt, err := co.catalog.CheckMint(req.EventID, req.TicketTypeCode, req.OwnerWallet)
	if err != nil {
		return nil, err
	}

	amount := req.Amount
	if amount == 0 {
		amount = tt.Price
	}

	ticketID := uuid.New()
	tx := domain.Transaction{
		ID:          uuid.New(),
		Type:        domain.TransactionTypeMint,
		Timestamp:   co.now(),
		ActorWallet: req.OwnerWallet,
		TicketID:    &ticketID,
		Mint: &domain.MintPayload{
			EventID:        req.EventID,
			TicketTypeCode: req.TicketTypeCode,
			OwnerWallet:    req.OwnerWallet,
			Price:          amount,
		},
	}

	verdict := co.score(&tx, ports.ScoringInput{ListPrice: tt.Price})
	if verdict.Decision == domain.DecisionReject {
		return nil, apperror.ErrFraudRejected(verdict.Reasons)
	}

	return co.commit(ctx, &tx, verdict)
}

// Transfer validates the owner's signature, scores and commits a
// Transfer transaction.
func (co *Coordinator) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.CommitReceipt, error) {
	if req.TicketID == uuid.Nil || req.FromWallet == "" || req.ToWallet == "" {
		return nil, apperror.Validation("ticket id, from and to wallets are required")
	}
	if req.FromWallet == req.ToWallet {
		return nil, apperror.Validation("cannot transfer a ticket to its current owner")
	}
	if err := co.requireWallet(ctx, req.ToWallet); err != nil {
		return nil, err
	}

	payload := domain.TransferSigningPayload(req.TicketID, req.FromWallet, req.ToWallet, req.Price, req.Nonce)
	if err := co.authorize(ctx, req.FromWallet, payload, req.Nonce, req.Signature); err != nil {
		return nil, err
	}

	ticket, err := co.catalog.CheckTransfer(req.TicketID, req.FromWallet)
	if err != nil {
		return nil, err
	}

	tx := domain.Transaction{
		ID:          uuid.New(),
		Type:        domain.TransactionTypeTransfer,
		Timestamp:   co.now(),
		ActorWallet: req.FromWallet,
		TicketID:    &req.TicketID,
		Transfer: &domain.TransferPayload{
			FromWallet: req.FromWallet,
			ToWallet:   req.ToWallet,
			Price:      req.Price,
		},
	}

	verdict := co.score(&tx, ports.ScoringInput{
		ListPrice:    ticket.ListPrice,
		TicketStatus: ticket.Status,
		AcquiredAt:   ticket.AcquiredAt,
	})
	if verdict.Decision == domain.DecisionReject {
		return nil, apperror.ErrFraudRejected(verdict.Reasons)
	}

	return co.commit(ctx, &tx, verdict)
}

// Refund validates the owner's signature, scores and commits a Refund
// transaction with the tiered refund amount.
func (co *Coordinator) Refund(ctx context.Context, req ports.RefundRequest) (*ports.CommitReceipt, error) {
	if req.TicketID == uuid.Nil || req.Wallet == "" {
		return nil, apperror.Validation("ticket id and wallet are required")
	}

	payload := domain.RefundSigningPayload(req.TicketID, req.Wallet, req.Nonce)
	if err := co.authorize(ctx, req.Wallet, payload, req.Nonce, req.Signature); err != nil {
		return nil, err
	}

	ticket, amount, err := co.catalog.CheckRefund(req.TicketID, req.Wallet, co.now())
	if err != nil {
		return nil, err
	}

	tx := domain.Transaction{
		ID:          uuid.New(),
		Type:        domain.TransactionTypeRefund,
		Timestamp:   co.now(),
		ActorWallet: req.Wallet,
		TicketID:    &req.TicketID,
		Refund: &domain.RefundPayload{
			OwnerWallet:  req.Wallet,
			RefundAmount: amount,
		},
	}

	verdict := co.score(&tx, ports.ScoringInput{
		ListPrice:    ticket.ListPrice,
		TicketStatus: ticket.Status,
		AcquiredAt:   ticket.AcquiredAt,
	})
	if verdict.Decision == domain.DecisionReject {
		return nil, apperror.ErrFraudRejected(verdict.Reasons)
	}

	return co.commit(ctx, &tx, verdict)
}

// requireWallet rejects commands from unregistered wallets.
func (co *Coordinator) requireWallet(ctx context.Context, walletID string) error {
	if walletID == "" {
		return apperror.Validation("wallet id is required")
	}
	wallet, err := co.registry.Lookup(ctx, walletID)
	if err != nil {
		return err
	}
	if wallet == nil {
		return apperror.ErrUnknownWallet()
	}
	return nil
}

// authorize verifies the wallet signature over the canonical command
// payload and burns the nonce against replay.
func (co *Coordinator) authorize(ctx context.Context, walletID, payload, nonce string, signature []byte) error {
	if nonce == "" || len(signature) == 0 {
		return apperror.Validation("nonce and signature are required")
	}

	ok, err := co.registry.Verify(ctx, walletID, []byte(payload), signature)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrInvalidSignature()
	}

	fresh, err := co.nonces.CheckAndSet(ctx, walletID, nonce, commandNonceTTL)
	if err != nil {
		co.log.Warn().Err(err).Str("wallet_id", walletID).Msg("nonce store error, allowing command")
		return nil
	}
	if !fresh {
		return apperror.ErrNonceUsed()
	}
	return nil
}

// score runs the composite scorer outside the exclusive section. The
// scorer is pure and may be slow (model inference), so it never holds
// the commit lock.
func (co *Coordinator) score(tx *domain.Transaction, in ports.ScoringInput) domain.FraudVerdict {
	in.Tx = *tx
	in.Now = co.now()
	in.History = co.catalog.RecentActivity(tx.ActorWallet, historyWindow, in.Now)

	verdict := co.scorer.Evaluate(in)

	co.log.Debug().
		Str("tx_id", tx.ID.String()).
		Str("decision", verdict.Decision.String()).
		Float64("score", verdict.Score).
		Strs("reasons", verdict.Reasons).
		Msg("fraud verdict")

	return verdict
}

// commit is the exclusive section: re-validate the business rule against
// the live catalog, append to the ledger, then fold the committed
// transaction back into the catalog. A ChainLinkMismatch is retried
// exactly once after refreshing the tip; a second failure is fatal.
func (co *Coordinator) commit(ctx context.Context, tx *domain.Transaction, verdict domain.FraudVerdict) (*ports.CommitReceipt, error) {
	if verdict.Decision == domain.DecisionFlag {
		tx.Flagged = true
		tx.FraudReasons = verdict.Reasons
	}

	co.commitMu.Lock()
	defer co.commitMu.Unlock()

	// Pre-checks ran outside the lock and may be stale by now.
	if err := co.catalog.Recheck(tx, co.now()); err != nil {
		return nil, err
	}

	_, tipHash := co.ledger.Tip()
	block, err := co.ledger.Append(ctx, tipHash, []domain.Transaction{*tx})
	if err != nil {
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) || appErr.Code != apperror.ErrChainLinkMismatch().Code {
			return nil, err
		}
		_, tipHash = co.ledger.Tip()
		block, err = co.ledger.Append(ctx, tipHash, []domain.Transaction{*tx})
		if err != nil {
			return nil, apperror.ErrConcurrentAppend(err)
		}
	}

	if err := co.catalog.Apply(tx); err != nil {
		// The ledger accepted a transaction the catalog cannot replay;
		// the projection is no longer trustworthy.
		co.log.Error().Err(err).Str("tx_id", tx.ID.String()).Msg("catalog apply failed after commit")
		return nil, apperror.ErrCorruptHistory(err)
	}

	receipt := &ports.CommitReceipt{
		Transaction: *tx,
		BlockIndex:  block.Index,
		BlockHash:   block.Hash,
		Verdict:     verdict,
	}

	if co.webhooks != nil {
		if err := co.webhooks.NotifyCommit(ctx, receipt); err != nil {
			co.log.Warn().Err(err).Str("tx_id", tx.ID.String()).Msg("webhook notification failed")
		}
	}

	co.log.Info().
		Str("tx_id", tx.ID.String()).
		Str("type", string(tx.Type)).
		Uint64("block", block.Index).
		Bool("flagged", tx.Flagged).
		Msg("transaction committed")

	return receipt, nil
}
