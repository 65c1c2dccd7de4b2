package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"ticketchain/internal/core/domain"
	"ticketchain/internal/core/ports"

	"github.com/rs/zerolog"
)

// webhookRetryIntervals defines the delivery backoff schedule.
var webhookRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// Webhook event types
const (
	EventTicketMinted      = "TICKET_MINTED"
	EventTicketTransferred = "TICKET_TRANSFERRED"
	EventTicketRefunded    = "TICKET_REFUNDED"
	EventEventCreated      = "EVENT_CREATED"
)

// WebhookPayload is the JSON structure sent to the organizer's
// webhook_url. Signature is hex HMAC-SHA256 of the serialized data
// using the organizer's webhook secret.
type WebhookPayload struct {
	EventType string             `json:"event_type"`
	Data      WebhookPayloadData `json:"data"`
	Signature string             `json:"signature"`
}

// WebhookPayloadData holds the committed transaction details.
type WebhookPayloadData struct {
	TransactionID string   `json:"transaction_id"`
	TicketID      string   `json:"ticket_id,omitempty"`
	EventID       string   `json:"event_id"`
	ActorWallet   string   `json:"actor_wallet"`
	Amount        int64    `json:"amount"`
	BlockIndex    uint64   `json:"block_index"`
	BlockHash     string   `json:"block_hash"`
	Flagged       bool     `json:"flagged"`
	FraudReasons  []string `json:"fraud_reasons,omitempty"`
	Timestamp     int64    `json:"timestamp"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// webhookService implements ports.WebhookService. It resolves the
// organizer behind the affected event and fires delivery asynchronously
// so commits never wait on organizer endpoints.
type webhookService struct {
	organizerRepo ports.OrganizerRepository
	catalog       *CatalogService
	httpClient    HTTPClient
	log           zerolog.Logger
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(
	organizerRepo ports.OrganizerRepository,
	catalog *CatalogService,
	httpClient HTTPClient,
	log zerolog.Logger,
) ports.WebhookService {
	return &webhookService{
		organizerRepo: organizerRepo,
		catalog:       catalog,
		httpClient:    httpClient,
		log:           log,
	}
}

// NotifyCommit delivers a commit notification to the organizer of the
// affected event, if one is registered with a webhook URL.
func (s *webhookService) NotifyCommit(ctx context.Context, receipt *ports.CommitReceipt) error {
	tx := receipt.Transaction

	eventID, organizerWallet, ok := s.resolveEvent(&tx)
	if !ok {
		s.log.Debug().Str("tx_id", tx.ID.String()).Msg("webhook: no event resolved, skipping")
		return nil
	}

	organizer, err := s.organizerRepo.GetByWallet(ctx, organizerWallet)
	if err != nil {
		s.log.Error().Err(err).Str("wallet_id", organizerWallet).Msg("webhook: failed to fetch organizer")
		return err
	}
	if organizer == nil || organizer.WebhookURL == nil || *organizer.WebhookURL == "" {
		s.log.Debug().Str("wallet_id", organizerWallet).Msg("webhook: no webhook URL configured, skipping")
		return nil
	}

	eventType := EventEventCreated
	switch tx.Type {
	case domain.TransactionTypeMint:
		eventType = EventTicketMinted
	case domain.TransactionTypeTransfer:
		eventType = EventTicketTransferred
	case domain.TransactionTypeRefund:
		eventType = EventTicketRefunded
	}

	data := WebhookPayloadData{
		TransactionID: tx.ID.String(),
		EventID:       eventID,
		ActorWallet:   tx.ActorWallet,
		Amount:        tx.Amount(),
		BlockIndex:    receipt.BlockIndex,
		BlockHash:     receipt.BlockHash,
		Flagged:       tx.Flagged,
		FraudReasons:  tx.FraudReasons,
		Timestamp:     time.Now().Unix(),
	}
	if tx.TicketID != nil {
		data.TicketID = tx.TicketID.String()
	}

	dataBytes, _ := json.Marshal(data)
	mac := hmac.New(sha256.New, []byte(organizer.WebhookSecret))
	mac.Write(dataBytes)

	payload := WebhookPayload{
		EventType: eventType,
		Data:      data,
		Signature: hex.EncodeToString(mac.Sum(nil)),
	}

	go s.deliverWithRetries(*organizer.WebhookURL, payload, tx.ID.String())

	return nil
}

// resolveEvent finds the event an already-committed transaction belongs
// to, and the organizer wallet anchored to it.
func (s *webhookService) resolveEvent(tx *domain.Transaction) (eventID, organizerWallet string, ok bool) {
	if tx.Type == domain.TransactionTypeCreateEvent && tx.CreateEvent != nil {
		ev := tx.CreateEvent.Event
		return ev.ID.String(), ev.OrganizerWallet, true
	}
	if tx.TicketID == nil {
		return "", "", false
	}
	tk := s.catalog.Ticket(*tx.TicketID)
	if tk == nil {
		return "", "", false
	}
	ev := s.catalog.Event(tk.EventID)
	if ev == nil {
		return "", "", false
	}
	return ev.ID.String(), ev.OrganizerWallet, true
}

// deliverWithRetries attempts to deliver the webhook with backoff.
func (s *webhookService) deliverWithRetries(url string, payload WebhookPayload, txID string) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("tx_id", txID).Msg("webhook: failed to marshal payload")
		return
	}

	for attempt := 0; attempt <= len(webhookRetryIntervals); attempt++ {
		if attempt > 0 {
			time.Sleep(webhookRetryIntervals[attempt-1])
		}

		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payloadBytes))
		if err != nil {
			s.log.Error().Err(err).Str("tx_id", txID).Int("attempt", attempt+1).Msg("webhook: failed to create request")
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.log.Warn().Err(err).Str("tx_id", txID).Int("attempt", attempt+1).Msg("webhook: delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.log.Info().Str("tx_id", txID).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("webhook: delivered successfully")
			return
		}

		s.log.Warn().Str("tx_id", txID).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("webhook: non-2xx response, retrying")
	}

	s.log.Error().Str("tx_id", txID).Msg("webhook: all retry attempts exhausted")
}
