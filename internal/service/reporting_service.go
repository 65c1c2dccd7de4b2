package service

import (
	"context"

	"ticketchain/internal/core/domain"
	"ticketchain/internal/core/ports"
	"ticketchain/pkg/apperror"

	"github.com/google/uuid"
)

// ReportingService is the read-only query surface. Every read is served
// from the catalog projection or the ledger summary; it never walks raw
// blocks itself.
type ReportingService struct {
	catalog *CatalogService
	ledger  *LedgerService
}

// NewReportingService creates a ReportingService.
func NewReportingService(catalog *CatalogService, ledger *LedgerService) *ReportingService {
	return &ReportingService{catalog: catalog, ledger: ledger}
}

func (s *ReportingService) ListEvents(_ context.Context) ([]domain.Event, error) {
	return s.catalog.Events(), nil
}

func (s *ReportingService) GetEvent(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	ev := s.catalog.Event(id)
	if ev == nil {
		return nil, apperror.ErrUnknownEventOrType()
	}
	return ev, nil
}

func (s *ReportingService) EventStats(_ context.Context, id uuid.UUID) (*ports.EventStats, error) {
	return s.catalog.Stats(id)
}

func (s *ReportingService) TicketsByEvent(_ context.Context, eventID uuid.UUID) ([]domain.Ticket, error) {
	if s.catalog.Event(eventID) == nil {
		return nil, apperror.ErrUnknownEventOrType()
	}
	return s.catalog.TicketsByEvent(eventID), nil
}

func (s *ReportingService) TicketsByWallet(_ context.Context, walletID string) ([]domain.Ticket, error) {
	return s.catalog.TicketsByWallet(walletID), nil
}

func (s *ReportingService) GetTicket(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	tk := s.catalog.Ticket(id)
	if tk == nil {
		return nil, apperror.ErrUnknownTicket()
	}
	return tk, nil
}

func (s *ReportingService) ChainStatus(_ context.Context) (*ports.ChainStatus, error) {
	length, tip := s.ledger.Tip()
	return &ports.ChainStatus{
		Length:  length,
		TipHash: tip,
		Halted:  s.ledger.Halted(),
	}, nil
}

// VerifyChain runs a full integrity scan and returns the resulting
// status. A violation is returned as the error alongside the (halted)
// status so callers can report both.
func (s *ReportingService) VerifyChain(_ context.Context) (*ports.ChainStatus, error) {
	_, err := s.ledger.VerifyIntegrity()
	length, tip := s.ledger.Tip()
	status := &ports.ChainStatus{
		Length:  length,
		TipHash: tip,
		Halted:  s.ledger.Halted(),
	}
	return status, err
}
