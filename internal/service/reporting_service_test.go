package service

import (
	"context"
	"testing"

	"ticketchain/internal/core/domain"
	"ticketchain/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupReporting(t *testing.T) (*ReportingService, *CatalogService, *LedgerService) {
	t.Helper()
	led := newMemoryLedger(t)
	cat := NewCatalogService()
	return NewReportingService(cat, led), cat, led
}

func TestReportingService_EventQueries(t *testing.T) {
	svc, cat, _ := setupReporting(t)
	ctx := context.Background()

	ev := testEvent(0)
	mint := mintTx(ev, "GA", "w1", 5000)
	applyAll(t, cat, createEventTx(ev), mint)

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	got, err := svc.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Name, got.Name)

	_, err = svc.GetEvent(ctx, uuid.New())
	assertAppError(t, err, apperror.ErrUnknownEventOrType().Code)

	tickets, err := svc.TicketsByEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 1)

	_, err = svc.TicketsByEvent(ctx, uuid.New())
	assertAppError(t, err, apperror.ErrUnknownEventOrType().Code)

	owned, err := svc.TicketsByWallet(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	tk, err := svc.GetTicket(ctx, *mint.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "w1", tk.OwnerWallet)

	_, err = svc.GetTicket(ctx, uuid.New())
	assertAppError(t, err, apperror.ErrUnknownTicket().Code)

	stats, err := svc.EventStats(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSold)
}

func TestReportingService_ChainStatus(t *testing.T) {
	svc, _, led := setupReporting(t)
	ctx := context.Background()

	status, err := svc.ChainStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), status.Length)
	assert.False(t, status.Halted)

	_, tip := led.Tip()
	assert.Equal(t, tip, status.TipHash)
}

func TestReportingService_VerifyChain(t *testing.T) {
	svc, _, led := setupReporting(t)
	ctx := context.Background()

	t.Run("clean chain", func(t *testing.T) {
		_, tip := led.Tip()
		_, err := led.Append(ctx, tip, []domain.Transaction{testMintTx("w1")})
		require.NoError(t, err)

		status, err := svc.VerifyChain(ctx)
		require.NoError(t, err)
		assert.False(t, status.Halted)
	})

	t.Run("tampered chain halts", func(t *testing.T) {
		led.chain[1].Transactions[0].Mint.Price = 1

		status, err := svc.VerifyChain(ctx)
		require.Error(t, err)
		assert.True(t, status.Halted)
	})
}
