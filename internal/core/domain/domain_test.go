package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() Event {
	return Event{
		ID:              uuid.New(),
		Name:            "Summer Fest",
		Venue:           "Main Hall",
		StartsAt:        time.Now().UTC().Add(30 * 24 * time.Hour),
		RefundableUntil: time.Now().UTC().Add(25 * 24 * time.Hour),
		MaxPerWallet:    4,
		OrganizerWallet: "org-wallet",
		TicketTypes: []TicketTypeDef{
			{Code: "GA", Price: 5000, Capacity: 100},
			{Code: "VIP", Price: 20000, Capacity: 10},
		},
	}
}

func mintTx(ticketID uuid.UUID, eventID uuid.UUID, wallet string, price int64) Transaction {
	return Transaction{
		ID:          uuid.New(),
		Type:        TransactionTypeMint,
		Timestamp:   time.Now().UTC(),
		ActorWallet: wallet,
		TicketID:    &ticketID,
		Mint: &MintPayload{
			EventID:        eventID,
			TicketTypeCode: "GA",
			OwnerWallet:    wallet,
			Price:          price,
		},
	}
}

func TestEvent_TicketType(t *testing.T) {
	e := testEvent()

	tt, ok := e.TicketType("VIP")
	require.True(t, ok)
	assert.Equal(t, int64(20000), tt.Price)

	_, ok = e.TicketType("BACKSTAGE")
	assert.False(t, ok)
}

func TestEvent_RefundAmount_Tiers(t *testing.T) {
	now := time.Now().UTC()
	e := Event{
		StartsAt:        now.Add(10 * 24 * time.Hour),
		RefundableUntil: now.Add(9 * 24 * time.Hour),
	}

	amount, ok := e.RefundAmount(1000, now)
	require.True(t, ok)
	assert.Equal(t, int64(1000), amount, "full refund seven or more days out")

	e.StartsAt = now.Add(4 * 24 * time.Hour)
	amount, ok = e.RefundAmount(1000, now)
	require.True(t, ok)
	assert.Equal(t, int64(750), amount)

	e.StartsAt = now.Add(2 * 24 * time.Hour)
	amount, ok = e.RefundAmount(1000, now)
	require.True(t, ok)
	assert.Equal(t, int64(500), amount)

	e.StartsAt = now.Add(2 * time.Hour)
	_, ok = e.RefundAmount(1000, now)
	assert.False(t, ok, "under one day before the event")
}

func TestEvent_RefundAmount_DeadlinePassed(t *testing.T) {
	now := time.Now().UTC()
	e := Event{
		StartsAt:        now.Add(30 * 24 * time.Hour),
		RefundableUntil: now.Add(-time.Hour),
	}
	_, ok := e.RefundAmount(1000, now)
	assert.False(t, ok)
}

func TestTicket_StatusTransitions(t *testing.T) {
	tk := Ticket{Status: TicketStatusMinted}
	assert.True(t, tk.CanTransfer())
	assert.True(t, tk.CanRefund())

	tk.Status = TicketStatusTransferred
	assert.True(t, tk.CanTransfer())

	tk.Status = TicketStatusRefunded
	assert.False(t, tk.CanTransfer(), "refunded is terminal")
	assert.False(t, tk.CanRefund())
}

func TestTicket_ArtifactPayload(t *testing.T) {
	tk := Ticket{ID: uuid.New(), EventID: uuid.New(), OwnerWallet: "w1"}
	p1 := tk.ArtifactPayload()
	p2 := tk.ArtifactPayload()
	assert.Equal(t, p1, p2, "artifact payload is deterministic")
	assert.Contains(t, p1, tk.ID.String())

	tk.OwnerWallet = "w2"
	assert.NotEqual(t, p1, tk.ArtifactPayload(), "digest binds the owner")
}

func TestTransaction_Validate(t *testing.T) {
	ticketID := uuid.New()
	tx := mintTx(ticketID, uuid.New(), "w1", 5000)
	assert.NoError(t, tx.Validate())

	bad := tx
	bad.Mint = nil
	assert.Error(t, bad.Validate())

	bad = tx
	bad.ActorWallet = ""
	assert.Error(t, bad.Validate())

	bad = tx
	bad.Type = "BURN"
	assert.Error(t, bad.Validate())
}

func TestTransaction_Amount(t *testing.T) {
	ticketID := uuid.New()
	tx := mintTx(ticketID, uuid.New(), "w1", 5000)
	assert.Equal(t, int64(5000), tx.Amount())

	ref := Transaction{
		Type:   TransactionTypeRefund,
		Refund: &RefundPayload{OwnerWallet: "w1", RefundAmount: 2500},
	}
	assert.Equal(t, int64(2500), ref.Amount())

	ce := Transaction{Type: TransactionTypeCreateEvent}
	assert.Zero(t, ce.Amount())
}

func TestBlock_HashDeterminism(t *testing.T) {
	ticketID := uuid.New()
	b := Block{
		Index:        1,
		Timestamp:    time.Now().UTC(),
		PreviousHash: GenesisPreviousHash,
		Transactions: []Transaction{mintTx(ticketID, uuid.New(), "w1", 5000)},
	}

	h1, err := b.ComputeHash()
	require.NoError(t, err)
	h2, err := b.ComputeHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestBlock_HashCoversTransactionContents(t *testing.T) {
	ticketID := uuid.New()
	b := Block{
		Index:        1,
		Timestamp:    time.Now().UTC(),
		PreviousHash: GenesisPreviousHash,
		Transactions: []Transaction{mintTx(ticketID, uuid.New(), "w1", 5000)},
	}
	require.NoError(t, b.Seal())
	original := b.Hash

	b.Transactions[0].Mint.Price = 5001
	tampered, err := b.ComputeHash()
	require.NoError(t, err)
	assert.NotEqual(t, original, tampered, "any payload mutation must change the hash")
}

func TestBlock_HashCoversChainLink(t *testing.T) {
	b := Block{Index: 2, Timestamp: time.Now().UTC(), PreviousHash: "aa"}
	h1, err := b.ComputeHash()
	require.NoError(t, err)

	b.PreviousHash = "bb"
	h2, err := b.ComputeHash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestFraudVerdict_Merge(t *testing.T) {
	a := FraudVerdict{Score: 0.3, Decision: DecisionFlag, Reasons: []string{"velocity_limit"}}
	b := FraudVerdict{Score: 0.9, Decision: DecisionReject, Reasons: []string{"price_mismatch", "velocity_limit"}}

	merged := a.Merge(b)
	assert.Equal(t, DecisionReject, merged.Decision)
	assert.Equal(t, 0.9, merged.Score)
	assert.Equal(t, []string{"velocity_limit", "price_mismatch"}, merged.Reasons, "reasons deduplicated, order preserved")
}

func TestFraudVerdict_MergeAllowKeepsAllow(t *testing.T) {
	a := FraudVerdict{Score: 0.1, Decision: DecisionAllow}
	b := FraudVerdict{Score: 0.2, Decision: DecisionAllow}
	merged := a.Merge(b)
	assert.Equal(t, DecisionAllow, merged.Decision)
	assert.Empty(t, merged.Reasons)
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "ALLOW", DecisionAllow.String())
	assert.Equal(t, "FLAG", DecisionFlag.String())
	assert.Equal(t, "REJECT", DecisionReject.String())
}

func TestSigningPayloads(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	p := TransferSigningPayload(id, "w1", "w2", 5000, "n-1")
	assert.Equal(t, "transfer|11111111-2222-3333-4444-555555555555|w1|w2|5000|n-1", p)

	r := RefundSigningPayload(id, "w1", "n-2")
	assert.Equal(t, "refund|11111111-2222-3333-4444-555555555555|w1|n-2", r)
}
