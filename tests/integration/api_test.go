package integration

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticketchain/config"
	httpHandler "ticketchain/internal/adapter/http/handler"
	redisStorage "ticketchain/internal/adapter/storage/redis"
	"ticketchain/internal/core/domain"
	"ticketchain/internal/core/ports"
	"ticketchain/internal/service"
	"ticketchain/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds the full application stack on in-memory storage:
// miniredis behind the Redis stores, map-backed repos behind Postgres,
// and the real HTTP layer, services, fraud pipeline and ledger on top.
type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
	keys   map[string]ed25519.PrivateKey
}

func testFraudConfig() config.FraudConfig {
	return config.FraudConfig{
		VelocityLimit:     5,
		VelocityWindow:    time.Minute,
		RapidRefundWindow: 2 * time.Minute,
		MaxMarkupRatio:    1.5,
		FlagThreshold:     0.5,
		RejectThreshold:   0.8,
	}
}

func newTestApp(t *testing.T, rateLimited bool) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	nonceStore := redisStorage.NewNonceStore(rdb)
	var rateLimitStore *redisStorage.RateLimitStore
	if rateLimited {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	walletRepo := newInMemoryWalletRepo()
	organizerRepo := newInMemoryOrganizerRepo()
	blockStore := newInMemoryBlockStore()

	log := logger.New("debug", false)

	ledger, err := service.NewLedgerService(t.Context(), blockStore, log)
	require.NoError(t, err)
	catalog := service.NewCatalogService()
	require.NoError(t, catalog.Rebuild(ledger.Snapshot()))

	registry := service.NewWalletRegistry(walletRepo, log)
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	cfg := testFraudConfig()
	scorer := service.NewCompositeScorer(
		service.NewRuleStrategy(cfg),
		service.NewModelStrategy(service.NewLogisticRiskModel(), cfg),
	)

	authSvc := service.NewAuthService(organizerRepo, registry, hashSvc, tokenSvc)
	coordinator := service.NewCoordinator(ledger, catalog, registry, scorer, nonceStore, nil, log)
	reportingSvc := service.NewReportingService(catalog, ledger)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		CommandSvc:     coordinator,
		QuerySvc:       reportingSvc,
		RegistrySvc:    registry,
		OrganizerRepo:  organizerRepo,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		Logger:         log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{server: server, redis: mr, keys: make(map[string]ed25519.PrivateKey)}
}

func (a *testApp) postJSON(t *testing.T, path string, body any, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (a *testApp) getJSON(t *testing.T, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(a.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

// registerWallet creates a keypair, registers the wallet over HTTP and
// remembers the private key for later signing.
func (a *testApp) registerWallet(t *testing.T, walletID string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	a.keys[walletID] = priv

	resp, _ := a.postJSON(t, "/api/v1/wallets", map[string]string{
		"wallet_id":  walletID,
		"public_key": hex.EncodeToString(pub),
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// setupOrganizer registers the organizer wallet and account, logs in and
// returns the session token.
func (a *testApp) setupOrganizer(t *testing.T, username, walletID string) string {
	t.Helper()
	a.registerWallet(t, walletID)

	resp, _ := a.postJSON(t, "/api/v1/auth/register", map[string]string{
		"username":     username,
		"password":     "StrongPass123!",
		"display_name": "Test Promoter",
		"wallet_id":    walletID,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := a.postJSON(t, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": "StrongPass123!",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["data"].(map[string]interface{})["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// createEvent posts a standard two-tier event and returns its id.
func (a *testApp) createEvent(t *testing.T, token string) uuid.UUID {
	t.Helper()
	start := time.Now().Add(30 * 24 * time.Hour)
	resp, body := a.postJSON(t, "/api/v1/events", map[string]any{
		"name":             "Warehouse Night",
		"venue":            "Pier 9",
		"starts_at":        start.Format(time.RFC3339),
		"refundable_until": start.Add(-48 * time.Hour).Format(time.RFC3339),
		"max_per_wallet":   4,
		"ticket_types": []map[string]any{
			{"code": "GA", "price": 5000, "capacity": 100},
			{"code": "VIP", "price": 20000, "capacity": 10},
		},
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create event: %v", body)

	eventID, err := uuid.Parse(body["data"].(map[string]interface{})["event_id"].(string))
	require.NoError(t, err)
	return eventID
}

// mint buys one ticket at list price and returns the ticket id.
func (a *testApp) mint(t *testing.T, eventID uuid.UUID, typeCode, wallet string) uuid.UUID {
	t.Helper()
	resp, body := a.postJSON(t, "/api/v1/tickets/mint", map[string]any{
		"event_id":     eventID.String(),
		"ticket_type":  typeCode,
		"owner_wallet": wallet,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, "mint: %v", body)

	ticketID, err := uuid.Parse(body["data"].(map[string]interface{})["ticket_id"].(string))
	require.NoError(t, err)
	return ticketID
}

func (a *testApp) signTransfer(t *testing.T, ticketID uuid.UUID, from, to string, price int64, nonce string) string {
	t.Helper()
	priv, ok := a.keys[from]
	require.True(t, ok, "no key for wallet %s", from)
	payload := domain.TransferSigningPayload(ticketID, from, to, price, nonce)
	return hex.EncodeToString(ed25519.Sign(priv, []byte(payload)))
}

func (a *testApp) signRefund(t *testing.T, ticketID uuid.UUID, owner, nonce string) string {
	t.Helper()
	priv, ok := a.keys[owner]
	require.True(t, ok, "no key for wallet %s", owner)
	payload := domain.RefundSigningPayload(ticketID, owner, nonce)
	return hex.EncodeToString(ed25519.Sign(priv, []byte(payload)))
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := app.getJSON(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_TicketLifecycle(t *testing.T) {
	app := newTestApp(t, false)

	token := app.setupOrganizer(t, "promoter", "org-wallet")
	app.registerWallet(t, "alice")
	app.registerWallet(t, "bob")

	eventID := app.createEvent(t, token)
	ticketID := app.mint(t, eventID, "GA", "alice")

	// Transfer alice -> bob at list price.
	resp, body := app.postJSON(t, fmt.Sprintf("/api/v1/tickets/%s/transfer", ticketID), map[string]any{
		"from_wallet": "alice",
		"to_wallet":   "bob",
		"price":       5000,
		"nonce":       "transfer-nonce-1",
		"signature":   app.signTransfer(t, ticketID, "alice", "bob", 5000, "transfer-nonce-1"),
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, "transfer: %v", body)

	// Bob now owns it.
	resp, body = app.getJSON(t, "/api/v1/tickets/"+ticketID.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := body["data"].(map[string]interface{})
	assert.Equal(t, "bob", ticket["owner_wallet"])
	assert.Equal(t, "TRANSFERRED", ticket["status"])

	// Event far out: full refund window. Refund by bob.
	resp, body = app.postJSON(t, fmt.Sprintf("/api/v1/tickets/%s/refund", ticketID), map[string]any{
		"wallet":    "bob",
		"nonce":     "refund-nonce-1",
		"signature": app.signRefund(t, ticketID, "bob", "refund-nonce-1"),
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, "refund: %v", body)

	// Chain: genesis + create + mint + transfer + refund.
	resp, body = app.getJSON(t, "/api/v1/chain/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := body["data"].(map[string]interface{})
	assert.Equal(t, float64(5), status["length"])
	assert.Equal(t, false, status["halted"])

	// Full integrity audit passes.
	resp, body = app.getJSON(t, "/api/v1/chain/verify")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["data"].(map[string]interface{})["halted"])

	// Stats reflect the round trip.
	resp, body = app.getJSON(t, fmt.Sprintf("/api/v1/events/%s/stats", eventID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["total_sold"])
	assert.Equal(t, float64(5000), stats["refunded"])
}

func TestIntegration_EventCreateRequiresSession(t *testing.T) {
	app := newTestApp(t, false)

	resp, _ := app.postJSON(t, "/api/v1/events", map[string]any{"name": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_ScalperPriceRejected(t *testing.T) {
	app := newTestApp(t, false)

	token := app.setupOrganizer(t, "promoter", "org-wallet")
	app.registerWallet(t, "alice")
	app.registerWallet(t, "scalper")

	eventID := app.createEvent(t, token)
	ticketID := app.mint(t, eventID, "GA", "alice")

	// 3x list price is over the markup cap: hard reject with reasons.
	resp, body := app.postJSON(t, fmt.Sprintf("/api/v1/tickets/%s/transfer", ticketID), map[string]any{
		"from_wallet": "alice",
		"to_wallet":   "scalper",
		"price":       15000,
		"nonce":       "transfer-nonce-2",
		"signature":   app.signTransfer(t, ticketID, "alice", "scalper", 15000, "transfer-nonce-2"),
	}, "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "FRD_001", body["error_code"])
	assert.Contains(t, body["reasons"], "price_mismatch")

	// Nothing committed: alice still owns the ticket.
	resp, body = app.getJSON(t, "/api/v1/tickets/"+ticketID.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["data"].(map[string]interface{})["owner_wallet"])
}

func TestIntegration_NonceReplayRejected(t *testing.T) {
	app := newTestApp(t, false)

	token := app.setupOrganizer(t, "promoter", "org-wallet")
	app.registerWallet(t, "alice")
	app.registerWallet(t, "bob")
	app.registerWallet(t, "carol")

	eventID := app.createEvent(t, token)
	first := app.mint(t, eventID, "GA", "alice")
	second := app.mint(t, eventID, "GA", "bob")

	resp, _ := app.postJSON(t, fmt.Sprintf("/api/v1/tickets/%s/transfer", first), map[string]any{
		"from_wallet": "alice",
		"to_wallet":   "carol",
		"price":       5000,
		"nonce":       "shared-nonce",
		"signature":   app.signTransfer(t, first, "alice", "carol", 5000, "shared-nonce"),
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Same wallet, same nonce again: burned.
	resp, body := app.postJSON(t, fmt.Sprintf("/api/v1/tickets/%s/transfer", second), map[string]any{
		"from_wallet": "bob",
		"to_wallet":   "carol",
		"price":       5000,
		"nonce":       "shared-nonce",
		"signature":   app.signTransfer(t, second, "bob", "carol", 5000, "shared-nonce"),
	}, "")
	// Different wallets may reuse a nonce; replay is per wallet. Bob's
	// first use succeeds.
	require.Equal(t, http.StatusCreated, resp.StatusCode, "cross-wallet nonce: %v", body)

	// Alice replaying her own nonce fails even with a fresh signature.
	resp, body = app.postJSON(t, fmt.Sprintf("/api/v1/tickets/%s/transfer", first), map[string]any{
		"from_wallet": "carol",
		"to_wallet":   "alice",
		"price":       5000,
		"nonce":       "shared-nonce",
		"signature":   app.signTransfer(t, first, "carol", "alice", 5000, "shared-nonce"),
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, "carol's first use of the nonce: %v", body)

	resp, body = app.postJSON(t, fmt.Sprintf("/api/v1/tickets/%s/transfer", first), map[string]any{
		"from_wallet": "alice",
		"to_wallet":   "carol",
		"price":       5000,
		"nonce":       "shared-nonce",
		"signature":   app.signTransfer(t, first, "alice", "carol", 5000, "shared-nonce"),
	}, "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "WAL_004", body["error_code"])
}

func TestIntegration_ForgedSignatureRejected(t *testing.T) {
	app := newTestApp(t, false)

	token := app.setupOrganizer(t, "promoter", "org-wallet")
	app.registerWallet(t, "alice")
	app.registerWallet(t, "mallory")

	eventID := app.createEvent(t, token)
	ticketID := app.mint(t, eventID, "GA", "alice")

	// Mallory signs with her own key, claiming to act for alice.
	malloryKey := app.keys["mallory"]
	payload := domain.TransferSigningPayload(ticketID, "alice", "mallory", 5000, "steal-nonce-1")
	forged := hex.EncodeToString(ed25519.Sign(malloryKey, []byte(payload)))

	resp, body := app.postJSON(t, fmt.Sprintf("/api/v1/tickets/%s/transfer", ticketID), map[string]any{
		"from_wallet": "alice",
		"to_wallet":   "mallory",
		"price":       5000,
		"nonce":       "steal-nonce-1",
		"signature":   forged,
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "WAL_003", body["error_code"])
}

func TestIntegration_RateLimit_Register(t *testing.T) {
	app := newTestApp(t, true)

	// auth_register allows 5 per hour per client.
	var last int
	for i := 0; i < 6; i++ {
		resp, _ := app.postJSON(t, "/api/v1/auth/register", map[string]string{
			"username":     fmt.Sprintf("promoter%d", i),
			"password":     "StrongPass123!",
			"display_name": "Promoter",
			"wallet_id":    "missing-wallet",
		}, "")
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestIntegration_WalletTicketListing(t *testing.T) {
	app := newTestApp(t, false)

	token := app.setupOrganizer(t, "promoter", "org-wallet")
	app.registerWallet(t, "alice")

	eventID := app.createEvent(t, token)
	app.mint(t, eventID, "GA", "alice")
	app.mint(t, eventID, "VIP", "alice")

	resp, err := http.Get(app.server.URL + "/api/v1/wallets/alice/tickets")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Data, 2)
}

func TestIntegration_LedgerSurvivesRestart(t *testing.T) {
	// Build a chain, then boot a second ledger off the same store and
	// check the replayed catalog matches.
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	nonceStore := redisStorage.NewNonceStore(rdb)

	walletRepo := newInMemoryWalletRepo()
	blockStore := newInMemoryBlockStore()
	log := logger.New("error", false)

	ledger, err := service.NewLedgerService(t.Context(), blockStore, log)
	require.NoError(t, err)
	catalog := service.NewCatalogService()
	require.NoError(t, catalog.Rebuild(ledger.Snapshot()))
	registry := service.NewWalletRegistry(walletRepo, log)

	cfg := testFraudConfig()
	coordinator := service.NewCoordinator(ledger, catalog, registry,
		service.NewRuleStrategy(cfg), nonceStore, nil, log)

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = registry.Register(t.Context(), "org-wallet", pub)
	require.NoError(t, err)
	pub, _, err = ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = registry.Register(t.Context(), "alice", pub)
	require.NoError(t, err)

	start := time.Now().Add(30 * 24 * time.Hour)
	receipt, err := coordinator.CreateEvent(t.Context(), ports.CreateEventRequest{
		Name:            "Warehouse Night",
		Venue:           "Pier 9",
		StartsAt:        start,
		RefundableUntil: start.Add(-48 * time.Hour),
		OrganizerWallet: "org-wallet",
		TicketTypes:     []domain.TicketTypeDef{{Code: "GA", Price: 5000, Capacity: 10}},
	})
	require.NoError(t, err)
	eventID := receipt.Transaction.CreateEvent.Event.ID

	_, err = coordinator.Mint(t.Context(), ports.MintRequest{
		EventID:        eventID,
		TicketTypeCode: "GA",
		OwnerWallet:    "alice",
	})
	require.NoError(t, err)

	// "Restart": reload from the persisted blocks.
	reloaded, err := service.NewLedgerService(t.Context(), blockStore, log)
	require.NoError(t, err)
	tipIdx, tipHash := ledger.Tip()
	reloadedIdx, reloadedHash := reloaded.Tip()
	assert.Equal(t, tipIdx, reloadedIdx)
	assert.Equal(t, tipHash, reloadedHash)

	rebuilt := service.NewCatalogService()
	require.NoError(t, rebuilt.Rebuild(reloaded.Snapshot()))
	tickets := rebuilt.TicketsByWallet("alice")
	require.Len(t, tickets, 1)
	assert.Equal(t, domain.TicketStatusMinted, tickets[0].Status)
}
