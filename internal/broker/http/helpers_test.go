package http_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/mona-chen/jean/internal/broker/cache"
	brokerhttp "github.com/mona-chen/jean/internal/broker/http"
	"github.com/mona-chen/jean/internal/broker/service"
	"github.com/mona-chen/jean/internal/broker/store/drivers/sqlite"
	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/mona-chen/jean/pkg/breaker"
	"github.com/mona-chen/jean/pkg/cryptox"
	"github.com/mona-chen/jean/pkg/dasclient"
	"github.com/mona-chen/jean/pkg/httpx"
	"github.com/mona-chen/jean/pkg/jwtx"
	"github.com/mona-chen/jean/pkg/ledger"
)

/*
 * Shared fixture for the broker HTTP tests. The router runs in-process
 * behind httptest with a real sqlite store, the in-memory cache and fakes
 * for the delegation service, the ledger and the homeserver.
 */

const (
	shopAppID    = "ma_shop"
	vaultAppID   = "ma_vault"
	vaultSecret  = "vault-secret-123"
	shopRedirect = "https://shop.example/callback"

	aliceToken = "syt_alice"
	bobToken   = "syt_bob"
	aliceID    = "@alice:tween.example"
	bobID      = "@bob:tween.example"
)

var (
	keysOnce sync.Once
	testKeys *jwtx.KeyStore
	keysErr  error
)

func relaxedLimits() httpx.RateLimits {
	open := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	return httpx.RateLimits{Strict: open, Moderate: open, Lenient: open, Public: open}
}

type brokerFixture struct {
	baseURL string
	client  *authsdk.SDKClient

	store  *sqlite.Store
	cache  *cache.Memory
	das    *fakeDAS
	ledger *fakeLedger
	rooms  *fakeRooms
	tokens *service.TokenService
	codec  *jwtx.Codec
}

// setupBroker starts the broker with relaxed rate limits. Most tests want
// this; the rate limit test passes its own.
func setupBroker(t *testing.T) *brokerFixture {
	return setupBrokerWithLimits(t, relaxedLimits())
}

func setupBrokerWithLimits(t *testing.T, limits httpx.RateLimits) *brokerFixture {
	t.Helper()
	ctx := context.Background()

	keysOnce.Do(func() {
		testKeys, keysErr = jwtx.NewKeyStore(jwtx.KeyStoreOptions{KID: "test", AllowEphemeral: true})
	})
	require.NoError(t, keysErr)

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "broker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	hasher := cryptox.SecretHasher{Pepper: "pepper"}
	apps := &service.MiniAppService{Store: st, Hasher: hasher}
	require.NoError(t, apps.Seed(ctx, []service.MiniAppRegistration{
		{
			AppID:            shopAppID,
			Name:             "Shop",
			RedirectURIs:     []string{shopRedirect},
			RegisteredScopes: []string{"user:read", "wallet:balance", "wallet:history", "wallet:pay"},
		},
		{
			AppID:            vaultAppID,
			Name:             "Vault",
			ClientType:       "confidential",
			ClientSecret:     vaultSecret,
			RegisteredScopes: []string{"user:read"},
		},
	}))

	kv := cache.NewMemory()
	das := &fakeDAS{tokens: map[string]*dasclient.Introspection{
		aliceToken: {Active: true, Subject: aliceID, DeviceID: "DEV1", DisplayName: "Alice"},
		bobToken:   {Active: true, Subject: bobID, DeviceID: "DEV2", DisplayName: "Bob"},
	}}
	led := &fakeLedger{}
	rooms := &fakeRooms{members: map[string][]string{"!room:tween.example": {aliceID, bobID}}}

	codec := jwtx.NewCodec(testKeys, "https://broker.test")
	users := &service.UserService{Store: st}
	consent := &service.ConsentResolver{Store: st, Cache: kv}
	tokens := &service.TokenService{
		Codec:   codec,
		Store:   st,
		Cache:   kv,
		DAS:     das,
		Wallets: noopWallets{},
		Consent: consent,
		Users:   users,
		Hasher:  hasher,
	}
	t.Cleanup(tokens.Wait)

	reg := prometheus.NewRegistry()
	breakers, err := breaker.NewRegistry(breaker.DefaultConfig(), reg)
	require.NoError(t, err)
	// Registers the breaker families the way app wiring does; requests
	// themselves go to the fake.
	_, err = ledger.New(ledger.Config{BaseURL: "http://ledger.invalid"}, breakers)
	require.NoError(t, err)

	router, err := brokerhttp.NewRouter(testKeys, codec, "test", st, kv, limits, reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	router.TokenService = tokens
	router.AuthorizeService = &service.AuthorizeService{Store: st, Cache: kv, DASAuthURL: "https://mas.test/authorize"}
	router.Consent = consent
	router.UserService = users
	router.Breakers = breakers
	router.Transfers = &service.TransferService{
		Ledger: led,
		Rooms:  rooms,
		Users:  users,
		Cache:  kv,
	}
	router.Wallet = &service.WalletService{Ledger: led}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	client := authsdk.NewSDKClient(srv.URL, authsdk.WithoutScopeChecks())

	return &brokerFixture{
		baseURL: srv.URL,
		client:  client,
		store:   st,
		cache:   kv,
		das:     das,
		ledger:  led,
		rooms:   rooms,
		tokens:  tokens,
		codec:   codec,
	}
}

// login exchanges subject for a TEP session on the shop mini-app,
// approving sensitive scopes when asked.
func (f *brokerFixture) login(t *testing.T, subject string, scopes ...string) *authsdk.Session {
	t.Helper()
	ctx := t.Context()

	req := authsdk.ExchangeRequest{ClientID: shopAppID, SubjectToken: subject, Scopes: scopes}
	session, err := f.client.AuthenticateWithMatrixToken(ctx, req)

	var consent *authsdk.ConsentRequiredError
	if err != nil && errors.As(err, &consent) {
		_, err = f.client.SubmitConsent(ctx, consent.SessionID, true)
		require.NoError(t, err, "consent should be recorded")
		session, err = f.client.AuthenticateWithMatrixToken(ctx, req)
	}
	require.NoError(t, err, "token exchange should succeed")
	return session
}

// assertOAuth2Error checks the status and code of a broker error.
func assertOAuth2Error(t *testing.T, err error, status int, code string) *authsdk.OAuth2Error {
	t.Helper()
	require.Error(t, err)
	var oe *authsdk.OAuth2Error
	require.True(t, errors.As(err, &oe), "expected OAuth2Error, got %T: %v", err, err)
	require.Equal(t, status, oe.StatusCode, "status for %s", oe.Code)
	require.Equal(t, code, oe.Code)
	return oe
}

type noopWallets struct{}

func (noopWallets) RegisterWallet(context.Context, string, string) error { return nil }

type fakeDAS struct {
	mu      sync.Mutex
	tokens  map[string]*dasclient.Introspection
	err     error
	revoked []string
}

func (f *fakeDAS) Introspect(_ context.Context, token string) (*dasclient.Introspection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if info, ok := f.tokens[token]; ok {
		return info, nil
	}
	return &dasclient.Introspection{Active: false}, nil
}

func (f *fakeDAS) ExchangeForSession(_ context.Context, subject string) *dasclient.Token {
	return &dasclient.Token{AccessToken: "mat_" + subject, TokenType: "Bearer", ExpiresIn: 300}
}

func (f *fakeDAS) Revoke(_ context.Context, token, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
}

func (f *fakeDAS) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeLedger struct {
	mu        sync.Mutex
	err       error
	initiated []ledger.InitiateRequest
	confirmed []ledger.AuthProof
	payments  []ledger.PaymentRequest
}

func (f *fakeLedger) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeLedger) Initiate(_ context.Context, req ledger.InitiateRequest) (*ledger.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.initiated = append(f.initiated, req)
	return &ledger.Transfer{
		TransferID:                  "p2p_1",
		Status:                      ledger.StatusPendingConfirmation,
		Amount:                      req.Amount,
		Currency:                    req.Currency,
		RoomID:                      req.RoomID,
		RecipientAcceptanceRequired: true,
	}, nil
}

func (f *fakeLedger) Confirm(_ context.Context, id, _ string, proof ledger.AuthProof) (*ledger.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.confirmed = append(f.confirmed, proof)
	return &ledger.Transfer{TransferID: id, Status: ledger.StatusPendingRecipientAcceptance}, nil
}

func (f *fakeLedger) Accept(_ context.Context, id, _ string) (*ledger.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &ledger.Transfer{TransferID: id, Status: ledger.StatusCompleted}, nil
}

func (f *fakeLedger) Reject(_ context.Context, id, _, _ string) (*ledger.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &ledger.Transfer{TransferID: id, Status: ledger.StatusRejected}, nil
}

func (f *fakeLedger) ExpiredTransfers(context.Context) ([]ledger.Transfer, error) {
	return nil, nil
}

func (f *fakeLedger) Balance(_ context.Context, userID string) (*ledger.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &ledger.Balance{
		WalletID: "tw_test",
		UserID:   userID,
		Balance:  ledger.BalanceAmounts{Available: "150.00", Pending: "0.00", Currency: "USD"},
		Status:   "active",
	}, nil
}

func (f *fakeLedger) Transactions(_ context.Context, _ string, limit, offset int) (*ledger.TransactionPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if limit == 0 {
		limit = ledger.DefaultTransactionLimit
	}
	return &ledger.TransactionPage{
		Transactions: []ledger.Transaction{{TransactionID: "tx_1", Type: "p2p_sent", Status: "completed", Amount: "25.50", Currency: "USD"}},
		Pagination:   ledger.Pagination{Total: 1, Limit: limit, Offset: offset},
	}, nil
}

func (f *fakeLedger) CreatePaymentRequest(_ context.Context, req ledger.PaymentRequest) (*ledger.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.payments = append(f.payments, req)
	return &ledger.Payment{PaymentID: "pay_1", Status: ledger.PaymentPending, Amount: req.Amount, Currency: req.Currency, MiniAppID: req.MiniAppID}, nil
}

func (f *fakeLedger) AuthorizePayment(_ context.Context, id, _ string, _ ledger.PaymentAuthorization) (*ledger.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &ledger.Payment{PaymentID: id, Status: ledger.PaymentAuthorized}, nil
}

type fakeRooms struct {
	mu        sync.Mutex
	members   map[string][]string
	published []string
}

func (f *fakeRooms) ShareRoom(_ context.Context, a, b, roomID string) (bool, error) {
	var seenA, seenB bool
	for _, m := range f.members[roomID] {
		seenA = seenA || m == a
		seenB = seenB || m == b
	}
	return seenA && seenB, nil
}

func (f *fakeRooms) Publish(_ context.Context, roomID, eventType string, _ any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, roomID+" "+eventType)
	return "$event1", nil
}
