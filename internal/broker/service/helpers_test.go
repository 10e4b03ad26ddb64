package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mona-chen/jean/internal/broker/cache"
	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/store/drivers/sqlite"
	"github.com/mona-chen/jean/pkg/cryptox"
	"github.com/mona-chen/jean/pkg/dasclient"
	"github.com/mona-chen/jean/pkg/jwtx"
	"github.com/mona-chen/jean/pkg/ledger"
	"github.com/stretchr/testify/require"
)

var (
	keysOnce sync.Once
	testKeys *jwtx.KeyStore
	keysErr  error
)

func newCodec(t *testing.T) *jwtx.Codec {
	t.Helper()
	keysOnce.Do(func() {
		testKeys, keysErr = jwtx.NewKeyStore(jwtx.KeyStoreOptions{KID: "test", AllowEphemeral: true})
	})
	require.NoError(t, keysErr)
	return jwtx.NewCodec(testKeys, "https://broker.test")
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "broker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedApp(t *testing.T, s *sqlite.Store, app domain.MiniApp) {
	t.Helper()
	require.NoError(t, s.MiniApps().UpsertMiniApp(context.Background(), app))
}

// fakeDAS answers introspection from a fixed table of tokens.
type fakeDAS struct {
	mu       sync.Mutex
	tokens   map[string]*dasclient.Introspection
	err      error
	revoked  []string
	exchange *dasclient.Token
}

func (f *fakeDAS) Introspect(_ context.Context, token string) (*dasclient.Introspection, error) {
	if f.err != nil {
		return nil, f.err
	}
	if info, ok := f.tokens[token]; ok {
		return info, nil
	}
	return &dasclient.Introspection{Active: false}, nil
}

func (f *fakeDAS) ExchangeForSession(_ context.Context, subject string) *dasclient.Token {
	if f.exchange != nil {
		return f.exchange
	}
	return &dasclient.Token{AccessToken: subject, TokenType: "Bearer", ExpiresIn: dasclient.FallbackSessionTTL}
}

func (f *fakeDAS) Revoke(_ context.Context, token, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
}

type fakeWallets struct {
	mu    sync.Mutex
	users []string
}

func (f *fakeWallets) RegisterWallet(_ context.Context, userID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return nil
}

type tokenFixture struct {
	svc     *TokenService
	store   *sqlite.Store
	cache   *cache.Memory
	das     *fakeDAS
	wallets *fakeWallets
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()
	st := newStore(t)
	kv := cache.NewMemory()
	das := &fakeDAS{tokens: map[string]*dasclient.Introspection{
		"syt_alice": {
			Active:      true,
			Subject:     "@alice:tween.example",
			DeviceID:    "DEV1",
			SessionID:   "sid1",
			DisplayName: "Alice",
		},
	}}
	wallets := &fakeWallets{}

	svc := &TokenService{
		Codec:   newCodec(t),
		Store:   st,
		Cache:   kv,
		DAS:     das,
		Wallets: wallets,
		Consent: &ConsentResolver{Store: st, Cache: kv},
		Users:   &UserService{Store: st},
		Hasher:  cryptox.SecretHasher{Pepper: "pepper"},
	}
	t.Cleanup(svc.Wait)

	seedApp(t, st, domain.MiniApp{
		AppID:            "ma_shop",
		Name:             "Shop",
		ClientType:       domain.ClientTypePublic,
		Status:           domain.MiniAppActive,
		RegisteredScopes: []string{"user:read", "wallet:balance", "wallet:pay"},
	})
	return &tokenFixture{svc: svc, store: st, cache: kv, das: das, wallets: wallets}
}

// fakeLedger is scripted per transfer id.
type fakeLedger struct {
	mu         sync.Mutex
	initiated  []ledger.InitiateRequest
	initErr    error
	confirms   int
	expired    []ledger.Transfer
	rejects    map[string]*ledger.Transfer
	rejectErrs map[string]error
	accepted   *ledger.Transfer

	// settle makes a rejected transfer final, so rejecting it again
	// answers 409 the way the ledger does.
	settle  bool
	rejectN map[string]int
}

func (f *fakeLedger) Initiate(_ context.Context, req ledger.InitiateRequest) (*ledger.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return nil, f.initErr
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

func (f *fakeLedger) Confirm(_ context.Context, id, _ string, _ ledger.AuthProof) (*ledger.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms++
	return &ledger.Transfer{TransferID: id, Status: ledger.StatusPendingRecipientAcceptance}, nil
}

func (f *fakeLedger) Accept(_ context.Context, id, _ string) (*ledger.Transfer, error) {
	if f.accepted != nil {
		return f.accepted, nil
	}
	return nil, &ledger.Error{Kind: ledger.KindRejected, Op: "accept", Status: 404, Message: "not found"}
}

func (f *fakeLedger) Reject(_ context.Context, id, _, _ string) (*ledger.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.rejectErrs[id]; err != nil {
		return nil, err
	}
	if f.settle {
		if f.rejectN == nil {
			f.rejectN = map[string]int{}
		}
		f.rejectN[id]++
		if f.rejectN[id] > 1 {
			return nil, &ledger.Error{Kind: ledger.KindRejected, Op: "reject", Status: 409, Code: "p2p_final"}
		}
	}
	if t, ok := f.rejects[id]; ok {
		return t, nil
	}
	return &ledger.Transfer{TransferID: id, Status: ledger.StatusRejected}, nil
}

func (f *fakeLedger) ExpiredTransfers(context.Context) ([]ledger.Transfer, error) {
	return f.expired, nil
}

type publishedEvent struct {
	RoomID    string
	EventType string
	Content   any
}

type fakeRooms struct {
	mu        sync.Mutex
	members   map[string][]string
	err       error
	published []publishedEvent
}

func (f *fakeRooms) ShareRoom(_ context.Context, a, b, roomID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	var seenA, seenB bool
	for _, m := range f.members[roomID] {
		seenA = seenA || m == a
		seenB = seenB || m == b
	}
	return seenA && seenB, nil
}

func (f *fakeRooms) Publish(_ context.Context, roomID, eventType string, content any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedEvent{roomID, eventType, content})
	return "$event1", nil
}
