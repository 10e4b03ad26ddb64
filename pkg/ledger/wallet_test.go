package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mona-chen/jean/pkg/breaker"
	"github.com/mona-chen/jean/pkg/ledger"
)

func TestNew_RegistersEveryBreakerFamily(t *testing.T) {
	_, srv := newFakeLedger(t)
	_, reg := newClient(t, srv, "")

	var names []string
	for _, m := range reg.Metrics() {
		names = append(names, m.Name)
		require.Equal(t, breaker.StateClosed.String(), m.State)
	}
	require.ElementsMatch(t, []string{
		ledger.BreakerBalance,
		ledger.BreakerPayments,
		ledger.BreakerTransfers,
		ledger.BreakerVerification,
	}, names)
}

func TestBalance(t *testing.T) {
	f, srv := newFakeLedger(t)
	f.handle("GET /api/v1/tmcp/wallets/balance", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"wallet_id": "tw_alice",
			"user_id":   "@alice:h",
			"balance":   map[string]any{"available": json.Number("150.00"), "pending": json.Number("0.00"), "currency": "USD"},
			"limits":    map[string]any{"daily_limit": json.Number("100000.00"), "daily_used": json.Number("0"), "transaction_limit": json.Number("50000.00")},
			"status":    "active",
		})
	})
	c, _ := newClient(t, srv, "wallet-key")

	b, err := c.Balance(context.Background(), "@alice:h")
	require.NoError(t, err)
	require.Equal(t, "tw_alice", b.WalletID)
	require.Equal(t, json.Number("150.00"), b.Balance.Available)
	require.Equal(t, "USD", b.Balance.Currency)
	require.NotNil(t, b.Limits)
	require.Equal(t, json.Number("50000.00"), b.Limits.TransactionLimit)

	req := f.last()
	require.Equal(t, http.MethodGet, req.Method)
	require.Equal(t, "@alice:h", req.Header.Get(ledger.UserHeader))
	require.Equal(t, "Bearer wallet-key", req.Header.Get("Authorization"))
}

func TestBalance_MissingWalletIsMalformed(t *testing.T) {
	f, srv := newFakeLedger(t)
	f.handle("GET /api/v1/tmcp/wallets/balance", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "active"})
	})
	c, _ := newClient(t, srv, "")

	_, err := c.Balance(context.Background(), "@alice:h")
	require.ErrorIs(t, err, ledger.ErrMalformed)
}

func TestTransactions_ClampsPaging(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset int
		wantLimit     int
		wantOffset    int
	}{
		{"defaults", 0, 0, 50, 0},
		{"passes through", 20, 40, 20, 40},
		{"caps limit", 500, 0, 100, 0},
		{"negative offset", 10, -3, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, srv := newFakeLedger(t)
			// Echo the query back so the test sees what was sent.
			f.handle("GET /api/v1/tmcp/wallets/transactions", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{
					"pagination": map[string]any{
						"limit":  json.RawMessage(r.URL.Query().Get("limit")),
						"offset": json.RawMessage(r.URL.Query().Get("offset")),
					},
				})
			})
			c, _ := newClient(t, srv, "")

			page, err := c.Transactions(context.Background(), "@alice:h", tt.limit, tt.offset)
			require.NoError(t, err)
			require.NotNil(t, page.Transactions, "an empty history is an empty list")
			require.Empty(t, page.Transactions)
			require.Equal(t, tt.wantLimit, page.Pagination.Limit)
			require.Equal(t, tt.wantOffset, page.Pagination.Offset)
			require.Equal(t, "@alice:h", f.last().Header.Get(ledger.UserHeader))
		})
	}
}

func TestBalanceBreaker_IsolatedFromTransfers(t *testing.T) {
	f, srv := newFakeLedger(t)
	f.handle("GET /api/v1/tmcp/wallets/transactions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c, reg := newClient(t, srv, "")

	for range 2 {
		_, err := c.Transactions(context.Background(), "@alice:h", 10, 0)
		require.ErrorIs(t, err, ledger.ErrUnavailable)
	}
	require.Equal(t, breaker.StateOpen, reg.Get(ledger.BreakerBalance).State())

	_, err := c.Balance(context.Background(), "@alice:h")
	require.True(t, errors.Is(err, breaker.ErrOpen), "balance reads share the open breaker")
	require.Equal(t, 2, f.count())

	require.Equal(t, breaker.StateClosed, reg.Get(ledger.BreakerTransfers).State())
	require.Equal(t, breaker.StateClosed, reg.Get(ledger.BreakerPayments).State())
}

func TestCreatePaymentRequest(t *testing.T) {
	f, srv := newFakeLedger(t)
	f.handle("POST /api/v1/tmcp/payments/request", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"payment_id": "pay_1",
			"status":     ledger.PaymentPending,
			"amount":     json.Number("12.50"),
			"currency":   "USD",
		})
	})
	c, _ := newClient(t, srv, "")

	p, err := c.CreatePaymentRequest(context.Background(), ledger.PaymentRequest{
		Amount:          json.Number("12.50"),
		Currency:        "USD",
		Description:     "Coffee",
		MiniAppID:       "ma_shop",
		MerchantOrderID: "order-9",
		IdempotencyKey:  "k1",
		ActorID:         "@alice:h",
	})
	require.NoError(t, err)
	require.Equal(t, "pay_1", p.PaymentID)
	require.Equal(t, ledger.PaymentPending, p.Status)

	req := f.last()
	require.Equal(t, "@alice:h", req.Header.Get(ledger.UserHeader))
	require.Equal(t, "Coffee", req.Body["description"])
	require.Equal(t, "ma_shop", req.Body["miniapp_id"])
	require.Equal(t, "order-9", req.Body["merchant_order_id"])
	require.Equal(t, "k1", req.Body["idempotency_key"])
	require.NotContains(t, req.Body, "callback_url")
}

func TestAuthorizePayment(t *testing.T) {
	f, srv := newFakeLedger(t)
	f.handle("POST /api/v1/tmcp/payments/pay_1/authorize", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"payment_id": "pay_1", "status": ledger.PaymentAuthorized})
	})
	f.handle("POST /api/v1/tmcp/payments/pay_2/authorize", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": ledger.PaymentAuthorized})
	})
	c, reg := newClient(t, srv, "")

	p, err := c.AuthorizePayment(context.Background(), "pay_1", "@alice:h", ledger.PaymentAuthorization{
		Signature:  "c2ln",
		DeviceInfo: map[string]string{"device_id": "DEV1"},
	})
	require.NoError(t, err)
	require.Equal(t, ledger.PaymentAuthorized, p.Status)

	req := f.last()
	require.Equal(t, "c2ln", req.Body["signature"])
	require.Equal(t, map[string]any{"device_id": "DEV1"}, req.Body["device_info"])

	_, err = c.AuthorizePayment(context.Background(), "pay_2", "@alice:h", ledger.PaymentAuthorization{Signature: "c2ln"})
	require.ErrorIs(t, err, ledger.ErrMalformed)

	m := paymentMetrics(t, reg)
	require.Equal(t, uint64(2), m.TotalCalls)
}

func paymentMetrics(t *testing.T, reg *breaker.Registry) breaker.Metrics {
	t.Helper()
	for _, m := range reg.Metrics() {
		if m.Name == ledger.BreakerPayments {
			return m
		}
	}
	t.Fatalf("breaker %s not registered", ledger.BreakerPayments)
	return breaker.Metrics{}
}
