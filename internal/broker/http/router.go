package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mona-chen/jean/internal/broker/cache"
	"github.com/mona-chen/jean/internal/broker/service"
	"github.com/mona-chen/jean/internal/broker/store"
	"github.com/mona-chen/jean/pkg/breaker"
	"github.com/mona-chen/jean/pkg/httpx"
	"github.com/mona-chen/jean/pkg/jwtx"
	"github.com/mona-chen/jean/pkg/slogx"

	_ "github.com/mona-chen/jean/api/broker" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyStore
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	limits       httpx.RateLimits
	registry     *prometheus.Registry
	metrics      *httpMetrics

	store store.Store
	cache cache.KV

	TokenService     *service.TokenService
	AuthorizeService *service.AuthorizeService
	Consent          *service.ConsentResolver
	Transfers        *service.TransferService
	Wallet           *service.WalletService
	UserService      *service.UserService
	Breakers         *breaker.Registry
}

// NewRouter registers its HTTP collectors on registry, which is also what
// /metrics serves.
func NewRouter(
	keys *jwtx.KeyStore,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	kv cache.KV,
	limits httpx.RateLimits,
	registry *prometheus.Registry,
	logger *slog.Logger,
) (*Router, error) {
	m, err := newHTTPMetrics(registry)
	if err != nil {
		return nil, err
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		limits:       limits,
		registry:     registry,
		metrics:      m,
		store:        st,
		cache:        kv,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.metrics.instrument,
	}
	return r, nil
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerWallet()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			TEP Delegation Broker API
//	@version		0.1.0
//	@description	Exchanges chat session tokens for short-lived TEP tokens scoped to a mini-app, records scope consent, and brokers P2P wallet transfers.
//	@description
//	@description				TEP tokens are RS256 JWTs prefixed with "tep." and can be verified offline against the JWKS endpoint.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				TEP token. Format: "Bearer tep.{jwt}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) byIP(cfg httpx.RateLimitConfig, route string) httpx.Middleware {
	return httpx.RateLimitByIP(cfg, httpx.OnLimited(r.metrics.limited(route)))
}

func (r *Router) byUser(cfg httpx.RateLimitConfig, route string) httpx.Middleware {
	return httpx.RateLimitByUser(cfg, httpx.OnLimited(r.metrics.limited(route)))
}

func (r *Router) registerOAuth2() {
	// POST /token - strict per address and mini-app, every grant type
	// reaches the delegation service
	r.Mux.Handle("POST /v1/oauth2/token",
		httpx.Chain(&TokenHandler{TokenService: r.TokenService},
			httpx.RateLimitByIPAndClient(r.limits.Strict, httpx.OnLimited(r.metrics.limited("token"))),
		),
	)

	r.Mux.Handle("GET /v1/oauth2/authorize",
		httpx.Chain(&AuthorizeHandler{AuthorizeService: r.AuthorizeService},
			r.byIP(r.limits.Moderate, "authorize"),
		),
	)

	r.Mux.Handle("POST /v1/oauth2/consent",
		httpx.Chain(&ConsentHandler{Consent: r.Consent},
			r.byIP(r.limits.Moderate, "consent"),
		),
	)

	r.Mux.Handle("POST /v1/oauth2/introspect",
		httpx.Chain(&IntrospectHandler{TokenService: r.TokenService},
			r.byIP(r.limits.Lenient, "introspect"),
		),
	)

	r.Mux.Handle("POST /v1/oauth2/revoke",
		httpx.Chain(&RevokeHandler{TokenService: r.TokenService},
			r.byIP(r.limits.Lenient, "revoke"),
		),
	)

	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys.KeySet()),
			r.byIP(r.limits.Public, "jwks"),
		),
	)
}

func (r *Router) registerWallet() {
	h := &WalletHandler{
		Transfers: r.Transfers,
		Wallet:    r.Wallet,
		Users:     r.UserService,
		Breakers:  r.Breakers,
	}

	secured := func(fn http.HandlerFunc, cfg httpx.RateLimitConfig, route string, extra ...httpx.Middleware) http.Handler {
		mws := append([]httpx.Middleware{httpx.AuthnMiddleware(r.verifier)}, extra...)
		mws = append(mws, r.byUser(cfg, route))
		return httpx.Chain(fn, mws...)
	}

	// Money movement - moderate by user
	r.Mux.Handle("POST /v1/wallet/p2p/initiate", secured(h.HandleInitiate, r.limits.Moderate, "p2p_initiate"))
	r.Mux.Handle("POST /v1/wallet/p2p/{id}/confirm", secured(h.HandleConfirm, r.limits.Moderate, "p2p_confirm"))
	r.Mux.Handle("POST /v1/wallet/p2p/{id}/accept", secured(h.HandleAccept, r.limits.Moderate, "p2p_accept"))
	r.Mux.Handle("POST /v1/wallet/p2p/{id}/reject", secured(h.HandleReject, r.limits.Moderate, "p2p_reject"))

	r.Mux.Handle("POST /v1/wallet/payments", secured(h.HandleCreatePayment, r.limits.Moderate, "payment_create",
		httpx.RequireAnyScope(service.ScopeWalletPay),
	))
	r.Mux.Handle("POST /v1/wallet/payments/{id}/authorize", secured(h.HandleAuthorizePayment, r.limits.Moderate, "payment_authorize",
		httpx.RequireAnyScope(service.ScopeWalletPay),
	))

	// Reads - lenient by user
	r.Mux.Handle("GET /v1/wallet/balance", secured(h.HandleBalance, r.limits.Lenient, "balance",
		httpx.RequireAnyScope(service.ScopeWalletBalance),
	))
	r.Mux.Handle("GET /v1/wallet/transactions", secured(h.HandleTransactions, r.limits.Lenient, "transactions",
		httpx.RequireAnyScope(service.ScopeWalletHistory),
	))
	r.Mux.Handle("GET /v1/wallet/p2p/fee", secured(h.HandleFee, r.limits.Lenient, "p2p_fee",
		httpx.RequireAnyScope(service.ScopeWalletPay, service.ScopeWalletBalance),
	))
	r.Mux.Handle("GET /v1/wallet/breakers", secured(h.HandleBreakers, r.limits.Lenient, "breakers"))
}

func (r *Router) registerSystem() {
	// Health check endpoints - public profile, monitoring polls often
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			r.byIP(r.limits.Public, "livez"),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache, r.keys),
			r.byIP(r.limits.Public, "readyz"),
		),
	)
	r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry}))
}
