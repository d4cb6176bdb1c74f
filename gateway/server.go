package gateway

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"yieldhub/gateway/middleware"
	nativecommon "yieldhub/native/common"
	"yieldhub/native/stake"
	"yieldhub/native/token"
)

const moduleName = "stake"

// Config wires the gateway to the engine and its collaborators.
type Config struct {
	Factory     *stake.Factory
	RewardToken *token.Ledger
	EscrowToken *token.Ledger
	PoolTokens  map[string]*token.Ledger
	Owner       stake.Address
	Pauses      nativecommon.PauseView
	Auth        *middleware.Authenticator
	RateLimit   middleware.RateLimit
	Logger      *slog.Logger
}

// Server exposes the staking engine over HTTP. All engine access is
// serialised behind one mutex, preserving the engine's linearised execution
// model.
type Server struct {
	mu      sync.Mutex
	factory *stake.Factory
	reward  *token.Ledger
	escrow  *token.Ledger
	tokens  map[string]*token.Ledger
	owner   stake.Address
	pauses  nativecommon.PauseView
	auth    *middleware.Authenticator
	limit   middleware.RateLimit
	logger  *slog.Logger
}

// NewServer constructs the gateway server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		factory: cfg.Factory,
		reward:  cfg.RewardToken,
		escrow:  cfg.EscrowToken,
		tokens:  cfg.PoolTokens,
		owner:   cfg.Owner,
		pauses:  cfg.Pauses,
		auth:    cfg.Auth,
		limit:   cfg.RateLimit,
		logger:  logger,
	}
}

// Handler builds the routed and instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	limiter := middleware.NewRateLimiter(s.limit)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(limiter.Middleware())

		v1.Route("/pools", func(pr chi.Router) {
			pr.Use(middleware.Metrics("pools"))
			pr.Get("/", s.handleListPools)
			pr.Route("/{token}", func(tr chi.Router) {
				tr.Get("/", s.handlePoolInfo)
				tr.Post("/sync", s.handleSync)
				tr.Post("/stake", s.handleStake)
				tr.Post("/unstake", s.handleUnstake)
				tr.Post("/unstake-batch", s.handleUnstakeBatch)
				tr.Post("/extend-lock", s.handleExtendLock)
				tr.Post("/claim", s.handleClaim)
				tr.Post("/migrate-user", s.handleMigrateUser)
				tr.Post("/migrate-v1", s.handleMigrateV1)
				tr.Post("/fill-v1", s.handleFillV1)
				tr.Post("/mint-v1-yield", s.handleMintV1Yield)
				tr.Post("/vault-deposit", s.handleVaultDeposit)
				tr.Get("/users/{addr}", s.handleUser)
				tr.Get("/users/{addr}/pending", s.handlePending)
				tr.Get("/users/{addr}/balance", s.handleBalance)
			})
		})

		v1.Route("/tokens/{token}", func(tr chi.Router) {
			tr.Use(middleware.Metrics("tokens"))
			tr.Get("/supply", s.handleTokenSupply)
			tr.Get("/balances/{addr}", s.handleTokenBalance)
			tr.Post("/approve", s.handleApprove)
		})

		v1.Route("/admin", func(ar chi.Router) {
			ar.Use(middleware.Metrics("admin"))
			if s.auth != nil {
				ar.Use(s.auth.Middleware())
			}
			ar.Post("/pools/{token}/weight", s.handleChangeWeight)
			ar.Post("/pools/{token}/vault", s.handleSetVault)
			ar.Post("/end-time", s.handleSetEndTime)
			ar.Post("/ratio", s.handleUpdateRatio)
		})
	})

	return otelhttp.NewHandler(r, "gateway")
}
