package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"yieldhub/config"
	"yieldhub/gateway"
	"yieldhub/gateway/middleware"
	nativecommon "yieldhub/native/common"
	"yieldhub/native/stake"
	"yieldhub/native/token"
	"yieldhub/observability/logging"
	"yieldhub/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "yieldhub.toml", "path to daemon configuration")
	flag.Parse()

	logger := logging.Setup("yieldhubd", os.Getenv("YIELDHUB_ENV"))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load configuration", "error", err)
		os.Exit(1)
	}
	owner, err := config.ParseAddress(cfg.OwnerAddress)
	if err != nil {
		logger.Error("parse owner address", "error", err)
		os.Exit(1)
	}
	rewardPerSecond, err := cfg.ParseRewardPerSecond()
	if err != nil {
		logger.Error("parse emission rate", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		logger.Error("open state database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	clock := stake.SystemClock{}
	rewardToken := token.NewLedger(cfg.RewardToken, owner)
	escrowToken := token.NewLedger(cfg.EscrowToken, owner)
	poolTokens := make(map[string]*token.Ledger, len(cfg.Pools))
	engineTokens := make(map[string]stake.Token, len(cfg.Pools))
	for _, pc := range cfg.Pools {
		var ledger *token.Ledger
		if pc.Token == cfg.RewardToken {
			ledger = rewardToken
		} else {
			ledger = token.NewLedger(pc.Token, owner)
		}
		poolTokens[pc.Token] = ledger
		engineTokens[pc.Token] = ledger
	}

	store := stake.NewStore(db)
	factory, err := store.Load(stake.LoadDeps{
		Clock:           clock,
		RewardToken:     rewardToken,
		EscrowToken:     escrowToken,
		RewardTokenName: cfg.RewardToken,
		PoolTokens:      engineTokens,
	})
	switch {
	case err == nil:
		logger.Info("state restored", "pools", len(factory.Pools()))
	case errors.Is(err, storage.ErrNotFound):
		factory = bootstrap(clock, owner, rewardToken, escrowToken, engineTokens, cfg, rewardPerSecond, logger)
		logger.Info("state bootstrapped", "pools", len(factory.Pools()))
	default:
		logger.Error("restore state", "error", err)
		os.Exit(1)
	}

	server := gateway.NewServer(gateway.Config{
		Factory:     factory,
		RewardToken: rewardToken,
		EscrowToken: escrowToken,
		PoolTokens:  poolTokens,
		Owner:       owner,
		Pauses:      nativecommon.NewPauses(cfg.PausedModules),
		Auth:        middleware.NewAuthenticator(cfg.AuthSecret),
		RateLimit: middleware.RateLimit{
			RequestsPerMinute: cfg.RequestsPerMinute,
			Burst:             cfg.RequestBurst,
		},
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway serve", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gateway shutdown", "error", err)
	}
	if err := stake.NewStore(db).Save(factory); err != nil {
		logger.Error("persist final snapshot", "error", err)
		os.Exit(1)
	}
	logger.Info("state persisted, exiting")
}

func bootstrap(
	clock stake.Clock,
	owner stake.Address,
	rewardToken, escrowToken *token.Ledger,
	engineTokens map[string]stake.Token,
	cfg *config.Config,
	rate *big.Int,
	logger *slog.Logger,
) *stake.Factory {
	now := clock.Now()
	factory := stake.NewFactory(clock, nil, stake.FactoryConfig{
		Owner:            owner,
		RewardToken:      rewardToken,
		EscrowToken:      escrowToken,
		RewardTokenName:  cfg.RewardToken,
		RewardPerSecond:  rate,
		SecondsPerUpdate: cfg.SecondsPerUpdate,
		InitTime:         now,
		EndTime:          cfg.EndTime,
	})
	for _, pc := range cfg.Pools {
		addr, _ := config.ParseAddress(pc.Address)
		pool := stake.NewPool(factory, clock, nil, stake.PoolConfig{
			Address:          addr,
			PoolToken:        engineTokens[pc.Token],
			PoolTokenName:    pc.Token,
			IsFlashPool:      pc.IsFlash,
			Weight:           pc.Weight,
			InitTime:         now,
			V1StakeMaxPeriod: pc.V1StakeMaxPeriod,
		})
		if err := factory.RegisterPool(owner, pool); err != nil {
			continue
		}
		logger.Info("pool registered", "token", pc.Token, "weight", pc.Weight)
	}
	return factory
}
