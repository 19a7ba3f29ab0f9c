package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/config"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/httpapi"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/hub"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/payments"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/room"
	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("open postgres", zap.Error(err))
		}
		st = pg
		log.Info("using postgres store")
	} else {
		st = store.NewMemory()
		log.Warn("no DATABASE_URL set, leaderboard and history are in-memory only")
	}

	var payer payments.Payer
	if cfg.TreasuryKeypair != "" {
		treasury, err := payments.NewTreasury(cfg.SolanaRPCURL, cfg.TreasuryKeypair, log)
		if err != nil {
			log.Fatal("load treasury", zap.Error(err))
		}
		payer = treasury
		log.Info("treasury payouts enabled", zap.String("rpc", cfg.SolanaRPCURL))
	} else {
		log.Warn("no TREASURY_KEYPAIR set, reward claims are disabled")
	}
	claims := payments.NewClaims(payer, log)

	ctx := context.Background()
	timers := room.Timers{
		BotTick:     cfg.BotTickInterval,
		ShrinkEvery: cfg.ShrinkInterval,
		Duration:    cfg.MatchDuration,
	}
	h := hub.NewHub(ctx, timers, st, log)

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, st, claims, cfg.Rules(), log)

	log.Info("listening", zap.String("addr", cfg.HTTPAddr))
	if err := http.ListenAndServe(cfg.HTTPAddr, handler); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
