package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/game"
)

type Config struct {
	HTTPAddr        string
	DatabaseURL     string
	SolanaRPCURL    string
	TreasuryKeypair string // JSON byte-array keypair, same format as treasury.json
	ShrinkInterval  time.Duration
	BotTickInterval time.Duration
	MatchDuration   time.Duration
	TiePolicy       game.TiePolicy
}

// Load reads .env if present, then the environment. Every value has a
// default so a bare `go run ./cmd/server` comes up.
func Load() Config {
	// Missing .env is fine in deployed environments.
	_ = godotenv.Load()

	return Config{
		HTTPAddr:        getString("HTTP_ADDR", ":8080"),
		DatabaseURL:     getString("DATABASE_URL", ""),
		SolanaRPCURL:    getString("SOLANA_RPC_URL", "https://rpc.gorbagana.wtf/"),
		TreasuryKeypair: getString("TREASURY_KEYPAIR", ""),
		ShrinkInterval:  getDuration("SHRINK_INTERVAL", 30*time.Second),
		BotTickInterval: getDuration("BOT_TICK_INTERVAL", time.Second),
		MatchDuration:   getDuration("MATCH_DURATION", 5*time.Minute),
		TiePolicy:       getTiePolicy("TIE_POLICY", game.TieFirstAlive),
	}
}

// Rules builds the per-match rule set from the loaded config.
func (c Config) Rules() game.Rules {
	r := game.DefaultRules()
	r.MatchDuration = int(c.MatchDuration / time.Second)
	r.TiePolicy = c.TiePolicy
	return r
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare integers are read as seconds.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func getTiePolicy(key string, def game.TiePolicy) game.TiePolicy {
	switch game.TiePolicy(os.Getenv(key)) {
	case game.TieFirstAlive:
		return game.TieFirstAlive
	case game.TieSplitPool:
		return game.TieSplitPool
	default:
		return def
	}
}
