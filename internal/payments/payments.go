// Package payments submits treasury payouts for match rewards and shields
// them behind an idempotency layer so a retried claim never pays twice.
package payments

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrPaymentsDisabled = errors.New("payments not configured")
var ErrClaimInFlight = errors.New("claim already being processed")

// Payer submits one transfer from the treasury and returns its signature.
type Payer interface {
	Pay(ctx context.Context, to string, amountSol float64) (signature string, err error)
}

// ClaimTimeout is the hard ceiling on one claim. A timeout here does not
// mean the transfer failed on chain; the dedupe key exists so the caller
// can safely retry and get the recorded signature instead of a second pay.
const ClaimTimeout = 60 * time.Second

type ClaimRequest struct {
	WinnerAddress  string  `json:"winnerAddress"`
	Amount         float64 `json:"amount"`
	MatchID        string  `json:"matchId,omitempty"`
	WinnerID       string  `json:"winnerId,omitempty"`
	IdempotencyKey string  `json:"idempotencyKey,omitempty"`
}

func (r ClaimRequest) dedupeKey() string {
	if r.IdempotencyKey != "" {
		return r.IdempotencyKey
	}
	if r.MatchID != "" {
		return r.MatchID + "|" + r.WinnerAddress
	}
	return ""
}

// Claims wraps a Payer with per-key deduplication.
type Claims struct {
	payer   Payer
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	paid    map[string]string // dedupe key -> signature
	pending map[string]bool
}

func NewClaims(payer Payer, log *zap.Logger) *Claims {
	return &Claims{
		payer:   payer,
		log:     log,
		timeout: ClaimTimeout,
		paid:    make(map[string]string),
		pending: make(map[string]bool),
	}
}

// Claim pays a reward once per dedupe key. A repeat claim with a known key
// returns the original signature without touching the chain.
func (c *Claims) Claim(ctx context.Context, req ClaimRequest) (string, error) {
	if c.payer == nil {
		return "", ErrPaymentsDisabled
	}

	key := req.dedupeKey()
	if key != "" {
		c.mu.Lock()
		if sig, ok := c.paid[key]; ok {
			c.mu.Unlock()
			c.log.Info("duplicate claim, returning recorded signature",
				zap.String("key", key), zap.String("signature", sig))
			return sig, nil
		}
		if c.pending[key] {
			c.mu.Unlock()
			return "", ErrClaimInFlight
		}
		c.pending[key] = true
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			delete(c.pending, key)
			c.mu.Unlock()
		}()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sig, err := c.payer.Pay(ctx, req.WinnerAddress, req.Amount)
	if err != nil {
		c.log.Error("reward payout failed",
			zap.String("winner", req.WinnerAddress),
			zap.Float64("amount", req.Amount),
			zap.Error(err))
		return "", err
	}

	if key != "" {
		c.mu.Lock()
		c.paid[key] = sig
		c.mu.Unlock()
	}
	c.log.Info("reward paid",
		zap.String("winner", req.WinnerAddress),
		zap.Float64("amount", req.Amount),
		zap.String("signature", sig))
	return sig, nil
}
