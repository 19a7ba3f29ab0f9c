package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Treasury pays rewards out of a server-held keypair via a Solana RPC node.
type Treasury struct {
	client *rpc.Client
	key    solana.PrivateKey
	log    *zap.Logger
}

// NewTreasury parses a keypair in the solana-keygen JSON byte-array format.
func NewTreasury(rpcURL, keypairJSON string, log *zap.Logger) (*Treasury, error) {
	var raw []byte
	if err := json.Unmarshal([]byte(keypairJSON), &raw); err != nil {
		return nil, fmt.Errorf("parse treasury keypair: %w", err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("invalid treasury keypair: got %d bytes, want 64", len(raw))
	}
	key := solana.PrivateKey(raw)
	return &Treasury{
		client: rpc.New(rpcURL),
		key:    key,
		log:    log,
	}, nil
}

func (t *Treasury) Pay(ctx context.Context, to string, amountSol float64) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("bad winner address: %w", err)
	}
	lamports := uint64(math.Round(amountSol * float64(solana.LAMPORTS_PER_SOL)))
	if lamports == 0 {
		return "", fmt.Errorf("amount rounds to zero lamports")
	}

	recent, err := t.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, t.key.PublicKey(), recipient).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(t.key.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("build transfer: %w", err)
	}

	if _, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(t.key.PublicKey()) {
			return &t.key
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transfer: %w", err)
	}

	sig, err := t.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("send transfer: %w", err)
	}

	t.log.Debug("transfer submitted",
		zap.String("to", to),
		zap.Uint64("lamports", lamports),
		zap.String("signature", sig.String()))
	return sig.String(), nil
}
