package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
)

const defaultPollInterval = time.Second

var (
	// ErrTransactionFailed means the cluster executed the transaction and it errored
	ErrTransactionFailed = errors.New("transaction failed on-chain")
	// ErrConfirmTimeout means the transaction did not reach confirmed before the deadline
	ErrConfirmTimeout = errors.New("timed out waiting for confirmation")
)

// SolanaClient is a client for working with Solana RPC
type SolanaClient struct {
	rpcClient      *rpc.Client
	rpcURL         string
	confirmTimeout time.Duration
	pollInterval   time.Duration
	logger         *log.Entry
}

// NewSolanaClient creates a new Solana client for rpcURL.
// confirmTimeout bounds SubmitAndConfirm.
func NewSolanaClient(rpcURL string, confirmTimeout time.Duration, logger *log.Logger) *SolanaClient {
	return &SolanaClient{
		rpcClient:      rpc.New(rpcURL),
		rpcURL:         rpcURL,
		confirmTimeout: confirmTimeout,
		pollInterval:   defaultPollInterval,
		logger:         logger.WithField("component", "solana-rpc"),
	}
}

// LatestBlockhash returns the latest finalized blockhash
func (c *SolanaClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	recent, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	if recent == nil || recent.Value == nil {
		return solana.Hash{}, errors.New("empty blockhash response")
	}
	return recent.Value.Blockhash, nil
}

// GetBalance gets SOL balance in lamports
func (c *SolanaClient) GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	balance, err := c.rpcClient.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get SOL balance: %w", err)
	}
	return balance.Value, nil
}

// SubmitAndConfirm sends a signed wire transaction and waits for confirmed commitment.
// Returns the transaction signature.
func (c *SolanaClient) SubmitAndConfirm(ctx context.Context, raw []byte) (string, error) {
	sig, err := c.rpcClient.SendRawTransactionWithOpts(
		ctx,
		raw,
		rpc.TransactionOpts{
			SkipPreflight:       false, // Transaction validation before node
			PreflightCommitment: rpc.CommitmentFinalized,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.WithField("signature", sig.String()).Info("transaction submitted")

	if err := c.waitConfirmed(ctx, sig); err != nil {
		return sig.String(), err
	}
	return sig.String(), nil
}

// waitConfirmed polls signature status until confirmed or finalized
func (c *SolanaClient) waitConfirmed(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		out, err := c.rpcClient.GetSignatureStatuses(ctx, true, sig)
		switch {
		case err != nil && !errors.Is(err, rpc.ErrNotFound):
			c.logger.WithError(err).Debug("signature status poll failed")
		case err == nil && len(out.Value) > 0 && out.Value[0] != nil:
			status := out.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s", ErrConfirmTimeout, sig)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
