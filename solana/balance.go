package solana

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexZinkM/walletlink/internal/common"

	"github.com/gagliardetto/solana-go"
)

// ErrInsufficientFunds is returned when the wallet cannot cover amount plus fee
var ErrInsufficientFunds = errors.New("insufficient SOL balance")

// BalanceSource reads an account's SOL balance in lamports
type BalanceSource interface {
	GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error)
}

// GetBalance gets wallet balance as a SOL string
func GetBalance(ctx context.Context, src BalanceSource, address string) (string, error) {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	lamports, err := src.GetBalance(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("failed to get SOL balance: %w", err)
	}
	return common.LamportsToSOL(lamports), nil
}

// CheckFunds verifies that address holds at least amountLamports + feeLamports.
// The returned error wraps ErrInsufficientFunds when it does not.
func CheckFunds(ctx context.Context, src BalanceSource, address string, amountLamports, feeLamports uint64) error {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	balance, err := src.GetBalance(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to check balance: %w", err)
	}

	required := amountLamports + feeLamports
	if balance >= required {
		return nil
	}

	// Calculate max amount user can send
	var maxLamports uint64
	if balance > feeLamports {
		maxLamports = balance - feeLamports
	}
	return fmt.Errorf("%w. Transaction fee: %s SOL. Max you can send: %s SOL",
		ErrInsufficientFunds, common.LamportsToSOL(feeLamports), common.LamportsToSOL(maxLamports))
}
