package solana

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexZinkM/walletlink/internal/common"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

var (
	ErrInvalidAddress = errors.New("invalid Solana address")
	ErrZeroAmount     = errors.New("amount must be greater than zero")
)

// BlockhashSource supplies the recent blockhash a transaction is built against
type BlockhashSource interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// Transfer is an unsigned system transfer ready to hand to the wallet
type Transfer struct {
	From     solana.PublicKey
	To       solana.PublicKey
	Lamports uint64
	Tx       *solana.Transaction
}

// BuildTransfer creates an unsigned SOL transfer of amount (decimal SOL string) from -> to.
// The amount is floored to whole lamports.
func BuildTransfer(ctx context.Context, src BlockhashSource, from, to, amount string) (*Transfer, error) {
	fromPubkey, err := solana.PublicKeyFromBase58(from)
	if err != nil {
		return nil, fmt.Errorf("%w: from: %v", ErrInvalidAddress, err)
	}
	toPubkey, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return nil, fmt.Errorf("%w: to: %v", ErrInvalidAddress, err)
	}

	// Convert SOL to lamports (string-based, no float precision loss)
	lamports, err := common.SOLToLamports(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	if lamports == 0 {
		return nil, ErrZeroAmount
	}

	blockhash, err := src.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	transferInstruction := system.NewTransferInstruction(
		lamports,
		fromPubkey,
		toPubkey,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transferInstruction},
		blockhash,
		solana.TransactionPayer(fromPubkey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return &Transfer{
		From:     fromPubkey,
		To:       toPubkey,
		Lamports: lamports,
		Tx:       tx,
	}, nil
}

// SerializeUnsigned encodes tx in wire format with zeroed signature slots.
// The wallet fills the slots in when it signs.
func SerializeUnsigned(tx *solana.Transaction) ([]byte, error) {
	unsigned := *tx
	unsigned.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := unsigned.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return raw, nil
}

// FirstSignature returns the fee payer's signature of a signed wire transaction
func FirstSignature(raw []byte) (string, error) {
	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode transaction: %w", err)
	}
	if len(tx.Signatures) == 0 || tx.Signatures[0].IsZero() {
		return "", errors.New("transaction is not signed")
	}
	return tx.Signatures[0].String(), nil
}

// IsValidAddress reports whether address parses as a Solana public key
func IsValidAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}
