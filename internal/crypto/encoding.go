package crypto

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// EncodeBase58 encodes bytes the way the wallet expects keys, nonces and payloads
func EncodeBase58(b []byte) string {
	return base58.Encode(b)
}

// DecodeBase58 decodes a bs58 string
func DecodeBase58(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base58: %w", err)
	}
	return b, nil
}

// DecodeKey decodes a bs58 encoded 32-byte key
func DecodeKey(s string) (*[KeySize]byte, error) {
	b, err := DecodeBase58(s)
	if err != nil {
		return nil, err
	}
	if len(b) != KeySize {
		return nil, fmt.Errorf("invalid key length %d: expected %d", len(b), KeySize)
	}
	var key [KeySize]byte
	copy(key[:], b)
	return &key, nil
}

// DecodeNonce decodes a bs58 encoded 24-byte nonce
func DecodeNonce(s string) (*[NonceSize]byte, error) {
	b, err := DecodeBase58(s)
	if err != nil {
		return nil, err
	}
	if len(b) != NonceSize {
		return nil, fmt.Errorf("invalid nonce length %d: expected %d", len(b), NonceSize)
	}
	var nonce [NonceSize]byte
	copy(nonce[:], b)
	return &nonce, nil
}

// DecodeKeyBase64 decodes a base64 encoded 32-byte key, as stored in the persisted session
func DecodeKeyBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	if len(b) != KeySize {
		return nil, fmt.Errorf("invalid key length %d: expected %d", len(b), KeySize)
	}
	return b, nil
}

// EncodeBase64 is the persisted-session encoding for keys
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
