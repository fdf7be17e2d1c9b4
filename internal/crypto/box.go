package crypto

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"
)

const (
	KeySize   = 32
	NonceSize = 24
)

// ErrDecryption means the payload failed authentication: tampered data or the wrong key.
// It is fatal to the request that carried it.
var ErrDecryption = errors.New("unable to decrypt data")

// KeyPair is an X25519 box key pair
type KeyPair struct {
	PublicKey [KeySize]byte
	SecretKey [KeySize]byte
}

// GenerateKeyPair creates a fresh box key pair
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate box key pair: %w", err)
	}
	kp := &KeyPair{PublicKey: *pub, SecretKey: *priv}
	clear(priv[:])
	return kp, nil
}

// KeyPairFromBytes rebuilds a key pair from raw bytes
func KeyPairFromBytes(publicKey, secretKey []byte) (*KeyPair, error) {
	if len(publicKey) != KeySize || len(secretKey) != KeySize {
		return nil, fmt.Errorf("invalid key pair length: expected %d bytes", KeySize)
	}
	kp := &KeyPair{}
	copy(kp.PublicKey[:], publicKey)
	copy(kp.SecretKey[:], secretKey)
	return kp, nil
}

// Wipe zeroes the secret half
func (kp *KeyPair) Wipe() {
	clear(kp.SecretKey[:])
}

// DeriveSharedSecret precomputes the box shared key between a peer public key and our secret key
func DeriveSharedSecret(peerPublicKey, ownSecretKey *[KeySize]byte) [KeySize]byte {
	var shared [KeySize]byte
	box.Precompute(&shared, peerPublicKey, ownSecretKey)
	return shared
}

// Encrypt JSON-encodes payload and seals it under sharedSecret with a fresh random nonce
func Encrypt(payload any, sharedSecret *[KeySize]byte) ([NonceSize]byte, []byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nonce, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nonce, nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	defer clear(plaintext)

	return nonce, box.SealAfterPrecomputation(nil, plaintext, &nonce, sharedSecret), nil
}

// Decrypt opens ciphertext under sharedSecret and JSON-decodes it into out
func Decrypt(ciphertext []byte, nonce *[NonceSize]byte, sharedSecret *[KeySize]byte, out any) error {
	plaintext, ok := box.OpenAfterPrecomputation(nil, ciphertext, nonce, sharedSecret)
	if !ok {
		return ErrDecryption
	}
	defer clear(plaintext)

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}
