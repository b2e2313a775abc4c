package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PrivateKey is a secp256k1 operator key. The identity it controls is the
// keccak-derived address of its public key, the same derivation used for
// Ethereum accounts.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

// GeneratePrivateKey returns a fresh random operator key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(ethcrypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// PrivateKeyFromBytes parses a raw 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := ethcrypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse private key: %w", err)
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the raw secret.
func (k *PrivateKey) Bytes() []byte {
	return ethcrypto.FromECDSA(k.PrivateKey)
}

// Address derives the identity controlled by the key.
func (k *PrivateKey) Address() Address {
	return Address(ethcrypto.PubkeyToAddress(k.PublicKey))
}

// PublicKeyHex renders the compressed public key for operator logs.
func (k *PrivateKey) PublicKeyHex() string {
	return fmt.Sprintf("0x%x", ethcrypto.CompressPubkey(&k.PublicKey))
}
