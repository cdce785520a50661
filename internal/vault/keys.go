package vault

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// KeySize is the byte length of X25519 public and private keys.
const KeySize = 32

// PublicKey is the vault owner's encryption key. It is stored in vault
// metadata so entries can be sealed without decryption capability.
type PublicKey [KeySize]byte

// PrivateKey is the owner's decryption key. It never touches the vault's
// storage; the caller keeps it outside the scanned tree.
type PrivateKey [KeySize]byte

// KeyPair is the owner key material produced at vault initialization.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// GenerateKeyPair produces a fresh X25519 key pair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate key pair: %w", err)
	}
	return KeyPair{Public: PublicKey(*pub), Private: PrivateKey(*priv)}, nil
}

func (k PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// Encode returns the private key in base64 for offline storage.
func (k PrivateKey) Encode() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// Zero wipes the key material in place. Call it on every exit path once
// the key is no longer needed.
func (k *PrivateKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// ParsePublicKey decodes a base64 public key as stored in vault metadata.
func ParsePublicKey(s string) (PublicKey, error) {
	var k PublicKey
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("parse public key: %w", err)
	}
	if len(b) != KeySize {
		return k, fmt.Errorf("parse public key: got %d bytes, want %d", len(b), KeySize)
	}
	copy(k[:], b)
	return k, nil
}

// ParsePrivateKey decodes a base64 private key supplied by the owner.
func ParsePrivateKey(s string) (PrivateKey, error) {
	var k PrivateKey
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("parse private key: %w", err)
	}
	if len(b) != KeySize {
		return k, fmt.Errorf("parse private key: got %d bytes, want %d", len(b), KeySize)
	}
	copy(k[:], b)
	zero(b)
	return k, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
