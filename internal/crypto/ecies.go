package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ECIES over secp256k1: ephemeral ECDH, HKDF-SHA256 to an AES-256-GCM key,
// output layout [ephemeralPubKey(33)||nonce(12)||ciphertext||tag(16)].
// Every wrap draws a fresh ephemeral keypair, so two wraps of the same
// plaintext for the same recipient never match.

const (
	eciesPubKeySize = 33 // compressed secp256k1 point
	eciesMinSize    = eciesPubKeySize + GCMIVSize + GCMTagSize
)

var eciesInfo = []byte("cipherbox-ecies-v1")

// GenerateKeypair returns a fresh secp256k1 keypair.
func GenerateKeypair() (*btcec.PrivateKey, *btcec.PublicKey, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, nil, ErrRandomFailed
	}
	return priv, priv.PubKey(), nil
}

// WrapKey encrypts plaintext for the recipient's public key.
func WrapKey(plaintext []byte, to *btcec.PublicKey) ([]byte, error) {
	eph, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, ErrRandomFailed
	}
	defer eph.Zero()

	key, err := eciesSessionKey(eph, to)
	if err != nil {
		return nil, err
	}
	defer Zero(key)

	iv, err := NewGCMIV()
	if err != nil {
		return nil, err
	}
	ct, err := EncryptGCM(plaintext, key, iv)
	if err != nil {
		return nil, ErrEncryptionFailed
	}

	out := make([]byte, 0, eciesPubKeySize+GCMIVSize+len(ct))
	out = append(out, eph.PubKey().SerializeCompressed()...)
	out = append(out, iv...)
	out = append(out, ct...)
	return out, nil
}

// UnwrapKey decrypts a WrapKey ciphertext with the recipient's private key.
// Any malformed input or key mismatch surfaces as ErrDecryptionFailed.
func UnwrapKey(ciphertext []byte, priv *btcec.PrivateKey) ([]byte, error) {
	if len(ciphertext) < eciesMinSize {
		return nil, ErrDecryptionFailed
	}
	ephPub, err := btcec.ParsePubKey(ciphertext[:eciesPubKeySize])
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	key, err := eciesSessionKeyRecv(priv, ephPub)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	defer Zero(key)

	iv := ciphertext[eciesPubKeySize : eciesPubKeySize+GCMIVSize]
	return DecryptGCM(ciphertext[eciesPubKeySize+GCMIVSize:], key, iv)
}

func eciesSessionKey(eph *btcec.PrivateKey, to *btcec.PublicKey) ([]byte, error) {
	shared := secp.GenerateSharedSecret(eph, to)
	defer Zero(shared)
	return DeriveKey(shared, nil, eciesInfo, KeySize)
}

func eciesSessionKeyRecv(priv *btcec.PrivateKey, ephPub *btcec.PublicKey) ([]byte, error) {
	shared := secp.GenerateSharedSecret(priv, ephPub)
	defer Zero(shared)
	return DeriveKey(shared, nil, eciesInfo, KeySize)
}
