package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
)

// EncryptGCM encrypts plaintext with AES-256-GCM and returns
// ciphertext||tag. The IV must be unique per call under the same key.
func EncryptGCM(plaintext, key, iv []byte) ([]byte, error) {
	aead, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, iv, plaintext, nil), nil
}

// DecryptGCM is the inverse of EncryptGCM. It fails closed: a wrong key, a
// flipped bit, or a truncated input all surface as the same
// ErrDecryptionFailed.
func DecryptGCM(ciphertext, key, iv []byte) ([]byte, error) {
	aead, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < GCMTagSize {
		return nil, ErrDecryptionFailed
	}
	pt, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return pt, nil
}

func newGCM(key, iv []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(iv) != GCMIVSize {
		return nil, ErrInvalidIVSize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKeySize
	}
	return cipher.NewGCM(block)
}

// Envelope is the wire form of a GCM-encrypted blob: hex IV plus
// base64 ciphertext||tag.
type Envelope struct {
	IV   string `json:"iv"`
	Data string `json:"data"`
}

// SealEnvelope encrypts plaintext under key with a fresh random IV and
// returns the wire envelope.
func SealEnvelope(plaintext, key []byte) (*Envelope, error) {
	iv, err := NewGCMIV()
	if err != nil {
		return nil, err
	}
	ct, err := EncryptGCM(plaintext, key, iv)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		IV:   hex.EncodeToString(iv),
		Data: base64.StdEncoding.EncodeToString(ct),
	}, nil
}

// Open decrypts the envelope under key.
func (e *Envelope) Open(key []byte) ([]byte, error) {
	iv, err := hex.DecodeString(e.IV)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	ct, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return DecryptGCM(ct, key, iv)
}
