package crypto

import (
	"crypto/aes"
	"crypto/cipher"
)

// EncryptCTR encrypts plaintext with AES-256-CTR. The output is the same
// length as the input and carries no authentication tag; integrity must come
// from an external channel (content addressing, or the GCM-wrapped key).
// The IV layout is the one produced by NewCTRIV.
func EncryptCTR(plaintext, key, iv []byte) ([]byte, error) {
	return ctrXOR(plaintext, key, iv)
}

// DecryptCTR is the inverse of EncryptCTR. Combined with CTRIVForOffset it
// decrypts any block-aligned slice of the stream independently.
func DecryptCTR(ciphertext, key, iv []byte) ([]byte, error) {
	return ctrXOR(ciphertext, key, iv)
}

func ctrXOR(in, key, iv []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(iv) != CTRIVSize {
		return nil, ErrInvalidIVSize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKeySize
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}
