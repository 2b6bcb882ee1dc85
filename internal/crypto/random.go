package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// RandomBytes returns n bytes from the platform CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomFailed, err)
	}
	return b, nil
}

// NewKey returns a fresh random 32-byte symmetric key.
func NewKey() ([]byte, error) {
	return RandomBytes(KeySize)
}

// NewGCMIV returns a fresh random 12-byte AES-GCM nonce. A nonce must never
// be reused under the same key; callers draw one per encryption.
func NewGCMIV() ([]byte, error) {
	return RandomBytes(GCMIVSize)
}

// NewCTRIV returns a fresh AES-CTR IV: 8 random nonce bytes followed by an
// 8-byte block counter starting at zero. The random half is what prevents
// catastrophic nonce reuse across files encrypted under the same key.
func NewCTRIV() ([]byte, error) {
	nonce, err := RandomBytes(8)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, CTRIVSize)
	copy(iv, nonce)
	return iv, nil
}

// CTRIVForOffset returns a copy of iv with the block counter set for
// decrypting at the given byte offset. The offset must be a multiple of the
// AES block size (16); this is what makes HTTP range requests on CTR
// streams cheap.
func CTRIVForOffset(iv []byte, offset int64) ([]byte, error) {
	if len(iv) != CTRIVSize {
		return nil, ErrInvalidIVSize
	}
	if offset < 0 || offset%16 != 0 {
		return nil, fmt.Errorf("crypto: offset %d is not block aligned", offset)
	}
	out := make([]byte, CTRIVSize)
	copy(out, iv[:8])
	binary.BigEndian.PutUint64(out[8:], uint64(offset/16))
	return out, nil
}
