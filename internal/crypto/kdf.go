package crypto

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey runs HKDF-SHA256 over inputKey with the given salt and info
// strings. Identical inputs always yield identical output; changing any of
// them changes the output, which is what gives each derivation context its
// own domain.
func DeriveKey(inputKey, salt, info []byte, length int) ([]byte, error) {
	if len(inputKey) == 0 {
		return nil, errors.New("crypto: empty input key")
	}
	if length <= 0 {
		return nil, errors.New("crypto: non-positive output length")
	}
	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, inputKey, salt, info), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Derive32 is DeriveKey fixed at the symmetric key size.
func Derive32(inputKey, salt, info []byte) ([]byte, error) {
	return DeriveKey(inputKey, salt, info, KeySize)
}
