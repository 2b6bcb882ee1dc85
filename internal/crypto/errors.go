package crypto

import "errors"

// Error messages are deliberately generic. Decryption failures never say
// whether the key, the tag, or the ciphertext was at fault.
var (
	ErrInvalidKeySize   = errors.New("crypto: invalid key size")
	ErrInvalidIVSize    = errors.New("crypto: invalid iv size")
	ErrEncryptionFailed = errors.New("crypto: encryption failed")
	ErrDecryptionFailed = errors.New("crypto: decryption failed")
	ErrRandomFailed     = errors.New("crypto: secure random source unavailable")
	ErrSignatureInvalid = errors.New("crypto: signature verification failed")
)

const (
	// KeySize is the size of every symmetric key in the system (AES-256).
	KeySize = 32

	// GCMIVSize is the AES-GCM nonce size.
	GCMIVSize = 12

	// GCMTagSize is the AES-GCM authentication tag size.
	GCMTagSize = 16

	// CTRIVSize is the AES-CTR IV size: an 8-byte random nonce followed by
	// an 8-byte big-endian block counter.
	CTRIVSize = 16
)
