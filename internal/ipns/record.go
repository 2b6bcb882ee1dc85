// Package ipns builds, signs, marshals, and verifies the versioned pointer
// records that map a stable name to the current content CID. The wire layout
// matches the IPFS-ecosystem record format: CBOR-encoded signed data,
// protobuf framing, Ed25519 signatures with the "ipns-signature:" domain
// prefix.
package ipns

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/FSM1/cipher-box-sub011/internal/crypto"
)

const (
	// ValidityEOL marks a record whose validity field is an absolute
	// expiry timestamp.
	ValidityEOL = 0

	// DefaultLifetime is the client-side record lifetime. The TEE
	// republisher uses a longer one since its cadence is coarser.
	DefaultLifetime = 24 * time.Hour

	// DefaultTTL is the caching hint embedded in records, in nanoseconds.
	DefaultTTL = uint64(time.Hour)
)

// sigV2Prefix domain-separates record signatures from any other Ed25519
// use of the same key.
const sigV2Prefix = "ipns-signature:"

var (
	ErrSignatureInvalid   = errors.New("ipns: signature verification failed")
	ErrRecordExpired      = errors.New("ipns: record validity window elapsed")
	ErrMalformedRecord    = errors.New("ipns: malformed record")
	ErrSequenceRegression = errors.New("ipns: sequence number did not increase")
)

// Record is a signed name→CID pointer.
type Record struct {
	Value        []byte // CID string bytes
	SignatureV1  []byte // legacy signature, optional
	ValidityType uint64
	Validity     []byte // RFC3339Nano expiry
	Sequence     uint64
	TTL          uint64
	PubKey       []byte // libp2p public key envelope, optional
	SignatureV2  []byte
	Data         []byte // CBOR encoding of the signed fields
}

// recordData is the CBOR shape covered by SignatureV2.
type recordData struct {
	Value        []byte `cbor:"Value"`
	Validity     []byte `cbor:"Validity"`
	ValidityType uint64 `cbor:"ValidityType"`
	Sequence     uint64 `cbor:"Sequence"`
	TTL          uint64 `cbor:"TTL"`
}

var cborEnc cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	cborEnc = em
}

// Create signs a new record pointing value at the given sequence number.
// The V2 signature covers the CBOR data under the domain prefix; a V1
// signature is included for consumers that predate V2.
func Create(priv ed25519.PrivateKey, value string, sequence uint64, lifetime time.Duration) (*Record, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, crypto.ErrInvalidKeySize
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	validity := []byte(time.Now().Add(lifetime).UTC().Format(time.RFC3339Nano))

	data, err := cborEnc.Marshal(recordData{
		Value:        []byte(value),
		Validity:     validity,
		ValidityType: ValidityEOL,
		Sequence:     sequence,
		TTL:          DefaultTTL,
	})
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Value:        []byte(value),
		ValidityType: ValidityEOL,
		Validity:     validity,
		Sequence:     sequence,
		TTL:          DefaultTTL,
		PubKey:       wrapPublicKey(priv.Public().(ed25519.PublicKey)),
		Data:         data,
	}
	rec.SignatureV2 = crypto.Sign(priv, sigV2Payload(data))
	rec.SignatureV1 = crypto.Sign(priv, sigV1Payload(rec))
	return rec, nil
}

func sigV2Payload(data []byte) []byte {
	msg := make([]byte, 0, len(sigV2Prefix)+len(data))
	msg = append(msg, sigV2Prefix...)
	msg = append(msg, data...)
	return msg
}

func sigV1Payload(r *Record) []byte {
	msg := make([]byte, 0, len(r.Value)+len(r.Validity)+3)
	msg = append(msg, r.Value...)
	msg = append(msg, r.Validity...)
	msg = append(msg, "EOL"...)
	return msg
}

// CheckSequence enforces strict monotonicity for successive records of the
// same name. A repeat or decrease is a protocol violation, never a retry.
func CheckSequence(prev, next uint64) error {
	if next <= prev {
		return ErrSequenceRegression
	}
	return nil
}
