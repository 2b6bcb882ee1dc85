package ipns

import (
	"crypto/ed25519"
	"time"

	"github.com/FSM1/cipher-box-sub011/internal/crypto"
)

// Verify checks SignatureV2 over the record's signed data. Verification is
// mandatory before trusting any resolved CID; a failure is fatal to the
// calling operation, never a fallback.
func (r *Record) Verify(pub ed25519.PublicKey) error {
	if len(r.Data) == 0 || len(r.SignatureV2) == 0 {
		return ErrMalformedRecord
	}
	if !crypto.Verify(pub, sigV2Payload(r.Data), r.SignatureV2) {
		return ErrSignatureInvalid
	}
	return nil
}

// Expired reports whether the record's validity window has elapsed.
func (r *Record) Expired(now time.Time) bool {
	if r.ValidityType != ValidityEOL {
		return true
	}
	eol, err := time.Parse(time.RFC3339Nano, string(r.Validity))
	if err != nil {
		return true
	}
	return !now.Before(eol)
}

// Validate runs the full acceptance check: signature plus validity window.
func (r *Record) Validate(pub ed25519.PublicKey, now time.Time) error {
	if err := r.Verify(pub); err != nil {
		return err
	}
	if r.Expired(now) {
		return ErrRecordExpired
	}
	return nil
}

// ResolveResult is what callers get back from a resolve. SignatureVerified
// is false only on the degraded path where no raw record was available to
// check; callers must surface that downgrade, not silently proceed.
type ResolveResult struct {
	Value             string
	Sequence          uint64
	SignatureVerified bool
}

// VerifyResolved parses and validates a raw resolved record for the given
// name. The signing key comes from the record's pubKey field, or failing
// that from the name itself.
func VerifyResolved(raw []byte, name string) (*ResolveResult, error) {
	rec, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	var pub ed25519.PublicKey
	if len(rec.PubKey) > 0 {
		pub, err = unwrapPublicKey(rec.PubKey)
	} else {
		pub, err = PublicKeyFromName(name)
	}
	if err != nil {
		return nil, err
	}
	if err := rec.Validate(pub, time.Now()); err != nil {
		return nil, err
	}
	return &ResolveResult{
		Value:             string(rec.Value),
		Sequence:          rec.Sequence,
		SignatureVerified: true,
	}, nil
}

// Unverified wraps a cache-fallback value that arrived without a raw
// record. The explicit false flag is the trust downgrade signal.
func Unverified(value string) *ResolveResult {
	return &ResolveResult{Value: value, SignatureVerified: false}
}
