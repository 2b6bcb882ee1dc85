package tee

import (
	"context"
	"crypto/ed25519"
	"log/slog"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/FSM1/cipher-box-sub011/internal/crypto"
	"github.com/FSM1/cipher-box-sub011/internal/ipns"
)

// RepublishLifetime is the record lifetime used by the TEE. It is longer
// than the client-published default because the republish cadence is
// coarser.
const RepublishLifetime = 72 * time.Hour

// Service performs the per-entry republish work: decrypt the delegated IPNS
// signing key, sign a fresh record, upgrade the key wrapping if it was
// found under the previous epoch.
type Service struct {
	deriver Deriver
	cache   *PublicKeyCache
	logger  *slog.Logger
	metrics *Metrics
}

func NewService(deriver Deriver, cache *PublicKeyCache, logger *slog.Logger, metrics *Metrics) *Service {
	if cache == nil {
		cache = NewPublicKeyCache()
	}
	return &Service{deriver: deriver, cache: cache, logger: logger, metrics: metrics}
}

// PublicKey returns the epoch's public key, memoized in the cache.
func (s *Service) PublicKey(epoch uint64) (*btcec.PublicKey, error) {
	if pub, ok := s.cache.Get(epoch); ok {
		return pub, nil
	}
	priv, pub, err := s.deriver.Keypair(epoch)
	if err != nil {
		return nil, err
	}
	priv.Zero()
	s.cache.Put(epoch, pub)
	return pub, nil
}

// DecryptWithFallback unwraps ciphertext under the current epoch's key,
// falling back to the previous epoch while the grace window permits one.
// The reported usedEpoch tells the caller whether an upgrade is due.
func (s *Service) DecryptWithFallback(ciphertext []byte, current uint64, previous *uint64) (plaintext []byte, usedEpoch uint64, err error) {
	pt, err := s.decryptUnder(ciphertext, current)
	if err == nil {
		return pt, current, nil
	}
	if previous != nil {
		pt, err = s.decryptUnder(ciphertext, *previous)
		if err == nil {
			return pt, *previous, nil
		}
	}
	return nil, 0, ErrEpochDecryptionExhausted
}

func (s *Service) decryptUnder(ciphertext []byte, epoch uint64) ([]byte, error) {
	priv, _, err := s.deriver.Keypair(epoch)
	if err != nil {
		return nil, err
	}
	defer priv.Zero()
	return crypto.UnwrapKey(ciphertext, priv)
}

// ReEncryptForEpoch wraps plaintext for the target epoch's public key.
func (s *Service) ReEncryptForEpoch(plaintext []byte, epoch uint64) ([]byte, error) {
	pub, err := s.PublicKey(epoch)
	if err != nil {
		return nil, err
	}
	return crypto.WrapKey(plaintext, pub)
}

// RepublishEntry is one delegated name due for republishing.
type RepublishEntry struct {
	IPNSName         string
	EncryptedIPNSKey []byte
	KeyEpoch         uint64
	LatestCID        string
	Sequence         uint64
}

// RepublishResult mirrors one entry. Err carries a generic category only;
// no key material or ciphertext ever appears in it.
type RepublishResult struct {
	IPNSName             string
	Success              bool
	SignedRecord         []byte
	NewSequence          uint64
	UpgradedEncryptedKey []byte
	UpgradedKeyEpoch     uint64
	Err                  string
}

// Republish processes each entry independently: one bad entry produces one
// failed result, never an aborted batch. Only counts are logged.
func (s *Service) Republish(ctx context.Context, entries []RepublishEntry, current uint64, previous *uint64) []RepublishResult {
	results := make([]RepublishResult, len(entries))
	var failed int
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			results[i] = RepublishResult{IPNSName: e.IPNSName, Err: "cancelled"}
			failed++
			continue
		}
		results[i] = s.republishOne(e, current, previous)
		if !results[i].Success {
			failed++
		}
	}
	if s.metrics != nil {
		s.metrics.Entries.Add(float64(len(entries)))
		s.metrics.Failures.Add(float64(failed))
	}
	s.logger.Info("republish batch done",
		"entries", len(entries),
		"succeeded", len(entries)-failed,
		"failed", failed,
	)
	return results
}

func (s *Service) republishOne(e RepublishEntry, current uint64, previous *uint64) RepublishResult {
	res := RepublishResult{IPNSName: e.IPNSName}

	keyBytes, usedEpoch, err := s.DecryptWithFallback(e.EncryptedIPNSKey, current, previous)
	if err != nil {
		res.Err = "decryption failed"
		return res
	}
	// Zero the signing key on every exit path.
	defer crypto.Zero(keyBytes)

	priv, err := signingKeyFrom(keyBytes)
	if err != nil {
		res.Err = "invalid key material"
		return res
	}
	defer crypto.Zero(priv)

	rec, err := ipns.Create(priv, e.LatestCID, e.Sequence+1, RepublishLifetime)
	if err != nil {
		res.Err = "signing failed"
		return res
	}
	res.SignedRecord = ipns.Marshal(rec)
	res.NewSequence = rec.Sequence

	// Epoch upgrade on touch: once re-encrypted, the next republish no
	// longer needs the fallback path.
	if usedEpoch != current {
		upgraded, err := s.ReEncryptForEpoch(keyBytes, current)
		if err != nil {
			res.Err = "re-encryption failed"
			return res
		}
		res.UpgradedEncryptedKey = upgraded
		res.UpgradedKeyEpoch = current
		if s.metrics != nil {
			s.metrics.Upgrades.Inc()
		}
	}

	res.Success = true
	return res
}

// signingKeyFrom accepts either a 32-byte seed or a full 64-byte Ed25519
// private key.
func signingKeyFrom(b []byte) (ed25519.PrivateKey, error) {
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(append([]byte(nil), b...)), nil
	default:
		return nil, crypto.ErrInvalidKeySize
	}
}
