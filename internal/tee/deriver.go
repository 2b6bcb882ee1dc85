// Package tee holds IPNS signing keys on the user's behalf inside a secure
// enclave (real or simulated) and republishes records without the user's
// device being online. Epoch-scoped keypairs are derived on demand and never
// persisted; encrypted key material is upgraded to the current epoch the
// first time it is touched after a rotation.
package tee

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/FSM1/cipher-box-sub011/internal/crypto"
)

var (
	ErrEpochDecryptionExhausted = errors.New("tee: decryption failed under all permitted epochs")
	ErrSimulatorInProduction    = errors.New("tee: simulator deriver refused, deployment is production")
)

// Deriver produces the epoch-scoped secp256k1 keypair. Derivation is
// deterministic per epoch so the enclave never has to store private keys.
type Deriver interface {
	Keypair(epoch uint64) (*btcec.PrivateKey, *btcec.PublicKey, error)
}

func epochInfo(epoch uint64) []byte {
	return []byte(fmt.Sprintf("epoch-%d", epoch))
}

// SimulatorDeriver derives epoch keys from a fixed seed with HKDF. It
// exists for development and tests only and refuses to construct when the
// deployment is flagged production.
type SimulatorDeriver struct {
	seed []byte
}

var simulatorSalt = []byte("cipherbox-tee-simulator-v1")

func NewSimulatorDeriver(seed []byte, environment string) (*SimulatorDeriver, error) {
	switch strings.ToLower(environment) {
	case "prod", "production":
		return nil, ErrSimulatorInProduction
	}
	if len(seed) < 16 {
		return nil, errors.New("tee: simulator seed too short")
	}
	return &SimulatorDeriver{seed: append([]byte(nil), seed...)}, nil
}

func (d *SimulatorDeriver) Keypair(epoch uint64) (*btcec.PrivateKey, *btcec.PublicKey, error) {
	raw, err := crypto.DeriveKey(d.seed, simulatorSalt, epochInfo(epoch), 32)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.Zero(raw)
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv, priv.PubKey(), nil
}
