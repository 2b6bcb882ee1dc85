// Package vault builds the key hierarchy: the vault anchor derived from the
// user's root secret, and the randomly generated folder and file keys hanging
// off it. Deterministic derivation is reserved for the single recovery anchor
// (the vault IPNS keypair); everything reachable by walking the folder tree
// is random and ECIES-wrapped into its parent.
package vault

import (
	"crypto/ed25519"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/FSM1/cipher-box-sub011/internal/crypto"
)

// Domain-separation constants for the vault anchor derivation. Changing
// either breaks recovery of every existing vault; they are part of the wire
// protocol in all but name.
const (
	DerivationSalt = "CipherBox-v1"
	VaultIPNSInfo  = "cipherbox-vault-ipns-v1"
)

var ErrMissingKeys = errors.New("vault: encrypted vault keys incomplete")

// Init holds the decrypted vault anchor: the root folder key and the
// deterministically derived IPNS signing keypair.
type Init struct {
	RootFolderKey  *crypto.Secret
	IPNSPublicKey  ed25519.PublicKey
	IPNSPrivateKey ed25519.PrivateKey
}

// Clear wipes all key material held by the Init.
func (v *Init) Clear() {
	if v.RootFolderKey != nil {
		v.RootFolderKey.Wipe()
	}
	crypto.Zero(v.IPNSPrivateKey)
	v.IPNSPrivateKey = nil
	v.IPNSPublicKey = nil
}

// EncryptedKeys is the only vault state the server ever sees: both keys
// ECIES-wrapped under the user's public key, opaque to the holder. The IPNS
// public key is deliberately absent; it is re-derived from the private key
// on every login.
type EncryptedKeys struct {
	EncryptedRootFolderKey  []byte `json:"encryptedRootFolderKey"`
	EncryptedIPNSPrivateKey []byte `json:"encryptedIpnsPrivateKey"`
}

// Initialize builds a fresh vault anchor from the root secret. The IPNS
// keypair comes out of HKDF so it is recoverable from the secret alone; the
// folder key is random because the folder tree itself provides its recovery
// path.
func Initialize(rootSecret *btcec.PrivateKey) (*Init, error) {
	ikm := rootSecret.Serialize()
	defer crypto.Zero(ikm)

	seed, err := crypto.DeriveKey(ikm, []byte(DerivationSalt), []byte(VaultIPNSInfo), ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(seed)

	pub, priv, err := crypto.SigningKeyFromSeed(seed)
	if err != nil {
		return nil, err
	}

	folderKey, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}

	return &Init{
		RootFolderKey:  crypto.NewSecret(folderKey),
		IPNSPublicKey:  pub,
		IPNSPrivateKey: priv,
	}, nil
}

// EncryptKeys wraps the vault anchor for server-side storage.
func EncryptKeys(v *Init, userPub *btcec.PublicKey) (*EncryptedKeys, error) {
	encFolder, err := crypto.WrapKey(v.RootFolderKey.Bytes(), userPub)
	if err != nil {
		return nil, err
	}
	seed := v.IPNSPrivateKey.Seed()
	defer crypto.Zero(seed)
	encIPNS, err := crypto.WrapKey(seed, userPub)
	if err != nil {
		return nil, err
	}
	return &EncryptedKeys{
		EncryptedRootFolderKey:  encFolder,
		EncryptedIPNSPrivateKey: encIPNS,
	}, nil
}

// DecryptKeys unwraps the stored vault keys with the root secret and
// re-derives the IPNS public key from the recovered private key. A stored
// public key is never trusted.
func DecryptKeys(enc *EncryptedKeys, rootSecret *btcec.PrivateKey) (*Init, error) {
	if enc == nil || len(enc.EncryptedRootFolderKey) == 0 || len(enc.EncryptedIPNSPrivateKey) == 0 {
		return nil, ErrMissingKeys
	}
	folderKey, err := crypto.UnwrapKey(enc.EncryptedRootFolderKey, rootSecret)
	if err != nil {
		return nil, err
	}
	seed, err := crypto.UnwrapKey(enc.EncryptedIPNSPrivateKey, rootSecret)
	if err != nil {
		crypto.Zero(folderKey)
		return nil, err
	}
	defer crypto.Zero(seed)

	pub, priv, err := crypto.SigningKeyFromSeed(seed)
	if err != nil {
		crypto.Zero(folderKey)
		return nil, err
	}
	return &Init{
		RootFolderKey:  crypto.NewSecret(folderKey),
		IPNSPublicKey:  pub,
		IPNSPrivateKey: priv,
	}, nil
}
