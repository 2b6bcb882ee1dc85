package ipns

import (
	"crypto/ed25519"
	"encoding/base32"
	"strings"
)

// Ed25519 public keys are small enough to live inside the IPNS name itself:
// the name is a CIDv1 with the libp2p-key codec and an identity multihash
// over the libp2p public key envelope, multibase base32 encoded.

var pubKeyEnvelopePrefix = []byte{0x08, 0x01, 0x12, 0x20} // KeyType=Ed25519, Data length 32

var nameEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// wrapPublicKey wraps a raw Ed25519 key in its 36-byte libp2p protobuf
// envelope.
func wrapPublicKey(pub ed25519.PublicKey) []byte {
	out := make([]byte, 0, len(pubKeyEnvelopePrefix)+len(pub))
	out = append(out, pubKeyEnvelopePrefix...)
	out = append(out, pub...)
	return out
}

// unwrapPublicKey accepts either the 36-byte envelope form or a raw 32-byte
// key and returns the raw key.
func unwrapPublicKey(b []byte) (ed25519.PublicKey, error) {
	switch len(b) {
	case ed25519.PublicKeySize:
		return ed25519.PublicKey(b), nil
	case len(pubKeyEnvelopePrefix) + ed25519.PublicKeySize:
		for i, p := range pubKeyEnvelopePrefix {
			if b[i] != p {
				return nil, ErrMalformedRecord
			}
		}
		return ed25519.PublicKey(b[len(pubKeyEnvelopePrefix):]), nil
	default:
		return nil, ErrMalformedRecord
	}
}

// NameFromPublicKey derives the IPNS name for a signing key.
func NameFromPublicKey(pub ed25519.PublicKey) string {
	env := wrapPublicKey(pub)
	cid := make([]byte, 0, 4+len(env))
	cid = append(cid, 0x01, 0x72)             // CIDv1, libp2p-key
	cid = append(cid, 0x00, byte(len(env)))   // identity multihash
	cid = append(cid, env...)
	return "b" + strings.ToLower(nameEncoding.EncodeToString(cid))
}

// PublicKeyFromName recovers the embedded Ed25519 key from an IPNS name.
// Used by the resolver when the record itself omits the pubKey field.
func PublicKeyFromName(name string) (ed25519.PublicKey, error) {
	if len(name) < 2 || name[0] != 'b' {
		return nil, ErrMalformedRecord
	}
	cid, err := nameEncoding.DecodeString(strings.ToUpper(name[1:]))
	if err != nil {
		return nil, ErrMalformedRecord
	}
	if len(cid) < 4 || cid[0] != 0x01 || cid[1] != 0x72 || cid[2] != 0x00 || int(cid[3]) != len(cid)-4 {
		return nil, ErrMalformedRecord
	}
	return unwrapPublicKey(cid[4:])
}
