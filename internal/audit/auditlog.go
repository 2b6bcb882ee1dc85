// Package audit provides an append-only hash-chained trail. Each entry's
// hash covers the previous entry's hash and the entry payload, so altering
// or removing any record breaks verification of everything after it.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

var ErrChainBroken = errors.New("audit: chain broken")

type Entry struct {
	TS      time.Time       `json:"ts" bson:"ts"`
	Payload json.RawMessage `json:"payload" bson:"payload"`
	Hash    string          `json:"hash" bson:"hash"`
}

// ChainHash extends a chain ending in prevHash with payload. The genesis
// entry uses an empty prevHash.
func ChainHash(prevHash string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

type Trail struct {
	lastHash string
	entries  []Entry
}

func New() *Trail { return &Trail{} }

// Load rebuilds a trail from persisted entries, verifying the chain before
// adopting it.
func Load(entries []Entry) (*Trail, error) {
	t := &Trail{}
	for _, e := range entries {
		if ChainHash(t.lastHash, e.Payload) != e.Hash {
			return nil, ErrChainBroken
		}
		t.lastHash = e.Hash
		t.entries = append(t.entries, e)
	}
	return t, nil
}

func (t *Trail) Append(payload any) (Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		TS:      time.Now().UTC(),
		Payload: raw,
		Hash:    ChainHash(t.lastHash, raw),
	}
	t.lastHash = e.Hash
	t.entries = append(t.entries, e)
	return e, nil
}

func (t *Trail) Verify() error {
	var prev string
	for _, e := range t.entries {
		if ChainHash(prev, e.Payload) != e.Hash {
			return ErrChainBroken
		}
		prev = e.Hash
	}
	return nil
}

func (t *Trail) Entries() []Entry { return append([]Entry(nil), t.entries...) }

func (t *Trail) LastHash() string { return t.lastHash }
