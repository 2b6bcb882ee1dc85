package server

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/FSM1/cipher-box-sub011/internal/storage"
	"github.com/FSM1/cipher-box-sub011/internal/tee"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st, err := s.state.Load(r.Context())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Healthy: false})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Healthy: true, Epoch: st.CurrentEpoch})
}

func (s *Server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	var epoch uint64
	if q := r.URL.Query().Get("epoch"); q != "" {
		n, err := strconv.ParseUint(q, 10, 64)
		if err != nil || n == 0 {
			writeErr(w, errBadRequest)
			return
		}
		epoch = n
	} else {
		st, err := s.state.Load(r.Context())
		if err != nil {
			writeErr(w, errUnavailable)
			return
		}
		epoch = st.CurrentEpoch
	}

	pub, err := s.svc.PublicKey(epoch)
	if err != nil {
		writeErr(w, errUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, publicKeyResponse{
		Epoch:        epoch,
		PublicKeyHex: hex.EncodeToString(pub.SerializeCompressed()),
	})
}

// epochPair groups entries that share the same current/previous epoch view,
// so one request can span a rotation boundary without losing per-entry
// isolation.
type epochPair struct {
	current uint64
	hasPrev bool
	prev    uint64
}

func (s *Server) handleRepublish(w http.ResponseWriter, r *http.Request) {
	if !s.rlRepublish.allow(getClientIP(r)) {
		writeErr(w, errRateLimited)
		return
	}

	var req republishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errBadRequest)
		return
	}

	results := make([]republishResult, len(req.Entries))
	decoded := make([]tee.RepublishEntry, len(req.Entries))
	pairs := make([]epochPair, len(req.Entries))
	ok := make([]bool, len(req.Entries))

	for i, e := range req.Entries {
		results[i] = republishResult{IPNSName: e.IPNSName}
		key, err := base64.StdEncoding.DecodeString(e.EncryptedIPNSKey)
		if err != nil || e.IPNSName == "" {
			results[i].Error = "malformed entry"
			continue
		}
		seq, err := strconv.ParseUint(e.SequenceNumber, 10, 64)
		if err != nil {
			results[i].Error = "malformed entry"
			continue
		}
		decoded[i] = tee.RepublishEntry{
			IPNSName:         e.IPNSName,
			EncryptedIPNSKey: key,
			KeyEpoch:         e.KeyEpoch,
			LatestCID:        e.LatestCID,
			Sequence:         seq,
		}
		pairs[i] = epochPair{current: e.CurrentEpoch}
		if e.PreviousEpoch != nil {
			pairs[i].hasPrev = true
			pairs[i].prev = *e.PreviousEpoch
		}
		ok[i] = true
	}

	// Batch per epoch view, preserving result order.
	for i := 0; i < len(req.Entries); i++ {
		if !ok[i] {
			continue
		}
		pair := pairs[i]
		var idx []int
		var batch []tee.RepublishEntry
		for j := i; j < len(req.Entries); j++ {
			if ok[j] && pairs[j] == pair {
				idx = append(idx, j)
				batch = append(batch, decoded[j])
				ok[j] = false
			}
		}
		var prev *uint64
		if pair.hasPrev {
			p := pair.prev
			prev = &p
		}
		batchResults := s.svc.Republish(r.Context(), batch, pair.current, prev)
		for k, j := range idx {
			results[j] = toResultDTO(batchResults[k])
		}
	}

	writeJSON(w, http.StatusOK, republishResponse{Results: results})
}

func toResultDTO(res tee.RepublishResult) republishResult {
	out := republishResult{
		IPNSName: res.IPNSName,
		Success:  res.Success,
		Error:    res.Err,
	}
	if res.Success {
		out.SignedRecord = base64.StdEncoding.EncodeToString(res.SignedRecord)
		out.NewSequenceNumber = strconv.FormatUint(res.NewSequence, 10)
	}
	if len(res.UpgradedEncryptedKey) > 0 {
		out.UpgradedEncryptedKey = base64.StdEncoding.EncodeToString(res.UpgradedEncryptedKey)
		out.UpgradedKeyEpoch = res.UpgradedKeyEpoch
	}
	return out
}
