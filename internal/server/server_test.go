package server

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FSM1/cipher-box-sub011/internal/crypto"
	"github.com/FSM1/cipher-box-sub011/internal/ipns"
	"github.com/FSM1/cipher-box-sub011/internal/tee"
)

const testSecret = "test-bearer-secret"

type memStateStore struct {
	state tee.State
}

func (m *memStateStore) Load(context.Context) (tee.State, error) { return m.state, nil }
func (m *memStateStore) Save(_ context.Context, s tee.State) error {
	m.state = s
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *tee.Service) {
	t.Helper()
	seed := make([]byte, 32)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	deriver, err := tee.NewSimulatorDeriver(seed, "test")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := tee.NewService(deriver, tee.NewPublicKeyCache(), logger, nil)

	state := &memStateStore{state: tee.State{CurrentEpoch: 1, CurrentPublicKey: "02aa"}}
	srv, err := New(Config{BearerSecret: testSecret, RepublishPerMinute: 6000, RepublishBurst: 100}, svc, state, logger, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, svc
}

func doRequest(t *testing.T, method, url string, body []byte, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/public-key?epoch=1", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/public-key?epoch=1", nil, "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/public-key?epoch=1", nil, testSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthIsPublic(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Healthy)
	assert.Equal(t, uint64(1), body.Epoch)
}

func TestPublicKeyByEpoch(t *testing.T) {
	ts, svc := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/public-key?epoch=3", nil, testSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body publicKeyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, uint64(3), body.Epoch)

	pub, err := svc.PublicKey(3)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(pub.SerializeCompressed()), body.PublicKeyHex)

	resp = doRequest(t, http.MethodGet, ts.URL+"/public-key?epoch=bogus", nil, testSecret)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func wireEntry(t *testing.T, svc *tee.Service, epoch uint64, name string, seq uint64) (republishEntry, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	epochPub, err := svc.PublicKey(epoch)
	require.NoError(t, err)
	ct, err := crypto.WrapKey(priv.Seed(), epochPub)
	require.NoError(t, err)
	return republishEntry{
		IPNSName:         name,
		EncryptedIPNSKey: base64.StdEncoding.EncodeToString(ct),
		KeyEpoch:         epoch,
		LatestCID:        "bafy-" + name,
		SequenceNumber:   strconv.FormatUint(seq, 10),
		CurrentEpoch:     epoch,
	}, pub
}

func TestRepublishEndpoint(t *testing.T) {
	ts, svc := newTestServer(t)

	entry, pub := wireEntry(t, svc, 1, "name-a", 41)
	body, err := json.Marshal(republishRequest{Entries: []republishEntry{entry}})
	require.NoError(t, err)

	resp := doRequest(t, http.MethodPost, ts.URL+"/republish", body, testSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out republishResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Results, 1)
	res := out.Results[0]
	require.True(t, res.Success, "error: %s", res.Error)
	assert.Equal(t, "42", res.NewSequenceNumber)
	assert.Empty(t, res.UpgradedEncryptedKey)

	raw, err := base64.StdEncoding.DecodeString(res.SignedRecord)
	require.NoError(t, err)
	rec, err := ipns.Parse(raw)
	require.NoError(t, err)
	require.NoError(t, rec.Verify(pub))
	assert.Equal(t, uint64(42), rec.Sequence)
}

func TestRepublishMalformedEntryIsolated(t *testing.T) {
	ts, svc := newTestServer(t)

	good, _ := wireEntry(t, svc, 1, "good", 1)
	bad := republishEntry{
		IPNSName:         "bad",
		EncryptedIPNSKey: "%%% not base64 %%%",
		KeyEpoch:         1,
		LatestCID:        "bafy-bad",
		SequenceNumber:   "1",
		CurrentEpoch:     1,
	}
	body, err := json.Marshal(republishRequest{Entries: []republishEntry{bad, good}})
	require.NoError(t, err)

	resp := doRequest(t, http.MethodPost, ts.URL+"/republish", body, testSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out republishResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Results, 2)
	assert.False(t, out.Results[0].Success)
	assert.Equal(t, "malformed entry", out.Results[0].Error)
	assert.True(t, out.Results[1].Success, "error: %s", out.Results[1].Error)
}

func TestRepublishUpgradeOverWire(t *testing.T) {
	ts, svc := newTestServer(t)

	// Wrapped under epoch 1 while the batch runs at epoch 2.
	entry, _ := wireEntry(t, svc, 1, "stale", 9)
	prev := uint64(1)
	entry.CurrentEpoch = 2
	entry.PreviousEpoch = &prev

	body, err := json.Marshal(republishRequest{Entries: []republishEntry{entry}})
	require.NoError(t, err)

	resp := doRequest(t, http.MethodPost, ts.URL+"/republish", body, testSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out republishResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Results, 1)
	res := out.Results[0]
	require.True(t, res.Success, "error: %s", res.Error)
	require.NotEmpty(t, res.UpgradedEncryptedKey)
	assert.Equal(t, uint64(2), res.UpgradedKeyEpoch)
}
