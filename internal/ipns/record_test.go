package ipns

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func TestCreateAndVerify(t *testing.T) {
	pub, priv := testKeypair(t)
	rec, err := Create(priv, "bafybeigdyrzt5example", 1, DefaultLifetime)
	require.NoError(t, err)

	require.NoError(t, rec.Verify(pub))
	require.NoError(t, rec.Validate(pub, time.Now()))
	assert.Equal(t, uint64(1), rec.Sequence)
	assert.Equal(t, uint64(ValidityEOL), rec.ValidityType)
	assert.NotEmpty(t, rec.SignatureV1)
}

func TestVerifyWrongKeyFails(t *testing.T) {
	_, priv := testKeypair(t)
	otherPub, _ := testKeypair(t)

	rec, err := Create(priv, "bafyvalue", 1, DefaultLifetime)
	require.NoError(t, err)

	assert.ErrorIs(t, rec.Verify(otherPub), ErrSignatureInvalid)
}

func TestVerifyMutatedDataFails(t *testing.T) {
	pub, priv := testKeypair(t)
	rec, err := Create(priv, "bafyvalue", 1, DefaultLifetime)
	require.NoError(t, err)

	rec.Data[0] ^= 0x01
	assert.ErrorIs(t, rec.Verify(pub), ErrSignatureInvalid)
}

func TestValidateExpired(t *testing.T) {
	pub, priv := testKeypair(t)
	rec, err := Create(priv, "bafyvalue", 1, time.Second)
	require.NoError(t, err)

	require.NoError(t, rec.Validate(pub, time.Now()))
	assert.ErrorIs(t, rec.Validate(pub, time.Now().Add(time.Minute)), ErrRecordExpired)
}

func TestSequenceMonotonicity(t *testing.T) {
	_, priv := testKeypair(t)
	var prev uint64
	for i := uint64(1); i <= 5; i++ {
		rec, err := Create(priv, "bafyvalue", i, DefaultLifetime)
		require.NoError(t, err)
		require.NoError(t, CheckSequence(prev, rec.Sequence))
		prev = rec.Sequence
	}
	assert.ErrorIs(t, CheckSequence(prev, prev), ErrSequenceRegression)
	assert.ErrorIs(t, CheckSequence(prev, prev-1), ErrSequenceRegression)
}

func TestMarshalParseRoundTrip(t *testing.T) {
	pub, priv := testKeypair(t)
	rec, err := Create(priv, "bafyvalue", 7, DefaultLifetime)
	require.NoError(t, err)

	wire := Marshal(rec)
	parsed, err := Parse(wire)
	require.NoError(t, err)

	assert.Equal(t, rec.Value, parsed.Value)
	assert.Equal(t, rec.Sequence, parsed.Sequence)
	assert.Equal(t, rec.TTL, parsed.TTL)
	assert.Equal(t, rec.Validity, parsed.Validity)
	assert.Equal(t, rec.Data, parsed.Data)
	assert.Equal(t, rec.SignatureV2, parsed.SignatureV2)
	require.NoError(t, parsed.Verify(pub))

	// Round-trips byte for byte.
	assert.Equal(t, wire, Marshal(parsed))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte{0xff, 0xff, 0xff})
	assert.ErrorIs(t, err, ErrMalformedRecord)
	_, err = Parse(nil)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestVerifyResolvedFromName(t *testing.T) {
	pub, priv := testKeypair(t)
	name := NameFromPublicKey(pub)

	rec, err := Create(priv, "bafyvalue", 3, DefaultLifetime)
	require.NoError(t, err)
	rec.PubKey = nil // force key recovery from the name

	res, err := VerifyResolved(Marshal(rec), name)
	require.NoError(t, err)
	assert.True(t, res.SignatureVerified)
	assert.Equal(t, "bafyvalue", res.Value)
	assert.Equal(t, uint64(3), res.Sequence)
}

func TestVerifyResolvedEmbeddedKey(t *testing.T) {
	pub, priv := testKeypair(t)
	rec, err := Create(priv, "bafyvalue", 3, DefaultLifetime)
	require.NoError(t, err)

	// Name of a different key: embedded pubKey wins.
	otherPub, _ := testKeypair(t)
	res, err := VerifyResolved(Marshal(rec), NameFromPublicKey(otherPub))
	require.NoError(t, err)
	assert.True(t, res.SignatureVerified)
	_ = pub
}

func TestNamePublicKeyRoundTrip(t *testing.T) {
	pub, _ := testKeypair(t)
	name := NameFromPublicKey(pub)

	got, err := PublicKeyFromName(name)
	require.NoError(t, err)
	assert.Equal(t, []byte(pub), []byte(got))
}

func TestUnwrapPublicKeyEnvelope(t *testing.T) {
	pub, _ := testKeypair(t)
	env := wrapPublicKey(pub)
	require.Len(t, env, 36)

	got, err := unwrapPublicKey(env)
	require.NoError(t, err)
	assert.Equal(t, []byte(pub), []byte(got))

	_, err = unwrapPublicKey(env[:20])
	assert.Error(t, err)
}

func TestUnverifiedDowngrade(t *testing.T) {
	res := Unverified("bafycached")
	assert.False(t, res.SignatureVerified)
	assert.Equal(t, "bafycached", res.Value)
}
