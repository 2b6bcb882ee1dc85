package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func randBytes(tb testing.TB, n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		tb.Fatalf("rand.Read: %v", err)
	}
	return b
}

func TestGCMRoundTrip(t *testing.T) {
	key := randBytes(t, KeySize)
	iv := randBytes(t, GCMIVSize)
	for _, n := range []int{0, 1, 15, 16, 17, 4096} {
		pt := randBytes(t, n)
		ct, err := EncryptGCM(pt, key, iv)
		if err != nil {
			t.Fatalf("encrypt %d bytes: %v", n, err)
		}
		if len(ct) != n+GCMTagSize {
			t.Fatalf("ciphertext length %d, want %d", len(ct), n+GCMTagSize)
		}
		out, err := DecryptGCM(ct, key, iv)
		if err != nil {
			t.Fatalf("decrypt %d bytes: %v", n, err)
		}
		if !bytes.Equal(pt, out) {
			t.Fatalf("plaintext mismatch at %d bytes", n)
		}
	}
}

func TestGCMTamperDetection(t *testing.T) {
	key := randBytes(t, KeySize)
	iv := randBytes(t, GCMIVSize)
	ct, err := EncryptGCM([]byte("attack at dawn"), key, iv)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	for i := range ct {
		mut := append([]byte(nil), ct...)
		mut[i] ^= 0x01
		if _, err := DecryptGCM(mut, key, iv); !errors.Is(err, ErrDecryptionFailed) {
			t.Fatalf("bit flip at %d: got %v, want ErrDecryptionFailed", i, err)
		}
	}
}

func TestGCMGenericFailures(t *testing.T) {
	key := randBytes(t, KeySize)
	iv := randBytes(t, GCMIVSize)
	ct, err := EncryptGCM([]byte("payload"), key, iv)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	// Wrong key, truncated input, and wrong IV must be indistinguishable.
	wrongKey := randBytes(t, KeySize)
	if _, err := DecryptGCM(ct, wrongKey, iv); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("wrong key: got %v", err)
	}
	if _, err := DecryptGCM(ct[:GCMTagSize-1], key, iv); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("truncated: got %v", err)
	}
	wrongIV := randBytes(t, GCMIVSize)
	if _, err := DecryptGCM(ct, key, wrongIV); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("wrong iv: got %v", err)
	}
}

func TestGCMSizeValidation(t *testing.T) {
	if _, err := EncryptGCM(nil, randBytes(t, 16), randBytes(t, GCMIVSize)); !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("short key: got %v", err)
	}
	if _, err := EncryptGCM(nil, randBytes(t, KeySize), randBytes(t, 16)); !errors.Is(err, ErrInvalidIVSize) {
		t.Fatalf("bad iv: got %v", err)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	key := randBytes(t, KeySize)
	pt := []byte(`{"name":"folder-metadata"}`)
	env, err := SealEnvelope(pt, key)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	out, err := env.Open(key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(pt, out) {
		t.Fatal("plaintext mismatch")
	}
	if len(env.IV) != GCMIVSize*2 {
		t.Fatalf("iv hex length %d, want %d", len(env.IV), GCMIVSize*2)
	}
}

func FuzzGCMRejectMutations(f *testing.F) {
	f.Add([]byte("hello"), 0)
	f.Add([]byte(""), 3)
	f.Fuzz(func(t *testing.T, pt []byte, mutIdx int) {
		key := randBytes(t, KeySize)
		iv := randBytes(t, GCMIVSize)
		ct, err := EncryptGCM(pt, key, iv)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		if _, err := DecryptGCM(ct, key, iv); err != nil {
			t.Fatalf("decrypt baseline: %v", err)
		}
		if len(ct) == 0 {
			return
		}
		if mutIdx < 0 {
			mutIdx = -mutIdx
		}
		idx := mutIdx % len(ct)
		mut := append([]byte(nil), ct...)
		mut[idx] ^= 0xFF
		if _, err := DecryptGCM(mut, key, iv); err == nil {
			t.Fatalf("mutation at %d succeeded", idx)
		}
	})
}
