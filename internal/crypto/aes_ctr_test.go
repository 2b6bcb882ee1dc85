package crypto

import (
	"bytes"
	"testing"
)

func TestCTRRoundTrip(t *testing.T) {
	key := randBytes(t, KeySize)
	iv, err := NewCTRIV()
	if err != nil {
		t.Fatalf("iv: %v", err)
	}
	for _, n := range []int{0, 1, 16, 31, 8192} {
		pt := randBytes(t, n)
		ct, err := EncryptCTR(pt, key, iv)
		if err != nil {
			t.Fatalf("encrypt %d bytes: %v", n, err)
		}
		if len(ct) != n {
			t.Fatalf("ciphertext length %d, want %d (no tag)", len(ct), n)
		}
		out, err := DecryptCTR(ct, key, iv)
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if !bytes.Equal(pt, out) {
			t.Fatalf("plaintext mismatch at %d bytes", n)
		}
	}
}

func TestCTRRandomAccess(t *testing.T) {
	key := randBytes(t, KeySize)
	iv, err := NewCTRIV()
	if err != nil {
		t.Fatalf("iv: %v", err)
	}
	pt := randBytes(t, 1024)
	ct, err := EncryptCTR(pt, key, iv)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	// Any block-aligned window decrypts independently of the rest of the
	// stream. This is the property range-request media streaming relies on.
	for _, off := range []int64{0, 16, 256, 1008} {
		seekIV, err := CTRIVForOffset(iv, off)
		if err != nil {
			t.Fatalf("offset iv at %d: %v", off, err)
		}
		out, err := DecryptCTR(ct[off:off+16], key, seekIV)
		if err != nil {
			t.Fatalf("decrypt window at %d: %v", off, err)
		}
		if !bytes.Equal(pt[off:off+16], out) {
			t.Fatalf("window mismatch at offset %d", off)
		}
	}
}

func TestCTRIVForOffsetRejectsUnaligned(t *testing.T) {
	iv, err := NewCTRIV()
	if err != nil {
		t.Fatalf("iv: %v", err)
	}
	for _, off := range []int64{-16, 1, 15, 17} {
		if _, err := CTRIVForOffset(iv, off); err == nil {
			t.Fatalf("offset %d accepted", off)
		}
	}
}

func TestCTRIVLayout(t *testing.T) {
	iv, err := NewCTRIV()
	if err != nil {
		t.Fatalf("iv: %v", err)
	}
	if len(iv) != CTRIVSize {
		t.Fatalf("iv length %d", len(iv))
	}
	// Counter half starts at zero.
	if !bytes.Equal(iv[8:], make([]byte, 8)) {
		t.Fatal("counter half not zero")
	}
	iv2, err := NewCTRIV()
	if err != nil {
		t.Fatalf("iv2: %v", err)
	}
	if bytes.Equal(iv[:8], iv2[:8]) {
		t.Fatal("expected distinct per-file nonces")
	}
}
