package crypto

import (
	"bytes"
	"testing"
)

func TestSecretWipeZeroes(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	s := NewSecret(buf)
	s.Wipe()
	if !bytes.Equal(buf, make([]byte, 4)) {
		t.Fatal("backing buffer not zeroed")
	}
}

func TestSecretPanicsAfterWipe(t *testing.T) {
	s := NewSecret([]byte("key material"))
	s.Wipe()
	s.Wipe() // idempotent
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on post-wipe read")
		}
	}()
	_ = s.Bytes()
}

func TestSecretCopyZeroesSource(t *testing.T) {
	src := []byte{9, 9, 9, 9}
	s := NewSecretCopy(src)
	defer s.Wipe()
	if !bytes.Equal(src, make([]byte, 4)) {
		t.Fatal("source not zeroed")
	}
	if !bytes.Equal(s.Bytes(), []byte{9, 9, 9, 9}) {
		t.Fatal("copy does not hold original value")
	}
}
