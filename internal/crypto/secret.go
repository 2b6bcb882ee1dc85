package crypto

// Secret is an owned secret buffer. It takes ownership of the bytes passed
// to NewSecret, pins them with mlock where the platform allows, and zeroes
// them on Wipe. Reading after Wipe panics instead of silently returning
// zeros, so a use-after-wipe bug fails loudly in tests rather than signing
// with a zeroed key in production.
//
// Secrets must not be copied; pass the pointer.
type Secret struct {
	buf   []byte
	wiped bool
}

// NewSecret takes ownership of b. The caller must not retain or reuse b.
func NewSecret(b []byte) *Secret {
	_ = lockMemory(b)
	return &Secret{buf: b}
}

// NewSecretCopy copies b into a new Secret and zeroes the original.
func NewSecretCopy(b []byte) *Secret {
	cp := make([]byte, len(b))
	copy(cp, b)
	Zero(b)
	return NewSecret(cp)
}

// Bytes exposes the backing buffer for the duration of one operation.
// Callers must not retain the slice past the Secret's lifetime.
func (s *Secret) Bytes() []byte {
	if s.wiped {
		panic("crypto: use of wiped secret")
	}
	return s.buf
}

func (s *Secret) Len() int { return len(s.buf) }

// Wipe zeroes and unpins the buffer. Safe to call more than once.
func (s *Secret) Wipe() {
	if s.wiped {
		return
	}
	Zero(s.buf)
	_ = unlockMemory(s.buf)
	s.buf = nil
	s.wiped = true
}
