// Package secure provides memory-safe handling of the Vaultwarden API
// credentials. It wraps memguard so the client secret is encrypted at rest
// in memory, protected from swapping via mlock, and wiped on destruction.
// If mlock is unavailable the library degrades to standard Go memory.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer holds a sensitive value inside a memguard enclave. The plaintext
// only exists while an Open()ed LockedBuffer is alive.
type Buffer struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// NewBuffer seals the given bytes into an enclave. The input slice is wiped
// by memguard as part of sealing and must not be reused by the caller.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// NewBufferFromString seals a string value, e.g. a secret read from the
// environment or the OS keyring.
func NewBufferFromString(value string) *Buffer {
	return NewBuffer([]byte(value))
}

// Open decrypts the enclave and returns a locked buffer. The caller must
// Destroy() the returned buffer as soon as the plaintext is no longer needed.
// After the Buffer itself has been destroyed, Open returns an empty buffer.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed || b.enclave == nil {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return b.enclave.Open()
}

// Reveal opens the enclave and hands the plaintext to fn. The locked buffer
// is destroyed before Reveal returns, so fn must not retain the string.
func (b *Buffer) Reveal(fn func(value string) error) error {
	locked, err := b.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()
	return fn(locked.String())
}

// Destroy marks the buffer as destroyed and prevents further use. Idempotent.
// For complete cleanup of all memguard data at application exit, call
// memguard.Purge() in a defer in main().
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}
