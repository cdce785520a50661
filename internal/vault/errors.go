package vault

import "errors"

var (
	// ErrAlreadyInitialized is returned by Init when vault state exists.
	ErrAlreadyInitialized = errors.New("vault already initialized")

	// ErrNotInitialized is returned by operations that need an existing
	// vault (seal, unseal, rotate, list).
	ErrNotInitialized = errors.New("vault not initialized")

	// ErrDecryptionFailed means the private key does not match or the
	// ciphertext was tampered with. The vault fails closed: corrupted
	// plaintext is never returned.
	ErrDecryptionFailed = errors.New("decryption failed: wrong key or corrupted ciphertext")

	// ErrNotFound is returned for unknown entry IDs.
	ErrNotFound = errors.New("vault entry not found")

	// ErrRotationAborted means a re-seal failed mid-rotation; the previous
	// key pair remains authoritative and rotation can be retried.
	ErrRotationAborted = errors.New("rotation aborted: previous key pair remains authoritative")

	// ErrLocked means another vault operation holds the exclusive lock.
	ErrLocked = errors.New("vault is locked by another operation")
)
