// Package vault encrypts detected secrets under the project owner's key
// pair and persists only ciphertext. Sealing needs just the public key;
// unsealing requires the private key the owner keeps outside the tree.
//
// Entries are encrypted with NaCl box (X25519 + XSalsa20-Poly1305): an
// ephemeral key pair and a fresh random nonce per seal, authenticated so
// any ciphertext bit-flip fails decryption instead of yielding garbage.
package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/crypto/nacl/box"
)

// DirName is the project-relative directory holding vault state.
const DirName = ".enveil"

// idLen is the hex length of entry identifiers (64 bits of the content
// hash — enough to make collisions implausible at vault scale while
// keeping placeholders short).
const idLen = 16

// Entry is one sealed secret plus provenance metadata. Plaintext never
// appears here; it exists only transiently inside Seal and Unseal.
type Entry struct {
	ID           string
	Label        string
	Ciphertext   []byte
	Nonce        [24]byte
	EphemeralPub PublicKey
	CreatedAt    time.Time
	SourcePath   string
	SourceLine   int
}

// Vault manages the encrypted store under <root>/.enveil.
type Vault struct {
	dir string
}

// Open returns a handle on the vault for the given project root. No state
// is read until an operation runs.
func Open(root string) *Vault {
	return &Vault{dir: filepath.Join(root, DirName)}
}

// Dir returns the vault's storage directory.
func (v *Vault) Dir() string { return v.dir }

// Initialized reports whether vault state exists on disk.
func (v *Vault) Initialized() bool {
	_, err := v.loadStore()
	return err == nil
}

// EntryID derives the deterministic identifier for a plaintext. Sealing
// the same secret twice yields the same ID, making re-protection
// idempotent.
func EntryID(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])[:idLen]
}

// Init creates the vault: generates a fresh key pair, persists the public
// half and empty metadata, and hands the private key back to the caller
// for offline storage. The private key is not retained.
func (v *Vault) Init() (KeyPair, error) {
	release, err := v.acquireLock()
	if err != nil {
		return KeyPair{}, err
	}
	defer release()

	if _, err := v.loadStore(); err == nil {
		return KeyPair{}, ErrAlreadyInitialized
	}
	kp, err := GenerateKeyPair()
	if err != nil {
		return KeyPair{}, err
	}
	s := storeFile{
		Version:   FormatVersion,
		PublicKey: kp.Public.String(),
		Entries:   []entryRecord{},
	}
	if err := v.saveStore(s); err != nil {
		return KeyPair{}, err
	}
	return kp, nil
}

// Seal encrypts plaintext under the stored public key and appends the
// entry. Sealing the same plaintext again returns the existing entry
// without writing a duplicate.
func (v *Vault) Seal(plaintext []byte, label, sourcePath string, sourceLine int) (Entry, error) {
	release, err := v.acquireLock()
	if err != nil {
		return Entry{}, err
	}
	defer release()

	s, err := v.loadStore()
	if err != nil {
		return Entry{}, err
	}
	pub, err := ParsePublicKey(s.PublicKey)
	if err != nil {
		return Entry{}, err
	}

	id := EntryID(plaintext)
	for _, rec := range s.Entries {
		if rec.ID == id {
			return recordToEntry(rec)
		}
	}

	rec, err := sealRecord(plaintext, pub, id, label, sourcePath, sourceLine, time.Now().UTC())
	if err != nil {
		return Entry{}, err
	}
	s.Entries = append(s.Entries, rec)
	if err := v.saveStore(s); err != nil {
		return Entry{}, err
	}
	return recordToEntry(rec)
}

// Unseal decrypts the entry with the supplied private key. A wrong key or
// a tampered ciphertext yields ErrDecryptionFailed, never altered
// plaintext. The caller owns the returned buffer and should wipe it.
func (v *Vault) Unseal(id string, priv PrivateKey) ([]byte, error) {
	release, err := v.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := v.loadStore()
	if err != nil {
		return nil, err
	}
	return unsealFrom(s, id, priv)
}

// Rotate re-seals every entry under next's public key: each plaintext is
// recovered with oldPriv, re-encrypted, and the whole store replaced
// atomically. Any single failure aborts with ErrRotationAborted and the
// file on disk is untouched.
func (v *Vault) Rotate(next KeyPair, oldPriv PrivateKey) error {
	release, err := v.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	s, err := v.loadStore()
	if err != nil {
		return err
	}

	fresh := storeFile{
		Version:   FormatVersion,
		PublicKey: next.Public.String(),
		Entries:   make([]entryRecord, 0, len(s.Entries)),
		extra:     s.extra,
	}
	for _, rec := range s.Entries {
		plain, err := unsealFrom(s, rec.ID, oldPriv)
		if err != nil {
			return fmt.Errorf("%w: entry %s: %v", ErrRotationAborted, rec.ID, err)
		}
		created, _ := time.Parse(time.RFC3339, rec.CreatedAt)
		if created.IsZero() {
			created = time.Now().UTC()
		}
		resealed, err := sealRecord(plain, next.Public, rec.ID, rec.Label, rec.SourcePath, rec.SourceLine, created)
		zero(plain)
		if err != nil {
			return fmt.Errorf("%w: entry %s: %v", ErrRotationAborted, rec.ID, err)
		}
		resealed.extra = rec.extra
		fresh.Entries = append(fresh.Entries, resealed)
	}
	if err := v.saveStore(fresh); err != nil {
		return fmt.Errorf("%w: %v", ErrRotationAborted, err)
	}
	return nil
}

// List returns all entries in stored order.
func (v *Vault) List() ([]Entry, error) {
	s, err := v.loadStore()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(s.Entries))
	for _, rec := range s.Entries {
		e, err := recordToEntry(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Get returns a single entry by ID.
func (v *Vault) Get(id string) (Entry, error) {
	s, err := v.loadStore()
	if err != nil {
		return Entry{}, err
	}
	for _, rec := range s.Entries {
		if rec.ID == id {
			return recordToEntry(rec)
		}
	}
	return Entry{}, ErrNotFound
}

func sealRecord(plaintext []byte, pub PublicKey, id, label, sourcePath string, sourceLine int, created time.Time) (entryRecord, error) {
	ephPub, ephPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return entryRecord{}, fmt.Errorf("seal: %w", err)
	}
	defer func() {
		for i := range ephPriv {
			ephPriv[i] = 0
		}
	}()

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return entryRecord{}, fmt.Errorf("seal: %w", err)
	}
	recipient := [KeySize]byte(pub)
	ct := box.Seal(nil, plaintext, &nonce, &recipient, ephPriv)

	return entryRecord{
		ID:           id,
		Label:        label,
		Ciphertext:   base64.StdEncoding.EncodeToString(ct),
		Nonce:        base64.StdEncoding.EncodeToString(nonce[:]),
		EphemeralPub: base64.StdEncoding.EncodeToString(ephPub[:]),
		CreatedAt:    created.Format(time.RFC3339),
		SourcePath:   sourcePath,
		SourceLine:   sourceLine,
	}, nil
}

func unsealFrom(s storeFile, id string, priv PrivateKey) ([]byte, error) {
	for _, rec := range s.Entries {
		if rec.ID != id {
			continue
		}
		e, err := recordToEntry(rec)
		if err != nil {
			return nil, err
		}
		ephPub := [KeySize]byte(e.EphemeralPub)
		key := [KeySize]byte(priv)
		plain, ok := box.Open(nil, e.Ciphertext, &e.Nonce, &ephPub, &key)
		zeroArr(&key)
		if !ok {
			return nil, ErrDecryptionFailed
		}
		return plain, nil
	}
	return nil, ErrNotFound
}

func recordToEntry(rec entryRecord) (Entry, error) {
	ct, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s: bad ciphertext encoding: %w", rec.ID, err)
	}
	nonceB, err := base64.StdEncoding.DecodeString(rec.Nonce)
	if err != nil || len(nonceB) != 24 {
		return Entry{}, fmt.Errorf("entry %s: bad nonce", rec.ID)
	}
	ephB, err := base64.StdEncoding.DecodeString(rec.EphemeralPub)
	if err != nil || len(ephB) != KeySize {
		return Entry{}, fmt.Errorf("entry %s: bad ephemeral key", rec.ID)
	}
	e := Entry{
		ID:         rec.ID,
		Label:      rec.Label,
		Ciphertext: ct,
		SourcePath: rec.SourcePath,
		SourceLine: rec.SourceLine,
	}
	copy(e.Nonce[:], nonceB)
	copy(e.EphemeralPub[:], ephB)
	e.CreatedAt, _ = time.Parse(time.RFC3339, rec.CreatedAt)
	return e, nil
}

func zeroArr(k *[KeySize]byte) {
	for i := range k {
		k[i] = 0
	}
}
