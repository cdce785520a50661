package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FormatVersion is written into new vault files. Readers accept any file
// whose known fields parse; unknown fields round-trip on rewrite for
// forward compatibility.
const FormatVersion = 1

const (
	storeName = "vault.json"
	lockName  = "vault.lock"
)

// storeFile is the on-disk shape of the vault. Unknown top-level and
// per-entry JSON fields are preserved in extra maps and written back.
type storeFile struct {
	Version   int           `json:"version"`
	PublicKey string        `json:"public_key"`
	Entries   []entryRecord `json:"entries"`

	extra map[string]json.RawMessage
}

type entryRecord struct {
	ID           string `json:"id"`
	Label        string `json:"label,omitempty"`
	Ciphertext   string `json:"ciphertext"`
	Nonce        string `json:"nonce"`
	EphemeralPub string `json:"ephemeral_pub"`
	CreatedAt    string `json:"created_at"`
	SourcePath   string `json:"source_path,omitempty"`
	SourceLine   int    `json:"source_line,omitempty"`

	extra map[string]json.RawMessage
}

var storeKnownKeys = []string{"version", "public_key", "entries"}
var entryKnownKeys = []string{"id", "label", "ciphertext", "nonce", "ephemeral_pub", "created_at", "source_path", "source_line"}

func (s *storeFile) UnmarshalJSON(data []byte) error {
	type alias storeFile
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = storeFile(a)
	s.extra = collectExtra(data, storeKnownKeys)
	return nil
}

func (s storeFile) MarshalJSON() ([]byte, error) {
	type alias storeFile
	return mergeExtra(alias(s), s.extra)
}

func (e *entryRecord) UnmarshalJSON(data []byte) error {
	type alias entryRecord
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = entryRecord(a)
	e.extra = collectExtra(data, entryKnownKeys)
	return nil
}

func (e entryRecord) MarshalJSON() ([]byte, error) {
	type alias entryRecord
	return mergeExtra(alias(e), e.extra)
}

func collectExtra(data []byte, known []string) map[string]json.RawMessage {
	all := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil
	}
	return all
}

func mergeExtra(known any, extra map[string]json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return b, nil
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func (v *Vault) storePath() string { return filepath.Join(v.dir, storeName) }
func (v *Vault) lockPath() string  { return filepath.Join(v.dir, lockName) }

func (v *Vault) loadStore() (storeFile, error) {
	var s storeFile
	b, err := os.ReadFile(v.storePath())
	if err != nil {
		if os.IsNotExist(err) {
			return s, ErrNotInitialized
		}
		return s, fmt.Errorf("read vault: %w", err)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parse vault: %w", err)
	}
	return s, nil
}

// saveStore writes temp-then-rename so a crash never leaves a truncated
// vault file.
func (v *Vault) saveStore(s storeFile) error {
	if err := os.MkdirAll(v.dir, 0700); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode vault: %w", err)
	}
	tmp, err := os.CreateTemp(v.dir, storeName+".tmp-*")
	if err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write vault: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write vault: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write vault: %w", err)
	}
	if err := os.Rename(tmpName, v.storePath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write vault: %w", err)
	}
	return nil
}

// acquireLock takes the exclusive vault lock for the duration of one
// operation. Concurrent writers are not supported; a held lock surfaces
// ErrLocked rather than blocking.
func (v *Vault) acquireLock() (func(), error) {
	if err := os.MkdirAll(v.dir, 0700); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	f, err := os.OpenFile(v.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("acquire vault lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(v.lockPath()) }, nil
}
