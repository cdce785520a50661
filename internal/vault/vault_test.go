package vault

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initVault(t *testing.T) (*Vault, KeyPair) {
	t.Helper()
	v := Open(t.TempDir())
	kp, err := v.Init()
	require.NoError(t, err)
	return v, kp
}

func TestInitTwiceFails(t *testing.T) {
	v, _ := initVault(t)
	_, err := v.Init()
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestSealRequiresInit(t *testing.T) {
	v := Open(t.TempDir())
	_, err := v.Seal([]byte("secret"), "LABEL", "", 0)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.False(t, v.Initialized())
}

func TestSealUnsealRoundTrip(t *testing.T) {
	v, kp := initVault(t)
	for _, plain := range [][]byte{
		[]byte("hunter2"),
		[]byte("wJalrXUtnFEMI/K7MDENG/bPxRfiCYKEYQWERTY0"),
		[]byte("multi\nline\nsecret"),
		{0x00, 0xff, 0x10},
	} {
		e, err := v.Seal(plain, "SECRET", "config.yml", 3)
		require.NoError(t, err)
		assert.NotEmpty(t, e.ID)
		assert.NotEqual(t, plain, e.Ciphertext)

		got, err := v.Unseal(e.ID, kp.Private)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestSealIdempotent(t *testing.T) {
	v, _ := initVault(t)
	e1, err := v.Seal([]byte("same-secret-value"), "A", "a.txt", 1)
	require.NoError(t, err)
	e2, err := v.Seal([]byte("same-secret-value"), "B", "b.txt", 9)
	require.NoError(t, err)

	assert.Equal(t, e1.ID, e2.ID)
	// The original record survives untouched.
	assert.Equal(t, "A", e2.Label)

	entries, err := v.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUnsealWrongKeyFailsClosed(t *testing.T) {
	v, _ := initVault(t)
	e, err := v.Seal([]byte("secret"), "S", "", 0)
	require.NoError(t, err)

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	_, err = v.Unseal(e.ID, other.Private)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestUnsealUnknownID(t *testing.T) {
	v, kp := initVault(t)
	_, err := v.Unseal("deadbeefdeadbeef", kp.Private)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTamperedCiphertextDetected(t *testing.T) {
	v, kp := initVault(t)
	e, err := v.Seal([]byte("tamper-me-please"), "S", "", 0)
	require.NoError(t, err)

	// Flip one bit of the stored ciphertext on disk.
	path := filepath.Join(v.Dir(), storeName)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var s storeFile
	require.NoError(t, json.Unmarshal(raw, &s))
	require.Len(t, s.Entries, 1)
	ct, err := base64.StdEncoding.DecodeString(s.Entries[0].Ciphertext)
	require.NoError(t, err)
	ct[len(ct)/2] ^= 0x01
	s.Entries[0].Ciphertext = base64.StdEncoding.EncodeToString(ct)
	buf, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, buf, 0600))

	_, err = v.Unseal(e.ID, kp.Private)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestRotateReencryptsAllEntries(t *testing.T) {
	v, old := initVault(t)
	e1, err := v.Seal([]byte("first secret"), "FIRST", "a.env", 1)
	require.NoError(t, err)
	e2, err := v.Seal([]byte("second secret"), "SECOND", "b.env", 2)
	require.NoError(t, err)

	next, err := GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, v.Rotate(next, old.Private))

	for id, want := range map[string]string{e1.ID: "first secret", e2.ID: "second secret"} {
		got, err := v.Unseal(id, next.Private)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
	// The retired key no longer opens anything.
	_, err = v.Unseal(e1.ID, old.Private)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestRotateWithWrongKeyAborts(t *testing.T) {
	v, _ := initVault(t)
	_, err := v.Seal([]byte("secret"), "S", "", 0)
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(v.Dir(), storeName))
	require.NoError(t, err)

	bogus, err := GenerateKeyPair()
	require.NoError(t, err)
	next, err := GenerateKeyPair()
	require.NoError(t, err)
	err = v.Rotate(next, bogus.Private)
	assert.ErrorIs(t, err, ErrRotationAborted)

	// All-or-nothing: the store is byte-identical to before the attempt.
	after, err := os.ReadFile(filepath.Join(v.Dir(), storeName))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLockExcludesConcurrentOperations(t *testing.T) {
	v, _ := initVault(t)
	release, err := v.acquireLock()
	require.NoError(t, err)
	defer release()

	_, err = v.Seal([]byte("secret"), "S", "", 0)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestUnknownFieldsSurviveRewrite(t *testing.T) {
	v, _ := initVault(t)
	_, err := v.Seal([]byte("secret"), "S", "", 0)
	require.NoError(t, err)

	// Simulate a newer tool having written extra fields.
	path := filepath.Join(v.Dir(), storeName)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	doc["future_field"] = json.RawMessage(`"keep-me"`)
	buf, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, buf, 0600))

	// Any rewrite must carry the unknown field along.
	_, err = v.Seal([]byte("another secret"), "T", "", 0)
	require.NoError(t, err)
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	var after map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &after))
	assert.JSONEq(t, `"keep-me"`, string(after["future_field"]))
}

func TestEntryIDDeterministic(t *testing.T) {
	assert.Equal(t, EntryID([]byte("x")), EntryID([]byte("x")))
	assert.NotEqual(t, EntryID([]byte("x")), EntryID([]byte("y")))
	assert.Len(t, EntryID([]byte("x")), 16)
}

func TestKeyEncodingRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	pub, err := ParsePublicKey(kp.Public.String())
	require.NoError(t, err)
	assert.Equal(t, kp.Public, pub)
	priv, err := ParsePrivateKey(kp.Private.Encode())
	require.NoError(t, err)
	assert.Equal(t, kp.Private, priv)

	_, err = ParsePublicKey("not base64!!")
	assert.Error(t, err)
	_, err = ParsePrivateKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestPrivateKeyZero(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	kp.Private.Zero()
	assert.Equal(t, PrivateKey{}, kp.Private)
}
