package vault

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/illarion/cipherbox/internal/crypto"
	"github.com/illarion/cipherbox/internal/envelope"
	"github.com/illarion/cipherbox/internal/storage"
)

const testIters = 1000

var testPassword = []byte("correct horse battery staple")

func newTestVault(t *testing.T, opts ...Option) (*Vault, string) {
	t.Helper()
	dir := t.TempDir()
	v, err := New(dir, append([]Option{WithRemixIterations(10)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	require.NoError(t, v.Init(testPassword, "", testIters))
	return v, dir
}

func TestInit(t *testing.T) {
	v, dir := newTestVault(t)

	_, err := os.Stat(filepath.Join(dir, VaultFile))
	require.NoError(t, err)

	assert.ErrorIs(t, v.Init(testPassword, "", testIters), ErrAlreadyExists)
	assert.NoError(t, v.VerifyPassword(testPassword))
	assert.ErrorIs(t, v.VerifyPassword([]byte("wrong")), ErrWrongPassword)
	assert.ErrorIs(t, v.VerifyPassword(nil), ErrWrongPassword)
}

func TestInit_RejectsCiphers(t *testing.T) {
	v, err := New(t.TempDir())
	require.NoError(t, err)
	defer v.Close()

	assert.ErrorIs(t, v.Init(testPassword, "aes-128-cbc", testIters), crypto.ErrUnsupportedKeySizeForRemix)
	assert.ErrorIs(t, v.Init(testPassword, "rot13", testIters), crypto.ErrUnsupportedCipher)

	_, err = os.Stat(v.Path())
	assert.True(t, os.IsNotExist(err), "rejected init must not create the vault file")
}

func TestInit_RejectsOversizedIterations(t *testing.T) {
	limit := int64(math.MaxUint32)
	tooMany := int(limit + 1)

	v, err := New(t.TempDir())
	require.NoError(t, err)
	defer v.Close()
	assert.ErrorIs(t, v.Init(testPassword, "", tooMany), ErrInvalidIterations)

	v2, err := New(t.TempDir(), WithRemixIterations(tooMany))
	require.NoError(t, err)
	defer v2.Close()
	assert.ErrorIs(t, v2.Init(testPassword, "", testIters), ErrInvalidIterations)

	for _, p := range []string{v.Path(), v2.Path()} {
		_, err = os.Stat(p)
		assert.True(t, os.IsNotExist(err), "rejected init must not create the vault file")
	}
}

func TestNotInitialized(t *testing.T) {
	v, err := New(t.TempDir())
	require.NoError(t, err)
	defer v.Close()

	ctx := context.Background()
	assert.ErrorIs(t, v.Put(ctx, testPassword, "a", "b"), ErrNotInitialized)
	_, err = v.Get(ctx, testPassword, "a")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = v.List(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = v.Status(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, v.Compact(), ErrNotInitialized)
}

func TestPutGet_Types(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	values := map[string]any{
		"api/token": "s3cr3t",
		"port":      8443,
		"ratio":     0.75,
		"hosts":     envelope.List{"a.example", "b.example"},
		"db":        envelope.NewRecord("DSN").Set("user", "app").Set("port", int64(5432)),
		"binary":    []byte{0, 1, 2, 0xff},
	}

	for name, value := range values {
		require.NoError(t, v.Put(ctx, testPassword, name, value), name)
	}

	for name, value := range values {
		want, err := envelope.ValueOf(value)
		require.NoError(t, err)

		got, err := v.Get(ctx, testPassword, name)
		require.NoError(t, err, name)
		assert.True(t, want.Equal(got), "%s: got %s", name, envelope.Format(got))
	}

	_, err := v.Get(ctx, []byte("wrong"), "port")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = v.Get(ctx, testPassword, "missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestPut_Rejects(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	for _, name := range []string{"", "tab\there", strings.Repeat("x", MaxNameLength+1), "\xff"} {
		assert.ErrorIs(t, v.Put(ctx, testPassword, name, "x"), ErrInvalidName, "%q", name)
	}

	assert.ErrorIs(t, v.Put(ctx, testPassword, "bool", true), envelope.ErrUnsupportedType)
	assert.ErrorIs(t, v.Put(ctx, []byte("wrong"), "ok", "x"), ErrWrongPassword)

	entries, err := v.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPut_DistinctCiphertextPerName(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, testPassword, "one", "same"))
	require.NoError(t, v.Put(ctx, testPassword, "two", "same"))

	db, err := storage.Open(v.Path())
	require.NoError(t, err)
	defer db.Close()

	a, err := db.GetSecret("one")
	require.NoError(t, err)
	b, err := db.GetSecret("two")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// Swapping ciphertexts must not decrypt under the other name's key.
	require.NoError(t, db.PutSecret(storage.IndexEntry{Name: "one"}, b))
	db.Close()

	_, err = v.Get(ctx, testPassword, "one")
	assert.Error(t, err)
}

func TestListAndStatus(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, testPassword, "b", envelope.Map{"k": "v"}))
	require.NoError(t, v.Put(ctx, testPassword, "a", "plain"))

	entries, err := v.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "string", entries[0].Kind)
	assert.Equal(t, "composite", entries[1].Kind)
	assert.Equal(t, "map", entries[1].Shape)

	st, err := v.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, crypto.DefaultCipher, st.Cipher)
	assert.Equal(t, uint32(testIters), st.KDFIterations)
	assert.Equal(t, uint32(10), st.RemixIterations)
	assert.Len(t, st.Secrets, 2)
	assert.Equal(t, entries[0].Size+entries[1].Size, st.TotalSize)
	assert.False(t, st.Created.IsZero())
}

func TestRemove(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, testPassword, "a", "1"))
	require.NoError(t, v.Put(ctx, testPassword, "b", "2"))

	assert.ErrorIs(t, v.Remove(ctx, testPassword, "a", "missing"), ErrSecretNotFound)
	assert.ErrorIs(t, v.Remove(ctx, []byte("wrong"), "a"), ErrWrongPassword)

	require.NoError(t, v.Remove(ctx, testPassword, "a"))
	_, err := v.Get(ctx, testPassword, "a")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = v.Get(ctx, testPassword, "b")
	assert.NoError(t, err)

	require.NoError(t, v.Compact())
	_, err = v.Get(ctx, testPassword, "b")
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, testPassword, "token", "abc"))
	require.NoError(t, v.Put(ctx, testPassword, "list", envelope.List{int64(1), "two"}))

	newPassword := []byte("new password")
	assert.ErrorIs(t, v.ChangePassword([]byte("wrong"), newPassword), ErrWrongPassword)
	assert.Error(t, v.ChangePassword(testPassword, nil))

	require.NoError(t, v.ChangePassword(testPassword, newPassword))

	assert.ErrorIs(t, v.VerifyPassword(testPassword), ErrWrongPassword)
	got, err := v.Get(ctx, newPassword, "token")
	require.NoError(t, err)
	s, _ := got.AsString()
	assert.Equal(t, "abc", s)

	got, err = v.Get(ctx, newPassword, "list")
	require.NoError(t, err)
	l, ok := got.AsList()
	require.True(t, ok)
	assert.Equal(t, envelope.List{int64(1), "two"}, l)

	st, err := v.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(testIters), st.KDFIterations)
}

func TestDiff(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, testPassword, "cfg", "line1\nline2\nline3\n"))

	d, err := v.Diff(ctx, testPassword, "cfg", "line1\nline2\nline3\n")
	require.NoError(t, err)
	assert.Empty(t, d)

	d, err = v.Diff(ctx, testPassword, "cfg", "line1\nchanged\nline3\n")
	require.NoError(t, err)
	assert.Contains(t, d, "--- vault/cfg")
	assert.Contains(t, d, "+++ candidate/cfg")
	assert.Contains(t, d, "-line2")
	assert.Contains(t, d, "+changed")

	d, err = v.Diff(ctx, testPassword, "cfg", 42)
	require.NoError(t, err)
	assert.Equal(t, "Secret cfg changed type: string -> int\n", d)

	_, err = v.Diff(ctx, testPassword, "missing", "x")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestDiff_Composite(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, testPassword, "m", envelope.Map{"a": int64(1), "b": int64(2)}))

	d, err := v.Diff(ctx, testPassword, "m", map[string]any{"a": 1, "b": 3})
	require.NoError(t, err)
	assert.Contains(t, d, `-  "b": 2,`)
	assert.Contains(t, d, `+  "b": 3,`)
}

func TestExportImport(t *testing.T) {
	v, dir := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, testPassword, "env", "KEY=value\n"))

	rel, err := v.Export(ctx, testPassword, "env", "out/.env")
	require.NoError(t, err)
	assert.Equal(t, "out/.env", rel)

	data, err := os.ReadFile(filepath.Join(dir, "out", ".env"))
	require.NoError(t, err)
	assert.Equal(t, "KEY=value\n", string(data))

	entries, err := v.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "out/.env", entries[0].ExportPath)

	// A later Put keeps the recorded export path.
	require.NoError(t, v.Put(ctx, testPassword, "env", "KEY=other\n"))
	entries, _ = v.List(ctx)
	assert.Equal(t, "out/.env", entries[0].ExportPath)

	st, err := v.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"out/.env"}, st.Exported)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("imported"), 0600))
	require.NoError(t, v.Import(ctx, testPassword, "imp", "in.txt"))
	got, err := v.Get(ctx, testPassword, "imp")
	require.NoError(t, err)
	s, _ := got.AsString()
	assert.Equal(t, "imported", s)
}

func TestExport_Rejects(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, testPassword, "s", "x"))

	_, err := v.Export(ctx, testPassword, "s", "../escape.txt")
	assert.Error(t, err)
	_, err = v.Export(ctx, testPassword, "s", VaultFile)
	assert.Error(t, err)
	_, err = v.Export(ctx, testPassword, "missing", "m.txt")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	assert.Error(t, v.Import(ctx, testPassword, "s", "/etc/passwd"))
}

func TestExport_Composite(t *testing.T) {
	v, dir := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, testPassword, "n", 7))
	_, err := v.Export(ctx, testPassword, "n", "n.txt")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "n.txt"))
	require.NoError(t, err)
	assert.Equal(t, "7\n", string(data))
}

func TestHMACAndPBKDF2(t *testing.T) {
	v, _ := newTestVault(t)

	a, err := v.HMAC(testPassword, "sha256", []byte("data"))
	require.NoError(t, err)
	b, err := v.HMAC(testPassword, "sha256", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	_, err = v.HMAC([]byte("wrong"), "sha256", []byte("data"))
	assert.ErrorIs(t, err, ErrWrongPassword)

	k, err := v.PBKDF2(testPassword, "sha512", []byte("data"), 10)
	require.NoError(t, err)
	assert.Len(t, k, 64)
}

func TestVaultID(t *testing.T) {
	v, _ := newTestVault(t)

	_, err := v.VaultID()
	assert.Error(t, err)

	id, err := v.GetOrCreateVaultID()
	require.NoError(t, err)
	again, err := v.VaultID()
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestCanceledContext(t *testing.T) {
	v, _ := newTestVault(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, v.Put(ctx, testPassword, "a", "b"), context.Canceled)
	_, err := v.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogging_NoSecretValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	v, _ := newTestVault(t, WithLogger(zap.New(core)))
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, testPassword, "api", "topsecretvalue"))
	_, err := v.Get(ctx, testPassword, "api")
	require.NoError(t, err)

	assert.NotZero(t, logs.FilterMessage("secret stored").Len())
	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			assert.NotContains(t, f.String, "topsecretvalue")
			assert.NotContains(t, f.String, string(testPassword))
		}
	}
}
