package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ruteri/barnyard/cryptoutils"
	"github.com/ruteri/barnyard/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testKey(t *testing.T) interfaces.MasterKey {
	key, err := cryptoutils.GenerateMasterKey()
	require.NoError(t, err, "Failed to generate test master key")
	return key
}

// MockSnapshotBackend implements interfaces.SnapshotBackend for testing
type MockSnapshotBackend struct {
	mock.Mock
}

func (m *MockSnapshotBackend) Fetch(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSnapshotBackend) Store(ctx context.Context, name string, data []byte) error {
	args := m.Called(ctx, name, data)
	return args.Error(0)
}

func (m *MockSnapshotBackend) Available(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockSnapshotBackend) Name() string {
	return "mock"
}

func (m *MockSnapshotBackend) LocationURI() string {
	return "mock:"
}

func TestSetGet(t *testing.T) {
	key := testKey(t)
	store := New(testLogger())

	nonce, ciphertext, err := cryptoutils.Encrypt(key[:], []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, store.Set("doc", nonce, ciphertext))

	record, ok := store.Get("doc")
	require.True(t, ok)
	plaintext, err := cryptoutils.DecryptRecord(key, record)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), plaintext)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestSetRejectsEmptyName(t *testing.T) {
	store := New(testLogger())
	assert.ErrorIs(t, store.Set("", []byte{1}, []byte{2}), ErrEmptyName)
	assert.Equal(t, 0, store.Len())
}

func TestGetReturnsCopy(t *testing.T) {
	store := New(testLogger())
	nonce := []byte{1, 2, 3}
	ciphertext := []byte{4, 5, 6}
	require.NoError(t, store.Set("doc", nonce, ciphertext))

	// Mutating caller-owned buffers must not reach the store
	nonce[0] = 0xFF
	record, ok := store.Get("doc")
	require.True(t, ok)
	assert.Equal(t, byte(1), record.Nonce[0])

	// Mutating a returned record must not reach the store either
	record.Ciphertext[0] = 0xFF
	again, _ := store.Get("doc")
	assert.Equal(t, byte(4), again.Ciphertext[0])
}

func TestSetReplaces(t *testing.T) {
	store := New(testLogger())
	require.NoError(t, store.Set("doc", []byte{1}, []byte{1}))
	require.NoError(t, store.Set("doc", []byte{2}, []byte{2}))

	record, ok := store.Get("doc")
	require.True(t, ok)
	assert.Equal(t, []byte{2}, record.Nonce)
	assert.Equal(t, 1, store.Len())
}

func TestNamesAndDelete(t *testing.T) {
	store := New(testLogger())
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, store.Set(name, []byte{0}, []byte{0}))
	}
	assert.Equal(t, []string{"a", "b", "c"}, store.Names())

	assert.True(t, store.Delete("b"))
	assert.False(t, store.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, store.Names())
}

func TestSaveLoadEncryptedRoundTrip(t *testing.T) {
	key := testKey(t)
	path := filepath.Join(t.TempDir(), "store.bin")

	store := New(testLogger())
	for i := 0; i < 10; i++ {
		record, err := cryptoutils.EncryptRecord(key, []byte(fmt.Sprintf("value-%d", i)))
		require.NoError(t, err)
		require.NoError(t, store.Set(fmt.Sprintf("name-%d", i), record.Nonce, record.Ciphertext))
	}
	require.NoError(t, store.SaveEncrypted(path, key))

	fresh := New(testLogger())
	require.NoError(t, fresh.LoadEncrypted(path, key))
	assert.Equal(t, store.snapshot(), fresh.snapshot())

	record, ok := fresh.Get("name-3")
	require.True(t, ok)
	plaintext, err := cryptoutils.DecryptRecord(key, record)
	require.NoError(t, err)
	assert.Equal(t, []byte("value-3"), plaintext)
}

func TestSaveEncryptedLayout(t *testing.T) {
	key := testKey(t)
	path := filepath.Join(t.TempDir(), "store.bin")

	store := New(testLogger())
	require.NoError(t, store.Set("doc", []byte{1, 2}, []byte{3, 4}))
	require.NoError(t, store.SaveEncrypted(path, key))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// nonce || ciphertext, no header
	plaintext, err := cryptoutils.Decrypt(key[:], raw[:interfaces.NonceSize], raw[interfaces.NonceSize:])
	require.NoError(t, err)
	assert.JSONEq(t, `{"secrets":{"doc":{"nonce":"AQI=","ciphertext":"AwQ="}}}`, string(plaintext))
}

func TestSaveEncryptedOverwrites(t *testing.T) {
	key := testKey(t)
	path := filepath.Join(t.TempDir(), "store.bin")

	store := New(testLogger())
	require.NoError(t, store.Set("old", []byte{1}, []byte{1}))
	require.NoError(t, store.SaveEncrypted(path, key))

	store.Delete("old")
	require.NoError(t, store.Set("new", []byte{2}, []byte{2}))
	require.NoError(t, store.SaveEncrypted(path, key))

	fresh := New(testLogger())
	require.NoError(t, fresh.LoadEncrypted(path, key))
	assert.Equal(t, []string{"new"}, fresh.Names())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "No temp files left behind")
}

func TestLoadEncryptedMissingFile(t *testing.T) {
	key := testKey(t)
	store := New(testLogger())
	require.NoError(t, store.Set("keep", []byte{1}, []byte{1}))

	err := store.LoadEncrypted(filepath.Join(t.TempDir(), "absent.bin"), key)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, store.Names(), "Missing file leaves the store unchanged")
}

func TestLoadEncryptedReplacesWholeMap(t *testing.T) {
	key := testKey(t)
	path := filepath.Join(t.TempDir(), "store.bin")

	saved := New(testLogger())
	require.NoError(t, saved.Set("a", []byte{1}, []byte{1}))
	require.NoError(t, saved.SaveEncrypted(path, key))

	store := New(testLogger())
	require.NoError(t, store.Set("b", []byte{2}, []byte{2}))
	require.NoError(t, store.LoadEncrypted(path, key))
	assert.Equal(t, []string{"a"}, store.Names(), "Load replaces rather than merges")
}

func TestLoadEncryptedFailures(t *testing.T) {
	key := testKey(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "store.bin")

	saved := New(testLogger())
	require.NoError(t, saved.Set("a", []byte{1}, []byte{1}))
	require.NoError(t, saved.SaveEncrypted(path, key))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	tampered := append([]byte(nil), raw...)
	tampered[len(tampered)-1] ^= 0x01
	tamperedPath := filepath.Join(dir, "tampered.bin")
	require.NoError(t, os.WriteFile(tamperedPath, tampered, 0600))

	truncatedPath := filepath.Join(dir, "truncated.bin")
	require.NoError(t, os.WriteFile(truncatedPath, raw[:10], 0600))

	tests := []struct {
		name string
		path string
		key  interfaces.MasterKey
	}{
		{name: "wrong key", path: path, key: testKey(t)},
		{name: "tampered file", path: tamperedPath, key: key},
		{name: "truncated file", path: truncatedPath, key: key},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New(testLogger())
			require.NoError(t, store.Set("keep", []byte{9}, []byte{9}))

			err := store.LoadEncrypted(tt.path, tt.key)
			require.ErrorIs(t, err, interfaces.ErrIntegrity)
			assert.Equal(t, []string{"keep"}, store.Names(), "Failed load must not touch the store")
		})
	}
}

func TestLoadEncryptedUnreadable(t *testing.T) {
	key := testKey(t)
	// A directory cannot be read as a snapshot file
	err := New(testLogger()).LoadEncrypted(t.TempDir(), key)
	assert.ErrorIs(t, err, interfaces.ErrPersistence)
}

func TestSaveEncryptedUnwritable(t *testing.T) {
	key := testKey(t)
	err := New(testLogger()).SaveEncrypted(filepath.Join(t.TempDir(), "no", "such", "dir", "store.bin"), key)
	assert.ErrorIs(t, err, interfaces.ErrPersistence)
}

func TestSaveToLoadFromBackend(t *testing.T) {
	key := testKey(t)
	ctx := context.Background()

	store := New(testLogger())
	require.NoError(t, store.Set("doc", []byte{1}, []byte{2}))

	var stored []byte
	backend := &MockSnapshotBackend{}
	backend.On("Store", mock.Anything, "secrets.snapshot", mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(2).([]byte)
	}).Return(nil).Once()
	require.NoError(t, store.SaveTo(ctx, backend, "secrets.snapshot", key))
	require.NotEmpty(t, stored)

	backend.On("Fetch", mock.Anything, "secrets.snapshot").Return(stored, nil).Once()
	fresh := New(testLogger())
	require.NoError(t, fresh.LoadFrom(ctx, backend, "secrets.snapshot", key))
	assert.Equal(t, store.snapshot(), fresh.snapshot())

	backend.AssertExpectations(t)
}

func TestLoadFromBackendErrors(t *testing.T) {
	key := testKey(t)
	ctx := context.Background()

	t.Run("snapshot not found", func(t *testing.T) {
		backend := &MockSnapshotBackend{}
		backend.On("Fetch", mock.Anything, "snap").Return(nil, interfaces.ErrSnapshotNotFound)

		store := New(testLogger())
		require.NoError(t, store.Set("keep", []byte{1}, []byte{1}))
		require.NoError(t, store.LoadFrom(ctx, backend, "snap", key))
		assert.Equal(t, []string{"keep"}, store.Names())
	})

	t.Run("backend failure", func(t *testing.T) {
		backend := &MockSnapshotBackend{}
		backend.On("Fetch", mock.Anything, "snap").Return(nil, errors.New("disk on fire"))

		err := New(testLogger()).LoadFrom(ctx, backend, "snap", key)
		assert.ErrorIs(t, err, interfaces.ErrPersistence)
	})

	t.Run("store failure", func(t *testing.T) {
		backend := &MockSnapshotBackend{}
		backend.On("Store", mock.Anything, "snap", mock.Anything).Return(interfaces.ErrBackendUnavailable)

		err := New(testLogger()).SaveTo(ctx, backend, "snap", key)
		assert.ErrorIs(t, err, interfaces.ErrPersistence)
		assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
	})

	t.Run("garbage snapshot", func(t *testing.T) {
		backend := &MockSnapshotBackend{}
		backend.On("Fetch", mock.Anything, "snap").Return([]byte("not a snapshot at all, definitely"), nil)

		err := New(testLogger()).LoadFrom(ctx, backend, "snap", key)
		assert.ErrorIs(t, err, interfaces.ErrIntegrity)
	})
}

func TestEncodeSnapshotCanonical(t *testing.T) {
	a := map[string]interfaces.SecretRecord{
		"z": {Nonce: []byte{1}, Ciphertext: []byte{2}},
		"a": {Nonce: []byte{3}, Ciphertext: []byte{4}},
	}
	b := map[string]interfaces.SecretRecord{
		"a": {Nonce: []byte{3}, Ciphertext: []byte{4}},
		"z": {Nonce: []byte{1}, Ciphertext: []byte{2}},
	}

	encA, err := encodeSnapshot(a)
	require.NoError(t, err)
	encB, err := encodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, encA, encB)

	decoded, err := decodeSnapshot(encA)
	require.NoError(t, err)
	assert.Equal(t, a, decoded)

	empty, err := encodeSnapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, `{"secrets":{}}`, string(empty))
}

func TestConcurrentAccess(t *testing.T) {
	key := testKey(t)
	path := filepath.Join(t.TempDir(), "store.bin")
	store := New(testLogger())

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				name := fmt.Sprintf("w%d-%d", w, i)
				record, err := cryptoutils.EncryptRecord(key, []byte(name))
				assert.NoError(t, err)
				assert.NoError(t, store.Set(name, record.Nonce, record.Ciphertext))

				got, ok := store.Get(name)
				if assert.True(t, ok) {
					plaintext, err := cryptoutils.DecryptRecord(key, got)
					assert.NoError(t, err)
					assert.Equal(t, name, string(plaintext))
				}
			}
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			assert.NoError(t, store.SaveEncrypted(path, key))
			_ = store.Names()
		}
	}()
	wg.Wait()

	assert.Equal(t, 8*50, store.Len())
}
