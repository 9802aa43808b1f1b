package cryptoutils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/ruteri/barnyard/interfaces"
)

// GenerateMasterKey draws a new master key from crypto/rand.
func GenerateMasterKey() (interfaces.MasterKey, error) {
	var key interfaces.MasterKey
	if _, err := rand.Read(key[:]); err != nil {
		return interfaces.MasterKey{}, fmt.Errorf("failed to generate master key: %w", err)
	}
	return key, nil
}

// LoadMasterKey reads a key file holding exactly 32 raw bytes.
func LoadMasterKey(path string) (interfaces.MasterKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return interfaces.MasterKey{}, fmt.Errorf("%w: read key file: %w", interfaces.ErrPersistence, err)
	}
	defer Wipe(data)

	key, err := interfaces.NewMasterKey(data)
	if err != nil {
		return interfaces.MasterKey{}, fmt.Errorf("key file %s: %w", path, err)
	}
	return key, nil
}

// WriteMasterKey writes key to path with owner-only permissions.
// An existing file is never overwritten.
func WriteMasterKey(path string, key interfaces.MasterKey) error {
	return writeNewFile(path, key[:])
}

// LoadOrCreateMasterKey returns the key stored at path, generating and
// writing a new one when the file does not exist. The boolean reports
// whether a key was created.
func LoadOrCreateMasterKey(path string) (interfaces.MasterKey, bool, error) {
	key, err := LoadMasterKey(path)
	if err == nil {
		return key, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return interfaces.MasterKey{}, false, err
	}

	key, err = GenerateMasterKey()
	if err != nil {
		return interfaces.MasterKey{}, false, err
	}
	if err := WriteMasterKey(path, key); err != nil {
		return interfaces.MasterKey{}, false, err
	}
	return key, true, nil
}

// LoadOrCreateIdentity returns the UUID identity stored at path. A missing or
// unparsable file is replaced with a freshly generated identity.
func LoadOrCreateIdentity(path string) (interfaces.Identity, bool, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if id, perr := uuid.Parse(strings.TrimSpace(string(data))); perr == nil {
			return interfaces.Identity(id.String()), false, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("%w: read identity file: %w", interfaces.ErrPersistence, err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", false, fmt.Errorf("failed to generate identity: %w", err)
	}
	if err := os.WriteFile(path, []byte(id.String()), 0600); err != nil {
		return "", false, fmt.Errorf("%w: write identity file: %w", interfaces.ErrPersistence, err)
	}
	return interfaces.Identity(id.String()), true, nil
}

func writeNewFile(path string, data []byte) error {
	return writeExclusive(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// writeExclusive creates path, failing if it exists, and fills it with
// write. On any failure the file is removed so a partial key never stays
// behind to be loaded later.
func writeExclusive(path string, write func(w io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", interfaces.ErrPersistence, path, err)
	}

	err = write(f)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("%w: write %s: %w", interfaces.ErrPersistence, path, err)
	}
	return nil
}
