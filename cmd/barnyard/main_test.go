package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type testEnv struct {
	dir      string
	keyFile  string
	identity string
	dataDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		dir:      dir,
		keyFile:  filepath.Join(dir, "encryption_key.bin"),
		identity: filepath.Join(dir, "user_id.txt"),
		dataDir:  filepath.Join(dir, "secure_data"),
	}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := append([]string{"barnyard",
		"--key-file", e.keyFile,
		"--identity-file", e.identity,
		"--data-dir", e.dataDir,
	}, args...)
	err := app.Run(full)
	return out.String(), err
}

func TestCLI_StoreLoadList(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "store", "--data", "hello", "--data", "world")
	require.NoError(t, err)
	assert.Contains(t, out, "my_secret_document.txt")

	_, err = os.Stat(env.keyFile)
	require.NoError(t, err, "Master key should be created on first use")

	out, err = env.run(t, "load")
	require.NoError(t, err)
	assert.Equal(t, "Decrypted retrieved data: \"hello world\"\n", out)

	_, err = env.run(t, "store", "--name", "other.txt", "--data", "x")
	require.NoError(t, err)

	out, err = env.run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "my_secret_document.txt\nother.txt\n", out)
}

func TestCLI_LoadWithAnotherIdentityIsDenied(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "store", "--data", "hello")
	require.NoError(t, err)

	require.NoError(t, os.Remove(env.identity))

	_, err = env.run(t, "load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Access denied.")
}

func TestCLI_LoadWithGrant(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "store", "--data", "hello")
	require.NoError(t, err)
	require.NoError(t, os.Remove(env.identity))

	// create the new identity first so it can be named in a grant
	_, err = env.run(t, "list")
	require.NoError(t, err)
	identity, err := os.ReadFile(env.identity)
	require.NoError(t, err)

	grant := strings.TrimSpace(string(identity)) + "=" + filepath.Join(env.dataDir, "my_secret_document.txt")
	out, err := env.run(t, "--grant", grant, "load")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestCLI_SplitRecover(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "store", "--data", "survives key loss")
	require.NoError(t, err)

	original, err := os.ReadFile(env.keyFile)
	require.NoError(t, err)

	sharesDir := filepath.Join(env.dir, "shares")
	out, err := env.run(t, "split", "--out-dir", sharesDir)
	require.NoError(t, err)

	files := strings.Fields(out)
	require.Len(t, files, 5, "Default scheme produces five shares")

	_, err = env.run(t, "recover", "--share", files[0], "--share", files[1], "--share", files[2])
	require.Error(t, err, "Recover must not overwrite an existing key without --force")

	require.NoError(t, os.Remove(env.keyFile))

	_, err = env.run(t, "recover", "--share", files[0], "--share", files[1])
	require.Error(t, err, "Two shares are below the threshold")

	_, err = env.run(t, "recover", "--share", files[1], "--share", files[3], "--share", files[4])
	require.NoError(t, err)

	recovered, err := os.ReadFile(env.keyFile)
	require.NoError(t, err)
	assert.Equal(t, original, recovered)

	out, err = env.run(t, "load")
	require.NoError(t, err)
	assert.Contains(t, out, "survives key loss")
}
