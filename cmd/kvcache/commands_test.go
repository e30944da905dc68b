package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fystack/kvcache/pkg/kvstore"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{"kvcache"}, args...))
	return out.String(), err
}

func TestCLI_SetGetAcrossInvocations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore")

	_, err := run(t, "--file", path, "set", "greeting", "hello")
	require.NoError(t, err)
	_, err = run(t, "--file", path, "set", "answer", "42")
	require.NoError(t, err)

	out, err := run(t, "--file", path, "get", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	out, err = run(t, "--file", path, "size")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = run(t, "--file", path, "keys")
	require.NoError(t, err)
	assert.Equal(t, "answer\ngreeting\n", out)

	store := kvstore.New[string, string](path)
	v, err := store.Get("answer")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestCLI_DeleteMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore")

	_, err := run(t, "--file", path, "delete", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, kvstore.ErrKeyNotFound))
}

func TestCLI_GetMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore")

	_, err := run(t, "--file", path, "get", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, kvstore.ErrKeyNotFound))
}

func TestCLI_NoFlushKeepsDiskUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore")

	_, err := run(t, "--file", path, "set", "--no-flush", "k", "v")
	require.NoError(t, err)

	out, err := run(t, "--file", path, "load")
	require.NoError(t, err)
	assert.Equal(t, "loaded=false entries=0\n", out)
}

func TestCLI_AutosyncAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore")

	_, err := run(t, "--file", path, "--autosync", "set", "k", "v")
	require.NoError(t, err)

	out, err := run(t, "--file", path, "load")
	require.NoError(t, err)
	assert.Equal(t, "loaded=true entries=1\n", out)

	_, err = run(t, "--file", path, "--autosync", "delete", "k")
	require.NoError(t, err)

	out, err = run(t, "--file", path, "size")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

func TestCLI_WrongArgCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore")

	_, err := run(t, "--file", path, "set", "only-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 argument(s)")
}

func TestCLI_InvalidPath(t *testing.T) {
	_, err := run(t, "--file", t.TempDir(), "size")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path")
}

func TestCLI_UnreadableFileIsNotOverwritten(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, path string)
	}{
		{
			name: "corrupt content",
			prepare: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte("definitely not a cbor map"), 0600))
			},
		},
		{
			name: "different value type",
			prepare: func(t *testing.T, path string) {
				ints := kvstore.New[string, int](path)
				require.NoError(t, ints.Set("a", 1))
				require.NoError(t, ints.Set("b", 2))
				require.NoError(t, ints.Set("c", 3))
				require.NoError(t, ints.Flush())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "datastore")
			tt.prepare(t, path)
			before, err := os.ReadFile(path)
			require.NoError(t, err)

			_, err = run(t, "--file", path, "get", "a")
			require.Error(t, err)
			assert.True(t, errors.Is(err, kvstore.ErrSerialization))
			assert.False(t, errors.Is(err, kvstore.ErrKeyNotFound))

			_, err = run(t, "--file", path, "set", "new", "v")
			require.Error(t, err)
			assert.True(t, errors.Is(err, kvstore.ErrSerialization))

			_, err = run(t, "--file", path, "delete", "a")
			require.Error(t, err)

			_, err = run(t, "--file", path, "flush")
			require.Error(t, err)

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestCLI_FlushRewritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore")

	_, err := run(t, "--file", path, "set", "k", "v")
	require.NoError(t, err)
	_, err = run(t, "--file", path, "flush")
	require.NoError(t, err)

	store := kvstore.New[string, string](path)
	assert.Equal(t, 1, store.Size())
}
