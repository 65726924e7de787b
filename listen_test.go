package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupID(t *testing.T) {
	t.Parallel()

	fail := func(string) (string, error) { return "", errors.New("no such name") }
	found := func(string) (string, error) { return "1001", nil }

	id, err := lookupID("", fail)
	require.NoError(t, err)
	assert.Equal(t, -1, id)

	id, err = lookupID("42", fail)
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	id, err = lookupID("galaxy", found)
	require.NoError(t, err)
	assert.Equal(t, 1001, id)

	_, err = lookupID("nobody-here", fail)
	assert.Error(t, err)
}

func TestPrepareSocketMode(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "console.sock")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	require.NoError(t, prepareSocket(path, "", "", 0o660))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o660), info.Mode().Perm())

	err = prepareSocket(filepath.Join(t.TempDir(), "missing.sock"), "", "", 0o660)
	assert.ErrorIs(t, err, errChmodSocket)
}
