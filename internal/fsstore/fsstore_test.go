package fsstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WriteStreamCreatesIntermediateDirs(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	err := s.WriteStream(".git/objects/info/packs", strings.NewReader("pack-deadbeef.pack\n"))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, ".git", "objects", "info", "packs"))
	require.NoError(t, err)
	assert.Equal(t, "pack-deadbeef.pack\n", string(got))
}

func TestStore_ExistsShortCircuit(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	assert.False(t, s.Exists(".git/config"))
	require.NoError(t, s.WriteString(".git/config", "[core]\n"))
	assert.True(t, s.Exists(".git/config"))
}

func TestStore_ReadStringRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.WriteString(".git/HEAD", "ref: refs/heads/master\n"))
	got, err := s.ReadString(".git/HEAD")
	require.NoError(t, err)
	assert.Equal(t, "ref: refs/heads/master\n", got)
}
