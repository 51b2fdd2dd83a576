package workdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespacedPaths(t *testing.T) {
	root := t.TempDir()
	a, err := New(root)
	require.NoError(t, err)
	b, err := New(root)
	require.NoError(t, err)

	assert.NotEqual(t, a.AudioPath(0), b.AudioPath(0))
	assert.Equal(t, filepath.Join(root, a.ID, "message_1.wav"), a.WavePath(1))
	assert.Equal(t, filepath.Join(root, a.ID, "message_2.json"), a.CuesPath(2))

	_, err = a.WriteAudio(0, []byte("first"))
	require.NoError(t, err)
	_, err = b.WriteAudio(0, []byte("second"))
	require.NoError(t, err)

	got, err := a.ReadAudio(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestNewPicksCanonicalUUID(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "audios")
	w, err := New(root)
	require.NoError(t, err)

	parsed, err := uuid.Parse(w.ID)
	require.NoError(t, err)
	assert.Equal(t, parsed.String(), w.ID)
	assert.Equal(t, filepath.Join(root, w.ID), w.Dir)
}

func TestCreateNeverReusesDirectory(t *testing.T) {
	root := t.TempDir()
	id := uuid.NewString()
	first, err := create(root, id)
	require.NoError(t, err)
	_, err = first.WriteAudio(0, []byte("first"))
	require.NoError(t, err)

	_, err = create(root, id)
	require.ErrorIs(t, err, os.ErrExist)

	got, err := first.ReadAudio(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestWriteJSONAndRemove(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	p, err := w.WriteJSON("reply.json", map[string]int{"messages": 2})
	require.NoError(t, err)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"messages":2}`, string(b))

	require.NoError(t, w.Remove())
	_, err = os.Stat(w.Dir)
	assert.True(t, os.IsNotExist(err))
}
