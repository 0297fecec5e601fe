package kvstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seqs")

	w, err := Create(path, 2)
	require.NoError(t, err)

	w.WriteStart(0, 0)
	w.WriteAdd(0, []byte("ACDEFG"))
	w.WriteEnd(0, 100, true)

	w.WriteStart(1, 1)
	w.WriteAdd(1, []byte("HIKLMN"))
	w.WriteEnd(1, 200, true)

	require.NoError(t, w.Flush(2))
	require.NoError(t, w.Close())

	r, err := Open(path, Random, Amino)
	require.NoError(t, err)
	defer r.Close() // nolint: errcheck

	require.Equal(t, 2, r.Size())

	id, ok := r.GetID(100)
	require.True(t, ok)
	require.Equal(t, "ACDEFG\x00", string(r.GetData(id)))

	id2, ok := r.GetID(200)
	require.True(t, ok)
	require.Equal(t, "HIKLMN\x00", string(r.GetData(id2)))

	_, ok = r.GetID(999)
	require.False(t, ok)
}

func TestFlushOrdersBySequenceNotCompletionTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seqs")

	w, err := Create(path, 2)
	require.NoError(t, err)

	// Finish thread 1's block (sequence 1) before thread 0's (sequence
	// 0), to prove Flush commits by sequence number, not arrival order.
	w.WriteStart(1, 1)
	w.WriteAdd(1, []byte("SECOND"))
	w.WriteEnd(1, 20, false)

	w.WriteStart(0, 0)
	w.WriteAdd(0, []byte("FIRST"))
	w.WriteEnd(0, 10, false)

	require.NoError(t, w.Flush(2))
	require.NoError(t, w.Close())

	r, err := Open(path, Linear, Amino)
	require.NoError(t, err)
	defer r.Close() // nolint: errcheck

	require.Equal(t, uint32(10), r.GetDbKey(0))
	require.Equal(t, "FIRST", string(r.GetData(0)))
	require.Equal(t, uint32(20), r.GetDbKey(1))
	require.Equal(t, "SECOND", string(r.GetData(1)))
}

func TestRemapDataIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seqs")

	w, err := Create(path, 1)
	require.NoError(t, err)
	w.WriteStart(0, 0)
	w.WriteAdd(0, []byte("X"))
	w.WriteEnd(0, 1, false)
	require.NoError(t, w.Flush(1))
	require.NoError(t, w.Close())

	r, err := Open(path, Random, Amino)
	require.NoError(t, err)
	defer r.Close() // nolint: errcheck

	require.NoError(t, r.RemapData())
	require.Equal(t, "X", string(r.GetData(0)))
}
