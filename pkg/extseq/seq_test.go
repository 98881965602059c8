package extseq_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"mapconsolidate/pkg/extseq"
)

func TestFromSliceAndCollectRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := extseq.FromSlice(dir, false, []uint64{3, 1, 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, s.Len())

	got, err := extseq.Collect(s)
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 1, 2}, got)
}

func TestCursorExhaustion(t *testing.T) {
	dir := t.TempDir()
	s, err := extseq.FromSlice(dir, false, []int{1})
	require.NoError(t, err)

	cur, err := s.Cursor()
	require.NoError(t, err)
	defer cur.Close()

	_, ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = cur.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCompressedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	items := []string{"alpha", "beta", "gamma"}
	s, err := extseq.FromSlice(dir, true, items)
	require.NoError(t, err)

	got, err := extseq.Collect(s)
	require.NoError(t, err)
	require.Equal(t, items, got)
}

func TestRemoveDeletesBackingFile(t *testing.T) {
	dir := t.TempDir()
	s, err := extseq.FromSlice(dir, false, []int{1, 2, 3})
	require.NoError(t, err)
	path := s.Path()
	require.NoError(t, s.Remove())

	_, err = extseq.Collect(s)
	require.Error(t, err, "cursor over a removed backing file %s must fail", path)
}

func TestAbortRemovesTempFile(t *testing.T) {
	dir := t.TempDir()
	w, err := extseq.NewWriter[int](dir, false)
	require.NoError(t, err)
	require.NoError(t, w.Append(1))
	w.Abort()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
