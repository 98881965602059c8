package extsort_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"mapconsolidate/pkg/extseq"
	"mapconsolidate/pkg/extsort"
)

func lessUint64(a, b uint64) bool { return a < b }

func TestSortSingleRun(t *testing.T) {
	dir := t.TempDir()
	in, err := extseq.FromSlice(dir, false, []uint64{5, 3, 4, 1, 2})
	require.NoError(t, err)

	s := extsort.New[uint64](extsort.Config{MemoryBudget: 1 << 20, RecordSize: 8, TempDir: dir})
	out, err := s.Sort(in, lessUint64)
	require.NoError(t, err)
	defer out.Remove()

	got, err := extseq.Collect(out)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, got)
}

// TestSortManyRuns forces buildRuns to flush several run files (a tiny
// memory budget caps each run at a handful of records) to exercise the
// k-way merge phase, not just the single-run shortcut.
func TestSortManyRuns(t *testing.T) {
	dir := t.TempDir()
	r := rand.New(rand.NewSource(1))
	items := make([]uint64, 500)
	for i := range items {
		items[i] = uint64(r.Intn(10_000))
	}
	in, err := extseq.FromSlice(dir, false, items)
	require.NoError(t, err)

	s := extsort.New[uint64](extsort.Config{MemoryBudget: 8 * 10, RecordSize: 8, TempDir: dir})
	out, err := s.Sort(in, lessUint64)
	require.NoError(t, err)
	defer out.Remove()

	require.EqualValues(t, len(items), out.Len())

	got, err := extseq.Collect(out)
	require.NoError(t, err)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1], got[i], "output not sorted at index %d", i)
	}
}

func TestSortEmptyInput(t *testing.T) {
	dir := t.TempDir()
	in, err := extseq.FromSlice(dir, false, []uint64{})
	require.NoError(t, err)

	s := extsort.New[uint64](extsort.Config{MemoryBudget: 1 << 20, RecordSize: 8, TempDir: dir})
	out, err := s.Sort(in, lessUint64)
	require.NoError(t, err)
	defer out.Remove()
	require.EqualValues(t, 0, out.Len())
}

func TestSortHonoursCompression(t *testing.T) {
	dir := t.TempDir()
	items := []uint64{9, 8, 7, 6, 5, 4, 3, 2, 1}
	in, err := extseq.FromSlice(dir, true, items)
	require.NoError(t, err)

	s := extsort.New[uint64](extsort.Config{MemoryBudget: 8 * 3, RecordSize: 8, TempDir: dir, Compress: true})
	out, err := s.Sort(in, lessUint64)
	require.NoError(t, err)
	defer out.Remove()

	got, err := extseq.Collect(out)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}
