// Package extsort implements the ExternalSorter: an external k-way merge
// sort over extseq.Seq sequences, bounded by a caller-supplied memory
// budget. Input is partitioned into in-memory-sortable runs, each run is
// flushed to its own temp file, and the runs are then merged through a
// min-heap. Ordering among equal keys is not preserved (none of this
// pipeline's join keys need it).
package extsort

import (
	"container/heap"
	"fmt"
	"sort"

	"mapconsolidate/pkg/extseq"
)

// Config controls one Sorter's resource usage.
type Config struct {
	// MemoryBudget bounds the size, in bytes, of any single in-memory run.
	// Estimated as RecordSize * number of buffered records, so it is
	// honoured within the granularity of one record, not byte-exact.
	MemoryBudget int64
	// RecordSize is the caller's estimate of one record's in-memory
	// footprint; all of this pipeline's record types are fixed-layout,
	// so a simple unsafe.Sizeof-style constant is accurate enough.
	RecordSize int64
	// TempDir is where run files are created. Empty means os.TempDir().
	TempDir string
	// Compress bzip2-compresses run files in flight.
	Compress bool
}

func (c Config) runCapacity() int64 {
	if c.RecordSize <= 0 {
		return 1 << 20
	}
	budget := c.MemoryBudget / c.RecordSize
	if budget < 1 {
		budget = 1
	}
	return budget
}

// Sorter external-sorts sequences of T under a caller-supplied comparator.
type Sorter[T any] struct {
	Config Config
}

// New returns a Sorter configured with cfg.
func New[T any](cfg Config) Sorter[T] {
	return Sorter[T]{Config: cfg}
}

// Less reports whether a sorts before b. Supplied per call since the same
// record type is sorted by different keys across this pipeline's passes
// (e.g. edges are sorted by source, then later by target).
type Less[T any] func(a, b T) bool

// Sort consumes in (a single pass over its cursor) and returns a new Seq
// holding the same records in ascending order under less. in is left
// untouched; the caller is expected to drop its reference and use the
// returned Seq from that point on, since mutating records in place would
// otherwise let their sort key drift out from under a still-valid
// ordering.
//
// On any error, every run file created so far (including a partially
// written final merge) is removed before the error is returned.
func (s Sorter[T]) Sort(in *extseq.Seq[T], less Less[T]) (*extseq.Seq[T], error) {
	runs, err := s.buildRuns(in, less)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		empty, werr := extseq.NewWriter[T](s.Config.TempDir, s.Config.Compress)
		if werr != nil {
			return nil, werr
		}
		return empty.Close()
	}
	if len(runs) == 1 {
		return runs[0], nil
	}

	out, err := s.mergeRuns(runs, less)
	if err != nil {
		for _, r := range runs {
			r.Remove()
		}
		return nil, err
	}
	for _, r := range runs {
		if rerr := r.Remove(); rerr != nil {
			err = fmt.Errorf("remove run file: %w", rerr)
		}
	}
	return out, err
}

// buildRuns partitions in into ascending-sorted runs of at most
// runCapacity records each, flushing each run to its own temp file.
func (s Sorter[T]) buildRuns(in *extseq.Seq[T], less Less[T]) ([]*extseq.Seq[T], error) {
	runCap := s.Config.runCapacity()

	cur, err := in.Cursor()
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var runs []*extseq.Seq[T]
	buf := make([]T, 0, min64(runCap, 1<<16))

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		sortSlice(buf, less)
		w, err := extseq.NewWriter[T](s.Config.TempDir, s.Config.Compress)
		if err != nil {
			return err
		}
		for _, v := range buf {
			if err := w.Append(v); err != nil {
				w.Abort()
				return err
			}
		}
		run, err := w.Close()
		if err != nil {
			return err
		}
		runs = append(runs, run)
		buf = buf[:0]
		return nil
	}

	for {
		v, ok, err := cur.Next()
		if err != nil {
			for _, r := range runs {
				r.Remove()
			}
			return nil, err
		}
		if !ok {
			break
		}
		buf = append(buf, v)
		if int64(len(buf)) >= runCap {
			if err := flush(); err != nil {
				for _, r := range runs {
					r.Remove()
				}
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		for _, r := range runs {
			r.Remove()
		}
		return nil, err
	}
	return runs, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// heapItem is one run's current head record, tracked by the k-way merge.
type heapItem[T any] struct {
	val    T
	cursor *extseq.Cursor[T]
}

type runHeap[T any] struct {
	items []heapItem[T]
	less  Less[T]
}

func (h *runHeap[T]) Len() int            { return len(h.items) }
func (h *runHeap[T]) Less(i, j int) bool  { return h.less(h.items[i].val, h.items[j].val) }
func (h *runHeap[T]) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *runHeap[T]) Push(x interface{})  { h.items = append(h.items, x.(heapItem[T])) }
func (h *runHeap[T]) Pop() interface{} {
	n := len(h.items)
	it := h.items[n-1]
	h.items = h.items[:n-1]
	return it
}

// mergeRuns k-way merges already-sorted runs into a single new Seq.
func (s Sorter[T]) mergeRuns(runs []*extseq.Seq[T], less Less[T]) (*extseq.Seq[T], error) {
	h := &runHeap[T]{less: less}
	var cursors []*extseq.Cursor[T]
	closeAll := func() {
		for _, c := range cursors {
			c.Close()
		}
	}

	for _, r := range runs {
		cur, err := r.Cursor()
		if err != nil {
			closeAll()
			return nil, err
		}
		cursors = append(cursors, cur)
		v, ok, err := cur.Next()
		if err != nil {
			closeAll()
			return nil, err
		}
		if ok {
			heap.Push(h, heapItem[T]{val: v, cursor: cur})
		}
	}

	w, err := extseq.NewWriter[T](s.Config.TempDir, s.Config.Compress)
	if err != nil {
		closeAll()
		return nil, err
	}

	for h.Len() > 0 {
		top := heap.Pop(h).(heapItem[T])
		if err := w.Append(top.val); err != nil {
			closeAll()
			w.Abort()
			return nil, err
		}
		v, ok, err := top.cursor.Next()
		if err != nil {
			closeAll()
			w.Abort()
			return nil, err
		}
		if ok {
			heap.Push(h, heapItem[T]{val: v, cursor: top.cursor})
		}
	}

	closeAll()
	return w.Close()
}

// sortSlice sorts buf ascending under less. None of this pipeline's join
// keys require stability, so the stdlib's introsort-based sort.Slice is
// used directly rather than sort.SliceStable.
func sortSlice[T any](buf []T, less Less[T]) {
	sort.Slice(buf, func(i, j int) bool { return less(buf[i], buf[j]) })
}
