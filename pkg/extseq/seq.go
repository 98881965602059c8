// Package extseq provides a minimal external-memory sequence: an
// append-only, disk-backed list of fixed-layout records that can be
// iterated from the start any number of times without holding the whole
// list in RAM. It is the substrate ExternalSorter and MergeJoiner operate
// over; the upstream OSM adapter populates the initial sequences by
// appending records as it scans.
package extseq

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/dsnet/compress/bzip2"
)

// Seq is a finalized, read-many sequence backed by a temp file on disk.
// Once built it is immutable; sort/merge-join operations always produce a
// new Seq rather than mutating an existing one in place, consistent with
// this pipeline's rule that a sort key must not change between the sort
// that established an ordering and the next operation relying on it.
type Seq[T any] struct {
	path     string
	count    int64
	compress bool
}

// Len returns the number of records in the sequence.
func (s *Seq[T]) Len() int64 {
	if s == nil {
		return 0
	}
	return s.count
}

// Path returns the backing file path, mainly for diagnostics/tests.
func (s *Seq[T]) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Remove deletes the backing file. Safe to call on a nil Seq.
func (s *Seq[T]) Remove() error {
	if s == nil || s.path == "" {
		return nil
	}
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Cursor opens a fresh read-only iterator over the sequence, starting
// from the first record. Multiple live cursors over the same Seq are
// safe; none of them observe writes (there are none, post-construction).
func (s *Seq[T]) Cursor() (*Cursor[T], error) {
	if s == nil || s.path == "" {
		return &Cursor[T]{}, nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	var r io.Reader = f
	var closer io.Closer = f
	if s.compress {
		zr, err := bzip2.NewReader(f, &bzip2.ReaderConfig{})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("bzip2 reader %s: %w", s.path, err)
		}
		r = zr
		closer = multiCloser{zr, f}
	}
	return &Cursor[T]{dec: gob.NewDecoder(r), closer: closer, remaining: s.count}, nil
}

type multiCloser struct {
	first  io.Closer
	second io.Closer
}

func (m multiCloser) Close() error {
	err1 := m.first.Close()
	err2 := m.second.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Cursor reads records out of a Seq in order, one at a time.
type Cursor[T any] struct {
	dec       *gob.Decoder
	closer    io.Closer
	remaining int64
}

// Next decodes the next record. The second return value is false once the
// cursor is exhausted.
func (c *Cursor[T]) Next() (T, bool, error) {
	var v T
	if c == nil || c.dec == nil {
		return v, false, nil
	}
	if err := c.dec.Decode(&v); err != nil {
		if err == io.EOF {
			return v, false, nil
		}
		return v, false, fmt.Errorf("decode record: %w", err)
	}
	c.remaining--
	return v, true, nil
}

// Close releases the cursor's file handle. Safe to call more than once.
func (c *Cursor[T]) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}

// Writer builds a new Seq by appending records to a fresh temp file.
type Writer[T any] struct {
	f        *os.File
	bw       *bufio.Writer
	zw       *bzip2.Writer
	enc      *gob.Encoder
	path     string
	count    int64
	compress bool
}

// NewWriter creates a new Writer backed by a fresh temp file under dir
// (os.TempDir() if dir is empty). If compress is true, records are
// bzip2-compressed in flight.
func NewWriter[T any](dir string, compress bool) (*Writer[T], error) {
	f, err := os.CreateTemp(dir, "mapconsolidate-seq-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	bw := bufio.NewWriter(f)
	w := &Writer[T]{f: f, bw: bw, path: f.Name(), compress: compress}

	var enc io.Writer = bw
	if compress {
		zw, err := bzip2.NewWriter(bw, &bzip2.WriterConfig{})
		if err != nil {
			f.Close()
			os.Remove(f.Name())
			return nil, fmt.Errorf("bzip2 writer: %w", err)
		}
		w.zw = zw
		enc = zw
	}
	w.enc = gob.NewEncoder(enc)
	return w, nil
}

// Append encodes and writes v as the next record.
func (w *Writer[T]) Append(v T) error {
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	w.count++
	return nil
}

// Close finalizes the backing file and returns the resulting Seq. On
// error, the backing temp file is removed rather than left behind.
func (w *Writer[T]) Close() (*Seq[T], error) {
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			w.f.Close()
			os.Remove(w.path)
			return nil, fmt.Errorf("close bzip2 writer: %w", err)
		}
	}
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		os.Remove(w.path)
		return nil, fmt.Errorf("flush: %w", err)
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.path)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return &Seq[T]{path: w.path, count: w.count, compress: w.compress}, nil
}

// Abort discards the writer and removes its backing file. Used on error
// paths where the in-progress sequence must not leak a temp file.
func (w *Writer[T]) Abort() {
	if w.zw != nil {
		w.zw.Close()
	}
	w.f.Close()
	os.Remove(w.path)
}

// FromSlice builds a finalized Seq directly from an in-memory slice.
// Convenience for tests and for small containers (e.g. the name table)
// that never need external-memory treatment.
func FromSlice[T any](dir string, compress bool, items []T) (*Seq[T], error) {
	w, err := NewWriter[T](dir, compress)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := w.Append(it); err != nil {
			w.Abort()
			return nil, err
		}
	}
	return w.Close()
}

// Collect reads every record out of s into a slice. Intended for tests and
// for small finalized outputs, not for production-scale passes.
func Collect[T any](s *Seq[T]) ([]T, error) {
	cur, err := s.Cursor()
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	var out []T
	for {
		v, ok, err := cur.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out, nil
}
