// Package mergejoin implements the two-cursor linear merge over sorted
// extseq.Seq sequences that this pipeline uses everywhere a large,
// externally-sorted table needs to be joined against another: advance
// whichever cursor holds the smaller key, emit or mutate on a match, and
// never look back. Every join key in this pipeline is a uint64 (an OSM
// node or way id), so the comparator is fixed rather than threaded
// through as yet another type parameter.
package mergejoin

import (
	"fmt"

	"mapconsolidate/pkg/extseq"
)

// Stats reports how many A-side and B-side records were matched/skipped
// by a join. Unmatched records on either side are never an error — the
// upstream data may be incomplete — but the counts are worth surfacing
// as a diagnostic.
type Stats struct {
	Matched      int64
	UnmatchedA   int64
	UnmatchedB   int64
}

// LeftSemiJoinMutate advances a and b in key order; wherever a and b's
// keys are equal, mutate is called to rewrite the A record in place using
// the matched B record. A records with no matching B are carried through
// unmutated. The join key need not be unique on the A side: per this
// pipeline's tie-break rule, a run of equal-keyed A records is held
// against a single B record until A's key changes, then B advances — so
// B must be unique, but A need not be.
//
// Returns a new Seq holding every A record (mutated or not), in the same
// order they were read. a and b are left untouched.
func LeftSemiJoinMutate[A any, B any](
	a *extseq.Seq[A], b *extseq.Seq[B],
	keyA func(*A) uint64, keyB func(B) uint64,
	mutate func(a *A, b B),
	tempDir string, compress bool,
) (*extseq.Seq[A], Stats, error) {
	var stats Stats

	curA, err := a.Cursor()
	if err != nil {
		return nil, stats, fmt.Errorf("open A cursor: %w", err)
	}
	defer curA.Close()
	curB, err := b.Cursor()
	if err != nil {
		return nil, stats, fmt.Errorf("open B cursor: %w", err)
	}
	defer curB.Close()

	w, err := extseq.NewWriter[A](tempDir, compress)
	if err != nil {
		return nil, stats, err
	}

	va, hasA, err := curA.Next()
	if err != nil {
		w.Abort()
		return nil, stats, err
	}
	vb, hasB, err := curB.Next()
	if err != nil {
		w.Abort()
		return nil, stats, err
	}

	var bMatched bool
	for hasA {
		switch {
		case !hasB || keyA(&va) < keyB(vb):
			stats.UnmatchedA++
			if err := w.Append(va); err != nil {
				w.Abort()
				return nil, stats, err
			}
			va, hasA, err = curA.Next()
			if err != nil {
				w.Abort()
				return nil, stats, err
			}
		case keyA(&va) > keyB(vb):
			if !bMatched {
				stats.UnmatchedB++
			}
			bMatched = false
			vb, hasB, err = curB.Next()
			if err != nil {
				w.Abort()
				return nil, stats, err
			}
		default:
			mutate(&va, vb)
			stats.Matched++
			bMatched = true
			if err := w.Append(va); err != nil {
				w.Abort()
				return nil, stats, err
			}
			va, hasA, err = curA.Next()
			if err != nil {
				w.Abort()
				return nil, stats, err
			}
		}
	}
	for ; hasB && err == nil; vb, hasB, err = curB.Next() {
		if !bMatched {
			stats.UnmatchedB++
		}
		bMatched = false
	}
	if err != nil {
		w.Abort()
		return nil, stats, err
	}

	out, err := w.Close()
	return out, stats, err
}

// InnerJoinEmit advances a and b in key order, both assumed unique on
// their join key, and calls emit for every matched pair. Used by
// WriteNodes: a = sorted used-node-ids, b = sorted nodes, emit writes the
// matching Node record to the output stream.
func InnerJoinEmit[A any, B any](
	a *extseq.Seq[A], b *extseq.Seq[B],
	keyA func(A) uint64, keyB func(B) uint64,
	emit func(A, B) error,
) (Stats, error) {
	var stats Stats

	curA, err := a.Cursor()
	if err != nil {
		return stats, fmt.Errorf("open A cursor: %w", err)
	}
	defer curA.Close()
	curB, err := b.Cursor()
	if err != nil {
		return stats, fmt.Errorf("open B cursor: %w", err)
	}
	defer curB.Close()

	va, hasA, err := curA.Next()
	if err != nil {
		return stats, err
	}
	vb, hasB, err := curB.Next()
	if err != nil {
		return stats, err
	}

	for hasA && hasB {
		ka, kb := keyA(va), keyB(vb)
		switch {
		case ka < kb:
			stats.UnmatchedA++
			va, hasA, err = curA.Next()
		case ka > kb:
			stats.UnmatchedB++
			vb, hasB, err = curB.Next()
		default:
			if emitErr := emit(va, vb); emitErr != nil {
				return stats, emitErr
			}
			stats.Matched++
			va, hasA, err = curA.Next()
			if err != nil {
				return stats, err
			}
			vb, hasB, err = curB.Next()
		}
		if err != nil {
			return stats, err
		}
	}
	for ; hasA && err == nil; va, hasA, err = curA.Next() {
		stats.UnmatchedA++
	}
	for ; hasB && err == nil; vb, hasB, err = curB.Next() {
		stats.UnmatchedB++
	}
	return stats, err
}
