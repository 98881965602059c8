package extract

import (
	"mapconsolidate/pkg/extseq"
	"mapconsolidate/pkg/extsort"
)

const usedNodeIDRecordSize = 8

// DedupUsedNodeIDs sorts the raw stream of node ids referenced by edges
// and way endpoints, and collapses consecutive duplicates. Input order
// is unconstrained; the returned sequence is sorted ascending, which
// WriteNodes relies on.
func DedupUsedNodeIDs(ids *extseq.Seq[uint64], sortCfg extsort.Config) (*extseq.Seq[uint64], int64, error) {
	sorter := extsort.New[uint64](withRecordSize(sortCfg, usedNodeIDRecordSize))
	sorted, err := sorter.Sort(ids, func(a, b uint64) bool { return a < b })
	if err != nil {
		return nil, 0, err
	}
	defer sorted.Remove()

	cur, err := sorted.Cursor()
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close()

	w, err := extseq.NewWriter[uint64](sortCfg.TempDir, sortCfg.Compress)
	if err != nil {
		return nil, 0, err
	}

	var deduped int64
	var last uint64
	var hasLast bool
	for {
		v, ok, err := cur.Next()
		if err != nil {
			w.Abort()
			return nil, 0, err
		}
		if !ok {
			break
		}
		if hasLast && v == last {
			deduped++
			continue
		}
		if err := w.Append(v); err != nil {
			w.Abort()
			return nil, 0, err
		}
		last, hasLast = v, true
	}

	out, err := w.Close()
	if err != nil {
		return nil, 0, err
	}
	return out, deduped, nil
}
