package extract

import (
	"fmt"
	"io"
	"log"
	"os"

	"mapconsolidate/pkg/containers"
	"mapconsolidate/pkg/extseq"
	"mapconsolidate/pkg/mergejoin"
	"mapconsolidate/pkg/rangetable"
)

// WriteNodes merge-joins usedNodeIDs against sortedNodes (both must
// already be sorted ascending by node id) and writes the matching Node
// records, verbatim, to w. It returns the number of records written so
// the caller can patch the count header placed right after the
// FingerPrint.
func WriteNodes(w io.Writer, usedNodeIDs *extseq.Seq[uint64], sortedNodes *extseq.Seq[containers.Node]) (int64, error) {
	var written int64
	_, err := mergejoin.InnerJoinEmit(
		usedNodeIDs, sortedNodes,
		func(id uint64) uint64 { return id },
		func(n containers.Node) uint64 { return n.NodeID },
		func(_ uint64, n containers.Node) error {
			if _, err := n.WriteTo(w); err != nil {
				return fmt.Errorf("write node: %w", err)
			}
			written++
			return nil
		},
	)
	return written, err
}

// WriteEdges streams every edge with ResultWeight > 0 to w, in whatever
// order the finalized sequence holds them (no further sort is required;
// the output file's own count header is what downstream readers use).
// logEvery, if positive, logs a progress line every logEvery records
// written; 0 disables it.
func WriteEdges(w io.Writer, edges *extseq.Seq[containers.Edge], logEvery int64) (int64, Diagnostics, error) {
	var diag Diagnostics
	cur, err := edges.Cursor()
	if err != nil {
		return 0, diag, err
	}
	defer cur.Close()

	var written int64
	for {
		e, ok, err := cur.Next()
		if err != nil {
			return written, diag, err
		}
		if !ok {
			break
		}
		if e.ResultWeight <= 0 {
			continue
		}
		if _, err := containers.FromEdge(e).WriteTo(w); err != nil {
			return written, diag, fmt.Errorf("write edge: %w", err)
		}
		written++
		if logEvery > 0 && written%logEvery == 0 {
			log.Printf("[extract] write edges: %d so far", written)
		}
	}
	diag.EdgesWritten = written
	return written, diag, nil
}

// WriteRestrictions emits every restriction with both endpoints resolved
// to its own file: fingerprint, a u32 count placeholder, the records,
// then the placeholder patched in place.
func WriteRestrictions(path string, restrictions *extseq.Seq[containers.TurnRestriction]) (int64, int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := containers.NewFingerPrint().WriteTo(f); err != nil {
		return 0, 0, err
	}
	countOffset, err := containers.WriteCountPlaceholder(f)
	if err != nil {
		return 0, 0, err
	}

	cur, err := restrictions.Cursor()
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close()

	var written, dropped int64
	for {
		r, ok, err := cur.Next()
		if err != nil {
			return written, dropped, err
		}
		if !ok {
			break
		}
		if !r.Resolved() {
			dropped++
			continue
		}
		if _, err := r.WriteTo(f); err != nil {
			return written, dropped, fmt.Errorf("write restriction: %w", err)
		}
		written++
	}

	if err := containers.PatchCount(f, countOffset, uint32(written)); err != nil {
		return written, dropped, err
	}
	return written, dropped, nil
}

// WriteNames builds a RangeTable over the (clamped) lengths of
// nameTable and writes it, followed by a u32 total byte length and the
// concatenated clamped bytes in the same order. String i's offset/length
// is recoverable from the RangeTable alone; clamping is done at the byte
// level, which can split a multi-byte UTF-8 codepoint for names over 255
// bytes — this module does not attempt to clamp on a rune boundary, since
// nothing downstream ever decodes these bytes back into a string.
func WriteNames(path string, nameTable []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	lengths := make([]uint8, len(nameTable))
	var totalLength uint32
	for i, s := range nameTable {
		l := len(s)
		if l > 255 {
			l = 255
		}
		lengths[i] = uint8(l)
		totalLength += uint32(l)
	}

	rt := rangetable.Build(lengths)
	if _, err := rt.WriteTo(f); err != nil {
		return fmt.Errorf("write range table: %w", err)
	}

	if err := writeUint32(f, totalLength); err != nil {
		return fmt.Errorf("write total length: %w", err)
	}

	for i, s := range nameTable {
		if _, err := f.Write([]byte(s)[:lengths[i]]); err != nil {
			return fmt.Errorf("write name bytes: %w", err)
		}
	}
	return nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	_, err := w.Write(buf[:])
	return err
}
