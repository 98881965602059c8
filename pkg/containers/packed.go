package containers

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PackedEdge is the on-disk edge record consumed by the downstream graph
// contractor: source/target node ids, name index, the computed integer
// weight, and the routing flags. Fields are written individually rather
// than via a single binary.Write of the struct so the layout is stable
// regardless of Go's in-memory alignment of bool/uint8 fields.
type PackedEdge struct {
	Source           uint64
	Target           uint64
	NameID           uint32
	Weight           int32
	Forward          bool
	Backward         bool
	Roundabout       bool
	InTinyCC         bool
	AccessRestricted bool
	TravelMode       TravelMode
}

// PackedEdgeSize is the fixed on-disk size of a PackedEdge, in bytes.
const PackedEdgeSize = 8 + 8 + 4 + 4 + 1 + 1 + 1 + 1 + 1 + 1

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// WriteTo writes e in the fixed little-endian layout.
func (e PackedEdge) WriteTo(w io.Writer) (int64, error) {
	var buf [PackedEdgeSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], e.Source)
	binary.LittleEndian.PutUint64(buf[8:16], e.Target)
	binary.LittleEndian.PutUint32(buf[16:20], e.NameID)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(e.Weight))
	buf[24] = boolByte(e.Forward)
	buf[25] = boolByte(e.Backward)
	buf[26] = boolByte(e.Roundabout)
	buf[27] = boolByte(e.InTinyCC)
	buf[28] = boolByte(e.AccessRestricted)
	buf[29] = byte(e.TravelMode)
	n, err := w.Write(buf[:])
	return int64(n), err
}

// FromEdge converts a finalized in-memory Edge into its on-disk form.
func FromEdge(e Edge) PackedEdge {
	return PackedEdge{
		Source:           e.Source,
		Target:           e.Target,
		NameID:           e.NameID,
		Weight:           e.ResultWeight,
		Forward:          e.Forward,
		Backward:         e.Backward,
		Roundabout:       e.Roundabout,
		InTinyCC:         e.InTinyCC,
		AccessRestricted: e.AccessRestricted,
		TravelMode:       e.TravelMode,
	}
}

// NodeSize is the fixed on-disk size of a Node record, in bytes.
const NodeSize = 8 + 4 + 4 + 4

// WriteTo writes n in the fixed little-endian layout.
func (n Node) WriteTo(w io.Writer) (int64, error) {
	var buf [NodeSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], n.NodeID)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(n.Lat))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(n.Lon))
	binary.LittleEndian.PutUint32(buf[16:20], n.Flags)
	nn, err := w.Write(buf[:])
	return int64(nn), err
}

// PackedRestrictionSize is the fixed on-disk size of a resolved
// TurnRestriction record, in bytes.
const PackedRestrictionSize = 8 + 8 + 8 + 8 + 8 + 1

// WriteTo writes r in the fixed little-endian layout. Callers must only
// call this for restrictions that satisfy Resolved().
func (r TurnRestriction) WriteTo(w io.Writer) (int64, error) {
	var buf [PackedRestrictionSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], r.From.Way)
	binary.LittleEndian.PutUint64(buf[8:16], r.From.Node)
	binary.LittleEndian.PutUint64(buf[16:24], r.Via.Node)
	binary.LittleEndian.PutUint64(buf[24:32], r.To.Way)
	binary.LittleEndian.PutUint64(buf[32:40], r.To.Node)
	buf[40] = boolByte(r.IsOnly)
	n, err := w.Write(buf[:])
	return int64(n), err
}

// WriteCountPlaceholder writes a zero u32 count and returns the stream
// offset it was written at, so the caller can seek back and patch it once
// the real count is known.
func WriteCountPlaceholder(w io.WriteSeeker) (int64, error) {
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("tell: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(0)); err != nil {
		return 0, fmt.Errorf("write count placeholder: %w", err)
	}
	return pos, nil
}

// PatchCount seeks back to offset and overwrites the placeholder with the
// real count, then restores the stream's write position.
func PatchCount(w io.WriteSeeker, offset int64, count uint32) error {
	cur, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("tell: %w", err)
	}
	if _, err := w.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to count: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, count); err != nil {
		return fmt.Errorf("patch count: %w", err)
	}
	if _, err := w.Seek(cur, io.SeekStart); err != nil {
		return fmt.Errorf("restore position: %w", err)
	}
	return nil
}
