package containers

import (
	"encoding/binary"
	"fmt"
	"io"
)

// magicBytes identifies the combined node/edge and restrictions files.
const magicBytes = "MAPCSLD1"

// FormatVersion is bumped whenever the on-disk record layout changes.
const FormatVersion = uint32(1)

// FingerPrint is the fixed-size opaque header the combined node/edge file
// and the restrictions file begin with (the name file has none). It carries no payload beyond magic + version; the downstream
// reader is expected to reject anything that doesn't match exactly.
type FingerPrint struct {
	Magic   [8]byte
	Version uint32
}

// NewFingerPrint returns the current fingerprint value.
func NewFingerPrint() FingerPrint {
	var fp FingerPrint
	copy(fp.Magic[:], magicBytes)
	fp.Version = FormatVersion
	return fp
}

// WriteTo writes the fingerprint in the fixed little-endian layout.
func (fp FingerPrint) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.LittleEndian, fp.Magic); err != nil {
		return 0, fmt.Errorf("write fingerprint magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, fp.Version); err != nil {
		return 8, fmt.Errorf("write fingerprint version: %w", err)
	}
	return 12, nil
}

// ReadFrom reads and validates a fingerprint.
func (fp *FingerPrint) ReadFrom(r io.Reader) (int64, error) {
	if err := binary.Read(r, binary.LittleEndian, &fp.Magic); err != nil {
		return 0, fmt.Errorf("read fingerprint magic: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &fp.Version); err != nil {
		return 8, fmt.Errorf("read fingerprint version: %w", err)
	}
	if string(fp.Magic[:]) != magicBytes {
		return 12, fmt.Errorf("invalid magic bytes: %q", fp.Magic)
	}
	if fp.Version != FormatVersion {
		return 12, fmt.Errorf("unsupported format version: %d", fp.Version)
	}
	return 12, nil
}

// FingerPrintSize is the on-disk size of a FingerPrint in bytes.
const FingerPrintSize = 12
