package containers_test

import (
	"bytes"
	"os"
	"testing"

	"mapconsolidate/pkg/containers"
)

func TestFingerPrintRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fp := containers.NewFingerPrint()
	n, err := fp.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != containers.FingerPrintSize {
		t.Errorf("WriteTo returned %d bytes, want %d", n, containers.FingerPrintSize)
	}

	var got containers.FingerPrint
	if _, err := got.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if got.Version != fp.Version || got.Magic != fp.Magic {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, fp)
	}
}

func TestFingerPrintRejectsWrongMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte("BADMAGIC"))
	buf.Write([]byte{1, 0, 0, 0})

	var got containers.FingerPrint
	if _, err := got.ReadFrom(&buf); err == nil {
		t.Error("expected an error for mismatched magic bytes, got nil")
	}
}

func TestNodeWriteToIsFixedSize(t *testing.T) {
	var buf bytes.Buffer
	n := containers.Node{NodeID: 42, Lat: 1_300_000, Lon: 103_800_000, Flags: 7}
	written, err := n.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if written != containers.NodeSize {
		t.Errorf("wrote %d bytes, want %d", written, containers.NodeSize)
	}
	if buf.Len() != containers.NodeSize {
		t.Errorf("buffer holds %d bytes, want %d", buf.Len(), containers.NodeSize)
	}
}

func TestPackedEdgeWriteToIsFixedSize(t *testing.T) {
	var buf bytes.Buffer
	e := containers.FromEdge(containers.Edge{
		Source: 1, Target: 2, NameID: 3, ResultWeight: 100,
		Forward: true, Backward: false,
	})
	written, err := e.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if written != containers.PackedEdgeSize {
		t.Errorf("wrote %d bytes, want %d", written, containers.PackedEdgeSize)
	}
}

func TestTurnRestrictionResolved(t *testing.T) {
	unresolved := containers.TurnRestriction{
		From: containers.WayNodeRef{Way: 1, Node: containers.SpecialNodeID},
		To:   containers.WayNodeRef{Way: 2, Node: 5},
	}
	if unresolved.Resolved() {
		t.Error("expected unresolved restriction to report Resolved() == false")
	}

	resolved := unresolved
	resolved.From.Node = 4
	if !resolved.Resolved() {
		t.Error("expected fully resolved restriction to report Resolved() == true")
	}
}

func TestCountPlaceholderPatch(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/counts.bin"
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create: %v", err)
	}
	defer f.Close()

	offset, err := containers.WriteCountPlaceholder(f)
	if err != nil {
		t.Fatalf("WriteCountPlaceholder: %v", err)
	}
	if _, err := f.Write([]byte("some record bytes")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := containers.PatchCount(f, offset, 17); err != nil {
		t.Fatalf("PatchCount: %v", err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	var patched [4]byte
	if _, err := f.Read(patched[:]); err != nil {
		t.Fatalf("Read: %v", err)
	}
	got := uint32(patched[0]) | uint32(patched[1])<<8 | uint32(patched[2])<<16 | uint32(patched[3])<<24
	if got != 17 {
		t.Errorf("patched count = %d, want 17", got)
	}
}
