package codec

import (
	"bytes"
	"io"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteHeader(&buf, Mode700C); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	h, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}

	if h.Version != ContainerVersion || h.Mode != Mode700C || h.Flags != 0 {
		t.Fatalf("ReadHeader: got %+v", h)
	}
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("xxxabc")

	if _, err := ReadHeader(buf); err == nil {
		t.Fatalf("ReadHeader: expected error for bad magic")
	}
}

func TestIndexesRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	want := [IndexesPerFrame]uint16{7, 300, 2, 40}
	if err := WriteIndexes(&buf, want); err != nil {
		t.Fatalf("WriteIndexes: %v", err)
	}

	got, err := ReadIndexes(&buf)
	if err != nil {
		t.Fatalf("ReadIndexes: %v", err)
	}

	if got != want {
		t.Fatalf("ReadIndexes: got %v want %v", got, want)
	}
}

func TestReadIndexesReturnsEOFAtBoundary(t *testing.T) {
	var buf bytes.Buffer

	if _, err := ReadIndexes(&buf); err != io.EOF {
		t.Fatalf("ReadIndexes on empty reader: got %v want io.EOF", err)
	}
}
