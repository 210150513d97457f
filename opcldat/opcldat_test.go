package opcldat

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// buildHeader assembles a 16-byte header plus trailing payload bytes.
func buildHeader(version byte, metadataSize uint16, iconSize uint32, trailing []byte) []byte {
	buf := []byte("OPCLDAT")
	buf = append(buf, version)
	buf = append(buf, byte(metadataSize), byte(metadataSize>>8))
	buf = append(buf, 0, 0)
	buf = append(buf, byte(iconSize), byte(iconSize>>8), byte(iconSize>>16), byte(iconSize>>24))
	return append(buf, trailing...)
}

func TestReadHeader_Fields(t *testing.T) {
	r := bytes.NewReader(buildHeader(1, 0x1234, 0xDEADBEEF, nil))

	h, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if h.Version != 1 {
		t.Errorf("version = %d, want 1", h.Version)
	}
	if h.MetadataSize != 0x1234 {
		t.Errorf("metadata size = %#x, want 0x1234", h.MetadataSize)
	}
	if h.IconSize != 0xDEADBEEF {
		t.Errorf("icon size = %#x, want 0xdeadbeef", h.IconSize)
	}
}

func TestReadHeader_StopsAtHeader(t *testing.T) {
	trailing := []byte("metadata follows")
	r := bytes.NewReader(buildHeader(1, 16, 0, trailing))

	if _, err := ReadHeader(r); err != nil {
		t.Fatal(err)
	}
	rest, _ := io.ReadAll(r)
	if !bytes.Equal(rest, trailing) {
		t.Errorf("reader advanced past the header: %d bytes left, want %d", len(rest), len(trailing))
	}
}

func TestReadHeader_BadMagic(t *testing.T) {
	buf := buildHeader(1, 0, 0, nil)
	buf[0] = 'X'

	if _, err := ReadHeader(bytes.NewReader(buf)); !errors.Is(err, ErrBadMagic) {
		t.Errorf("err = %v, want ErrBadMagic", err)
	}
}

func TestReadHeader_Truncated(t *testing.T) {
	buf := buildHeader(1, 0, 0, nil)

	for _, n := range []int{0, 7, 15} {
		_, err := ReadHeader(bytes.NewReader(buf[:n]))
		if err == nil {
			t.Errorf("%d bytes: expected error", n)
			continue
		}
		if errors.Is(err, ErrBadMagic) {
			t.Errorf("%d bytes: got ErrBadMagic, want a read error", n)
		}
	}
}
