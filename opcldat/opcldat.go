// Package opcldat parses the binary header that frames one OPVault
// attachment file. The header is exactly 16 bytes; everything after it is
// located by offsets the caller computes from the two size fields, so this
// package never reads past the header.
package opcldat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderSize is the fixed on-disk size of an attachment header.
const HeaderSize = 16

var magic = []byte("OPCLDAT")

// ErrBadMagic reports a file that does not start with the OPCLDAT magic.
var ErrBadMagic = errors.New("opcldat: bad magic")

// Header describes the layout of one attachment file:
//
//	 7 bytes - magic "OPCLDAT"
//	 1 byte  - version
//	 2 bytes - metadata length, little-endian
//	 2 bytes - reserved
//	 4 bytes - icon length, little-endian
//
// MetadataSize bytes of JSON metadata follow the header, then IconSize
// bytes of icon envelope, then the content envelope to end of file.
type Header struct {
	Version      uint8
	MetadataSize uint16
	IconSize     uint32
}

// ReadHeader reads exactly HeaderSize bytes from r and decodes them.
func ReadHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("opcldat: read header: %w", err)
	}
	if !bytes.Equal(buf[:len(magic)], magic) {
		return nil, ErrBadMagic
	}
	return &Header{
		Version:      buf[7],
		MetadataSize: binary.LittleEndian.Uint16(buf[8:10]),
		IconSize:     binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}
