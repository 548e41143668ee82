package pngbin

import (
	"bytes"
	"encoding/binary"

	"github.com/pixelplane/png8/internal/srcbuf"
)

// PeekHeader reads the PNG signature and the IHDR payload at fixed offsets
// and classifies the image without consuming the stream. The cursor is
// restored before returning. A false result means the bytes are not a PNG;
// that is a classification outcome, not an error.
//
// Layout peeked, relative to the cursor:
//
//	0  signature (8 bytes)
//	8  IHDR length + type (8 bytes, skipped)
//	16 width (u32 BE)
//	20 height (u32 BE)
//	24 bit depth, color type, compression, filter (4 bytes)
func PeekHeader(src *srcbuf.Source) (Header, bool) {
	src.Mark()
	defer src.Reset()

	sig, err := src.Next(8)
	if err != nil || !bytes.Equal(sig, pngSignature[:]) {
		return Header{}, false
	}
	if err := src.Skip(8); err != nil {
		return Header{}, false
	}
	rec, err := src.Next(12)
	if err != nil {
		return Header{}, false
	}

	h := Header{
		Width:  binary.BigEndian.Uint32(rec[0:4]),
		Height: binary.BigEndian.Uint32(rec[4:8]),
	}
	if h.Width == 0 || h.Height == 0 {
		return Header{}, false
	}

	switch rec[9] {
	case colorTypeGreyscale:
		h.Class = ClassGreyscale
	case colorTypeTruecolor:
		h.Class = ClassTruecolor
	case colorTypeIndexed:
		h.Class = ClassIndexed
	default:
		h.Class = ClassOther
	}
	return h, true
}
