package pngbin

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Writer emits 8-bit greyscale or indexed PNG streams, the exact subset the
// fast-path decoder accepts. Scanlines are written unfiltered; the zlib
// stage provides the compression.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteGray encodes an 8-bit greyscale image from a one-byte-per-pixel plane.
func (e *Writer) WriteGray(plane []byte, width, height int) error {
	return e.write(plane, width, height, colorTypeGreyscale, nil, nil)
}

// WriteIndexed encodes an 8-bit indexed image. rgb holds the palette as
// packed RGB triples; alpha, if non-nil, must be the same length in entries
// and produces a transparency chunk trimmed to the last non-opaque entry.
func (e *Writer) WriteIndexed(plane []byte, width, height int, rgb []byte, alpha []byte) error {
	if len(rgb) == 0 || len(rgb)%3 != 0 || len(rgb) > 256*3 {
		return fmt.Errorf("%w: palette length %d", ErrBadConfig, len(rgb))
	}
	if alpha != nil && len(alpha) != len(rgb)/3 {
		return fmt.Errorf("%w: %d alpha entries for %d palette entries",
			ErrBadConfig, len(alpha), len(rgb)/3)
	}
	return e.write(plane, width, height, colorTypeIndexed, rgb, alpha)
}

func (e *Writer) write(plane []byte, width, height int, colorType byte, rgb, alpha []byte) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrBadConfig, width, height)
	}
	if len(plane) < width*height {
		return fmt.Errorf("%w: plane holds %d bytes, need %d", ErrBufferTooSmall, len(plane), width*height)
	}

	if _, err := e.w.Write(pngSignature[:]); err != nil {
		return err
	}

	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(height))
	ihdr[8] = 8
	ihdr[9] = colorType
	if err := e.writeChunk(chunkIHDR, ihdr[:]); err != nil {
		return err
	}

	if colorType == colorTypeIndexed {
		if err := e.writeChunk(chunkPLTE, rgb); err != nil {
			return err
		}
		if trns := trimOpaque(alpha); len(trns) > 0 {
			if err := e.writeChunk(chunkTRNS, trns); err != nil {
				return err
			}
		}
	}

	idat, err := deflateRows(plane, width, height)
	if err != nil {
		return err
	}
	if err := e.writeChunk(chunkIDAT, idat); err != nil {
		return err
	}
	return e.writeChunk(chunkIEND, nil)
}

func (e *Writer) writeChunk(typ string, data []byte) error {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(data)))
	copy(hdr[4:8], typ)
	if _, err := e.w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	_, err := e.w.Write(sum[:])
	return err
}

// deflateRows compresses the plane with a filter-type byte of zero prefixed
// to each scanline.
func deflateRows(plane []byte, width, height int) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	filt := [1]byte{filterNone}
	for y := 0; y < height; y++ {
		if _, err := zw.Write(filt[:]); err != nil {
			return nil, err
		}
		if _, err := zw.Write(plane[y*width : (y+1)*width]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// trimOpaque drops the trailing run of fully opaque entries; a fully opaque
// palette yields no transparency chunk at all.
func trimOpaque(alpha []byte) []byte {
	n := len(alpha)
	for n > 0 && alpha[n-1] == 0xff {
		n--
	}
	return alpha[:n]
}
