package pngbin

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/pixelplane/png8/internal/srcbuf"
)

// PlaneKind selects the destination pixel layout.
type PlaneKind uint8

const (
	// Plane1Byte is one byte per pixel: a greyscale sample or palette index.
	Plane1Byte PlaneKind = iota
	// Plane4Byte is straight-alpha RGBA, four bytes per pixel. Used for the
	// truecolor fallback and for indexed sources decoded without a palette.
	Plane4Byte
)

// RawPaletteSize is the byte length of a captured palette: 256 entries of
// 4 bytes each, channel order alpha/blue/green/red before conversion.
const RawPaletteSize = 256 * 4

// RawDecode is the product of one frame decode. Plane aliases the prefix of
// the caller's destination buffer; RawPalette is owned by the caller and
// holds straight-alpha entries in decoder channel order.
type RawDecode struct {
	Width, Height uint32
	Plane         []byte
	RawPalette    *[RawPaletteSize]byte
	IsGreyscale   bool
}

// Decoder is a single-use streaming decoder over one source. It is not safe
// for concurrent use; each decode call must own its source and destination.
type Decoder struct {
	src *srcbuf.Source

	header    Header
	bitDepth  byte
	colorType byte
	parsed    bool

	paletteRGB   [256 * 3]byte
	paletteAlpha [256]byte
	paletteLen   int
}

// NewDecoder wraps src. The decoder consumes the source from its current
// cursor position.
func NewDecoder(src *srcbuf.Source) *Decoder {
	return &Decoder{src: src}
}

// DecodeConfig parses the signature and the image description record and
// validates that the image is on the fast path: color type 0, 2 or 3 at bit
// depth 8, not interlaced. It must be called (explicitly or via DecodeFrame)
// before the frame decode.
func (d *Decoder) DecodeConfig() (Header, error) {
	if d.parsed {
		return d.header, nil
	}

	sig, err := d.src.Next(8)
	if err != nil || !bytes.Equal(sig, pngSignature[:]) {
		return Header{}, ErrUnrecognizedFormat
	}

	length, typ, data, err := d.readChunk()
	if err != nil {
		return Header{}, err
	}
	if typ != chunkIHDR || length != 13 {
		return Header{}, fmt.Errorf("%w: first chunk %q, length %d", ErrBadConfig, typ, length)
	}

	width := binary.BigEndian.Uint32(data[0:4])
	height := binary.BigEndian.Uint32(data[4:8])
	d.bitDepth = data[8]
	d.colorType = data[9]
	compression := data[10]
	filter := data[11]
	interlace := data[12]

	if width == 0 || height == 0 {
		return Header{}, fmt.Errorf("%w: zero dimension %dx%d", ErrBadConfig, width, height)
	}
	if compression != 0 || filter != 0 {
		return Header{}, fmt.Errorf("%w: compression=%d filter=%d", ErrBadConfig, compression, filter)
	}

	var class ColorClass
	switch d.colorType {
	case colorTypeGreyscale:
		class = ClassGreyscale
	case colorTypeTruecolor:
		class = ClassTruecolor
	case colorTypeIndexed:
		class = ClassIndexed
	default:
		return Header{}, fmt.Errorf("%w: color type %d", ErrUnsupportedColorType, d.colorType)
	}

	if d.bitDepth != 8 {
		return Header{}, fmt.Errorf("%w: bit depth %d", ErrCorruptStream, d.bitDepth)
	}
	if interlace != 0 {
		return Header{}, fmt.Errorf("%w: interlaced image", ErrCorruptStream)
	}

	d.header = Header{Width: width, Height: height, Class: class}
	d.parsed = true
	return d.header, nil
}

// DecodeFrame inflates and unfilters the pixel data into dst and, for
// indexed sources, captures the palette. Entries stay straight-alpha in
// decoder channel order; no color-space conversion happens here.
//
// dst must hold at least width*height bytes for Plane1Byte or four times
// that for Plane4Byte; on any failure dst contents are unspecified except
// that a signature mismatch writes nothing at all.
func (d *Decoder) DecodeFrame(dst []byte, kind PlaneKind) (*RawDecode, error) {
	h, err := d.DecodeConfig()
	if err != nil {
		return nil, err
	}

	pixels := uint64(h.Width) * uint64(h.Height)
	needed := pixels
	if kind == Plane4Byte {
		needed *= 4
	}
	if uint64(len(dst)) < needed {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, needed, len(dst))
	}
	if kind == Plane1Byte && h.Class == ClassTruecolor {
		return nil, fmt.Errorf("%w: truecolor does not fit a 1-byte plane", ErrUnsupportedColorType)
	}

	for {
		length, typ, err := d.readChunkHeader()
		if err != nil {
			return nil, err
		}

		switch typ {
		case chunkPLTE:
			data, err := d.readChunkData(typ, length)
			if err != nil {
				return nil, err
			}
			if len(data)%3 != 0 || len(data) == 0 || len(data) > 256*3 {
				return nil, fmt.Errorf("%w: palette length %d", ErrCorruptStream, len(data))
			}
			d.paletteLen = len(data) / 3
			copy(d.paletteRGB[:], data)
			for i := range d.paletteAlpha {
				d.paletteAlpha[i] = 0xff
			}

		case chunkTRNS:
			data, err := d.readChunkData(typ, length)
			if err != nil {
				return nil, err
			}
			if h.Class == ClassIndexed {
				if len(data) > d.paletteLen {
					return nil, fmt.Errorf("%w: %d transparency entries for %d palette entries",
						ErrCorruptStream, len(data), d.paletteLen)
				}
				copy(d.paletteAlpha[:], data)
			}
			// Keyed transparency on greyscale/truecolor is outside the
			// fast path; the chunk is consumed and ignored.

		case chunkIDAT:
			if h.Class == ClassIndexed && d.paletteLen == 0 {
				return nil, fmt.Errorf("%w: indexed image without palette", ErrBadConfig)
			}
			if err := d.decodePixels(dst, kind, length); err != nil {
				return nil, err
			}
			return d.finish(dst[:needed], kind), nil

		case chunkIEND:
			return nil, fmt.Errorf("%w: no pixel data before IEND", ErrCorruptStream)

		default:
			// Ancillary chunk: skip data and CRC.
			if err := d.src.Skip(int(length) + 4); err != nil {
				return nil, fmt.Errorf("%w: truncated %q chunk", ErrCorruptStream, typ)
			}
		}
	}
}

func (d *Decoder) finish(plane []byte, kind PlaneKind) *RawDecode {
	raw := &RawDecode{
		Width:       d.header.Width,
		Height:      d.header.Height,
		Plane:       plane,
		IsGreyscale: d.header.Class == ClassGreyscale,
	}
	if d.header.Class == ClassIndexed && kind == Plane1Byte {
		raw.RawPalette = d.capturePalette()
	}
	return raw
}

// capturePalette packs PLTE+tRNS into 256 fixed entries, channel order
// alpha/blue/green/red. Slots past the real palette replicate the final
// entry, so the trailing run seen by the compactor consists of copies of the
// last real color (see the palette package for the trimming rule).
func (d *Decoder) capturePalette() *[RawPaletteSize]byte {
	var out [RawPaletteSize]byte
	last := d.paletteLen - 1
	for i := 0; i < 256; i++ {
		j := i
		if j > last {
			j = last
		}
		out[i*4+0] = d.paletteAlpha[j]
		out[i*4+1] = d.paletteRGB[j*3+2]
		out[i*4+2] = d.paletteRGB[j*3+1]
		out[i*4+3] = d.paletteRGB[j*3+0]
	}
	return &out
}

// decodePixels runs the inflate/unfilter loop over the IDAT chunk sequence,
// writing pixel bytes into dst according to the requested plane kind.
func (d *Decoder) decodePixels(dst []byte, kind PlaneKind, firstLen uint32) error {
	bpp := 1
	if d.header.Class == ClassTruecolor {
		bpp = 3
	}
	rowSize := int(d.header.Width) * bpp

	ir := newIDATReader(d, firstLen)
	zr, err := zlib.NewReader(ir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}
	defer zr.Close()

	cur := make([]byte, rowSize)
	prev := make([]byte, rowSize)
	var filt [1]byte

	width := int(d.header.Width)
	for y := 0; y < int(d.header.Height); y++ {
		if _, err := io.ReadFull(zr, filt[:]); err != nil {
			return fmt.Errorf("%w: truncated scanline %d: %v", ErrCorruptStream, y, err)
		}
		if _, err := io.ReadFull(zr, cur); err != nil {
			return fmt.Errorf("%w: truncated scanline %d: %v", ErrCorruptStream, y, err)
		}
		if err := unfilterRow(filt[0], cur, prev, bpp); err != nil {
			return err
		}

		switch {
		case kind == Plane1Byte:
			copy(dst[y*width:], cur)
		case d.header.Class == ClassTruecolor:
			row := dst[y*width*4:]
			for x := 0; x < width; x++ {
				row[x*4+0] = cur[x*3+0]
				row[x*4+1] = cur[x*3+1]
				row[x*4+2] = cur[x*3+2]
				row[x*4+3] = 0xff
			}
		case d.header.Class == ClassGreyscale:
			row := dst[y*width*4:]
			for x := 0; x < width; x++ {
				v := cur[x]
				row[x*4+0] = v
				row[x*4+1] = v
				row[x*4+2] = v
				row[x*4+3] = 0xff
			}
		default: // indexed expanded to straight RGBA
			row := dst[y*width*4:]
			for x := 0; x < width; x++ {
				idx := int(cur[x])
				if idx >= d.paletteLen {
					return fmt.Errorf("%w: pixel index %d outside palette of %d",
						ErrCorruptStream, idx, d.paletteLen)
				}
				row[x*4+0] = d.paletteRGB[idx*3+0]
				row[x*4+1] = d.paletteRGB[idx*3+1]
				row[x*4+2] = d.paletteRGB[idx*3+2]
				row[x*4+3] = d.paletteAlpha[idx]
			}
		}

		cur, prev = prev, cur
	}

	// The stream must end exactly here; reading past the end also forces the
	// zlib checksum to be verified.
	var trailer [1]byte
	if n, err := zr.Read(trailer[:]); n != 0 || (err != nil && err != io.EOF) {
		return fmt.Errorf("%w: trailing pixel data", ErrCorruptStream)
	}
	if err := ir.err; err != nil {
		return err
	}
	return nil
}

// readChunkHeader consumes the 8-byte chunk header and returns its declared
// length and type.
func (d *Decoder) readChunkHeader() (uint32, string, error) {
	hdr, err := d.src.Next(8)
	if err != nil {
		return 0, "", fmt.Errorf("%w: truncated chunk header", ErrCorruptStream)
	}
	return binary.BigEndian.Uint32(hdr[0:4]), string(hdr[4:8]), nil
}

// readChunkData consumes a chunk's payload and trailing CRC, verifying the
// checksum over the type and payload.
func (d *Decoder) readChunkData(typ string, length uint32) ([]byte, error) {
	data, err := d.src.Next(int(length))
	if err != nil {
		return nil, fmt.Errorf("%w: truncated %q chunk", ErrCorruptStream, typ)
	}
	sum, err := d.src.Next(4)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %q checksum", ErrCorruptStream, typ)
	}
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	if crc.Sum32() != binary.BigEndian.Uint32(sum) {
		return nil, fmt.Errorf("%w: %q checksum mismatch", ErrCorruptStream, typ)
	}
	return data, nil
}

// readChunk reads header, payload and CRC in one step.
func (d *Decoder) readChunk() (uint32, string, []byte, error) {
	length, typ, err := d.readChunkHeader()
	if err != nil {
		return 0, "", nil, err
	}
	data, err := d.readChunkData(typ, length)
	if err != nil {
		return 0, "", nil, err
	}
	return length, typ, data, nil
}

// idatReader presents the concatenated payloads of consecutive IDAT chunks
// as one io.Reader, verifying each chunk's CRC as it completes. The first
// chunk's header has already been consumed by the caller.
type idatReader struct {
	d         *Decoder
	remaining uint32
	crc       hash.Hash32
	done      bool
	err       error
}

func newIDATReader(d *Decoder, firstLen uint32) *idatReader {
	ir := &idatReader{d: d, remaining: firstLen, crc: crc32.NewIEEE()}
	ir.crc.Write([]byte(chunkIDAT))
	return ir
}

func (ir *idatReader) Read(p []byte) (int, error) {
	for ir.remaining == 0 {
		if ir.done {
			return 0, io.EOF
		}
		if err := ir.closeChunk(); err != nil {
			return 0, err
		}
		if ir.done {
			return 0, io.EOF
		}
	}

	n := len(p)
	if uint32(n) > ir.remaining {
		n = int(ir.remaining)
	}
	data, err := ir.d.src.Next(n)
	if err != nil {
		ir.err = fmt.Errorf("%w: truncated pixel data", ErrCorruptStream)
		return 0, ir.err
	}
	copy(p, data)
	ir.crc.Write(data)
	ir.remaining -= uint32(n)
	return n, nil
}

// closeChunk verifies the finished chunk's CRC and opens the next IDAT chunk
// if one follows directly.
func (ir *idatReader) closeChunk() error {
	sum, err := ir.d.src.Next(4)
	if err != nil {
		ir.err = fmt.Errorf("%w: missing pixel data checksum", ErrCorruptStream)
		return ir.err
	}
	if ir.crc.Sum32() != binary.BigEndian.Uint32(sum) {
		ir.err = fmt.Errorf("%w: pixel data checksum mismatch", ErrCorruptStream)
		return ir.err
	}

	length, typ, err := ir.d.readChunkHeader()
	if err != nil {
		// No further chunks at all; treat as end of the IDAT sequence and
		// let the inflate layer report truncation if data is missing.
		ir.done = true
		return nil
	}
	if typ != chunkIDAT {
		ir.done = true
		return nil
	}
	ir.remaining = length
	ir.crc.Reset()
	ir.crc.Write([]byte(chunkIDAT))
	return nil
}
