// Package pngbin implements the binary PNG layer: a non-destructive header
// sniffer, a streaming decoder for 8-bit greyscale/indexed/truecolor images,
// and an 8-bit-only encoder used by authoring tools and tests.
//
// The decoder deliberately handles only the fast-path subset (color types 0,
// 2 and 3 at bit depth 8, no interlacing). Everything else is reported so the
// caller can route the image to a generic decoder.
package pngbin

import "errors"

// pngSignature is the fixed 8-byte PNG magic.
var pngSignature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// PNG chunk types consumed by the decoder.
const (
	chunkIHDR = "IHDR"
	chunkPLTE = "PLTE"
	chunkTRNS = "tRNS"
	chunkIDAT = "IDAT"
	chunkIEND = "IEND"
)

// PNG color type codes.
const (
	colorTypeGreyscale = 0
	colorTypeTruecolor = 2
	colorTypeIndexed   = 3
)

// ColorClass is the coarse classification used to pick a decode path.
type ColorClass uint8

const (
	ClassOther ColorClass = iota
	ClassGreyscale
	ClassIndexed
	ClassTruecolor
)

func (c ColorClass) String() string {
	switch c {
	case ClassGreyscale:
		return "greyscale"
	case ClassIndexed:
		return "indexed"
	case ClassTruecolor:
		return "truecolor"
	default:
		return "other"
	}
}

// Decode failure kinds. ErrUnrecognizedFormat and ErrUnsupportedColorType are
// routine classification outcomes that trigger an external fallback path;
// the rest are genuine decode failures.
var (
	ErrUnrecognizedFormat   = errors.New("png: not a PNG stream")
	ErrBadConfig            = errors.New("png: malformed image configuration")
	ErrBufferTooSmall       = errors.New("png: destination buffer too small")
	ErrCorruptStream        = errors.New("png: corrupt image data")
	ErrUnsupportedColorType = errors.New("png: unsupported color type")
)

// Header carries the result of a header peek: dimensions and color class,
// read from fixed offsets without a full parse.
type Header struct {
	Width  uint32
	Height uint32
	Class  ColorClass
}
