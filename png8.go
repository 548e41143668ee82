// Package png8 decodes 8-bit palette and greyscale PNG images into a compact
// one-byte-per-pixel plane plus an optional color table, instead of the
// usual four-byte-per-pixel truecolor expansion.
//
// The decode pipeline classifies the image, inflates and unfilters the pixel
// data into a caller-owned buffer, converts the palette to premultiplied
// alpha, trims it to its effective length, and finally picks one of four
// representations: indexed (plane + palette), mask (per-pixel alpha + one
// hue), greyscale (raw samples), or a truecolor RGBA fallback. Rendering is
// a pure lookup contract realized in software by Outcome.Image.
package png8

import (
	"fmt"

	"github.com/pixelplane/png8/internal/palette"
	"github.com/pixelplane/png8/internal/pngbin"
	"github.com/pixelplane/png8/internal/represent"
	"github.com/pixelplane/png8/internal/srcbuf"
)

// ColorClass is the coarse classification produced by a header peek.
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

// Header holds dimensions and color class read from fixed offsets without a
// full parse. Width and Height are always nonzero for a returned Header.
type Header struct {
	Width  uint32
	Height uint32
	Class  ColorClass
}

// PlaneKind selects the destination pixel layout for Decode.
type PlaneKind uint8

const (
	// Plane1Byte is one byte per pixel: greyscale sample, palette index, or
	// mask alpha after conversion.
	Plane1Byte PlaneKind = iota
	// Plane4Byte requests the straight-alpha RGBA fallback expansion.
	Plane4Byte
)

// Options controls decoding. ForceMask remaps an indexed image to a mask
// unconditionally, for callers that will uniformly recolor the result.
// WantPalette requests palette retention for indexed sources; without it an
// indexed image must be decoded into a Plane4Byte destination.
type Options struct {
	ForceMask   bool
	WantPalette bool
}

// Decode failure kinds, re-exported for errors.Is matching.
// ErrUnrecognizedFormat and ErrUnsupportedColorType are routine
// classification outcomes that should route the image to a generic decoder;
// the rest are genuine failures.
var (
	ErrUnrecognizedFormat   = pngbin.ErrUnrecognizedFormat
	ErrBadConfig            = pngbin.ErrBadConfig
	ErrBufferTooSmall       = pngbin.ErrBufferTooSmall
	ErrCorruptStream        = pngbin.ErrCorruptStream
	ErrUnsupportedColorType = pngbin.ErrUnsupportedColorType
)

// Kind tags the representation an Outcome carries.
type Kind uint8

const (
	// Indexed: Plane holds palette indices, Palette holds the compacted
	// premultiplied table.
	Indexed Kind = iota
	// Mask: Plane holds per-pixel alpha, Hue the single retained color.
	Mask
	// Greyscale: Plane holds raw samples, always opaque.
	Greyscale
	// Truecolor: Plane holds straight-alpha RGBA, four bytes per pixel.
	Truecolor
)

func (k Kind) String() string {
	switch k {
	case Mask:
		return "mask"
	case Greyscale:
		return "greyscale"
	case Truecolor:
		return "truecolor"
	default:
		return "indexed"
	}
}

// Color is one premultiplied color entry.
type Color struct {
	A, R, G, B uint8
}

// Outcome is the product of one decode call. Plane aliases the destination
// buffer handed to Decode; ownership of Plane and Palette transfers to the
// caller.
type Outcome struct {
	Kind   Kind
	Width  uint32
	Height uint32

	// Plane is width*height bytes for Indexed/Mask/Greyscale, 4*width*height
	// for Truecolor.
	Plane []byte

	// Palette is trimmed to its effective length. Non-nil only for Indexed.
	Palette []Color

	// Hue is the single retained color. Meaningful only for Mask.
	Hue Color

	IsOpaque        bool
	IsGreyscale     bool
	ConvertedToMask bool
}

// PeekHeader classifies data as a PNG and extracts dimensions and color
// class without consuming anything. A false result means the bytes are not a
// recognized image; that is a normal outcome, not an error.
func PeekHeader(data []byte) (Header, bool) {
	h, ok := pngbin.PeekHeader(srcbuf.FromBytes(data))
	if !ok {
		return Header{}, false
	}
	return Header{Width: h.Width, Height: h.Height, Class: ColorClass(h.Class)}, true
}

// Decode decodes a PNG byte stream into dst and selects the final
// representation. dst must hold at least width*height bytes for Plane1Byte
// or four times that for Plane4Byte; the returned Outcome's Plane aliases
// dst. On a signature mismatch nothing is written to dst.
func Decode(data, dst []byte, kind PlaneKind, opts Options) (*Outcome, error) {
	src := srcbuf.FromBytes(data)
	return decode(src, dst, kind, opts)
}

func decode(src *srcbuf.Source, dst []byte, kind PlaneKind, opts Options) (*Outcome, error) {
	d := pngbin.NewDecoder(src)
	h, err := d.DecodeConfig()
	if err != nil {
		return nil, err
	}

	if kind == Plane1Byte && h.Class == pngbin.ClassIndexed && !opts.WantPalette {
		return nil, fmt.Errorf("%w: indexed decode into a 1-byte plane requires palette retention", ErrBadConfig)
	}

	raw, err := d.DecodeFrame(dst, pngbin.PlaneKind(kind))
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Width:       raw.Width,
		Height:      raw.Height,
		Plane:       raw.Plane,
		IsGreyscale: raw.IsGreyscale,
	}

	if kind == Plane4Byte {
		out.Kind = Truecolor
		out.IsOpaque = rgbaOpaque(raw.Plane)
		return out, nil
	}

	if raw.IsGreyscale {
		out.Kind = Greyscale
		out.IsOpaque = true
		return out, nil
	}

	table, isOpaque := palette.Convert(raw.RawPalette)
	out.IsOpaque = isOpaque

	sel := represent.Select(raw.Plane, &table, isOpaque, false, opts.ForceMask)
	switch sel.Kind {
	case represent.KindMask:
		out.Kind = Mask
		out.Hue = Color(sel.Hue)
		out.ConvertedToMask = true
	default:
		out.Kind = Indexed
		out.Palette = make([]Color, sel.EffectiveLength)
		for i := range out.Palette {
			out.Palette[i] = Color(table[i])
		}
	}
	return out, nil
}

func rgbaOpaque(plane []byte) bool {
	for i := 3; i < len(plane); i += 4 {
		if plane[i] != 0xff {
			return false
		}
	}
	return true
}
