package png8

import (
	"image"

	"github.com/pixelplane/png8/internal/palette"
	"github.com/pixelplane/png8/internal/represent"
)

// Image realizes the composition contract in software, expanding the
// representation into a premultiplied RGBA image: indexed planes through a
// palette lookup per pixel, mask planes by source-in blending the hue, and
// greyscale planes as opaque grey.
func (o *Outcome) Image() *image.RGBA {
	w, h := int(o.Width), int(o.Height)
	switch o.Kind {
	case Mask:
		return represent.RenderMask(o.Plane, w, h, palette.Color(o.Hue))
	case Greyscale:
		return represent.RenderGray(o.Plane, w, h)
	case Truecolor:
		return rgbaImage(o.Plane, w, h)
	default:
		table := o.table()
		return represent.RenderIndexed(o.Plane, w, h, table)
	}
}

// RenderScaled composites the outcome at the given size using
// nearest-neighbor sampling only; interpolating index or mask values would
// corrupt them.
func (o *Outcome) RenderScaled(width, height int) *image.RGBA {
	return represent.ScaleNearest(o.Image(), width, height)
}

// table rebuilds a full lookup table from the trimmed palette. Indices past
// the effective length replicate the terminal entry, matching the trimming
// rule's view of the trailing run.
func (o *Outcome) table() *palette.Table {
	var t palette.Table
	last := len(o.Palette) - 1
	for i := range t {
		j := i
		if j > last {
			j = last
		}
		t[i] = palette.Color(o.Palette[j])
	}
	return &t
}

// rgbaImage converts a straight-alpha RGBA plane into the premultiplied
// layout image.RGBA requires, using the same bit-exact scaling as the
// palette conversion.
func rgbaImage(plane []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i+3 < len(plane); i += 4 {
		a := uint32(plane[i+3])
		a16 := a * 0x10101
		img.Pix[i+0] = uint8(((uint32(plane[i+0]) * a16) / 0xFFFF) >> 8)
		img.Pix[i+1] = uint8(((uint32(plane[i+1]) * a16) / 0xFFFF) >> 8)
		img.Pix[i+2] = uint8(((uint32(plane[i+2]) * a16) / 0xFFFF) >> 8)
		img.Pix[i+3] = uint8(a)
	}
	return img
}
