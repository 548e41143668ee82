package represent

import (
	"image"

	"github.com/pixelplane/png8/internal/palette"
)

// CompositeIndexed reconstructs one pixel of an indexed representation by
// direct palette lookup. The returned color is premultiplied.
func CompositeIndexed(plane []byte, table *palette.Table, pos int) palette.Color {
	return table[plane[pos]]
}

// CompositeMask reconstructs one pixel of a mask representation: the hue is
// blended source-in against the mask value, scaling every channel by
// mask/255. The returned color is premultiplied.
func CompositeMask(plane []byte, hue palette.Color, pos int) palette.Color {
	m := uint32(plane[pos])
	return palette.Color{
		A: uint8(uint32(hue.A) * m / 255),
		R: uint8(uint32(hue.R) * m / 255),
		G: uint8(uint32(hue.G) * m / 255),
		B: uint8(uint32(hue.B) * m / 255),
	}
}

// RenderIndexed expands an index plane through its palette into an RGBA
// image. image.RGBA stores premultiplied values, so palette entries are
// copied through directly.
func RenderIndexed(plane []byte, width, height int, table *palette.Table) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, idx := range plane {
		c := table[idx]
		img.Pix[i*4+0] = c.R
		img.Pix[i*4+1] = c.G
		img.Pix[i*4+2] = c.B
		img.Pix[i*4+3] = c.A
	}
	return img
}

// RenderMask expands a mask plane under a single hue into an RGBA image.
func RenderMask(plane []byte, width, height int, hue palette.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range plane {
		c := CompositeMask(plane, hue, i)
		img.Pix[i*4+0] = c.R
		img.Pix[i*4+1] = c.G
		img.Pix[i*4+2] = c.B
		img.Pix[i*4+3] = c.A
	}
	return img
}

// RenderGray expands a greyscale sample plane into an RGBA image.
func RenderGray(plane []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, v := range plane {
		img.Pix[i*4+0] = v
		img.Pix[i*4+1] = v
		img.Pix[i*4+2] = v
		img.Pix[i*4+3] = 0xff
	}
	return img
}

// ScaleNearest resizes src with nearest-neighbor sampling. Index and mask
// planes must never be interpolated, so this is the only scaler offered;
// smoothing would blend palette indices into meaningless values.
func ScaleNearest(src *image.RGBA, width, height int) *image.RGBA {
	sb := src.Bounds()
	if sb.Dx() == width && sb.Dy() == height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		sy := sb.Min.Y + y*sb.Dy()/height
		for x := 0; x < width; x++ {
			sx := sb.Min.X + x*sb.Dx()/width
			dst.SetRGBA(x, y, src.RGBAAt(sx, sy))
		}
	}
	return dst
}
