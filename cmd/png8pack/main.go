// png8pack converts arbitrary images into 8-bit indexed PNGs that decode on
// the fast path: the input is quantized to at most 256 colors and written
// with an 8-bit index plane, palette, and trimmed transparency chunk.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	"github.com/ericpauley/go-quantize/quantize"

	"github.com/pixelplane/png8/internal/pngbin"
)

func main() {
	colors := flag.Int("colors", 256, "maximum palette size (2-256)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: png8pack [flags] <input> <output.png>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}
	if *colors < 2 || *colors > 256 {
		log.Fatalf("colors must be in [2, 256], got %d", *colors)
	}

	if err := pack(flag.Arg(0), flag.Arg(1), *colors); err != nil {
		log.Fatalf("png8pack: %v", err)
	}
}

func pack(input, output string, colors int) error {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	m, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", input, err)
	}

	q := quantize.MedianCutQuantizer{AddTransparent: true}
	pm := image.NewPaletted(m.Bounds(), q.Quantize(make(color.Palette, 0, colors), m))
	draw.Draw(pm, pm.Bounds(), m, m.Bounds().Min, draw.Src)

	rgb, alpha := splitPalette(pm.Palette)

	w, h := pm.Rect.Dx(), pm.Rect.Dy()
	plane := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(plane[y*w:(y+1)*w], pm.Pix[y*pm.Stride:])
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()

	return pngbin.NewWriter(out).WriteIndexed(plane, w, h, rgb, alpha)
}

// splitPalette unpacks a color.Palette into packed RGB triples and straight
// alpha values. color.RGBA() returns premultiplied channels, so alpha is
// divided back out to recover the straight form the palette chunk needs.
func splitPalette(p color.Palette) (rgb, alpha []byte) {
	rgb = make([]byte, 0, len(p)*3)
	alpha = make([]byte, 0, len(p))
	for _, c := range p {
		r, g, b, a := c.RGBA()
		if a != 0 {
			r = r * 0xffff / a
			g = g * 0xffff / a
			b = b * 0xffff / a
		}
		rgb = append(rgb, byte(r>>8), byte(g>>8), byte(b>>8))
		alpha = append(alpha, byte(a>>8))
	}
	return rgb, alpha
}
