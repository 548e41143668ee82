package palette

import "github.com/pixelplane/png8/internal/pngbin"

// Convert turns a raw decoder palette (256 straight-alpha entries, channel
// order alpha/blue/green/red) into a premultiplied Table and reports whether
// every entry is fully opaque.
//
// The premultiply is bit-exact integer arithmetic: the 8-bit alpha is
// widened to 32 bits by replication (a * 0x10101), each channel is scaled by
// it with a 16-bit divide, and the result is narrowed back to 8 bits.
func Convert(raw *[pngbin.RawPaletteSize]byte) (Table, bool) {
	var t Table
	opaque := true
	for i := 0; i < 256; i++ {
		a := uint32(raw[i*4+0])
		b := uint32(raw[i*4+1])
		g := uint32(raw[i*4+2])
		r := uint32(raw[i*4+3])

		a16 := a * 0x10101
		t[i] = Color{
			A: uint8(a),
			R: uint8(((r * a16) / 0xFFFF) >> 8),
			G: uint8(((g * a16) / 0xFFFF) >> 8),
			B: uint8(((b * a16) / 0xFFFF) >> 8),
		}
		if a != 0xff {
			opaque = false
		}
	}
	return t, opaque
}
