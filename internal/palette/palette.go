// Package palette converts raw decoder palettes into premultiplied lookup
// tables and trims them to their effective length.
package palette

// Color is one premultiplied palette entry.
type Color struct {
	A, R, G, B uint8
}

// Opaque reports whether the entry is fully opaque.
func (c Color) Opaque() bool { return c.A == 0xff }

// Table is a full 256-entry premultiplied palette, indexed directly by pixel
// byte. Unused trailing slots replicate the last real entry, which is what
// makes the trailing-run trim in EffectiveLength work.
type Table [256]Color
