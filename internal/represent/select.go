// Package represent picks the final storage shape for a decoded image and
// implements the software side of the composition contract.
//
// An indexed image can be kept as an index plane plus palette, collapsed
// into a single-channel tint mask when it turns out to be one hue with an
// alpha gradient, or left as raw samples when it was greyscale to begin
// with. Small icon-like assets are frequently single-hue; storing them as a
// mask lets a renderer recolor them with one multiply instead of a palette
// lookup.
package represent

import "github.com/pixelplane/png8/internal/palette"

// Kind tags the chosen representation.
type Kind uint8

const (
	// KindIndexed keeps the index plane and the compacted palette.
	KindIndexed Kind = iota
	// KindMask holds per-pixel alpha and a single retained hue.
	KindMask
	// KindGreyscale holds raw greyscale samples, always opaque.
	KindGreyscale
)

func (k Kind) String() string {
	switch k {
	case KindMask:
		return "mask"
	case KindGreyscale:
		return "greyscale"
	default:
		return "indexed"
	}
}

// maskUsageThreshold is the largest pixel count (48x48) for which the
// uniform-hue extraction is attempted. Larger images keep full palette
// fidelity; the walk is linear in pixels, so this also bounds its cost.
const maskUsageThreshold = 48 * 48

// Selection describes the outcome of representation selection. Hue is only
// meaningful for KindMask; EffectiveLength only for KindIndexed.
type Selection struct {
	Kind            Kind
	Hue             palette.Color
	EffectiveLength int
	ConvertedToMask bool
}

// Select decides the representation for plane and rewrites plane in place
// when it collapses to a mask. First matching rule wins:
//
//  1. Greyscale sources stay as-is; the samples already form a valid
//     single-channel plane.
//  2. forceMask remaps every index to its palette alpha without any hue
//     check, for callers that will uniformly recolor the result anyway.
//  3. A small non-opaque image is probed for a single hue; on success the
//     plane becomes per-pixel alpha. A failed probe leaves plane and
//     palette untouched.
//  4. Everything else stays indexed with the palette trimmed to its
//     effective length.
func Select(plane []byte, table *palette.Table, isOpaque, isGreyscale, forceMask bool) Selection {
	if isGreyscale {
		return Selection{Kind: KindGreyscale}
	}

	if forceMask {
		remapToAlpha(plane, table)
		hue := table[0]
		hue.A = 0xff
		return Selection{Kind: KindMask, Hue: hue, ConvertedToMask: true}
	}

	if !isOpaque && len(plane) <= maskUsageThreshold {
		if hue, ok := uniformHue(plane, table); ok {
			remapToAlpha(plane, table)
			hue.A = 0xff
			return Selection{Kind: KindMask, Hue: hue, ConvertedToMask: true}
		}
	}

	return Selection{Kind: KindIndexed, EffectiveLength: palette.EffectiveLength(table)}
}

// uniformHue walks the index plane and reports whether every non-transparent
// pixel shares one premultiplied RGB value. Fully transparent pixels carry no
// hue and are skipped. The comparison runs on premultiplied channels, so a
// single base color under an alpha gradient only passes when premultiplying
// leaves its RGB unchanged (black being the common case).
func uniformHue(plane []byte, table *palette.Table) (palette.Color, bool) {
	var hue palette.Color
	seen := false
	for _, idx := range plane {
		c := table[idx]
		if c.A == 0 {
			continue
		}
		if !seen {
			hue = c
			seen = true
			continue
		}
		if c.R != hue.R || c.G != hue.G || c.B != hue.B {
			return palette.Color{}, false
		}
	}
	return hue, seen
}

// remapToAlpha replaces each index with its palette entry's alpha, turning
// the plane into a mask.
func remapToAlpha(plane []byte, table *palette.Table) {
	var lut [256]byte
	for i := range lut {
		lut[i] = table[i].A
	}
	for i, idx := range plane {
		plane[i] = lut[idx]
	}
}
