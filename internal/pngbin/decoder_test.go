package pngbin

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/pixelplane/png8/internal/srcbuf"
)

// rawPNG authors a PNG stream with full control over the header fields, for
// exercising streams the 8-bit writer refuses to produce.
func rawPNG(t *testing.T, w, h int, bitDepth, colorType, interlace byte, raw []byte, plte, trns []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(pngSignature[:])
	wr := NewWriter(&buf)

	ihdr := make([]byte, 13)
	ihdr[0] = byte(w >> 24)
	ihdr[1] = byte(w >> 16)
	ihdr[2] = byte(w >> 8)
	ihdr[3] = byte(w)
	ihdr[4] = byte(h >> 24)
	ihdr[5] = byte(h >> 16)
	ihdr[6] = byte(h >> 8)
	ihdr[7] = byte(h)
	ihdr[8] = bitDepth
	ihdr[9] = colorType
	ihdr[12] = interlace
	if err := wr.writeChunk(chunkIHDR, ihdr); err != nil {
		t.Fatal(err)
	}
	if plte != nil {
		if err := wr.writeChunk(chunkPLTE, plte); err != nil {
			t.Fatal(err)
		}
	}
	if trns != nil {
		if err := wr.writeChunk(chunkTRNS, trns); err != nil {
			t.Fatal(err)
		}
	}

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeChunk(chunkIDAT, idat.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeChunk(chunkIEND, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeBytes(t *testing.T, data []byte, dst []byte, kind PlaneKind) (*RawDecode, error) {
	t.Helper()
	return NewDecoder(srcbuf.FromBytes(data)).DecodeFrame(dst, kind)
}

func TestDecodeFrame_IndexedRoundTrip(t *testing.T) {
	// Red and green, both opaque; plane [0 1 1 0].
	data := encodeIndexed(t, []byte{0, 1, 1, 0}, 2, 2, []byte{255, 0, 0, 0, 255, 0}, nil)

	dst := make([]byte, 4)
	raw, err := decodeBytes(t, data, dst, Plane1Byte)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}

	if !bytes.Equal(raw.Plane, []byte{0, 1, 1, 0}) {
		t.Errorf("plane = %v, want [0 1 1 0]", raw.Plane)
	}
	if raw.Width != 2 || raw.Height != 2 {
		t.Errorf("size = %dx%d, want 2x2", raw.Width, raw.Height)
	}
	if raw.IsGreyscale {
		t.Error("IsGreyscale = true for indexed image")
	}
	if raw.RawPalette == nil {
		t.Fatal("RawPalette = nil, want captured palette")
	}

	// Entries are alpha/blue/green/red.
	if got := raw.RawPalette[0:4]; !bytes.Equal(got, []byte{255, 0, 0, 255}) {
		t.Errorf("entry 0 = %v, want [255 0 0 255] (opaque red)", got)
	}
	if got := raw.RawPalette[4:8]; !bytes.Equal(got, []byte{255, 0, 255, 0}) {
		t.Errorf("entry 1 = %v, want [255 0 255 0] (opaque green)", got)
	}
	// Slots past the real palette replicate the final entry.
	if got := raw.RawPalette[255*4 : 256*4]; !bytes.Equal(got, []byte{255, 0, 255, 0}) {
		t.Errorf("entry 255 = %v, want replica of entry 1", got)
	}
}

func TestDecodeFrame_IndexedWithTransparency(t *testing.T) {
	data := encodeIndexed(t, []byte{0, 1, 1, 0}, 2, 2,
		[]byte{10, 20, 30, 40, 50, 60}, []byte{0, 128})

	dst := make([]byte, 4)
	raw, err := decodeBytes(t, data, dst, Plane1Byte)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if got := raw.RawPalette[0:4]; !bytes.Equal(got, []byte{0, 30, 20, 10}) {
		t.Errorf("entry 0 = %v, want [0 30 20 10]", got)
	}
	if got := raw.RawPalette[4:8]; !bytes.Equal(got, []byte{128, 60, 50, 40}) {
		t.Errorf("entry 1 = %v, want [128 60 50 40]", got)
	}
}

func TestDecodeFrame_Greyscale(t *testing.T) {
	samples := []byte{0, 64, 128, 192, 255, 7}
	data := encodeGray(t, samples, 3, 2)

	dst := make([]byte, 6)
	raw, err := decodeBytes(t, data, dst, Plane1Byte)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if !raw.IsGreyscale {
		t.Error("IsGreyscale = false, want true")
	}
	if raw.RawPalette != nil {
		t.Error("RawPalette non-nil for greyscale image")
	}
	if !bytes.Equal(raw.Plane, samples) {
		t.Errorf("plane = %v, want raw samples %v", raw.Plane, samples)
	}
}

func TestDecodeFrame_IndexedToRGBA(t *testing.T) {
	data := encodeIndexed(t, []byte{0, 1}, 2, 1,
		[]byte{255, 0, 0, 0, 255, 0}, []byte{128})

	dst := make([]byte, 8)
	raw, err := decodeBytes(t, data, dst, Plane4Byte)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if raw.RawPalette != nil {
		t.Error("RawPalette non-nil for RGBA expansion")
	}
	want := []byte{255, 0, 0, 128, 0, 255, 0, 255}
	if !bytes.Equal(raw.Plane, want) {
		t.Errorf("plane = %v, want %v", raw.Plane, want)
	}
}

func TestDecodeFrame_Truecolor(t *testing.T) {
	// 2x1 RGB: one filter byte then two pixels per row.
	rows := []byte{0, 10, 20, 30, 40, 50, 60}
	data := rawPNG(t, 2, 1, 8, colorTypeTruecolor, 0, rows, nil, nil)

	dst := make([]byte, 8)
	raw, err := decodeBytes(t, data, dst, Plane4Byte)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	want := []byte{10, 20, 30, 255, 40, 50, 60, 255}
	if !bytes.Equal(raw.Plane, want) {
		t.Errorf("plane = %v, want %v", raw.Plane, want)
	}
}

func TestDecodeFrame_TruecolorRejects1Byte(t *testing.T) {
	rows := []byte{0, 10, 20, 30}
	data := rawPNG(t, 1, 1, 8, colorTypeTruecolor, 0, rows, nil, nil)

	if _, err := decodeBytes(t, data, make([]byte, 4), Plane1Byte); !errors.Is(err, ErrUnsupportedColorType) {
		t.Errorf("err = %v, want ErrUnsupportedColorType", err)
	}
}

func TestDecodeFrame_Failures(t *testing.T) {
	valid := encodeIndexed(t, []byte{0, 1, 1, 0}, 2, 2, []byte{255, 0, 0, 0, 255, 0}, nil)

	corruptPLTE := append([]byte(nil), valid...)
	i := bytes.Index(corruptPLTE, []byte(chunkPLTE))
	corruptPLTE[i+5] ^= 0xff

	tests := []struct {
		name string
		data []byte
		dst  int
		want error
	}{
		{"corrupt palette checksum", corruptPLTE, 4, ErrCorruptStream},
		{"truncated pixel data", valid[:len(valid)-20], 4, ErrCorruptStream},
		{"buffer too small", valid, 3, ErrBufferTooSmall},
		{
			"interlaced",
			rawPNG(t, 1, 1, 8, colorTypeGreyscale, 1, []byte{0, 9}, nil, nil),
			1, ErrCorruptStream,
		},
		{
			"sub-8-bit depth",
			rawPNG(t, 1, 1, 4, colorTypeGreyscale, 0, []byte{0, 9}, nil, nil),
			1, ErrCorruptStream,
		},
		{
			"greyscale-alpha color type",
			rawPNG(t, 1, 1, 8, 4, 0, []byte{0, 9, 9}, nil, nil),
			2, ErrUnsupportedColorType,
		},
		{
			"zero dimensions",
			rawPNG(t, 0, 1, 8, colorTypeGreyscale, 0, []byte{0}, nil, nil),
			1, ErrBadConfig,
		},
		{
			"indexed without palette",
			rawPNG(t, 1, 1, 8, colorTypeIndexed, 0, []byte{0, 0}, nil, nil),
			1, ErrBadConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeBytes(t, tt.data, make([]byte, tt.dst), Plane1Byte)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeFrame_IndexOutsidePalette(t *testing.T) {
	// The expansion path must reject indices past the real palette; the
	// 1-byte path keeps raw indices and leaves validation to the consumer.
	data := rawPNG(t, 1, 1, 8, colorTypeIndexed, 0, []byte{0, 5}, []byte{1, 2, 3}, nil)

	if _, err := decodeBytes(t, data, make([]byte, 4), Plane4Byte); !errors.Is(err, ErrCorruptStream) {
		t.Errorf("err = %v, want ErrCorruptStream", err)
	}
}

func TestDecodeFrame_BadSignatureWritesNothing(t *testing.T) {
	data := encodeGray(t, []byte{1, 2, 3, 4}, 2, 2)
	data[0] ^= 0xff

	dst := []byte{0xaa, 0xaa, 0xaa, 0xaa}
	_, err := decodeBytes(t, data, dst, Plane1Byte)
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Fatalf("err = %v, want ErrUnrecognizedFormat", err)
	}
	if !bytes.Equal(dst, []byte{0xaa, 0xaa, 0xaa, 0xaa}) {
		t.Errorf("destination modified on signature mismatch: %v", dst)
	}
}

func TestDecodeFrame_SplitIDAT(t *testing.T) {
	// The same pixel stream split across two IDAT chunks must decode
	// identically to the single-chunk form.
	single := encodeGray(t, []byte{1, 2, 3, 4}, 2, 2)

	i := bytes.Index(single, []byte(chunkIDAT))
	start := i - 4
	length := int(uint32(single[start])<<24 | uint32(single[start+1])<<16 |
		uint32(single[start+2])<<8 | uint32(single[start+3]))
	payload := single[i+4 : i+4+length]

	var buf bytes.Buffer
	buf.Write(single[:start])
	wr := NewWriter(&buf)
	if err := wr.writeChunk(chunkIDAT, payload[:2]); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeChunk(chunkIDAT, payload[2:]); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeChunk(chunkIEND, nil); err != nil {
		t.Fatal(err)
	}

	dst := make([]byte, 4)
	raw, err := decodeBytes(t, buf.Bytes(), dst, Plane1Byte)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if !bytes.Equal(raw.Plane, []byte{1, 2, 3, 4}) {
		t.Errorf("plane = %v, want [1 2 3 4]", raw.Plane)
	}
}

func TestDecodeConfig(t *testing.T) {
	data := encodeIndexed(t, []byte{0}, 1, 1, []byte{9, 9, 9}, nil)

	d := NewDecoder(srcbuf.FromBytes(data))
	h, err := d.DecodeConfig()
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if h.Class != ClassIndexed || h.Width != 1 || h.Height != 1 {
		t.Errorf("header = %+v", h)
	}

	// A second call must be a no-op returning the same header.
	h2, err := d.DecodeConfig()
	if err != nil || h2 != h {
		t.Errorf("second DecodeConfig = %+v, %v", h2, err)
	}
}
