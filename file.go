package png8

import (
	"github.com/pixelplane/png8/internal/pngbin"
	"github.com/pixelplane/png8/internal/srcbuf"
)

// File is an opened image source with its header already classified. Files
// above a size threshold are memory-mapped; smaller ones are read onto the
// heap. A File is single-use: decode once, then Close.
type File struct {
	src *srcbuf.Source
	hdr Header
}

// Open maps or reads the file at path and peeks its header. A file that is
// not a PNG fails with ErrUnrecognizedFormat.
func Open(path string) (*File, error) {
	src, err := srcbuf.Open(path)
	if err != nil {
		return nil, err
	}
	h, ok := pngbin.PeekHeader(src)
	if !ok {
		src.Close()
		return nil, ErrUnrecognizedFormat
	}
	return &File{
		src: src,
		hdr: Header{Width: h.Width, Height: h.Height, Class: ColorClass(h.Class)},
	}, nil
}

// Header returns the peeked header.
func (f *File) Header() Header { return f.hdr }

// Decode allocates a destination plane sized from the header and decodes the
// file. Indexed sources keep their palette when opts.WantPalette is set and
// fall back to RGBA expansion otherwise; truecolor always expands.
func (f *File) Decode(opts Options) (*Outcome, error) {
	kind := Plane1Byte
	switch {
	case f.hdr.Class == ClassTruecolor:
		kind = Plane4Byte
	case f.hdr.Class == ClassIndexed && !opts.WantPalette:
		kind = Plane4Byte
	}

	size := uint64(f.hdr.Width) * uint64(f.hdr.Height)
	if kind == Plane4Byte {
		size *= 4
	}
	dst := make([]byte, size)
	return decode(f.src, dst, kind, opts)
}

// Close releases the underlying mapping or buffer. The Outcome of a prior
// Decode stays valid: its plane lives in a separately allocated buffer.
func (f *File) Close() error { return f.src.Close() }

// DecodeFile opens, decodes and closes the file at path in one step.
func DecodeFile(path string, opts Options) (*Outcome, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Decode(opts)
}
