// Package srcbuf supplies image source bytes to the decoder.
//
// Files above a size threshold are memory-mapped read-only; smaller files are
// copied onto the heap, where the copy is cheaper than the mapping syscalls.
// A Source also wraps caller-provided byte slices so the decoder sees one
// cursor abstraction regardless of where the bytes live.
package srcbuf

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// mmapThreshold is the file size above which mapping beats copying.
const mmapThreshold = 16 * 1024

// mmap capability states. The probe runs at most once per process: the first
// failed mapping permanently routes all subsequent opens through heap reads.
const (
	mmapUnknown int32 = iota
	mmapWorks
	mmapBroken
)

var mmapState atomic.Int32

// probeOnce reports whether memory mapping should be attempted. The verdict
// of the first completed attempt is recorded by an atomic compare-and-set;
// once a mapping has failed the fallback is permanent for the process.
func probeOnce() bool {
	return mmapState.Load() != mmapBroken
}

func recordProbe(ok bool) {
	verdict := mmapBroken
	if ok {
		verdict = mmapWorks
	}
	mmapState.CompareAndSwap(mmapUnknown, verdict)
}

// Source is an immutable byte sequence with a read cursor supporting
// mark/reset. It is not safe for concurrent use; decode callers own a Source
// for the duration of one decode call.
type Source struct {
	data   []byte
	pos    int
	mark   int
	mapped bool
}

// FromBytes wraps caller-owned bytes. The Source never modifies them.
func FromBytes(data []byte) *Source {
	return &Source{data: data}
}

// Open reads or maps the file at path.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := fi.Size()
	if size == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	if size > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%s: file too large", path)
	}

	if size > mmapThreshold && probeOnce() {
		data, merr := mmapFile(f.Fd(), int(size))
		recordProbe(merr == nil)
		if merr == nil {
			return &Source{data: data, mapped: true}, nil
		}
	}

	return heapRead(f, int(size), path)
}

func heapRead(f *os.File, size int, path string) (*Source, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &Source{data: data}, nil
}

// Close releases a memory mapping, if any. Closing a heap-backed Source is a
// no-op. The Source must not be used after Close.
func (s *Source) Close() error {
	if s.mapped && s.data != nil {
		err := munmapFile(s.data)
		s.data = nil
		return err
	}
	s.data = nil
	return nil
}

// Len returns the total source length in bytes.
func (s *Source) Len() int { return len(s.data) }

// Remaining returns the number of unread bytes past the cursor.
func (s *Source) Remaining() int { return len(s.data) - s.pos }

// Mark records the current cursor position for a later Reset.
func (s *Source) Mark() { s.mark = s.pos }

// Reset moves the cursor back to the most recent Mark.
func (s *Source) Reset() { s.pos = s.mark }

// Peek returns the next n bytes without advancing the cursor.
func (s *Source) Peek(n int) ([]byte, error) {
	if s.Remaining() < n {
		return nil, io.ErrUnexpectedEOF
	}
	return s.data[s.pos : s.pos+n], nil
}

// Next returns the next n bytes and advances the cursor. The returned slice
// aliases the source and stays valid until Close.
func (s *Source) Next(n int) ([]byte, error) {
	b, err := s.Peek(n)
	if err != nil {
		return nil, err
	}
	s.pos += n
	return b, nil
}

// Skip advances the cursor by n bytes.
func (s *Source) Skip(n int) error {
	if s.Remaining() < n {
		return io.ErrUnexpectedEOF
	}
	s.pos += n
	return nil
}
