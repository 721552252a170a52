package chm

import (
	"fmt"
	"io"
)

// Retrieve reads up to len(dst) bytes of e's content starting at addr,
// returning the number of bytes written. addr and len are clipped to e's
// length rather than raising an error; a retrieve entirely past the end of
// the entry returns 0 (§4.6, §7).
func (rd *Reader) Retrieve(e Entry, dst []byte, addr uint64) (int, error) {
	if rd.closed {
		return 0, ErrClosed
	}
	if addr >= e.Length {
		return 0, nil
	}
	want := uint64(len(dst))
	if addr+want > e.Length {
		want = e.Length - addr
	}
	dst = dst[:want]

	switch e.Namespace {
	case NamespaceUncompressed:
		return rd.retrieveUncompressed(e, dst, addr)
	case NamespaceCompressed:
		if !rd.compressed {
			return 0, nil
		}
		return rd.retrieveCompressed(e, dst, addr)
	default:
		return 0, nil
	}
}

func (rd *Reader) retrieveUncompressed(e Entry, dst []byte, addr uint64) (int, error) {
	off := int64(rd.itsf.DataOffset) + int64(e.Start) + int64(addr)
	n, err := io.ReadFull(io.NewSectionReader(rd.r, off, int64(len(dst))), dst)
	if err != nil && n == 0 {
		return 0, fmt.Errorf("retrieve: %w", ErrShortRead)
	}
	return n, nil
}

func (rd *Reader) retrieveCompressed(e Entry, dst []byte, addr uint64) (int, error) {
	if err := rd.dec.ensureInit(rd.cd.WindowSize); err != nil {
		return 0, fmt.Errorf("retrieve: %w", err)
	}

	blockLen := uint64(rd.rt.BlockLen)
	pos := e.Start + addr
	produced := 0

	for produced < len(dst) {
		blockIdx := uint32(pos / blockLen)
		blockOff := pos % blockLen

		buf, err := rd.dec.block(blockIdx)
		if err != nil {
			return produced, fmt.Errorf("retrieve: %w", err)
		}
		if len(buf) == 0 || blockOff >= uint64(len(buf)) {
			return produced, nil
		}

		n := copy(dst[produced:], buf[blockOff:])
		if n == 0 {
			return produced, nil
		}
		produced += n
		pos += uint64(n)
	}
	return produced, nil
}
