package chm

import (
	"fmt"
	"io"
)

// blockBounds returns the absolute source offset and length of compressed
// block b (§4.4).
func blockBounds(r io.ReaderAt, dataOffset int64, resetEntry Entry, contentEntry Entry, rt resetTable, b uint32) (offset int64, length int64, err error) {
	if uint64(b) >= uint64(rt.BlockCount) {
		return 0, 0, fmt.Errorf("block %d out of range (count %d): %w", b, rt.BlockCount, ErrMalformedHeader)
	}

	tableBase := dataOffset + int64(resetEntry.Start) + int64(rt.TableOffset) + 8*int64(b)

	if b < rt.BlockCount-1 {
		buf := make([]byte, 16)
		if _, err := io.ReadFull(io.NewSectionReader(r, tableBase, 16), buf); err != nil {
			return 0, 0, fmt.Errorf("reading block bounds %d: %w", b, err)
		}
		c := newCursor(buf)
		start := c.uint64()
		next := c.uint64()
		if next < start {
			return 0, 0, fmt.Errorf("block %d: end %d < start %d: %w", b, next, start, ErrMalformedHeader)
		}
		return dataOffset + int64(contentEntry.Start) + int64(start), int64(next - start), nil
	}

	buf := make([]byte, 8)
	if _, err := io.ReadFull(io.NewSectionReader(r, tableBase, 8), buf); err != nil {
		return 0, 0, fmt.Errorf("reading final block bounds %d: %w", b, err)
	}
	c := newCursor(buf)
	start := c.uint64()
	if uint64(rt.CompressedLen) < start {
		return 0, 0, fmt.Errorf("block %d: compressed_len %d < start %d: %w", b, rt.CompressedLen, start, ErrMalformedHeader)
	}
	return dataOffset + int64(contentEntry.Start) + int64(start), rt.CompressedLen - int64(start), nil
}
