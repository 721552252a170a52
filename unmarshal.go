package chm

import "encoding/binary"

// cursor is a bounds-checked little-endian decoder over a byte slice. Once a
// read runs past the end of the slice, err is set and every subsequent read
// returns the zero value without advancing pos; callers check err once after
// a sequence of reads instead of after every single one.
type cursor struct {
	b   []byte
	pos int
	err error
}

func newCursor(b []byte) *cursor {
	return &cursor{b: b}
}

func (c *cursor) eat(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.pos+n > len(c.b) {
		c.err = ErrShortRead
		return nil
	}
	out := c.b[c.pos : c.pos+n]
	c.pos += n
	return out
}

func (c *cursor) uint32() uint32 {
	b := c.eat(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *cursor) int32() int32 {
	return int32(c.uint32())
}

func (c *cursor) uint64() uint64 {
	b := c.eat(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (c *cursor) int64() int64 {
	return int64(c.uint64())
}

func (c *cursor) uuid() [16]byte {
	var out [16]byte
	b := c.eat(16)
	if b == nil {
		return out
	}
	copy(out[:], b)
	return out
}

func (c *cursor) bytes(n int) []byte {
	b := c.eat(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// cword decodes a base-128 big-endian variable-length unsigned integer: each
// byte contributes its low 7 bits, most significant byte first, and the
// first byte whose high bit is clear terminates the sequence.
func (c *cursor) cword() uint64 {
	var v uint64
	for {
		b := c.eat(1)
		if b == nil {
			return 0
		}
		v = (v << 7) | uint64(b[0]&0x7f)
		if b[0]&0x80 == 0 {
			return v
		}
	}
}
