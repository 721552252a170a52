package chm

import "testing"

func TestCwordZero(t *testing.T) {
	c := newCursor([]byte{0x00, 0xff})
	got := c.cword()
	if got != 0 {
		t.Fatalf("cword() = %d, want 0", got)
	}
	if c.pos != 1 {
		t.Fatalf("cword() consumed %d bytes, want 1", c.pos)
	}
}

func TestCwordMultiByte(t *testing.T) {
	// 0x81 0x00 -> (0x01 << 7) | 0x00 = 128
	c := newCursor([]byte{0x81, 0x00})
	got := c.cword()
	if got != 128 {
		t.Fatalf("cword() = %d, want 128", got)
	}
	if c.pos != 2 {
		t.Fatalf("cword() consumed %d bytes, want 2", c.pos)
	}
}

func TestCursorShortReadSticky(t *testing.T) {
	c := newCursor([]byte{0x01, 0x02})
	c.uint32() // over-reads the 2-byte slice
	if c.err == nil {
		t.Fatal("expected sticky error after short read")
	}
	if got := c.uint32(); got != 0 {
		t.Fatalf("read after error = %d, want 0", got)
	}
}

func TestUint32RoundTrip(t *testing.T) {
	c := newCursor([]byte{0x78, 0x56, 0x34, 0x12})
	if got, want := c.uint32(), uint32(0x12345678); got != want {
		t.Fatalf("uint32() = %#x, want %#x", got, want)
	}
}
