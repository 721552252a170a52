package chm

import "testing"

func TestBlockCacheHitMiss(t *testing.T) {
	c := newBlockCache(3, 4)
	if _, ok := c.get(0); ok {
		t.Fatal("expected miss on empty cache")
	}
	buf := c.alloc(0)
	copy(buf, []byte{1, 2, 3, 4})
	c.put(0, buf)

	got, ok := c.get(0)
	if !ok {
		t.Fatal("expected hit after put")
	}
	if string(got) != "\x01\x02\x03\x04" {
		t.Fatalf("got %v", got)
	}
}

func TestBlockCacheCollisionEvicts(t *testing.T) {
	c := newBlockCache(2, 1)
	buf0 := c.alloc(0)
	buf0[0] = 'a'
	c.put(0, buf0)

	buf2 := c.alloc(2) // 2 % 2 == 0, collides with slot of block 0
	buf2[0] = 'b'
	c.put(2, buf2)

	if _, ok := c.get(0); ok {
		t.Fatal("expected block 0 evicted by colliding block 2")
	}
	got, ok := c.get(2)
	if !ok || got[0] != 'b' {
		t.Fatalf("expected block 2 present with 'b', got %v ok=%v", got, ok)
	}
}

func TestBlockCacheResizePreservesNonColliding(t *testing.T) {
	c := newBlockCache(5, 1)
	for _, idx := range []uint32{0, 1, 2} {
		buf := c.alloc(idx)
		buf[0] = byte('a' + idx)
		c.put(idx, buf)
	}

	c.resize(2) // 0%2=0, 1%2=1, 2%2=0 -> collides with 0, first (0) survives

	if got, ok := c.get(0); !ok || got[0] != 'a' {
		t.Fatalf("block 0 should survive resize, got %v ok=%v", got, ok)
	}
	if got, ok := c.get(1); !ok || got[0] != 'b' {
		t.Fatalf("block 1 should survive resize, got %v ok=%v", got, ok)
	}
	if _, ok := c.get(2); ok {
		t.Fatal("block 2 should have been dropped as a post-resize collision")
	}
}
