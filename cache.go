package chm

// blockCache is a fixed-capacity, direct-mapped cache of decompressed
// blocks, addressed by block-index modulo capacity (§3, §4.5). The default
// capacity is 5, matching the original library.
const defaultCacheCapacity = 5

type cacheSlot struct {
	valid bool
	index uint32
	data  []byte
}

type blockCache struct {
	slots    []cacheSlot
	blockLen int
}

func newBlockCache(capacity int, blockLen int) *blockCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &blockCache{
		slots:    make([]cacheSlot, capacity),
		blockLen: blockLen,
	}
}

// get returns the cached bytes for index, or (nil, false) on a miss.
func (c *blockCache) get(index uint32) ([]byte, bool) {
	slot := &c.slots[index%uint32(len(c.slots))]
	if slot.valid && slot.index == index {
		return slot.data, true
	}
	return nil, false
}

// alloc returns a buffer of blockLen bytes to decode index into, reusing the
// slot's existing buffer if present. The caller must call put with the
// result once the buffer has been filled.
func (c *blockCache) alloc(index uint32) []byte {
	slot := &c.slots[index%uint32(len(c.slots))]
	if cap(slot.data) < c.blockLen {
		slot.data = make([]byte, c.blockLen)
	}
	return slot.data[:c.blockLen]
}

// put records that buf (as returned by a prior alloc(index)) now holds the
// decompressed bytes of index, evicting whatever previously occupied the
// slot.
func (c *blockCache) put(index uint32, buf []byte) {
	slot := &c.slots[index%uint32(len(c.slots))]
	slot.valid = true
	slot.index = index
	slot.data = buf
}

// resize rehashes surviving entries into a new modulus. An entry that
// collides with another surviving entry under the new modulus is dropped in
// arrival (slot) order — the first one written to a given new slot wins.
func (c *blockCache) resize(capacity int) {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	next := make([]cacheSlot, capacity)
	for i := range c.slots {
		s := c.slots[i]
		if !s.valid {
			continue
		}
		ns := &next[s.index%uint32(capacity)]
		if ns.valid {
			continue // collision: incoming entry dropped, first occupant kept
		}
		*ns = s
	}
	c.slots = next
}
