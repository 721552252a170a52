package chm

import (
	"fmt"
	"io"

	"github.com/go-chm/chm/internal/lzx"
)

// scratchOverhead is the LZX worst-case overhead of a compressed block over
// its decompressed length (§4.5). decodeOne sizes its scratch read buffer to
// each block's exact compressed length and does not consult this constant.
const scratchOverhead = 6144

// noLastBlock is an impossible block index used to seed the decoder memo so
// that the very first decode forces a reset (§4.6).
const noLastBlock = ^uint32(0)

// sequentialDecoder drives the LZX decoder block by block, replaying
// whatever prerequisite blocks are needed to reach a requested block
// (§4.5).
type sequentialDecoder struct {
	r    io.ReaderAt
	lzx  *lzx.Decoder
	init bool

	resetBlkcount uint32
	blockLen      int64

	lastBlock uint32 // noLastBlock until the first decode

	resetEntry   Entry
	contentEntry Entry
	rt           resetTable
	dataOffset   int64

	cache *blockCache
}

func newSequentialDecoder(r io.ReaderAt, dataOffset int64, resetEntry, contentEntry Entry, rt resetTable, resetBlkcount uint32, cacheCapacity int) *sequentialDecoder {
	return &sequentialDecoder{
		r:             r,
		lzx:           lzx.New(),
		resetBlkcount: resetBlkcount,
		blockLen:      rt.BlockLen,
		lastBlock:     noLastBlock,
		resetEntry:    resetEntry,
		contentEntry:  contentEntry,
		rt:            rt,
		dataOffset:    dataOffset,
		cache:         newBlockCache(cacheCapacity, int(rt.BlockLen)),
	}
}

func (d *sequentialDecoder) ensureInit(windowSize uint32) error {
	if d.init {
		return nil
	}
	windowBits := log2PowerOfTwo(windowSize)
	if err := d.lzx.Init(windowBits); err != nil {
		return fmt.Errorf("lzx init: %w", err)
	}
	d.init = true
	return nil
}

// log2PowerOfTwo returns the bit position of the lowest set bit minus one,
// which is log2(n) for a power of two (§4.6).
func log2PowerOfTwo(n uint32) byte {
	var b byte
	for n > 1 && n&1 == 0 {
		n >>= 1
		b++
	}
	return b
}

func (d *sequentialDecoder) resize(capacity int) {
	d.cache.resize(capacity)
}

// block returns the decompressed bytes of block index n, decoding and
// replaying prerequisite blocks as needed.
func (d *sequentialDecoder) block(n uint32) ([]byte, error) {
	if buf, ok := d.cache.get(n); ok {
		return buf, nil
	}

	align := n % d.resetBlkcount
	if d.lastBlock != noLastBlock && d.lastBlock >= n-align && d.lastBlock < n {
		// The decoder state already covers blocks up to lastBlock: replay
		// only the blocks after it.
		align = n - d.lastBlock - 1
	} else {
		// Replay starts at the reset boundary n-align.
		d.lzx.Reset()
	}

	for i := align; i >= 1; i-- {
		if _, err := d.decodeOne(n - i); err != nil {
			return nil, fmt.Errorf("replaying block %d toward %d: %w", n-i, n, err)
		}
	}
	return d.decodeOne(n)
}

// decodeOne always runs the LZX primitive over block n's compressed bytes,
// advancing decoder state, and caches the result. It never shortcuts via
// the cache: a cache hit only ever short-circuits the *target* block of a
// block() call (before any replay), never an intermediate replay step,
// because the decoder's Huffman/window state must actually observe every
// block since the last reset for subsequent blocks to decode correctly.
func (d *sequentialDecoder) decodeOne(n uint32) ([]byte, error) {
	offset, length, err := blockBounds(d.r, d.dataOffset, d.resetEntry, d.contentEntry, d.rt, n)
	if err != nil {
		d.lastBlock = noLastBlock
		return nil, err
	}

	scratch := make([]byte, length)
	if _, err := io.ReadFull(io.NewSectionReader(d.r, offset, length), scratch); err != nil {
		d.lastBlock = noLastBlock
		return nil, fmt.Errorf("reading compressed block %d: %w", n, ErrShortRead)
	}

	dst := d.cache.alloc(n)
	if err := d.lzx.Decompress(scratch, dst); err != nil {
		d.lastBlock = noLastBlock
		return nil, fmt.Errorf("decoding block %d: %w", n, ErrDecodeFailed)
	}
	d.cache.put(n, dst)
	d.lastBlock = n
	return dst, nil
}
