// Package lzx implements a persistent, block-oriented LZX decompressor.
//
// Unlike a one-shot decompressor that consumes an entire stream and returns
// a []byte, this one is driven a block at a time: Decompress is called once
// per compressed block with that block's bytes, and the decoder's window,
// LRU offset cache and Huffman trees persist across calls until Reset is
// called. This matches how a CHM archive's sequential decoder driver must
// replay blocks since the last reset boundary (see the archive engine's
// decoder.go) rather than decompress a whole stream in one call.
//
// The Huffman table construction, tree encoding, and block/offset decoding
// are adapted from the WIM variant of LZX; the x86 CALL-instruction
// translation step (E8 decoding) that variant performs is specific to WIM
// delta images and is not part of the classic LZX used by CHM archives, so
// it is omitted here.
package lzx

import "errors"

const (
	mainCodeCount = 496
	mainCodeSplit = 256
	lenCodeCount  = 249

	maxBlockSize   = 32768
	maxTreePathLen = 16

	verbatimBlock      = 1
	alignedOffsetBlock = 2
	uncompressedBlock  = 3
)

var footerBits = [...]byte{
	0, 0, 0, 0, 1, 1, 2, 2,
	3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10,
	11, 11, 12, 12, 13, 13, 14,
}

var basePosition = [...]uint32{
	0, 1, 2, 3, 4, 6, 8, 12,
	16, 24, 32, 48, 64, 96, 128, 192,
	256, 384, 512, 768, 1024, 1536, 2048, 3072,
	4096, 6144, 8192, 12288, 16384, 24576, 32768,
}

// ErrCorrupt is returned when the compressed stream violates the format.
var ErrCorrupt = errors.New("lzx: data corrupt")

// Decoder is a stateful LZX decompressor. The zero value is not usable;
// create one with New and call Init before the first Decompress.
type Decoder struct {
	windowBits byte
	window     []byte // grows by append; reset clears it to len 0

	lru      [3]uint32
	mainlens [mainCodeCount]byte
	lenlens  [lenCodeCount]byte

	// per-call bitstream cursor over the current block's source bytes
	src       []byte
	bytePos   int
	c         uint32
	nbits     byte
	unaligned bool
	err       error
}

// New returns an uninitialized Decoder.
func New() *Decoder {
	return &Decoder{}
}

// Init (re)configures the decoder for a given window size, expressed as
// log2(window size) per §4.6 ("window size = bit-position-of-lowest-set-bit
// minus one, equivalently log2 for a power of two"). It resets all decoder
// state.
func (d *Decoder) Init(windowBits byte) error {
	if windowBits == 0 || windowBits > 25 {
		return ErrCorrupt
	}
	d.windowBits = windowBits
	d.Reset()
	return nil
}

// Reset clears the LZX state: the sliding window, the LRU offset cache and
// the Huffman code-length memory. It must be called at every reset-interval
// boundary (driven by the archive engine, not by this package).
func (d *Decoder) Reset() {
	d.window = d.window[:0]
	d.lru = [3]uint32{1, 1, 1}
	for i := range d.mainlens {
		d.mainlens[i] = 0
	}
	for i := range d.lenlens {
		d.lenlens[i] = 0
	}
}

// Decompress decodes exactly len(dst) bytes from src, a single compressed
// block, appending the produced bytes to the decoder's window (so that
// later blocks, before the next Reset, can reference them as match
// backreferences) and copying them into dst.
func (d *Decoder) Decompress(src []byte, dst []byte) error {
	d.src = src
	d.bytePos = 0
	d.c = 0
	d.nbits = 0
	d.unaligned = false
	d.err = nil

	start := len(d.window)
	want := start + len(dst)
	if cap(d.window) < want {
		grown := make([]byte, start, want*2+64)
		copy(grown, d.window)
		d.window = grown
	}
	d.window = d.window[:start]

	for len(d.window) < want {
		n, err := d.readBlock(uint32(len(d.window)), uint32(want-len(d.window)))
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrCorrupt
		}
	}
	copy(dst, d.window[start:want])
	return nil
}

func (d *Decoder) readByte() (byte, bool) {
	if d.bytePos >= len(d.src) {
		return 0, false
	}
	b := d.src[d.bytePos]
	d.bytePos++
	return b, true
}

func (d *Decoder) feed() bool {
	if d.err != nil {
		return true
	}
	b0, ok := d.readByte()
	if !ok {
		return false
	}
	b1, ok := d.readByte()
	if !ok {
		return false
	}
	d.c |= (uint32(b1)<<8 | uint32(b0)) << (16 - d.nbits)
	d.nbits += 16
	return true
}

func (d *Decoder) getBits(n byte) uint16 {
	if n == 0 {
		return 0
	}
	if d.nbits < n {
		if !d.feed() {
			d.err = ErrCorrupt
		}
	}
	v := uint16(d.c >> (32 - n))
	d.c <<= n
	d.nbits -= n
	return v
}

type huffman struct {
	lens    []byte
	table   []uint16
	maxbits byte
}

func buildTable(codelens []byte) *huffman {
	var count [maxTreePathLen + 1]uint
	var max byte
	for _, cl := range codelens {
		count[cl]++
		if max < cl {
			max = cl
		}
	}
	if max == 0 {
		return &huffman{}
	}
	var first [maxTreePathLen + 1]uint
	code := uint(0)
	for i := byte(1); i <= max; i++ {
		code <<= 1
		first[i] = code
		code += count[i]
	}
	if code != 1<<max {
		return nil
	}
	table := make([]uint16, 1<<max)
	for i, cl := range codelens {
		if cl != 0 {
			c := first[cl]
			extended := c << (max - cl)
			for j := uint(0); j < 1<<(max-cl); j++ {
				table[extended+j] = uint16(i)
			}
			first[cl]++
		}
	}
	return &huffman{lens: codelens, table: table, maxbits: max}
}

func (d *Decoder) getCode(h *huffman) uint16 {
	if h.maxbits == 0 {
		d.err = ErrCorrupt
		return 0
	}
	if d.nbits < maxTreePathLen {
		d.feed()
	}
	c := h.table[d.c>>(32-h.maxbits)]
	n := h.lens[c]
	if d.nbits < n {
		d.err = ErrCorrupt
		return 0
	}
	d.c <<= n
	d.nbits -= n
	return c
}

func mod17(b byte) byte {
	for b >= 17 {
		b -= 17
	}
	return b
}

func (d *Decoder) readTree(lens []byte) error {
	var pretreeLen [20]byte
	for i := range pretreeLen {
		pretreeLen[i] = byte(d.getBits(4))
	}
	if d.err != nil {
		return d.err
	}
	h := buildTable(pretreeLen[:])

	for i := 0; i < len(lens); {
		c := byte(d.getCode(h))
		if d.err != nil {
			return d.err
		}
		switch {
		case c <= 16:
			lens[i] = mod17(lens[i] + 17 - c)
			i++
		case c == 17:
			zeroes := int(d.getBits(4)) + 4
			if i+zeroes > len(lens) {
				return ErrCorrupt
			}
			for j := 0; j < zeroes; j++ {
				lens[i+j] = 0
			}
			i += zeroes
		case c == 18:
			zeroes := int(d.getBits(5)) + 20
			if i+zeroes > len(lens) {
				return ErrCorrupt
			}
			for j := 0; j < zeroes; j++ {
				lens[i+j] = 0
			}
			i += zeroes
		case c == 19:
			same := int(d.getBits(1)) + 4
			if i+same > len(lens) {
				return ErrCorrupt
			}
			c = byte(d.getCode(h))
			if c > 16 {
				return ErrCorrupt
			}
			l := mod17(lens[i] + 17 - c)
			for j := 0; j < same; j++ {
				lens[i+j] = l
			}
			i += same
		default:
			return ErrCorrupt
		}
	}
	return d.err
}

func (d *Decoder) readBlockHeader() (byte, uint32, error) {
	if d.unaligned {
		if _, ok := d.readByte(); !ok {
			return 0, 0, ErrCorrupt
		}
		d.unaligned = false
	}

	blockType := d.getBits(3)
	full := d.getBits(1)
	var blockSize uint32
	if full != 0 {
		blockSize = maxBlockSize
	} else {
		blockSize = uint32(d.getBits(16))
		if blockSize > maxBlockSize {
			return 0, 0, ErrCorrupt
		}
	}
	if d.err != nil {
		return 0, 0, d.err
	}

	switch byte(blockType) {
	case verbatimBlock, alignedOffsetBlock:
	case uncompressedBlock:
		n := d.nbits
		if n == 0 {
			n = 16
		}
		d.getBits(n)
		if d.err != nil {
			return 0, 0, d.err
		}
		var lru [12]byte
		for i := range lru {
			b, ok := d.readByte()
			if !ok {
				return 0, 0, ErrCorrupt
			}
			lru[i] = b
		}
		d.lru[0] = uint32(lru[0]) | uint32(lru[1])<<8 | uint32(lru[2])<<16 | uint32(lru[3])<<24
		d.lru[1] = uint32(lru[4]) | uint32(lru[5])<<8 | uint32(lru[6])<<16 | uint32(lru[7])<<24
		d.lru[2] = uint32(lru[8]) | uint32(lru[9])<<8 | uint32(lru[10])<<16 | uint32(lru[11])<<24
	default:
		return 0, 0, ErrCorrupt
	}
	return byte(blockType), blockSize, nil
}

func (d *Decoder) readTrees(readAligned bool) (main, length, aligned *huffman, err error) {
	if readAligned {
		var alignedLen [8]byte
		for i := range alignedLen {
			alignedLen[i] = byte(d.getBits(3))
		}
		aligned = buildTable(alignedLen[:])
		if aligned == nil {
			return nil, nil, nil, ErrCorrupt
		}
	}
	if err := d.readTree(d.mainlens[:mainCodeSplit]); err != nil {
		return nil, nil, nil, err
	}
	if err := d.readTree(d.mainlens[mainCodeSplit:]); err != nil {
		return nil, nil, nil, err
	}
	main = buildTable(d.mainlens[:])
	if main == nil {
		return nil, nil, nil, ErrCorrupt
	}
	if err := d.readTree(d.lenlens[:]); err != nil {
		return nil, nil, nil, err
	}
	length = buildTable(d.lenlens[:])
	if length == nil {
		return nil, nil, nil, ErrCorrupt
	}
	return main, length, aligned, d.err
}

// readCompressedBlock decodes into d.window, which must already have
// capacity through start+size.
func (d *Decoder) readCompressedBlock(start, size uint32, hmain, hlength, haligned *huffman) (int, error) {
	end := start + size
	i := start
	for i < end {
		main := d.getCode(hmain)
		if d.err != nil {
			return int(i - start), d.err
		}
		if main < 256 {
			d.window = append(d.window, byte(main))
			i++
			continue
		}

		lenheader := (main - 256) % 8
		slot := (main - 256) / 8

		var matchlen uint32
		if lenheader == 7 {
			matchlen = uint32(d.getCode(hlength)) + 7
		} else {
			matchlen = uint32(lenheader)
		}
		matchlen += 2

		var matchoffset uint32
		if slot < 3 {
			matchoffset = d.lru[slot]
			d.lru[slot] = d.lru[0]
			d.lru[0] = matchoffset
		} else {
			offsetbits := footerBits[slot]
			var verbatimbits, alignedbits uint32
			if offsetbits > 0 {
				if haligned != nil && offsetbits >= 3 {
					verbatimbits = uint32(d.getBits(offsetbits-3)) * 8
					alignedbits = uint32(d.getCode(haligned))
				} else {
					verbatimbits = uint32(d.getBits(offsetbits))
				}
			}
			matchoffset = basePosition[slot] + verbatimbits + alignedbits - 2
			d.lru[2] = d.lru[1]
			d.lru[1] = d.lru[0]
			d.lru[0] = matchoffset
		}

		if matchoffset == 0 || matchoffset > i {
			return int(i - start), ErrCorrupt
		}
		for j := uint32(0); j < matchlen; j++ {
			d.window = append(d.window, d.window[i+j-matchoffset])
		}
		i += matchlen
	}
	return int(end - start), nil
}

func (d *Decoder) readBlock(start, maxSize uint32) (int, error) {
	blockType, size, err := d.readBlockHeader()
	if err != nil {
		return 0, err
	}
	if size > maxSize {
		size = maxSize
	}

	if blockType == uncompressedBlock {
		if size%2 == 1 {
			d.unaligned = true
		}
		for j := uint32(0); j < size; j++ {
			b, ok := d.readByte()
			if !ok {
				return int(j), ErrCorrupt
			}
			d.window = append(d.window, b)
		}
		return int(size), nil
	}

	hmain, hlength, haligned, err := d.readTrees(blockType == alignedOffsetBlock)
	if err != nil {
		return 0, err
	}
	return d.readCompressedBlock(start, size, hmain, hlength, haligned)
}
