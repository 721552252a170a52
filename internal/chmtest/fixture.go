// Package chmtest synthesizes small, valid-enough CHM archives in memory
// for exercising the archive engine's parsing and retrieve logic without
// depending on any real-world .chm file on disk.
//
// Compressed fixtures use the LZX "uncompressed block" type (block type 3),
// which stores its payload as raw bytes rather than Huffman-coded symbols.
// This lets tests drive the sequential decoder driver, the block cache and
// the reset-interval logic precisely, without needing a full LZX encoder.
package chmtest

import (
	"bytes"
	"encoding/binary"
)

const (
	itsfHeaderLen = 0x60
	itspHeaderLen = 0x54
	pmglHeaderLen = 0x14
	resetTableLen = 0x28
	controlDataLen = 0x18
)

// File describes one directory entry to embed in the fixture.
type File struct {
	Path      string
	Namespace byte // 0 = uncompressed, 1 = compressed
	Start     uint64
	Length    uint64
}

// Builder assembles a synthetic CHM archive byte-for-byte.
type Builder struct {
	files []File

	// Raw bytes backing namespace-0 entries, concatenated in the data
	// section right after the three well-known entries.
	uncompressedBlob []byte

	// Decompressed content of each LZX block, in order; each becomes one
	// reset-table block. All blocks must be the same length (blockLen)
	// except that this fixture builder does not exercise the "shorter
	// final block" edge case.
	blocks   [][]byte
	blockLen int

	resetBlkcount    uint32
	windowSize       uint32
	windowsPerReset  uint32
}

// New returns a Builder with a 0x8000-byte LZX window and one window per
// reset; SetCompressedBlocks sets how many blocks lie between resets.
func New() *Builder {
	return &Builder{
		windowSize:      0x8000,
		windowsPerReset: 1,
	}
}

// AddUncompressedFile embeds data as a namespace-0 entry at path.
func (b *Builder) AddUncompressedFile(path string, data []byte) {
	start := uint64(len(b.uncompressedBlob))
	b.uncompressedBlob = append(b.uncompressedBlob, data...)
	b.files = append(b.files, File{Path: path, Namespace: 0, Start: start, Length: uint64(len(data))})
}

// SetCompressedBlocks defines the logical content stream as a sequence of
// decompressed blocks, each as long as the first one (blockLen), and
// the number of such blocks between LZX resets.
func (b *Builder) SetCompressedBlocks(blocks [][]byte, resetBlkcount uint32) {
	b.blocks = blocks
	if len(blocks) > 0 {
		b.blockLen = len(blocks[0])
	}
	b.resetBlkcount = resetBlkcount
}

// AddCompressedFile adds a namespace-1 entry whose bytes are the logical
// range [start, start+length) of the content stream defined by
// SetCompressedBlocks.
func (b *Builder) AddCompressedFile(path string, start, length uint64) {
	b.files = append(b.files, File{Path: path, Namespace: 1, Start: start, Length: length})
}

type bitWriter struct {
	buf   []byte
	c     uint32
	nbits byte
}

func (w *bitWriter) putBits(v uint16, n byte) {
	w.c |= uint32(v) << (32 - uint32(w.nbits) - uint32(n))
	w.nbits += n
	for w.nbits >= 16 {
		word := uint16(w.c >> 16)
		w.buf = append(w.buf, byte(word), byte(word>>8))
		w.c <<= 16
		w.nbits -= 16
	}
}

func (w *bitWriter) flush() {
	if w.nbits > 0 {
		word := uint16(w.c >> 16)
		w.buf = append(w.buf, byte(word), byte(word>>8))
		w.c = 0
		w.nbits = 0
	}
}

// encodeUncompressedLZXBlock encodes one self-contained LZX block (header +
// LRU reload + raw payload) using block type 3 ("uncompressed"), which the
// decoder serves back verbatim.
func encodeUncompressedLZXBlock(data []byte, lru [3]uint32) []byte {
	w := &bitWriter{}
	w.putBits(3, 3) // block type = uncompressed
	w.putBits(0, 1) // full (32768-byte) flag: false
	w.putBits(uint16(len(data)), 16)
	w.flush()

	var lruBytes [12]byte
	binary.LittleEndian.PutUint32(lruBytes[0:4], lru[0])
	binary.LittleEndian.PutUint32(lruBytes[4:8], lru[1])
	binary.LittleEndian.PutUint32(lruBytes[8:12], lru[2])

	out := append(w.buf, lruBytes[:]...)
	out = append(out, data...)
	return out
}

// Build assembles the archive and returns a ReaderAt over it.
func (b *Builder) Build() (*bytes.Reader, error) {
	var ws bytes.Buffer

	// Pass 1: encode each LZX block and build the per-block compressed
	// byte ranges the reset table needs.
	var compressedBlob []byte
	blockStarts := make([]uint64, 0, len(b.blocks)+1)
	for _, blk := range b.blocks {
		blockStarts = append(blockStarts, uint64(len(compressedBlob)))
		enc := encodeUncompressedLZXBlock(blk, [3]uint32{1, 1, 1})
		compressedBlob = append(compressedBlob, enc...)
	}
	blockStarts = append(blockStarts, uint64(len(compressedBlob))) // sentinel for last block's upper bound

	// Directory: one PMGL page holding every file plus (if compressed
	// blocks are present) the three well-known entries.
	var dirEntries []File
	haveCompression := len(b.blocks) > 0
	var resetEntryStart, controlEntryStart, contentEntryStart uint64
	var dataSection []byte

	if haveCompression {
		resetEntryStart = 0
		rt := make([]byte, 0, resetTableLen+8*len(b.blocks))
		rt = append(rt, le32(2)...)                      // version
		rt = append(rt, le32(uint32(len(b.blocks)))...)   // block_count
		rt = append(rt, le32(0)...)                       // unknown
		rt = append(rt, le32(uint32(resetTableLen))...)   // table_offset (right after this header)
		total := 0
		for _, blk := range b.blocks {
			total += len(blk)
		}
		rt = append(rt, le64(uint64(total))...)                 // uncompressed_len
		rt = append(rt, le64(uint64(len(compressedBlob)))...)   // compressed_len
		rt = append(rt, le64(uint64(b.blockLen))...)            // block_len
		for _, s := range blockStarts[:len(b.blocks)] {
			rt = append(rt, le64(s)...)
		}
		dataSection = append(dataSection, rt...)

		controlEntryStart = uint64(len(dataSection))
		cd := make([]byte, 0, controlDataLen)
		cd = append(cd, le32(controlDataLen)...) // size
		cd = append(cd, []byte("LZXC")...)
		cd = append(cd, le32(1)...)                  // version (1: no scaling)
		cd = append(cd, le32(b.resetBlkcount*(b.windowSize/2)/b.windowsPerReset)...) // resetInterval
		cd = append(cd, le32(b.windowSize)...)
		cd = append(cd, le32(b.windowsPerReset)...)
		dataSection = append(dataSection, cd...)

		contentEntryStart = uint64(len(dataSection))
		dataSection = append(dataSection, compressedBlob...)

		dirEntries = append(dirEntries,
			File{Path: "::DataSpace/Storage/MSCompressed/Transform/{7FC28940-9D31-11D0-9B27-00A0C91E9C7C}/InstanceData/ResetTable", Namespace: 0, Start: resetEntryStart, Length: uint64(len(rt))},
			File{Path: "::DataSpace/Storage/MSCompressed/ControlData", Namespace: 0, Start: controlEntryStart, Length: uint64(len(cd))},
			File{Path: "::DataSpace/Storage/MSCompressed/Content", Namespace: 0, Start: contentEntryStart, Length: uint64(len(compressedBlob))},
		)
	}

	uncompressedBase := uint64(len(dataSection))
	dataSection = append(dataSection, b.uncompressedBlob...)
	for _, f := range b.files {
		if f.Namespace == 0 {
			f.Start += uncompressedBase
		}
		dirEntries = append(dirEntries, f)
	}

	pmglBody := encodePMGLEntries(dirEntries)
	pmglPage := make([]byte, pmglHeaderLen+len(pmglBody))
	copy(pmglPage[0:4], "PMGL")
	binary.LittleEndian.PutUint32(pmglPage[4:8], 0) // free_space: none, entries fill the page exactly
	binary.LittleEndian.PutUint32(pmglPage[8:12], 0)
	binary.LittleEndian.PutUint32(pmglPage[12:16], 0xffffffff) // block_prev = -1
	binary.LittleEndian.PutUint32(pmglPage[16:20], 0xffffffff) // block_next = -1
	copy(pmglPage[pmglHeaderLen:], pmglBody)

	dirOffset := uint64(itsfHeaderLen)
	dirLen := uint64(itspHeaderLen + len(pmglPage))
	dataOffset := dirOffset + dirLen

	itsf := make([]byte, itsfHeaderLen)
	copy(itsf[0:4], "ITSF")
	binary.LittleEndian.PutUint32(itsf[4:8], 3) // version
	binary.LittleEndian.PutUint32(itsf[8:12], itsfHeaderLen)
	binary.LittleEndian.PutUint32(itsf[12:16], 0)
	binary.LittleEndian.PutUint32(itsf[16:20], 0) // last_modified
	binary.LittleEndian.PutUint32(itsf[20:24], 0x409)
	// dir_uuid [24:40], stream_uuid [40:56] left zero
	binary.LittleEndian.PutUint64(itsf[56:64], 0) // unknown_offset
	binary.LittleEndian.PutUint64(itsf[64:72], 0) // unknown_len
	binary.LittleEndian.PutUint64(itsf[72:80], dirOffset)
	binary.LittleEndian.PutUint64(itsf[80:88], dirLen)
	binary.LittleEndian.PutUint64(itsf[88:96], dataOffset)

	itsp := make([]byte, itspHeaderLen)
	copy(itsp[0:4], "ITSP")
	binary.LittleEndian.PutUint32(itsp[4:8], 1) // version
	binary.LittleEndian.PutUint32(itsp[8:12], itspHeaderLen)
	binary.LittleEndian.PutUint32(itsp[12:16], 0)
	binary.LittleEndian.PutUint32(itsp[16:20], uint32(len(pmglPage))) // block_len
	binary.LittleEndian.PutUint32(itsp[20:24], 2)                    // blockidx_intvl
	binary.LittleEndian.PutUint32(itsp[24:28], 1)                    // index_depth
	binary.LittleEndian.PutUint32(itsp[28:32], 0xffffffff)           // index_root = -1
	binary.LittleEndian.PutUint32(itsp[32:36], 0)                    // index_head = block 0
	binary.LittleEndian.PutUint32(itsp[36:40], 0)
	binary.LittleEndian.PutUint32(itsp[40:44], 1) // num_blocks
	binary.LittleEndian.PutUint32(itsp[44:48], 0)
	binary.LittleEndian.PutUint32(itsp[48:52], 0x409)

	if _, err := ws.Write(itsf); err != nil {
		return nil, err
	}
	if _, err := ws.Write(itsp); err != nil {
		return nil, err
	}
	if _, err := ws.Write(pmglPage); err != nil {
		return nil, err
	}
	if _, err := ws.Write(dataSection); err != nil {
		return nil, err
	}

	return bytes.NewReader(ws.Bytes()), nil
}

func encodePMGLEntries(files []File) []byte {
	var buf []byte
	for _, f := range files {
		buf = append(buf, encodeCword(uint64(len(f.Path)))...)
		buf = append(buf, f.Path...)
		buf = append(buf, encodeCword(uint64(f.Namespace))...)
		buf = append(buf, encodeCword(f.Start)...)
		buf = append(buf, encodeCword(f.Length)...)
	}
	return buf
}

// encodeCword encodes v as base-128 big-endian, matching the decoder in
// unmarshal.go.
func encodeCword(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	var groups []byte
	for v > 0 {
		groups = append(groups, byte(v&0x7f))
		v >>= 7
	}
	// groups is least-significant-first; emit most-significant-first with
	// the continuation bit set on every byte but the last.
	out := make([]byte, len(groups))
	for i, g := range groups {
		out[len(groups)-1-i] = g
	}
	for i := 0; i < len(out)-1; i++ {
		out[i] |= 0x80
	}
	return out
}

func le32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func le64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}
