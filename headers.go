package chm

import (
	"fmt"
)

const (
	itsfHeaderLenV2 = 0x58
	itsfHeaderLenV3 = 0x60
	itspHeaderLen   = 0x54
	pmglHeaderLen   = 0x14
	resetTableLen   = 0x28
	controlDataMin  = 0x18
	controlDataMax  = 0x1c

	lzxcScale = 0x8000
)

// itsfHeader is the outer framing header (§6.1).
type itsfHeader struct {
	Version     int32
	HeaderLen   int32
	LastMod     uint32
	LangID      uint32
	DirUUID     [16]byte
	StreamUUID  [16]byte
	DirOffset   uint64
	DirLen      uint64
	DataOffset  uint64
}

func parseITSFHeader(b []byte) (itsfHeader, error) {
	var h itsfHeader
	c := newCursor(b)
	sig := c.bytes(4)
	if c.err != nil || string(sig) != "ITSF" {
		return h, fmt.Errorf("ITSF signature: %w", ErrMalformedHeader)
	}
	h.Version = c.int32()
	h.HeaderLen = c.int32()
	_ = c.int32() // reserved
	h.LastMod = c.uint32()
	h.LangID = c.uint32()
	h.DirUUID = c.uuid()
	h.StreamUUID = c.uuid()
	_ = c.uint64() // unknown_offset
	_ = c.uint64() // unknown_len
	h.DirOffset = c.uint64()
	h.DirLen = c.uint64()

	if h.Version != 2 && h.Version != 3 {
		return h, fmt.Errorf("ITSF version %d: %w", h.Version, ErrMalformedHeader)
	}
	if h.Version == 3 {
		h.DataOffset = c.uint64()
	}
	if c.err != nil {
		return h, fmt.Errorf("ITSF fields: %w", c.err)
	}
	if h.DirOffset > 0xffffffff || h.DirLen > 0xffffffff {
		return h, fmt.Errorf("ITSF dir_offset/dir_len out of 32-bit range: %w", ErrMalformedHeader)
	}
	if h.Version == 2 {
		h.DataOffset = h.DirOffset + h.DirLen
	}
	return h, nil
}

// itspHeader is the directory framing header (§6.1).
type itspHeader struct {
	HeaderLen      int32
	BlockLen       uint32
	BlockIdxIntvl  int32
	IndexDepth     int32
	IndexRoot      int32
	IndexHead      int32
	NumBlocks      uint32
	LangID         uint32
	SystemUUID     [16]byte
}

func parseITSPHeader(b []byte) (itspHeader, error) {
	var h itspHeader
	c := newCursor(b)
	sig := c.bytes(4)
	if c.err != nil || string(sig) != "ITSP" {
		return h, fmt.Errorf("ITSP signature: %w", ErrMalformedHeader)
	}
	version := c.int32()
	h.HeaderLen = c.int32()
	_ = c.int32() // reserved
	h.BlockLen = c.uint32()
	h.BlockIdxIntvl = c.int32()
	h.IndexDepth = c.int32()
	h.IndexRoot = c.int32()
	h.IndexHead = c.int32()
	_ = c.int32() // reserved
	h.NumBlocks = c.uint32()
	_ = c.int32() // reserved
	h.LangID = c.uint32()
	h.SystemUUID = c.uuid()
	c.bytes(16) // reserved

	if c.err != nil {
		return h, fmt.Errorf("ITSP fields: %w", c.err)
	}
	if version != 1 {
		return h, fmt.Errorf("ITSP version %d: %w", version, ErrMalformedHeader)
	}
	if h.HeaderLen != itspHeaderLen {
		return h, fmt.Errorf("ITSP header_len %#x: %w", h.HeaderLen, ErrMalformedHeader)
	}
	if h.BlockLen == 0 {
		return h, fmt.Errorf("ITSP block_len == 0: %w", ErrMalformedHeader)
	}
	if h.IndexRoot <= -1 {
		h.IndexRoot = h.IndexHead
	}
	return h, nil
}

// pmglHeader is a directory page header (§6.1).
type pmglHeader struct {
	FreeSpace  uint32
	BlockPrev  int32
	BlockNext  int32
}

func parsePMGLHeader(b []byte, blockLen uint32) (pmglHeader, error) {
	var h pmglHeader
	c := newCursor(b)
	sig := c.bytes(4)
	if c.err != nil || string(sig) != "PMGL" {
		return h, fmt.Errorf("PMGL signature: %w", ErrMalformedHeader)
	}
	h.FreeSpace = c.uint32()
	_ = c.uint32() // unknown
	h.BlockPrev = c.int32()
	h.BlockNext = c.int32()
	if c.err != nil {
		return h, fmt.Errorf("PMGL fields: %w", c.err)
	}
	if h.FreeSpace > blockLen-pmglHeaderLen {
		return h, fmt.Errorf("PMGL free_space %d exceeds block capacity: %w", h.FreeSpace, ErrMalformedHeader)
	}
	return h, nil
}

// resetTable is the LZXC reset table summary (§3, §6.1).
type resetTable struct {
	BlockCount      uint32
	TableOffset     uint32
	UncompressedLen int64
	CompressedLen   int64
	BlockLen        int64
}

func parseResetTable(b []byte) (resetTable, error) {
	var rt resetTable
	c := newCursor(b)
	version := c.uint32()
	rt.BlockCount = c.uint32()
	_ = c.uint32() // unknown
	rt.TableOffset = c.uint32()
	rt.UncompressedLen = c.int64()
	rt.CompressedLen = c.int64()
	rt.BlockLen = c.int64()
	if c.err != nil {
		return rt, fmt.Errorf("reset table fields: %w", c.err)
	}
	if version != 2 {
		return rt, fmt.Errorf("reset table version %d: %w", version, ErrMalformedHeader)
	}
	if rt.UncompressedLen < 0 || rt.UncompressedLen > 0xffffffff ||
		rt.CompressedLen < 0 || rt.CompressedLen > 0xffffffff {
		return rt, fmt.Errorf("reset table lengths out of 32-bit range: %w", ErrMalformedHeader)
	}
	if rt.BlockLen <= 0 {
		return rt, fmt.Errorf("reset table block_len <= 0: %w", ErrMalformedHeader)
	}
	return rt, nil
}

// controlData is the LZXC control data (§3, §6.1).
type controlData struct {
	Version         uint32
	ResetInterval   uint32
	WindowSize      uint32
	WindowsPerReset uint32
}

func parseControlData(b []byte) (controlData, error) {
	var cd controlData
	c := newCursor(b)
	_ = c.uint32() // size
	sig := c.bytes(4)
	if c.err != nil || string(sig) != "LZXC" {
		return cd, fmt.Errorf("LZXC signature: %w", ErrMalformedHeader)
	}
	cd.Version = c.uint32()
	cd.ResetInterval = c.uint32()
	cd.WindowSize = c.uint32()
	cd.WindowsPerReset = c.uint32()
	if c.err != nil {
		return cd, fmt.Errorf("LZXC fields: %w", c.err)
	}
	if cd.Version == 2 {
		cd.ResetInterval *= lzxcScale
		cd.WindowSize *= lzxcScale
	}
	if cd.WindowSize < 2 {
		return cd, fmt.Errorf("LZXC window_size < 2: %w", ErrMalformedHeader)
	}
	if cd.ResetInterval%(cd.WindowSize/2) != 0 {
		return cd, fmt.Errorf("LZXC reset_interval not a multiple of window_size/2: %w", ErrMalformedHeader)
	}
	return cd, nil
}

// resetBlockCount computes the number of compressed blocks between LZX
// state resets (§3).
func resetBlockCount(cd controlData) uint32 {
	return cd.ResetInterval / (cd.WindowSize / 2) * cd.WindowsPerReset
}
