package chm

import (
	"fmt"
	"io"
)

// Reader is an open CHM archive handle (§3 "Archive handle"). It is not
// safe for concurrent use: the cache, the LZX decoder memo and the
// underlying reader are all mutated by Retrieve (§5).
type Reader struct {
	r io.ReaderAt

	itsf itsfHeader
	itsp itspHeader

	index *entryIndex

	compressed   bool
	resetEntry   Entry
	controlEntry Entry
	contentEntry Entry
	rt           resetTable
	cd           controlData

	dec    *sequentialDecoder
	cacheN int

	closed bool
}

// Open parses the ITSF and ITSP headers and the full directory of r,
// locates the three well-known compression-metadata entries, and returns a
// ready-to-use Reader. Any parse or read failure during Open releases all
// resources and returns a non-nil error (§4.7).
func Open(r io.ReaderAt) (*Reader, error) {
	itsfBuf := make([]byte, itsfHeaderLenV3)
	if _, err := io.ReadFull(io.NewSectionReader(r, 0, itsfHeaderLenV3), itsfBuf); err != nil {
		return nil, fmt.Errorf("reading ITSF header: %w", err)
	}
	itsf, err := parseITSFHeader(itsfBuf)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	itspBuf := make([]byte, itspHeaderLen)
	if _, err := io.ReadFull(io.NewSectionReader(r, int64(itsf.DirOffset), itspHeaderLen), itspBuf); err != nil {
		return nil, fmt.Errorf("reading ITSP header: %w", err)
	}
	itsp, err := parseITSPHeader(itspBuf)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	entries, err := readDirectory(r, itsf, itsp)
	if err != nil {
		return nil, fmt.Errorf("open: reading directory: %w", err)
	}

	rdr := &Reader{
		r:      r,
		itsf:   itsf,
		itsp:   itsp,
		index:  newEntryIndex(entries),
		cacheN: defaultCacheCapacity,
	}

	if err := rdr.wireCompression(); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	return rdr, nil
}

// wireCompression locates the three well-known compression entries and, if
// all are present and uncompressed themselves, reads the reset table and
// LZX control data and initializes the sequential decoder driver. Missing
// or paradoxical (compressed) metadata disables compression gracefully
// rather than failing Open (§4.3, §7).
func (rd *Reader) wireCompression() error {
	resetEntry, ok1 := findWellKnown(rd.index.All(), resetTablePath)
	controlEntry, ok2 := findWellKnown(rd.index.All(), controlDataPath)
	contentEntry, ok3 := findWellKnown(rd.index.All(), contentPath)
	if !ok1 || !ok2 || !ok3 {
		debugf("chm: compression metadata entry missing, disabling compression")
		return nil
	}
	if resetEntry.Namespace != NamespaceUncompressed || controlEntry.Namespace != NamespaceUncompressed ||
		contentEntry.Namespace != NamespaceUncompressed {
		debugf("chm: compression metadata entry itself compressed, disabling compression")
		return nil
	}

	rtBuf := make([]byte, resetTableLen)
	rtOff := int64(rd.itsf.DataOffset) + int64(resetEntry.Start)
	if _, err := io.ReadFull(io.NewSectionReader(rd.r, rtOff, resetTableLen), rtBuf); err != nil {
		debugf("chm: reading reset table: %v, disabling compression", err)
		return nil
	}
	rt, err := parseResetTable(rtBuf)
	if err != nil {
		debugf("chm: parsing reset table: %v, disabling compression", err)
		return nil
	}

	cdBuf := make([]byte, controlDataMax)
	cdOff := int64(rd.itsf.DataOffset) + int64(controlEntry.Start)
	n, err := io.ReadFull(io.NewSectionReader(rd.r, cdOff, controlDataMax), cdBuf)
	if err != nil {
		n, err = io.ReadFull(io.NewSectionReader(rd.r, cdOff, controlDataMin), cdBuf[:controlDataMin])
		if err != nil {
			debugf("chm: reading LZX control data: %v, disabling compression", err)
			return nil
		}
	}
	cd, err := parseControlData(cdBuf[:n])
	if err != nil {
		debugf("chm: parsing LZX control data: %v, disabling compression", err)
		return nil
	}

	rbc := resetBlockCount(cd)
	if rbc == 0 {
		debugf("chm: reset_blkcount computed as 0, disabling compression")
		return nil
	}

	rd.resetEntry = resetEntry
	rd.controlEntry = controlEntry
	rd.contentEntry = contentEntry
	rd.rt = rt
	rd.cd = cd
	rd.compressed = true
	rd.dec = newSequentialDecoder(rd.r, int64(rd.itsf.DataOffset), resetEntry, contentEntry, rt, rbc, rd.cacheN)
	return nil
}

// Close tears down decoder state. It is idempotent.
func (rd *Reader) Close() error {
	rd.closed = true
	rd.dec = nil
	return nil
}

// Entries returns the archive's directory in file order.
func (rd *Reader) Entries() []Entry {
	return rd.index.All()
}

// Lookup finds an entry by exact, case-insensitive path.
func (rd *Reader) Lookup(path string) (Entry, bool) {
	return rd.index.Lookup(path)
}

// Compressed reports whether compressed retrieves are usable; it is false
// when compression metadata was missing or malformed (§4.3, §7).
func (rd *Reader) Compressed() bool {
	return rd.compressed
}

// SetCacheSize changes the decompression block cache's capacity, rehashing
// surviving entries into the new modulus (§4.5, §6.2). It is a no-op if the
// archive has no usable compression.
func (rd *Reader) SetCacheSize(n int) {
	rd.cacheN = n
	if rd.dec != nil {
		rd.dec.resize(n)
	}
}

// EntryFilter selects entries by their classification flags (§3) during
// Enumerate; a zero value matches everything.
type EntryFilter EntryFlag

// Enumerate invokes fn for every entry whose flags intersect filter (or
// every entry, if filter is zero), stopping early if fn returns false. This
// supplements the core retrieve API with the original library's filtered
// enumeration entry point (SPEC_FULL.md §13).
func (rd *Reader) Enumerate(filter EntryFilter, fn func(Entry) bool) {
	for _, e := range rd.index.All() {
		if filter != 0 && EntryFlag(filter)&e.Flags == 0 {
			continue
		}
		if !fn(e) {
			return
		}
	}
}
