package chm

import (
	"fmt"
	"io"
	"strings"
)

const maxPathLen = 512

// readDirectory walks the PMGL chain starting at itsp.IndexHead and returns
// the flattened entry table in file order (§4.3).
func readDirectory(r io.ReaderAt, itsf itsfHeader, itsp itspHeader) ([]Entry, error) {
	var entries []Entry
	dirStart := int64(itsf.DirOffset) + int64(itsp.HeaderLen)

	page := itsp.IndexHead
	seen := make(map[int32]bool)
	for page != -1 {
		if seen[page] {
			return nil, fmt.Errorf("PMGL chain cycle at block %d: %w", page, ErrMalformedHeader)
		}
		seen[page] = true

		buf := make([]byte, itsp.BlockLen)
		off := dirStart + int64(page)*int64(itsp.BlockLen)
		if _, err := io.ReadFull(io.NewSectionReader(r, off, int64(itsp.BlockLen)), buf); err != nil {
			return nil, fmt.Errorf("reading PMGL page %d: %w", page, err)
		}

		hdr, err := parsePMGLHeader(buf, itsp.BlockLen)
		if err != nil {
			return nil, fmt.Errorf("PMGL page %d: %w", page, err)
		}

		pageEntries, err := parsePMGLEntries(buf[pmglHeaderLen:], hdr.FreeSpace)
		if err != nil {
			return nil, fmt.Errorf("PMGL page %d entries: %w", page, err)
		}
		entries = append(entries, pageEntries...)

		page = hdr.BlockNext
	}
	return entries, nil
}

// parsePMGLEntries decodes the back-to-back entry records in a page body,
// stopping freeSpace bytes before the end (§4.3).
func parsePMGLEntries(body []byte, freeSpace uint32) ([]Entry, error) {
	limit := len(body) - int(freeSpace)
	if limit < 0 {
		return nil, fmt.Errorf("negative entry region: %w", ErrMalformedHeader)
	}
	c := newCursor(body[:limit])
	var out []Entry
	for c.pos < len(c.b) {
		pathLen := c.cword()
		if c.err != nil {
			break
		}
		if pathLen > maxPathLen {
			return nil, fmt.Errorf("entry path length %d exceeds %d: %w", pathLen, maxPathLen, ErrMalformedHeader)
		}
		path := c.bytes(int(pathLen))
		ns := c.cword()
		start := c.cword()
		length := c.cword()
		if c.err != nil {
			return nil, fmt.Errorf("entry fields: %w", c.err)
		}
		p := string(path)
		out = append(out, Entry{
			Path:      p,
			Namespace: Namespace(ns),
			Start:     start,
			Length:    length,
			Flags:     classify(p),
		})
	}
	return out, nil
}

// findWellKnown looks up one of the three well-known compression metadata
// entries by case-insensitive path comparison, returning the first match
// found in file order (matching the original reference implementation,
// which never checks for duplicates).
func findWellKnown(entries []Entry, path string) (Entry, bool) {
	for _, e := range entries {
		if strings.EqualFold(e.Path, path) {
			return e, true
		}
	}
	return Entry{}, false
}
