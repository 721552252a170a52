package chm

import "errors"

// Error kinds returned by Open and Retrieve. Use errors.Is to test for them;
// most errors are wrapped with fmt.Errorf's %w for context, so a sentinel
// comparison must go through errors.Is rather than ==.
var (
	// ErrMalformedHeader is returned when a signature, version, or bounded
	// field in the ITSF/ITSP/PMGL/reset-table/control-data layout is out of
	// range.
	ErrMalformedHeader = errors.New("chm: malformed header")

	// ErrShortRead is returned when a header or directory record runs past
	// the bytes read for it, and by Retrieve when a compressed block cannot
	// be read in full or none of an uncompressed entry's requested bytes can
	// be read. Other short reads of the byte source (headers and directory
	// pages during Open, reset-table offsets during Retrieve) surface as the
	// underlying io error, such as io.ErrUnexpectedEOF.
	ErrShortRead = errors.New("chm: short read")

	// ErrDecodeFailed is returned when the LZX primitive rejects its input.
	ErrDecodeFailed = errors.New("chm: lzx decode failed")

	// ErrMissingCompression names the case where one of the three
	// well-known compression entries is absent or misplaced. Neither Open
	// nor Retrieve returns it: Open disables compression instead (see
	// Reader.Compressed), and compressed retrieves then return 0 bytes.
	ErrMissingCompression = errors.New("chm: missing compression metadata")

	// ErrClosed is returned by Retrieve on a Reader after Close.
	ErrClosed = errors.New("chm: reader closed")
)
