package chm

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// mmapSource is a zero-copy io.ReaderAt over a memory-mapped file, offered
// as an alternative to os.File's syscall-per-read path for large archives
// (§4.1: "Callers must not assume the source is seekable" — this
// implementation never seeks at all).
type mmapSource struct {
	data []byte
}

// OpenMmap memory-maps path read-only and returns an io.ReaderAt backed by
// the mapping along with a close function that unmaps it.
func OpenMmap(path string) (*mmapSource, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.Size() == 0 {
		return &mmapSource{}, func() error { return nil }, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	m := &mmapSource{data: data}
	return m, func() error {
		if m.data == nil {
			return nil
		}
		err := unix.Munmap(m.data)
		m.data = nil
		return err
	}, nil
}

func (m *mmapSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, errors.New("chm: mmap read past end of file")
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, errors.New("chm: mmap short read")
	}
	return n, nil
}

// BumpRlimitNOFILE raises the process's open-file-descriptor limit to the
// kernel maximum, for tools that open many archive entries concurrently
// (cmd/chmextract).
func BumpRlimitNOFILE() error {
	var fileMax, nrOpen uint64
	{
		b, err := os.ReadFile("/proc/sys/fs/file-max")
		if err != nil {
			return err
		}
		fileMax, err = strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
		if err != nil {
			return err
		}
	}
	{
		b, err := os.ReadFile("/proc/sys/fs/nr_open")
		if err != nil {
			return err
		}
		nrOpen, err = strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
		if err != nil {
			return err
		}
	}
	max := fileMax
	if nrOpen < max {
		max = nrOpen
	}
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &unix.Rlimit{Cur: max, Max: max})
}
