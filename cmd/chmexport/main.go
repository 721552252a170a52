// Command chmexport streams a manifest of every file entry in a CHM
// archive, one line per entry giving its length and xxHash64 content
// digest, in the style of a checksum file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/go-chm/chm"
)

func main() {
	fset := flag.NewFlagSet("chmexport", flag.ExitOnError)
	fset.Usage = func() { usage(fset) }
	fset.Parse(os.Args[1:])

	if fset.NArg() != 1 {
		usage(fset)
		os.Exit(2)
	}

	if err := run(fset.Arg(0), os.Stdout); err != nil {
		log.Fatalf("chmexport: %v", err)
	}
}

func run(archivePath string, w *os.File) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	rd, err := chm.Open(f)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer rd.Close()

	bw := bufio.NewWriter(w)

	var outerErr error
	rd.Enumerate(chm.EntryFilter(chm.FlagFiles), func(e chm.Entry) bool {
		buf := make([]byte, e.Length)
		n, err := rd.Retrieve(e, buf, 0)
		if err != nil {
			outerErr = fmt.Errorf("retrieving %s: %w", e.Path, err)
			return false
		}
		digest := xxhash.Sum64(buf[:n])
		fmt.Fprintf(bw, "%016x  %10d  %s\n", digest, n, strings.TrimPrefix(e.Path, "/"))
		return true
	})
	if outerErr != nil {
		return outerErr
	}
	return bw.Flush()
}

func usage(fset *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, "usage: chmexport <archive.chm> > manifest.txt\n\n")
	fset.PrintDefaults()
}
