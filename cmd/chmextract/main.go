// Command chmextract extracts entries from a CHM archive onto disk.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chm/chm"
)

func main() {
	fset := flag.NewFlagSet("chmextract", flag.ExitOnError)
	outDir := fset.String("o", ".", "output directory")
	all := fset.Bool("all", false, "extract every entry instead of the ones named on the command line")
	jobs := fset.Int("j", 4, "concurrent extraction jobs with -all")
	fset.Usage = func() { usage(fset) }
	fset.Parse(os.Args[1:])

	args := fset.Args()
	if len(args) < 1 || (!*all && len(args) < 2) {
		usage(fset)
		os.Exit(2)
	}
	archivePath := args[0]
	wanted := args[1:]

	if err := chm.BumpRlimitNOFILE(); err != nil {
		log.Printf("chmextract: bumping RLIMIT_NOFILE: %v (continuing)", err)
	}

	if err := run(archivePath, *outDir, wanted, *all, *jobs); err != nil {
		log.Fatalf("chmextract: %v", err)
	}
}

func run(archivePath, outDir string, wanted []string, all bool, jobs int) error {
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

	var targets []chm.Entry
	if all {
		rd.Enumerate(chm.EntryFilter(chm.FlagFiles), func(e chm.Entry) bool {
			targets = append(targets, e)
			return true
		})
	} else {
		for _, path := range wanted {
			e, ok := rd.Lookup(path)
			if !ok {
				return fmt.Errorf("entry %q not found", path)
			}
			targets = append(targets, e)
		}
	}

	if !all {
		for _, e := range targets {
			if err := extractOne(rd, e, outDir); err != nil {
				return fmt.Errorf("extracting %s: %w", e.Path, err)
			}
		}
		return nil
	}

	// -all extracts concurrently: jobs workers each open their own Reader
	// over the same shared, read-only file and claim targets one at a time
	// off a shared atomic counter, so no single Reader is ever touched from
	// more than one goroutine and no two workers race on the same index.
	var next atomic.Int32
	var wg sync.WaitGroup
	errs := make([]error, jobs)
	for w := 0; w < jobs; w++ {
		wg.Add(1)
		w := w
		go func() {
			defer wg.Done()
			g2, err := chm.Open(f)
			if err != nil {
				errs[w] = err
				return
			}
			defer g2.Close()
			for {
				i := next.Add(1) - 1
				if int(i) >= len(targets) {
					return
				}
				e := targets[i]
				if err := extractOne(g2, e, outDir); err != nil {
					errs[w] = fmt.Errorf("extracting %s: %w", e.Path, err)
					return
				}
			}
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func extractOne(rd *chm.Reader, e chm.Entry, outDir string) error {
	rel := strings.TrimPrefix(e.Path, "/")
	dst := filepath.Join(outDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	buf := make([]byte, e.Length)
	n, err := rd.Retrieve(e, buf, 0)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, buf[:n], 0o644)
}

func usage(fset *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, "usage: chmextract [-o dir] <archive.chm> <path>...\n       chmextract -all [-o dir] [-j n] <archive.chm>\n\n")
	fset.PrintDefaults()
}
