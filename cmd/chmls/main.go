// Command chmls lists the entries of a CHM archive.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-chm/chm"
)

func main() {
	fset := flag.NewFlagSet("chmls", flag.ExitOnError)
	onlyFiles := fset.Bool("f", false, "list files only")
	onlyDirs := fset.Bool("d", false, "list directories only")
	color := fset.Bool("color", false, "colorize directory entries")
	fset.Usage = func() { usage(fset) }
	fset.Parse(os.Args[1:])

	if fset.NArg() != 1 {
		usage(fset)
		os.Exit(2)
	}

	f, err := os.Open(fset.Arg(0))
	if err != nil {
		log.Fatalf("chmls: %v", err)
	}
	defer f.Close()

	rd, err := chm.Open(f)
	if err != nil {
		log.Fatalf("chmls: opening archive: %v", err)
	}
	defer rd.Close()

	var filter chm.EntryFilter
	switch {
	case *onlyFiles:
		filter = chm.EntryFilter(chm.FlagFiles)
	case *onlyDirs:
		filter = chm.EntryFilter(chm.FlagDirs)
	}

	rd.Enumerate(filter, func(e chm.Entry) bool {
		printEntry(e, *color)
		return true
	})
}

func printEntry(e chm.Entry, color bool) {
	if !color {
		fmt.Printf("%10d  %s\n", e.Length, e.Path)
		return
	}
	const (
		blue = "\x1b[34m"
		rst  = "\x1b[0m"
	)
	if e.Flags&chm.FlagDirs != 0 {
		fmt.Printf("%10d  %s%s%s\n", e.Length, blue, e.Path, rst)
	} else {
		fmt.Printf("%10d  %s\n", e.Length, e.Path)
	}
}

func usage(fset *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, "usage: chmls [-f|-d] [-color] <archive.chm>\n\n")
	fset.PrintDefaults()
}
