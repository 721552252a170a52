package chm

import (
	"bytes"
	"testing"

	"github.com/go-chm/chm/internal/chmtest"
)

func TestReadDirectoryIndexRootMinusOneUsesIndexHead(t *testing.T) {
	b := chmtest.New()
	b.AddUncompressedFile("/a.txt", []byte("a"))
	b.AddUncompressedFile("/b.txt", []byte("b"))
	r, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	rd, err := Open(r)
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()

	if _, ok := rd.Lookup("/a.txt"); !ok {
		t.Fatal("/a.txt missing from single-page directory")
	}
	if _, ok := rd.Lookup("/b.txt"); !ok {
		t.Fatal("/b.txt missing from single-page directory")
	}
}

func TestReadDirectoryTruncatedArchiveFails(t *testing.T) {
	b := chmtest.New()
	b.AddUncompressedFile("/a.txt", []byte("a"))
	r, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	full := make([]byte, r.Len())
	if _, err := r.ReadAt(full, 0); err != nil {
		t.Fatal(err)
	}
	truncated := bytes.NewReader(full[:len(full)/2])

	if _, err := Open(truncated); err == nil {
		t.Fatal("expected Open to fail on a truncated archive")
	}
}

func TestFindWellKnownFirstMatchWins(t *testing.T) {
	entries := []Entry{
		{Path: "/dup", Start: 1},
		{Path: "/DUP", Start: 2},
	}
	got, ok := findWellKnown(entries, "/dup")
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Start != 1 {
		t.Fatalf("expected first match (Start=1) to win, got Start=%d", got.Start)
	}
}

func TestFindWellKnownNoMatch(t *testing.T) {
	entries := []Entry{{Path: "/other"}}
	if _, ok := findWellKnown(entries, "/missing"); ok {
		t.Fatal("expected no match")
	}
}

func TestParsePMGLEntriesNegativeFreeSpaceRejected(t *testing.T) {
	body := make([]byte, 10)
	if _, err := parsePMGLEntries(body, 20); err == nil {
		t.Fatal("expected error when free_space exceeds body length")
	}
}
