package chm

import (
	"bytes"
	"testing"

	"github.com/go-chm/chm/internal/chmtest"
)

func TestRetrieveUncompressedRoundTrip(t *testing.T) {
	b := chmtest.New()
	b.AddUncompressedFile("/file.txt", []byte("hello"))
	r, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	rd, err := Open(r)
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()

	e, ok := rd.Lookup("/file.txt")
	if !ok {
		t.Fatal("entry not found")
	}

	dst := make([]byte, 5)
	n, err := rd.Retrieve(e, dst, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(dst[:n]) != "hello" {
		t.Fatalf("retrieve(0,5) = %q, want %q", dst[:n], "hello")
	}

	dst = make([]byte, 10)
	n, err = rd.Retrieve(e, dst, 2)
	if err != nil {
		t.Fatal(err)
	}
	if string(dst[:n]) != "llo" {
		t.Fatalf("retrieve(2,10) = %q, want %q (clipped)", dst[:n], "llo")
	}
}

func TestRetrieveOffsetAtLengthReturnsZero(t *testing.T) {
	b := chmtest.New()
	b.AddUncompressedFile("/file.txt", []byte("hello"))
	r, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	rd, err := Open(r)
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()

	e, _ := rd.Lookup("/file.txt")
	dst := make([]byte, 10)
	n, err := rd.Retrieve(e, dst, 5)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("retrieve at offset == length: n = %d, want 0", n)
	}
}

func TestRetrieveCompressedAcrossResetBoundary(t *testing.T) {
	block0 := bytes.Repeat([]byte{'A'}, 0x100)
	block1 := bytes.Repeat([]byte{'B'}, 0x100)

	b := chmtest.New()
	b.SetCompressedBlocks([][]byte{block0, block1}, 2) // reset_blkcount = 2
	b.AddCompressedFile("/big.bin", 0, uint64(len(block0)+len(block1)))
	r, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	rd, err := Open(r)
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()
	if !rd.Compressed() {
		t.Fatal("expected compression to be wired up")
	}

	e, ok := rd.Lookup("/big.bin")
	if !ok {
		t.Fatal("entry not found")
	}

	// Read block 1's first byte first: forces a reset, replays block 0
	// (caching it as a side effect), then decodes block 1.
	dst := make([]byte, 1)
	n, err := rd.Retrieve(e, dst, uint64(len(block0)))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || dst[0] != 'B' {
		t.Fatalf("retrieve at block 1 start = %q, want 'B'", dst[:n])
	}

	// Block 0 should now be servable from cache.
	n, err = rd.Retrieve(e, dst, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || dst[0] != 'A' {
		t.Fatalf("retrieve at block 0 start = %q, want 'A'", dst[:n])
	}

	// Full round trip across both blocks, concatenated, regardless of
	// partitioning.
	full := make([]byte, len(block0)+len(block1))
	n, err = rd.Retrieve(e, full, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(full) {
		t.Fatalf("full retrieve produced %d bytes, want %d", n, len(full))
	}
	want := append(append([]byte{}, block0...), block1...)
	if !bytes.Equal(full, want) {
		t.Fatalf("full retrieve mismatch")
	}
}

func TestRetrieveCompressedPartitionInvariance(t *testing.T) {
	block0 := bytes.Repeat([]byte{'x'}, 0x80)
	block1 := bytes.Repeat([]byte{'y'}, 0x80)
	block2 := bytes.Repeat([]byte{'z'}, 0x80)

	b := chmtest.New()
	b.SetCompressedBlocks([][]byte{block0, block1, block2}, 2)
	total := len(block0) + len(block1) + len(block2)
	b.AddCompressedFile("/f", 0, uint64(total))
	r, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	rd, err := Open(r)
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()
	e, _ := rd.Lookup("/f")

	whole := make([]byte, total)
	if _, err := rd.Retrieve(e, whole, 0); err != nil {
		t.Fatal(err)
	}

	// Now retrieve via an uneven partition and compare.
	partitioned := make([]byte, 0, total)
	for _, k := range []int{17, 100, 50, total} {
		if len(partitioned) >= total {
			break
		}
		chunk := make([]byte, k)
		n, err := rd.Retrieve(e, chunk, uint64(len(partitioned)))
		if err != nil {
			t.Fatal(err)
		}
		partitioned = append(partitioned, chunk[:n]...)
	}
	if !bytes.Equal(whole, partitioned) {
		t.Fatalf("partitioned retrieve diverged from whole retrieve")
	}
}

func TestOpenWithoutCompressionMetadataDegradesGracefully(t *testing.T) {
	b := chmtest.New()
	b.AddUncompressedFile("/plain.txt", []byte("ok"))
	r, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	rd, err := Open(r)
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()

	if rd.Compressed() {
		t.Fatal("expected compression disabled when metadata entries are absent")
	}
	e, _ := rd.Lookup("/plain.txt")
	dst := make([]byte, 2)
	n, err := rd.Retrieve(e, dst, 0)
	if err != nil || string(dst[:n]) != "ok" {
		t.Fatalf("uncompressed retrieve should still work: %q, err=%v", dst[:n], err)
	}
}
