package chm

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseITSFHeaderV3(t *testing.T) {
	buf := make([]byte, itsfHeaderLenV3)
	copy(buf[0:4], "ITSF")
	binary.LittleEndian.PutUint32(buf[4:8], 3)
	binary.LittleEndian.PutUint32(buf[8:12], itsfHeaderLenV3)
	binary.LittleEndian.PutUint64(buf[72:80], 0x100)
	binary.LittleEndian.PutUint64(buf[80:88], 0x200)
	binary.LittleEndian.PutUint64(buf[88:96], 0x300)

	got, err := parseITSFHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	want := itsfHeader{
		Version:    3,
		HeaderLen:  itsfHeaderLenV3,
		DirOffset:  0x100,
		DirLen:     0x200,
		DataOffset: 0x300,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("parseITSFHeader mismatch (-want +got):\n%s", diff)
	}
}

func TestParseITSFHeaderV2DerivesDataOffset(t *testing.T) {
	buf := make([]byte, itsfHeaderLenV2)
	copy(buf[0:4], "ITSF")
	binary.LittleEndian.PutUint32(buf[4:8], 2)
	binary.LittleEndian.PutUint32(buf[8:12], itsfHeaderLenV2)
	binary.LittleEndian.PutUint64(buf[72:80], 0x100)
	binary.LittleEndian.PutUint64(buf[80:88], 0x200)

	got, err := parseITSFHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.DataOffset != 0x300 {
		t.Fatalf("DataOffset = %#x, want %#x (dir_offset + dir_len)", got.DataOffset, 0x300)
	}
}

func TestParseITSFHeaderBadSignature(t *testing.T) {
	buf := make([]byte, itsfHeaderLenV3)
	copy(buf[0:4], "XXXX")
	if _, err := parseITSFHeader(buf); err == nil {
		t.Fatal("expected error for bad signature")
	}
}

func TestParseITSPHeaderIndexRootDefaultsToHead(t *testing.T) {
	buf := make([]byte, itspHeaderLen)
	copy(buf[0:4], "ITSP")
	binary.LittleEndian.PutUint32(buf[4:8], 1)
	binary.LittleEndian.PutUint32(buf[8:12], itspHeaderLen)
	binary.LittleEndian.PutUint32(buf[16:20], 0x1000) // block_len
	binary.LittleEndian.PutUint32(buf[28:32], 0xffffffff) // index_root = -1
	binary.LittleEndian.PutUint32(buf[32:36], 7)          // index_head = 7

	got, err := parseITSPHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.IndexRoot != 7 {
		t.Fatalf("IndexRoot = %d, want 7 (from index_head)", got.IndexRoot)
	}
}

func TestParseControlDataVersion2Scales(t *testing.T) {
	buf := make([]byte, controlDataMax)
	binary.LittleEndian.PutUint32(buf[0:4], controlDataMax)
	copy(buf[4:8], "LZXC")
	binary.LittleEndian.PutUint32(buf[8:12], 2) // version
	binary.LittleEndian.PutUint32(buf[12:16], 2)  // resetInterval (pre-scale)
	binary.LittleEndian.PutUint32(buf[16:20], 1)  // windowSize (pre-scale)
	binary.LittleEndian.PutUint32(buf[20:24], 1)  // windowsPerReset

	got, err := parseControlData(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.ResetInterval != 2*lzxcScale || got.WindowSize != 1*lzxcScale {
		t.Fatalf("scaling not applied: %+v", got)
	}
}

func TestParsePMGLHeaderFreeSpaceBound(t *testing.T) {
	buf := make([]byte, pmglHeaderLen)
	copy(buf[0:4], "PMGL")
	binary.LittleEndian.PutUint32(buf[4:8], 1000) // free_space too large
	if _, err := parsePMGLHeader(buf, 100); err == nil {
		t.Fatal("expected error when free_space exceeds block capacity")
	}
}
