package chm

import "testing"

func TestClassifyTotal(t *testing.T) {
	cases := []struct {
		path string
		want EntryFlag
	}{
		{"/foo.html", FlagFiles | FlagNormal},
		{"/foo/", FlagDirs | FlagNormal},
		{"/#STRINGS", FlagFiles | FlagSpecial},
		{"/$OBJINST", FlagFiles | FlagSpecial},
		{"::DataSpace/Storage/MSCompressed/Content", FlagFiles | FlagMeta},
		{"not-rooted/", FlagDirs | FlagMeta},
	}
	for _, c := range cases {
		got := classify(c.path)
		if got != c.want {
			t.Errorf("classify(%q) = %#x, want %#x", c.path, got, c.want)
		}
		dirXorFiles := (got&FlagDirs != 0) != (got&FlagFiles != 0)
		if !dirXorFiles {
			t.Errorf("classify(%q): DIRS/FILES not exclusive: %#x", c.path, got)
		}
		kinds := 0
		for _, f := range []EntryFlag{FlagNormal, FlagSpecial, FlagMeta} {
			if got&f != 0 {
				kinds++
			}
		}
		if kinds != 1 {
			t.Errorf("classify(%q): expected exactly one of NORMAL/SPECIAL/META, got %#x", c.path, got)
		}
	}
}
