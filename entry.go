package chm

// Namespace identifies which section of the archive an Entry's bytes live
// in.
type Namespace byte

const (
	NamespaceUncompressed Namespace = 0
	NamespaceCompressed   Namespace = 1
)

// EntryFlag classifies an Entry's path, per §3: the set is
// {DIRS | FILES} x {NORMAL | SPECIAL | META}.
type EntryFlag uint8

const (
	FlagDirs EntryFlag = 1 << iota
	FlagFiles
	FlagNormal
	FlagSpecial
	FlagMeta
)

// Entry is one record of the archive's directory (§3).
type Entry struct {
	Path      string
	Namespace Namespace
	Start     uint64
	Length    uint64
	Flags     EntryFlag
}

// classify computes the DIRS/FILES x NORMAL/SPECIAL/META flag pair for a
// path. It is a total function over non-empty paths.
func classify(path string) EntryFlag {
	var f EntryFlag
	if len(path) > 0 && path[len(path)-1] == '/' {
		f |= FlagDirs
	} else {
		f |= FlagFiles
	}
	switch {
	case len(path) == 0:
		f |= FlagMeta
	case path[0] != '/':
		f |= FlagMeta
	case len(path) >= 2 && (path[1] == '#' || path[1] == '$'):
		f |= FlagSpecial
	default:
		f |= FlagNormal
	}
	return f
}

const (
	resetTablePath = "::DataSpace/Storage/MSCompressed/Transform/{7FC28940-9D31-11D0-9B27-00A0C91E9C7C}/InstanceData/ResetTable"
	controlDataPath = "::DataSpace/Storage/MSCompressed/ControlData"
	contentPath     = "::DataSpace/Storage/MSCompressed/Content"
)
