package iostore

import (
	"strings"
)

// noIndex is the directory-index "none" sentinel cross-reference value
// (§3: "the value 0xFFFFFFFF denotes none").
const noIndex uint32 = 0xFFFFFFFF

// rootDirectoryHandle is the index of the root directory entry (§3).
const rootDirectoryHandle uint32 = 0

type directoryEntry struct {
	nameOffset       uint32 // index into the string pool
	firstChildEntry  uint32
	nextSiblingEntry uint32
	firstFileEntry   uint32
}

type fileEntry struct {
	nameOffset    uint32 // index into the string pool
	nextFileEntry uint32
	userData      uint32 // index into toc.chunkIds
}

// directoryIndex is the parsed form of the directory-index blob (§3, §4.5):
// a mount-point string, parallel directory/file entry arrays, and a string
// pool. All cross-references are indices into these arrays; noIndex
// terminates a chain.
type directoryIndex struct {
	mountPoint string
	dirs       []directoryEntry
	files      []fileEntry
	strings    []string
}

// readDirectoryIndex parses a (possibly encrypted) directory-index blob.
// If containerFlags has Encrypted set, a copy of the blob is decrypted with
// key first and the caller's blob is left untouched; the blob's length is guaranteed a multiple of 16 by
// construction, same as any other encrypted region of the container.
func readDirectoryIndex(blob []byte, key []byte, containerFlags ContainerFlags) (*directoryIndex, error) {
	if containerFlags.Has(ContainerFlagEncrypted) {
		plain := make([]byte, len(blob))
		copy(plain, blob)
		if err := decryptAesEcb(plain, key); err != nil {
			return nil, err
		}
		blob = plain
	}

	r := newPrimitiveReader(blob)

	mountPoint, err := readIndexString(r)
	if err != nil {
		return nil, err
	}

	dirCount, err := r.readU32()
	if err != nil {
		return nil, err
	}
	dirs := make([]directoryEntry, dirCount)
	for i := range dirs {
		nameOffset, err := r.readU32()
		if err != nil {
			return nil, err
		}
		firstChild, err := r.readU32()
		if err != nil {
			return nil, err
		}
		nextSibling, err := r.readU32()
		if err != nil {
			return nil, err
		}
		firstFile, err := r.readU32()
		if err != nil {
			return nil, err
		}
		dirs[i] = directoryEntry{nameOffset, firstChild, nextSibling, firstFile}
	}

	fileCount, err := r.readU32()
	if err != nil {
		return nil, err
	}
	files := make([]fileEntry, fileCount)
	for i := range files {
		nameOffset, err := r.readU32()
		if err != nil {
			return nil, err
		}
		nextFile, err := r.readU32()
		if err != nil {
			return nil, err
		}
		userData, err := r.readU32()
		if err != nil {
			return nil, err
		}
		files[i] = fileEntry{nameOffset, nextFile, userData}
	}

	stringCount, err := r.readU32()
	if err != nil {
		return nil, err
	}
	pool := make([]string, stringCount)
	for i := range pool {
		s, err := readIndexString(r)
		if err != nil {
			return nil, err
		}
		pool[i] = s
	}

	return &directoryIndex{
		mountPoint: mountPoint,
		dirs:       dirs,
		files:      files,
		strings:    pool,
	}, nil
}

func readIndexString(r *primitiveReader) (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *directoryIndex) name(offset uint32) string {
	if offset == noIndex || int(offset) >= len(d.strings) {
		return ""
	}
	return d.strings[offset]
}

// joinPath ensures exactly one separator between components and
// canonicalizes to "/", accepting either "/" or "\" as a pre-existing
// separator on either side (§4.5 Path joining rule).
func joinPath(a, b string) string {
	a = strings.ReplaceAll(a, "\\", "/")
	b = strings.ReplaceAll(b, "\\", "/")
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case strings.HasSuffix(a, "/") && strings.HasPrefix(b, "/"):
		return a + b[1:]
	case strings.HasSuffix(a, "/") || strings.HasPrefix(b, "/"):
		return a + b
	default:
		return a + "/" + b
	}
}

// IterateFunc is called once per file reached during directory traversal.
// Returning false stops the walk immediately.
type IterateFunc func(path string, chunkIndex uint32) bool

// iterate walks the tree depth-first starting at dirHandle, emitting
// concat(mountPoint, prefix, currentDirPath, name) for every file entry
// reachable from it (§4.5). Returns false if the callback terminated the
// walk early so the caller (and any enclosing recursive call) can stop too.
func (d *directoryIndex) iterate(dirHandle uint32, prefix string, fn IterateFunc) bool {
	if dirHandle == noIndex || int(dirHandle) >= len(d.dirs) {
		return true
	}
	dir := d.dirs[dirHandle]

	for fileIdx := dir.firstFileEntry; fileIdx != noIndex; {
		f := d.files[fileIdx]
		path := joinPath(d.mountPoint, joinPath(prefix, d.name(f.nameOffset)))
		if !fn(path, f.userData) {
			return false
		}
		fileIdx = f.nextFileEntry
	}

	for childIdx := dir.firstChildEntry; childIdx != noIndex; {
		child := d.dirs[childIdx]
		childPrefix := joinPath(prefix, d.name(child.nameOffset)+"/")
		if !d.iterate(childIdx, childPrefix, fn) {
			return false
		}
		childIdx = child.nextSiblingEntry
	}

	return true
}

// listFiles collects every (path, chunkIndex) pair reachable from the root,
// satisfying Testable Property 7 (§8: iteration completeness, no duplicate
// paths). A tree built from a well-formed directory-index blob never
// produces the same path twice, but nothing upstream guarantees that, so a
// seen-set actively drops repeats here rather than relying on it.
func (d *directoryIndex) listFiles() []struct {
	Path       string
	ChunkIndex uint32
} {
	var out []struct {
		Path       string
		ChunkIndex uint32
	}
	seen := make(map[string]bool)
	d.iterate(rootDirectoryHandle, "", func(path string, chunkIndex uint32) bool {
		if seen[path] {
			return true
		}
		seen[path] = true
		out = append(out, struct {
			Path       string
			ChunkIndex uint32
		}{path, chunkIndex})
		return true
	})
	return out
}
