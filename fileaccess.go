package iostore

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// partitionSet owns one open, read-only file handle per partition (§4.7:
// "File handles are owned by the container for its lifetime"). It is built
// over afero.Fs rather than raw *os.File so the same mount path works
// against a real filesystem (afero.NewOsFs) or an in-memory one
// (afero.NewMemMapFs) built entirely by a test.
type partitionSet struct {
	fs    afero.Fs
	files []afero.File
}

// openPartitions opens partition 0 at basePath+".ucas" and partitions
// 1..count-1 at basePath+"_s{i}.ucas" (§6), all read-only.
func openPartitions(fs afero.Fs, basePath string, count int) (*partitionSet, error) {
	ps := &partitionSet{fs: fs, files: make([]afero.File, count)}
	for i := 0; i < count; i++ {
		path := partitionPath(basePath, i)
		f, err := fs.Open(path)
		if err != nil {
			ps.Close()
			return nil, &ContainerOpenFailedError{Path: path, Err: err}
		}
		ps.files[i] = f
	}
	return ps, nil
}

func partitionPath(basePath string, i int) string {
	if i == 0 {
		return basePath + ".ucas"
	}
	return fmt.Sprintf("%s_s%d.ucas", basePath, i)
}

// readAt reads exactly len(dst) bytes from partition index at offset.
// Short reads are surfaced as ShortReadError (§4.6 step c).
func (ps *partitionSet) readAt(partition int, offset uint64, dst []byte) error {
	if partition < 0 || partition >= len(ps.files) {
		return &ShortReadError{Partition: partition, Offset: offset, Want: len(dst)}
	}
	n, err := ps.files[partition].ReadAt(dst, int64(offset))
	if err != nil && err != io.EOF {
		return &ContainerOpenFailedError{Path: partitionPath("", partition), Err: err}
	}
	if n != len(dst) {
		return &ShortReadError{Partition: partition, Offset: offset, Want: len(dst), Got: n}
	}
	return nil
}

func (ps *partitionSet) Close() error {
	var first error
	for _, f := range ps.files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
