package iostore

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/afero"
)

// containerState is the Container lifecycle state machine (§5:
// "Unmounted -> Mounted -> Closed").
type containerState int32

const (
	stateUnmounted containerState = iota
	stateMounted
	stateClosed
)

// ErrContainerClosed is returned by Read, ReadAt and ListFiles after Close.
var ErrContainerClosed = errors.New("iostore: container is closed")

// errDirectoryIndexUnavailable is returned by ListFiles when the directory
// index blob was not captured at mount time (either the container isn't
// Indexed, or Mount was called with ReadDirectoryIndex cleared).
var errDirectoryIndexUnavailable = errors.New("iostore: directory index not available")

// defaultBlockCacheSize bounds the chunk reader's decompressed-block cache
// (§5) when MountOptions.BlockCacheSize is left at zero.
const defaultBlockCacheSize = 64

// MountOptions configures Mount and MountFromMemory.
type MountOptions struct {
	// TocReadOptions controls which optional TOC sections are captured
	// (§4.4). Defaults to ReadDirectoryIndex when the zero value is passed,
	// since ListFiles needs the blob captured at mount time, before the
	// sidecar bytes are discarded.
	TocReadOptions ReadOptions

	// BlockCacheSize bounds the decompressed-block cache entry count.
	// Zero selects defaultBlockCacheSize; a negative value disables caching.
	BlockCacheSize int
}

func (o MountOptions) normalized() MountOptions {
	if o.TocReadOptions == 0 {
		o.TocReadOptions = ReadDirectoryIndex
	}
	if o.BlockCacheSize == 0 {
		o.BlockCacheSize = defaultBlockCacheSize
	} else if o.BlockCacheSize < 0 {
		o.BlockCacheSize = 0
	}
	return o
}

// FileEntry is one (path, chunk id) pair yielded by Container.ListFiles.
type FileEntry struct {
	Path    string
	ChunkId ChunkId
}

// ContainerReader is the collaborator interface a mounted container
// produces (§6): enough surface to enumerate files, resolve chunk bounds,
// and read chunk content, without exposing mount/lifecycle details to
// pure consumers.
type ContainerReader interface {
	ContainerId() ContainerId
	ContainerFlags() ContainerFlags
	EncryptionKeyGuid() Guid
	ListFiles() ([]FileEntry, error)
	Read(ctx context.Context, id ChunkId) ([]byte, error)
	OffsetAndLength(id ChunkId) (offset, length uint64, ok bool)
}

var _ ContainerReader = (*Container)(nil)

// Container is the mounted, read-only view of an IoStore container (§4.7,
// §6's ContainerReader surface). TOC tables are immutable once Mount
// returns; file handles are owned by the Container for its lifetime.
type Container struct {
	t          *toc
	partitions *partitionSet
	reader     *chunkReader

	dirOnce  sync.Once
	dirIndex *directoryIndex
	dirErr   error

	mu    sync.Mutex
	state containerState
}

// Mount opens basePath+".utoc" and its partition files (basePath+".ucas",
// basePath+"_s1.ucas", ...) in read-only mode and parses the TOC (§4.7).
// fs is the filesystem to read from; pass afero.NewOsFs() for a real mount,
// or an afero.NewMemMapFs() populated by a test.
func Mount(fs afero.Fs, basePath string, keys KeyResolver, opts MountOptions) (*Container, error) {
	opts = opts.normalized()

	utocBuf, err := afero.ReadFile(fs, basePath+".utoc")
	if err != nil {
		return nil, &ContainerOpenFailedError{Path: basePath + ".utoc", Err: err}
	}

	t, err := readToc(utocBuf, opts.TocReadOptions)
	if err != nil {
		return nil, err
	}

	key, err := resolveKey(t, keys)
	if err != nil {
		return nil, err
	}

	partitions, err := openPartitions(fs, basePath, int(t.header.partitionCount))
	if err != nil {
		return nil, err
	}

	reader, err := newChunkReader(t, partitions, key, opts.BlockCacheSize)
	if err != nil {
		partitions.Close()
		return nil, err
	}

	return &Container{t: t, partitions: partitions, reader: reader, state: stateMounted}, nil
}

// MountFromMemory mounts a single-partition container entirely out of
// in-memory buffers (§4.7). partitionCount > 1 is rejected with
// UnsupportedError, per spec.md §1's non-goal of multi-partition mounting
// through the in-memory entry point.
func MountFromMemory(utocBytes, ucasBytes []byte, keys KeyResolver, opts MountOptions) (*Container, error) {
	opts = opts.normalized()

	t, err := readToc(utocBytes, opts.TocReadOptions)
	if err != nil {
		return nil, err
	}
	if t.header.partitionCount > 1 {
		return nil, &UnsupportedError{Reason: "MountFromMemory supports a single partition only"}
	}

	key, err := resolveKey(t, keys)
	if err != nil {
		return nil, err
	}

	fs := afero.NewMemMapFs()
	const basePath = "mem"
	if err := afero.WriteFile(fs, basePath+".ucas", ucasBytes, 0o644); err != nil {
		return nil, err
	}
	partitions, err := openPartitions(fs, basePath, 1)
	if err != nil {
		return nil, err
	}

	reader, err := newChunkReader(t, partitions, key, opts.BlockCacheSize)
	if err != nil {
		partitions.Close()
		return nil, err
	}

	return &Container{t: t, partitions: partitions, reader: reader, state: stateMounted}, nil
}

func resolveKey(t *toc, keys KeyResolver) ([]byte, error) {
	if !t.header.containerFlags.Has(ContainerFlagEncrypted) {
		return nil, nil
	}
	if keys == nil {
		return nil, &MissingKeyError{Guid: t.header.encryptionKeyGuid}
	}
	key, ok := keys.Lookup(t.header.encryptionKeyGuid)
	if !ok {
		return nil, &MissingKeyError{Guid: t.header.encryptionKeyGuid}
	}
	return key, nil
}

func (c *Container) checkMounted() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return ErrContainerClosed
	}
	return nil
}

// ContainerId returns the container's 64-bit identifier (§6).
func (c *Container) ContainerId() ContainerId { return c.t.header.containerId }

// ContainerFlags returns the container's flag set (§6).
func (c *Container) ContainerFlags() ContainerFlags { return c.t.header.containerFlags }

// EncryptionKeyGuid returns the guid identifying the decryption key this
// container was mounted with (§6).
func (c *Container) EncryptionKeyGuid() Guid { return c.t.header.encryptionKeyGuid }

// OffsetAndLength returns the logical (offset, length) pair for id, without
// reading any chunk bytes (§6).
func (c *Container) OffsetAndLength(id ChunkId) (offset, length uint64, ok bool) {
	return c.t.offsetAndLength(id)
}

// Stat reports whether id is present in the chunk index and, if so, its
// uncompressed length, without reading or decompressing anything
// (SPEC_FULL.md §4).
func (c *Container) Stat(id ChunkId) (length uint64, ok bool) {
	_, length, ok = c.t.offsetAndLength(id)
	return length, ok
}

// Read reconstitutes the full uncompressed byte range for id (§4.6, §6).
func (c *Container) Read(ctx context.Context, id ChunkId) ([]byte, error) {
	if err := c.checkMounted(); err != nil {
		return nil, err
	}
	return c.reader.readChunk(ctx, id)
}

// ReadAt reads len(dst) bytes starting relOffset bytes into id's logical
// range (SPEC_FULL.md §4, a windowed read on top of the block pipeline).
func (c *Container) ReadAt(ctx context.Context, id ChunkId, dst []byte, relOffset int64) error {
	if err := c.checkMounted(); err != nil {
		return err
	}
	return c.reader.readChunkAt(ctx, id, dst, relOffset)
}

// ListFiles enumerates every file reachable from the directory index's
// root, in depth-first order, with paths prefixed by the mount point
// (§4.5, §6, Testable Property 7). The directory index is built on first
// call and the raw blob released afterward (§3 Lifecycle, §4.9). File
// entries whose chunk index lies outside the chunk-id table are skipped.
func (c *Container) ListFiles() ([]FileEntry, error) {
	if err := c.checkMounted(); err != nil {
		return nil, err
	}

	c.dirOnce.Do(func() {
		if c.t.directoryBlob == nil {
			c.dirErr = errDirectoryIndexUnavailable
			return
		}
		c.dirIndex, c.dirErr = readDirectoryIndex(c.t.directoryBlob, c.reader.key, c.t.header.containerFlags)
		c.t.directoryBlob = nil // raw blob released once the index is built
	})
	if c.dirErr != nil {
		return nil, c.dirErr
	}

	raw := c.dirIndex.listFiles()
	out := make([]FileEntry, 0, len(raw))
	for _, r := range raw {
		if int(r.ChunkIndex) >= len(c.t.chunkIds) {
			continue
		}
		out = append(out, FileEntry{Path: r.Path, ChunkId: c.t.chunkIds[r.ChunkIndex]})
	}
	return out, nil
}

// Close releases the container's partition file handles. Further calls to
// Read, ReadAt and ListFiles return ErrContainerClosed; ContainerId,
// ContainerFlags, EncryptionKeyGuid, OffsetAndLength and Stat keep answering
// from the parsed TOC tables.
func (c *Container) Close() error {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = stateClosed
	c.mu.Unlock()
	return c.partitions.Close()
}
