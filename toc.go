package iostore

import (
	"bytes"

	"github.com/icza/bitio"
)

// tocVersion enumerates the TOC header version field (§3).
type tocVersion uint8

const (
	tocVersionInvalid        tocVersion = 0
	tocVersionInitial        tocVersion = 1
	tocVersionDirectoryIndex tocVersion = 2
	tocVersionPartitionSize  tocVersion = 3
)

// tocMagic is the literal 16-byte ASCII magic at the start of every TOC.
var tocMagic = [16]byte{'-', '=', '=', '-', '-', '=', '=', '-', '-', '=', '=', '-', '-', '=', '=', '-'}

const (
	tocHeaderSizeBytes           = 144
	tocCompressedBlockEntrySize  = 12
	offsetAndLengthEntrySize     = 10
	chunkIdSize                  = 12
	chunkMetaHashSize            = 32
	chunkMetaRecordSize          = chunkMetaHashSize + 1
	defaultPartitionSizeFallback = 0x0FFFFFFFFFFFFFFF
)

// ChunkMeta flag bits (§3).
const (
	ChunkMetaCompressed   uint8 = 1 << 0
	ChunkMetaMemoryMapped uint8 = 1 << 1
)

// ChunkMeta is the optional per-chunk metadata record (§3).
type ChunkMeta struct {
	Hash  [chunkMetaHashSize]byte // first 20 bytes significant
	Flags uint8
}

func (m ChunkMeta) Compressed() bool   { return m.Flags&ChunkMetaCompressed != 0 }
func (m ChunkMeta) MemoryMapped() bool { return m.Flags&ChunkMetaMemoryMapped != 0 }

// tocHeader is the 144-byte fixed TOC header (§3).
type tocHeader struct {
	version                      tocVersion
	tocHeaderSize                uint32
	tocEntryCount                uint32
	tocCompressedBlockEntryCount uint32
	tocCompressedBlockEntrySize  uint32
	compressionMethodNameCount   uint32
	compressionMethodNameLength  uint32
	compressionBlockSize         uint32
	directoryIndexSize           uint32
	partitionCount               uint32
	containerId                  ContainerId
	encryptionKeyGuid            Guid
	containerFlags               ContainerFlags
	partitionSize                uint64
}

func readTocHeader(r *primitiveReader) (*tocHeader, error) {
	var magic [16]byte
	if err := r.readInto(magic[:]); err != nil {
		return nil, err
	}
	if magic != tocMagic {
		return nil, &CorruptTocError{Reason: "magic mismatch"}
	}

	versionByte, err := r.readU8()
	if err != nil {
		return nil, err
	}
	if err := r.skip(3); err != nil { // reserved byte + reserved u16
		return nil, err
	}

	h := &tocHeader{version: tocVersion(versionByte)}

	readU32 := func(dst *uint32) {
		if err != nil {
			return
		}
		*dst, err = r.readU32()
	}
	readU32(&h.tocHeaderSize)
	readU32(&h.tocEntryCount)
	readU32(&h.tocCompressedBlockEntryCount)
	readU32(&h.tocCompressedBlockEntrySize)
	readU32(&h.compressionMethodNameCount)
	readU32(&h.compressionMethodNameLength)
	readU32(&h.compressionBlockSize)
	readU32(&h.directoryIndexSize)
	readU32(&h.partitionCount)
	if err != nil {
		return nil, err
	}

	containerIdRaw, err := r.readU64()
	if err != nil {
		return nil, err
	}
	h.containerId = ContainerId(containerIdRaw)

	guid, err := readGuid(r)
	if err != nil {
		return nil, err
	}
	h.encryptionKeyGuid = guid

	flagsByte, err := r.readU8()
	if err != nil {
		return nil, err
	}
	h.containerFlags = ContainerFlags(flagsByte)
	if err := r.skip(1 + 2 + 4); err != nil { // reserved u8, u16, u32
		return nil, err
	}

	h.partitionSize, err = r.readU64()
	if err != nil {
		return nil, err
	}

	if err := r.skip(8 * 6); err != nil { // six reserved u64 words
		return nil, err
	}

	if h.tocHeaderSize != tocHeaderSizeBytes {
		return nil, &CorruptTocError{Reason: "toc header size mismatch"}
	}
	if h.version < tocVersionDirectoryIndex {
		return nil, &CorruptTocError{Reason: "unsupported toc version"}
	}
	if h.version > tocVersionPartitionSize {
		return nil, &UnsupportedVersionError{Version: h.version}
	}
	if h.tocCompressedBlockEntrySize != tocCompressedBlockEntrySize {
		return nil, &CorruptTocError{Reason: "compressed block entry size mismatch"}
	}

	if h.version < tocVersionPartitionSize {
		h.partitionCount = 1
		h.partitionSize = defaultPartitionSizeFallback
	}

	return h, nil
}

// decodeOffsetAndLength decodes the 10-byte OffsetAndLength record: two 40-bit
// big-endian fields (§3). A whole number of MSB-first bits read off a
// byte-aligned stream is exactly a big-endian integer, so bitio.Reader (used
// elsewhere in the retrieval pack for non-byte-aligned field extraction)
// reads both fields directly without any manual shifting.
func decodeOffsetAndLength(raw []byte) (offset, length uint64, err error) {
	br := bitio.NewReader(bytes.NewReader(raw))
	offset, err = br.ReadBits(40)
	if err != nil {
		return 0, 0, err
	}
	length, err = br.ReadBits(40)
	if err != nil {
		return 0, 0, err
	}
	return offset, length, nil
}

// compressedBlockEntry is the decoded form of the 12-byte, little-endian
// bit-packed CompressedBlockEntry record (§3). Decoded per the spec's
// "effective decode" paragraph: a 40-bit offset, then compressedSize and
// uncompressedSize as 24-bit fields plus an 8-bit method index packed across
// the remaining two 32-bit little-endian words.
type compressedBlockEntry struct {
	offset                 uint64
	compressedSize         uint32
	uncompressedSize       uint32
	compressionMethodIndex uint8
}

func decodeCompressedBlockEntry(raw []byte) compressedBlockEntry {
	_ = raw[11] // bounds check hint, entry is always exactly 12 bytes
	offset := leUint64(raw[0:8]) & 0xFFFFFFFFFF
	word1 := leUint32(raw[4:8])
	word2 := leUint32(raw[8:12])
	return compressedBlockEntry{
		offset:                 offset,
		compressedSize:         (word1 >> 8) & 0xFFFFFF,
		uncompressedSize:       word2 & 0xFFFFFF,
		compressionMethodIndex: uint8(word2 >> 24),
	}
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}

// ReadOptions gates the optional, potentially-expensive parts of TOC
// parsing (§4.4).
type ReadOptions uint8

const (
	ReadDirectoryIndex ReadOptions = 1 << 0
	ReadTocMeta        ReadOptions = 1 << 1
)

func (o ReadOptions) has(bit ReadOptions) bool { return o&bit != 0 }

// toc holds every table parsed out of a .utoc sidecar (§3, §4.4). Tables are
// immutable once readToc returns (§3 Lifecycle).
type toc struct {
	header *tocHeader

	chunkIds      []ChunkId
	offsets       []uint64 // parallel to chunkIds
	lengths       []uint64 // parallel to chunkIds
	chunkIndex    map[ChunkId]int
	blocks        []compressedBlockEntry
	methods       []string // index 0 is always "None"
	metas         []ChunkMeta
	directoryBlob []byte // present only if ReadDirectoryIndex was requested
}

// entryIndex looks up a chunk id's position in the parallel arrays. The
// boolean result is the explicit presence test spec.md §9 calls for: a
// `value, ok :=` style lookup never confuses a valid index 0 with "absent",
// unlike the reference implementation's `entry_index(id) || -1` idiom.
func (t *toc) entryIndex(id ChunkId) (int, bool) {
	idx, ok := t.chunkIndex[id]
	return idx, ok
}

func (t *toc) offsetAndLength(id ChunkId) (offset, length uint64, ok bool) {
	idx, ok := t.entryIndex(id)
	if !ok {
		return 0, 0, false
	}
	return t.offsets[idx], t.lengths[idx], true
}

// readToc implements the TOC parser (§4.4): header, chunk-id table,
// offset/length table, compressed-block table, method-name table, the
// optional signature block (skipped, never verified), the optional
// directory-index blob, and the optional meta table.
func readToc(buf []byte, opts ReadOptions) (*toc, error) {
	r := newPrimitiveReader(buf)

	header, err := readTocHeader(r)
	if err != nil {
		return nil, err
	}

	t := &toc{header: header}

	// Chunk-id table. Later entries win on collision (§4.4 step 3); this is
	// observable behavior, not an accident, so it's implemented as a plain
	// forward loop over a map assignment.
	t.chunkIds = make([]ChunkId, header.tocEntryCount)
	t.chunkIndex = make(map[ChunkId]int, header.tocEntryCount)
	for i := range t.chunkIds {
		id, err := readChunkId(r)
		if err != nil {
			return nil, err
		}
		t.chunkIds[i] = id
		t.chunkIndex[id] = i
	}

	// Offset/length table.
	t.offsets = make([]uint64, header.tocEntryCount)
	t.lengths = make([]uint64, header.tocEntryCount)
	for i := range t.offsets {
		raw, err := r.readBytes(offsetAndLengthEntrySize)
		if err != nil {
			return nil, err
		}
		off, length, err := decodeOffsetAndLength(raw)
		if err != nil {
			return nil, err
		}
		t.offsets[i] = off
		t.lengths[i] = length
	}

	// Compressed-block table.
	t.blocks = make([]compressedBlockEntry, header.tocCompressedBlockEntryCount)
	for i := range t.blocks {
		raw, err := r.readBytes(tocCompressedBlockEntrySize)
		if err != nil {
			return nil, err
		}
		t.blocks[i] = decodeCompressedBlockEntry(raw)
	}

	// Method-name table. Index 0 is implicitly "None".
	t.methods = make([]string, 1, header.compressionMethodNameCount+1)
	t.methods[0] = "None"
	for i := uint32(0); i < header.compressionMethodNameCount; i++ {
		name, err := r.readCString(int(header.compressionMethodNameLength))
		if err != nil {
			return nil, err
		}
		t.methods = append(t.methods, name)
	}

	// Optional signature block: parsed only insofar as it must be skipped;
	// never verified (§4.4 step 7, §4.8, §9).
	if header.containerFlags.Has(ContainerFlagSigned) {
		hashSize, err := r.readU32()
		if err != nil {
			return nil, err
		}
		if err := r.skip(int(hashSize) * 2); err != nil {
			return nil, err
		}
		if err := r.skip(int(header.tocCompressedBlockEntryCount) * 20); err != nil {
			return nil, err
		}
	}

	// Optional directory-index blob.
	if header.containerFlags.Has(ContainerFlagIndexed) && header.directoryIndexSize > 0 {
		if opts.has(ReadDirectoryIndex) {
			blob, err := r.readBytes(int(header.directoryIndexSize))
			if err != nil {
				return nil, err
			}
			t.directoryBlob = blob
		} else {
			if err := r.skip(int(header.directoryIndexSize)); err != nil {
				return nil, err
			}
		}
	}

	// Optional meta table.
	if opts.has(ReadTocMeta) {
		t.metas = make([]ChunkMeta, header.tocEntryCount)
		for i := range t.metas {
			var m ChunkMeta
			if err := r.readInto(m.Hash[:]); err != nil {
				return nil, err
			}
			flags, err := r.readU8()
			if err != nil {
				return nil, err
			}
			m.Flags = flags
			t.metas[i] = m
		}
	}

	return t, nil
}
