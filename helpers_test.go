package iostore

import (
	"crypto/aes"
	"encoding/binary"
)

// tocHeaderFields mirrors the fields readTocHeader populates, used by tests
// to build a synthetic 144-byte header without hand-indexing byte offsets
// more than once.
type tocHeaderFields struct {
	version                      tocVersion
	tocEntryCount                uint32
	tocCompressedBlockEntryCount uint32
	compressionMethodNameCount   uint32
	compressionMethodNameLength  uint32
	compressionBlockSize         uint32
	directoryIndexSize           uint32
	partitionCount               uint32
	containerId                  uint64
	encryptionKeyGuid            [16]byte
	containerFlags               ContainerFlags
	partitionSize                uint64
}

func buildTocHeaderBytes(f tocHeaderFields) []byte {
	buf := make([]byte, tocHeaderSizeBytes)
	copy(buf[0:16], tocMagic[:])
	buf[16] = byte(f.version)
	// buf[17:20] reserved, left zero
	le32 := binary.LittleEndian.PutUint32
	le32(buf[20:24], tocHeaderSizeBytes)
	le32(buf[24:28], f.tocEntryCount)
	le32(buf[28:32], f.tocCompressedBlockEntryCount)
	le32(buf[32:36], tocCompressedBlockEntrySize)
	le32(buf[36:40], f.compressionMethodNameCount)
	le32(buf[40:44], f.compressionMethodNameLength)
	le32(buf[44:48], f.compressionBlockSize)
	le32(buf[48:52], f.directoryIndexSize)
	le32(buf[52:56], f.partitionCount)
	binary.LittleEndian.PutUint64(buf[56:64], f.containerId)
	copy(buf[64:80], f.encryptionKeyGuid[:])
	buf[80] = byte(f.containerFlags)
	// buf[81:88] reserved, left zero
	binary.LittleEndian.PutUint64(buf[88:96], f.partitionSize)
	// buf[96:144] six reserved u64 words, left zero
	return buf
}

// buildCompressedBlockEntryBytes encodes one 12-byte CompressedBlockEntry
// per the "effective decode" layout in §3.
func buildCompressedBlockEntryBytes(offset uint64, compressedSize, uncompressedSize uint32, methodIndex uint8) []byte {
	buf := make([]byte, tocCompressedBlockEntrySize)
	// bytes[0:8]: low 40 bits carry offset, the rest is overwritten below.
	binary.LittleEndian.PutUint64(buf[0:8], offset&0xFFFFFFFFFF)
	word1 := binary.LittleEndian.Uint32(buf[4:8])
	word1 = (word1 &^ (0xFFFFFF << 8)) | ((compressedSize & 0xFFFFFF) << 8)
	binary.LittleEndian.PutUint32(buf[4:8], word1)
	word2 := (uncompressedSize & 0xFFFFFF) | (uint32(methodIndex) << 24)
	binary.LittleEndian.PutUint32(buf[8:12], word2)
	return buf
}

// buildOffsetAndLengthBytes encodes one 10-byte OffsetAndLength record:
// two 40-bit big-endian fields.
func buildOffsetAndLengthBytes(offset, length uint64) []byte {
	buf := make([]byte, offsetAndLengthEntrySize)
	put40BE(buf[0:5], offset)
	put40BE(buf[5:10], length)
	return buf
}

func put40BE(dst []byte, v uint64) {
	dst[0] = byte(v >> 32)
	dst[1] = byte(v >> 24)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 8)
	dst[4] = byte(v)
}

// buildMethodNameTableBytes writes a method-name table: one fixed-width,
// NUL-terminated ASCII slot per name.
func buildMethodNameTableBytes(names []string, slotLen int) []byte {
	buf := make([]byte, len(names)*slotLen)
	for i, name := range names {
		copy(buf[i*slotLen:], name)
	}
	return buf
}

func testAesKey() []byte {
	key := make([]byte, aesKeySize)
	for i := range key {
		key[i] = byte(i * 7)
	}
	return key
}

// encryptAesEcbForTest is the encrypting counterpart of decryptAesEcb, used
// only to build encrypted fixtures (the production code never writes).
func encryptAesEcbForTest(buf []byte, key []byte) {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	bs := block.BlockSize()
	for off := 0; off < len(buf); off += bs {
		block.Encrypt(buf[off:off+bs], buf[off:off+bs])
	}
}

func chunkIdFor(b byte, typ ChunkType) ChunkId {
	var c ChunkId
	for i := 0; i < 11; i++ {
		c[i] = b
	}
	c[11] = byte(typ)
	return c
}

// blockSpec is one compressed-block table entry for buildContainerToc.
type blockSpec struct {
	offset                 uint64
	compressedSize         uint32
	uncompressedSize       uint32
	compressionMethodIndex uint8
}

// buildContainerToc assembles a complete .utoc buffer: header, chunk-id
// table, offset/length table, compressed-block table, method-name table,
// and (when dirIndexBlob is non-nil) a directory-index blob. Mirrors
// readToc's section order exactly.
func buildContainerToc(f tocHeaderFields, chunkIds []ChunkId, offsetsLengths [][2]uint64, blocks []blockSpec, methodNames []string, methodSlotLen int, dirIndexBlob []byte) []byte {
	f.tocEntryCount = uint32(len(chunkIds))
	f.tocCompressedBlockEntryCount = uint32(len(blocks))
	f.compressionMethodNameCount = uint32(len(methodNames))
	f.compressionMethodNameLength = uint32(methodSlotLen)
	if dirIndexBlob != nil {
		f.directoryIndexSize = uint32(len(dirIndexBlob))
	}

	var buf []byte
	buf = append(buf, buildTocHeaderBytes(f)...)
	for _, id := range chunkIds {
		buf = append(buf, id[:]...)
	}
	for _, ol := range offsetsLengths {
		buf = append(buf, buildOffsetAndLengthBytes(ol[0], ol[1])...)
	}
	for _, b := range blocks {
		buf = append(buf, buildCompressedBlockEntryBytes(b.offset, b.compressedSize, b.uncompressedSize, b.compressionMethodIndex)...)
	}
	buf = append(buf, buildMethodNameTableBytes(methodNames, methodSlotLen)...)
	if dirIndexBlob != nil {
		buf = append(buf, dirIndexBlob...)
	}
	return buf
}
