package iostore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// alignUp rounds value up to the next multiple of alignment, the standard
// formula; alignment must be a power of two (the 16-byte AES block and the
// compression block size both are). spec.md §9 flags the reference implementation's
// `(value + alignment) & ~(alignment - 1)` as a bug that over-aligns an
// already-aligned value; this uses `value + alignment - 1` instead.
func alignUp(value, alignment uint64) uint64 {
	return (value + alignment - 1) &^ (alignment - 1)
}

// chunkReader implements the chunk-read pipeline (§4.6): resolve a chunk id
// to (offset, length), walk the covering compression blocks, decrypt and
// decompress each, and copy the requested sub-range into the destination.
type chunkReader struct {
	t          *toc
	partitions *partitionSet
	key        []byte // nil unless the container is encrypted

	blockSize     uint64
	partitionSize uint64

	// blockCache holds decompressed block payloads keyed by compression-block
	// index, trading memory for skipping repeated decrypt+decompress work on
	// overlapping reads (§5: "a high-throughput implementation should pool by
	// thread or by reader"). nil disables caching.
	blockCache *lru.Cache[int, []byte]
}

func newChunkReader(t *toc, partitions *partitionSet, key []byte, blockCacheSize int) (*chunkReader, error) {
	cr := &chunkReader{
		t:             t,
		partitions:    partitions,
		key:           key,
		blockSize:     uint64(t.header.compressionBlockSize),
		partitionSize: t.header.partitionSize,
	}
	if blockCacheSize > 0 {
		cache, err := lru.New[int, []byte](blockCacheSize)
		if err != nil {
			return nil, err
		}
		cr.blockCache = cache
	}
	return cr, nil
}

// readChunk resolves id and reads its entire byte range.
func (cr *chunkReader) readChunk(ctx context.Context, id ChunkId) ([]byte, error) {
	offset, length, ok := cr.t.offsetAndLength(id)
	if !ok {
		return nil, ErrUnknownChunk
	}
	dst := make([]byte, length)
	if err := cr.readRange(ctx, offset, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// readChunkAt resolves id and reads len(dst) bytes starting relOffset bytes
// into its logical range, a windowed read on top of readChunk (supplemented
// feature, SPEC_FULL.md §4).
func (cr *chunkReader) readChunkAt(ctx context.Context, id ChunkId, dst []byte, relOffset int64) error {
	offset, length, ok := cr.t.offsetAndLength(id)
	if !ok {
		return ErrUnknownChunk
	}
	if relOffset < 0 || uint64(relOffset)+uint64(len(dst)) > length {
		return &ShortReadError{Want: len(dst), Got: 0}
	}
	return cr.readRange(ctx, offset+uint64(relOffset), dst)
}

// readRange implements §4.6 steps 2-5 against the container's combined
// logical address space: block range computation, per-block decrypt and
// decompress, and copy-out into dst.
func (cr *chunkReader) readRange(ctx context.Context, offset uint64, dst []byte) error {
	length := uint64(len(dst))
	if length == 0 {
		return nil
	}

	firstBlock := offset / cr.blockSize
	lastBlock := (alignUp(offset+length, cr.blockSize) - 1) / cr.blockSize

	offsetInBlock := offset % cr.blockSize
	remaining := length
	var dstCursor uint64

	var rawBuf []byte
	for b := firstBlock; b <= lastBlock; b++ {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		block := cr.t.blocks[b]
		copyLen := cr.blockSize - offsetInBlock
		if copyLen > remaining {
			copyLen = remaining
		}

		src, err := cr.materializeBlock(int(b), block, &rawBuf)
		if err != nil {
			return err
		}

		copy(dst[dstCursor:dstCursor+copyLen], src[offsetInBlock:offsetInBlock+copyLen])

		offsetInBlock = 0
		remaining -= copyLen
		dstCursor += copyLen
	}

	return nil
}

// materializeBlock returns the decrypted, decompressed payload of
// compression block index b, serving it from blockCache when possible.
// rawBuf is reused scratch space for the encrypted/compressed frame across
// calls from the same readRange, per §5's "per-call scratch buffers"
// guidance.
func (cr *chunkReader) materializeBlock(b int, block compressedBlockEntry, rawBuf *[]byte) ([]byte, error) {
	if cr.blockCache != nil {
		if cached, ok := cr.blockCache.Get(b); ok {
			return cached, nil
		}
	}

	rawSize := alignUp(uint64(block.compressedSize), 16)
	if cap(*rawBuf) < int(rawSize) {
		*rawBuf = make([]byte, rawSize)
	}
	raw := (*rawBuf)[:rawSize]

	partitionIndex := block.offset / cr.partitionSize
	partitionOffset := block.offset % cr.partitionSize
	if err := cr.partitions.readAt(int(partitionIndex), partitionOffset, raw); err != nil {
		return nil, err
	}

	if cr.key != nil {
		if err := decryptAesEcb(raw, cr.key); err != nil {
			return nil, err
		}
	}

	var payload []byte
	if block.compressionMethodIndex == 0 {
		payload = raw
	} else {
		if int(block.compressionMethodIndex) >= len(cr.t.methods) {
			return nil, &UnsupportedCodecError{Method: "<out of range>"}
		}
		method := cr.t.methods[block.compressionMethodIndex]
		decoded := make([]byte, block.uncompressedSize)
		if err := decompress(method, decoded, raw[:block.compressedSize]); err != nil {
			return nil, err
		}
		payload = decoded
	}

	if cr.blockCache != nil {
		cached := make([]byte, len(payload))
		copy(cached, payload)
		cr.blockCache.Add(b, cached)
	}

	return payload, nil
}
