package iostore

import "testing"

func minimalToc(f tocHeaderFields, chunkIds []ChunkId, offsetsLengths [][2]uint64, blocks [][]byte, methodNames []string, methodSlotLen int) []byte {
	f.tocEntryCount = uint32(len(chunkIds))
	f.tocCompressedBlockEntryCount = uint32(len(blocks))
	f.compressionMethodNameCount = uint32(len(methodNames))
	f.compressionMethodNameLength = uint32(methodSlotLen)

	var buf []byte
	buf = append(buf, buildTocHeaderBytes(f)...)
	for _, id := range chunkIds {
		buf = append(buf, id[:]...)
	}
	for _, ol := range offsetsLengths {
		buf = append(buf, buildOffsetAndLengthBytes(ol[0], ol[1])...)
	}
	for _, b := range blocks {
		buf = append(buf, b...)
	}
	buf = append(buf, buildMethodNameTableBytes(methodNames, methodSlotLen)...)
	return buf
}

func TestReadTocHeaderVersionFallback(t *testing.T) {
	f := tocHeaderFields{
		version:               tocVersionDirectoryIndex,
		compressionBlockSize:  0x10000,
		partitionCount:        7,   // must be overridden to 1
		partitionSize:         123, // must be overridden
	}
	buf := minimalToc(f, nil, nil, nil, nil, 32)

	tc, err := readToc(buf, 0)
	if err != nil {
		t.Fatalf("readToc: %v", err)
	}
	if tc.header.partitionCount != 1 {
		t.Fatalf("partitionCount: got %d, want 1", tc.header.partitionCount)
	}
	if tc.header.partitionSize != defaultPartitionSizeFallback {
		t.Fatalf("partitionSize: got %#x, want %#x", tc.header.partitionSize, uint64(defaultPartitionSizeFallback))
	}
}

func TestReadTocHeaderPartitionSizeVersionKeepsFields(t *testing.T) {
	f := tocHeaderFields{
		version:               tocVersionPartitionSize,
		compressionBlockSize:  0x10000,
		partitionCount:        3,
		partitionSize:         0x2000,
	}
	buf := minimalToc(f, nil, nil, nil, nil, 32)

	tc, err := readToc(buf, 0)
	if err != nil {
		t.Fatalf("readToc: %v", err)
	}
	if tc.header.partitionCount != 3 || tc.header.partitionSize != 0x2000 {
		t.Fatalf("got partitionCount=%d partitionSize=%#x", tc.header.partitionCount, tc.header.partitionSize)
	}
}

func TestReadTocRejectsBadMagic(t *testing.T) {
	f := tocHeaderFields{version: tocVersionDirectoryIndex, compressionBlockSize: 0x10000}
	buf := minimalToc(f, nil, nil, nil, nil, 32)
	buf[0] ^= 0xFF

	_, err := readToc(buf, 0)
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
	if _, ok := err.(*CorruptTocError); !ok {
		t.Fatalf("expected *CorruptTocError, got %T", err)
	}
}

func TestReadTocRejectsVersionBelowMinimum(t *testing.T) {
	for _, v := range []tocVersion{tocVersionInvalid, tocVersionInitial} {
		f := tocHeaderFields{version: v, compressionBlockSize: 0x10000}
		buf := minimalToc(f, nil, nil, nil, nil, 32)
		if _, err := readToc(buf, 0); err == nil {
			t.Fatalf("version %d: expected error", v)
		}
	}
}

func TestReadTocRejectsWrongHeaderSize(t *testing.T) {
	f := tocHeaderFields{version: tocVersionDirectoryIndex, compressionBlockSize: 0x10000}
	buf := minimalToc(f, nil, nil, nil, nil, 32)
	// Corrupt the tocHeaderSize field (bytes [20:24]).
	buf[20] = 0

	_, err := readToc(buf, 0)
	if err == nil {
		t.Fatal("expected error for bad tocHeaderSize")
	}
}

func TestChunkIndexCollisionLaterWins(t *testing.T) {
	f := tocHeaderFields{version: tocVersionDirectoryIndex, compressionBlockSize: 0x10000}
	id := chunkIdFor(0x55, ChunkTypeBulkData)
	ids := []ChunkId{id, id}
	ol := [][2]uint64{{0, 10}, {100, 20}}
	buf := minimalToc(f, ids, ol, nil, nil, 32)

	tc, err := readToc(buf, 0)
	if err != nil {
		t.Fatalf("readToc: %v", err)
	}
	offset, length, ok := tc.offsetAndLength(id)
	if !ok {
		t.Fatal("expected chunk id to be found")
	}
	if offset != 100 || length != 20 {
		t.Fatalf("expected later entry to win, got offset=%d length=%d", offset, length)
	}
}

func TestEntryIndexExplicitPresenceForIndexZero(t *testing.T) {
	f := tocHeaderFields{version: tocVersionDirectoryIndex, compressionBlockSize: 0x10000}
	id := chunkIdFor(1, ChunkTypeBulkData)
	buf := minimalToc(f, []ChunkId{id}, [][2]uint64{{0, 5}}, nil, nil, 32)

	tc, err := readToc(buf, 0)
	if err != nil {
		t.Fatalf("readToc: %v", err)
	}
	idx, ok := tc.entryIndex(id)
	if !ok || idx != 0 {
		t.Fatalf("expected index 0 with ok=true, got idx=%d ok=%v", idx, ok)
	}
	_, ok = tc.entryIndex(chunkIdFor(2, ChunkTypeBulkData))
	if ok {
		t.Fatal("expected ok=false for an id never inserted")
	}
}

func TestMethodNameTableDefaultsToNone(t *testing.T) {
	f := tocHeaderFields{version: tocVersionDirectoryIndex, compressionBlockSize: 0x10000}
	buf := minimalToc(f, nil, nil, nil, []string{"Zlib", "Oodle"}, 32)

	tc, err := readToc(buf, 0)
	if err != nil {
		t.Fatalf("readToc: %v", err)
	}
	want := []string{"None", "Zlib", "Oodle"}
	if len(tc.methods) != len(want) {
		t.Fatalf("got %d methods, want %d", len(tc.methods), len(want))
	}
	for i, m := range want {
		if tc.methods[i] != m {
			t.Fatalf("method %d: got %q, want %q", i, tc.methods[i], m)
		}
	}
}

func TestDecodeCompressedBlockEntry(t *testing.T) {
	raw := buildCompressedBlockEntryBytes(0x1234567890, 137, 200, 3)
	e := decodeCompressedBlockEntry(raw)
	if e.offset != 0x1234567890 {
		t.Fatalf("offset: got %#x", e.offset)
	}
	if e.compressedSize != 137 {
		t.Fatalf("compressedSize: got %d", e.compressedSize)
	}
	if e.uncompressedSize != 200 {
		t.Fatalf("uncompressedSize: got %d", e.uncompressedSize)
	}
	if e.compressionMethodIndex != 3 {
		t.Fatalf("compressionMethodIndex: got %d", e.compressionMethodIndex)
	}
}

func TestDecodeOffsetAndLength(t *testing.T) {
	raw := buildOffsetAndLengthBytes(0xFFFFFF, 7)
	offset, length, err := decodeOffsetAndLength(raw)
	if err != nil {
		t.Fatalf("decodeOffsetAndLength: %v", err)
	}
	if offset != 0xFFFFFF || length != 7 {
		t.Fatalf("got offset=%#x length=%d", offset, length)
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ value, alignment, want uint64 }{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16}, // exact multiples must not over-align (§9)
		{17, 16, 32},
		{137, 16, 144},
	}
	for _, c := range cases {
		if got := alignUp(c.value, c.alignment); got != c.want {
			t.Errorf("alignUp(%d, %d): got %d, want %d", c.value, c.alignment, got, c.want)
		}
	}
}
