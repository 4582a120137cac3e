package iostore

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// ChunkType is the tag carried in the last byte of a ChunkId (§3).
type ChunkType uint8

// Recognized chunk types. Values follow the IoStore wire tag assignment;
// unrecognized tags still round-trip through ChunkId, they just stringify
// as "ChunkType(N)".
const (
	ChunkTypeExportBundleData ChunkType = iota
	ChunkTypeBulkData
	ChunkTypeOptionalBulkData
	ChunkTypeMemoryMappedBulkData
	ChunkTypeScriptObjects
	ChunkTypeContainerHeader
	ChunkTypeExternalFile
	ChunkTypeShaderCodeLibrary
	ChunkTypeShaderCode
	ChunkTypePackageStoreEntry
	ChunkTypeDerivedData
	ChunkTypeEditorDerivedData
)

func (t ChunkType) String() string {
	switch t {
	case ChunkTypeExportBundleData:
		return "ExportBundleData"
	case ChunkTypeBulkData:
		return "BulkData"
	case ChunkTypeOptionalBulkData:
		return "OptionalBulkData"
	case ChunkTypeMemoryMappedBulkData:
		return "MemoryMappedBulkData"
	case ChunkTypeScriptObjects:
		return "ScriptObjects"
	case ChunkTypeContainerHeader:
		return "ContainerHeader"
	case ChunkTypeExternalFile:
		return "ExternalFile"
	case ChunkTypeShaderCodeLibrary:
		return "ShaderCodeLibrary"
	case ChunkTypeShaderCode:
		return "ShaderCode"
	case ChunkTypePackageStoreEntry:
		return "PackageStoreEntry"
	case ChunkTypeDerivedData:
		return "DerivedData"
	case ChunkTypeEditorDerivedData:
		return "EditorDerivedData"
	default:
		return fmt.Sprintf("ChunkType(%d)", uint8(t))
	}
}

// ChunkId is the 12-byte opaque identifier of a chunk. Only the last byte
// (the ChunkType tag) has defined meaning to this package; the rest is
// compared and hashed bytewise (§3).
type ChunkId [12]byte

// Type returns the ChunkType tag carried in the last byte.
func (c ChunkId) Type() ChunkType { return ChunkType(c[11]) }

func (c ChunkId) String() string {
	return fmt.Sprintf("%x:%s", [11]byte(c[:11]), c.Type())
}

func readChunkId(r *primitiveReader) (ChunkId, error) {
	var c ChunkId
	if err := r.readInto(c[:]); err != nil {
		return ChunkId{}, err
	}
	return c, nil
}

// Guid identifies the decryption key for a container (§3: "16 bytes, four
// 32-bit little-endian words"). It is backed by uuid.UUID so callers get
// parsing, formatting and comparison for free; readGuid below takes care of
// the little-endian word order the wire format uses, which differs from
// uuid.UUID's big-endian byte layout.
type Guid uuid.UUID

func (g Guid) String() string { return uuid.UUID(g).String() }

// IsZero reports whether every word of the guid is zero.
func (g Guid) IsZero() bool { return g == Guid{} }

func readGuid(r *primitiveReader) (Guid, error) {
	var words [4]uint32
	for i := range words {
		w, err := r.readU32()
		if err != nil {
			return Guid{}, err
		}
		words[i] = w
	}
	var g Guid
	for i, w := range words {
		binary.BigEndian.PutUint32(g[i*4:], w)
	}
	return g, nil
}

// ContainerId is the container's 64-bit identifier, read directly from the
// TOC header (§3).
type ContainerId uint64

// ContainerFlags is the 8-bit flag set from the TOC header (§3).
type ContainerFlags uint8

const (
	ContainerFlagNone       ContainerFlags = 0
	ContainerFlagCompressed ContainerFlags = 1 << 0
	ContainerFlagEncrypted  ContainerFlags = 1 << 1
	ContainerFlagSigned     ContainerFlags = 1 << 2
	ContainerFlagIndexed    ContainerFlags = 1 << 3
)

func (f ContainerFlags) Has(bit ContainerFlags) bool { return f&bit != 0 }

func (f ContainerFlags) String() string {
	if f == ContainerFlagNone {
		return "None"
	}
	names := []struct {
		bit  ContainerFlags
		name string
	}{
		{ContainerFlagCompressed, "Compressed"},
		{ContainerFlagEncrypted, "Encrypted"},
		{ContainerFlagSigned, "Signed"},
		{ContainerFlagIndexed, "Indexed"},
	}
	s := ""
	for _, n := range names {
		if f.Has(n.bit) {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	if s == "" {
		return fmt.Sprintf("ContainerFlags(%#x)", uint8(f))
	}
	return s
}
