package bdzhash

import (
	"encoding/binary"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/bdz"
	"github.com/tamirms/bdzhash/internal/bits"
	"github.com/tamirms/bdzhash/internal/hashfn"
)

const (
	// magic number for BDZ index files
	// "BDZH" in little-endian
	magic = uint32(0x485A4442)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (64 bytes)
	headerSize = 64

	// footerSize is the exact size of the serialized footer (32 bytes)
	footerSize = 32

	// userMetadataLenSize is the length prefix of the user metadata section.
	userMetadataLenSize = 4
)

// header is the 64-byte file header.
//
// Layout:
//
//	Offset  Size  Field          Type
//	0       4     Magic          0x485A4442 ("BDZH")
//	4       2     Version        0x0001
//	6       2     HashFamily     uint16_le (0=xxh3, 1=murmur3, 2=jenkins)
//	8       8     NumKeys        uint64_le (n)
//	16      4     NumVertices    uint32_le (m = 3r)
//	20      4     PartitionSize  uint32_le (r)
//	24      8     Seed           uint64_le (seed of the successful attempt)
//	32      1     RankBits       uint8 (b)
//	33      31    Reserved       [31]byte (zero)
//
// The file body is [UserMetaLen 4B][UserMeta][Labels ceil(m/4)B][Footer 32B].
// The rank table is not stored; it is rebuilt from the labels on load.
type header struct {
	Magic         uint32     // 4 bytes: magic number 0x485A4442
	Version       uint16     // 2 bytes: format version
	HashFamily    HashFamily // 2 bytes: triple-hash family
	NumKeys       uint64     // 8 bytes: number of keys
	NumVertices   uint32     // 4 bytes: m
	PartitionSize uint32     // 4 bytes: r
	Seed          uint64     // 8 bytes: attempt seed
	RankBits      uint8      // 1 byte: rank granularity
	Reserved      [31]byte   // 31 bytes: reserved (zero)
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(h.HashFamily))
	binary.LittleEndian.PutUint64(buf[8:16], h.NumKeys)
	binary.LittleEndian.PutUint32(buf[16:20], h.NumVertices)
	binary.LittleEndian.PutUint32(buf[20:24], h.PartitionSize)
	binary.LittleEndian.PutUint64(buf[24:32], h.Seed)
	buf[32] = h.RankBits
	copy(buf[33:64], h.Reserved[:])
}

// decodeHeader parses a 64-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, bdzerrors.ErrTruncatedFile
	}

	h := &header{
		Magic:         binary.LittleEndian.Uint32(buf[0:4]),
		Version:       binary.LittleEndian.Uint16(buf[4:6]),
		HashFamily:    HashFamily(binary.LittleEndian.Uint16(buf[6:8])),
		NumKeys:       binary.LittleEndian.Uint64(buf[8:16]),
		NumVertices:   binary.LittleEndian.Uint32(buf[16:20]),
		PartitionSize: binary.LittleEndian.Uint32(buf[20:24]),
		Seed:          binary.LittleEndian.Uint64(buf[24:32]),
		RankBits:      buf[32],
	}
	copy(h.Reserved[:], buf[33:64])

	if h.Magic != magic {
		return nil, bdzerrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, bdzerrors.ErrInvalidVersion
	}
	if _, ok := hashfn.Lookup(hashfn.Family(h.HashFamily)); !ok {
		return nil, bdzerrors.ErrCorruptedIndex
	}
	if h.NumKeys == 0 || h.NumKeys > maxKeys {
		return nil, bdzerrors.ErrCorruptedIndex
	}
	if h.PartitionSize == 0 || uint64(h.NumVertices) != 3*uint64(h.PartitionSize) {
		return nil, bdzerrors.ErrCorruptedIndex
	}
	if h.NumKeys > uint64(h.NumVertices) {
		return nil, bdzerrors.ErrCorruptedIndex
	}
	if h.RankBits < bdz.MinRankBits || h.RankBits > bdz.MaxRankBits {
		return nil, bdzerrors.ErrCorruptedIndex
	}

	return h, nil
}

// labelsSize returns the byte length of the packed label array.
func (h *header) labelsSize() uint64 {
	return uint64(bits.LabelBytes(h.NumVertices))
}

// footer is the 32-byte file footer.
//
// Layout:
//
//	Offset  Size  Field             Type
//	0       8     LabelsHash        uint64_le (xxHash64 of the label array)
//	8       8     UserMetadataHash  uint64_le (xxHash64 of the user metadata)
//	16      8     HeaderHash        uint64_le (xxHash64 of the 64-byte header)
//	24      8     Reserved          [8]byte (zero)
type footer struct {
	LabelsHash       uint64  // 8 bytes: xxHash64 of the label array
	UserMetadataHash uint64  // 8 bytes: xxHash64 of the user metadata
	HeaderHash       uint64  // 8 bytes: xxHash64 of the header
	Reserved         [8]byte // 8 bytes: reserved for future use
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.LabelsHash)
	binary.LittleEndian.PutUint64(buf[8:16], f.UserMetadataHash)
	binary.LittleEndian.PutUint64(buf[16:24], f.HeaderHash)
	copy(buf[24:32], f.Reserved[:])
}

// decodeFooter parses a 32-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, bdzerrors.ErrTruncatedFile
	}

	f := &footer{
		LabelsHash:       binary.LittleEndian.Uint64(buf[0:8]),
		UserMetadataHash: binary.LittleEndian.Uint64(buf[8:16]),
		HeaderHash:       binary.LittleEndian.Uint64(buf[16:24]),
	}
	copy(f.Reserved[:], buf[24:32])

	return f, nil
}

// fileLayout holds the byte offsets of an index file's sections.
type fileLayout struct {
	userMetadataOffset uint64 // start of the length prefix
	labelsOffset       uint64
	footerOffset       uint64
	size               uint64
}

// computeLayout places the sections for the given metadata and label sizes.
func computeLayout(userMetadataLen int, labelsSize uint64) fileLayout {
	l := fileLayout{userMetadataOffset: headerSize}
	l.labelsOffset = l.userMetadataOffset + userMetadataLenSize + uint64(userMetadataLen)
	l.footerOffset = l.labelsOffset + labelsSize
	l.size = l.footerOffset + footerSize
	return l
}
