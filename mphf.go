package bdzhash

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/bdz"
	"github.com/tamirms/bdzhash/internal/hashfn"
)

// MPHF is a BDZ minimal perfect hash function over a fixed key set.
//
// Lookup maps each key of the build set to a distinct value in [0, n).
// Keys outside the build set map to an arbitrary value in the same range.
//
// An MPHF is immutable and safe for concurrent use.
type MPHF struct {
	table        *bdz.Table
	hash         hashfn.Func
	family       HashFamily
	seed         uint64
	numKeys      uint64
	userMetadata []byte
}

// newMPHF assembles an MPHF from decoded parts. labels is retained.
func newMPHF(h *header, labels, userMetadata []byte, hash hashfn.Func) (*MPHF, error) {
	if hash == nil {
		fn, err := h.HashFamily.hashFunc()
		if err != nil {
			return nil, err
		}
		hash = fn
	}
	table := bdz.NewTable(labels, h.PartitionSize, uint32(h.RankBits))
	if n := table.NumAssigned(); uint64(n) != h.NumKeys {
		return nil, fmt.Errorf("%w: %d assigned vertices for %d keys", bdzerrors.ErrCorruptedIndex, n, h.NumKeys)
	}
	return &MPHF{
		table:        table,
		hash:         hash,
		family:       h.HashFamily,
		seed:         h.Seed,
		numKeys:      h.NumKeys,
		userMetadata: userMetadata,
	}, nil
}

// Lookup returns the index of key in [0, NumKeys()).
func (f *MPHF) Lookup(key []byte) uint32 {
	return f.table.Lookup(f.hash(key, f.seed))
}

// Slot returns the critical vertex of key, a value in [0, NumVertices()).
// Slot is a perfect but not minimal hash: distinct build keys get distinct
// slots, with about 1.23 slots per key.
func (f *MPHF) Slot(key []byte) uint32 {
	return f.table.Vertex(f.hash(key, f.seed))
}

// NumKeys returns n, the size of the build key set.
func (f *MPHF) NumKeys() uint64 {
	return f.numKeys
}

// NumVertices returns m, the hypergraph vertex count and the range of Slot.
func (f *MPHF) NumVertices() uint32 {
	return f.table.NumVertices()
}

// Seed returns the hash seed of the accepted build attempt.
func (f *MPHF) Seed() uint64 {
	return f.seed
}

// HashFamily returns the triple-hash family.
func (f *MPHF) HashFamily() HashFamily {
	return f.family
}

// RankBits returns b, the log2 of vertices per rank table entry.
func (f *MPHF) RankBits() uint32 {
	return f.table.RankBits()
}

// UserMetadata returns the metadata attached with WithUserMetadata.
func (f *MPHF) UserMetadata() []byte {
	return f.userMetadata
}

// Labels returns the packed 2-bit vertex labels, four per byte.
// The slice must not be modified.
func (f *MPHF) Labels() []byte {
	return f.table.Labels()
}

// SizeBits returns the in-memory size of the query structure: the label
// array plus the rank table.
func (f *MPHF) SizeBits() uint64 {
	return f.table.SizeBits()
}

// BitsPerKey returns SizeBits divided by the key count.
func (f *MPHF) BitsPerKey() float64 {
	return float64(f.SizeBits()) / float64(f.numKeys)
}

// header returns the file header describing f.
func (f *MPHF) header() header {
	return header{
		Magic:         magic,
		Version:       version,
		HashFamily:    f.family,
		NumKeys:       f.numKeys,
		NumVertices:   f.table.NumVertices(),
		PartitionSize: f.table.PartitionSize(),
		Seed:          f.seed,
		RankBits:      uint8(f.table.RankBits()),
	}
}

// layout returns the file layout of f's serialized form.
func (f *MPHF) layout() fileLayout {
	return computeLayout(len(f.userMetadata), uint64(len(f.table.Labels())))
}

// footer returns the checksums of f's serialized form.
func (f *MPHF) footer() footer {
	var hdrBuf [headerSize]byte
	hdr := f.header()
	hdr.encodeTo(hdrBuf[:])
	return footer{
		LabelsHash:       xxhash.Sum64(f.table.Labels()),
		UserMetadataHash: xxhash.Sum64(f.userMetadata),
		HeaderHash:       xxhash.Sum64(hdrBuf[:]),
	}
}

// encodeInto writes the serialized form into buf, which must hold
// layout().size bytes.
func (f *MPHF) encodeInto(buf []byte) {
	l := f.layout()
	hdr := f.header()
	hdr.encodeTo(buf[:headerSize])
	binary.LittleEndian.PutUint32(buf[l.userMetadataOffset:], uint32(len(f.userMetadata)))
	copy(buf[l.userMetadataOffset+userMetadataLenSize:], f.userMetadata)
	copy(buf[l.labelsOffset:l.footerOffset], f.table.Labels())
	ftr := f.footer()
	ftr.encodeTo(buf[l.footerOffset:l.size])
}

// MarshalBinary returns the index file representation of f.
func (f *MPHF) MarshalBinary() ([]byte, error) {
	buf := make([]byte, f.layout().size)
	f.encodeInto(buf)
	return buf, nil
}

// UnmarshalBinary replaces f with the MPHF encoded in data. Checksums are
// verified. data is copied.
func (f *MPHF) UnmarshalBinary(data []byte) error {
	parsed, err := parseIndex(data)
	if err != nil {
		return err
	}
	if err := parsed.verify(); err != nil {
		return err
	}
	labels := append([]byte(nil), parsed.labels...)
	userMetadata := append([]byte(nil), parsed.userMetadata...)
	g, err := newMPHF(parsed.header, labels, userMetadata, nil)
	if err != nil {
		return err
	}
	*f = *g
	return nil
}

// WriteTo writes the index file representation of f to w.
func (f *MPHF) WriteTo(w io.Writer) (int64, error) {
	var prefix [headerSize + userMetadataLenSize]byte
	hdr := f.header()
	hdr.encodeTo(prefix[:headerSize])
	binary.LittleEndian.PutUint32(prefix[headerSize:], uint32(len(f.userMetadata)))

	var suffix [footerSize]byte
	ftr := f.footer()
	ftr.encodeTo(suffix[:])

	var written int64
	for _, part := range [][]byte{prefix[:], f.userMetadata, f.table.Labels(), suffix[:]} {
		n, err := w.Write(part)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("write index: %w", err)
		}
	}
	return written, nil
}

// parsedIndex holds views into an encoded index.
type parsedIndex struct {
	header       *header
	rawHeader    []byte
	userMetadata []byte
	labels       []byte
	footer       []byte
}

// parseIndex validates the structure of an encoded index and slices out its
// sections without copying. Checksums are not checked.
func parseIndex(data []byte) (*parsedIndex, error) {
	if len(data) < minFileSize {
		return nil, bdzerrors.ErrTruncatedFile
	}
	hdr, err := decodeHeader(data[:headerSize])
	if err != nil {
		return nil, err
	}

	fileSize := uint64(len(data))
	userMetadataLen := binary.LittleEndian.Uint32(data[headerSize:])
	l := computeLayout(int(userMetadataLen), hdr.labelsSize())
	if l.size > fileSize {
		return nil, bdzerrors.ErrTruncatedFile
	}
	if l.size < fileSize {
		return nil, fmt.Errorf("%w: %d trailing bytes", bdzerrors.ErrCorruptedIndex, fileSize-l.size)
	}

	return &parsedIndex{
		header:       hdr,
		rawHeader:    data[:headerSize],
		userMetadata: data[l.userMetadataOffset+userMetadataLenSize : l.labelsOffset],
		labels:       data[l.labelsOffset:l.footerOffset],
		footer:       data[l.footerOffset:l.size],
	}, nil
}

// verify checks the header, user metadata and labels against the footer.
func (p *parsedIndex) verify() error {
	ft, err := decodeFooter(p.footer)
	if err != nil {
		return err
	}
	if xxhash.Sum64(p.rawHeader) != ft.HeaderHash {
		return fmt.Errorf("%w: header", bdzerrors.ErrChecksumFailed)
	}
	if xxhash.Sum64(p.labels) != ft.LabelsHash {
		return fmt.Errorf("%w: label array", bdzerrors.ErrChecksumFailed)
	}
	if xxhash.Sum64(p.userMetadata) != ft.UserMetadataHash {
		return fmt.Errorf("%w: user metadata", bdzerrors.ErrChecksumFailed)
	}
	return nil
}
