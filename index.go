package bdzhash

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
	bdzerrors "github.com/tamirms/bdzhash/errors"
)

// minFileSize is the size of the smallest valid index file: header, empty
// metadata section, the 9 label bytes of the minimum 33 vertices (r = 11),
// footer.
const minFileSize = headerSize + userMetadataLenSize + 9 + footerSize

// Index is an MPHF read from an index file.
//
// Queries may run concurrently with each other. Close must not overlap a
// query; once it returns, Query, Slot and Verify report ErrIndexClosed.
type Index struct {
	mmap mmap.MMap // nil for OpenBytes
	data []byte

	parsed *parsedIndex
	mphf   *MPHF

	closed atomic.Bool
}

// Stats summarizes an index.
type Stats struct {
	NumKeys     uint64
	NumVertices uint32
	HashFamily  string
	RankBits    uint32
	BitsPerKey  float64 // in-memory query structure, labels plus rank table
	FileBits    float64 // index file size per key
	IndexSize   int64
}

// Open maps the index file at path. The descriptor is closed before Open
// returns; the mapping stays valid until Close.
func Open(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile maps an already open index file. f stays owned by the caller
// and may be closed as soon as OpenFile returns.
func OpenFile(f *os.File) (*Index, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index: %w", err)
	}
	if stat.Size() < int64(minFileSize) {
		return nil, bdzerrors.ErrTruncatedFile
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("map index: %w", err)
	}

	idx := &Index{
		mmap: mm,
		data: []byte(mm),
	}
	if err := idx.initFromData(); err != nil {
		return nil, errors.Join(err, idx.Close())
	}
	return idx, nil
}

// OpenBytes reads an index from data without copying it. data must not
// change while the Index is in use.
func OpenBytes(data []byte) (*Index, error) {
	idx := &Index{
		data: data,
	}
	if err := idx.initFromData(); err != nil {
		return nil, err
	}
	return idx, nil
}

// initFromData parses the header and sections and rebuilds the rank table.
// Checksums are deferred to Verify.
func (idx *Index) initFromData() error {
	parsed, err := parseIndex(idx.data)
	if err != nil {
		return err
	}
	idx.parsed = parsed

	idx.mphf, err = newMPHF(parsed.header, parsed.labels, parsed.userMetadata, nil)
	return err
}

// Close unmaps the file. Closing twice is a no-op.
func (idx *Index) Close() error {
	if idx.closed.Swap(true) {
		return nil
	}

	if idx.mmap != nil {
		return idx.mmap.Unmap()
	}
	return nil
}

// Query returns the index of key in [0, NumKeys()).
// Keys outside the build set return an arbitrary index in the same range.
func (idx *Index) Query(key []byte) (uint32, error) {
	if idx.closed.Load() {
		return 0, bdzerrors.ErrIndexClosed
	}
	return idx.mphf.Lookup(key), nil
}

// Slot returns the critical vertex of key in [0, NumVertices()).
func (idx *Index) Slot(key []byte) (uint32, error) {
	if idx.closed.Load() {
		return 0, bdzerrors.ErrIndexClosed
	}
	return idx.mphf.Slot(key), nil
}

// NumKeys returns the number of keys in the index.
func (idx *Index) NumKeys() uint64 {
	return idx.parsed.header.NumKeys
}

// NumVertices returns m, the range of Slot.
func (idx *Index) NumVertices() uint32 {
	return idx.parsed.header.NumVertices
}

// HashFamily returns the triple-hash family the index was built with.
func (idx *Index) HashFamily() HashFamily {
	return idx.parsed.header.HashFamily
}

// UserMetadata returns the metadata section. It aliases the mapping and is
// invalid after Close.
func (idx *Index) UserMetadata() []byte {
	return idx.parsed.userMetadata
}

// GetStats opens path just long enough to read its Stats.
func GetStats(path string) (*Stats, error) {
	idx, err := Open(path)
	if err != nil {
		return nil, err
	}

	return idx.Stats(), idx.Close()
}

// Stats reports sizes and parameters of idx.
func (idx *Index) Stats() *Stats {
	fileSize := int64(len(idx.data))
	hdr := idx.parsed.header

	return &Stats{
		NumKeys:     hdr.NumKeys,
		NumVertices: hdr.NumVertices,
		HashFamily:  hdr.HashFamily.String(),
		RankBits:    uint32(hdr.RankBits),
		BitsPerKey:  idx.mphf.BitsPerKey(),
		FileBits:    float64(fileSize*8) / float64(hdr.NumKeys),
		IndexSize:   fileSize,
	}
}

// Verify checks the header, label array and user metadata against the footer
// checksums. Open does not.
func (idx *Index) Verify() error {
	if idx.closed.Load() {
		return bdzerrors.ErrIndexClosed
	}
	return idx.parsed.verify()
}
