package bdzhash

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"
	bdzerrors "github.com/tamirms/bdzhash/errors"
)

// maxKeyLength is the maximum key length accepted by a build.
const maxKeyLength = 65535

// KeySource is a random-access key set. Build hashes every key once per
// attempt, so Key must return the same bytes on every call. The returned
// slice is only read.
type KeySource interface {
	// NumKeys returns the number of keys.
	NumKeys() int

	// Key returns key i, 0 <= i < NumKeys().
	Key(i int) []byte
}

// SliceSource is a KeySource over byte slices.
type SliceSource [][]byte

// NumKeys implements KeySource.
func (s SliceSource) NumKeys() int { return len(s) }

// Key implements KeySource.
func (s SliceSource) Key(i int) []byte { return s[i] }

// StringSource is a KeySource over strings. Keys are exposed without
// copying.
type StringSource []string

// NumKeys implements KeySource.
func (s StringSource) NumKeys() int { return len(s) }

// Key implements KeySource.
func (s StringSource) Key(i int) []byte {
	return unsafe.Slice(unsafe.StringData(s[i]), len(s[i]))
}

// FileSource is a KeySource over a newline-delimited key file. The file is
// memory-mapped and keys are slices of the mapping; Close releases it.
//
// A trailing "\r" is stripped from each line, and a final newline does not
// produce an empty key.
type FileSource struct {
	mmap    mmap.MMap
	data    []byte
	offsets []uint64 // start of line i; offsets[n] is one past the last line
}

// OpenFileSource maps the key file at path.
func OpenFileSource(path string) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat key file: %w", err)
	}
	if stat.Size() == 0 {
		return &FileSource{offsets: []uint64{0}}, nil
	}

	// The line scan reads the whole file front to back.
	fadviseSequential(int(file.Fd()), 0, stat.Size())

	mm, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap key file: %w", err)
	}
	fs := &FileSource{
		mmap: mm,
		data: []byte(mm),
	}
	if err := fs.indexLines(); err != nil {
		return nil, errors.Join(err, fs.Close())
	}
	return fs, nil
}

// indexLines records the start offset of every line.
func (fs *FileSource) indexLines() error {
	data := fs.data
	fs.offsets = append(fs.offsets, 0)
	pos := 0
	for pos < len(data) {
		nl := bytes.IndexByte(data[pos:], '\n')
		end := len(data)
		if nl >= 0 {
			end = pos + nl
		}
		n := end - pos
		if n > 0 && data[end-1] == '\r' {
			n--
		}
		if n > maxKeyLength {
			return fmt.Errorf("%w: line %d", bdzerrors.ErrKeyTooLong, len(fs.offsets))
		}
		pos = end + 1
		fs.offsets = append(fs.offsets, uint64(pos))
	}
	return nil
}

// NumKeys implements KeySource.
func (fs *FileSource) NumKeys() int {
	return len(fs.offsets) - 1
}

// Key implements KeySource.
func (fs *FileSource) Key(i int) []byte {
	// offsets[i+1]-1 is the '\n', or len(data) for an unterminated last line.
	line := fs.data[fs.offsets[i] : fs.offsets[i+1]-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}

// Close unmaps the file. Keys returned earlier become invalid.
func (fs *FileSource) Close() error {
	if fs.mmap == nil {
		return nil
	}
	err := fs.mmap.Unmap()
	fs.mmap = nil
	fs.data = nil
	return err
}

// validateKeys checks the key count and key lengths of src.
func validateKeys(src KeySource) error {
	n := src.NumKeys()
	if n == 0 {
		return bdzerrors.ErrEmptyKeySet
	}
	if uint64(n) > maxKeys {
		return bdzerrors.ErrTooManyKeys
	}
	for i := range n {
		if len(src.Key(i)) > maxKeyLength {
			return fmt.Errorf("%w: key %d", bdzerrors.ErrKeyTooLong, i)
		}
	}
	return nil
}
