package bdzhash

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// indexWriter writes an index file through a memory mapping.
// File layout: [Header 64B][UserMetaLen 4B][UserMeta][Labels ceil(m/4)B][Footer 32B]
//
// The file is created, sized and mapped when the writer is made; the size
// depends only on n, c and the metadata length.
type indexWriter struct {
	path string
	file *os.File
	mmap mmap.MMap
	data []byte // mmap as a plain slice

	layout fileLayout
}

// newIndexWriter creates path and maps it for a file of the given layout.
func newIndexWriter(path string, layout fileLayout) (*indexWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	if err := fallocateFile(file, int64(layout.size)); err != nil {
		primaryErr := fmt.Errorf("reserve %d bytes for %s: %w", layout.size, path, err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	mm, err := mmap.MapRegion(file, int(layout.size), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("map %s: %w", path, err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	iw := &indexWriter{
		path:   path,
		file:   file,
		mmap:   mm,
		data:   []byte(mm),
		layout: layout,
	}

	// Labels are nearly the whole file.
	prefaultRegion(iw.data[layout.labelsOffset:layout.footerOffset])

	return iw, nil
}

// write encodes f into the mapping. f's layout must match the writer's.
func (iw *indexWriter) write(f *MPHF) error {
	if got := f.layout(); got != iw.layout {
		return fmt.Errorf("index layout changed: file sized for %d bytes, index needs %d", iw.layout.size, got.size)
	}
	f.encodeInto(iw.data)
	return nil
}

// finalize flushes the mapping to disk and releases the file. Later close
// calls are no-ops.
func (iw *indexWriter) finalize() error {
	if err := iw.mmap.Flush(); err != nil {
		primaryErr := fmt.Errorf("flush %s: %w", iw.path, err)
		return errors.Join(primaryErr, iw.close())
	}

	unmapErr := iw.mmap.Unmap()
	iw.mmap = nil
	if unmapErr != nil {
		primaryErr := fmt.Errorf("unmap %s: %w", iw.path, unmapErr)
		return errors.Join(primaryErr, iw.close())
	}

	closeErr := iw.file.Close()
	iw.file = nil
	return closeErr
}

// close releases the mapping and the file without flushing. Repeated calls
// return nil.
func (iw *indexWriter) close() error {
	var unmapErr error
	if iw.mmap != nil {
		unmapErr = iw.mmap.Unmap()
		iw.mmap = nil
	}
	var closeErr error
	if iw.file != nil {
		closeErr = iw.file.Close()
		iw.file = nil
	}
	return errors.Join(unmapErr, closeErr)
}

// abort closes the writer and removes the partial file.
func (iw *indexWriter) abort() error {
	return errors.Join(iw.close(), os.Remove(iw.path))
}

// Save writes f to path as an index file readable by Open.
func (f *MPHF) Save(path string) error {
	iw, err := newIndexWriter(path, f.layout())
	if err != nil {
		return err
	}
	if err := iw.write(f); err != nil {
		return errors.Join(err, iw.abort())
	}
	if err := iw.finalize(); err != nil {
		return errors.Join(err, os.Remove(path))
	}
	return nil
}
