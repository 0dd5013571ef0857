//go:build linux

package bdzhash

import (
	"os"

	"golang.org/x/sys/unix"
)

// madvPopulateWrite is MADV_POPULATE_WRITE (Linux 5.14+). Older kernels
// reject it with EINVAL.
const madvPopulateWrite = 23

// fallocateFile reserves size bytes of disk for file and sets its length.
// Writes through a mapping of an unreserved sparse file fault with SIGBUS
// when the disk fills up.
func fallocateFile(file *os.File, size int64) error {
	fd := int(file.Fd())
	// Filesystems without fallocate (NFS, tmpfs on old kernels) still get
	// the right length.
	_ = unix.Fallocate(fd, 0, 0, size)
	return unix.Ftruncate(fd, size)
}

// prefaultRegion faults in the pages of data for writing. Best-effort.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}

// fadviseSequential marks [offset, offset+length) of fd for sequential
// read-ahead. Best-effort.
func fadviseSequential(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}
