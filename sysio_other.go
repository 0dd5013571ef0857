//go:build !linux && !darwin

package bdzhash

import "os"

// fallocateFile sets the length of file. No disk space is reserved.
func fallocateFile(file *os.File, size int64) error {
	return file.Truncate(size)
}

func prefaultRegion([]byte) {}

func fadviseSequential(int, int64, int64) {}
