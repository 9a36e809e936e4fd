// Package mmap maps local files read-only into memory. A mapped File is an
// io.ReaderAt and io.Seeker over the file content, which lets footer based
// formats such as Parquet and Arrow IPC read a file without copying it.
package mmap

import (
	"bytes"
	"fmt"
	"os"
)

// File is a read-only view of a whole file.
type File struct {
	*bytes.Reader

	data   []byte
	mapped bool
}

// Open maps path into memory. Empty files and platforms without mmap fall
// back to reading the file.
func Open(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	size := st.Size()
	if size == 0 {
		return newFile(nil, false), nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("%s is too large to map", path)
	}

	data, mapped, err := mapFile(f, int(size))
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	return newFile(data, mapped), nil
}

func newFile(data []byte, mapped bool) *File {
	return &File{Reader: bytes.NewReader(data), data: data, mapped: mapped}
}

// Bytes returns the file content. It must not be used after Close.
func (f *File) Bytes() []byte {
	return f.data
}

// Mapped reports whether the content is backed by a memory mapping.
func (f *File) Mapped() bool {
	return f.mapped
}

// Close releases the mapping. It is safe to call more than once.
func (f *File) Close() error {
	data, mapped := f.data, f.mapped
	f.data, f.mapped = nil, false
	f.Reader = bytes.NewReader(nil)
	if !mapped || data == nil {
		return nil
	}
	return unmap(data)
}
