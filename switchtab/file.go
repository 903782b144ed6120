package switchtab

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/exp/mmap"
)

// DexEntry is the archive member read from zip-packaged inputs.
const DexEntry = "classes.dex"

// File is a Reader over a dex file on disk. Plain .dex files are memory
// mapped; zip archives (.apk, .jar, .zip) have their DexEntry member read
// into memory.
type File struct {
	*BytesReader
	size   int
	closer io.Closer
}

// Open opens path for switch table reads.
func Open(path string) (*File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".apk", ".jar", ".zip":
		return openArchive(path)
	default:
		m, err := mmap.Open(path)
		if err != nil {
			return nil, fmt.Errorf("mapping %s: %w", path, err)
		}
		return &File{BytesReader: NewReader(m), size: m.Len(), closer: m}, nil
	}
}

func openArchive(path string) (*File, error) {
	z, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer z.Close()
	for _, f := range z.File {
		if f.Name != DexEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in %s: %w", DexEntry, path, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s in %s: %w", DexEntry, path, err)
		}
		return &File{BytesReader: NewReader(bytes.NewReader(data)), size: len(data)}, nil
	}
	return nil, fmt.Errorf("archive %s has no %s", path, DexEntry)
}

// Size returns the length of the dex data in bytes.
func (f *File) Size() int {
	return f.size
}

// Close releases the mapping, if any.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
