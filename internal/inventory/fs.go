package inventory

import (
	"io"
	"os"
	"path/filepath"
)

// FS is the filesystem surface the sync core needs: existence/size checks
// and byte-stream access for prefix-joined asset paths.
type FS interface {
	// IsRegular reports whether the path exists and is a regular file.
	// Directories, symlinks to directories and missing files return false.
	IsRegular(assetPath string) bool
	Size(assetPath string) (int64, error)
	Open(assetPath string) (io.ReadCloser, error)
}

// OSFS resolves asset paths against a local root directory.
type OSFS struct {
	root string
}

func NewOSFS(root string) *OSFS {
	return &OSFS{root: root}
}

func (f *OSFS) abs(assetPath string) string {
	return filepath.Join(f.root, filepath.FromSlash(assetPath))
}

func (f *OSFS) IsRegular(assetPath string) bool {
	info, err := os.Stat(f.abs(assetPath))
	return err == nil && info.Mode().IsRegular()
}

func (f *OSFS) Size(assetPath string) (int64, error) {
	info, err := os.Stat(f.abs(assetPath))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *OSFS) Open(assetPath string) (io.ReadCloser, error) {
	return os.Open(f.abs(assetPath))
}

var _ FS = (*OSFS)(nil)
