package inventory

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
)

// Source enumerates the local asset tree as prefix-joined, slash-separated
// paths. The syncer does not care whether the listing comes from a directory
// walk or a build manifest.
type Source interface {
	List() ([]string, error)
}

// DirSource lists assets by walking root/prefix recursively.
type DirSource struct {
	root   string
	prefix string
}

func NewDirSource(root, prefix string) *DirSource {
	return &DirSource{root: root, prefix: prefix}
}

func (d *DirSource) List() ([]string, error) {
	base := filepath.Join(d.root, filepath.FromSlash(d.prefix))

	var files []string
	err := filepath.WalkDir(base, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		files = append(files, path.Join(d.prefix, filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", base, err)
	}

	return files, nil
}

var _ Source = (*DirSource)(nil)
