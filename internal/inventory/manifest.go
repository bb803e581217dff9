package inventory

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// Manifest is the build-manifest format written by the asset pipeline: a
// mapping of logical names to their fingerprinted on-disk files.
type Manifest struct {
	Assets map[string]string `yaml:"assets"`
}

// ManifestSource lists assets from a manifest file instead of walking the
// directory tree. Only the fingerprinted files are listed; non-fingerprinted
// aliases are derived later by the reconciler, never enumerated here.
type ManifestSource struct {
	path   string
	prefix string
}

func NewManifestSource(manifestPath, prefix string) *ManifestSource {
	return &ManifestSource{path: manifestPath, prefix: prefix}
}

func (m *ManifestSource) List() ([]string, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", m.path, err)
	}

	files := make([]string, 0, len(manifest.Assets))
	for _, fingerprinted := range manifest.Assets {
		files = append(files, path.Join(m.prefix, fingerprinted))
	}

	return files, nil
}

var _ Source = (*ManifestSource)(nil)
