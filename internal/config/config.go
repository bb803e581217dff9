package config

import (
	"fmt"
)

// RemoteFilesPolicy controls what happens to remote objects that no longer
// have a local counterpart.
type RemoteFilesPolicy string

const (
	// RemoteFilesKeep leaves remote extras untouched.
	RemoteFilesKeep RemoteFilesPolicy = "keep"
	// RemoteFilesIgnore skips the remote inventory fetch entirely; every
	// local file is treated as new.
	RemoteFilesIgnore RemoteFilesPolicy = "ignore"
	// RemoteFilesDelete removes remote objects not justified by the local
	// inventory.
	RemoteFilesDelete RemoteFilesPolicy = "delete"
)

const DefaultConcurrency = 8

type Config struct {
	// SourceDir is the local root containing the built assets.
	SourceDir string `mapstructure:"source_dir" yaml:"source_dir"`

	// AssetsPrefix joins the local and remote namespaces. Local files are
	// discovered under SourceDir/AssetsPrefix and uploaded with keys that
	// include the prefix.
	AssetsPrefix string `mapstructure:"assets_prefix" yaml:"assets_prefix"`

	// Manifest is an optional build-manifest file. When set, the local
	// inventory comes from the manifest instead of a directory walk.
	Manifest string `mapstructure:"manifest" yaml:"manifest,omitempty"`

	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// IgnoredFiles holds exact file names or doublestar patterns that are
	// never uploaded and never deleted remotely.
	IgnoredFiles []string `mapstructure:"ignored_files" yaml:"ignored_files,omitempty"`

	// AlwaysUpload holds prefix-relative paths uploaded on every run,
	// regardless of remote presence.
	AlwaysUpload []string `mapstructure:"always_upload" yaml:"always_upload,omitempty"`

	// CustomHeaders maps an exact path or doublestar pattern to the headers
	// applied to matching uploads. Exact paths win over patterns.
	CustomHeaders map[string]map[string]string `mapstructure:"custom_headers" yaml:"custom_headers,omitempty"`

	// Invalidate lists prefix-relative paths submitted for CDN invalidation
	// after a successful sync.
	Invalidate []string `mapstructure:"invalidate" yaml:"invalidate,omitempty"`

	ExistingRemoteFiles RemoteFilesPolicy `mapstructure:"existing_remote_files" yaml:"existing_remote_files"`

	// Gzip enables pre-compressed variant substitution: when a `.gz` twin of
	// an asset exists and is smaller, its bytes are uploaded under the plain
	// key with Content-Encoding set.
	Gzip bool `mapstructure:"gzip" yaml:"gzip"`

	// ReducedRedundancy selects the REDUCED_REDUNDANCY storage class on AWS.
	ReducedRedundancy bool `mapstructure:"reduced_redundancy" yaml:"reduced_redundancy"`

	CDNDistributionID string `mapstructure:"cdn_distribution_id" yaml:"cdn_distribution_id,omitempty"`

	// Concurrency bounds the parallel upload/delete workers.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency,omitempty"`

	Path string `mapstructure:"-" yaml:"-"`
}

func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("`source_dir` is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("`bucket` is required")
	}
	switch c.ExistingRemoteFiles {
	case "":
		c.ExistingRemoteFiles = RemoteFilesKeep
	case RemoteFilesKeep, RemoteFilesIgnore, RemoteFilesDelete:
	default:
		return fmt.Errorf("`existing_remote_files` must be one of keep, ignore, delete; got %q", c.ExistingRemoteFiles)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("`concurrency` must be positive")
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	return nil
}
