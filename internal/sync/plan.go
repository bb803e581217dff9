package sync

import (
	"github.com/assetsync/assetsync/internal/inventory"
)

// UploadPlan is the fully resolved write for one logical asset: the storage
// key (which differs from the source when a pre-compressed variant is
// substituted), the local payload path, the final headers and the storage
// tier.
type UploadPlan struct {
	Key    string
	Source string
	// Skip means the entry produces no write at all.
	Skip              bool
	Headers           map[string]string
	ReducedRedundancy bool
	// SavedPercent is compression saving for logging; empty when not applicable.
	SavedPercent string
}

// BuildPlan resolves the variant choice and metadata for a single asset.
func BuildPlan(assetPath string, gzipMode bool, fs inventory.FS, meta *MetadataResolver) (UploadPlan, error) {
	variant, err := SelectVariant(assetPath, gzipMode, fs)
	if err != nil {
		return UploadPlan{}, err
	}
	if variant.Skip {
		return UploadPlan{Key: variant.Key, Skip: true}, nil
	}

	headers, reducedRedundancy := meta.Resolve(variant.Key)
	if _, ok := headers["Content-Type"]; !ok {
		if ct := ContentTypeFor(variant.Key); ct != "" {
			headers["Content-Type"] = ct
		}
	}
	if variant.ContentEncoding != "" {
		if _, ok := headers["Content-Encoding"]; !ok {
			headers["Content-Encoding"] = variant.ContentEncoding
		}
	}

	return UploadPlan{
		Key:               variant.Key,
		Source:            variant.Source,
		Headers:           headers,
		ReducedRedundancy: reducedRedundancy,
		SavedPercent:      variant.SavedPercent,
	}, nil
}
