package sync

import (
	"fmt"
	"strings"

	"github.com/assetsync/assetsync/internal/inventory"
)

const gzipExt = ".gz"

// Variant is the outcome of choosing between an asset and its pre-compressed
// twin: which key to write, which local file supplies the bytes, and the
// content encoding that applies.
type Variant struct {
	Key             string
	Source          string
	ContentEncoding string
	// Skip means nothing is uploaded for this entry (a gzip twin whose
	// plain counterpart is substituted for it).
	Skip bool
	// SavedPercent is the compression saving for logging; empty when the
	// plain bytes are uploaded.
	SavedPercent string
}

// decideVariant is the pure decision table. It sees only sizes, never the
// filesystem.
func decideVariant(assetPath string, gzipMode, twinExists bool, originalSize, gzippedSize int64) Variant {
	isGz := strings.HasSuffix(assetPath, gzipExt)

	switch {
	case isGz && gzipMode:
		// the plain counterpart is uploaded with the gzip bytes instead
		return Variant{Key: assetPath, Skip: true}

	case gzipMode && twinExists:
		if gzippedSize < originalSize {
			return Variant{
				Key:             assetPath,
				Source:          assetPath + gzipExt,
				ContentEncoding: "gzip",
				SavedPercent:    savedPercent(originalSize, gzippedSize),
			}
		}
		// compression did not help; upload the plain bytes
		return Variant{Key: assetPath, Source: assetPath}

	case isGz:
		// outside gzip mode both representations stay independently
		// addressable: the .gz file keeps its own key
		return Variant{Key: assetPath, Source: assetPath, ContentEncoding: "gzip"}

	default:
		return Variant{Key: assetPath, Source: assetPath}
	}
}

// SelectVariant resolves twin existence and sizes through the filesystem and
// applies the decision table.
func SelectVariant(assetPath string, gzipMode bool, fs inventory.FS) (Variant, error) {
	if strings.HasSuffix(assetPath, gzipExt) {
		return decideVariant(assetPath, gzipMode, false, 0, 0), nil
	}

	twin := assetPath + gzipExt
	if !gzipMode || !fs.IsRegular(twin) {
		return decideVariant(assetPath, gzipMode, false, 0, 0), nil
	}

	originalSize, err := fs.Size(assetPath)
	if err != nil {
		return Variant{}, fmt.Errorf("size %s: %w", assetPath, err)
	}
	gzippedSize, err := fs.Size(twin)
	if err != nil {
		return Variant{}, fmt.Errorf("size %s: %w", twin, err)
	}

	return decideVariant(assetPath, gzipMode, true, originalSize, gzippedSize), nil
}

func savedPercent(originalSize, newSize int64) string {
	return fmt.Sprintf("%.2f", float64(originalSize-newSize)/float64(originalSize)*100)
}
