package sync

import (
	"log/slog"
	"maps"
	"mime"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/assetsync/assetsync/internal/config"
)

// One year, matching the fingerprint cache policy of asset pipelines.
const oneYearCacheControl = "public, max-age=31557600"

// 32 hex chars before the extension, e.g. app-d41d8cd98f00b204e9800998ecf8427e.js
var hexFingerprintRe = regexp.MustCompile(`(?i)-[0-9a-f]{32}$`)

// HeaderRule is a doublestar pattern with the headers applied to matching
// paths. Pattern rules apply only when no exact-path rule exists.
type HeaderRule struct {
	Pattern string
	Headers map[string]string
}

// MetadataResolver assigns content-type, cache-control/expiry and custom
// headers to upload keys.
type MetadataResolver struct {
	exact             map[string]map[string]string
	patterns          []HeaderRule
	reducedRedundancy bool
	now               func() time.Time
}

func NewMetadataResolver(cfg *config.Config, logger *slog.Logger) *MetadataResolver {
	exact := make(map[string]map[string]string)
	var patterns []HeaderRule

	for rulePath, headers := range cfg.CustomHeaders {
		if !strings.ContainsAny(rulePath, "*?[{") {
			exact[rulePath] = headers
			continue
		}
		if !doublestar.ValidatePattern(rulePath) {
			logger.Warn("skipping invalid custom header pattern", "pattern", rulePath)
			continue
		}
		patterns = append(patterns, HeaderRule{Pattern: rulePath, Headers: headers})
	}

	// config maps iterate in random order; keep pattern evaluation stable
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Pattern < patterns[j].Pattern })

	return &MetadataResolver{
		exact:             exact,
		patterns:          patterns,
		reducedRedundancy: cfg.ReducedRedundancy,
		now:               time.Now,
	}
}

// ContentTypeFor maps the key's extension through the MIME table. Keys for
// standalone .gz twins resolve through the underlying extension so app.css.gz
// keeps text/css. Unknown extensions yield "" and the upload proceeds without
// a content-type.
func ContentTypeFor(key string) string {
	logical := strings.TrimSuffix(key, gzipExt)
	return mime.TypeByExtension(path.Ext(logical))
}

// HasFingerprint reports whether the final path segment, stripped of its
// extension, ends in a 32-hex fingerprint suffix.
func HasFingerprint(key string) bool {
	logical := strings.TrimSuffix(key, gzipExt)
	base := strings.TrimSuffix(path.Base(logical), path.Ext(logical))
	return hexFingerprintRe.MatchString(base)
}

// Resolve returns the cache/custom headers for a key along with the storage
// tier preference.
func (m *MetadataResolver) Resolve(key string) (map[string]string, bool) {
	var fingerprint map[string]string
	if HasFingerprint(key) {
		now := m.now()
		fingerprint = map[string]string{
			"Cache-Control": oneYearCacheControl,
			"Expires":       now.AddDate(1, 0, 0).UTC().Format(http.TimeFormat),
		}
	}

	return resolveHeaders(key, fingerprint, m.exact, m.patterns), m.reducedRedundancy
}

// resolveHeaders merges header sources with documented precedence: an
// exact-path rule fully replaces everything (including fingerprint-derived
// cache headers, unless the rule repeats them); otherwise the first matching
// pattern rule overlays the fingerprint headers.
func resolveHeaders(assetPath string, fingerprint map[string]string, exact map[string]map[string]string, patterns []HeaderRule) map[string]string {
	if headers, ok := exact[assetPath]; ok {
		out := make(map[string]string, len(headers))
		maps.Copy(out, headers)
		return out
	}

	out := make(map[string]string, len(fingerprint))
	maps.Copy(out, fingerprint)

	for _, rule := range patterns {
		if ok, err := doublestar.Match(rule.Pattern, assetPath); err == nil && ok {
			maps.Copy(out, rule.Headers)
			break
		}
	}

	return out
}
