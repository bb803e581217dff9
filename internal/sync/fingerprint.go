package sync

import (
	"regexp"
)

// Fingerprinted files look like dir/name-token.ext: the directory match is
// greedy, the base name contains no dot or hyphen, the token no slash or
// dot. Names with extra hyphens split at the first hyphen of the final
// segment; multi-part extensions (app.min-abc123.css) do not match.
var fingerprintedRe = regexp.MustCompile(`^(?:(.+)/)?([^/.\-]+)-([^/.]+)\.([^/.]+)$`)

// AliasOf derives the non-fingerprinted alias of a fingerprinted asset path:
// css/app-ab12ef34.css -> css/app.css. Returns false for paths that do not
// follow the fingerprinted naming convention.
func AliasOf(assetPath string) (string, bool) {
	m := fingerprintedRe.FindStringSubmatch(assetPath)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1] + "/" + m[2] + "." + m[4], true
	}
	return m[2] + "." + m[4], true
}
