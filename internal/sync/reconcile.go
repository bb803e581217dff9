package sync

import (
	"log/slog"
	"path"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/assetsync/assetsync/internal/config"
)

// Reconciler computes the set difference between the local and remote
// inventories under the configured exclusion rules.
type Reconciler struct {
	ignore *IgnoreList
	always mapset.Set[string]
	log    *slog.Logger
}

func NewReconciler(cfg *config.Config, ignore *IgnoreList, logger *slog.Logger) *Reconciler {
	// always-upload entries are prefix-relative in config; join them before
	// any comparison against inventory paths
	always := mapset.NewSet[string]()
	for _, p := range cfg.AlwaysUpload {
		always.Add(path.Join(cfg.AssetsPrefix, p))
	}

	return &Reconciler{
		ignore: ignore,
		always: always,
		log:    logger,
	}
}

// UploadSet returns the local paths to upload: local minus ignored minus
// already-remote, plus the always-upload set, expanded with fingerprint
// aliases. The result has no duplicates; order is not significant.
func (r *Reconciler) UploadSet(local []string, remote mapset.Set[string]) []string {
	result := mapset.NewSet[string]()
	for _, p := range local {
		if r.excluded(p, remote) {
			continue
		}
		result.Add(p)
	}

	for p := range r.always.Iter() {
		result.Add(p)
	}

	// Aliases are derived, never enumerated, and go through the same
	// exclusion decisions as any other asset.
	for _, p := range result.ToSlice() {
		alias, ok := AliasOf(p)
		if !ok || r.excluded(alias, remote) {
			continue
		}
		result.Add(alias)
	}

	return result.ToSlice()
}

func (r *Reconciler) excluded(assetPath string, remote mapset.Set[string]) bool {
	if r.ignore.Ignored(assetPath) {
		return true
	}
	return remote.Contains(assetPath) && !r.always.Contains(assetPath)
}

// DeletionSet returns remote minus local minus ignored minus always-upload.
// Candidates only ever come from what currently exists remotely; anything
// still justified locally, ignored, or always-uploaded is protected.
func (r *Reconciler) DeletionSet(remote, local mapset.Set[string]) mapset.Set[string] {
	out := mapset.NewSet[string]()
	for p := range remote.Iter() {
		if local.Contains(p) || r.always.Contains(p) || r.ignore.Ignored(p) {
			continue
		}
		out.Add(p)
	}
	return out
}

// Always exposes the prefix-joined always-upload set.
func (r *Reconciler) Always() mapset.Set[string] {
	return r.always
}
