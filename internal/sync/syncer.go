package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/assetsync/assetsync/internal/blob"
	"github.com/assetsync/assetsync/internal/cdn"
	"github.com/assetsync/assetsync/internal/config"
	"github.com/assetsync/assetsync/internal/inventory"
)

// Syncer runs one reconciliation pass: upload, then delete remote extras,
// then CDN invalidation. Each phase starts only after the previous one has
// fully completed.
type Syncer struct {
	cfg    *config.Config
	blob   blob.Client
	cdn    cdn.Invalidator
	source inventory.Source
	fs     inventory.FS
	rec    *Reconciler
	meta   *MetadataResolver
	log    *slog.Logger
}

func New(cfg *config.Config, client blob.Client, invalidator cdn.Invalidator, source inventory.Source, fs inventory.FS, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}

	ignore := NewIgnoreList(ParseIgnoreRules(cfg.IgnoredFiles, logger))
	ignore.LoadFile(cfg.SourceDir, logger)

	return &Syncer{
		cfg:    cfg,
		blob:   client,
		cdn:    invalidator,
		source: source,
		fs:     fs,
		rec:    NewReconciler(cfg, ignore, logger),
		meta:   NewMetadataResolver(cfg, logger),
		log:    logger,
	}
}

// Run performs the full pass. Any transfer failure aborts the remainder of
// the invocation; re-running re-derives the same sets from current remote
// state and completes the rest.
func (s *Syncer) Run(ctx context.Context) error {
	tStart := time.Now()

	local, err := s.source.List()
	if err != nil {
		return fmt.Errorf("list local files: %w", err)
	}
	localSet := mapset.NewSet(local...)

	remote := mapset.NewSet[string]()
	if s.cfg.ExistingRemoteFiles != config.RemoteFilesIgnore {
		remote, err = s.listRemote(ctx)
		if err != nil {
			return err
		}
	}

	if err := s.uploadAll(ctx, local, remote); err != nil {
		return err
	}
	if err := s.deleteExtras(ctx, localSet); err != nil {
		return err
	}
	if err := s.invalidate(ctx); err != nil {
		return err
	}

	s.log.Info("sync complete", "took", time.Since(tStart).Round(time.Millisecond))
	return nil
}

func (s *Syncer) listRemote(ctx context.Context) (mapset.Set[string], error) {
	objects, err := s.blob.ListObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote inventory: %w", err)
	}

	set := mapset.NewSet[string]()
	for _, obj := range objects {
		set.Add(obj.Key)
	}
	return set, nil
}

func (s *Syncer) uploadAll(ctx context.Context, local []string, remote mapset.Set[string]) error {
	uploads := s.rec.UploadSet(local, remote)
	// order is not significant; sorted for stable logs
	sort.Strings(uploads)

	s.log.Info("upload pass", "files", len(uploads))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, key := range uploads {
		key := key
		g.Go(func() error {
			return s.uploadOne(gCtx, key)
		})
	}
	return g.Wait()
}

func (s *Syncer) uploadOne(ctx context.Context, key string) error {
	// directories or missing aliases that slipped into the inventory
	if !s.fs.IsRegular(key) {
		s.log.Debug("skipping non-regular file", "key", key)
		return nil
	}

	plan, err := BuildPlan(key, s.cfg.Gzip, s.fs, s.meta)
	if err != nil {
		return err
	}
	if plan.Skip {
		s.log.Debug("skipping gzip twin", "key", plan.Key)
		return nil
	}

	size, err := s.fs.Size(plan.Source)
	if err != nil {
		return fmt.Errorf("size %s: %w", plan.Source, err)
	}

	body, err := s.fs.Open(plan.Source)
	if err != nil {
		return fmt.Errorf("open %s: %w", plan.Source, err)
	}
	defer body.Close()

	_, err = s.blob.PutObject(ctx, &blob.PutObjectParams{
		Key:      plan.Key,
		Size:     size,
		Body:     body,
		Metadata: blob.MetadataFromHeaders(plan.Headers, plan.ReducedRedundancy),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", plan.Key, err)
	}

	if plan.SavedPercent != "" {
		s.log.Info("uploaded gzipped", "key", plan.Key, "size", humanize.Bytes(uint64(size)), "saved", plan.SavedPercent+"%")
	} else {
		s.log.Info("uploaded", "key", plan.Key, "size", humanize.Bytes(uint64(size)))
	}
	return nil
}

func (s *Syncer) deleteExtras(ctx context.Context, localSet mapset.Set[string]) error {
	if s.cfg.ExistingRemoteFiles != config.RemoteFilesDelete {
		return nil
	}

	// remote state may have mutated since the upload pass; fetch again
	remote, err := s.listRemote(ctx)
	if err != nil {
		return err
	}

	// aliases of local fingerprinted files are justified remote objects
	protected := localSet.Clone()
	for p := range localSet.Iter() {
		if alias, ok := AliasOf(p); ok {
			protected.Add(alias)
		}
	}

	deletions := s.rec.DeletionSet(remote, protected).ToSlice()
	sort.Strings(deletions)

	s.log.Info("delete pass", "files", len(deletions))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, key := range deletions {
		key := key
		g.Go(func() error {
			if _, err := s.blob.DeleteObject(gCtx, key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
			s.log.Info("deleted", "key", key)
			return nil
		})
	}
	return g.Wait()
}

func (s *Syncer) invalidate(ctx context.Context) error {
	if s.cfg.CDNDistributionID == "" || len(s.cfg.Invalidate) == 0 || s.cdn == nil {
		return nil
	}

	paths := make([]string, len(s.cfg.Invalidate))
	for i, p := range s.cfg.Invalidate {
		paths[i] = "/" + path.Join(s.cfg.AssetsPrefix, p)
	}

	id, err := s.cdn.Invalidate(ctx, s.cfg.CDNDistributionID, paths)
	if err != nil {
		return fmt.Errorf("cdn invalidation: %w", err)
	}

	s.log.Info("invalidation submitted", "id", id, "paths", len(paths))
	return nil
}
