package sync

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetsync/assetsync/internal/blob"
	"github.com/assetsync/assetsync/internal/config"
	"github.com/assetsync/assetsync/internal/inventory"
)

// ===================================================================================================
// fakes

type fakeObject struct {
	body     string
	metadata blob.Metadata
}

type fakeBlob struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	events  []string // "put:<key>" / "delete:<key>" in call order
	listErr error
	putErr  error
	delErr  error
	lists   int
}

func newFakeBlob(keys ...string) *fakeBlob {
	objects := make(map[string]fakeObject)
	for _, k := range keys {
		objects[k] = fakeObject{}
	}
	return &fakeBlob{objects: objects}
}

func (f *fakeBlob) ListObjects(ctx context.Context) ([]*blob.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*blob.ObjectInfo
	for k := range f.objects {
		out = append(out, &blob.ObjectInfo{Key: k})
	}
	return out, nil
}

func (f *fakeBlob) PutObject(ctx context.Context, params *blob.PutObjectParams) (*blob.PutObjectResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[params.Key] = fakeObject{body: string(body), metadata: params.Metadata}
	f.events = append(f.events, "put:"+params.Key)
	return &blob.PutObjectResponse{Key: params.Key, Size: params.Size}, nil
}

func (f *fakeBlob) DeleteObject(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return false, f.delErr
	}
	delete(f.objects, key)
	f.events = append(f.events, "delete:"+key)
	return true, nil
}

func (f *fakeBlob) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeBlob) object(key string) (fakeObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	return obj, ok
}

var _ blob.Client = (*fakeBlob)(nil)

type fakeCDN struct {
	mu           sync.Mutex
	distribution string
	paths        []string
	calls        int
}

func (f *fakeCDN) Invalidate(ctx context.Context, distributionID string, paths []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.distribution = distributionID
	f.paths = paths
	return "INV123", nil
}

type sliceSource []string

func (s sliceSource) List() ([]string, error) { return s, nil }

// ===================================================================================================

type syncFixture struct {
	root string
	blob *fakeBlob
	cdn  *fakeCDN
}

func writeAsset(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func newSyncer(t *testing.T, cfg *config.Config, fx *syncFixture) *Syncer {
	t.Helper()
	cfg.SourceDir = fx.root
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	source := inventory.NewDirSource(fx.root, cfg.AssetsPrefix)
	return New(cfg, fx.blob, fx.cdn, source, inventory.NewOSFS(fx.root), discardLogger())
}

func TestSyncer_UploadsMissingFiles(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob(), cdn: &fakeCDN{}}
	writeAsset(t, fx.root, "assets/css/app.css", "body{}")
	writeAsset(t, fx.root, "assets/css/app-abc123.css", "body{}")

	s := newSyncer(t, &config.Config{AssetsPrefix: "assets"}, fx)
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{
		"assets/css/app-abc123.css",
		"assets/css/app.css",
	}, fx.blob.keys())
}

func TestSyncer_SkipsAlreadyRemote(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob("assets/a.js"), cdn: &fakeCDN{}}
	writeAsset(t, fx.root, "assets/a.js", "var a")
	writeAsset(t, fx.root, "assets/b.js", "var b")

	s := newSyncer(t, &config.Config{AssetsPrefix: "assets"}, fx)
	require.NoError(t, s.Run(context.Background()))

	assert.Len(t, fx.blob.events, 1)
	assert.Equal(t, "put:assets/b.js", fx.blob.events[0])
}

func TestSyncer_DeletePolicyRemovesExtras(t *testing.T) {
	fx := &syncFixture{
		root: t.TempDir(),
		blob: newFakeBlob("assets/a.js", "assets/stale.js"),
		cdn:  &fakeCDN{},
	}
	writeAsset(t, fx.root, "assets/a.js", "var a")

	s := newSyncer(t, &config.Config{
		AssetsPrefix:        "assets",
		ExistingRemoteFiles: config.RemoteFilesDelete,
	}, fx)
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{"assets/a.js"}, fx.blob.keys())
}

func TestSyncer_DeleteProtectsAliases(t *testing.T) {
	// remote holds the alias of a still-present fingerprinted file
	fx := &syncFixture{
		root: t.TempDir(),
		blob: newFakeBlob("assets/app-ab12ef34.css", "assets/app.css"),
		cdn:  &fakeCDN{},
	}
	writeAsset(t, fx.root, "assets/app-ab12ef34.css", "body{}")

	s := newSyncer(t, &config.Config{
		AssetsPrefix:        "assets",
		ExistingRemoteFiles: config.RemoteFilesDelete,
	}, fx)
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{"assets/app-ab12ef34.css", "assets/app.css"}, fx.blob.keys())
}

func TestSyncer_KeepPolicySuppressesDeletion(t *testing.T) {
	fx := &syncFixture{
		root: t.TempDir(),
		blob: newFakeBlob("assets/stale1.js", "assets/stale2.js", "assets/stale3.js"),
		cdn:  &fakeCDN{},
	}
	writeAsset(t, fx.root, "assets/a.js", "var a")

	s := newSyncer(t, &config.Config{
		AssetsPrefix:        "assets",
		ExistingRemoteFiles: config.RemoteFilesKeep,
	}, fx)
	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, fx.blob.keys(), "assets/stale1.js")
	assert.Contains(t, fx.blob.keys(), "assets/stale2.js")
	assert.Contains(t, fx.blob.keys(), "assets/stale3.js")
}

func TestSyncer_IgnorePolicySkipsRemoteFetch(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob("assets/a.js"), cdn: &fakeCDN{}}
	writeAsset(t, fx.root, "assets/a.js", "var a")

	s := newSyncer(t, &config.Config{
		AssetsPrefix:        "assets",
		ExistingRemoteFiles: config.RemoteFilesIgnore,
	}, fx)
	require.NoError(t, s.Run(context.Background()))

	assert.Zero(t, fx.blob.lists, "remote inventory must not be fetched under the ignore policy")
	assert.Equal(t, []string{"put:assets/a.js"}, fx.blob.events, "every local file treated as new")
}

func TestSyncer_BucketNotFoundIsFatal(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob(), cdn: &fakeCDN{}}
	fx.blob.listErr = blob.ErrBucketNotFound
	writeAsset(t, fx.root, "assets/a.js", "var a")

	s := newSyncer(t, &config.Config{AssetsPrefix: "assets"}, fx)
	err := s.Run(context.Background())

	require.ErrorIs(t, err, blob.ErrBucketNotFound)
	assert.Empty(t, fx.blob.events, "no upload may start after a failed inventory fetch")
	assert.Zero(t, fx.cdn.calls)
}

func TestSyncer_UploadFailureAbortsPipeline(t *testing.T) {
	fx := &syncFixture{
		root: t.TempDir(),
		blob: newFakeBlob("assets/stale.js"),
		cdn:  &fakeCDN{},
	}
	fx.blob.putErr = assert.AnError
	writeAsset(t, fx.root, "assets/a.js", "var a")

	s := newSyncer(t, &config.Config{
		AssetsPrefix:        "assets",
		ExistingRemoteFiles: config.RemoteFilesDelete,
		CDNDistributionID:   "DIST1",
		Invalidate:          []string{"a.js"},
	}, fx)

	err := s.Run(context.Background())
	require.ErrorIs(t, err, assert.AnError)

	assert.Contains(t, fx.blob.keys(), "assets/stale.js", "deletion pass must not run after an upload failure")
	assert.Zero(t, fx.cdn.calls, "invalidation must not run after an upload failure")
}

func TestSyncer_DeletionsRunAfterUploads(t *testing.T) {
	fx := &syncFixture{
		root: t.TempDir(),
		blob: newFakeBlob("assets/stale1.js", "assets/stale2.js"),
		cdn:  &fakeCDN{},
	}
	writeAsset(t, fx.root, "assets/a.js", "var a")
	writeAsset(t, fx.root, "assets/b.js", "var b")

	s := newSyncer(t, &config.Config{
		AssetsPrefix:        "assets",
		ExistingRemoteFiles: config.RemoteFilesDelete,
		Concurrency:         2,
	}, fx)
	require.NoError(t, s.Run(context.Background()))

	lastPut, firstDelete := -1, len(fx.blob.events)
	for i, ev := range fx.blob.events {
		switch ev[:3] {
		case "put":
			if i > lastPut {
				lastPut = i
			}
		case "del":
			if i < firstDelete {
				firstDelete = i
			}
		}
	}
	assert.Less(t, lastPut, firstDelete, "no deletion may begin before the upload pass completes")
}

func TestSyncer_GzipSubstitution(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob(), cdn: &fakeCDN{}}
	writeAsset(t, fx.root, "assets/app.css", "0123456789")
	writeAsset(t, fx.root, "assets/app.css.gz", "0123")

	s := newSyncer(t, &config.Config{AssetsPrefix: "assets", Gzip: true}, fx)
	require.NoError(t, s.Run(context.Background()))

	// one write: gzip bytes under the plain key, the twin itself skipped
	assert.Equal(t, []string{"put:assets/app.css"}, fx.blob.events)

	obj, ok := fx.blob.object("assets/app.css")
	require.True(t, ok)
	assert.Equal(t, "0123", obj.body)
	assert.Equal(t, "gzip", obj.metadata.ContentEncoding)
}

func TestSyncer_GzipTwinKeepsOwnKeyOutsideGzipMode(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob(), cdn: &fakeCDN{}}
	writeAsset(t, fx.root, "assets/app.css", "0123456789")
	writeAsset(t, fx.root, "assets/app.css.gz", "0123")

	s := newSyncer(t, &config.Config{AssetsPrefix: "assets"}, fx)
	require.NoError(t, s.Run(context.Background()))

	assert.ElementsMatch(t, []string{"assets/app.css", "assets/app.css.gz"}, fx.blob.keys())

	obj, _ := fx.blob.object("assets/app.css.gz")
	assert.Equal(t, "gzip", obj.metadata.ContentEncoding)
}

func TestSyncer_FingerprintedUploadGetsCacheHeaders(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob(), cdn: &fakeCDN{}}
	writeAsset(t, fx.root, "assets/app-d41d8cd98f00b204e9800998ecf8427e.js", "var x")

	s := newSyncer(t, &config.Config{AssetsPrefix: "assets"}, fx)
	require.NoError(t, s.Run(context.Background()))

	obj, ok := fx.blob.object("assets/app-d41d8cd98f00b204e9800998ecf8427e.js")
	require.True(t, ok)
	assert.Equal(t, "public, max-age=31557600", obj.metadata.CacheControl)
	require.NotNil(t, obj.metadata.Expires)

	// the derived alias has no file on disk, so it is skipped, not failed
	_, ok = fx.blob.object("assets/app.js")
	assert.False(t, ok)
}

func TestSyncer_SkipsNonRegularEntries(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob(), cdn: &fakeCDN{}}
	writeAsset(t, fx.root, "assets/a.js", "var a")

	cfg := &config.Config{
		AssetsPrefix: "assets",
		// missing always-upload entry and a directory slipped into the list
		AlwaysUpload: []string{"missing.js"},
		Concurrency:  2,
		SourceDir:    fx.root,
	}
	source := sliceSource{"assets/a.js", "assets"}
	s := New(cfg, fx.blob, fx.cdn, source, inventory.NewOSFS(fx.root), discardLogger())

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"put:assets/a.js"}, fx.blob.events)
}

func TestSyncer_Invalidation(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob(), cdn: &fakeCDN{}}
	writeAsset(t, fx.root, "assets/a.js", "var a")

	s := newSyncer(t, &config.Config{
		AssetsPrefix:      "assets",
		CDNDistributionID: "DIST1",
		Invalidate:        []string{"a.js", "css/app.css"},
	}, fx)
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 1, fx.cdn.calls, "one batch request")
	assert.Equal(t, "DIST1", fx.cdn.distribution)
	assert.Equal(t, []string{"/assets/a.js", "/assets/css/app.css"}, fx.cdn.paths)
}

func TestSyncer_InvalidationSkippedWithoutDistribution(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob(), cdn: &fakeCDN{}}
	writeAsset(t, fx.root, "assets/a.js", "var a")

	s := newSyncer(t, &config.Config{
		AssetsPrefix: "assets",
		Invalidate:   []string{"a.js"},
	}, fx)
	require.NoError(t, s.Run(context.Background()))
	assert.Zero(t, fx.cdn.calls)
}

func TestSyncer_EmptySetsReachDone(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob(), cdn: &fakeCDN{}}
	require.NoError(t, os.MkdirAll(filepath.Join(fx.root, "assets"), 0o755))

	s := newSyncer(t, &config.Config{
		AssetsPrefix:        "assets",
		ExistingRemoteFiles: config.RemoteFilesDelete,
	}, fx)
	require.NoError(t, s.Run(context.Background()))
	assert.Empty(t, fx.blob.events)
}

func TestSyncer_CancellationPropagates(t *testing.T) {
	fx := &syncFixture{root: t.TempDir(), blob: newFakeBlob(), cdn: &fakeCDN{}}
	writeAsset(t, fx.root, "assets/a.js", "var a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newSyncer(t, &config.Config{
		AssetsPrefix:        "assets",
		ExistingRemoteFiles: config.RemoteFilesIgnore,
	}, fx)

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
