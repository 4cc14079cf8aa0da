package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/bundler/internal/errors"
)

func newCache(t *testing.T, dir string, mutate ...func(*Options)) *Cache {
	t.Helper()
	opts := Options{Dir: dir, Enabled: true, ToolVersion: "1.0.0", ConfigHash: "cfg"}
	for _, m := range mutate {
		m(&opts)
	}
	return Open(opts)
}

func TestKeyCanonical(t *testing.T) {
	a := Params{"width": 192, "format": "webp", "quality": 0.8}
	b := Params{"quality": 0.8, "format": "webp", "width": 192}
	assert.Equal(t, "format=webp;quality=0.8;width=192", a.Canonical())
	assert.Equal(t, a.Canonical(), b.Canonical())

	src := []byte("same bytes")
	assert.Equal(t, NewKey(src, "image", a).ID(), NewKey(src, "image", b).ID())
	assert.NotEqual(t, NewKey(src, "image", a).ID(), NewKey(src, "minify", a).ID())
	assert.NotEqual(t, NewKey(src, "image", a).ID(), NewKey([]byte("other"), "image", a).ID())
	assert.Len(t, NewKey(src, "image", a).ID(), 64)
}

func TestEnsureCreatesLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := newCache(t, dir)

	status, err := c.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, status)
	assert.DirExists(t, filepath.Join(dir, "objects"))
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, t.TempDir())
	_, err := c.Ensure(ctx)
	require.NoError(t, err)

	key := NewKey([]byte("src"), "image", Params{"width": 100})

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, key, []byte("artifact")))

	entry, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("artifact"), entry.Data)
	assert.Equal(t, "image", entry.Meta.Kind)
	assert.Equal(t, int64(8), entry.Meta.Size)

	assert.Equal(t, Stats{Hits: 1, Misses: 1, Writes: 1}, c.Stats())
}

func TestPutIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := newCache(t, dir)
	_, err := c.Ensure(ctx)
	require.NoError(t, err)

	key := NewKey([]byte("src"), "minify", Params{"kind": "stylesheet"})
	require.NoError(t, c.Put(ctx, key, []byte("a{}")))
	before, err := FolderHash(dir)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, key, []byte("a{}")))
	after, err := FolderHash(dir)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, int64(1), c.Stats().Writes)
}

func TestPutCollision(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, t.TempDir())
	_, err := c.Ensure(ctx)
	require.NoError(t, err)

	key := NewKey([]byte("src"), "image", nil)
	require.NoError(t, c.Put(ctx, key, []byte("one")))

	err = c.Put(ctx, key, []byte("two"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCollision)
	assert.True(t, errors.HasCode(err, "B203"))
}

func TestConcurrentPutSameKey(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, t.TempDir())
	_, err := c.Ensure(ctx)
	require.NoError(t, err)

	key := NewKey([]byte("src"), "image", Params{"width": 1})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Put(ctx, key, []byte("identical")))
		}()
	}
	wg.Wait()

	entry, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("identical"), entry.Data)
}

func TestCorruptedEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, t.TempDir())
	_, err := c.Ensure(ctx)
	require.NoError(t, err)

	key := NewKey([]byte("src"), "image", nil)
	require.NoError(t, c.Put(ctx, key, []byte("good bytes")))
	require.NoError(t, os.WriteFile(c.objectPath(key.ID()), []byte("bad bytes!"), 0o644))

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, c.objectPath(key.ID()))
	assert.Equal(t, int64(1), c.Stats().Corrupt)

	// The key can be repopulated afterwards.
	require.NoError(t, c.Put(ctx, key, []byte("good bytes")))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := newCache(t, dir)
	_, err := c.Ensure(ctx)
	require.NoError(t, err)

	key := NewKey([]byte("src"), "image", nil)
	require.NoError(t, c.Put(ctx, key, []byte("artifact")))
	env, err := c.Seal(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, env.FolderHash)

	again := newCache(t, dir)
	status, err := again.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusValid, status)

	_, ok, err := again.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "entries survive an unchanged envelope")
}

func TestEnvelopeInvalidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, dir string, opts *Options)
	}{
		{"tool version", func(t *testing.T, dir string, opts *Options) { opts.ToolVersion = "2.0.0" }},
		{"config hash", func(t *testing.T, dir string, opts *Options) { opts.ConfigHash = "changed" }},
		{"folder contents", func(t *testing.T, dir string, opts *Options) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "objects", "stray"), []byte("x"), 0o644))
		}},
		{"missing envelope", func(t *testing.T, dir string, opts *Options) {
			require.NoError(t, os.Remove(filepath.Join(dir, EnvelopeFile)))
		}},
		{"corrupt envelope", func(t *testing.T, dir string, opts *Options) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, EnvelopeFile), []byte("{"), 0o644))
		}},
		{"disabled", func(t *testing.T, dir string, opts *Options) { opts.Enabled = false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			c := newCache(t, dir)
			_, err := c.Ensure(ctx)
			require.NoError(t, err)
			key := NewKey([]byte("src"), "image", nil)
			require.NoError(t, c.Put(ctx, key, []byte("artifact")))
			_, err = c.Seal(ctx)
			require.NoError(t, err)

			opts := Options{Dir: dir, Enabled: true, ToolVersion: "1.0.0", ConfigHash: "cfg"}
			tt.mutate(t, dir, &opts)

			next := Open(opts)
			status, err := next.Ensure(ctx)
			require.NoError(t, err)
			assert.Equal(t, StatusInvalidated, status)

			_, ok, err := next.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.NoFileExists(t, filepath.Join(dir, EnvelopeFile))
		})
	}
}

func TestSealDisabledRemovesDir(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")
	c := newCache(t, dir, func(o *Options) { o.Enabled = false })
	_, err := c.Ensure(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, NewKey([]byte("s"), "image", nil), []byte("a")))

	env, err := c.Seal(ctx)
	require.NoError(t, err)
	assert.Equal(t, Envelope{}, env)
	assert.NoDirExists(t, dir)
}

func TestEnsureUnusableDir(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	c := newCache(t, filepath.Join(blocker, "cache"))
	_, err := c.Ensure(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, "B200"))
}
