package cache

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/vango-dev/bundler/internal/errors"
)

// ErrCollision is returned by Put when a key already holds different bytes.
var ErrCollision = stderrors.New("cache: key collision")

// Status reports what Ensure found.
type Status int

const (
	// StatusCreated means the cache directory did not exist.
	StatusCreated Status = iota
	// StatusValid means the envelope matched and entries were kept.
	StatusValid
	// StatusInvalidated means the previous contents were discarded.
	StatusInvalidated
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusValid:
		return "valid"
	case StatusInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Options configures a Cache.
type Options struct {
	// Dir is the cache directory.
	Dir string

	// Enabled keeps the cache across runs. A disabled cache still serves
	// the current run but is deleted by Seal.
	Enabled bool

	// ToolVersion and ConfigHash are recorded in the envelope.
	ToolVersion string
	ConfigHash  string

	// Remote is an optional mirror consulted on local misses.
	Remote Remote

	// Logger receives cache warnings.
	Logger *slog.Logger
}

// Metadata is the sidecar stored next to each artifact.
type Metadata struct {
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	Source    string    `json:"source"`
	Kind      string    `json:"kind"`
	Params    string    `json:"params"`
	CreatedAt time.Time `json:"createdAt"`
}

// Entry is a cached artifact.
type Entry struct {
	Key  Key
	Data []byte
	Meta Metadata
}

// Stats are cache counters for one run.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Writes     int64 `json:"writes"`
	RemoteHits int64 `json:"remoteHits"`
	Corrupt    int64 `json:"corrupt"`
}

// Cache is a content-addressed artifact store rooted at a directory. It is
// safe for concurrent use.
type Cache struct {
	opts   Options
	logger *slog.Logger

	hits       atomic.Int64
	misses     atomic.Int64
	writes     atomic.Int64
	remoteHits atomic.Int64
	corrupt    atomic.Int64
}

// Open creates a Cache. Nothing is read or written until Ensure.
func Open(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{opts: opts, logger: logger.With("component", "cache")}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.opts.Dir
}

func (c *Cache) objectsDir() string {
	return filepath.Join(c.opts.Dir, "objects")
}

func (c *Cache) objectPath(id string) string {
	return filepath.Join(c.objectsDir(), id[:2], id)
}

// Ensure validates the envelope and prepares the directory layout. The
// directory is emptied when the envelope is missing or does not match, or
// when the cache is disabled.
func (c *Cache) Ensure(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	status := StatusCreated
	if _, err := os.Stat(c.opts.Dir); err == nil {
		status = StatusValid
		if !c.opts.Enabled || !c.envelopeMatches() {
			status = StatusInvalidated
			if err := os.RemoveAll(c.opts.Dir); err != nil {
				return 0, errors.New("B200").WithPath(c.opts.Dir).Wrap(err)
			}
		}
	} else if !os.IsNotExist(err) {
		return 0, errors.New("B200").WithPath(c.opts.Dir).Wrap(err)
	}

	if err := os.MkdirAll(c.objectsDir(), 0o755); err != nil {
		return 0, errors.New("B200").WithPath(c.opts.Dir).Wrap(err)
	}
	c.logger.Debug("cache ready", "dir", c.opts.Dir, "status", status.String())
	return status, nil
}

func (c *Cache) envelopeMatches() bool {
	env, ok := readEnvelope(c.opts.Dir)
	if !ok {
		return false
	}
	if env.ToolVersion != c.opts.ToolVersion || env.ConfigHash != c.opts.ConfigHash {
		return false
	}
	hash, err := FolderHash(c.opts.Dir)
	return err == nil && hash == env.FolderHash
}

// Get looks up key. A missing or corrupted entry is reported as absent.
func (c *Cache) Get(ctx context.Context, key Key) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	id := key.ID()
	if entry, ok := c.readLocal(key, id); ok {
		c.hits.Add(1)
		return entry, true, nil
	}

	if c.opts.Remote != nil {
		if entry, ok := c.readRemote(ctx, key, id); ok {
			c.remoteHits.Add(1)
			return entry, true, nil
		}
	}
	c.misses.Add(1)
	return Entry{}, false, nil
}

func (c *Cache) readLocal(key Key, id string) (Entry, bool) {
	path := c.objectPath(id)
	metaData, err := os.ReadFile(path + ".json")
	if err != nil {
		if !os.IsNotExist(err) {
			c.discard(path, err)
		}
		return Entry{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.discard(path, err)
		return Entry{}, false
	}
	meta, err := verify(metaData, data)
	if err != nil {
		c.discard(path, err)
		return Entry{}, false
	}
	return Entry{Key: key, Data: data, Meta: meta}, true
}

func (c *Cache) readRemote(ctx context.Context, key Key, id string) (Entry, bool) {
	name := remoteName(id)
	metaData, ok, err := c.opts.Remote.Fetch(ctx, name+".json")
	if err != nil {
		c.logger.Warn("remote cache fetch failed", "key", key.String(), "err", err)
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	data, ok, err := c.opts.Remote.Fetch(ctx, name)
	if err != nil || !ok {
		return Entry{}, false
	}
	meta, err := verify(metaData, data)
	if err != nil {
		c.logger.Warn("remote cache entry corrupt", "key", key.String(), "err", err)
		return Entry{}, false
	}
	if err := c.writeLocal(id, data, metaData); err != nil {
		c.logger.Warn("failed to store remote cache entry", "key", key.String(), "err", err)
	}
	return Entry{Key: key, Data: data, Meta: meta}, true
}

func verify(metaData, data []byte) (Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return Metadata{}, err
	}
	if meta.Size != int64(len(data)) || meta.SHA256 != HashBytes(data) {
		return Metadata{}, stderrors.New("artifact does not match its sidecar")
	}
	return meta, nil
}

func (c *Cache) discard(path string, cause error) {
	c.corrupt.Add(1)
	c.logger.Debug("discarding corrupt cache entry", "path", path, "err", cause)
	os.Remove(path)
	os.Remove(path + ".json")
}

// Put stores data under key. Storing identical bytes again is a no-op;
// different bytes for an existing key return ErrCollision.
func (c *Cache) Put(ctx context.Context, key Key, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := key.ID()
	if existing, ok := c.readLocal(key, id); ok {
		if bytes.Equal(existing.Data, data) {
			return nil
		}
		return errors.New("B203").WithDetail(key.String()).Wrap(ErrCollision)
	}

	meta := Metadata{
		Size:      int64(len(data)),
		SHA256:    HashBytes(data),
		Source:    key.Source,
		Kind:      key.Kind,
		Params:    key.Params,
		CreatedAt: time.Now().UTC(),
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.New("B201").Wrap(err)
	}
	if err := c.writeLocal(id, data, metaData); err != nil {
		return errors.New("B201").WithPath(c.objectPath(id)).Wrap(err)
	}
	c.writes.Add(1)

	if r := c.opts.Remote; r != nil && !r.ReadOnly() {
		name := remoteName(id)
		err := r.Store(ctx, name, data)
		if err == nil {
			err = r.Store(ctx, name+".json", metaData)
		}
		if err != nil {
			c.logger.Warn("remote cache store failed", "key", key.String(), "err", err)
		}
	}
	return nil
}

// writeLocal writes the artifact before its sidecar, so a sidecar always
// describes a complete artifact.
func (c *Cache) writeLocal(id string, data, metaData []byte) error {
	path := c.objectPath(id)
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	return writeFileAtomic(path+".json", metaData)
}

// Seal records the envelope for the current contents. A disabled cache is
// deleted instead and the zero Envelope is returned.
func (c *Cache) Seal(ctx context.Context) (Envelope, error) {
	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}
	if !c.opts.Enabled {
		if err := os.RemoveAll(c.opts.Dir); err != nil {
			return Envelope{}, errors.New("B202").WithPath(c.opts.Dir).Wrap(err)
		}
		return Envelope{}, nil
	}

	hash, err := FolderHash(c.opts.Dir)
	if err != nil {
		return Envelope{}, errors.New("B202").WithPath(c.opts.Dir).Wrap(err)
	}
	env := Envelope{
		FolderHash:  hash,
		ToolVersion: c.opts.ToolVersion,
		ConfigHash:  c.opts.ConfigHash,
	}
	if err := writeEnvelope(c.opts.Dir, env); err != nil {
		return Envelope{}, errors.New("B202").WithPath(c.opts.Dir).Wrap(err)
	}
	return env, nil
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Writes:     c.writes.Load(),
		RemoteHits: c.remoteHits.Load(),
		Corrupt:    c.corrupt.Load(),
	}
}

// Clean removes the cache directory.
func Clean(dir string) error {
	return os.RemoveAll(dir)
}
