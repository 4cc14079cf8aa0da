package generate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/vango-dev/bundler/internal/pathmatch"
)

// PrecacheSettings configures the service-worker generator.
type PrecacheSettings struct {
	// Output is the logical path of the service worker script.
	Output string `json:"output,omitempty"`

	// CacheName prefixes the runtime cache name.
	CacheName string `json:"cacheName,omitempty"`

	// Include and Exclude are glob patterns over logical paths.
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`

	// MaxFileSize skips larger files; 0 means no limit.
	MaxFileSize int64 `json:"maxFileSize,omitempty"`
}

// PrecacheEntry is one precached URL.
type PrecacheEntry struct {
	URL      string `json:"url"`
	Revision string `json:"revision"`
}

// Precache writes a service worker that precaches the bundle.
type Precache struct{}

// Name implements Generator.
func (Precache) Name() string { return "serviceWorker" }

// Generate implements Generator.
func (p Precache) Generate(ctx context.Context, root string, blob json.RawMessage) ([]Artifact, error) {
	var s PrecacheSettings
	ok, err := decodeBlob(p.Name(), blob, &s)
	if err != nil || !ok {
		return nil, err
	}
	if s.Output == "" {
		s.Output = "sw.js"
	}
	if s.CacheName == "" {
		s.CacheName = "vbundle"
	}
	if len(s.Include) == 0 {
		s.Include = []string{"**/*"}
	}
	for _, pattern := range append(append([]string{}, s.Include...), s.Exclude...) {
		if err := pathmatch.Validate(pattern); err != nil {
			return nil, fmt.Errorf("serviceWorker: %w", err)
		}
	}

	entries, err := collectPrecache(ctx, root, s)
	if err != nil {
		return nil, fmt.Errorf("serviceWorker: %w", err)
	}

	var buf bytes.Buffer
	list, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	err = swTemplate.Execute(&buf, struct {
		CacheName string
		Version   string
		Manifest  string
	}{s.CacheName, manifestVersion(entries), string(list)})
	if err != nil {
		return nil, err
	}

	a, err := writeArtifact(root, s.Output, buf.Bytes())
	if err != nil {
		return nil, err
	}
	return []Artifact{a}, nil
}

func collectPrecache(ctx context.Context, root string, s PrecacheSettings) ([]PrecacheEntry, error) {
	var entries []PrecacheEntry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		logical := pathmatch.Normalize(rel)
		if logical == pathmatch.Normalize(s.Output) || !matchAny(s.Include, logical) || matchAny(s.Exclude, logical) {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if s.MaxFileSize > 0 && int64(len(data)) > s.MaxFileSize {
			return nil
		}
		sum := sha256.Sum256(data)
		entries = append(entries, PrecacheEntry{
			URL:      "/" + logical,
			Revision: hex.EncodeToString(sum[:8]),
		})
		return nil
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].URL < entries[j].URL })
	return entries, err
}

func matchAny(patterns []string, logical string) bool {
	for _, pattern := range patterns {
		if pathmatch.MustMatch(pattern, logical) {
			return true
		}
	}
	return false
}

func manifestVersion(entries []PrecacheEntry) string {
	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s %s\n", e.URL, e.Revision)
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

var swTemplate = template.Must(template.New("sw").Parse(`// Generated by vbundle. Do not edit.
const CACHE = "{{.CacheName}}-{{.Version}}";
const PRECACHE = {{.Manifest}};

self.addEventListener("install", (event) => {
  event.waitUntil(
    caches.open(CACHE)
      .then((cache) => cache.addAll(PRECACHE.map((e) => e.url + "?__rev=" + e.revision)))
      .then(() => self.skipWaiting())
  );
});

self.addEventListener("activate", (event) => {
  event.waitUntil(
    caches.keys()
      .then((keys) => Promise.all(keys.filter((k) => k !== CACHE).map((k) => caches.delete(k))))
      .then(() => self.clients.claim())
  );
});

self.addEventListener("fetch", (event) => {
  if (event.request.method !== "GET") return;
  const url = new URL(event.request.url);
  const entry = PRECACHE.find((e) => e.url === url.pathname);
  if (!entry) return;
  event.respondWith(
    caches.open(CACHE).then((cache) =>
      cache.match(entry.url + "?__rev=" + entry.revision).then((hit) => hit || fetch(event.request))
    )
  );
});
`))
