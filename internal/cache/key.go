package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Params are transform parameters. Values are formatted canonically, so
// equal parameter sets always serialize identically.
type Params map[string]any

// Canonical serializes p as key=value pairs sorted by key and joined by ";".
func (p Params) Canonical() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(formatValue(p[k]))
	}
	return b.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Key identifies a cache entry.
type Key struct {
	// Source is the hex SHA-256 of the source bytes.
	Source string

	// Kind names the transform, e.g. "image" or "minify".
	Kind string

	// Params is the canonical parameter string.
	Params string
}

// NewKey builds a key for transforming source with kind and params.
func NewKey(source []byte, kind string, params Params) Key {
	return Key{Source: HashBytes(source), Kind: kind, Params: params.Canonical()}
}

// ID is the hex digest naming the entry on disk.
func (k Key) ID() string {
	sum := sha256.Sum256([]byte(k.Source + "\x00" + k.Kind + "\x00" + k.Params))
	return hex.EncodeToString(sum[:])
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s[%s]", k.Kind, shortHash(k.Source), k.Params)
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
