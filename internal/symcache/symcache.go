// Package symcache stores validated symbol tables on disk so unchanged
// install trees are not re-read with readelf.
package symcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"symverhdr/internal/symtab"
)

// Current schema version - increment when payload format changes
const schemaVersion uint16 = 1

// Digest is a SHA-256 fingerprint of an install tree.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Sum hashes parts in order. Parts are separated so ("ab","c") != ("a","bc").
func Sum(parts ...string) Digest {
	h := sha256.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Cache is a directory of zstd-compressed msgpack tables.
// Thread-safe for concurrent access.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type payload struct {
	Schema  uint16
	Label   string
	Names   []string
	Tags    []string
	Written time.Time
}

// DefaultDir returns $XDG_CACHE_HOME/<app> or ~/.cache/<app>.
func DefaultDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// Open creates the cache directory if needed.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("symcache: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("symcache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "tables", key.String()+".mp.zst")
}

// Put stores tbl under key. The write is atomic.
func (c *Cache) Put(key Digest, label string, tbl symtab.Table) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	names := tbl.Names()
	tags := make([]string, len(names))
	for i, n := range names {
		tags[i] = tbl[n]
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err = msgpack.NewEncoder(zw).Encode(&payload{
		Schema:  schemaVersion,
		Label:   label,
		Names:   names,
		Tags:    tags,
		Written: time.Now().UTC(),
	}); err != nil {
		_ = zw.Close()
		return err
	}
	if err = zw.Close(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get loads the table stored under key. Entries with a foreign schema are
// reported as misses.
func (c *Cache) Get(key Digest) (symtab.Table, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() { _ = f.Close() }()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, false, err
	}
	defer zr.Close()

	var p payload
	if err := msgpack.NewDecoder(zr).Decode(&p); err != nil {
		return nil, false, fmt.Errorf("symcache: corrupt entry %s: %w", key, err)
	}
	if p.Schema != schemaVersion {
		return nil, false, nil
	}
	if len(p.Names) != len(p.Tags) {
		return nil, false, fmt.Errorf("symcache: corrupt entry %s: %d names, %d tags", key, len(p.Names), len(p.Tags))
	}
	tbl := make(symtab.Table, len(p.Names))
	for i, n := range p.Names {
		tbl[n] = p.Tags[i]
	}
	return tbl, true, nil
}

// DropAll removes every cached table.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// переименуем каталог, затем удалим
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
