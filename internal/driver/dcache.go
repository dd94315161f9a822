package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/vmihailenco/msgpack/v5"

	"baml/internal/bytecode"
	"baml/internal/project"
	"baml/internal/source"
	"baml/internal/version"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores compiled programs on disk, keyed by CacheKey.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is one cache entry.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16
	// Version of the compiler that wrote the entry
	Version string
	// Program is the bytecode artifact from Program.MarshalBinary.
	Program []byte
}

// OpenDiskCache opens the cache under the user's XDG cache directory.
func OpenDiskCache(app string) (*DiskCache, error) {
	return OpenDiskCacheAt(filepath.Join(xdg.CacheHome, app))
}

// OpenDiskCacheAt opens a cache rooted at dir, creating it if needed.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "programs", hex.EncodeToString(key[:])+".mp")
}

// CacheKey identifies a build: the compiler version, the flags that change
// codegen, and every file's path and content in load order.
func CacheKey(fs *source.FileSet, ids []source.FileID, noViz bool) project.Digest {
	head := project.HashString(version.Version + "\x00" +
		strconv.Itoa(int(diskCacheSchemaVersion)) + "\x00" +
		strconv.FormatBool(noViz))
	deps := make([]project.Digest, 0, 2*len(ids))
	for _, id := range ids {
		f := fs.Get(id)
		deps = append(deps, project.HashString(f.Path), project.Digest(f.Hash))
	}
	return project.Combine(head, deps...)
}

// Put serializes and writes a program to the disk cache.
func (c *DiskCache) Put(key project.Digest, prog *bytecode.Program) error {
	if c == nil {
		return nil
	}
	data, err := prog.MarshalBinary()
	if err != nil {
		return err
	}
	payload := DiskPayload{Schema: diskCacheSchemaVersion, Version: version.Version, Program: data}

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
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck // gone after a successful rename

	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, p)
}

// Get reads a program from the disk cache. Entries written by another
// schema or compiler version count as misses.
func (c *DiskCache) Get(key project.Digest) (*bytecode.Program, bool, error) {
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
	defer f.Close()

	var payload DiskPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, err
	}
	if payload.Schema != diskCacheSchemaVersion || payload.Version != version.Version {
		return nil, false, nil
	}
	prog := new(bytecode.Program)
	if err := prog.UnmarshalBinary(payload.Program); err != nil {
		return nil, false, err
	}
	return prog, true, nil
}

// DropAll invalidates the cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// переименуем каталог, чтобы параллельные читатели не увидели половину
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
