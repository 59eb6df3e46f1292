package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// blobFormatVersion is bumped whenever the on-disk layout changes; readers
// reject blobs written under a different version.
const blobFormatVersion = 1

// fileBlob is the versioned self-describing on-disk form: format version,
// freshness token, payload.
type fileBlob struct {
	FormatVersion int             `json:"formatVersion"`
	ModSeq        int             `json:"modSeq"`
	Payload       json.RawMessage `json:"payload"`
}

// File is the persistent backend: one file per key, sharded into
// subdirectories by hashing the key to bound directory fan-out. Writes go
// to a temporary file in the target directory and are renamed into place,
// so a reader never observes a partial blob. A missing, corrupt, or
// version-mismatched file is a miss, never an error.
type File[K Key, V any] struct {
	root    string
	shards  int
	codec   Codec[V]
	version func(V) int
	logger  *slog.Logger
}

// NewFile creates a file store rooted at dir. version extracts the
// freshness token written into each blob header; it may be nil for cache
// kinds without a freshness dimension. shards of zero or less selects 256.
func NewFile[K Key, V any](dir string, shards int, codec Codec[V], version func(V) int, logger *slog.Logger) (*File[K, V], error) {
	if shards <= 0 {
		shards = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &File[K, V]{
		root:    dir,
		shards:  shards,
		codec:   codec,
		version: version,
		logger:  logger,
	}, nil
}

func (f *File[K, V]) path(key K) string {
	name := key.StorageKey()
	h := fnv.New32a()
	h.Write([]byte(name))
	shard := fmt.Sprintf("%02x", h.Sum32()%uint32(f.shards))
	return filepath.Join(f.root, shard, url.QueryEscape(name)+".json")
}

// Get implements Store; it accepts any blob version regardless of its
// freshness token. Callers that require a specific token use GetAt.
func (f *File[K, V]) Get(ctx context.Context, key K) (V, bool) {
	return f.GetAt(ctx, key, -1)
}

// GetAt returns the cached value only when the blob's freshness token
// matches modSeq exactly; a stale or newer blob is discarded as a miss.
// Pass a negative modSeq to skip the check.
func (f *File[K, V]) GetAt(ctx context.Context, key K, modSeq int) (V, bool) {
	var zero V
	if ctx.Err() != nil {
		return zero, false
	}
	raw, err := os.ReadFile(f.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("cache file unreadable, treating as miss", "path", f.path(key), "error", err)
		}
		return zero, false
	}
	var blob fileBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		f.logger.Warn("cache file corrupt, treating as miss", "path", f.path(key), "error", err)
		return zero, false
	}
	if blob.FormatVersion != blobFormatVersion {
		return zero, false
	}
	if modSeq >= 0 && blob.ModSeq != modSeq {
		return zero, false
	}
	value, err := f.codec.Decode(blob.Payload)
	if err != nil {
		f.logger.Warn("cache payload undecodable, treating as miss", "path", f.path(key), "error", err)
		return zero, false
	}
	return value, true
}

// GetAll implements Store.
func (f *File[K, V]) GetAll(ctx context.Context, keys []K) map[K]V {
	out := make(map[K]V, len(keys))
	for _, key := range keys {
		if value, ok := f.Get(ctx, key); ok {
			out[key] = value
		}
	}
	return out
}

// Put implements Store, writing the blob to a temp file and renaming it
// into place.
func (f *File[K, V]) Put(ctx context.Context, key K, value V) {
	payload, err := f.codec.Encode(value)
	if err != nil {
		f.logger.Warn("cache value unencodable, not persisted", "key", key.StorageKey(), "error", err)
		return
	}
	modSeq := 0
	if f.version != nil {
		modSeq = f.version(value)
	}
	raw, err := json.Marshal(fileBlob{
		FormatVersion: blobFormatVersion,
		ModSeq:        modSeq,
		Payload:       payload,
	})
	if err != nil {
		f.logger.Warn("cache blob unencodable, not persisted", "key", key.StorageKey(), "error", err)
		return
	}

	target := f.path(key)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		f.logger.Warn("cache shard dir creation failed", "dir", dir, "error", err)
		return
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		f.logger.Warn("cache temp file creation failed", "dir", dir, "error", err)
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		f.logger.Warn("cache file write failed", "path", target, "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		f.logger.Warn("cache file close failed", "path", target, "error", err)
		return
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		f.logger.Warn("cache file rename failed", "path", target, "error", err)
	}
}

// Remove implements Store.
func (f *File[K, V]) Remove(ctx context.Context, key K) {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("cache file removal failed", "path", f.path(key), "error", err)
	}
}

// RemoveAll implements Store.
func (f *File[K, V]) RemoveAll(ctx context.Context, keys []K) {
	for _, key := range keys {
		f.Remove(ctx, key)
	}
}

// RemoveAccount implements Store by scanning the shard directories for the
// account's files. Account purges are rare (account deletion, mailbox
// move), so the scan is acceptable.
func (f *File[K, V]) RemoveAccount(ctx context.Context, accountID string) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		f.logger.Warn("cache root unreadable during account purge", "root", f.root, "error", err)
		return
	}
	for _, shard := range entries {
		if !shard.IsDir() {
			continue
		}
		shardDir := filepath.Join(f.root, shard.Name())
		files, err := os.ReadDir(shardDir)
		if err != nil {
			continue
		}
		for _, file := range files {
			name, err := url.QueryUnescape(strings.TrimSuffix(file.Name(), ".json"))
			if err != nil {
				continue
			}
			if name == accountID || strings.HasPrefix(name, accountID+":") {
				if err := os.Remove(filepath.Join(shardDir, file.Name())); err != nil {
					f.logger.Warn("cache file removal failed during account purge", "path", file.Name(), "error", err)
				}
			}
		}
	}
}
