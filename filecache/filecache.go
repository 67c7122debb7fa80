// Package filecache implements the on-disk cache described in §4.5:
// files are addressed by (artifact type, source identifier, relative
// path, expected hash) rather than by URL, so a manifest cache entry,
// a downloaded installer, and a rendered dependency graph can share one
// validated-retrieval path without colliding on name.
//
// The atomic-write-then-rename and corrupt-file cleanup shapes are
// grounded directly on the teacher's pkg/download/download.go
// (DownloadFile's ".downloading" temp-file dance, ValidateAndCleanCache's
// 0-byte-file sweep), generalized from a single CachePath to the
// (type, source, path) keyspace §4.5 requires.
package filecache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wpkg/core/internal/winhash"
	"github.com/wpkg/core/pkg/logging"
)

// ArtifactType distinguishes the cache's top-level namespaces, mirroring
// the teacher's catalogs/manifests/pkgs split.
type ArtifactType string

const (
	ArtifactManifest ArtifactType = "manifests"
	ArtifactInstaller ArtifactType = "installers"
	ArtifactGraph     ArtifactType = "graphs"
)

// Key identifies one cached file (§4.5).
type Key struct {
	Type             ArtifactType
	SourceIdentifier string
	RelativePath     string
	ExpectedHash     winhash.Buffer
	HasExpectedHash  bool
}

// Cache is a directory-rooted content cache keyed by Key.
type Cache struct {
	root string
}

// Open returns a Cache rooted at dir, creating it if necessary.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filecache: creating cache root %s: %w", dir, err)
	}
	return &Cache{root: dir}, nil
}

// pathFor maps a Key to its on-disk location: root/type/source/relativePath.
func (c *Cache) pathFor(key Key) string {
	cleanSource := strings.ReplaceAll(key.SourceIdentifier, string(filepath.Separator), "_")
	return filepath.Join(c.root, string(key.Type), cleanSource, filepath.FromSlash(key.RelativePath))
}

// Lookup returns the cached path for key if present and, when the key
// carries an expected hash, verified against it. A hash mismatch is
// treated as a cache miss and the stale file is removed, matching the
// teacher's "remove corrupt file" behavior in ValidateAndCleanCache.
func (c *Cache) Lookup(key Key) (path string, hit bool) {
	dest := c.pathFor(key)
	info, err := os.Stat(dest)
	if err != nil || info.Size() == 0 {
		return "", false
	}

	if key.HasExpectedHash {
		if !winhash.VerifyFile(dest, key.ExpectedHash.Hex()) {
			logging.Warn("Removing cache entry failing hash verification", "path", dest)
			os.Remove(dest)
			return "", false
		}
	}
	return dest, true
}

// Store writes data into the cache under key using the teacher's
// temp-file-then-rename pattern: the payload lands at
// "<dest>.downloading" first and is only renamed into place once fully
// written and (if an expected hash was supplied) verified.
func (c *Cache) Store(key Key, data io.Reader) (string, error) {
	dest := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("filecache: creating directory for %s: %w", dest, err)
	}

	tempDest := dest + ".downloading"
	os.Remove(tempDest)

	out, err := os.Create(tempDest)
	if err != nil {
		return "", fmt.Errorf("filecache: creating temp file: %w", err)
	}

	hasher := winhash.NewHasher()
	written, err := io.Copy(out, io.TeeReader(data, hasher))
	closeErr := out.Close()
	if err != nil {
		os.Remove(tempDest)
		return "", fmt.Errorf("filecache: writing payload: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempDest)
		return "", fmt.Errorf("filecache: closing temp file: %w", closeErr)
	}
	if written == 0 {
		os.Remove(tempDest)
		return "", fmt.Errorf("filecache: refusing to cache empty payload for %s", key.RelativePath)
	}

	sum := hasher.Sum()
	if key.HasExpectedHash && sum != key.ExpectedHash {
		os.Remove(tempDest)
		return "", fmt.Errorf("filecache: hash mismatch for %s: got %s want %s", key.RelativePath, sum.Hex(), key.ExpectedHash.Hex())
	}

	if err := os.Rename(tempDest, dest); err != nil {
		os.Remove(tempDest)
		return "", fmt.Errorf("filecache: moving into place: %w", err)
	}

	logging.Debug("Cached file stored", "path", dest, "bytes", written)
	return dest, nil
}

// Purge removes every cached file under artifact type t for source.
// Pass an empty source to purge the entire artifact-type namespace.
func (c *Cache) Purge(t ArtifactType, source string) error {
	dir := filepath.Join(c.root, string(t))
	if source != "" {
		dir = filepath.Join(dir, strings.ReplaceAll(source, string(filepath.Separator), "_"))
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("filecache: purging %s: %w", dir, err)
	}
	return nil
}

// ValidateAndClean sweeps the entire cache for zero-byte and abandoned
// ".downloading" temp files, mirroring the teacher's
// ValidateAndCleanCache.
func (c *Cache) ValidateAndClean() (cleaned int, err error) {
	walkErr := filepath.Walk(c.root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			logging.Warn("Error accessing file during cache validation", "path", path, "error", walkErr)
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if info.Size() == 0 || strings.HasSuffix(path, ".downloading") {
			if rmErr := os.Remove(path); rmErr == nil {
				cleaned++
				logging.Info("Removed corrupt or abandoned cache file", "path", path)
			}
		}
		return nil
	})
	if walkErr != nil {
		return cleaned, fmt.Errorf("filecache: walking cache root: %w", walkErr)
	}
	return cleaned, nil
}
