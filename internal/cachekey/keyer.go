package cachekey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// lockfiles are hashed into every cache identifier.
var lockfiles = []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml"}

// CacheConfig is handed to the compiler stage as loader options.
type CacheConfig struct {
	CacheDirectory  string `json:"cacheDirectory"`
	CacheIdentifier string `json:"cacheIdentifier"`
}

// Options renders c as a loader options object.
func (c CacheConfig) Options() map[string]any {
	return map[string]any{
		"cacheDirectory":  c.CacheDirectory,
		"cacheIdentifier": c.CacheIdentifier,
	}
}

// FileKeyer computes cache configs for a project on the local filesystem.
type FileKeyer struct {
	root           string
	serviceVersion string
	mode           string
}

// NewFileKeyer returns a keyer rooted at the project directory root.
func NewFileKeyer(root string) *FileKeyer {
	return &FileKeyer{root: root}
}

// WithServiceVersion mixes the CLI service version into every identifier.
func (k *FileKeyer) WithServiceVersion(v string) *FileKeyer {
	k.serviceVersion = v
	return k
}

// WithMode mixes the build mode into every identifier.
func (k *FileKeyer) WithMode(mode string) *FileKeyer {
	k.mode = mode
	return k
}

// GenCacheConfig returns the cache directory for id and an identifier derived from
// fp, the contents of fp's config files and the project lockfiles. Missing files
// contribute nothing; any other read error is returned.
func (k *FileKeyer) GenCacheConfig(id string, fp Fingerprint) (CacheConfig, error) {
	canonical, err := fp.Canonical()
	if err != nil {
		return CacheConfig{}, fmt.Errorf("cache key %s: %w", id, err)
	}

	h := xxhash.New()
	write := func(data []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(data)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(data)
	}

	write(canonical)
	write([]byte(k.serviceVersion))
	write([]byte(k.mode))

	files := make([]string, 0, len(fp.ConfigFiles)+len(lockfiles))
	files = append(files, fp.ConfigFiles...)
	files = append(files, lockfiles...)
	for _, name := range files {
		content, err := k.readConfig(name)
		if err != nil {
			return CacheConfig{}, fmt.Errorf("cache key %s: %w", id, err)
		}
		write([]byte(name))
		write(content)
	}

	return CacheConfig{
		CacheDirectory:  filepath.Join(k.root, "node_modules", ".cache", id),
		CacheIdentifier: strconv.FormatUint(h.Sum64(), 16),
	}, nil
}

func (k *FileKeyer) readConfig(name string) ([]byte, error) {
	bs, err := os.ReadFile(filepath.Join(k.root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", name, err)
	}
	return []byte(normalizeNewlines(string(bs))), nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
