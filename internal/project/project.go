// Package project exposes a project directory on the local filesystem to the
// pipeline: module resolution, installed package versions, the manifest's
// browserslist and the cache config helper.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/EricRabil/vue-cli/internal/cachekey"
	"github.com/EricRabil/vue-cli/internal/config"
)

// ServicePackage is the CLI service whose files are never compiled.
const ServicePackage = "@vue/cli-service"

const manifestFile = "package.json"

var ErrModuleNotFound = errors.New("module not found")

type manifest struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Main         string `json:"main"`
	Browserslist any    `json:"browserslist"`
}

// Project is a project directory with its manifest loaded.
type Project struct {
	root     string
	manifest manifest
	keyer    *cachekey.FileKeyer
}

// Open loads the manifest in root. A project without package.json is valid and
// has no browserslist.
func Open(root string, mode config.Mode) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	p := &Project{root: abs}
	if err := readManifest(filepath.Join(abs, manifestFile), &p.manifest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	p.keyer = cachekey.NewFileKeyer(abs).WithMode(string(mode))
	if v, err := p.PackageVersion(ServicePackage); err == nil {
		p.keyer.WithServiceVersion(v)
	}
	return p, nil
}

func (p *Project) Root() string {
	return p.root
}

// Resolve returns rel relative to the project root.
func (p *Project) Resolve(rel string) string {
	return filepath.Join(p.root, rel)
}

// ResolveModule returns the entry file of the installed package name, searching
// node_modules from the project root upwards.
func (p *Project) ResolveModule(name string) (string, error) {
	dir, m, err := p.lookup(name)
	if err != nil {
		return "", err
	}
	main := m.Main
	if main == "" {
		main = "index.js"
	}
	return filepath.Join(dir, filepath.FromSlash(main)), nil
}

// PackageVersion returns the version of the installed package name.
func (p *Project) PackageVersion(name string) (string, error) {
	_, m, err := p.lookup(name)
	if err != nil {
		return "", err
	}
	return m.Version, nil
}

// Browserslist returns the manifest's browserslist field, nil when absent.
func (p *Project) Browserslist() any {
	return p.manifest.Browserslist
}

func (p *Project) GenCacheConfig(id string, fp cachekey.Fingerprint) (cachekey.CacheConfig, error) {
	return p.keyer.GenCacheConfig(id, fp)
}

func (p *Project) lookup(name string) (string, manifest, error) {
	for dir := p.root; ; {
		pkgDir := filepath.Join(dir, "node_modules", filepath.FromSlash(name))
		var m manifest
		err := readManifest(filepath.Join(pkgDir, manifestFile), &m)
		if err == nil {
			return pkgDir, m, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", manifest{}, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", manifest{}, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
		}
		dir = parent
	}
}

func readManifest(path string, m *manifest) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(bs, m); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
