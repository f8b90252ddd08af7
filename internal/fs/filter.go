package fs

import (
	"fmt"
	"io/fs"
	"path"
	"slices"

	"github.com/gobwas/glob"
)

// FilterFS hides the files of an underlying fs.FS that do not pass the include and
// exclude globs. Directories are always visible. Patterns use '/' as separator, so
// "*" stays within one path segment and "**" crosses segments.
type FilterFS struct {
	fsys     fs.FS
	included []glob.Glob
	excluded []glob.Glob
}

var (
	_ fs.FS        = (*FilterFS)(nil)
	_ fs.ReadDirFS = (*FilterFS)(nil)
)

// NewFilterFS returns fsys restricted to files matching any of included (all files
// when empty) and none of excluded.
func NewFilterFS(fsys fs.FS, included, excluded []string) (*FilterFS, error) {
	inc, err := compileGlobs(included)
	if err != nil {
		return nil, err
	}
	exc, err := compileGlobs(excluded)
	if err != nil {
		return nil, err
	}
	return &FilterFS{fsys: fsys, included: inc, excluded: exc}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	gs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}
		gs = append(gs, g)
	}
	return gs, nil
}

// Allowed reports whether the file at the slash-separated name passes the filters.
func (f *FilterFS) Allowed(name string) bool {
	match := func(g glob.Glob) bool { return g.Match(name) }
	if len(f.included) > 0 && !slices.ContainsFunc(f.included, match) {
		return false
	}
	return !slices.ContainsFunc(f.excluded, match)
}

func (f *FilterFS) Open(name string) (fs.File, error) {
	file, err := f.fsys.Open(name)
	if err != nil {
		return nil, err
	}

	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if !fi.IsDir() && !f.Allowed(name) {
		file.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return file, nil
}

func (f *FilterFS) ReadDir(name string) ([]fs.DirEntry, error) {
	entries, err := fs.ReadDir(f.fsys, name)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(entries, func(e fs.DirEntry) bool {
		return !e.IsDir() && !f.Allowed(path.Join(name, e.Name()))
	}), nil
}
