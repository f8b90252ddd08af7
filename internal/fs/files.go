package fs

import (
	"errors"
	"io/fs"
	"regexp"
)

var errMatched = errors.New("matched")

// ContainsFiles reports whether fsys holds a regular file whose slash-separated
// path matches test. A nil test matches every file. A missing root is empty.
func ContainsFiles(fsys fs.FS, test *regexp.Regexp) (bool, error) {
	err := walkFiles(fsys, test, func(string) error { return errMatched })
	switch {
	case errors.Is(err, errMatched):
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

// Candidates lists the files of fsys the rule applies to, in lexical order.
func Candidates(fsys fs.FS, test *regexp.Regexp) ([]string, error) {
	var names []string
	err := walkFiles(fsys, test, func(name string) error {
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func walkFiles(fsys fs.FS, test *regexp.Regexp, fn func(name string) error) error {
	return fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || test != nil && !test.MatchString(name) {
			return nil
		}
		return fn(name)
	})
}
