// Package specifier compiles the user's transpileDependencies list into a single
// matcher that is tested against module paths.
package specifier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidSpecifier is returned when a specifier is neither a package name nor a
// pattern.
var ErrInvalidSpecifier = errors.New("transpileDependencies only accepts an array of string or regular expressions")

// dependencyRoot is the directory installed dependencies live under.
const dependencyRoot = "node_modules"

// separator matches either path separator, so compiled fragments are independent
// of the host platform.
const separator = `[/\\]`

// Specifier is one entry of transpileDependencies. The only implementations are
// Literal and Pattern.
type Specifier interface {
	fragment() string
	fmt.Stringer
}

// Literal names an installed package, e.g. "lodash-es" or "@scope/pkg".
type Literal string

// Pattern is a regular expression source matched against the whole module path.
type Pattern string

func (l Literal) fragment() string {
	parts := []string{dependencyRoot}
	for seg := range strings.SplitSeq(strings.ReplaceAll(string(l), `\`, "/"), "/") {
		if seg != "" {
			parts = append(parts, regexp.QuoteMeta(seg))
		}
	}
	return strings.Join(parts, separator) + separator
}

func (l Literal) String() string {
	return string(l)
}

func (p Pattern) fragment() string {
	return string(p)
}

func (p Pattern) String() string {
	return "/" + string(p) + "/"
}

// Matcher is the compiled alternation of all specifiers. A nil *Matcher is the
// "no specifiers configured" value and never matches.
type Matcher struct {
	re *regexp.Regexp
}

// Compile turns specs into one Matcher. An empty list yields a nil Matcher and no
// error.
func Compile(specs []Specifier) (*Matcher, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	fragments := make([]string, 0, len(specs))
	for i, s := range specs {
		switch s := s.(type) {
		case Literal:
			if strings.Trim(string(s), `/\ `) == "" {
				return nil, fmt.Errorf("entry %d: empty package name: %w", i, ErrInvalidSpecifier)
			}
			fragments = append(fragments, s.fragment())
		case Pattern:
			fragments = append(fragments, s.fragment())
		default:
			return nil, fmt.Errorf("entry %d (%T): %w", i, s, ErrInvalidSpecifier)
		}
	}

	re, err := regexp.Compile(strings.Join(fragments, "|"))
	if err != nil {
		return nil, fmt.Errorf("compile transpileDependencies: %w", err)
	}

	return &Matcher{re: re}, nil
}

// MatchString reports whether path belongs to one of the configured dependencies.
func (m *Matcher) MatchString(path string) bool {
	if m == nil {
		return false
	}
	return m.re.MatchString(path)
}

// String returns the combined expression source, or "" for a nil Matcher.
func (m *Matcher) String() string {
	if m == nil {
		return ""
	}
	return m.re.String()
}

// FromValue converts a decoded configuration value into a Specifier. Strings of the
// form "/source/" and objects with a single "pattern" key become patterns; any
// other string is a package name.
func FromValue(v any) (Specifier, error) {
	switch v := v.(type) {
	case Specifier:
		return v, nil
	case string:
		if len(v) > 2 && strings.HasPrefix(v, "/") && strings.HasSuffix(v, "/") {
			return Pattern(v[1 : len(v)-1]), nil
		}
		return Literal(v), nil
	case *regexp.Regexp:
		if v == nil {
			break
		}
		return Pattern(v.String()), nil
	case map[string]any:
		if src, ok := v["pattern"].(string); ok && len(v) == 1 {
			return Pattern(src), nil
		}
	}
	return nil, fmt.Errorf("unsupported value %v (%T): %w", v, v, ErrInvalidSpecifier)
}

// FromValues converts every element with FromValue, failing on the first invalid
// entry.
func FromValues(vs []any) ([]Specifier, error) {
	specs := make([]Specifier, 0, len(vs))
	for i, v := range vs {
		s, err := FromValue(v)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}
