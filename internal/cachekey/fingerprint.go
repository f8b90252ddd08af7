// Package cachekey declares the inputs that invalidate cached compiler output.
package cachekey

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Factor names. The package names double as the keys the compiler stage expects.
const (
	FactorCompiler     = "@babel/core"
	FactorPreset       = "@vue/babel-preset-app"
	FactorLoader       = "babel-loader"
	FactorModern       = "modern"
	FactorBrowserslist = "browserslist"
)

// Config files whose contents influence compiled output.
const (
	CompilerConfigFile = "babel.config.js"
	BrowsersConfigFile = ".browserslistrc"
)

// Inputs are the scalar values a Fingerprint is built from.
type Inputs struct {
	CompilerVersion string
	PresetVersion   string
	LoaderVersion   string
	Modern          bool
	Browserslist    any // as configured in the project manifest; nil when absent
}

// Fingerprint is the set of factors keyed into cached compiler output, plus the
// config files the host must read when computing the final key.
type Fingerprint struct {
	Factors     map[string]any `json:"factors"`
	ConfigFiles []string       `json:"config_files"`
}

// Build assembles the fingerprint for in.
func Build(in Inputs) Fingerprint {
	return Fingerprint{
		Factors: map[string]any{
			FactorCompiler:     in.CompilerVersion,
			FactorPreset:       in.PresetVersion,
			FactorLoader:       in.LoaderVersion,
			FactorModern:       in.Modern,
			FactorBrowserslist: in.Browserslist,
		},
		ConfigFiles: []string{CompilerConfigFile, BrowsersConfigFile},
	}
}

// Canonical returns a stable encoding: object keys sorted (encoding/json sorts map
// keys) and config files kept in declaration order.
func (f Fingerprint) Canonical() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Digest hashes the canonical encoding.
func (f Fingerprint) Digest() (string, error) {
	bs, err := f.Canonical()
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(xxhash.Sum64(bs), 16), nil
}

// Equal compares two fingerprints by their canonical encodings.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if !slices.Equal(f.ConfigFiles, other.ConfigFiles) {
		return false
	}
	if !slices.Equal(slices.Sorted(maps.Keys(f.Factors)), slices.Sorted(maps.Keys(other.Factors))) {
		return false
	}
	a, err := f.Canonical()
	if err != nil {
		return false
	}
	b, err := other.Canonical()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}
