//go:generate go run ../build/gen-config-schema.go schema.json

// Package config carries the JSON schema of transpile configuration files.
package config

import (
	_ "embed"
)

//go:embed "schema.json"
var schema []byte

// Schema returns the schema generated from the configuration types. Regenerate it
// with go generate after changing them.
func Schema() []byte {
	return schema
}
