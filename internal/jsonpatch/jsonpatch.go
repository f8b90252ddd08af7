// Package jsonpatch applies RFC 6902 overrides to configuration documents.
package jsonpatch

import (
	"fmt"

	jp "github.com/evanphx/json-patch/v5"
)

// PatchError reports a patch that is malformed or uses an operation other than
// add, remove and replace.
type PatchError struct {
	Op  int // index of the offending operation, -1 when the patch did not decode
	msg string
}

func (p *PatchError) Error() string {
	if p.Op < 0 {
		return p.msg
	}
	return fmt.Sprintf("operation %d: %s", p.Op, p.msg)
}

var opts = jp.ApplyOptions{
	EnsurePathExistsOnAdd:    true, // will create paths
	AllowMissingPathOnRemove: true,
}

// Apply decodes patch and applies it to the JSON document doc.
func Apply(patch, doc []byte) ([]byte, error) {
	p, err := jp.DecodePatch(patch)
	if err != nil {
		return nil, &PatchError{Op: -1, msg: fmt.Sprintf("invalid patch: %v", err)}
	}

	for i, op := range p {
		switch op.Kind() {
		case "replace", "remove", "add":
		default:
			return nil, &PatchError{Op: i, msg: fmt.Sprintf("unsupported patch operation %q, must be one of \"replace\", \"add\", \"remove\"", op.Kind())}
		}
	}
	return p.ApplyWithOptions(doc, &opts)
}
