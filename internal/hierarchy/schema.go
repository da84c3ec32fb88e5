// SPDX-License-Identifier: Apache-2.0

package hierarchy

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var hierarchySchema string

// Validator checks decoded definition documents against the CUE schema of
// the definition format. A Validator is not safe for concurrent use.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	compiled := ctx.CompileString(hierarchySchema, cue.Filename("schema.cue"))
	if err := compiled.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile hierarchy schema: %w", err)
	}
	schema := compiled.LookupPath(cue.ParsePath("#Hierarchy"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("hierarchy schema has no #Hierarchy: %w", err)
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate checks one document. doc is the generic form produced by the
// YAML decoder.
func (v *Validator) Validate(sourceID string, doc map[string]any) error {
	data := v.ctx.Encode(doc)
	if err := data.Err(); err != nil {
		return definitionErrorf(ErrInvalidDefinition, "", "%s: %v", sourceID, err)
	}
	if err := v.schema.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return definitionErrorf(ErrInvalidDefinition, "", "%s: %v", sourceID, err)
	}
	return nil
}
