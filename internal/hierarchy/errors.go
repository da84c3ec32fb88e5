// SPDX-License-Identifier: Apache-2.0

package hierarchy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDefinition = errors.New("invalid entity definition")
	ErrDuplicateEntity   = errors.New("duplicate entity")
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrReferenceCycle    = errors.New("reference cycle")
	ErrDepthExceeded     = errors.New("reference depth exceeded")
	ErrExpansionLimit    = errors.New("composite expansion limit exceeded")

	// ErrNotMapping is returned for a source whose top level is not a mapping.
	// Loaders skip such sources with a warning instead of failing.
	ErrNotMapping = errors.New("definition source is not a mapping")
)

// DefinitionError carries a definition failure together with the entity it
// was found in. Kind is one of the sentinel errors above.
type DefinitionError struct {
	Kind   error
	Entity string
	Msg    string
}

func (e *DefinitionError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Entity != "" {
		fmt.Fprintf(&b, " in %q", e.Entity)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *DefinitionError) Unwrap() error { return e.Kind }

func definitionErrorf(kind error, entity, format string, args ...any) error {
	return &DefinitionError{Kind: kind, Entity: entity, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(entity string, path []string) error {
	chain := append(append([]string{}, path...), entity)
	return &DefinitionError{Kind: ErrReferenceCycle, Entity: path[0], Msg: strings.Join(chain, " -> ")}
}
