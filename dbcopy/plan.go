package dbcopy

import (
	"errors"
	"fmt"

	"github.com/stratakv/strata/kv"
)

// ErrDuplicateStep is returned when a plan names the same table twice.
var ErrDuplicateStep = errors.New("duplicate step")

// Step names one table to copy and how to open it.
// Construct steps with Table and Multimap.
type Step struct {
	name string
	kind kv.Kind
}

// Table returns a step copying a plain table.
func Table(name string) Step {
	return Step{name: name, kind: kv.KindTable}
}

// Multimap returns a step copying a multimap table.
func Multimap(name string) Step {
	return Step{name: name, kind: kv.KindMultimap}
}

// Name returns the table name.
func (s Step) Name() string {
	return s.name
}

// Kind returns the table kind.
func (s Step) Kind() kv.Kind {
	return s.kind
}

// Plan is an ordered list of tables to copy. Tables are copied in plan
// order.
type Plan []Step

// Validate rejects empty names, steps not built with Table or Multimap,
// and duplicate table names.
func (p Plan) Validate() error {
	seen := make(map[string]struct{}, len(p))
	for _, step := range p {
		if step.name == "" {
			return fmt.Errorf("step name: %w", kv.ErrInvalidName)
		}
		if step.kind != kv.KindTable && step.kind != kv.KindMultimap {
			return fmt.Errorf("step %q: unknown table kind", step.name)
		}
		if _, ok := seen[step.name]; ok {
			return fmt.Errorf("table %q: %w", step.name, ErrDuplicateStep)
		}
		seen[step.name] = struct{}{}
	}
	return nil
}
