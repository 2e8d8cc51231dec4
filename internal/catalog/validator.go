package catalog

import "fmt"

// Result is the outcome of a validation call: OK iff the transition (or
// path) is permitted. Reason is a human-readable explanation populated only
// on failure, distinguishing unknown-state from illegal-transition.
type Result struct {
	OK     bool
	Reason string
}

// Validator checks transitions against a Catalog's successor sets. It holds
// no state of its own beyond the Catalog reference, and every method is
// pure: no I/O, no mutation.
type Validator struct {
	catalog *Catalog
}

// NewValidator builds a Validator bound to the given Catalog.
func NewValidator(c *Catalog) *Validator {
	return &Validator{catalog: c}
}

// Validate reports whether to is a permitted successor of from. Ok iff both
// stages are known and to is in the successor set of from.
func (v *Validator) Validate(from, to string) Result {
	if !v.catalog.IsKnown(from) {
		return Result{OK: false, Reason: fmt.Sprintf("unknown stage %q", from)}
	}
	if !v.catalog.IsKnown(to) {
		return Result{OK: false, Reason: fmt.Sprintf("unknown stage %q", to)}
	}
	next := v.catalog.NextStates(from)
	for _, n := range next {
		if n == to {
			return Result{OK: true}
		}
	}
	return Result{OK: false, Reason: fmt.Sprintf("%q is not a valid successor of %q; valid successors: %v", to, from, next)}
}

// IsValid is a boolean convenience wrapper over Validate.
func (v *Validator) IsValid(from, to string) bool {
	return v.Validate(from, to).OK
}

// NextStates returns the catalog's successor set for from (empty for
// unknown or terminal stages).
func (v *Validator) NextStates(from string) []string {
	return v.catalog.NextStates(from)
}

// ValidatePath reports whether every adjacent pair in seq is a valid
// transition. An empty or single-stage sequence is trivially ok as long as
// a single stage, if present, is known.
func (v *Validator) ValidatePath(seq []string) Result {
	if len(seq) == 0 {
		return Result{OK: true}
	}
	if len(seq) == 1 {
		if !v.catalog.IsKnown(seq[0]) {
			return Result{OK: false, Reason: fmt.Sprintf("unknown stage %q", seq[0])}
		}
		return Result{OK: true}
	}
	for i := 0; i < len(seq)-1; i++ {
		if r := v.Validate(seq[i], seq[i+1]); !r.OK {
			return Result{OK: false, Reason: fmt.Sprintf("step %d->%d: %s", i, i+1, r.Reason)}
		}
	}
	return Result{OK: true}
}
