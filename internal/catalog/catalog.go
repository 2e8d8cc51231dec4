// Package catalog is the single source of truth for stage names and the
// transition graph between them (the State Catalog and Transition Validator
// of the workflow engine). It is pure: no I/O, no mutation, safe to share
// across goroutines once built.
package catalog

// StageDef names one stage and the stages it may transition to. Successor
// sets may reintroduce an earlier stage to express a refinement loop; the
// Catalog does not enforce DAG-ness, it only classifies known vs unknown
// stages and known vs unknown transitions.
type StageDef struct {
	Name string
	Next []string
}

// Catalog enumerates all known stages and their permitted successors. New
// stages are added by extending the table passed to New in one place; no
// other component in this module enumerates stages.
type Catalog struct {
	stages map[string][]string
	order  []string // insertion order, for deterministic iteration
}

// New builds a Catalog from a stage table. Duplicate stage names overwrite
// earlier entries (last one wins) since the table is assembled once at
// construction time, never mutated afterward.
func New(defs []StageDef) *Catalog {
	c := &Catalog{stages: make(map[string][]string, len(defs))}
	for _, d := range defs {
		if _, exists := c.stages[d.Name]; !exists {
			c.order = append(c.order, d.Name)
		}
		next := make([]string, len(d.Next))
		copy(next, d.Next)
		c.stages[d.Name] = next
	}
	return c
}

// KnownStates returns every stage name in the catalog, in the order they
// were first defined.
func (c *Catalog) KnownStates() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// IsKnown reports whether stage is a member of the catalog.
func (c *Catalog) IsKnown(stage string) bool {
	_, ok := c.stages[stage]
	return ok
}

// NextStates returns the stored successor set for from. Empty for unknown
// or terminal stages; never nil.
func (c *Catalog) NextStates(from string) []string {
	next, ok := c.stages[from]
	if !ok {
		return []string{}
	}
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether stage is known and has an empty successor set.
func (c *Catalog) IsTerminal(stage string) bool {
	next, ok := c.stages[stage]
	return ok && len(next) == 0
}

// InitialStages returns the stages that were defined first — by convention
// the first StageDef passed to New is the pipeline's entry point, but any
// deployment may treat the catalog as having multiple valid entry stages.
func (c *Catalog) InitialStages() []string {
	if len(c.order) == 0 {
		return nil
	}
	return []string{c.order[0]}
}

// Default builds the illustrative example pipeline: a title/content
// generation pair, grammar and tone review loops for each artifact kind, a
// story-level expert review with a polish loop back into generation, and a
// terminal publishing stage. Any deployment may construct its own Catalog
// from a different stage table instead.
func Default() *Catalog {
	return New([]StageDef{
		{Name: "Title.From.Idea", Next: []string{"Script.From.Idea.Title"}},
		{Name: "Script.From.Idea.Title", Next: []string{"Review.Script.Grammar"}},
		{Name: "Review.Script.Grammar", Next: []string{"Review.Script.Tone", "Script.From.Idea.Title"}},
		{Name: "Review.Script.Tone", Next: []string{"Review.Title.Grammar", "Review.Script.Grammar"}},
		{Name: "Review.Title.Grammar", Next: []string{"Review.Title.Tone", "Title.From.Idea"}},
		{Name: "Review.Title.Tone", Next: []string{"Story.Review.Expert", "Review.Title.Grammar"}},
		{Name: "Story.Review.Expert", Next: []string{"Publishing", "Script.From.Idea.Title"}},
		{Name: "Publishing", Next: []string{}},
	})
}
