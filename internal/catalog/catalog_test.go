package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCatalog() *Catalog {
	return New([]StageDef{
		{Name: "A", Next: []string{"B", "C"}},
		{Name: "B", Next: []string{"C"}},
		{Name: "C", Next: []string{}},
	})
}

func TestCatalogKnownStatesAndTerminal(t *testing.T) {
	c := sampleCatalog()
	assert.ElementsMatch(t, []string{"A", "B", "C"}, c.KnownStates())
	assert.True(t, c.IsKnown("A"))
	assert.False(t, c.IsKnown("Z"))
	assert.True(t, c.IsTerminal("C"))
	assert.False(t, c.IsTerminal("A"))
	assert.Empty(t, c.NextStates("C"))
	assert.Empty(t, c.NextStates("unknown"))
}

// L2: transition roundtrip — every catalog edge validates ok, every
// non-edge does not.
func TestValidatorTransitionRoundtrip(t *testing.T) {
	c := sampleCatalog()
	v := NewValidator(c)

	edges := map[string]map[string]bool{
		"A": {"B": true, "C": true},
		"B": {"C": true},
		"C": {},
	}
	allStages := []string{"A", "B", "C"}

	for _, from := range allStages {
		for _, to := range allStages {
			want := edges[from][to]
			got := v.IsValid(from, to)
			assert.Equalf(t, want, got, "IsValid(%s, %s)", from, to)
			res := v.Validate(from, to)
			assert.Equal(t, want, res.OK)
			if !want {
				assert.NotEmpty(t, res.Reason)
			}
		}
	}
}

func TestValidatorUnknownStage(t *testing.T) {
	v := NewValidator(sampleCatalog())
	res := v.Validate("A", "Z")
	require.False(t, res.OK)
	assert.Contains(t, res.Reason, "unknown stage")

	res = v.Validate("Z", "A")
	require.False(t, res.OK)
	assert.Contains(t, res.Reason, "unknown stage")
}

func TestValidatorIllegalTransitionReasonListsSuccessors(t *testing.T) {
	v := NewValidator(sampleCatalog())
	res := v.Validate("B", "A")
	require.False(t, res.OK)
	assert.Contains(t, res.Reason, "not a valid successor")
	assert.Contains(t, res.Reason, "valid successors: [C]")
}

// L1 applied to Catalog: next_states is deterministic for a fixed catalog.
func TestNextStatesDeterministic(t *testing.T) {
	v := NewValidator(sampleCatalog())
	for i := 0; i < 5; i++ {
		assert.Equal(t, []string{"B", "C"}, v.NextStates("A"))
	}
}

func TestValidatePath(t *testing.T) {
	v := NewValidator(sampleCatalog())

	assert.True(t, v.ValidatePath(nil).OK)
	assert.True(t, v.ValidatePath([]string{"A"}).OK)
	assert.False(t, v.ValidatePath([]string{"Z"}).OK)
	assert.True(t, v.ValidatePath([]string{"A", "B", "C"}).OK)
	assert.False(t, v.ValidatePath([]string{"A", "C", "B"}).OK)
}

// Boundary behaviour: a terminal stage has an empty successor set.
func TestTerminalStageEmptySuccessors(t *testing.T) {
	c := Default()
	assert.True(t, c.IsTerminal("Publishing"))
	assert.Empty(t, c.NextStates("Publishing"))
}

func TestDefaultCatalogWiring(t *testing.T) {
	c := Default()
	v := NewValidator(c)
	assert.True(t, v.IsValid("Title.From.Idea", "Script.From.Idea.Title"))
	assert.True(t, v.IsValid("Story.Review.Expert", "Publishing"))
	assert.True(t, v.IsValid("Story.Review.Expert", "Script.From.Idea.Title"))
	assert.False(t, v.IsValid("Title.From.Idea", "Publishing"))
}
