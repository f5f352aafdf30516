package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConnection_PermittedPairsAccept(t *testing.T) {
	rules := DefaultRuleset()
	v := NewValidator(rules, nil)

	for source, targets := range rules.Allowed {
		for _, target := range targets {
			g := NewGraph()
			mustAdd(t, g, "src", source)
			mustAdd(t, g, "tgt", target)

			decision := v.ValidateConnection(g, Edge{Source: "src", Target: "tgt"})
			assert.True(t, decision.Accepted, "%s -> %s should be accepted", source, target)
		}
	}
}

func TestValidateConnection_ForbiddenPairsReject(t *testing.T) {
	rules := DefaultRuleset()
	v := NewValidator(rules, nil)

	for _, source := range Categories() {
		for _, target := range Categories() {
			if rules.Permits(source, target) {
				continue
			}
			g := NewGraph()
			mustAdd(t, g, "src", source)
			mustAdd(t, g, "tgt", target)

			decision := v.ValidateConnection(g, Edge{Source: "src", Target: "tgt"})
			assert.False(t, decision.Accepted, "%s -> %s should be rejected", source, target)
			assert.NotEmpty(t, decision.Message, "rejection of %s -> %s should carry guidance", source, target)
		}
	}
}

func TestValidateConnection_OutputIsTerminal(t *testing.T) {
	v := NewValidator(DefaultRuleset(), nil)

	for _, target := range Categories() {
		g := NewGraph()
		mustAdd(t, g, "out", CategoryOutput)
		mustAdd(t, g, "tgt", target)

		decision := v.ValidateConnection(g, Edge{Source: "out", Target: "tgt"})
		assert.False(t, decision.Accepted, "output -> %s should be rejected", target)
	}
}

func TestValidateConnection_MissingEndpointRejectsSilently(t *testing.T) {
	v := NewValidator(DefaultRuleset(), nil)
	g := NewGraph()
	mustAdd(t, g, "a", CategoryAgent)

	// missing target (e.g. the node was just deleted)
	decision := v.ValidateConnection(g, Edge{Source: "a", Target: "deleted"})
	assert.False(t, decision.Accepted)
	assert.Empty(t, decision.Message)

	// missing source
	decision = v.ValidateConnection(g, Edge{Source: "ghost", Target: "a"})
	assert.False(t, decision.Accepted)
	assert.Empty(t, decision.Message)
}

func TestValidateConnection_SourceHandleIgnored(t *testing.T) {
	v := NewValidator(DefaultRuleset(), nil)
	g := NewGraph()
	mustAdd(t, g, "r", CategoryRouter)
	mustAdd(t, g, "a1", CategoryAgent)
	mustAdd(t, g, "a2", CategoryAgent)

	d1 := v.ValidateConnection(g, Edge{Source: "r", Target: "a1", SourceHandle: "route-0"})
	d2 := v.ValidateConnection(g, Edge{Source: "r", Target: "a2", SourceHandle: "route-1"})
	assert.True(t, d1.Accepted)
	assert.True(t, d2.Accepted)

	// a handle on a forbidden pair changes nothing
	mustAdd(t, g, "out", CategoryOutput)
	d3 := v.ValidateConnection(g, Edge{Source: "out", Target: "a1", SourceHandle: "route-0"})
	assert.False(t, d3.Accepted)
}

func TestValidateConnection_HintSurfaced(t *testing.T) {
	v := NewValidator(DefaultRuleset(), nil)
	g := NewGraph()
	mustAdd(t, g, "s", CategorySource)
	mustAdd(t, g, "m", CategorySemanticContext)
	mustAdd(t, g, "a", CategoryAgent)

	// informational hint
	d := v.ValidateConnection(g, Edge{Source: "m", Target: "a"})
	require.True(t, d.Accepted)
	assert.NotEmpty(t, d.Message)
	assert.False(t, d.Risky)

	// risky hint carries the marker
	d = v.ValidateConnection(g, Edge{Source: "s", Target: "a"})
	require.True(t, d.Accepted)
	assert.True(t, d.Risky)
	assert.True(t, isRiskyHint(d.Message))
}

func TestValidateConnection_DoesNotMutateGraph(t *testing.T) {
	v := NewValidator(DefaultRuleset(), nil)
	g := NewGraph()
	mustAdd(t, g, "s", CategorySource)
	mustAdd(t, g, "a", CategoryAgent)

	for i := 0; i < 5; i++ {
		v.ValidateConnection(g, Edge{Source: "s", Target: "a"})
	}
	assert.Equal(t, 0, g.EdgeCount())
	assert.Equal(t, 2, g.NodeCount())
}

func TestValidateConnection_InjectedRuleset(t *testing.T) {
	// an alternate ruleset flips a default: agents may not reach outputs
	rules := Ruleset{
		Allowed: map[NodeCategory][]NodeCategory{
			CategoryAgent: {CategoryAgent},
		},
		Hints:    map[CategoryPair]string{},
		Guidance: map[NodeCategory]string{},
	}
	v := NewValidator(rules, nil)
	g := NewGraph()
	mustAdd(t, g, "a", CategoryAgent)
	mustAdd(t, g, "out", CategoryOutput)

	d := v.ValidateConnection(g, Edge{Source: "a", Target: "out"})
	assert.False(t, d.Accepted)
	assert.Contains(t, d.Message, "Cannot connect", "generic fallback when no guidance configured")
}

func TestCheckGraph(t *testing.T) {
	v := NewValidator(DefaultRuleset(), nil)

	g := NewGraph()
	mustAdd(t, g, "s", CategorySource)
	mustAdd(t, g, "a", CategoryAgent)
	mustAdd(t, g, "out", CategoryOutput)
	mustConnect(t, g, v, "s", "a")
	mustConnect(t, g, v, "a", "out")
	assert.NoError(t, v.CheckGraph(g))

	// a graph assembled outside the gate can carry violations
	bad := NewGraphFrom(
		[]Node{{ID: "out", Category: CategoryOutput}, {ID: "a", Category: CategoryAgent}},
		[]Edge{{ID: "e1", Source: "out", Target: "a"}},
	)
	assert.Error(t, v.CheckGraph(bad))
}
