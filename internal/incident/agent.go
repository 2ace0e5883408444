// Package incident advances a small typed agent population through discrete
// steps and draws maritime incidents from an evolving pressure scalar. Runs
// are bit-for-bit reproducible per seed.
package incident

// Kind categorizes a simulated actor on the water.
type Kind uint8

const (
	KindCoastGuardA Kind = iota // claimant A's coast guard
	KindCoastGuardB             // claimant B's coast guard
	KindMilitia                 // maritime militia vessels
	KindCivilianFisher          // civilian fishing boats
)

// NumKinds is the number of agent kinds.
const NumKinds = 4

// KindName returns the canonical name for an agent kind.
func KindName(k Kind) string {
	switch k {
	case KindCoastGuardA:
		return "coastal-guard-A"
	case KindCoastGuardB:
		return "coastal-guard-B"
	case KindMilitia:
		return "militia"
	default:
		return "civilian-fisher"
	}
}

// riskBias is the fixed per-step escalation pressure each kind contributes
// before the risk-scale multiplier, mitigations, and environment apply.
// Militia vessels probe hardest; fishing boats mostly keep their heads down.
var riskBias = [NumKinds]float64{
	KindCoastGuardA:    0.012,
	KindCoastGuardB:    0.014,
	KindMilitia:        0.020,
	KindCivilianFisher: 0.006,
}

// Agent is one actor in the population. Its risk bias is fixed at creation
// from its kind and never changes during a run.
type Agent struct {
	ID   int     `json:"id"`
	Kind Kind    `json:"kind"`
	Bias float64 `json:"bias"`
}

// Composition fixes how many agents of each kind a run is populated with.
type Composition [NumKinds]int

// DefaultComposition is a small mixed flotilla: both coast guards on
// station, a militia element, and the fishing boats everyone claims
// to be protecting.
func DefaultComposition() Composition {
	return Composition{
		KindCoastGuardA:    3,
		KindCoastGuardB:    3,
		KindMilitia:        2,
		KindCivilianFisher: 4,
	}
}

// Total returns the population size.
func (c Composition) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// populate builds the agent roster for one run, in kind order.
func populate(c Composition) []Agent {
	agents := make([]Agent, 0, c.Total())
	id := 0
	for k := Kind(0); k < NumKinds; k++ {
		for i := 0; i < c[k]; i++ {
			agents = append(agents, Agent{ID: id, Kind: k, Bias: riskBias[k]})
			id++
		}
	}
	return agents
}
