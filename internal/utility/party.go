// Package utility maps agreement terms to normalized attribute scores and
// party-specific utility values, with optional prospect-theory
// reference-dependence.
package utility

// AttributeName identifies one dimension of value in an agreement.
type AttributeName string

const (
	AttrSafety       AttributeName = "safety"
	AttrFace         AttributeName = "face"
	AttrAccess       AttributeName = "operational_access"
	AttrVerification AttributeName = "verification"
)

// AttributeNames lists the scored attributes in canonical order.
var AttributeNames = []AttributeName{AttrSafety, AttrFace, AttrAccess, AttrVerification}

// Attribute is one party-specific valuation dimension: how much the party
// cares (Weight), the score range it considers meaningful, the neutral
// baseline for gain/loss framing (Reference), and its target (Aspiration).
type Attribute struct {
	Name       AttributeName `json:"name"`
	Weight     float64       `json:"weight"` // non-negative relative importance
	MinValue   float64       `json:"min_value"`
	MaxValue   float64       `json:"max_value"`
	Reference  float64       `json:"reference"`  // neutral baseline, gains above, losses below
	Aspiration float64       `json:"aspiration"` // target value
}

// Party is a negotiating party with a walk-away utility (BATNA), a
// loss-aversion coefficient, and per-attribute valuations.
type Party struct {
	ID           string                      `json:"id"`
	Name         string                      `json:"name"`
	BATNA        float64                     `json:"batna"`         // utility of walking away, in [0,1]
	LossAversion float64                     `json:"loss_aversion"` // >1 amplifies losses below reference
	Attributes   map[AttributeName]Attribute `json:"attributes"`
}

// NewParty builds a party with the standard loss-aversion coefficient and
// equal-weight attributes referenced at the neutral 0.5 baseline. Callers
// adjust individual attributes afterward.
func NewParty(id, name string, batna float64) *Party {
	attrs := make(map[AttributeName]Attribute, len(AttributeNames))
	for _, n := range AttributeNames {
		attrs[n] = Attribute{
			Name:       n,
			Weight:     1,
			MinValue:   0,
			MaxValue:   1,
			Reference:  0.5,
			Aspiration: 0.8,
		}
	}
	return &Party{
		ID:           id,
		Name:         name,
		BATNA:        batna,
		LossAversion: 2.25,
		Attributes:   attrs,
	}
}

// SetAttribute replaces one attribute valuation.
func (p *Party) SetAttribute(a Attribute) {
	p.Attributes[a.Name] = a
}
