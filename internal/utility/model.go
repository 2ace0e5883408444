package utility

import (
	"math/rand"

	"github.com/talgya/shoal-accord/internal/accord"
)

// Model computes party utilities from agreement scores. A model optionally
// adds zero-mean noise per evaluation to represent bounded rationality; the
// noise generator is owned by the model so evaluations stay reproducible
// under a fixed seed.
type Model struct {
	noiseSigma float64
	rng        *rand.Rand
}

// NewModel returns a noiseless model.
func NewModel() *Model {
	return &Model{}
}

// NewNoisyModel returns a model that perturbs each utility by zero-mean
// gaussian noise with the given sigma, drawn from a generator seeded here.
func NewNoisyModel(sigma float64, seed int64) *Model {
	return &Model{noiseSigma: sigma, rng: rand.New(rand.NewSource(seed))}
}

// Weighted computes the plain weighted-average utility of an agreement under
// the given attribute weights. Missing or all-zero weights fall back to equal
// weighting across the scored attributes.
func (m *Model) Weighted(a *accord.Agreement, weights map[AttributeName]float64) float64 {
	scores := ExtractScores(a)

	var sumW, sum float64
	for _, n := range AttributeNames {
		w := weights[n]
		if w < 0 {
			w = 0
		}
		sumW += w
		sum += w * scores[n]
	}
	if sumW == 0 {
		// Equal weighting when the caller supplied no usable priors.
		sum, sumW = 0, 0
		for _, n := range AttributeNames {
			sum += scores[n]
			sumW++
		}
	}
	return m.finish(sum / sumW)
}

// Prospect computes the reference-dependent utility of an agreement for a
// party. Each attribute contributes its weighted signed deviation from the
// party's reference point; deviations below the reference are amplified by
// the loss-aversion coefficient, so an equal-magnitude loss outweighs a gain.
// The summed value is mapped back onto [0,1] around the 0.5 neutral point:
// an agreement scoring every attribute exactly at its reference yields 0.5.
func (m *Model) Prospect(a *accord.Agreement, p *Party) float64 {
	scores := ExtractScores(a)

	lambda := p.LossAversion
	if lambda < 1 {
		lambda = 1
	}

	var sumW, value float64
	for _, n := range AttributeNames {
		attr, ok := p.Attributes[n]
		if !ok || attr.Weight <= 0 {
			continue
		}
		sumW += attr.Weight

		dev := scores[n] - attr.Reference
		if dev >= 0 {
			value += attr.Weight * dev
		} else {
			value += attr.Weight * lambda * dev
		}
	}
	if sumW == 0 {
		// A party indifferent on every attribute is neutral.
		return m.finish(0.5)
	}

	// value/sumW lies in [-lambda, 1]; recentre on 0.5 with losses able to
	// reach the floor faster than gains reach the ceiling.
	return m.finish(0.5 + value/(2*sumW))
}

// finish applies optional evaluation noise and clamps into [0,1].
func (m *Model) finish(u float64) float64 {
	if m.noiseSigma > 0 && m.rng != nil {
		u += m.rng.NormFloat64() * m.noiseSigma
	}
	return clamp01(u)
}
