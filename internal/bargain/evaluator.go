package bargain

import (
	"fmt"
	"math"

	"github.com/talgya/shoal-accord/internal/accord"
)

// Acceptance curve constants. Surplus zero maps to the floor; each elapsed
// round adds a small fatigue bonus.
const (
	defaultBATNA     = 0.5
	acceptanceFloor  = 0.25
	roundFatigueGain = 0.02
	prospectSlope    = 2.5
)

// Result is the outcome of evaluating one offer.
type Result struct {
	Round       int                `json:"round"`
	Proposer    string             `json:"proposer"`
	Utilities   map[string]float64 `json:"utilities"`
	Thresholds  map[string]float64 `json:"batna_thresholds"`
	Surplus     map[string]float64 `json:"surplus"`
	Acceptance  map[string]float64 `json:"acceptance_probabilities"`
	ZOPAExists  bool               `json:"zopa_exists"`
	NashProduct float64            `json:"nash_product"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// EvaluateOffer scores an agreement proposed by one registered party against
// every party in the session. The session's round index advances by one per
// call; that is the evaluator's only side effect.
func (s *Session) EvaluateOffer(proposer string, a *accord.Agreement) (*Result, error) {
	if !s.HasParty(proposer) {
		return nil, &InvalidPartyError{CaseID: s.CaseID, Party: proposer}
	}

	round := s.Round
	s.Round++

	res := &Result{
		Round:      round,
		Proposer:   proposer,
		Utilities:  make(map[string]float64, len(s.Parties)),
		Thresholds: make(map[string]float64, len(s.Parties)),
		Surplus:    make(map[string]float64, len(s.Parties)),
		Acceptance: make(map[string]float64, len(s.Parties)),
	}

	for _, is := range a.Unknown() {
		res.Warnings = append(res.Warnings, fmt.Sprintf("unrecognized issue %q ignored by scoring", is))
	}
	for _, is := range a.Issues() {
		if accord.Known(is) && !s.inIssueSpace(is) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("issue %q is outside the declared issue space", is))
		}
	}

	// Fatigue stops growing once the negotiation passes its round budget.
	fatigueRound := round
	if s.MaxRounds > 0 && fatigueRound > s.MaxRounds {
		fatigueRound = s.MaxRounds
	}

	zopa := true
	nash := 1.0
	for _, party := range s.Parties {
		u, threshold, modeled := s.partyUtility(party, a)
		surplus := u - threshold

		res.Utilities[party] = u
		res.Thresholds[party] = threshold
		res.Surplus[party] = surplus

		if party == proposer {
			// The proposer stands behind its own offer.
			res.Acceptance[party] = 1
		} else {
			res.Acceptance[party] = acceptance(surplus, fatigueRound, modeled)
			if surplus < 0 {
				zopa = false
			}
		}
		nash *= surplus
	}

	for _, surplus := range res.Surplus {
		if surplus < 0 {
			// A negative factor makes the raw product meaningless
			// (two negatives read as a large joint gain). Report zero.
			nash = 0
			break
		}
	}

	res.ZOPAExists = zopa
	res.NashProduct = nash

	for _, w := range a.Warnings() {
		res.Warnings = append(res.Warnings, w.Error())
	}
	return res, nil
}

// partyUtility computes one party's utility and acceptance threshold.
// Parties with an explicit valuation model use prospect-theory scoring and
// their modeled BATNA; everyone else gets the prior-weighted average and the
// default threshold.
func (s *Session) partyUtility(party string, a *accord.Agreement) (u, threshold float64, modeled bool) {
	if p, ok := s.Models[party]; ok {
		return s.model.Prospect(a, p), p.BATNA, true
	}
	return s.model.Weighted(a, s.Priors[party]), defaultBATNA, false
}

// acceptance maps surplus and elapsed rounds to an acceptance probability.
// Prior-based sessions use the linear form; modeled parties use a saturating
// tanh curve. Both are non-decreasing in surplus and round, and map zero
// surplus near the floor.
func acceptance(surplus float64, round int, modeled bool) float64 {
	fatigue := float64(round) * roundFatigueGain
	var p float64
	if modeled {
		p = acceptanceFloor + (1-acceptanceFloor)*math.Tanh(prospectSlope*surplus) + fatigue
	} else {
		p = surplus + fatigue + acceptanceFloor
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
