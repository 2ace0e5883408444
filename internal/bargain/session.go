// Package bargain evaluates proposed agreements round by round: per-party
// utilities, BATNA-derived acceptance, and cross-party diagnostics (ZOPA,
// Nash product).
package bargain

import (
	"fmt"

	"github.com/talgya/shoal-accord/internal/accord"
	"github.com/talgya/shoal-accord/internal/utility"
)

// InvalidPartyError reports an offer from or against a party that is not
// registered with the session.
type InvalidPartyError struct {
	CaseID string
	Party  string
}

func (e *InvalidPartyError) Error() string {
	return fmt.Sprintf("case %q: party %q is not registered", e.CaseID, e.Party)
}

// Weights is a per-attribute prior weighting for one party.
type Weights map[utility.AttributeName]float64

// Session holds the negotiation state for one case: the registered parties,
// the declared issue space, and the round counter. The round counter is the
// only state EvaluateOffer mutates; it increases by exactly one per call and
// never resets.
type Session struct {
	CaseID     string
	Parties    []string
	Mediator   string
	IssueSpace []accord.Issue
	Round      int
	MaxRounds  int // caps the round-fatigue acceptance bonus; 0 = uncapped

	// Priors drive the plain weighted evaluator. Models, when present for a
	// party, switch that party to the prospect-theory evaluator.
	Priors map[string]Weights
	Models map[string]*utility.Party

	model *utility.Model
}

// NewSession creates a session for a case. Priors and models start empty;
// parties without either are scored with equal attribute weights.
func NewSession(caseID string, parties []string, mediator string, issueSpace []accord.Issue) *Session {
	return &Session{
		CaseID:     caseID,
		Parties:    append([]string(nil), parties...),
		Mediator:   mediator,
		IssueSpace: append([]accord.Issue(nil), issueSpace...),
		Priors:     make(map[string]Weights),
		Models:     make(map[string]*utility.Party),
		model:      utility.NewModel(),
	}
}

// SetModel attaches an explicit party valuation model, switching that party
// to prospect-theory scoring.
func (s *Session) SetModel(p *utility.Party) {
	s.Models[p.ID] = p
}

// SetPriors attaches attribute weight priors for a party.
func (s *Session) SetPriors(party string, w Weights) {
	s.Priors[party] = w
}

// UseModel replaces the session's utility model (e.g. to enable evaluation
// noise). Intended for setup, before the first offer.
func (s *Session) UseModel(m *utility.Model) {
	s.model = m
}

// HasParty reports whether a party is registered with the session.
func (s *Session) HasParty(id string) bool {
	for _, p := range s.Parties {
		if p == id {
			return true
		}
	}
	return false
}

// inIssueSpace reports whether an issue was declared negotiable for
// this session.
func (s *Session) inIssueSpace(is accord.Issue) bool {
	for _, d := range s.IssueSpace {
		if d == is {
			return true
		}
	}
	return false
}
