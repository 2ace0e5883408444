// Package session provides the case registry mapping session handles to
// live bargaining sessions. The registry is an explicit object owned by the
// serving layer; there is no package-level state.
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/shoal-accord/internal/accord"
	"github.com/talgya/shoal-accord/internal/bargain"
	"github.com/talgya/shoal-accord/internal/utility"
)

// UnknownSessionError reports an operation against a session id the
// registry has never issued (or has dropped).
type UnknownSessionError struct {
	ID string
}

func (e *UnknownSessionError) Error() string {
	return fmt.Sprintf("unknown session %q", e.ID)
}

// StartRequest carries everything needed to open a session.
type StartRequest struct {
	CaseID     string
	Parties    []string
	Mediator   string
	IssueSpace []accord.Issue
	MaxRounds  int

	// Priors feed the plain evaluator; Models switch parties to
	// prospect-theory scoring. Both optional.
	Priors map[string]bargain.Weights
	Models []*utility.Party
}

// Registry maps session handles to bargaining sessions. Safe for concurrent
// use by HTTP handlers.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*bargain.Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*bargain.Session)}
}

// Start opens a session and returns its handle. A supplied case id becomes
// the handle; otherwise one is minted. Starting a case id that already
// exists replaces the old session (a restarted negotiation begins at
// round zero).
func (r *Registry) Start(req StartRequest) (string, *bargain.Session, error) {
	if len(req.Parties) < 2 {
		return "", nil, fmt.Errorf("session needs at least two parties, got %d", len(req.Parties))
	}

	id := req.CaseID
	if id == "" {
		id = uuid.NewString()
	}

	s := bargain.NewSession(id, req.Parties, req.Mediator, req.IssueSpace)
	s.MaxRounds = req.MaxRounds
	for party, w := range req.Priors {
		s.SetPriors(party, w)
	}
	for _, m := range req.Models {
		if s.HasParty(m.ID) {
			s.SetModel(m)
		}
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return id, s, nil
}

// Get looks up a session by handle.
func (r *Registry) Get(id string) (*bargain.Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownSessionError{ID: id}
	}
	return s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
