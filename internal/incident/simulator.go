package incident

import (
	"math"
	"math/rand"

	"github.com/talgya/shoal-accord/internal/accord"
	"github.com/talgya/shoal-accord/internal/marine"
)

// Type categorizes an incident.
type Type uint8

const (
	TypeWaterCannon Type = iota
	TypeRamming
	TypeDetentionAttempt
	TypeNearMiss
)

// TypeName returns the canonical name for an incident type.
func TypeName(t Type) string {
	switch t {
	case TypeWaterCannon:
		return "water-cannon"
	case TypeRamming:
		return "ramming"
	case TypeDetentionAttempt:
		return "detention-attempt"
	default:
		return "near-miss"
	}
}

// Incident is one logged event. Entries are append-only and never mutated.
type Incident struct {
	Step     int     `json:"step"`
	Type     Type    `json:"type"`
	Severity float64 `json:"severity"` // [0,1]; near-miss capped at 0.5
}

// Summary aggregates a run's incident log.
type Summary struct {
	Incidents   int     `json:"incidents"`
	MaxSeverity float64 `json:"max_severity"`
}

// Pressure bounds and dynamics. Pressure decays toward zero and is pushed
// up by agent deltas, so it settles at an equilibrium set by the net
// escalation rate rather than integrating without bound.
const (
	MinPressure = 0.01
	MaxPressure = 0.95

	pressureDecay    = 0.98
	pressureCoupling = 0.1
	agentJitter      = 0.002
	roughWeatherAdd  = 0.003
	mediaDamping     = 0.0005
)

// Per-term mitigation caps applied to each agent's delta while the matching
// agreement term is in force.
const (
	hotlineMitigation  = 0.004
	standoffMitPerNM   = 0.001
	standoffMitCap     = 0.005
	escortMitPerShip   = 0.0008
	escortMitCap       = 0.003
	corridorMitigation = 0.003
	aisMitigation      = 0.002
)

// Config fixes a run's free parameters before agents are created. It is
// never mutated afterward; calibration candidates are expressed as fresh
// configs, not pokes into a running simulator.
type Config struct {
	Alpha       float64     `json:"alpha"`  // risk-scale multiplier on every agent's bias
	BaseP       float64     `json:"base_p"` // initial incident pressure
	Composition Composition `json:"composition"`
}

// DefaultConfig returns the tuned baseline parameters.
func DefaultConfig() Config {
	return Config{
		Alpha:       1.0,
		BaseP:       0.25,
		Composition: DefaultComposition(),
	}
}

// Simulator advances one population under one agreement and environment.
// All randomness comes from the run-scoped generator created at
// construction, so concurrent simulators never interfere.
type Simulator struct {
	cfg       Config
	agents    []Agent
	agreement *accord.Agreement
	env       marine.Environment
	pressure  float64
	rng       *rand.Rand
	step      int
	log       []Incident
}

// NewSimulator builds a run. The population is created once from the config
// composition and stays fixed for the simulator's lifetime.
func NewSimulator(cfg Config, a *accord.Agreement, env marine.Environment, seed int64) *Simulator {
	if cfg.Composition.Total() == 0 {
		cfg.Composition = DefaultComposition()
	}
	if a == nil {
		a = accord.Empty()
	}
	return &Simulator{
		cfg:       cfg,
		agents:    populate(cfg.Composition),
		agreement: a,
		env:       env.Clamped(),
		pressure:  clampPressure(cfg.BaseP),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Pressure returns the current incident pressure.
func (s *Simulator) Pressure() float64 {
	return s.pressure
}

// Agents returns the fixed population roster.
func (s *Simulator) Agents() []Agent {
	out := make([]Agent, len(s.agents))
	copy(out, s.agents)
	return out
}

// Run advances the simulation and returns the incidents it produced, in
// step order. Calling Run again continues from the current state.
func (s *Simulator) Run(steps int) []Incident {
	start := len(s.log)
	for i := 0; i < steps; i++ {
		s.Step()
	}
	out := make([]Incident, len(s.log)-start)
	copy(out, s.log[start:])
	return out
}

// Step advances one step: every agent contributes its pressure delta, the
// global pressure is re-clamped, then at most one incident is drawn.
func (s *Simulator) Step() {
	weather := s.env.WeatherAt(s.step)

	var total float64
	for i := range s.agents {
		total += s.agentDelta(&s.agents[i], weather)
	}
	s.pressure = clampPressure(s.pressure*pressureDecay + pressureCoupling*total)

	if s.rng.Float64() < s.pressure {
		s.log = append(s.log, s.drawIncident())
	}
	s.step++
}

// agentDelta computes one agent's contribution this step: scaled risk bias
// plus jitter and weather, minus whatever mitigation the agreement buys.
func (s *Simulator) agentDelta(a *Agent, weather marine.Weather) float64 {
	delta := s.cfg.Alpha*a.Bias + (s.rng.Float64()-0.5)*agentJitter

	if weather == marine.WeatherRough {
		delta += roughWeatherAdd
	}
	// Cameras on scene make everyone mind their seamanship.
	delta -= float64(s.env.MediaVisibility) * mediaDamping

	delta -= s.mitigation()
	return delta
}

// mitigation sums the per-agent pressure relief of the terms in force,
// each capped so no single term can buy unbounded calm.
func (s *Simulator) mitigation() float64 {
	var m float64
	a := s.agreement

	if a.Text(accord.IssueHotline, "hotline_status", "") == "24_7" {
		m += hotlineMitigation
	}
	m += math.Min(a.Number(accord.IssueResupplySOP, "standoff_nm", 0)*standoffMitPerNM, standoffMitCap)
	m += math.Min(a.Number(accord.IssueResupplySOP, "escort_count", 0)*escortMitPerShip, escortMitCap)
	if a.Has(accord.IssueFisheriesCorridor) {
		m += corridorMitigation
	}
	if a.Has(accord.IssueAISTransparency) {
		m += aisMitigation
	}
	return m
}

// drawIncident picks the type from a fixed categorical distribution and the
// severity uniformly, with near-miss severity capped at 0.5.
func (s *Simulator) drawIncident() Incident {
	roll := s.rng.Float64()
	var t Type
	switch {
	case roll < 0.35:
		t = TypeWaterCannon
	case roll < 0.55:
		t = TypeRamming
	case roll < 0.75:
		t = TypeDetentionAttempt
	default:
		t = TypeNearMiss
	}

	sev := s.rng.Float64()
	if t == TypeNearMiss {
		sev *= 0.5
	}
	return Incident{Step: s.step, Type: t, Severity: sev}
}

// Summarize aggregates an incident log.
func Summarize(log []Incident) Summary {
	sum := Summary{Incidents: len(log)}
	for _, in := range log {
		if in.Severity > sum.MaxSeverity {
			sum.MaxSeverity = in.Severity
		}
	}
	return sum
}

func clampPressure(p float64) float64 {
	if p < MinPressure {
		return MinPressure
	}
	if p > MaxPressure {
		return MaxPressure
	}
	return p
}
