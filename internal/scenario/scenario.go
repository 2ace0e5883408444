// Package scenario loads case setup files: the environment a simulation
// runs under, the default agreement terms, and the party roster feeding the
// bargaining evaluator.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/shoal-accord/internal/accord"
	"github.com/talgya/shoal-accord/internal/incident"
	"github.com/talgya/shoal-accord/internal/marine"
	"github.com/talgya/shoal-accord/internal/utility"
)

// Scenario is one loaded case file.
type Scenario struct {
	Name     string `yaml:"name"`
	CaseID   string `yaml:"case_id"`
	Mediator string `yaml:"mediator"`

	Weather         string  `yaml:"weather"`          // "calm" or "rough"
	DynamicWeather  bool    `yaml:"dynamic_weather"`  // derive per-step sea state from a forecast
	RoughFraction   float64 `yaml:"rough_fraction"`   // forecast share of rough steps
	MediaVisibility int     `yaml:"media_visibility"` // 0..3

	IssueSpace    []string                  `yaml:"issue_space"`
	IssueDefaults map[string]map[string]any `yaml:"issue_defaults"`

	Parties     []PartySpec    `yaml:"parties"`
	Composition map[string]int `yaml:"composition"`
}

// PartySpec describes one negotiating party. Weights alone give the party
// prior-based scoring; attributes switch it to the full valuation model.
type PartySpec struct {
	ID           string             `yaml:"id"`
	Name         string             `yaml:"name"`
	BATNA        float64            `yaml:"batna"`
	LossAversion float64            `yaml:"loss_aversion"`
	Weights      map[string]float64 `yaml:"weights"`
	Attributes   []AttributeSpec    `yaml:"attributes"`
}

// AttributeSpec describes one attribute valuation for a modeled party.
type AttributeSpec struct {
	Name       string  `yaml:"name"`
	Weight     float64 `yaml:"weight"`
	MinValue   float64 `yaml:"min_value"`
	MaxValue   float64 `yaml:"max_value"`
	Reference  float64 `yaml:"reference"`
	Aspiration float64 `yaml:"aspiration"`
}

// Load reads a scenario file. An empty path returns the built-in default
// scenario so the daemon can start without any case file on disk.
func Load(path string) (*Scenario, error) {
	sc := defaults()
	if strings.TrimSpace(path) == "" {
		sc.Normalize()
		return sc, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, sc); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

func defaults() *Scenario {
	return &Scenario{
		Name:            "Second Thomas Shoal baseline",
		CaseID:          "shoal-baseline",
		Mediator:        "ASEAN_FACILITATOR",
		Weather:         "calm",
		RoughFraction:   0.3,
		MediaVisibility: 1,
		IssueSpace: []string{
			string(accord.IssueResupplySOP),
			string(accord.IssueHotline),
			string(accord.IssueMediaProtocol),
			string(accord.IssueFisheriesCorridor),
			string(accord.IssueAISTransparency),
		},
		Parties: []PartySpec{
			{ID: "PH_GOV", Name: "Philippine Government", BATNA: 0.45, LossAversion: 2.25},
			{ID: "PRC_MARITIME", Name: "PRC Maritime Authorities", BATNA: 0.5, LossAversion: 2.25},
		},
	}
}

// Normalize fills gaps a hand-edited file commonly leaves.
func (sc *Scenario) Normalize() {
	if sc.CaseID == "" {
		sc.CaseID = strings.ToLower(strings.ReplaceAll(sc.Name, " ", "-"))
	}
	if sc.RoughFraction <= 0 {
		sc.RoughFraction = 0.3
	}
	if sc.MediaVisibility < 0 {
		sc.MediaVisibility = 0
	}
	if sc.MediaVisibility > marine.MaxMediaVisibility {
		sc.MediaVisibility = marine.MaxMediaVisibility
	}
	for i := range sc.Parties {
		if sc.Parties[i].LossAversion == 0 {
			sc.Parties[i].LossAversion = 2.25
		}
	}
}

// Validate rejects setups the engines cannot score sensibly.
func (sc *Scenario) Validate() error {
	if len(sc.Parties) < 2 {
		return fmt.Errorf("need at least two parties, have %d", len(sc.Parties))
	}
	seen := map[string]bool{}
	for _, p := range sc.Parties {
		if p.ID == "" {
			return fmt.Errorf("party %q missing id", p.Name)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate party id %q", p.ID)
		}
		seen[p.ID] = true
		if p.BATNA < 0 || p.BATNA > 1 {
			return fmt.Errorf("party %q: batna %.2f outside [0,1]", p.ID, p.BATNA)
		}
	}
	if sc.Weather != "" && sc.Weather != "calm" && sc.Weather != "rough" {
		return fmt.Errorf("unknown weather %q", sc.Weather)
	}
	for kind := range sc.Composition {
		if kindIndex(kind) < 0 {
			return fmt.Errorf("unknown agent kind %q in composition", kind)
		}
	}
	return nil
}

// Environment builds the simulation environment, attaching a seeded
// forecast when dynamic weather is on.
func (sc *Scenario) Environment(seed int64) marine.Environment {
	env := marine.Environment{
		Weather:         marine.ParseWeather(sc.Weather),
		MediaVisibility: sc.MediaVisibility,
	}
	if sc.DynamicWeather {
		env.Forecast = marine.NewForecast(seed, sc.RoughFraction)
	}
	return env
}

// DefaultAgreement builds the agreement implied by the scenario's issue
// defaults; an empty defaults block yields the empty agreement.
func (sc *Scenario) DefaultAgreement() *accord.Agreement {
	issues := make(map[accord.Issue]accord.Terms, len(sc.IssueDefaults))
	for name, terms := range sc.IssueDefaults {
		issues[accord.Issue(name)] = accord.Terms(terms)
	}
	return accord.New(issues)
}

// PopulationComposition maps the scenario's composition block to simulator
// kind counts, falling back to the default flotilla when absent.
func (sc *Scenario) PopulationComposition() incident.Composition {
	if len(sc.Composition) == 0 {
		return incident.DefaultComposition()
	}
	var comp incident.Composition
	for kind, n := range sc.Composition {
		if idx := kindIndex(kind); idx >= 0 && n > 0 {
			comp[idx] = n
		}
	}
	if comp.Total() == 0 {
		return incident.DefaultComposition()
	}
	return comp
}

func kindIndex(name string) int {
	for k := incident.Kind(0); k < incident.NumKinds; k++ {
		if incident.KindName(k) == name {
			return int(k)
		}
	}
	return -1
}

// Party materializes one party spec into the full valuation model.
func (ps PartySpec) Party() *utility.Party {
	p := utility.NewParty(ps.ID, ps.Name, ps.BATNA)
	if ps.LossAversion > 0 {
		p.LossAversion = ps.LossAversion
	}
	for _, as := range ps.Attributes {
		attr := utility.Attribute{
			Name:       utility.AttributeName(as.Name),
			Weight:     as.Weight,
			MinValue:   as.MinValue,
			MaxValue:   as.MaxValue,
			Reference:  as.Reference,
			Aspiration: as.Aspiration,
		}
		if attr.MaxValue <= attr.MinValue {
			attr.MinValue, attr.MaxValue = 0, 1
		}
		p.SetAttribute(attr)
	}
	return p
}

// PriorWeights converts a spec's weight block for the prior-based evaluator.
func (ps PartySpec) PriorWeights() map[utility.AttributeName]float64 {
	if len(ps.Weights) == 0 {
		return nil
	}
	out := make(map[utility.AttributeName]float64, len(ps.Weights))
	for name, w := range ps.Weights {
		out[utility.AttributeName(name)] = w
	}
	return out
}
