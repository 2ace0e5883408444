package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/talgya/shoal-accord/internal/accord"
	"github.com/talgya/shoal-accord/internal/incident"
	"github.com/talgya/shoal-accord/internal/marine"
)

const sampleYAML = `
name: Contested Reef Test
case_id: reef-test
mediator: ASEAN_FACILITATOR
weather: rough
media_visibility: 2
issue_space: [resupply_SOP, hotline_cues]
issue_defaults:
  hotline_cues:
    hotline_status: "24_7"
  resupply_SOP:
    standoff_nm: 3
parties:
  - id: PH_GOV
    name: Philippine Government
    batna: 0.45
    weights: {safety: 2, face: 1}
  - id: PRC_MARITIME
    name: PRC Maritime Authorities
    batna: 0.5
    loss_aversion: 2.5
    attributes:
      - {name: safety, weight: 2, reference: 0.55, aspiration: 0.8}
composition:
  coastal-guard-A: 2
  militia: 3
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_EmptyPathGivesBuiltin(t *testing.T) {
	sc, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Parties) < 2 {
		t.Fatalf("builtin scenario needs two parties, got %d", len(sc.Parties))
	}
	if sc.CaseID == "" {
		t.Fatal("builtin scenario should carry a case id")
	}
}

func TestLoad_ParsesFile(t *testing.T) {
	sc, err := Load(writeTemp(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if sc.CaseID != "reef-test" {
		t.Fatalf("case id: %q", sc.CaseID)
	}
	if sc.Weather != "rough" || sc.MediaVisibility != 2 {
		t.Fatalf("environment fields: %q %d", sc.Weather, sc.MediaVisibility)
	}
	if sc.Parties[1].LossAversion != 2.5 {
		t.Fatalf("loss aversion: %.2f", sc.Parties[1].LossAversion)
	}
	// Unset loss aversion normalizes to the standard coefficient.
	if sc.Parties[0].LossAversion != 2.25 {
		t.Fatalf("normalized loss aversion: %.2f", sc.Parties[0].LossAversion)
	}
}

func TestLoad_RejectsOneParty(t *testing.T) {
	bad := `
name: Bad
parties:
  - id: ONLY
    name: Lonely
    batna: 0.5
`
	if _, err := Load(writeTemp(t, bad)); err == nil {
		t.Fatal("expected validation error for one party")
	}
}

func TestLoad_RejectsUnknownWeather(t *testing.T) {
	bad := `
name: Bad
weather: typhoon
parties:
  - {id: A, name: A, batna: 0.5}
  - {id: B, name: B, batna: 0.5}
`
	if _, err := Load(writeTemp(t, bad)); err == nil {
		t.Fatal("expected validation error for unknown weather")
	}
}

func TestLoad_RejectsUnknownKind(t *testing.T) {
	bad := `
name: Bad
parties:
  - {id: A, name: A, batna: 0.5}
  - {id: B, name: B, batna: 0.5}
composition:
  submarine: 1
`
	if _, err := Load(writeTemp(t, bad)); err == nil {
		t.Fatal("expected validation error for unknown agent kind")
	}
}

func TestDefaultAgreement(t *testing.T) {
	sc, err := Load(writeTemp(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	a := sc.DefaultAgreement()
	if a.Text(accord.IssueHotline, "hotline_status", "") != "24_7" {
		t.Fatal("issue defaults should carry into the agreement")
	}
	if got := a.Number(accord.IssueResupplySOP, "standoff_nm", 0); got != 3 {
		t.Fatalf("standoff default: %.1f", got)
	}
}

func TestPopulationComposition(t *testing.T) {
	sc, err := Load(writeTemp(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	comp := sc.PopulationComposition()
	if comp[incident.KindCoastGuardA] != 2 || comp[incident.KindMilitia] != 3 {
		t.Fatalf("unexpected composition: %v", comp)
	}
	if comp.Total() != 5 {
		t.Fatalf("total: %d", comp.Total())
	}
}

func TestEnvironment_DynamicWeatherAttachesForecast(t *testing.T) {
	sc, _ := Load("")
	sc.DynamicWeather = true
	env := sc.Environment(42)
	if env.Forecast == nil {
		t.Fatal("dynamic weather should attach a forecast")
	}

	sc.DynamicWeather = false
	env = sc.Environment(42)
	if env.Forecast != nil {
		t.Fatal("static weather should not attach a forecast")
	}
	if env.WeatherAt(0) != marine.ParseWeather(sc.Weather) {
		t.Fatal("static environment should mirror the scenario weather")
	}
}

func TestPartySpec_Party(t *testing.T) {
	sc, err := Load(writeTemp(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	p := sc.Parties[1].Party()
	if p.BATNA != 0.5 || p.LossAversion != 2.5 {
		t.Fatalf("party model: %+v", p)
	}
	attr := p.Attributes["safety"]
	if attr.Weight != 2 || attr.Reference != 0.55 {
		t.Fatalf("safety attribute: %+v", attr)
	}
	// min/max left zero in the file normalize to the unit interval.
	if attr.MinValue != 0 || attr.MaxValue != 1 {
		t.Fatalf("bounds should normalize to [0,1]: %+v", attr)
	}
}
