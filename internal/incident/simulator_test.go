package incident

import (
	"testing"

	"github.com/talgya/shoal-accord/internal/accord"
	"github.com/talgya/shoal-accord/internal/marine"
)

func calmEnv() marine.Environment {
	return marine.Environment{Weather: marine.WeatherCalm, MediaVisibility: 1}
}

func fullAgreement() *accord.Agreement {
	return accord.New(map[accord.Issue]accord.Terms{
		accord.IssueResupplySOP: {
			"standoff_nm":  5.0,
			"escort_count": 2.0,
		},
		accord.IssueHotline:           {"hotline_status": "24_7"},
		accord.IssueFisheriesCorridor: {"width_nm": 5.0},
		accord.IssueAISTransparency:   {"enabled": true},
	})
}

func TestRun_ZeroSteps(t *testing.T) {
	sim := NewSimulator(DefaultConfig(), accord.Empty(), calmEnv(), 42)
	log := sim.Run(0)
	if len(log) != 0 {
		t.Fatalf("zero steps should produce an empty log, got %d incidents", len(log))
	}
	sum := Summarize(log)
	if sum.Incidents != 0 || sum.MaxSeverity != 0 {
		t.Fatalf("zero-step summary should be zero, got %+v", sum)
	}
}

func TestRun_Deterministic(t *testing.T) {
	a := NewSimulator(DefaultConfig(), accord.Empty(), calmEnv(), 42)
	b := NewSimulator(DefaultConfig(), accord.Empty(), calmEnv(), 42)

	logA := a.Run(300)
	logB := b.Run(300)

	if len(logA) != len(logB) {
		t.Fatalf("same seed produced different incident counts: %d vs %d", len(logA), len(logB))
	}
	for i := range logA {
		if logA[i] != logB[i] {
			t.Fatalf("incident %d differs: %+v vs %+v", i, logA[i], logB[i])
		}
	}
	if a.Pressure() != b.Pressure() {
		t.Fatalf("same seed ended at different pressure: %.6f vs %.6f", a.Pressure(), b.Pressure())
	}
}

func TestRun_SeedsDiffer(t *testing.T) {
	a := NewSimulator(DefaultConfig(), accord.Empty(), calmEnv(), 1)
	b := NewSimulator(DefaultConfig(), accord.Empty(), calmEnv(), 2)

	logA := a.Run(300)
	logB := b.Run(300)

	if len(logA) == len(logB) {
		same := true
		for i := range logA {
			if logA[i] != logB[i] {
				same = false
				break
			}
		}
		if same {
			t.Fatal("different seeds produced identical incident logs")
		}
	}
}

func TestRun_SeverityBounds(t *testing.T) {
	sim := NewSimulator(DefaultConfig(), accord.Empty(), calmEnv(), 7)
	for _, in := range sim.Run(1000) {
		if in.Severity < 0 || in.Severity > 1 {
			t.Fatalf("severity out of [0,1]: %+v", in)
		}
		if in.Type == TypeNearMiss && in.Severity > 0.5 {
			t.Fatalf("near-miss severity above 0.5: %+v", in)
		}
	}
}

func TestRun_StepsAreOrdered(t *testing.T) {
	sim := NewSimulator(DefaultConfig(), accord.Empty(), calmEnv(), 7)
	log := sim.Run(500)
	for i := 1; i < len(log); i++ {
		if log[i].Step <= log[i-1].Step {
			t.Fatalf("incident log out of order at %d: %+v after %+v", i, log[i], log[i-1])
		}
	}
}

func TestPressure_StaysClamped(t *testing.T) {
	// Alpha cranked high enough to drive pressure into the cap.
	cfg := Config{Alpha: 5, BaseP: 0.9, Composition: DefaultComposition()}
	sim := NewSimulator(cfg, accord.Empty(), calmEnv(), 3)
	for i := 0; i < 500; i++ {
		sim.Step()
		p := sim.Pressure()
		if p < MinPressure || p > MaxPressure {
			t.Fatalf("pressure out of bounds at step %d: %.4f", i, p)
		}
	}
	if sim.Pressure() != MaxPressure {
		t.Fatalf("extreme alpha should pin pressure at the cap, got %.4f", sim.Pressure())
	}
}

func TestPressure_FullMitigationDecaysToFloor(t *testing.T) {
	cfg := Config{Alpha: 0.3, BaseP: 0.5, Composition: DefaultComposition()}
	sim := NewSimulator(cfg, fullAgreement(), calmEnv(), 3)
	sim.Run(500)
	if sim.Pressure() > 0.1 {
		t.Fatalf("a strong agreement at low alpha should calm the water, pressure %.4f", sim.Pressure())
	}
}

func TestRun_AgreementReducesIncidents(t *testing.T) {
	bare := NewSimulator(DefaultConfig(), accord.Empty(), calmEnv(), 11)
	bound := NewSimulator(DefaultConfig(), fullAgreement(), calmEnv(), 11)

	bareCount := len(bare.Run(400))
	boundCount := len(bound.Run(400))

	if boundCount >= bareCount {
		t.Fatalf("mitigated run should log fewer incidents: bare %d vs bound %d",
			bareCount, boundCount)
	}
}

func TestRun_MalformedTermReadsAsAbsent(t *testing.T) {
	garbled := accord.New(map[accord.Issue]accord.Terms{
		accord.IssueResupplySOP: {"standoff_nm": "three miles"},
		accord.IssueHotline:     {"hotline_status": "24_7"},
	})
	clean := accord.New(map[accord.Issue]accord.Terms{
		accord.IssueResupplySOP: {},
		accord.IssueHotline:     {"hotline_status": "24_7"},
	})

	a := NewSimulator(DefaultConfig(), garbled, calmEnv(), 13)
	b := NewSimulator(DefaultConfig(), clean, calmEnv(), 13)

	logA := a.Run(200)
	logB := b.Run(200)

	if len(logA) != len(logB) {
		t.Fatalf("garbled standoff should mitigate like an absent one: %d vs %d incidents",
			len(logA), len(logB))
	}
	if got := len(garbled.Warnings()); got != 1 {
		t.Fatalf("a full run must leave exactly the construction warning, got %d", got)
	}
}

func TestRoughWeatherRaisesPressure(t *testing.T) {
	calm := NewSimulator(DefaultConfig(), accord.Empty(),
		marine.Environment{Weather: marine.WeatherCalm}, 5)
	rough := NewSimulator(DefaultConfig(), accord.Empty(),
		marine.Environment{Weather: marine.WeatherRough}, 5)

	calm.Run(200)
	rough.Run(200)

	if rough.Pressure() <= calm.Pressure() {
		t.Fatalf("rough seas should carry more pressure: calm %.4f vs rough %.4f",
			calm.Pressure(), rough.Pressure())
	}
}

func TestPopulation_FixedForRunLifetime(t *testing.T) {
	comp := Composition{}
	comp[KindCoastGuardA] = 2
	comp[KindMilitia] = 1

	cfg := Config{Alpha: 1, BaseP: 0.2, Composition: comp}
	sim := NewSimulator(cfg, accord.Empty(), calmEnv(), 9)

	before := sim.Agents()
	sim.Run(100)
	after := sim.Agents()

	if len(before) != 3 || len(after) != 3 {
		t.Fatalf("population size changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("agent %d mutated during run: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestComposition_EmptyFallsBackToDefault(t *testing.T) {
	sim := NewSimulator(Config{Alpha: 1, BaseP: 0.2}, accord.Empty(), calmEnv(), 1)
	if got := len(sim.Agents()); got != DefaultComposition().Total() {
		t.Fatalf("empty composition should use the default flotilla, got %d agents", got)
	}
}

func TestKindBiases(t *testing.T) {
	comp := DefaultComposition()
	sim := NewSimulator(Config{Alpha: 1, BaseP: 0.2, Composition: comp}, accord.Empty(), calmEnv(), 1)
	for _, a := range sim.Agents() {
		if a.Bias != riskBias[a.Kind] {
			t.Fatalf("agent %d bias %f does not match its kind %s", a.ID, a.Bias, KindName(a.Kind))
		}
	}
}

func TestDefaults_GetSet(t *testing.T) {
	d := NewDefaults(DefaultConfig())
	alpha, baseP := d.Get()
	if alpha != 1.0 || baseP != 0.25 {
		t.Fatalf("unexpected initial defaults: %.2f, %.2f", alpha, baseP)
	}

	d.Set(1.2, 0.3)
	alpha, baseP = d.Get()
	if alpha != 1.2 || baseP != 0.3 {
		t.Fatalf("set did not stick: %.2f, %.2f", alpha, baseP)
	}

	d.Set(-1, 2.0) // junk alpha ignored; pressure clamped
	alpha, baseP = d.Get()
	if alpha != 1.2 {
		t.Fatalf("non-positive alpha should be ignored, got %.2f", alpha)
	}
	if baseP != MaxPressure {
		t.Fatalf("base pressure should clamp to %.2f, got %.2f", MaxPressure, baseP)
	}
}
