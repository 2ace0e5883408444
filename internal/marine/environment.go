// Package marine models the environmental conditions the incident simulator
// runs under: sea state and media visibility, plus an optional noise-driven
// forecast that varies sea state over the course of a run.
package marine

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Weather is the sea state for a simulation step.
type Weather uint8

const (
	WeatherCalm  Weather = 0
	WeatherRough Weather = 1
)

// WeatherName returns the canonical name for a sea state.
func WeatherName(w Weather) string {
	if w == WeatherRough {
		return "rough"
	}
	return "calm"
}

// ParseWeather maps a scenario string to a sea state. Unknown values
// read as calm.
func ParseWeather(s string) Weather {
	if s == "rough" {
		return WeatherRough
	}
	return WeatherCalm
}

// MaxMediaVisibility is the top of the media visibility scale.
const MaxMediaVisibility = 3

// Environment holds the conditions for one simulation run. MediaVisibility
// ranges 0 (no coverage) to 3 (saturation coverage).
type Environment struct {
	Weather         Weather `json:"weather"`
	MediaVisibility int     `json:"media_visibility"`

	// Forecast, when set, overrides Weather per step.
	Forecast *Forecast `json:"-"`
}

// Clamped returns a copy with media visibility forced into range.
func (e Environment) Clamped() Environment {
	if e.MediaVisibility < 0 {
		e.MediaVisibility = 0
	}
	if e.MediaVisibility > MaxMediaVisibility {
		e.MediaVisibility = MaxMediaVisibility
	}
	return e
}

// WeatherAt returns the sea state for a step, consulting the forecast
// when one is attached.
func (e Environment) WeatherAt(step int) Weather {
	if e.Forecast != nil {
		return e.Forecast.At(step)
	}
	return e.Weather
}

// Forecast derives per-step sea state from smooth simplex noise, so rough
// spells arrive in multi-step swells rather than flickering step to step.
// Deterministic for a given seed.
type Forecast struct {
	noise     opensimplex.Noise
	frequency float64
	threshold float64
}

// NewForecast builds a forecast. roughFraction in [0,1] sets roughly what
// share of steps come out rough.
func NewForecast(seed int64, roughFraction float64) *Forecast {
	if roughFraction < 0 {
		roughFraction = 0
	}
	if roughFraction > 1 {
		roughFraction = 1
	}
	return &Forecast{
		noise:     opensimplex.NewNormalized(seed),
		frequency: 0.02,
		threshold: 1 - roughFraction,
	}
}

// At returns the sea state for a step.
func (f *Forecast) At(step int) Weather {
	// Normalized noise yields [0,1); a fixed second coordinate keeps the
	// series one-dimensional in step.
	if f.noise.Eval2(float64(step)*f.frequency, 0.5) >= f.threshold {
		return WeatherRough
	}
	return WeatherCalm
}
