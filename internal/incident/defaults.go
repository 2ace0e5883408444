package incident

import "sync"

// Defaults holds the process-wide tunable simulator parameters. The serving
// layer owns one instance and injects it where runs are started; nothing in
// this package reaches for ambient global state.
type Defaults struct {
	mu    sync.RWMutex
	alpha float64
	baseP float64
}

// NewDefaults seeds the tunables from a config.
func NewDefaults(cfg Config) *Defaults {
	return &Defaults{alpha: cfg.Alpha, baseP: cfg.BaseP}
}

// Get returns the current (alpha, base pressure) pair.
func (d *Defaults) Get() (alpha, baseP float64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.alpha, d.baseP
}

// Set replaces the tunables. Values outside the pressure bounds are let
// through for alpha (any positive scale is meaningful) but base pressure is
// clamped to the simulator's working range.
func (d *Defaults) Set(alpha, baseP float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if alpha > 0 {
		d.alpha = alpha
	}
	d.baseP = clampPressure(baseP)
}

// Config materializes a run config from the current tunables.
func (d *Defaults) Config() Config {
	alpha, baseP := d.Get()
	return Config{Alpha: alpha, BaseP: baseP, Composition: DefaultComposition()}
}
