// Package accord provides the agreement data model shared by the utility
// evaluator and the incident simulator. An Agreement is an immutable bundle
// of negotiated issue terms; consumers read terms through tolerant typed
// accessors and treat absent issues as "not addressed".
package accord

import (
	"fmt"
	"sort"
)

// Issue identifies a negotiable issue. The set of known issues is closed;
// unrecognized issue names are carried but flagged so callers can warn
// instead of silently dropping them.
type Issue string

const (
	IssueResupplySOP       Issue = "resupply_SOP"
	IssueHotline           Issue = "hotline_cues"
	IssueMediaProtocol     Issue = "media_protocol"
	IssueFisheriesCorridor Issue = "fisheries_corridor"
	IssueAISTransparency   Issue = "ais_transparency"
)

// KnownIssues lists every issue the feature extractor understands,
// in canonical order.
var KnownIssues = []Issue{
	IssueResupplySOP,
	IssueHotline,
	IssueMediaProtocol,
	IssueFisheriesCorridor,
	IssueAISTransparency,
}

// Known reports whether an issue is part of the closed issue set.
func Known(is Issue) bool {
	for _, k := range KnownIssues {
		if k == is {
			return true
		}
	}
	return false
}

// Terms is one issue's term name → value mapping. Values arrive from
// interactive callers as JSON, so they may be float64, string, bool,
// or something garbled.
type Terms map[string]any

// MalformedTermError records a term whose value had the wrong shape for its
// declared kind. The policy is tolerate-and-default: readers fall back to
// the neutral default and the error is surfaced as a warning, never an abort.
type MalformedTermError struct {
	Issue Issue
	Term  string
	Value any
}

func (e *MalformedTermError) Error() string {
	return fmt.Sprintf("issue %q term %q: value %v has wrong shape", e.Issue, e.Term, e.Value)
}

type termKind uint8

const (
	termNumber termKind = iota
	termText
	termFlag
)

// termShapes declares the expected value kind for every term the engines
// read. Terms outside this table pass through unchecked.
var termShapes = map[Issue]map[string]termKind{
	IssueResupplySOP: {
		"standoff_nm":            termNumber,
		"escort_count":           termNumber,
		"pre_notification_hours": termNumber,
	},
	IssueHotline:           {"hotline_status": termText},
	IssueMediaProtocol:     {"embargo_hours": termNumber},
	IssueFisheriesCorridor: {"width_nm": termNumber},
	IssueAISTransparency:   {"enabled": termFlag},
}

// Agreement is an immutable set of negotiated terms. The constructor copies
// its input and validates every declared term shape up front; all reads
// afterward are pure, so one agreement can back any number of concurrent
// evaluations.
type Agreement struct {
	issues   map[Issue]Terms
	order    []Issue
	warnings []*MalformedTermError
}

// New builds an Agreement from an issue → terms mapping. Term maps are
// deep-copied so later mutation of the input cannot leak in, and every term
// with a declared shape is checked once here; a garbled value is recorded as
// a single warning and reads as absent from then on.
func New(issues map[Issue]Terms) *Agreement {
	a := &Agreement{issues: make(map[Issue]Terms, len(issues))}
	for _, is := range KnownIssues {
		if t, ok := issues[is]; ok {
			a.issues[is] = copyTerms(t)
			a.order = append(a.order, is)
			a.checkShapes(is, t)
		}
	}
	// Preserve unknown issues too; the evaluator reports them as
	// out-of-scope rather than dropping them on the floor.
	for is, t := range issues {
		if !Known(is) {
			a.issues[is] = copyTerms(t)
			a.order = append(a.order, is)
		}
	}
	return a
}

func copyTerms(t Terms) Terms {
	out := make(Terms, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// checkShapes validates one issue's declared terms in name order, so the
// warning list comes out the same for the same input.
func (a *Agreement) checkShapes(is Issue, t Terms) {
	shapes := termShapes[is]
	names := make([]string, 0, len(t))
	for name := range t {
		if _, declared := shapes[name]; declared {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if !shapeOK(shapes[name], t[name]) {
			a.warnings = append(a.warnings, &MalformedTermError{Issue: is, Term: name, Value: t[name]})
		}
	}
}

func shapeOK(kind termKind, v any) bool {
	switch kind {
	case termNumber:
		_, ok := asNumber(v)
		return ok
	case termText:
		_, ok := v.(string)
		return ok
	default:
		switch v.(type) {
		case bool, string:
			return true
		}
		return false
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// Empty returns an agreement with no issues addressed.
func Empty() *Agreement {
	return New(nil)
}

// Has reports whether the agreement addresses an issue at all.
func (a *Agreement) Has(is Issue) bool {
	_, ok := a.issues[is]
	return ok
}

// Issues returns the addressed issues in construction order
// (known issues first, canonical order, then unknown ones).
func (a *Agreement) Issues() []Issue {
	out := make([]Issue, len(a.order))
	copy(out, a.order)
	return out
}

// Unknown returns the addressed issues outside the closed issue set.
func (a *Agreement) Unknown() []Issue {
	var out []Issue
	for _, is := range a.order {
		if !Known(is) {
			out = append(out, is)
		}
	}
	return out
}

// Number reads a numeric term. Absent issues and terms yield def, as does a
// value that failed shape validation at construction.
func (a *Agreement) Number(is Issue, term string, def float64) float64 {
	t, ok := a.issues[is]
	if !ok {
		return def
	}
	v, ok := t[term]
	if !ok {
		return def
	}
	if n, ok := asNumber(v); ok {
		return n
	}
	return def
}

// Text reads a string term, falling back to def on absence or wrong shape.
func (a *Agreement) Text(is Issue, term string, def string) string {
	t, ok := a.issues[is]
	if !ok {
		return def
	}
	v, ok := t[term]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// Flag reads a boolean term. Accepts bool or the strings "true"/"yes"/"on".
func (a *Agreement) Flag(is Issue, term string, def bool) bool {
	t, ok := a.issues[is]
	if !ok {
		return def
	}
	v, ok := t[term]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "yes" || b == "on"
	}
	return def
}

// Warnings returns the malformed-term warnings recorded at construction,
// one per garbled term.
func (a *Agreement) Warnings() []*MalformedTermError {
	out := make([]*MalformedTermError, len(a.warnings))
	copy(out, a.warnings)
	return out
}
