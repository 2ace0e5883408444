package utility

import (
	"math"

	"github.com/talgya/shoal-accord/internal/accord"
)

// Feature extraction constants. Each issue contributes additively from the
// neutral 0.5 baseline; per-term contributions are capped so no single issue
// can dominate a score.
const (
	scoreBaseline = 0.5

	standoffSafetyPerNM  = 0.04
	standoffSafetyCap    = 0.20
	escortSafetyPerShip  = 0.03
	escortSafetyCap      = 0.12
	hotlineSafetyBonus   = 0.10
	prenotifFacePerHour  = 0.005
	prenotifFaceCap      = 0.08
	embargoFaceBonus     = 0.08
	embargoMinHours      = 4
	corridorSafetyBonus  = 0.08
	corridorAccessBonus  = 0.12
	aisVerificationBonus = 0.15
)

// Scores is the normalized attribute score vector for one agreement.
type Scores map[AttributeName]float64

// ExtractScores maps an agreement's terms to attribute scores in [0,1].
// Every score starts at the neutral baseline and each addressed issue nudges
// it additively, so the result does not depend on evaluation order. Issues
// the agreement does not address leave their attributes at baseline.
func ExtractScores(a *accord.Agreement) Scores {
	s := Scores{
		AttrSafety:       scoreBaseline,
		AttrFace:         scoreBaseline,
		AttrAccess:       scoreBaseline,
		AttrVerification: scoreBaseline,
	}

	if a.Has(accord.IssueResupplySOP) {
		standoff := a.Number(accord.IssueResupplySOP, "standoff_nm", 0)
		s[AttrSafety] += math.Min(standoff*standoffSafetyPerNM, standoffSafetyCap)

		escorts := a.Number(accord.IssueResupplySOP, "escort_count", 0)
		s[AttrSafety] += math.Min(escorts*escortSafetyPerShip, escortSafetyCap)

		// Long pre-notification reads as conceding oversight of one's
		// own resupply runs, a small cost to face.
		prenotif := a.Number(accord.IssueResupplySOP, "pre_notification_hours", 0)
		s[AttrFace] -= math.Min(prenotif*prenotifFacePerHour, prenotifFaceCap)
	}

	if a.Text(accord.IssueHotline, "hotline_status", "") == "24_7" {
		s[AttrSafety] += hotlineSafetyBonus
	}

	if a.Number(accord.IssueMediaProtocol, "embargo_hours", 0) >= embargoMinHours {
		s[AttrFace] += embargoFaceBonus
	}

	if a.Has(accord.IssueFisheriesCorridor) {
		s[AttrSafety] += corridorSafetyBonus
		s[AttrAccess] += corridorAccessBonus
	}

	if a.Has(accord.IssueAISTransparency) {
		s[AttrVerification] += aisVerificationBonus
	}

	for n, v := range s {
		s[n] = clamp01(v)
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
