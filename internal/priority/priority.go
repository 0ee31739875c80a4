// Package priority holds the pure urgency rules shared by trays and
// standalone items: color derivation, the non-downgrade merge, and the
// escalation suggestion heuristic.
package priority

// Color derives the display color from priority state. A ready entity is
// always green, stale priority fields notwithstanding. Numeric 1 maps to
// red, 2 to orange, 3 to yellow; the partial flag alone maps to blue.
func Color(numeric *int, partial bool, ready bool) string {
	if ready {
		return "green"
	}
	if numeric != nil {
		switch *numeric {
		case 1:
			return "red"
		case 2:
			return "orange"
		case 3:
			return "yellow"
		}
	}
	if partial {
		return "blue"
	}
	return "green"
}

// MergeNonDowngrade folds an incoming priority signal into the existing
// state without ever lowering urgency. An incoming numeric is adopted only
// when there is no existing numeric or it is strictly greater (the merge
// takes the max; note Color independently treats 1 as the most severe tier).
// The partial flag can only be set while no numeric is in effect. The only
// path that lowers urgency is a full restock, which bypasses this function.
func MergeNonDowngrade(existingNumeric *int, existingPartial bool, incomingNumeric *int, incomingPartial bool) (*int, bool) {
	numeric := existingNumeric
	partial := existingPartial
	if incomingNumeric != nil {
		if numeric == nil || *incomingNumeric > *numeric {
			v := *incomingNumeric
			numeric = &v
		}
	}
	if numeric != nil {
		partial = false
	} else if incomingPartial {
		partial = true
	}
	return numeric, partial
}

// SuggestEscalation scores the situation additively: one point each for a
// weekly case count above the tray's historical average, a case assigned
// within 72 hours, and any critical item flagged missing. The score maps
// directly to a numeric priority; zero points means no suggestion.
func SuggestEscalation(caseWithin72h bool, caseCountPerWeek, trayAvgWeekly float64, anyCriticalMissing bool) *int {
	points := 0
	if caseCountPerWeek > trayAvgWeekly {
		points++
	}
	if caseWithin72h {
		points++
	}
	if anyCriticalMissing {
		points++
	}
	if points == 0 {
		return nil
	}
	return &points
}
