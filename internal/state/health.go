package state

// HealthThresholds are the injected score cutoffs for health classification.
type HealthThresholds struct {
	WarnBelow     float64
	DegradedBelow float64
}

// Classify maps a numeric health score plus observed blocker severities to a
// health state. FROZEN is never produced here; it only arrives from the
// stored record.
func Classify(score float64, anyCritical, anyWarning bool, th HealthThresholds) HealthState {
	if anyCritical || score < th.DegradedBelow {
		return HealthDegraded
	}
	if anyWarning || score < th.WarnBelow {
		return HealthWarn
	}
	return HealthOK
}

// applySticky preserves a previously-stored DEGRADED state while the score
// remains below the degraded threshold, so a momentarily recovered score
// cannot silently clear a still-serious condition. The override consults only
// the score, not the fresh blocker severities, and can therefore disagree
// with the same-call classification; that behavior is intentional and
// matches the long-observed semantics.
func applySticky(fresh HealthState, stored HealthState, score float64, th HealthThresholds) HealthState {
	if stored == HealthDegraded && score < th.DegradedBelow {
		return HealthDegraded
	}
	return fresh
}
