package state

// stateBuilder accumulates blockers and reasons during one synthesis call.
// Only finish exposes a result, so no half-built state ever escapes.
type stateBuilder struct {
	blockers      []Blocker
	whyNotTrading []string
	actions       []string
	seenActions   map[string]bool
	seenTrading   map[string]bool
}

func newStateBuilder() *stateBuilder {
	return &stateBuilder{
		seenActions: make(map[string]bool),
		seenTrading: make(map[string]bool),
	}
}

func (b *stateBuilder) addBlocker(bl Blocker) {
	b.blockers = append(b.blockers, bl)
	if bl.SuggestedAction != "" && !b.seenActions[bl.SuggestedAction] {
		b.seenActions[bl.SuggestedAction] = true
		b.actions = append(b.actions, bl.SuggestedAction)
	}
}

func (b *stateBuilder) blockTrading(reason string) {
	if b.seenTrading[reason] {
		return
	}
	b.seenTrading[reason] = true
	b.whyNotTrading = append(b.whyNotTrading, reason)
}

func (b *stateBuilder) hasCritical() bool {
	for _, bl := range b.blockers {
		if bl.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func (b *stateBuilder) hasWarning() bool {
	for _, bl := range b.blockers {
		if bl.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// finish stamps the accumulated blockers and derived flags onto the
// assembled state and returns it.
func (b *stateBuilder) finish(st CanonicalBotState) CanonicalBotState {
	st.Blockers = b.blockers
	st.WhyNotTrading = b.whyNotTrading
	st.SuggestedActions = b.actions
	for _, bl := range b.blockers {
		if bl.AutoHealable {
			st.IsAutoHealable = true
			break
		}
	}
	return st
}
