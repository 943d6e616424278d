package models

// AdminScope is the set of events an administrator may act on: either
// ScopeAll or a single event identifier.
type AdminScope string

const ScopeAll AdminScope = "all"

func ScopeFor(event EventID) AdminScope {
	return AdminScope(event)
}

func (s AdminScope) IsAll() bool {
	return s == ScopeAll
}

func (s AdminScope) Allows(event EventID) bool {
	return s == ScopeAll || EventID(s) == event
}

// EventFilter returns the event every query must be restricted to, or the
// requested event when the scope is global. A nil result means no filter.
func (s AdminScope) EventFilter(requested *EventID) *EventID {
	if s != ScopeAll {
		ev := EventID(s)
		return &ev
	}
	if requested != nil && *requested != "" {
		ev := *requested
		return &ev
	}
	return nil
}
