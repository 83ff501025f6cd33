package plan

import "fmt"

// MalformedPlanError reports a plan that contains no sentence marker.
type MalformedPlanError struct {
	Plan string
}

func (e *MalformedPlanError) Error() string {
	return fmt.Sprintf("malformed plan %q: missing %q marker", e.Plan, Marker)
}

// UnknownPlanSymbolError reports a plan token that has no triple to render.
type UnknownPlanSymbolError struct {
	Symbol string
}

func (e *UnknownPlanSymbolError) Error() string {
	return fmt.Sprintf("unknown plan symbol %q", e.Symbol)
}
