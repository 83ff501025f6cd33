package corpus

import (
	"github.com/danielpatrickdp/flownlg/internal/plan"
)

// Examples derives one training example per lexicalisation of e. The planner
// sees the modified triple set; the gold plan indexes into it.
func Examples(e Entry) []Example {
	out := make([]Example, 0, len(e.Lexes))
	for _, lex := range e.Lexes {
		out = append(out, Example{
			Category:      e.Category,
			EID:           e.EID,
			Size:          e.Size,
			LID:           lex.LID,
			Text:          lex.Text,
			PlannerInput:  e.ModifiedTripleSet.String(),
			Plan:          plan.Build(e.ModifiedTripleSet, lex.Ordered),
			RealizerInput: plan.RenderOrdered(lex.Ordered),
			Triples:       e.ModifiedTripleSet,
		})
	}
	return out
}

// AllExamples flattens Examples over entries.
func AllExamples(entries []Entry) []Example {
	var out []Example
	for _, e := range entries {
		out = append(out, Examples(e)...)
	}
	return out
}
