package corpus

import "github.com/danielpatrickdp/flownlg/internal/triple"

// #region entry
// Entry is one fact set with its human lexicalisations.
type Entry struct {
	Category          string
	EID               string
	Size              int
	OriginalTripleSet triple.TripleSet
	ModifiedTripleSet triple.TripleSet
	EntityMap         []TagEntity
	Lexes             []Lex
}

// Lex is one verbalisation of an entry, with its gold sentence ordering.
type Lex struct {
	Comment    string
	LID        string
	Text       string
	Template   string
	Ordered    triple.OrderedTripleSet
	References []Reference
}

// TagEntity maps a delexicalisation tag such as AGENT-1 to its entity.
type TagEntity struct {
	Tag    string
	Entity string
}

// Reference is one referring expression in a lexicalisation.
type Reference struct {
	Tag     string
	Entity  string
	Refex   string
	Number  string
	RefType string
}

// EntityMapDict returns the entity map keyed by tag.
func (e Entry) EntityMapDict() map[string]string {
	m := make(map[string]string, len(e.EntityMap))
	for _, te := range e.EntityMap {
		m[te.Tag] = te.Entity
	}
	return m
}

// #endregion entry

// #region example
// Example is one planner/realizer training pair derived from a lexicalisation.
type Example struct {
	Category      string           `json:"category"`
	EID           string           `json:"eid"`
	Size          int              `json:"size"`
	LID           string           `json:"lid"`
	Text          string           `json:"text"`
	PlannerInput  string           `json:"planner_input"`
	Plan          string           `json:"plan"`
	RealizerInput string           `json:"realizer_input"`
	Triples       triple.TripleSet `json:"triples"`
}

// #endregion example
