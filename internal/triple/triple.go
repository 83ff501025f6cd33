package triple

import (
	"fmt"
	"strings"
)

// #region types
// Triple is a single subject-predicate-object fact.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// TripleSet is an ordered set of triples. A triple's position is its index in a plan.
type TripleSet []Triple

// OrderedTripleSet groups triples into sentences, in emission order.
type OrderedTripleSet [][]Triple

// IndexMap maps a plan index to the canonical text of its triple.
type IndexMap map[int]string

// #endregion types

// #region canonicalize
// Canonicalize serializes a triple as "<S> subject <P> predicate <O> object".
// Sentinel tokens inside the fields are not escaped.
func Canonicalize(t Triple) string {
	return "<S> " + t.Subject + " <P> " + t.Predicate + " <O> " + t.Object
}

// String joins the canonical form of every triple with single spaces.
func (ts TripleSet) String() string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = Canonicalize(t)
	}
	return strings.Join(parts, " ")
}

// IndexMap builds the index -> canonical text map for the set.
func (ts TripleSet) IndexMap() IndexMap {
	m := make(IndexMap, len(ts))
	for i, t := range ts {
		m[i] = Canonicalize(t)
	}
	return m
}

// #endregion canonicalize

// #region parse
// ParseSet reads a planner input produced by TripleSet.String back into
// triples. Runs of whitespace inside a field collapse to one space, and a
// field that itself contains a sentinel token does not survive the trip.
func ParseSet(s string) (TripleSet, error) {
	var out TripleSet
	var cur *Triple
	var field *[]string
	var subj, pred, obj []string

	flush := func() error {
		if cur == nil {
			return nil
		}
		if pred == nil || obj == nil {
			return fmt.Errorf("triple %d: missing <P> or <O>", len(out))
		}
		cur.Subject = strings.Join(subj, " ")
		cur.Predicate = strings.Join(pred, " ")
		cur.Object = strings.Join(obj, " ")
		out = append(out, *cur)
		return nil
	}

	for _, tok := range strings.Fields(s) {
		switch {
		case tok == "<S>":
			if err := flush(); err != nil {
				return nil, err
			}
			cur = &Triple{}
			subj, pred, obj = []string{}, nil, nil
			field = &subj
		case cur == nil:
			return nil, fmt.Errorf("text %q before first <S>", tok)
		case tok == "<P>" && pred == nil && obj == nil:
			pred = []string{}
			field = &pred
		case tok == "<O>" && pred != nil && obj == nil:
			obj = []string{}
			field = &obj
		default:
			*field = append(*field, tok)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion parse
