package plan

import (
	"slices"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/flownlg/internal/triple"
)

// #region constants
const (
	// Marker opens a sentence group in a plan string.
	Marker = "S"
	// SentenceToken replaces each marker in a rendered template.
	SentenceToken = "<sentence>"
)

// #endregion constants

// #region build
// Build encodes ordered as a plan over the indices of triples.
// Each ordered triple is matched to the first structurally equal triple in
// triples; a triple with no match contributes no index to its sentence.
// Every sentence still emits its marker.
func Build(triples triple.TripleSet, ordered triple.OrderedTripleSet) string {
	groups := make([][]int, len(ordered))
	for i, sent := range ordered {
		groups[i] = []int{}
		for _, t := range sent {
			if idx := slices.Index(triples, t); idx >= 0 {
				groups[i] = append(groups[i], idx)
			}
		}
	}
	return Format(groups)
}

// Format writes sentence groups in plan wire form: "S 0 1 S 2".
func Format(groups [][]int) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(Marker)
		for _, idx := range g {
			b.WriteByte(' ')
			b.WriteString(strconv.Itoa(idx))
		}
	}
	return b.String()
}

// #endregion build

// #region parse
// Parse splits a plan into its sentence groups. Runs of whitespace are a
// single separator. Indices must be plain decimal digits.
func Parse(p string) ([][]int, error) {
	var groups [][]int
	for _, tok := range strings.Fields(p) {
		if tok == Marker {
			groups = append(groups, []int{})
			continue
		}
		idx, ok := parseIndex(tok)
		if !ok {
			return nil, &UnknownPlanSymbolError{Symbol: tok}
		}
		if len(groups) == 0 {
			return nil, &MalformedPlanError{Plan: p}
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], idx)
	}
	if len(groups) == 0 {
		return nil, &MalformedPlanError{Plan: p}
	}
	return groups, nil
}

func parseIndex(tok string) (int, bool) {
	if tok == "" {
		return 0, false
	}
	for i := 0; i < len(tok); i++ {
		if !isDigit(tok[i]) {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return idx, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// #endregion parse
