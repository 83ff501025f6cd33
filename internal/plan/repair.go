package plan

import (
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// #region report
// Report describes what Repair changed in a raw plan.
type Report struct {
	Raw     string
	Plan    string
	Extra   []string // removed tokens, sorted
	Missing []int    // appended indices, ascending
}

// Changed reports whether the repaired plan differs from the raw plan.
func (r Report) Changed() bool {
	return r.Plan != r.Raw
}

// #endregion report

// #region validate
// ValidateAndRepair checks a generated plan against the index range 0..n-1
// and repairs it. See Repair.
func ValidateAndRepair(raw string, n int) (string, error) {
	rep, err := Repair(raw, n)
	if err != nil {
		return "", err
	}
	return rep.Plan, nil
}

// Repair removes every token that is neither the marker nor an index in
// 0..n-1, appends one sentence holding the indices that were never emitted,
// and strips a dangling empty final sentence. Duplicated valid indices are
// kept. A plan without any marker is rejected with *MalformedPlanError.
func Repair(raw string, n int) (Report, error) {
	tokens := strings.Fields(raw)
	present := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		present[tok] = true
	}
	if !present[Marker] {
		return Report{}, &MalformedPlanError{Plan: raw}
	}
	delete(present, Marker)

	expected := make(map[string]bool, max(n, 0))
	for i := 0; i < n; i++ {
		expected[strconv.Itoa(i)] = true
	}

	rep := Report{Raw: raw}
	for tok := range present {
		if !expected[tok] {
			rep.Extra = append(rep.Extra, tok)
		}
	}
	slices.Sort(rep.Extra)

	out := raw
	if len(rep.Extra) > 0 {
		kept := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			if tok == Marker || expected[tok] {
				kept = append(kept, tok)
			}
		}
		out = strings.Join(kept, " ")
	}

	for i := 0; i < n; i++ {
		if !present[strconv.Itoa(i)] {
			rep.Missing = append(rep.Missing, i)
		}
	}
	if len(rep.Missing) > 0 {
		out = out + " " + Format([][]int{rep.Missing})
	}

	rep.Plan = trimDangling(out)
	return rep, nil
}

// trimDangling strips trailing markers and whitespace. Indices left in front
// of the first marker are placed under a new leading marker.
func trimDangling(p string) string {
	p = strings.TrimRightFunc(p, func(r rune) bool {
		return r == 'S' || unicode.IsSpace(r)
	})
	fields := strings.Fields(p)
	if len(fields) == 0 {
		return Marker
	}
	if fields[0] == Marker {
		return p
	}
	return Marker + " " + strings.TrimLeftFunc(p, unicode.IsSpace)
}

// #endregion validate
