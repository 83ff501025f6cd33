package plan

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/flownlg/internal/triple"
)

// #region fixtures
var (
	aLikesB   = triple.Triple{Subject: "A", Predicate: "likes", Object: "B"}
	bLivesInC = triple.Triple{Subject: "B", Predicate: "livesIn", Object: "C"}
	cNearD    = triple.Triple{Subject: "C", Predicate: "near", Object: "D"}
)

func sampleIndexMap() triple.IndexMap {
	return triple.IndexMap{
		0: "<S> A <P> likes <O> B",
		1: "<S> B <P> livesIn <O> C",
	}
}

// #endregion fixtures

// #region build-tests
func TestBuild_TwoSentences(t *testing.T) {
	ts := triple.TripleSet{aLikesB, bLivesInC}
	o := triple.OrderedTripleSet{{aLikesB}, {bLivesInC}}
	assert.Equal(t, "S 0 S 1", Build(ts, o))
}

func TestBuild_PermutedAndGrouped(t *testing.T) {
	ts := triple.TripleSet{aLikesB, bLivesInC, cNearD}
	o := triple.OrderedTripleSet{{cNearD, aLikesB}, {bLivesInC}}
	assert.Equal(t, "S 2 0 S 1", Build(ts, o))
}

func TestBuild_UnmatchedTripleSkipped(t *testing.T) {
	ts := triple.TripleSet{aLikesB}
	o := triple.OrderedTripleSet{{aLikesB, cNearD}, {cNearD}}
	assert.Equal(t, "S 0 S", Build(ts, o), "marker is still emitted for a sentence with no match")
}

func TestBuild_DuplicateTriplesMatchFirst(t *testing.T) {
	ts := triple.TripleSet{aLikesB, aLikesB}
	o := triple.OrderedTripleSet{{aLikesB}, {aLikesB}}
	assert.Equal(t, "S 0 S 0", Build(ts, o))
}

func TestBuild_Empty(t *testing.T) {
	assert.Equal(t, "", Build(nil, nil))
}

func TestBuild_Deterministic(t *testing.T) {
	ts := triple.TripleSet{aLikesB, bLivesInC, cNearD}
	o := triple.OrderedTripleSet{{bLivesInC}, {cNearD, aLikesB}}
	first := Build(ts, o)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Build(ts, o))
	}
}

// #endregion build-tests

// #region parse-tests
func TestParse(t *testing.T) {
	groups, err := Parse("S 2 0  S 1 S")
	require.NoError(t, err)
	if diff := cmp.Diff([][]int{{2, 0}, {1}, {}}, groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	var malformed *MalformedPlanError
	_, err := Parse("")
	assert.ErrorAs(t, err, &malformed)

	_, err = Parse("0 S 1")
	assert.ErrorAs(t, err, &malformed)

	var unknown *UnknownPlanSymbolError
	_, err = Parse("S +1")
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "+1", unknown.Symbol)
}

func TestFormatParseRoundTrip(t *testing.T) {
	groups := [][]int{{3, 1}, {}, {0, 2, 10}}
	got, err := Parse(Format(groups))
	require.NoError(t, err)
	assert.Equal(t, groups, got)
}

// #endregion parse-tests

// #region repair-tests
func TestValidateAndRepair_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		plan string
		n    int
		want string
	}{
		{"valid unchanged", "S 0 S 1", 2, "S 0 S 1"},
		{"extra stripped missing appended", "S 0 0 2", 2, "S 0 0 S 1"},
		{"all occurrences of extra removed", "S 7 0 7 S 7 1", 2, "S 0 S 1"},
		{"hallucinated word", "S 0 foo S 1", 2, "S 0 S 1"},
		{"leading zeros are not indices", "S 00 1", 2, "S 1 S 0"},
		{"missing appended ascending", "S 1", 4, "S 1 S 0 2 3"},
		{"dangling marker stripped", "S 0 S 1 S", 2, "S 0 S 1"},
		{"dangling markers stripped", "S 0 S 1 S S ", 2, "S 0 S 1"},
		{"duplicates kept", "S 0 1 S 1 0", 2, "S 0 1 S 1 0"},
		{"no triples", "S", 0, "S"},
		{"no triples with extras", "S 0 S 1", 0, "S"},
		{"marker only", "S", 2, "S S 0 1"},
		{"indices before marker", "0 1 S", 2, "S 0 1"},
		{"index before inner marker", "1 S 0", 2, "S 1 S 0"},
		{"leading index with extras", "x 1 S 0", 2, "S 1 S 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateAndRepair(tt.plan, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateAndRepair_ExtraInsideValidIndex(t *testing.T) {
	// "01" is out of range but is a substring of the valid index "101".
	missing := make([]int, 0, 101)
	for i := 0; i <= 100; i++ {
		missing = append(missing, i)
	}
	got, err := ValidateAndRepair("S 101 01", 102)
	require.NoError(t, err)
	assert.Equal(t, "S 101 "+Format([][]int{missing}), got)
}

func TestValidateAndRepair_NoMarker(t *testing.T) {
	for _, n := range []int{0, 1, 3, 10} {
		_, err := ValidateAndRepair("1 2 3", n)
		var malformed *MalformedPlanError
		require.ErrorAs(t, err, &malformed, "n=%d", n)
		assert.Equal(t, "1 2 3", malformed.Plan)
	}
	_, err := ValidateAndRepair("", 2)
	assert.True(t, errors.As(err, new(*MalformedPlanError)))
}

func TestRepair_Report(t *testing.T) {
	rep, err := Repair("S 0 0 2 x", 3)
	require.NoError(t, err)
	assert.Equal(t, "S 0 0 2 S 1", rep.Plan)
	assert.Equal(t, []string{"x"}, rep.Extra)
	assert.Equal(t, []int{1}, rep.Missing)
	assert.True(t, rep.Changed())

	rep, err = Repair("S 0 S 1", 2)
	require.NoError(t, err)
	assert.Empty(t, rep.Extra)
	assert.Empty(t, rep.Missing)
	assert.False(t, rep.Changed())
}

// #endregion repair-tests

// #region render-tests
func TestRender_Scenario(t *testing.T) {
	got, err := Render("S 0 S 1", sampleIndexMap())
	require.NoError(t, err)
	assert.Equal(t, "<sentence> <S> A <P> likes <O> B <sentence> <S> B <P> livesIn <O> C", got)
}

func TestRender_UnknownIndex(t *testing.T) {
	_, err := Render("S 5", triple.IndexMap{0: "x"})
	var unknown *UnknownPlanSymbolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "5", unknown.Symbol)
}

func TestRender_UnknownCharacter(t *testing.T) {
	_, err := Render("S 0 x1", sampleIndexMap())
	var unknown *UnknownPlanSymbolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "x1", unknown.Symbol)
}

func TestRender_MultiDigitIndex(t *testing.T) {
	m := triple.IndexMap{1: "one", 0: "zero", 10: "ten"}
	got, err := Render("S 10 1", m)
	require.NoError(t, err)
	assert.Equal(t, "<sentence> ten one", got)
}

func TestRender_PreservesSpacing(t *testing.T) {
	got, err := Render("S  0\tS 1 ", sampleIndexMap())
	require.NoError(t, err)
	assert.Equal(t, "<sentence>  <S> A <P> likes <O> B\t<sentence> <S> B <P> livesIn <O> C ", got)
}

func TestRenderOrdered(t *testing.T) {
	o := triple.OrderedTripleSet{{aLikesB}, {bLivesInC}}
	assert.Equal(t, "<sentence> <S> A <P> likes <O> B <sentence> <S> B <P> livesIn <O> C", RenderOrdered(o))
}

// #endregion render-tests

// #region property-tests
func randomPartition(rng *rand.Rand, n int) (triple.TripleSet, triple.OrderedTripleSet) {
	ts := make(triple.TripleSet, n)
	for i := range ts {
		ts[i] = triple.Triple{Subject: "e" + strconv.Itoa(i), Predicate: "p", Object: "o" + strconv.Itoa(i)}
	}
	perm := rng.Perm(n)
	var o triple.OrderedTripleSet
	for len(perm) > 0 {
		k := 1 + rng.IntN(len(perm))
		sent := make([]triple.Triple, k)
		for j := 0; j < k; j++ {
			sent[j] = ts[perm[j]]
		}
		o = append(o, sent)
		perm = perm[k:]
	}
	return ts, o
}

func randomPlan(rng *rand.Rand, n int) string {
	vocab := []string{"S", "S", "x", "-1", "007", "S0"}
	for i := 0; i < n+3; i++ {
		vocab = append(vocab, strconv.Itoa(i))
	}
	toks := []string{"S"}
	for i := rng.IntN(12); i > 0; i-- {
		toks = append(toks, vocab[rng.IntN(len(vocab))])
	}
	rng.Shuffle(len(toks), func(i, j int) { toks[i], toks[j] = toks[j], toks[i] })
	seps := []string{" ", " ", "  ", "\t"}
	var b strings.Builder
	for i, tok := range toks {
		if i > 0 {
			b.WriteString(seps[rng.IntN(len(seps))])
		}
		b.WriteString(tok)
	}
	return b.String()
}

func indexTokens(p string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range strings.Fields(p) {
		if tok != Marker {
			set[tok] = true
		}
	}
	return set
}

func TestProperty_RoundTripNeedsNoRepair(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.IntN(15)
		ts, o := randomPartition(rng, n)
		built := Build(ts, o)

		repaired, err := ValidateAndRepair(built, n)
		require.NoError(t, err)
		assert.Equal(t, built, repaired)

		rendered, err := Render(built, ts.IndexMap())
		require.NoError(t, err)
		assert.Equal(t, RenderOrdered(o), rendered)
	}
}

func TestProperty_RepairClosesIndexSet(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for iter := 0; iter < 500; iter++ {
		n := rng.IntN(12)
		raw := randomPlan(rng, n)
		got, err := ValidateAndRepair(raw, n)
		require.NoError(t, err, "raw=%q", raw)

		want := map[string]bool{}
		for i := 0; i < n; i++ {
			want[strconv.Itoa(i)] = true
		}
		assert.Equal(t, want, indexTokens(got), "raw=%q got=%q", raw, got)
		assert.Contains(t, strings.Fields(got), Marker)
		_, err = Parse(got)
		assert.NoError(t, err, "raw=%q got=%q", raw, got)
	}
}

func TestProperty_RepairIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for iter := 0; iter < 500; iter++ {
		n := rng.IntN(12)
		once, err := ValidateAndRepair(randomPlan(rng, n), n)
		require.NoError(t, err)
		twice, err := ValidateAndRepair(once, n)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestProperty_RenderTotalAfterRepair(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	for iter := 0; iter < 500; iter++ {
		n := rng.IntN(12)
		ts, _ := randomPartition(rng, n)
		repaired, err := ValidateAndRepair(randomPlan(rng, n), n)
		require.NoError(t, err)
		_, err = Render(repaired, ts.IndexMap())
		assert.NoError(t, err, "plan=%q", repaired)
	}
}

// #endregion property-tests
