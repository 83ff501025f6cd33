package plan

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/danielpatrickdp/flownlg/internal/triple"
)

// #region render
// Render expands a validated plan into a realizer template. Whitespace is
// copied as is, each marker becomes SentenceToken and each index becomes the
// canonical text of its triple.
func Render(p string, index triple.IndexMap) (string, error) {
	var b strings.Builder
	for i := 0; i < len(p); {
		r, size := utf8.DecodeRuneInString(p[i:])
		switch {
		case unicode.IsSpace(r):
			b.WriteString(p[i : i+size])
			i += size
		case r == 'S':
			b.WriteString(SentenceToken)
			i += size
		case r < utf8.RuneSelf && isDigit(byte(r)):
			j := i
			for j < len(p) && isDigit(p[j]) {
				j++
			}
			tok := p[i:j]
			idx, err := strconv.Atoi(tok)
			text, ok := index[idx]
			if err != nil || !ok {
				return "", &UnknownPlanSymbolError{Symbol: tok}
			}
			b.WriteString(text)
			i = j
		default:
			j := i
			for j < len(p) {
				r, size := utf8.DecodeRuneInString(p[j:])
				if unicode.IsSpace(r) {
					break
				}
				j += size
			}
			return "", &UnknownPlanSymbolError{Symbol: p[i:j]}
		}
	}
	return b.String(), nil
}

// RenderOrdered renders a sentence grouping directly, without a plan. For a
// true partition of ts, Render(Build(ts, o), ts.IndexMap()) equals
// RenderOrdered(o).
func RenderOrdered(o triple.OrderedTripleSet) string {
	sents := make([]string, len(o))
	for i, sent := range o {
		sents[i] = SentenceToken + " " + triple.TripleSet(sent).String()
	}
	return strings.Join(sents, " ")
}

// #endregion render
