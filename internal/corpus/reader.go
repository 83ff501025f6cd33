package corpus

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/flownlg/internal/triple"
)

// #region xml-types
type xmlBenchmark struct {
	Entries []xmlEntry `xml:"entries>entry"`
}

type xmlEntry struct {
	EID       string               `xml:"eid,attr"`
	Size      string               `xml:"size,attr"`
	Category  string               `xml:"category,attr"`
	Original  []xmlOriginalTriples `xml:"originaltripleset"`
	Modified  []xmlModifiedTriples `xml:"modifiedtripleset"`
	EntityMap []string             `xml:"entitymap>entity"`
	Lexes     []xmlLex             `xml:"lex"`
}

type xmlOriginalTriples struct {
	Triples []string `xml:"otriple"`
}

type xmlModifiedTriples struct {
	Triples []string `xml:"mtriple"`
}

type xmlLex struct {
	Comment    string         `xml:"comment,attr"`
	LID        string         `xml:"lid,attr"`
	Sentences  []xmlSentence  `xml:"sortedtripleset>sentence"`
	References []xmlReference `xml:"references>reference"`
	Text       string         `xml:"text"`
	Template   string         `xml:"template"`
}

type xmlSentence struct {
	Triples []string `xml:"striple"`
}

type xmlReference struct {
	Tag    string `xml:"tag,attr"`
	Entity string `xml:"entity,attr"`
	Number string `xml:"number,attr"`
	Type   string `xml:"type,attr"`
	Refex  string `xml:",chardata"`
}

// #endregion xml-types

// #region read-dir
// ReadDir walks root/<size-dir>/<category-file> and parses every file.
// Names starting with a dot are skipped at both levels.
func ReadDir(root string) ([]Entry, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read corpus root %s: %w", root, err)
	}

	var entries []Entry
	for _, d := range dirs {
		if hidden(d.Name()) || !d.IsDir() {
			continue
		}
		dirPath := filepath.Join(root, d.Name())
		files, err := os.ReadDir(dirPath)
		if err != nil {
			return nil, fmt.Errorf("read corpus dir %s: %w", dirPath, err)
		}
		for _, f := range files {
			if hidden(f.Name()) || f.IsDir() {
				continue
			}
			parsed, err := ReadFile(filepath.Join(dirPath, f.Name()))
			if err != nil {
				return nil, err
			}
			entries = append(entries, parsed...)
		}
	}
	return entries, nil
}

// ReadFile parses one corpus XML file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// #endregion read-dir

// #region parse
// Parse decodes a benchmark document. Missing optional elements (sorted
// triple set, references, text, template) decode to empty values.
func Parse(r io.Reader) ([]Entry, error) {
	var doc xmlBenchmark
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Entries))
	for _, xe := range doc.Entries {
		e, err := convertEntry(xe)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", xe.EID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func convertEntry(xe xmlEntry) (Entry, error) {
	size, err := strconv.Atoi(strings.TrimSpace(xe.Size))
	if err != nil {
		return Entry{}, fmt.Errorf("size %q: %w", xe.Size, err)
	}
	e := Entry{Category: xe.Category, EID: xe.EID, Size: size}

	// Only the first set of each kind is read; later repeats are ignored.
	var original, modified []string
	if len(xe.Original) > 0 {
		original = xe.Original[0].Triples
	}
	if len(xe.Modified) > 0 {
		modified = xe.Modified[0].Triples
	}
	if e.OriginalTripleSet, err = parseTriples(original); err != nil {
		return Entry{}, fmt.Errorf("originaltripleset: %w", err)
	}
	if e.ModifiedTripleSet, err = parseTriples(modified); err != nil {
		return Entry{}, fmt.Errorf("modifiedtripleset: %w", err)
	}

	for _, raw := range xe.EntityMap {
		tag, entity, ok := strings.Cut(strings.TrimSpace(raw), " | ")
		if !ok {
			return Entry{}, fmt.Errorf("entitymap %q: expected 'TAG | entity'", raw)
		}
		e.EntityMap = append(e.EntityMap, TagEntity{Tag: tag, Entity: entity})
	}

	for _, xl := range xe.Lexes {
		lex := Lex{
			Comment:  xl.Comment,
			LID:      xl.LID,
			Text:     strings.TrimSpace(xl.Text),
			Template: strings.TrimSpace(xl.Template),
			Ordered:  triple.OrderedTripleSet{},
		}
		for _, sent := range xl.Sentences {
			ts, err := parseTriples(sent.Triples)
			if err != nil {
				return Entry{}, fmt.Errorf("lex %s sortedtripleset: %w", xl.LID, err)
			}
			lex.Ordered = append(lex.Ordered, []triple.Triple(ts))
		}
		for _, ref := range xl.References {
			lex.References = append(lex.References, Reference{
				Tag:     ref.Tag,
				Entity:  ref.Entity,
				Refex:   strings.TrimSpace(ref.Refex),
				Number:  ref.Number,
				RefType: ref.Type,
			})
		}
		e.Lexes = append(e.Lexes, lex)
	}
	return e, nil
}

// #endregion parse

// #region triples
// ParseTriple reads "subject | predicate | object". Single quotes are
// removed from subject and object.
func ParseTriple(raw string) (triple.Triple, error) {
	parts := strings.Split(strings.TrimSpace(raw), " | ")
	if len(parts) != 3 {
		return triple.Triple{}, fmt.Errorf("triple %q: expected 3 fields, got %d", raw, len(parts))
	}
	return triple.Triple{
		Subject:   strings.ReplaceAll(parts[0], "'", ""),
		Predicate: parts[1],
		Object:    strings.ReplaceAll(parts[2], "'", ""),
	}, nil
}

func parseTriples(raws []string) (triple.TripleSet, error) {
	ts := make(triple.TripleSet, 0, len(raws))
	for _, raw := range raws {
		t, err := ParseTriple(raw)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	return ts, nil
}

// #endregion triples
