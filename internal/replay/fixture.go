package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/flownlg/internal/triple"
)

// Expected error kinds in a fixture case.
const (
	ErrKindMalformed     = "malformed"
	ErrKindUnknownSymbol = "unknown_symbol"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string        `json:"description"`
	Cases       []FixtureCase `json:"cases"`
}

// FixtureCase is one recorded planner output with the outcome it must
// reproduce. ExpectError is empty, "malformed" or "unknown_symbol".
type FixtureCase struct {
	ID               string           `json:"id"`
	EID              string           `json:"eid,omitempty"`
	Triples          triple.TripleSet `json:"triples"`
	RawPlan          string           `json:"raw_plan"`
	ExpectedPlan     string           `json:"expected_plan,omitempty"`
	ExpectedTemplate string           `json:"expected_template,omitempty"`
	ExpectError      string           `json:"expect_error,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(f *Fixture, path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader
