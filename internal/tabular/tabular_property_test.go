//go:build property
// +build property

package tabular

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestQuotingRoundTrip verifies that serializing a record with the parser's
// own quoting rule and re-parsing yields identical field values, including
// values containing the delimiter, quote characters, and newlines.
func TestQuotingRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("encode/parse round trip preserves values", prop.ForAll(
		func(a, b, c string) bool {
			table := &Table{
				Header: []string{"A", "B", "C"},
				Records: []Record{
					{"A": a, "B": b, "C": c},
				},
			}

			reparsed, err := Parse(table.Serialize())
			if err != nil {
				return false
			}
			if len(reparsed.Records) != 1 {
				return false
			}

			record := reparsed.Records[0]
			return record["A"] == a && record["B"] == b && record["C"] == c
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("deck length equals non-blank data rows", prop.ForAll(
		func(values []string) bool {
			table := &Table{Header: []string{"Name"}}
			expected := 0
			for _, v := range values {
				// A lone empty field serializes to a blank line, which the
				// parser skips by contract.
				if strings.TrimSpace(v) == "" {
					continue
				}
				table.Records = append(table.Records, Record{"Name": v})
				expected++
			}

			reparsed, err := Parse(table.Serialize())
			if err != nil {
				return false
			}
			return len(reparsed.Records) == expected
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
