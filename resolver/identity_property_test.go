package resolver

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDatasetIDStability verifies identifiers depend only on the normalized key.
// Property: DatasetID(p, s) == DatasetID(pad(upper(p)), pad(upper(s)))
func TestDatasetIDStability(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	r1 := New(Config{})
	r2 := New(Config{})

	properties.Property("dataset id is stable under case and padding", prop.ForAll(
		func(patient, study string) bool {
			a := r1.DatasetID(patient, study)
			b := r2.DatasetID("  "+strings.ToUpper(patient)+"\t", strings.ToUpper(study)+" ")
			return a == b
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("distinct keys give distinct ids", prop.ForAll(
		func(patient, study, other string) bool {
			if Normalize(study) == Normalize(other) {
				return true
			}
			return r1.DatasetID(patient, study) != r1.DatasetID(patient, other)
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("distribution id is derived from parent and series", prop.ForAll(
		func(patient, study, series string) bool {
			ds := r1.DatasetID(patient, study)
			return r1.DistributionID(ds, series) == r2.DistributionID(ds, strings.ToUpper(series))
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
