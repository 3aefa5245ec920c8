package export

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/c360studio/semcat/graph"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestExportDeterminism verifies export is independent of statement order.
// Property: Export(New(shuffle(stmts))) == Export(New(stmts))
func TestExportDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	e := NewExporter("2024.1")

	properties.Property("export is byte-identical under any input order", prop.ForAll(
		func(subjects []string, values []string, seed int64) bool {
			var stmts []graph.Statement
			for i := 0; i < len(subjects) && i < len(values); i++ {
				subject := "https://x/" + subjects[i]
				stmts = append(stmts,
					graph.Statement{Subject: subject, Predicate: "https://p/title", Object: graph.String(values[i])},
					graph.Statement{Subject: subject, Predicate: "https://p/size", Object: graph.Integer(int64(len(values[i])))},
				)
			}

			shuffled := append([]graph.Statement(nil), stmts...)
			rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})

			for _, format := range []Format{FormatNTriples, FormatTurtle, FormatJSONLD} {
				a, err1 := e.Export(graph.New(stmts), format)
				b, err2 := e.Export(graph.New(shuffled), format)
				if err1 != nil || err2 != nil {
					return false
				}
				if !bytes.Equal(a, b) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.AlphaString()),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
