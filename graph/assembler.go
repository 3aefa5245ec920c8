package graph

import (
	"log/slog"

	"github.com/c360studio/semcat/vocabulary/catalog"
)

// Assembler merges statement sets into validated graphs.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

// Assemble unions and deduplicates the sets, then validates the result:
// every entity reference must resolve to a subject of the same graph, and
// every dataset needs a title and at least one distribution.
func (a *Assembler) Assemble(sets ...[]Statement) (*Graph, error) {
	g := New(sets...)
	if err := Validate(g); err != nil {
		a.logger.Debug("Graph validation failed", "statements", g.Len(), "error", err)
		return nil, err
	}
	return g, nil
}

// Validate checks referential closure and dataset cardinality. Violations
// are reported in statement order so the same graph always yields the same
// error.
func Validate(g *Graph) error {
	for _, s := range g.stmts {
		if s.Object.Kind == TermRef && !g.HasSubject(s.Object.Value) {
			return &DanglingReferenceError{Subject: s.Subject, Predicate: s.Predicate, Missing: s.Object.Value}
		}
	}

	datasetType := IRI(catalog.ClassDataset)
	for _, st := range g.Match(Pattern{Predicate: catalog.RDFType, Object: &datasetType}) {
		var missing []string
		if len(g.Objects(st.Subject, catalog.PropTitle)) == 0 {
			missing = append(missing, catalog.PropTitle)
		}
		if len(g.Objects(st.Subject, catalog.PropDistribution)) == 0 {
			missing = append(missing, catalog.PropDistribution)
		}
		if len(missing) > 0 {
			return &IncompleteEntityError{Subject: st.Subject, Missing: missing}
		}
	}
	return nil
}
