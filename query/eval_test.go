package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/vocabulary/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ex = "http://example.org/"

func sampleGraph() *graph.Graph {
	return graph.New([]graph.Statement{
		{Subject: ex + "ds1", Predicate: catalog.RDFType, Object: graph.IRI(catalog.ClassDataset)},
		{Subject: ex + "ds1", Predicate: catalog.PropTitle, Object: graph.String("Chest CT")},
		{Subject: ex + "ds1", Predicate: catalog.PropDistribution, Object: graph.Ref(ex + "d1")},
		{Subject: ex + "ds1", Predicate: catalog.PropDistribution, Object: graph.Ref(ex + "d2")},
		{Subject: ex + "d1", Predicate: catalog.PropHasModality, Object: graph.String("CT")},
		{Subject: ex + "d1", Predicate: catalog.PropByteSize, Object: graph.Integer(900)},
		{Subject: ex + "d2", Predicate: catalog.PropHasModality, Object: graph.String("MR")},
		{Subject: ex + "d2", Predicate: catalog.PropByteSize, Object: graph.Integer(80)},
		{Subject: ex + "ds2", Predicate: catalog.RDFType, Object: graph.IRI(catalog.ClassDataset)},
		{Subject: ex + "ds2", Predicate: catalog.PropTitle, Object: graph.String("Brain MR")},
		{Subject: ex + "ds2", Predicate: catalog.PropDistribution, Object: graph.Ref(ex + "d3")},
		{Subject: ex + "d3", Predicate: catalog.PropHasModality, Object: graph.String("MR")},
		{Subject: ex + "d3", Predicate: catalog.PropByteSize, Object: graph.Integer(1000)},
	})
}

func run(t *testing.T, src graph.Source, text string) *Result {
	t.Helper()
	q, err := Parse(text)
	require.NoError(t, err)
	res, err := Evaluate(context.Background(), src, q)
	require.NoError(t, err)
	return res
}

func column(res *Result, v string) []string {
	out := make([]string, 0, len(res.Bindings))
	for _, b := range res.Bindings {
		out = append(out, b[v].Value)
	}
	return out
}

func TestEvaluate_Join(t *testing.T) {
	res := run(t, sampleGraph(), `
		SELECT ?title WHERE {
			?ds a dcat:Dataset ; dct:title ?title ; dcat:distribution ?d .
			?d roo:hasModality "MR" .
		}`)
	assert.Equal(t, []string{"title"}, res.Vars)
	assert.Equal(t, []string{"Brain MR", "Chest CT"}, column(res, "title"))
}

func TestEvaluate_ReferenceMatchesIRI(t *testing.T) {
	res := run(t, sampleGraph(), `SELECT ?ds WHERE { ?ds dcat:distribution <http://example.org/d3> }`)
	assert.Equal(t, []string{ex + "ds2"}, column(res, "ds"))
	assert.Equal(t, graph.TermIRI, res.Bindings[0]["ds"].Kind)

	res = run(t, sampleGraph(), `SELECT ?d WHERE { <http://example.org/ds1> dcat:distribution ?d }`)
	assert.Equal(t, []string{ex + "d1", ex + "d2"}, column(res, "d"))
	assert.Equal(t, graph.TermIRI, res.Bindings[0]["d"].Kind)
}

func TestEvaluate_NoMatchIsEmpty(t *testing.T) {
	res := run(t, sampleGraph(), `SELECT ?ds WHERE { ?ds roo:hasModality "PT" }`)
	assert.Empty(t, res.Bindings)
	assert.NotNil(t, res.Bindings)
}

func TestEvaluate_Distinct(t *testing.T) {
	res := run(t, sampleGraph(), `SELECT DISTINCT ?m WHERE { ?d roo:hasModality ?m }`)
	assert.Equal(t, []string{"CT", "MR"}, column(res, "m"))

	res = run(t, sampleGraph(), `SELECT ?m WHERE { ?d roo:hasModality ?m }`)
	assert.Equal(t, []string{"CT", "MR", "MR"}, column(res, "m"))
}

func TestEvaluate_OrderLimitOffset(t *testing.T) {
	res := run(t, sampleGraph(), `SELECT ?d ?size WHERE { ?d dcat:byteSize ?size } ORDER BY DESC(?size)`)
	assert.Equal(t, []string{"1000", "900", "80"}, column(res, "size"))

	res = run(t, sampleGraph(), `SELECT ?d WHERE { ?d dcat:byteSize ?size } ORDER BY ?size LIMIT 2 OFFSET 1`)
	assert.Equal(t, []string{ex + "d1", ex + "d3"}, column(res, "d"))

	res = run(t, sampleGraph(), `SELECT ?d WHERE { ?d dcat:byteSize ?size } OFFSET 10`)
	assert.Empty(t, res.Bindings)
}

func TestEvaluate_OrderMixedDatatypes(t *testing.T) {
	g := graph.New([]graph.Statement{
		{Subject: ex + "a", Predicate: ex + "v", Object: graph.Integer(10)},
		{Subject: ex + "b", Predicate: ex + "v", Object: graph.String("5")},
		{Subject: ex + "c", Predicate: ex + "v", Object: graph.Integer(9)},
		{Subject: ex + "d", Predicate: ex + "v", Object: graph.String("100")},
		{Subject: ex + "e", Predicate: ex + "v", Object: graph.Literal("n/a", catalog.XSDInteger)},
	})

	res := run(t, g, `SELECT ?s WHERE { ?s <http://example.org/v> ?v } ORDER BY ?v`)
	// Integers first (numeric, malformed last), then strings (lexical).
	assert.Equal(t, []string{ex + "c", ex + "a", ex + "e", ex + "d", ex + "b"}, column(res, "s"))
}

func TestCompareTerms_Transitive(t *testing.T) {
	terms := []graph.Term{
		graph.Integer(10), graph.Integer(9), graph.Integer(-3),
		graph.String("5"), graph.String("100"), graph.String("abc"),
		graph.Literal("x", catalog.XSDInteger), graph.Date("2024-01-01"),
		graph.IRI(ex + "z"),
	}
	for _, a := range terms {
		assert.Zero(t, compareTerms(a, a))
		for _, b := range terms {
			assert.Equal(t, -compareTerms(a, b), compareTerms(b, a), "antisymmetry %v %v", a, b)
			for _, c := range terms {
				if compareTerms(a, b) < 0 && compareTerms(b, c) < 0 {
					assert.Negative(t, compareTerms(a, c), "transitivity %v < %v < %v", a, b, c)
				}
			}
		}
	}
}

func TestEvaluate_SharedVariable(t *testing.T) {
	g := graph.New([]graph.Statement{
		{Subject: ex + "a", Predicate: ex + "p", Object: graph.IRI(ex + "a")},
		{Subject: ex + "a", Predicate: ex + "p", Object: graph.IRI(ex + "b")},
	})
	res := run(t, g, `SELECT ?x WHERE { ?x <http://example.org/p> ?x }`)
	assert.Equal(t, []string{ex + "a"}, column(res, "x"))
}

func chain(n int) *graph.Graph {
	stmts := make([]graph.Statement, 0, n)
	for i := 0; i < n; i++ {
		stmts = append(stmts, graph.Statement{
			Subject:   fmt.Sprintf("%sn%05d", ex, i),
			Predicate: ex + "next",
			Object:    graph.IRI(fmt.Sprintf("%sn%05d", ex, i+1)),
		})
	}
	return graph.New(stmts)
}

func TestEvaluate_TransitivePath(t *testing.T) {
	g := chain(3)
	res := run(t, g, `SELECT ?o WHERE { <http://example.org/n00000> <http://example.org/next>+ ?o }`)
	assert.Equal(t, []string{ex + "n00001", ex + "n00002", ex + "n00003"}, column(res, "o"))

	res = run(t, g, `SELECT ?o WHERE { <http://example.org/n00001> <http://example.org/next>* ?o }`)
	assert.Equal(t, []string{ex + "n00001", ex + "n00002", ex + "n00003"}, column(res, "o"))

	res = run(t, g, `SELECT ?s WHERE { ?s <http://example.org/next>+ <http://example.org/n00002> }`)
	assert.Equal(t, []string{ex + "n00000", ex + "n00001"}, column(res, "s"))
}

func TestEvaluate_PathCycle(t *testing.T) {
	g := graph.New([]graph.Statement{
		{Subject: ex + "a", Predicate: ex + "p", Object: graph.IRI(ex + "b")},
		{Subject: ex + "b", Predicate: ex + "p", Object: graph.IRI(ex + "a")},
	})
	res := run(t, g, `SELECT ?o WHERE { <http://example.org/a> <http://example.org/p>+ ?o }`)
	assert.Equal(t, []string{ex + "a", ex + "b"}, column(res, "o"))
}

func TestEvaluate_CancelledContext(t *testing.T) {
	q, err := Parse(`SELECT ?s ?o WHERE { ?s <http://example.org/next>* ?o }`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Evaluate(ctx, chain(2000), q)
	assert.ErrorIs(t, err, context.Canceled)
}
