package api

import (
	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/vocabulary/catalog"
)

// Results is a SPARQL 1.1 JSON results document.
type Results struct {
	Head    ResultsHead `json:"head"`
	Results ResultsBody `json:"results"`
}

// ResultsHead lists the projected variables.
type ResultsHead struct {
	Vars []string `json:"vars"`
}

// ResultsBody holds the solution sequence.
type ResultsBody struct {
	Bindings []map[string]RDFTerm `json:"bindings"`
}

// RDFTerm is one bound value.
type RDFTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
}

// NewResults converts a query result. Unbound variables are omitted from
// their solution; plain strings carry no datatype.
func NewResults(res *query.Result) Results {
	out := Results{
		Head:    ResultsHead{Vars: res.Vars},
		Results: ResultsBody{Bindings: make([]map[string]RDFTerm, 0, len(res.Bindings))},
	}
	if out.Head.Vars == nil {
		out.Head.Vars = []string{}
	}
	for _, b := range res.Bindings {
		row := make(map[string]RDFTerm, len(b))
		for v, t := range b {
			row[v] = toRDFTerm(t)
		}
		out.Results.Bindings = append(out.Results.Bindings, row)
	}
	return out
}

func toRDFTerm(t graph.Term) RDFTerm {
	if t.IsResource() {
		return RDFTerm{Type: "uri", Value: t.Value}
	}
	term := RDFTerm{Type: "literal", Value: t.Value}
	if t.Datatype != catalog.XSDString {
		term.Datatype = t.Datatype
	}
	return term
}
