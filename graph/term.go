// Package graph holds catalog statements, immutable statement graphs and the
// assembler that validates them.
package graph

import (
	"strconv"
	"strings"

	"github.com/c360studio/semcat/vocabulary/catalog"
)

// TermKind discriminates statement objects.
type TermKind uint8

// Term kinds, in sort order.
const (
	// TermIRI is a vocabulary or external resource IRI.
	TermIRI TermKind = iota
	// TermRef is the identifier of another catalog entity. References must
	// resolve within the graph.
	TermRef
	// TermLiteral is a typed literal.
	TermLiteral
)

func (k TermKind) String() string {
	switch k {
	case TermIRI:
		return "iri"
	case TermRef:
		return "ref"
	default:
		return "literal"
	}
}

// Term is a statement object.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
}

// IRI returns an IRI term.
func IRI(iri string) Term { return Term{Kind: TermIRI, Value: iri} }

// Ref returns an entity reference term.
func Ref(id string) Term { return Term{Kind: TermRef, Value: id} }

// Literal returns a typed literal. An empty datatype means xsd:string.
func Literal(value, datatype string) Term {
	if datatype == "" {
		datatype = catalog.XSDString
	}
	return Term{Kind: TermLiteral, Value: value, Datatype: datatype}
}

// String returns an xsd:string literal.
func String(value string) Term { return Literal(value, catalog.XSDString) }

// Integer returns an xsd:integer literal.
func Integer(n int64) Term { return Literal(strconv.FormatInt(n, 10), catalog.XSDInteger) }

// Date returns an xsd:date literal. The value must already be YYYY-MM-DD.
func Date(value string) Term { return Literal(value, catalog.XSDDate) }

// IsResource reports whether the term names a resource rather than a value.
func (t Term) IsResource() bool { return t.Kind != TermLiteral }

// Compare orders terms by kind, datatype and lexical value.
func (t Term) Compare(o Term) int {
	if t.Kind != o.Kind {
		if t.Kind < o.Kind {
			return -1
		}
		return 1
	}
	if c := strings.Compare(t.Datatype, o.Datatype); c != 0 {
		return c
	}
	return strings.Compare(t.Value, o.Value)
}

// Statement is one (subject, predicate, object) triple.
type Statement struct {
	Subject   string
	Predicate string
	Object    Term
}

// Compare is the total order used for storage and export.
func (s Statement) Compare(o Statement) int {
	if c := strings.Compare(s.Subject, o.Subject); c != 0 {
		return c
	}
	if c := strings.Compare(s.Predicate, o.Predicate); c != 0 {
		return c
	}
	return s.Object.Compare(o.Object)
}

// Compare is the function form of Statement.Compare for slices.SortFunc.
func Compare(a, b Statement) int { return a.Compare(b) }
