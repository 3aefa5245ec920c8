package graph

import (
	"slices"
)

// Graph is an immutable, deduplicated and sorted set of statements.
type Graph struct {
	stmts       []Statement
	bySubject   map[string][]int
	byPredicate map[string][]int
	byObject    map[Term][]int
}

// New builds a graph from statements in any order.
func New(stmts ...[]Statement) *Graph {
	n := 0
	for _, set := range stmts {
		n += len(set)
	}
	all := make([]Statement, 0, n)
	for _, set := range stmts {
		all = append(all, set...)
	}
	slices.SortFunc(all, Compare)
	all = slices.CompactFunc(all, func(a, b Statement) bool { return a == b })

	g := &Graph{
		stmts:       all,
		bySubject:   make(map[string][]int),
		byPredicate: make(map[string][]int),
		byObject:    make(map[Term][]int),
	}
	for i, s := range all {
		g.bySubject[s.Subject] = append(g.bySubject[s.Subject], i)
		g.byPredicate[s.Predicate] = append(g.byPredicate[s.Predicate], i)
		g.byObject[s.Object] = append(g.byObject[s.Object], i)
	}
	return g
}

// Empty returns a graph with no statements.
func Empty() *Graph { return New() }

// Len returns the number of statements.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.stmts)
}

// Statements returns the statements in total order.
func (g *Graph) Statements() []Statement {
	if g == nil {
		return nil
	}
	return slices.Clone(g.stmts)
}

// Overlay returns base with every statement about a subject of incoming
// replaced by incoming's statements. Subjects incoming does not mention keep
// their statements.
func Overlay(base, incoming *Graph) *Graph {
	if base.Len() == 0 {
		return incoming
	}
	kept := make([]Statement, 0, len(base.stmts))
	for _, s := range base.stmts {
		if !incoming.HasSubject(s.Subject) {
			kept = append(kept, s)
		}
	}
	return New(kept, incoming.Statements())
}

// Subjects returns the distinct subjects in order.
func (g *Graph) Subjects() []string {
	if g == nil {
		return nil
	}
	out := make([]string, 0, len(g.bySubject))
	for s := range g.bySubject {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// HasSubject reports whether s appears as a subject.
func (g *Graph) HasSubject(s string) bool {
	if g == nil {
		return false
	}
	_, ok := g.bySubject[s]
	return ok
}

// Objects returns the objects of (subject, predicate) in order.
func (g *Graph) Objects(subject, predicate string) []Term {
	var out []Term
	for _, st := range g.Match(Pattern{Subject: subject, Predicate: predicate}) {
		out = append(out, st.Object)
	}
	return out
}

// Pattern selects statements. Empty fields and a nil object match anything.
type Pattern struct {
	Subject   string
	Predicate string
	Object    *Term
}

// Source is anything that answers statement patterns in total order.
type Source interface {
	Match(p Pattern) []Statement
}

// Match returns the statements selected by p in total order.
func (g *Graph) Match(p Pattern) []Statement {
	if g == nil {
		return nil
	}

	// Pick the narrowest index available.
	var candidates []int
	indexed := false
	narrow := func(idx []int) {
		if !indexed || len(idx) < len(candidates) {
			candidates = idx
		}
		indexed = true
	}
	if p.Subject != "" {
		narrow(g.bySubject[p.Subject])
	}
	if p.Predicate != "" {
		narrow(g.byPredicate[p.Predicate])
	}
	if p.Object != nil {
		narrow(g.byObject[*p.Object])
	}

	var out []Statement
	if !indexed {
		return slices.Clone(g.stmts)
	}
	for _, i := range candidates {
		if s := g.stmts[i]; p.matches(s) {
			out = append(out, s)
		}
	}
	return out
}

func (p Pattern) matches(s Statement) bool {
	if p.Subject != "" && s.Subject != p.Subject {
		return false
	}
	if p.Predicate != "" && s.Predicate != p.Predicate {
		return false
	}
	if p.Object != nil && s.Object != *p.Object {
		return false
	}
	return true
}

// View answers patterns over several graphs as if they were one.
type View []*Graph

// Match merges the matches of every graph, in total order without duplicates.
func (v View) Match(p Pattern) []Statement {
	var out []Statement
	for _, g := range v {
		out = append(out, g.Match(p)...)
	}
	if len(v) > 1 {
		slices.SortFunc(out, Compare)
		out = slices.CompactFunc(out, func(a, b Statement) bool { return a == b })
	}
	return out
}

// Graph flattens the view into a single graph.
func (v View) Graph() *Graph {
	sets := make([][]Statement, 0, len(v))
	for _, g := range v {
		if g != nil {
			sets = append(sets, g.stmts)
		}
	}
	return New(sets...)
}

var (
	_ Source = (*Graph)(nil)
	_ Source = View(nil)
)
