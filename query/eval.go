package query

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/vocabulary/catalog"
)

// checkEvery is how many evaluation steps pass between context checks.
const checkEvery = 256

// Binding maps variable names to terms. Entity references are bound as IRIs.
type Binding map[string]graph.Term

// Result is an ordered sequence of bindings over the projected variables.
type Result struct {
	Vars     []string
	Bindings []Binding
}

type evaluator struct {
	ctx   context.Context
	src   graph.Source
	steps int
}

// Evaluate runs q against src. It returns ctx.Err() when the context ends
// during evaluation.
func Evaluate(ctx context.Context, src graph.Source, q *Query) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e := &evaluator{ctx: ctx, src: src}

	solutions := []Binding{{}}
	for _, tp := range q.Patterns {
		var next []Binding
		for _, b := range solutions {
			if err := e.tick(); err != nil {
				return nil, err
			}
			var (
				ext []Binding
				err error
			)
			if tp.Path == PathOne {
				ext, err = e.matchEdge(tp, b)
			} else {
				ext, err = e.matchPath(tp, b)
			}
			if err != nil {
				return nil, err
			}
			next = append(next, ext...)
		}
		solutions = next
		if len(solutions) == 0 {
			break
		}
	}

	vars := q.Projection()
	if err := e.order(solutions, q.OrderBy, vars); err != nil {
		return nil, err
	}

	rows := make([]Binding, 0, len(solutions))
	seen := make(map[string]bool)
	for _, s := range solutions {
		row := make(Binding, len(vars))
		for _, v := range vars {
			if t, ok := s[v]; ok {
				row[v] = t
			}
		}
		if q.Distinct {
			key := rowKey(row, vars)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		rows = append(rows, row)
	}

	rows = window(rows, q.Offset, q.Limit)
	return &Result{Vars: vars, Bindings: rows}, nil
}

func (e *evaluator) tick() error {
	e.steps++
	if e.steps%checkEvery == 0 {
		return e.ctx.Err()
	}
	return nil
}

// resolve returns the concrete term for n under b, if any.
func resolve(n Node, b Binding) (graph.Term, bool) {
	if !n.IsVar() {
		return n.Term, true
	}
	t, ok := b[n.Var]
	return t, ok
}

// normalize binds entity references as IRIs.
func normalize(t graph.Term) graph.Term {
	if t.Kind == graph.TermRef {
		return graph.IRI(t.Value)
	}
	return t
}

func (e *evaluator) match(subject, predicate string, object *graph.Term) []graph.Statement {
	p := graph.Pattern{Subject: subject, Predicate: predicate}
	if object == nil {
		return e.src.Match(p)
	}
	if object.Kind != graph.TermIRI {
		p.Object = object
		return e.src.Match(p)
	}
	// A constant IRI matches both external IRIs and entity references.
	iri, ref := *object, graph.Ref(object.Value)
	p.Object = &iri
	out := e.src.Match(p)
	p.Object = &ref
	return append(out, e.src.Match(p)...)
}

func (e *evaluator) matchEdge(tp TriplePattern, b Binding) ([]Binding, error) {
	var subject, predicate string
	if t, ok := resolve(tp.Subject, b); ok {
		if t.Kind == graph.TermLiteral {
			return nil, nil
		}
		subject = t.Value
	}
	if t, ok := resolve(tp.Predicate, b); ok {
		if t.Kind == graph.TermLiteral {
			return nil, nil
		}
		predicate = t.Value
	}
	var object *graph.Term
	if t, ok := resolve(tp.Object, b); ok {
		object = &t
	}

	var out []Binding
	for _, st := range e.match(subject, predicate, object) {
		if err := e.tick(); err != nil {
			return nil, err
		}
		nb := clone(b)
		if bind(nb, tp.Subject, graph.IRI(st.Subject)) &&
			bind(nb, tp.Predicate, graph.IRI(st.Predicate)) &&
			bind(nb, tp.Object, normalize(st.Object)) {
			out = append(out, nb)
		}
	}
	return out, nil
}

func (e *evaluator) matchPath(tp TriplePattern, b Binding) ([]Binding, error) {
	predicate := tp.Predicate.Term.Value

	var starts []string
	if t, ok := resolve(tp.Subject, b); ok {
		if t.Kind == graph.TermLiteral {
			return nil, nil
		}
		starts = []string{t.Value}
	} else {
		starts = e.pathNodes(predicate, tp.Path == PathZeroOrMore)
	}

	target, bound := resolve(tp.Object, b)
	var out []Binding
	for _, start := range starts {
		reached, err := e.reach(start, predicate, tp.Path == PathZeroOrMore)
		if err != nil {
			return nil, err
		}
		for _, t := range reached {
			if bound && normalize(target) != t {
				continue
			}
			nb := clone(b)
			if bind(nb, tp.Subject, graph.IRI(start)) && bind(nb, tp.Object, t) {
				out = append(out, nb)
			}
		}
	}
	return out, nil
}

// pathNodes lists candidate start nodes for a path with an unbound subject:
// every subject of the predicate and, for zero-length paths, every resource
// object of it.
func (e *evaluator) pathNodes(predicate string, zero bool) []string {
	var nodes []string
	for _, st := range e.src.Match(graph.Pattern{Predicate: predicate}) {
		nodes = append(nodes, st.Subject)
		if zero && st.Object.IsResource() {
			nodes = append(nodes, st.Object.Value)
		}
	}
	slices.Sort(nodes)
	return slices.Compact(nodes)
}

// reach walks predicate edges breadth-first from start. Literal objects are
// reported but never expanded. Cycles are visited once.
func (e *evaluator) reach(start, predicate string, zero bool) ([]graph.Term, error) {
	var out []graph.Term
	visited := map[graph.Term]bool{}
	if zero {
		self := graph.IRI(start)
		visited[self] = true
		out = append(out, self)
	}

	queue := []string{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, st := range e.src.Match(graph.Pattern{Subject: node, Predicate: predicate}) {
			if err := e.tick(); err != nil {
				return nil, err
			}
			t := normalize(st.Object)
			if visited[t] {
				continue
			}
			visited[t] = true
			out = append(out, t)
			if t.Kind == graph.TermIRI {
				queue = append(queue, t.Value)
			}
		}
	}
	return out, nil
}

func clone(b Binding) Binding {
	nb := make(Binding, len(b)+2)
	for k, v := range b {
		nb[k] = v
	}
	return nb
}

// bind assigns t to a variable node, or checks consistency with an existing
// binding. Constant nodes always succeed.
func bind(b Binding, n Node, t graph.Term) bool {
	if !n.IsVar() {
		return true
	}
	if prev, ok := b[n.Var]; ok {
		return prev == t
	}
	b[n.Var] = t
	return true
}

func (e *evaluator) order(solutions []Binding, keys []OrderKey, vars []string) error {
	if err := e.ctx.Err(); err != nil {
		return err
	}
	slices.SortStableFunc(solutions, func(a, b Binding) int {
		for _, k := range keys {
			c := compareBound(a, b, k.Var)
			if k.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		for _, v := range vars {
			if c := compareBound(a, b, v); c != 0 {
				return c
			}
		}
		return 0
	})
	return e.ctx.Err()
}

// compareBound orders unbound before bound, then by compareTerms.
func compareBound(a, b Binding, v string) int {
	ta, oka := a[v]
	tb, okb := b[v]
	switch {
	case !oka && !okb:
		return 0
	case !oka:
		return -1
	case !okb:
		return 1
	}
	return compareTerms(ta, tb)
}

// compareTerms is a total order: kind, then datatype, then value. Within
// xsd:integer, parseable values sort numerically ahead of malformed ones.
func compareTerms(a, b graph.Term) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Datatype, b.Datatype); c != 0 {
		return c
	}
	if a.Kind == graph.TermLiteral && a.Datatype == catalog.XSDInteger {
		na, errA := strconv.ParseInt(a.Value, 10, 64)
		nb, errB := strconv.ParseInt(b.Value, 10, 64)
		switch {
		case errA == nil && errB == nil:
			if c := cmp.Compare(na, nb); c != 0 {
				return c
			}
		case errA == nil:
			return -1
		case errB == nil:
			return 1
		}
	}
	return cmp.Compare(a.Value, b.Value)
}

func rowKey(row Binding, vars []string) string {
	var sb strings.Builder
	for _, v := range vars {
		if t, ok := row[v]; ok {
			sb.WriteString(strconv.Itoa(int(t.Kind)))
			sb.WriteString(t.Value)
			sb.WriteByte(0)
			sb.WriteString(t.Datatype)
		}
		sb.WriteByte(1)
	}
	return sb.String()
}

func window(rows []Binding, offset, limit int) []Binding {
	if offset >= len(rows) {
		return []Binding{}
	}
	rows = rows[offset:]
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
