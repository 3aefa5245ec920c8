package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/vocabulary/catalog"
)

// PathModifier marks a transitive predicate path.
type PathModifier uint8

const (
	// PathOne matches exactly one edge.
	PathOne PathModifier = iota
	// PathOneOrMore is pred+.
	PathOneOrMore
	// PathZeroOrMore is pred*.
	PathZeroOrMore
)

// Node is a variable or a constant term in a triple pattern.
type Node struct {
	Var  string
	Term graph.Term
}

// IsVar reports whether the node is a variable.
func (n Node) IsVar() bool { return n.Var != "" }

func (n Node) String() string {
	if n.IsVar() {
		return "?" + n.Var
	}
	return n.Term.Value
}

// TriplePattern is one subject-predicate-object pattern.
type TriplePattern struct {
	Subject   Node
	Predicate Node
	Path      PathModifier
	Object    Node
}

// OrderKey is one ORDER BY condition.
type OrderKey struct {
	Var        string
	Descending bool
}

// Query is a parsed graph-pattern query.
type Query struct {
	Distinct bool
	// Vars lists projected variables; empty means SELECT *.
	Vars     []string
	Patterns []TriplePattern
	OrderBy  []OrderKey
	// Limit is -1 when absent.
	Limit  int
	Offset int
}

// Projection returns the projected variables, expanding SELECT * to every
// variable of the WHERE clause in order of first appearance.
func (q *Query) Projection() []string {
	if len(q.Vars) > 0 {
		return q.Vars
	}
	var out []string
	seen := map[string]bool{}
	add := func(n Node) {
		if n.IsVar() && !seen[n.Var] {
			seen[n.Var] = true
			out = append(out, n.Var)
		}
	}
	for _, p := range q.Patterns {
		add(p.Subject)
		add(p.Predicate)
		add(p.Object)
	}
	return out
}

type parser struct {
	toks     []token
	pos      int
	prefixes map[string]string
}

// Parse parses a query. Prefixes declared by the catalog vocabulary are
// available without PREFIX declarations; explicit declarations override them.
func Parse(text string) (*Query, error) {
	return ParseWithPrefixes(text, catalog.Prefixes())
}

// ParseWithPrefixes parses a query with the given predeclared prefixes.
func ParseWithPrefixes(text string, prefixes map[string]string) (*Query, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, prefixes: make(map[string]string, len(prefixes))}
	for k, v := range prefixes {
		p.prefixes[k] = v
	}
	return p.parse()
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	t := p.cur()
	return &MalformedQueryError{Line: t.line, Column: t.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokKeyword && strings.EqualFold(t.text, kw)
}

func (p *parser) isPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return p.errorf("expected %s", kw)
	}
	p.advance()
	return nil
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errorf("expected %q", s)
	}
	p.advance()
	return nil
}

func (p *parser) parse() (*Query, error) {
	q := &Query{Limit: -1}

	for p.isKeyword("PREFIX") {
		p.advance()
		name := p.advance()
		if name.kind != tokPName || !strings.HasSuffix(name.text, ":") {
			return nil, p.errorf("expected prefix name")
		}
		iri := p.advance()
		if iri.kind != tokIRI {
			return nil, p.errorf("expected IRI for prefix %s", name.text)
		}
		p.prefixes[strings.TrimSuffix(name.text, ":")] = iri.text
	}

	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	if p.isKeyword("DISTINCT") {
		p.advance()
		q.Distinct = true
	}
	if p.isPunct("*") {
		p.advance()
	} else {
		for p.cur().kind == tokVar {
			q.Vars = append(q.Vars, p.advance().text)
		}
		if len(q.Vars) == 0 {
			return nil, p.errorf("expected variables or * after SELECT")
		}
	}

	if p.isKeyword("WHERE") {
		p.advance()
	}
	if err := p.parseGroup(q); err != nil {
		return nil, err
	}
	if err := p.parseModifiers(q); err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, p.errorf("unexpected %q after query", p.cur().text)
	}
	return q, nil
}

func (p *parser) parseGroup(q *Query) error {
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	for !p.isPunct("}") {
		if p.cur().kind == tokEOF {
			return p.errorf("unterminated group")
		}
		subject, err := p.parseNode(false)
		if err != nil {
			return err
		}
		if err := p.parsePredicateObjects(q, subject); err != nil {
			return err
		}
		if p.isPunct(".") {
			p.advance()
		} else if !p.isPunct("}") {
			return p.errorf("expected '.' or '}'")
		}
	}
	p.advance()
	if len(q.Patterns) == 0 {
		return p.errorf("empty group pattern")
	}
	return nil
}

func (p *parser) parsePredicateObjects(q *Query, subject Node) error {
	for {
		predicate, path, err := p.parsePredicate()
		if err != nil {
			return err
		}
		for {
			object, err := p.parseNode(true)
			if err != nil {
				return err
			}
			q.Patterns = append(q.Patterns, TriplePattern{
				Subject: subject, Predicate: predicate, Path: path, Object: object,
			})
			if !p.isPunct(",") {
				break
			}
			p.advance()
		}
		if !p.isPunct(";") {
			return nil
		}
		p.advance()
		// A trailing ';' before '.' or '}' is allowed.
		if p.isPunct(".") || p.isPunct("}") {
			return nil
		}
	}
}

func (p *parser) parsePredicate() (Node, PathModifier, error) {
	var n Node
	if p.isKeyword("a") {
		p.advance()
		n = Node{Term: graph.IRI(catalog.RDFType)}
	} else {
		var err error
		n, err = p.parseNode(false)
		if err != nil {
			return n, PathOne, err
		}
	}

	path := PathOne
	switch {
	case p.isPunct("+"):
		path = PathOneOrMore
	case p.isPunct("*"):
		path = PathZeroOrMore
	}
	if path != PathOne {
		if n.IsVar() {
			return n, path, p.errorf("path modifier on variable predicate")
		}
		p.advance()
	}
	return n, path, nil
}

func (p *parser) parseNode(allowLiteral bool) (Node, error) {
	t := p.cur()
	switch t.kind {
	case tokVar:
		p.advance()
		return Node{Var: t.text}, nil
	case tokIRI:
		p.advance()
		return Node{Term: graph.IRI(t.text)}, nil
	case tokPName:
		iri, err := p.expand(t.text)
		if err != nil {
			return Node{}, err
		}
		p.advance()
		return Node{Term: graph.IRI(iri)}, nil
	case tokString:
		if !allowLiteral {
			return Node{}, p.errorf("literal not allowed here")
		}
		p.advance()
		datatype := catalog.XSDString
		if t.datatype != "" {
			if strings.HasPrefix(t.datatype, "<") {
				datatype = strings.Trim(t.datatype, "<>")
			} else {
				iri, err := p.expand(t.datatype)
				if err != nil {
					return Node{}, err
				}
				datatype = iri
			}
		}
		return Node{Term: graph.Literal(t.text, datatype)}, nil
	case tokInteger:
		if !allowLiteral {
			return Node{}, p.errorf("literal not allowed here")
		}
		p.advance()
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return Node{}, p.errorf("bad integer %s", t.text)
		}
		return Node{Term: graph.Integer(n)}, nil
	case tokEOF:
		return Node{}, p.errorf("unexpected end of query")
	}
	return Node{}, p.errorf("unexpected %q", t.text)
}

func (p *parser) expand(pname string) (string, error) {
	prefix, local, _ := strings.Cut(pname, ":")
	ns, ok := p.prefixes[prefix]
	if !ok {
		return "", p.errorf("undeclared prefix %q", prefix)
	}
	return ns + local, nil
}

func (p *parser) parseModifiers(q *Query) error {
	if p.isKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		for {
			key, ok, err := p.parseOrderKey()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			q.OrderBy = append(q.OrderBy, key)
		}
		if len(q.OrderBy) == 0 {
			return p.errorf("expected ORDER BY condition")
		}
	}

	// LIMIT and OFFSET may appear in either order.
	for i := 0; i < 2; i++ {
		switch {
		case p.isKeyword("LIMIT") && q.Limit < 0:
			p.advance()
			n, err := p.parseCount()
			if err != nil {
				return err
			}
			q.Limit = n
		case p.isKeyword("OFFSET") && q.Offset == 0:
			p.advance()
			n, err := p.parseCount()
			if err != nil {
				return err
			}
			q.Offset = n
		}
	}
	return nil
}

func (p *parser) parseOrderKey() (OrderKey, bool, error) {
	if p.cur().kind == tokVar {
		return OrderKey{Var: p.advance().text}, true, nil
	}
	if !p.isKeyword("ASC") && !p.isKeyword("DESC") {
		return OrderKey{}, false, nil
	}
	desc := p.isKeyword("DESC")
	p.advance()
	if err := p.expectPunct("("); err != nil {
		return OrderKey{}, false, err
	}
	t := p.advance()
	if t.kind != tokVar {
		return OrderKey{}, false, p.errorf("expected variable in order condition")
	}
	if err := p.expectPunct(")"); err != nil {
		return OrderKey{}, false, err
	}
	return OrderKey{Var: t.text, Descending: desc}, true, nil
}

func (p *parser) parseCount() (int, error) {
	t := p.cur()
	if t.kind != tokInteger || strings.HasPrefix(t.text, "-") || strings.HasPrefix(t.text, "+") {
		return 0, p.errorf("expected non-negative integer")
	}
	p.advance()
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, p.errorf("bad integer %s", t.text)
	}
	return n, nil
}
