// Package export serializes catalog graphs into deterministic exchange
// syntaxes.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/vocabulary/catalog"
	"github.com/gowebpki/jcs"
)

// VersionHeader prefixes the mapping-table version comment.
const VersionHeader = "mapping-table-version: "

// Exporter serializes graphs produced under one mapping-table version.
type Exporter struct {
	version string
}

// NewExporter creates an exporter that stamps output with version.
func NewExporter(version string) *Exporter {
	return &Exporter{version: version}
}

// Export serializes g. Output is byte-identical for equal graphs.
func (e *Exporter) Export(g *graph.Graph, format Format) ([]byte, error) {
	switch format {
	case FormatNTriples, "":
		return []byte(e.toNTriples(g)), nil
	case FormatTurtle:
		return []byte(e.toTurtle(g)), nil
	case FormatJSONLD:
		return e.toJSONLD(g)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteTo writes the serialization of g to w.
func (e *Exporter) WriteTo(w io.Writer, g *graph.Graph, format Format) error {
	data, err := e.Export(g, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (e *Exporter) toNTriples(g *graph.Graph) string {
	w := NewNTriplesWriter()
	w.WriteComment(VersionHeader + e.version)
	for _, s := range g.Statements() {
		w.WriteStatement(s)
	}
	return w.String()
}

func (e *Exporter) toTurtle(g *graph.Graph) string {
	w := NewTurtleWriter()
	w.WriteComment(VersionHeader + e.version)
	w.WritePrefixes()

	stmts := g.Statements()
	for start := 0; start < len(stmts); {
		end := start + 1
		for end < len(stmts) && stmts[end].Subject == stmts[start].Subject {
			end++
		}
		w.WriteSubject(stmts[start].Subject, stmts[start:end])
		start = end
	}
	return w.String()
}

// JSONLDDocument represents a JSON-LD document structure.
type JSONLDDocument struct {
	Context map[string]any `json:"@context"`
	Version string         `json:"semcat:mappingTableVersion"`
	Graph   []JSONLDNode   `json:"@graph"`
}

// JSONLDNode represents a node in a JSON-LD graph.
type JSONLDNode struct {
	ID         string         `json:"@id"`
	Type       []string       `json:"@type,omitempty"`
	Properties map[string]any `json:"-"`
}

// MarshalJSON implements custom JSON marshaling for JSONLDNode.
func (n JSONLDNode) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Properties)+2)
	m["@id"] = n.ID
	if len(n.Type) > 0 {
		m["@type"] = n.Type
	}
	for k, v := range n.Properties {
		m[k] = v
	}
	return json.Marshal(m)
}

// toJSONLD builds expanded-IRI JSON-LD and canonicalizes it per RFC 8785.
func (e *Exporter) toJSONLD(g *graph.Graph) ([]byte, error) {
	context := make(map[string]any)
	for prefix, ns := range catalog.Prefixes() {
		context[prefix] = ns
	}
	doc := JSONLDDocument{Context: context, Version: e.version, Graph: []JSONLDNode{}}

	stmts := g.Statements()
	for start := 0; start < len(stmts); {
		node := JSONLDNode{ID: stmts[start].Subject, Properties: make(map[string]any)}
		end := start
		for ; end < len(stmts) && stmts[end].Subject == node.ID; end++ {
			s := stmts[end]
			if s.Predicate == catalog.RDFType {
				node.Type = append(node.Type, s.Object.Value)
				continue
			}
			values, _ := node.Properties[s.Predicate].([]any)
			node.Properties[s.Predicate] = append(values, jsonValue(s.Object))
		}
		slices.Sort(node.Type)
		doc.Graph = append(doc.Graph, node)
		start = end
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal json-ld: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize json-ld: %w", err)
	}
	return append(canonical, '\n'), nil
}

func jsonValue(t graph.Term) any {
	if t.IsResource() {
		return map[string]any{"@id": t.Value}
	}
	return map[string]any{"@value": t.Value, "@type": t.Datatype}
}
