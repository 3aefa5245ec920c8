package export

import (
	"fmt"
	"slices"
	"strings"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/vocabulary/catalog"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatNTriples produces canonical N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - canonical line-based exchange syntax",
	},
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Extension:   ".jsonld",
		Description: "JSON-LD - JSON for Linked Data, RFC 8785 canonical",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat accepts a format name or file extension. Empty selects N-Triples.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatNTriples, nil
	}
	for name, info := range FormatRegistry {
		if s == string(name) || s == strings.TrimPrefix(info.Extension, ".") || s == info.MIMEType {
			return name, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// NTriplesWriter writes statements as canonical N-Triples.
type NTriplesWriter struct {
	sb strings.Builder
}

// NewNTriplesWriter creates a new N-Triples writer.
func NewNTriplesWriter() *NTriplesWriter {
	return &NTriplesWriter{}
}

// WriteComment writes a comment line.
func (w *NTriplesWriter) WriteComment(text string) {
	w.sb.WriteString("# ")
	w.sb.WriteString(text)
	w.sb.WriteString("\n")
}

// WriteStatement writes a single statement line.
func (w *NTriplesWriter) WriteStatement(s graph.Statement) {
	w.sb.WriteString(iriRef(s.Subject))
	w.sb.WriteByte(' ')
	w.sb.WriteString(iriRef(s.Predicate))
	w.sb.WriteByte(' ')
	w.sb.WriteString(formatTerm(s.Object))
	w.sb.WriteString(" .\n")
}

// String returns the accumulated N-Triples output.
func (w *NTriplesWriter) String() string {
	return w.sb.String()
}

// TurtleWriter writes statements in Turtle, grouped by subject.
type TurtleWriter struct {
	prefixes map[string]string
	sb       strings.Builder
}

// NewTurtleWriter creates a new Turtle writer with the catalog prefixes.
func NewTurtleWriter() *TurtleWriter {
	return &TurtleWriter{prefixes: catalog.Prefixes()}
}

// SetPrefix sets a namespace prefix.
func (w *TurtleWriter) SetPrefix(prefix, iri string) {
	w.prefixes[prefix] = iri
}

// WriteComment writes a comment line.
func (w *TurtleWriter) WriteComment(text string) {
	w.sb.WriteString("# " + text + "\n")
}

// WritePrefixes writes prefix declarations.
func (w *TurtleWriter) WritePrefixes() {
	// Sort prefixes for consistent output
	keys := make([]string, 0, len(w.prefixes))
	for k := range w.prefixes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, prefix := range keys {
		w.sb.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", prefix, w.prefixes[prefix]))
	}
	w.sb.WriteString("\n")
}

// WriteSubject writes one subject block. Statements must share the subject
// and be in total order.
func (w *TurtleWriter) WriteSubject(subject string, stmts []graph.Statement) {
	w.sb.WriteString(w.compact(subject))
	w.sb.WriteString("\n")
	for i, s := range stmts {
		predicate := w.compact(s.Predicate)
		if s.Predicate == catalog.RDFType {
			predicate = "a"
		}
		object := formatTerm(s.Object)
		if s.Object.IsResource() {
			object = w.compact(s.Object.Value)
		} else if s.Object.Datatype != catalog.XSDString {
			object = quoteLiteral(s.Object.Value) + "^^" + w.compact(s.Object.Datatype)
		}
		terminator := " ;"
		if i == len(stmts)-1 {
			terminator = " ."
		}
		w.sb.WriteString(fmt.Sprintf("    %s %s%s\n", predicate, object, terminator))
	}
	w.sb.WriteString("\n")
}

// compact abbreviates an IRI with a declared prefix when the local part is
// a safe Turtle name, and otherwise writes it in angle brackets.
func (w *TurtleWriter) compact(iri string) string {
	best := ""
	for prefix, ns := range w.prefixes {
		if !strings.HasPrefix(iri, ns) {
			continue
		}
		local := iri[len(ns):]
		if !isLocalName(local) {
			continue
		}
		candidate := prefix + ":" + local
		if best == "" || len(candidate) < len(best) || (len(candidate) == len(best) && candidate < best) {
			best = candidate
		}
	}
	if best != "" {
		return best
	}
	return iriRef(iri)
}

func isLocalName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		case r == '-' && i > 0:
		default:
			return false
		}
	}
	return true
}

// String returns the accumulated Turtle output.
func (w *TurtleWriter) String() string {
	return w.sb.String()
}

func iriRef(iri string) string {
	return "<" + iri + ">"
}

// formatTerm renders a term in N-Triples syntax.
func formatTerm(t graph.Term) string {
	if t.IsResource() {
		return iriRef(t.Value)
	}
	if t.Datatype == "" || t.Datatype == catalog.XSDString {
		return quoteLiteral(t.Value)
	}
	return quoteLiteral(t.Value) + "^^" + iriRef(t.Datatype)
}

// quoteLiteral quotes and escapes a literal per the N-Triples grammar.
func quoteLiteral(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				sb.WriteString(fmt.Sprintf(`\u%04X`, r))
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
