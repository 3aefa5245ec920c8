// Package mapping translates catalog entities into graph statements using
// versioned mapping tables.
package mapping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/source"
	"github.com/c360studio/semcat/vocabulary/catalog"
	"github.com/docker/go-units"
)

// TransformKind is the closed set of value transforms.
type TransformKind uint8

// Transform kinds.
const (
	// TransformIdentity emits the value as a literal of its own kind, or of
	// the transform's datatype when one is set.
	TransformIdentity TransformKind = iota + 1
	// TransformDateParse normalizes a calendar date to xsd:date.
	TransformDateParse
	// TransformUnitNormalize normalizes a size to an integer byte count.
	TransformUnitNormalize
	// TransformURITemplate substitutes the value into an IRI template.
	TransformURITemplate
	// TransformReference emits the value as an entity reference.
	TransformReference
)

func (k TransformKind) String() string {
	switch k {
	case TransformIdentity:
		return "identity"
	case TransformDateParse:
		return "date-parse"
	case TransformUnitNormalize:
		return "unit-normalize"
	case TransformURITemplate:
		return "uri-template"
	case TransformReference:
		return "reference"
	default:
		return "transform(" + strconv.Itoa(int(k)) + ")"
	}
}

// Valid reports whether k is a known transform.
func (k TransformKind) Valid() bool {
	return k >= TransformIdentity && k <= TransformReference
}

// templateValue is the placeholder replaced by uri-template transforms.
const templateValue = "{value}"

// Transform converts one source value into a statement object.
type Transform struct {
	Kind TransformKind
	// Template is the IRI template for uri-template transforms.
	Template string
	// Datatype overrides the literal datatype of identity transforms.
	Datatype string
}

// Identity returns an identity transform.
func Identity() Transform { return Transform{Kind: TransformIdentity} }

// DateParse returns a date-parse transform.
func DateParse() Transform { return Transform{Kind: TransformDateParse} }

// UnitNormalize returns a unit-normalize transform.
func UnitNormalize() Transform { return Transform{Kind: TransformUnitNormalize} }

// URITemplate returns a uri-template transform.
func URITemplate(template string) Transform {
	return Transform{Kind: TransformURITemplate, Template: template}
}

// Reference returns a reference transform.
func Reference() Transform { return Transform{Kind: TransformReference} }

// Apply converts v. The switch is exhaustive over TransformKind.
func (t Transform) Apply(v source.Value) (graph.Term, error) {
	if v.IsAbsent() {
		return graph.Term{}, fmt.Errorf("%s: value is absent", t.Kind)
	}
	lex := strings.TrimSpace(v.Lexical())

	switch t.Kind {
	case TransformIdentity:
		if t.Datatype != "" {
			return graph.Literal(lex, t.Datatype), nil
		}
		if n, ok := v.AsInt(); ok {
			return graph.Integer(n), nil
		}
		return graph.String(lex), nil

	case TransformDateParse:
		date, err := NormalizeDate(lex)
		if err != nil {
			return graph.Term{}, err
		}
		return graph.Date(date), nil

	case TransformUnitNormalize:
		n, err := NormalizeBytes(v)
		if err != nil {
			return graph.Term{}, err
		}
		return graph.Integer(n), nil

	case TransformURITemplate:
		if lex == "" {
			return graph.Term{}, fmt.Errorf("%s: empty value", t.Kind)
		}
		return graph.IRI(strings.ReplaceAll(t.Template, templateValue, escapeIRI(lex))), nil

	case TransformReference:
		if lex == "" {
			return graph.Term{}, fmt.Errorf("%s: empty value", t.Kind)
		}
		return graph.Ref(lex), nil

	default:
		return graph.Term{}, fmt.Errorf("unknown transform %s", t.Kind)
	}
}

var (
	dicomDate     = regexp.MustCompile(`^\d{8}`)
	legacyDotDate = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)
)

// NormalizeDate converts DICOM DA/DT values, legacy dotted dates and common
// free-form dates to YYYY-MM-DD.
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var (
		t   time.Time
		err error
	)
	switch {
	case raw == "":
		return "", fmt.Errorf("date-parse: empty value")
	case dicomDate.MatchString(raw) && isDigits(raw):
		t, err = time.Parse("20060102", raw[:8])
	case legacyDotDate.MatchString(raw):
		t, err = time.Parse("2006.01.02", raw)
	default:
		t, err = dateparse.ParseIn(raw, time.UTC)
	}
	if err != nil {
		return "", fmt.Errorf("date-parse %q: %w", raw, err)
	}
	return t.Format(time.DateOnly), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeBytes converts an integer or a human-readable size to bytes.
// Sizes with an "i" infix (KiB, MiB) are binary; others are decimal.
func NormalizeBytes(v source.Value) (int64, error) {
	if n, ok := v.AsInt(); ok {
		if n < 0 {
			return 0, fmt.Errorf("unit-normalize: negative size %d", n)
		}
		return n, nil
	}

	raw := strings.TrimSpace(v.Lexical())
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n >= 0 {
		return n, nil
	}

	var (
		n   int64
		err error
	)
	if strings.ContainsAny(raw, "iI") {
		n, err = units.RAMInBytes(raw)
	} else {
		n, err = units.FromHumanSize(raw)
	}
	if err != nil {
		return 0, fmt.Errorf("unit-normalize %q: %w", raw, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("unit-normalize: negative size %q", raw)
	}
	return n, nil
}

// escapeIRI percent-encodes characters that may not appear in an IRI reference.
func escapeIRI(s string) string {
	var sb strings.Builder
	for _, b := range []byte(s) {
		if b <= 0x20 || strings.IndexByte(`<>"{}|^`+"`"+`\`, b) >= 0 {
			fmt.Fprintf(&sb, "%%%02X", b)
			continue
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

// anyURI is a convenience identity transform typed as xsd:anyURI.
var anyURI = Transform{Kind: TransformIdentity, Datatype: catalog.XSDAnyURI}
