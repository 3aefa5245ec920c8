package mapping

import (
	"errors"
	"fmt"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/model"
	"github.com/c360studio/semcat/source"
	"github.com/c360studio/semcat/vocabulary/catalog"
)

// ErrMapping is the category of mapping failures.
var ErrMapping = errors.New("mapping error")

// MappingPolicyError reports a fail-policy field that had no usable value.
type MappingPolicyError struct {
	Entity    string
	Field     model.Field
	Predicate string
	// Err is the transform failure, nil when the field was simply absent.
	Err error
}

func (e *MappingPolicyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mapping %s: required field %s (%s): %v", e.Entity, e.Field, e.Predicate, e.Err)
	}
	return fmt.Sprintf("mapping %s: required field %s (%s) is absent", e.Entity, e.Field, e.Predicate)
}

func (e *MappingPolicyError) Unwrap() error { return e.Err }

// Is matches ErrMapping.
func (e *MappingPolicyError) Is(target error) bool { return target == ErrMapping }

// Mapper applies one mapping table.
type Mapper struct {
	table *Table
}

// NewMapper validates t and returns a mapper for it.
func NewMapper(t *Table) (*Mapper, error) {
	if t == nil {
		return nil, errors.New("mapping table is nil")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Mapper{table: t}, nil
}

// ForVersion returns a mapper for a built-in table revision.
func ForVersion(version string) (*Mapper, error) {
	if version == "" {
		version = DefaultVersion
	}
	t, err := Lookup(version)
	if err != nil {
		return nil, err
	}
	return NewMapper(t)
}

// Version returns the table revision in use.
func (m *Mapper) Version() string { return m.table.Version }

// Map translates one entity into statements. It has no side effects.
//
// A value the rule's transform rejects counts as absent. Absent fields are
// then handled by the rule's policy; only PolicyFail produces an error.
func (m *Mapper) Map(e model.Entity) ([]graph.Statement, error) {
	subject := e.ID()
	if subject == "" {
		return nil, &MappingPolicyError{Entity: string(e.Kind()), Field: model.FieldIdentifier, Predicate: catalog.RDFType}
	}

	var stmts []graph.Statement
	for _, class := range m.table.Classes[e.Kind()] {
		stmts = append(stmts, graph.Statement{Subject: subject, Predicate: catalog.RDFType, Object: graph.IRI(class)})
	}

	for _, rule := range m.table.Rules[e.Kind()] {
		predicate := catalog.IRI(rule.Predicate)

		var (
			emitted  int
			firstErr error
		)
		for _, v := range e.Values(rule.Field) {
			term, err := rule.Transform.Apply(v)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			stmts = append(stmts, graph.Statement{Subject: subject, Predicate: predicate, Object: term})
			emitted++
		}
		if emitted > 0 {
			continue
		}

		switch rule.Absent {
		case PolicyOmit:
		case PolicyDefault:
			term, err := rule.Transform.Apply(source.StringValue(rule.Default))
			if err != nil {
				return nil, &MappingPolicyError{Entity: subject, Field: rule.Field, Predicate: predicate, Err: err}
			}
			stmts = append(stmts, graph.Statement{Subject: subject, Predicate: predicate, Object: term})
		case PolicyFail:
			return nil, &MappingPolicyError{Entity: subject, Field: rule.Field, Predicate: predicate, Err: firstErr}
		}
	}
	return stmts, nil
}
