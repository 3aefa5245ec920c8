package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DatasetUpdatedSubject is the default subject for dataset change events.
const DatasetUpdatedSubject = "catalog.dataset.updated"

// Conn is the subset of *nats.Conn used by the publisher.
type Conn interface {
	Publish(subject string, data []byte) error
}

// EventTriple is the wire form of one statement.
type EventTriple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Kind      string `json:"kind"`
	Datatype  string `json:"datatype,omitempty"`
}

// DatasetEvent announces a committed dataset partition.
type DatasetEvent struct {
	ID             string        `json:"id"`
	MappingVersion string        `json:"mapping_version"`
	Triples        []EventTriple `json:"triples"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Publisher notifies subscribers of committed datasets over NATS.
type Publisher struct {
	conn    Conn
	subject string
}

// NewPublisher creates a publisher. A nil conn disables publishing.
func NewPublisher(conn Conn, subject string) *Publisher {
	if subject == "" {
		subject = DatasetUpdatedSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

// Connect dials a NATS server for the publisher.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("semcat"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// NewDatasetEvent builds the change event for a committed dataset graph.
func NewDatasetEvent(datasetID, mappingVersion string, g *Graph, now time.Time) DatasetEvent {
	stmts := g.Statements()
	triples := make([]EventTriple, len(stmts))
	for i, s := range stmts {
		triples[i] = EventTriple{
			Subject:   s.Subject,
			Predicate: s.Predicate,
			Object:    s.Object.Value,
			Kind:      s.Object.Kind.String(),
			Datatype:  s.Object.Datatype,
		}
	}
	return DatasetEvent{
		ID:             datasetID,
		MappingVersion: mappingVersion,
		Triples:        triples,
		UpdatedAt:      now.UTC(),
	}
}

// PublishDataset publishes the change event for one dataset.
func (p *Publisher) PublishDataset(ctx context.Context, datasetID, mappingVersion string, g *Graph) error {
	if p == nil || p.conn == nil {
		return nil // Publishing disabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(NewDatasetEvent(datasetID, mappingVersion, g, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal dataset event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish dataset event: %w", err)
	}
	return nil
}

var _ Conn = (*nats.Conn)(nil)
