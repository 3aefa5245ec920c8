package graph

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	subject string
	data    []byte
	err     error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func TestPublisher_Disabled(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.PublishDataset(context.Background(), "ds", "2024.1", Empty()))
	assert.NoError(t, NewPublisher(nil, "").PublishDataset(context.Background(), "ds", "2024.1", Empty()))
}

func TestPublisher_PublishDataset(t *testing.T) {
	conn := &recordingConn{}
	p := NewPublisher(conn, "")

	g := New(datasetStatements("ds", "dist"), distributionStatements("dist", "ds"))
	require.NoError(t, p.PublishDataset(context.Background(), "ds", "2025.1", g))

	assert.Equal(t, DatasetUpdatedSubject, conn.subject)

	var event DatasetEvent
	require.NoError(t, json.Unmarshal(conn.data, &event))
	assert.Equal(t, "ds", event.ID)
	assert.Equal(t, "2025.1", event.MappingVersion)
	assert.Len(t, event.Triples, g.Len())
}

func TestPublisher_Errors(t *testing.T) {
	p := NewPublisher(&recordingConn{err: errors.New("connection closed")}, "custom.subject")
	err := p.PublishDataset(context.Background(), "ds", "2024.1", Empty())
	assert.ErrorContains(t, err, "connection closed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.PublishDataset(ctx, "ds", "2024.1", Empty()), context.Canceled)
}

func TestNewDatasetEvent(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	g := New([]Statement{{Subject: "s", Predicate: "p", Object: Integer(7)}})

	event := NewDatasetEvent("s", "2024.1", g, now)
	require.Len(t, event.Triples, 1)
	assert.Equal(t, "7", event.Triples[0].Object)
	assert.Equal(t, "literal", event.Triples[0].Kind)
	assert.Equal(t, now, event.UpdatedAt)
}
