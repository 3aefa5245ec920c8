// Package storage holds the committed catalog graph, partitioned per dataset.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/source"
	"github.com/c360studio/semcat/vocabulary/catalog"
)

// State is the lifecycle state of a store.
type State string

// Store states.
const (
	StateEmpty  State = "empty"
	StateLoaded State = "loaded"
)

// Commit is the state of one dataset partition.
type Commit struct {
	Graph *graph.Graph
	// Records are the source records the graph was derived from. They let a
	// later batch re-derive dataset aggregates over series it does not carry.
	Records []source.Record
	// MappingVersion is the mapping table revision that produced Graph.
	MappingVersion string
}

// Persister durably records dataset partitions.
type Persister interface {
	// SaveDataset atomically replaces everything stored for a dataset.
	SaveDataset(ctx context.Context, datasetID string, c Commit) error
	// LoadAll returns every stored partition keyed by dataset identifier.
	LoadAll(ctx context.Context) (map[string]Commit, error)
}

// Summary describes one dataset for listings.
type Summary struct {
	Identifier        string   `json:"identifier"`
	Title             string   `json:"title"`
	Modality          []string `json:"modality"`
	DistributionCount int      `json:"distributionCount"`
}

// Store is the query store. Each dataset partition is an immutable graph;
// mutation swaps a partition pointer, so readers never see partial state.
type Store struct {
	// mu guards the partition map only. It is never held across I/O.
	mu         sync.RWMutex
	partitions map[string]*Commit

	locks     *LockTable
	persister Persister
	logger    *slog.Logger
}

// NewStore creates an empty store. A nil persister keeps state in memory.
func NewStore(persister Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		partitions: make(map[string]*Commit),
		locks:      NewLockTable(),
		persister:  persister,
		logger:     logger,
	}
}

// Locks returns the dataset lock table used to authorize Replace.
func (s *Store) Locks() *LockTable { return s.locks }

// State reports whether any dataset has been loaded.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.partitions) == 0 {
		return StateEmpty
	}
	return StateLoaded
}

// Load restores partitions from the persister. Existing partitions with
// the same identifier are replaced.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	stored, err := s.persister.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range stored {
		if c.Graph == nil {
			c.Graph = graph.Empty()
		}
		s.partitions[id] = &c
	}
	s.logger.Info("Store loaded", "datasets", len(stored))
	return nil
}

// Replace commits c for datasetID by subject: statements about subjects
// that c.Graph defines are replaced, statements about other subjects of the
// partition are kept, and other datasets are untouched. The partition's
// records and mapping version are replaced by c's.
//
// The token must cover datasetID. The persister commits before the
// partition becomes visible; on failure the previous state remains.
func (s *Store) Replace(ctx context.Context, token *LockToken, datasetID string, c Commit) error {
	if !token.Covers(datasetID) {
		return fmt.Errorf("replace %s: %w", datasetID, ErrLockNotHeld)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Graph == nil {
		c.Graph = graph.Empty()
	}

	if err := s.checkOwnership(datasetID, c.Graph); err != nil {
		return err
	}

	// The token serializes writers of this partition, so prev cannot change
	// underneath us.
	s.mu.RLock()
	prev := s.partitions[datasetID]
	s.mu.RUnlock()
	if prev != nil {
		c.Graph = graph.Overlay(prev.Graph, c.Graph)
	}
	c.Records = slices.Clone(c.Records)

	if s.persister != nil {
		if err := s.persister.SaveDataset(ctx, datasetID, c); err != nil {
			return fmt.Errorf("persist %s: %w", datasetID, err)
		}
	}

	s.mu.Lock()
	s.partitions[datasetID] = &c
	s.mu.Unlock()

	s.logger.Debug("Dataset replaced", "dataset", datasetID,
		"statements", c.Graph.Len(), "records", len(c.Records), "mapping_version", c.MappingVersion)
	return nil
}

// checkOwnership rejects graphs whose subjects live in another partition.
func (s *Store) checkOwnership(datasetID string, g *graph.Graph) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, other := range s.partitions {
		if id == datasetID {
			continue
		}
		for _, subject := range g.Subjects() {
			if other.Graph.HasSubject(subject) {
				return fmt.Errorf("replace %s: %s: %w", datasetID, subject, ErrSubjectOwned)
			}
		}
	}
	return nil
}

// Partition returns the committed graph of one dataset.
func (s *Store) Partition(datasetID string) (*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.partitions[datasetID]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Graph, nil
}

// Records returns the source records a dataset was derived from.
func (s *Store) Records(datasetID string) []source.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.partitions[datasetID]; ok {
		return slices.Clone(c.Records)
	}
	return nil
}

// MappingVersion returns the mapping table revision of a dataset.
func (s *Store) MappingVersion(datasetID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.partitions[datasetID]
	if !ok {
		return "", ErrNotFound
	}
	return c.MappingVersion, nil
}

// Stale returns, in order, the datasets committed under a mapping table
// revision other than version.
func (s *Store) Stale(version string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.datasetIDsLocked() {
		if s.partitions[id].MappingVersion != version {
			out = append(out, id)
		}
	}
	return out
}

// Find resolves a dataset by its full identifier or by the final path
// segment of it.
func (s *Store) Find(key string) (string, *graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.partitions[key]; ok {
		return key, c.Graph, nil
	}
	if key != "" {
		for _, id := range s.datasetIDsLocked() {
			if strings.HasSuffix(id, "/"+key) {
				return id, s.partitions[id].Graph, nil
			}
		}
	}
	return "", nil, ErrNotFound
}

// Dataset returns the summary and partition of the dataset Find resolves.
func (s *Store) Dataset(key string) (Summary, *graph.Graph, error) {
	id, g, err := s.Find(key)
	if err != nil {
		return Summary{}, nil, err
	}
	return summarize(id, g), g, nil
}

// Snapshot returns a consistent read view over every partition, ordered by
// dataset identifier.
func (s *Store) Snapshot() graph.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.datasetIDsLocked()
	view := make(graph.View, len(ids))
	for i, id := range ids {
		view[i] = s.partitions[id].Graph
	}
	return view
}

// Count returns the number of datasets.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partitions)
}

// ListDatasets returns up to limit summaries starting at offset, ordered by
// identifier. A limit <= 0 returns everything after offset.
func (s *Store) ListDatasets(offset, limit int) []Summary {
	s.mu.RLock()
	ids := s.datasetIDsLocked()
	if offset >= len(ids) {
		s.mu.RUnlock()
		return []Summary{}
	}
	ids = ids[max(offset, 0):]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	parts := make([]*graph.Graph, len(ids))
	for i, id := range ids {
		parts[i] = s.partitions[id].Graph
	}
	s.mu.RUnlock()

	out := make([]Summary, len(ids))
	for i, id := range ids {
		out[i] = summarize(id, parts[i])
	}
	return out
}

func (s *Store) datasetIDsLocked() []string {
	ids := make([]string, 0, len(s.partitions))
	for id := range s.partitions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func summarize(id string, g *graph.Graph) Summary {
	sum := Summary{Identifier: id, Modality: []string{}}
	if titles := g.Objects(id, catalog.PropTitle); len(titles) > 0 {
		sum.Title = titles[0].Value
	}
	for _, m := range g.Objects(id, catalog.IRI(catalog.ResourceModality)) {
		sum.Modality = append(sum.Modality, m.Value)
	}
	sum.DistributionCount = len(g.Objects(id, catalog.PropDistribution))
	return sum
}
