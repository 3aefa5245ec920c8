package pipeline

import (
	"errors"
	"slices"
	"strings"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/mapping"
	"github.com/c360studio/semcat/source"
)

// Reason classifies a manifest entry.
type Reason string

// Manifest reason codes.
const (
	ReasonUnreadableSource  Reason = "unreadable-source"
	ReasonIncompleteRecord  Reason = "incomplete-record"
	ReasonUngroupableRecord Reason = "ungroupable-record"
	ReasonMappingPolicy     Reason = "mapping-policy"
	ReasonDanglingReference Reason = "dangling-reference"
	ReasonIncompleteEntity  Reason = "incomplete-entity"
	ReasonStoreFailure      Reason = "store-failure"
	// ReasonStaleMapping flags a dataset committed under another mapping
	// version that cannot be re-derived.
	ReasonStaleMapping Reason = "stale-mapping"
)

// Entry is one skipped file or entity.
type Entry struct {
	// Subject is a file path or an entity identifier.
	Subject string `json:"subject"`
	Reason  Reason `json:"reason"`
	Detail  string `json:"detail"`
}

// Report is the outcome of one ingestion batch.
type Report struct {
	// Graph holds the statements of every committed dataset of the batch.
	Graph *graph.Graph `json:"-"`
	// Datasets lists committed dataset identifiers in order.
	Datasets []string `json:"datasets"`
	// Manifest lists skipped files and entities ordered by subject.
	Manifest []Entry `json:"manifest"`
	// MappingVersion is the mapping table revision used.
	MappingVersion string `json:"mappingVersion"`
	Files          int    `json:"files"`
	// Checksums holds the content digest of every extracted file.
	Checksums map[source.FileRef]string `json:"-"`
}

// Skipped returns the manifest entries with the given reason.
func (r *Report) Skipped(reason Reason) []Entry {
	var out []Entry
	for _, e := range r.Manifest {
		if e.Reason == reason {
			out = append(out, e)
		}
	}
	return out
}

func (r *Report) sort() {
	slices.Sort(r.Datasets)
	slices.SortStableFunc(r.Manifest, func(a, b Entry) int {
		if c := strings.Compare(a.Subject, b.Subject); c != 0 {
			return c
		}
		return strings.Compare(string(a.Reason), string(b.Reason))
	})
}

// reasonFor maps an error from any stage to its reason code.
func reasonFor(err error) Reason {
	var (
		unreadable *source.UnreadableSourceError
		incomplete *source.IncompleteRecordError
		dangling   *graph.DanglingReferenceError
		entity     *graph.IncompleteEntityError
	)
	switch {
	case errors.As(err, &unreadable):
		return ReasonUnreadableSource
	case errors.As(err, &incomplete):
		return ReasonIncompleteRecord
	case errors.Is(err, mapping.ErrMapping):
		return ReasonMappingPolicy
	case errors.As(err, &dangling):
		return ReasonDanglingReference
	case errors.As(err, &entity):
		return ReasonIncompleteEntity
	}
	return ReasonStoreFailure
}
