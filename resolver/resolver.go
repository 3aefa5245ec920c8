// Package resolver groups attribute records into datasets and distributions
// with deterministic identifiers.
package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/c360studio/semcat/mapping"
	"github.com/c360studio/semcat/model"
	"github.com/c360studio/semcat/source"
	"github.com/google/uuid"
)

// Namespace is the UUIDv5 namespace for every catalog identifier.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://semcat.dev/ontology/"))

// DefaultBaseIRI prefixes identifiers when no base is configured.
const DefaultBaseIRI = "https://semcat.dev/catalog/"

// EmptyInputError is returned when Resolve is given no records.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string { return "resolve: no records" }

// ErrMixedGroups is returned when Resolve is given records from more than one
// (patient, study) group.
var ErrMixedGroups = errors.New("resolve: records span multiple groups")

// Config configures identifier and access URL rendering.
type Config struct {
	// BaseIRI prefixes entity identifiers. It should end with '/' or '#'.
	BaseIRI string
	// AccessURLTemplate renders a distribution access URL. {study} and
	// {series} are replaced with the source UIDs. Empty disables access URLs.
	AccessURLTemplate string
}

// Resolver turns attribute records into catalog entities.
type Resolver struct {
	base           string
	accessTemplate string
}

// New creates a resolver.
func New(cfg Config) *Resolver {
	base := cfg.BaseIRI
	if base == "" {
		base = DefaultBaseIRI
	}
	if !strings.HasSuffix(base, "/") && !strings.HasSuffix(base, "#") {
		base += "/"
	}
	return &Resolver{base: base, accessTemplate: cfg.AccessURLTemplate}
}

// Normalize trims and lower-cases a raw identifier before hashing.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Group is the set of records sharing one normalized (patient, study) key.
type Group struct {
	Key     string
	Records []source.Record
}

// CompositeKey returns the normalized grouping key for a record, or false
// when the patient id, study uid or series uid is absent.
func CompositeKey(r source.Record) (string, bool) {
	patient := Normalize(r.Get(source.KeyPatientID).Lexical())
	study := Normalize(r.Get(source.KeyStudyInstanceUID).Lexical())
	series := Normalize(r.Get(source.KeySeriesInstanceUID).Lexical())
	if patient == "" || study == "" || series == "" {
		return "", false
	}
	return patient + "\x00" + study, true
}

// GroupRecords partitions records by composite key. Groups are ordered by key;
// records lacking a key part are returned separately in input order.
func GroupRecords(records []source.Record) (groups []Group, ungroupable []source.Record) {
	index := make(map[string]int)
	for _, r := range records {
		key, ok := CompositeKey(r)
		if !ok {
			ungroupable = append(ungroupable, r)
			continue
		}
		i, seen := index[key]
		if !seen {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	slices.SortFunc(groups, func(a, b Group) int { return strings.Compare(a.Key, b.Key) })
	return groups, ungroupable
}

// DatasetID derives the dataset identifier from the raw patient id and study uid.
func (r *Resolver) DatasetID(patientID, studyUID string) string {
	id := uuid.NewSHA1(Namespace, []byte(Normalize(patientID)+"\x00"+Normalize(studyUID)))
	return r.base + "dataset/" + id.String()
}

// CatalogID returns the identifier of the catalog node.
func (r *Resolver) CatalogID() string { return r.base + "catalog" }

// DatasetIDFor returns the identifier of the dataset a record belongs to.
func (r *Resolver) DatasetIDFor(rec source.Record) string {
	return r.DatasetID(rec.Get(source.KeyPatientID).Lexical(), rec.Get(source.KeyStudyInstanceUID).Lexical())
}

// DistributionID derives a distribution identifier from its parent and series uid.
func (r *Resolver) DistributionID(datasetID, seriesUID string) string {
	id := uuid.NewSHA1(Namespace, []byte(datasetID+"\x00"+Normalize(seriesUID)))
	return r.base + "distribution/" + id.String()
}

func (r *Resolver) fileID(distributionID, discriminator string) string {
	id := uuid.NewSHA1(Namespace, []byte(distributionID+"\x00"+discriminator))
	return r.base + "file/" + id.String()
}

// Resolve builds one dataset from records of a single (patient, study) group.
func (r *Resolver) Resolve(records []source.Record) (*model.Dataset, error) {
	if len(records) == 0 {
		return nil, &EmptyInputError{}
	}

	groupKey, ok := CompositeKey(records[0])
	if !ok {
		return nil, fmt.Errorf("resolve %s: %w", records[0].Ref(), ErrMixedGroups)
	}
	for _, rec := range records[1:] {
		if key, ok := CompositeKey(rec); !ok || key != groupKey {
			return nil, fmt.Errorf("resolve %s: %w", rec.Ref(), ErrMixedGroups)
		}
	}

	first := records[0]
	patientID := strings.TrimSpace(first.Get(source.KeyPatientID).Lexical())
	studyUID := strings.TrimSpace(first.Get(source.KeyStudyInstanceUID).Lexical())

	ds := &model.Dataset{
		Identifier: r.DatasetID(patientID, studyUID),
		PatientID:  patientID,
		StudyUID:   studyUID,
		FileCount:  len(records),
	}
	ds.Title, _ = pick(records, source.KeyStudyDescription)

	// Series partition, ordered by normalized series uid.
	bySeries := make(map[string][]source.Record)
	for _, rec := range records {
		key := Normalize(rec.Get(source.KeySeriesInstanceUID).Lexical())
		bySeries[key] = append(bySeries[key], rec)
	}
	seriesKeys := make([]string, 0, len(bySeries))
	for k := range bySeries {
		seriesKeys = append(seriesKeys, k)
	}
	slices.Sort(seriesKeys)

	modalities := make(map[string]bool)
	institutions := make(map[string]bool)
	var dates []string

	for _, key := range seriesKeys {
		dist := r.resolveSeries(ds, bySeries[key])
		ds.Distributions = append(ds.Distributions, dist)
		if m := dist.Modality.Lexical(); m != "" {
			modalities[m] = true
		}
	}

	for _, rec := range records {
		if inst := strings.TrimSpace(rec.Get(source.KeyInstitutionName).Lexical()); inst != "" {
			institutions[inst] = true
		}
		for _, k := range []source.Key{source.KeyStudyDate, source.KeySeriesDate} {
			raw := rec.Get(k).Lexical()
			if raw == "" {
				continue
			}
			// Compare calendar dates, not source spellings.
			if d, err := mapping.NormalizeDate(raw); err == nil {
				dates = append(dates, d)
			}
		}
	}

	ds.Modalities = sortedKeys(modalities)
	ds.Institutions = sortedKeys(institutions)
	if len(dates) > 0 {
		slices.Sort(dates)
		ds.StartDate = source.StringValue(dates[0])
		ds.EndDate = source.StringValue(dates[len(dates)-1])
	}
	return ds, nil
}

// seriesConstants are expected to agree across every record of a series.
var seriesConstants = []source.Key{
	source.KeyModality,
	source.KeySeriesDescription,
	source.KeySeriesDate,
	source.KeyBodyPart,
	source.KeyManufacturer,
}

func (r *Resolver) resolveSeries(ds *model.Dataset, records []source.Record) *model.Distribution {
	seriesUID := strings.TrimSpace(records[0].Get(source.KeySeriesInstanceUID).Lexical())
	dist := &model.Distribution{
		Identifier: r.DistributionID(ds.Identifier, seriesUID),
		DatasetID:  ds.Identifier,
		SeriesUID:  seriesUID,
		MediaType:  model.MediaTypeDICOM,
	}

	chosen := make(map[source.Key]source.Value, len(seriesConstants))
	for _, k := range seriesConstants {
		v, conflict := pick(records, k)
		chosen[k] = v
		if conflict != nil {
			dist.Conflicts = append(dist.Conflicts, *conflict)
		}
	}
	dist.Modality = chosen[source.KeyModality]
	dist.Title = chosen[source.KeySeriesDescription]
	dist.Issued = chosen[source.KeySeriesDate]
	dist.BodyPart = chosen[source.KeyBodyPart]
	dist.Manufacturer = chosen[source.KeyManufacturer]

	if r.accessTemplate != "" {
		url := strings.NewReplacer("{study}", ds.StudyUID, "{series}", seriesUID).Replace(r.accessTemplate)
		dist.AccessURL = source.StringValue(url)
	}

	files := make([]model.File, 0, len(records))
	for _, rec := range records {
		size, _ := rec.Get(source.KeyFileSize).AsInt()
		sum, _ := rec.Get(source.KeyChecksum).AsString()
		sop := rec.Get(source.KeySOPInstanceUID)
		discriminator := Normalize(sop.Lexical())
		if discriminator == "" {
			discriminator = sum
		}
		files = append(files, model.File{
			Identifier: r.fileID(dist.Identifier, discriminator),
			Ref:        rec.Ref(),
			SOPUID:     sop,
			Size:       size,
			Checksum:   sum,
		})
	}
	slices.SortFunc(files, func(a, b model.File) int {
		if c := strings.Compare(Normalize(a.SOPUID.Lexical()), Normalize(b.SOPUID.Lexical())); c != 0 {
			return c
		}
		return strings.Compare(string(a.Ref), string(b.Ref))
	})

	checksums := make([]string, 0, len(files))
	for _, f := range files {
		dist.ByteSize += f.Size
		if f.Checksum != "" {
			checksums = append(checksums, f.Checksum)
		}
	}
	dist.Files = files
	dist.Checksum = combinedChecksum(checksums)
	return dist
}

// pick chooses the majority value of k; an exact tie goes to the
// lexicographically smallest candidate. Any disagreement yields a conflict.
func pick(records []source.Record, k source.Key) (source.Value, *model.Conflict) {
	counts := make(map[string]int)
	values := make(map[string]source.Value)
	for _, rec := range records {
		v := rec.Get(k)
		lex := strings.TrimSpace(v.Lexical())
		if lex == "" {
			continue
		}
		counts[lex]++
		if _, ok := values[lex]; !ok {
			if v.Kind() == source.KindString {
				v = source.StringValue(lex)
			}
			values[lex] = v
		}
	}
	if len(counts) == 0 {
		return source.Absent(), nil
	}

	best, bestCount, tied := "", 0, false
	for _, lex := range sortedKeys(counts) {
		switch n := counts[lex]; {
		case n > bestCount:
			best, bestCount, tied = lex, n, false
		case n == bestCount:
			tied = true
		}
	}

	chosen := values[best]
	if len(counts) == 1 {
		return chosen, nil
	}
	return chosen, &model.Conflict{Key: k, Chosen: chosen, Counts: counts, Tie: tied}
}

// combinedChecksum digests the sorted member checksums.
func combinedChecksum(checksums []string) string {
	if len(checksums) == 0 {
		return ""
	}
	sorted := slices.Clone(checksums)
	slices.Sort(sorted)
	h := sha256.New()
	for _, c := range sorted {
		h.Write([]byte(c))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
