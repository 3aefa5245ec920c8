package model

import (
	"github.com/c360studio/semcat/source"
)

// Kind discriminates catalog entities.
type Kind string

// Entity kinds.
const (
	KindCatalog      Kind = "catalog"
	KindDataset      Kind = "dataset"
	KindDistribution Kind = "distribution"
)

// Entity is anything the ontology mapper can translate into statements.
type Entity interface {
	ID() string
	Kind() Kind
	// Values returns the field's values; an empty result means absent.
	Values(f Field) []source.Value
}

// MediaTypeDICOM is the media type of every distribution file.
const MediaTypeDICOM = "application/dicom"

// Conflict records disagreement among records on a value expected to be
// constant within a series.
type Conflict struct {
	Key    source.Key
	Chosen source.Value
	// Counts maps each candidate's lexical value to the number of records carrying it.
	Counts map[string]int
	// Tie is set when the choice fell to the lexicographic rule.
	Tie bool
}

// File is the file-level record kept under a distribution.
type File struct {
	Identifier string
	Ref        source.FileRef
	SOPUID     source.Value
	Size       int64
	Checksum   string
}

// Catalog is the dcat:Catalog node that lists every dataset.
type Catalog struct {
	Identifier    string
	Title         source.Value
	Description   source.Value
	Publisher     source.Value
	License       source.Value
	Language      source.Value
	ThemeTaxonomy source.Value
	ConformsTo    source.Value
	Issued        source.Value
	Modified      source.Value
	// Datasets are dataset identifiers in order.
	Datasets []string
}

// ID implements Entity.
func (c *Catalog) ID() string { return c.Identifier }

// Kind implements Entity.
func (c *Catalog) Kind() Kind { return KindCatalog }

// Values implements Entity.
func (c *Catalog) Values(f Field) []source.Value {
	switch f {
	case FieldIdentifier:
		return []source.Value{source.StringValue(c.Identifier)}
	case FieldTitle:
		return present(c.Title)
	case FieldDescription:
		return present(c.Description)
	case FieldPublisher:
		return present(c.Publisher)
	case FieldLicense:
		return present(c.License)
	case FieldLanguage:
		return present(c.Language)
	case FieldThemeTaxonomy:
		return present(c.ThemeTaxonomy)
	case FieldConformsTo:
		return present(c.ConformsTo)
	case FieldIssued:
		return present(c.Issued)
	case FieldModified:
		return present(c.Modified)
	case FieldDataset:
		return stringValues(c.Datasets)
	default:
		return nil
	}
}

// Dataset is one logical study.
type Dataset struct {
	Identifier   string
	PatientID    string
	StudyUID     string
	Title        source.Value
	Description  source.Value
	Modalities   []string
	StartDate    source.Value
	EndDate      source.Value
	Institutions []string
	FileCount    int

	Distributions []*Distribution
}

// ID implements Entity.
func (d *Dataset) ID() string { return d.Identifier }

// Kind implements Entity.
func (d *Dataset) Kind() Kind { return KindDataset }

// Keywords returns the search keywords for the dataset.
func (d *Dataset) Keywords() []string {
	keywords := append([]string{"DICOM", "Medical Imaging"}, d.Modalities...)
	return keywords
}

// Conflicts returns every conflict flagged on the dataset's distributions.
func (d *Dataset) Conflicts() []Conflict {
	var out []Conflict
	for _, dist := range d.Distributions {
		out = append(out, dist.Conflicts...)
	}
	return out
}

// Values implements Entity.
func (d *Dataset) Values(f Field) []source.Value {
	switch f {
	case FieldIdentifier:
		return []source.Value{source.StringValue(d.Identifier)}
	case FieldTitle:
		return present(d.Title)
	case FieldDescription:
		return present(d.Description)
	case FieldKeyword:
		return stringValues(d.Keywords())
	case FieldModality:
		return stringValues(d.Modalities)
	case FieldModalityCount:
		return []source.Value{source.IntValue(int64(len(d.Modalities)))}
	case FieldStartDate:
		return present(d.StartDate)
	case FieldEndDate:
		return present(d.EndDate)
	case FieldContributorCount:
		return []source.Value{source.IntValue(int64(len(d.Institutions)))}
	case FieldInstitution:
		return stringValues(d.Institutions)
	case FieldFileCount:
		return []source.Value{source.IntValue(int64(d.FileCount))}
	case FieldDistribution:
		refs := make([]source.Value, len(d.Distributions))
		for i, dist := range d.Distributions {
			refs[i] = source.StringValue(dist.Identifier)
		}
		return refs
	case FieldSourceUID:
		return present(source.StringValue(d.StudyUID))
	case FieldConflict:
		return conflictKeys(d.Conflicts())
	default:
		return nil
	}
}

// Distribution is one series of a dataset.
type Distribution struct {
	Identifier   string
	DatasetID    string
	SeriesUID    string
	Title        source.Value
	Modality     source.Value
	Issued       source.Value
	BodyPart     source.Value
	Manufacturer source.Value
	ByteSize     int64
	Checksum     string
	MediaType    string
	AccessURL    source.Value
	Files        []File
	Conflicts    []Conflict
}

// ID implements Entity.
func (d *Distribution) ID() string { return d.Identifier }

// Kind implements Entity.
func (d *Distribution) Kind() Kind { return KindDistribution }

// Values implements Entity.
func (d *Distribution) Values(f Field) []source.Value {
	switch f {
	case FieldIdentifier:
		return []source.Value{source.StringValue(d.Identifier)}
	case FieldTitle:
		return present(d.Title)
	case FieldModality:
		return present(d.Modality)
	case FieldIssued:
		return present(d.Issued)
	case FieldBodyPart:
		return present(d.BodyPart)
	case FieldManufacturer:
		return present(d.Manufacturer)
	case FieldByteSize:
		return []source.Value{source.IntValue(d.ByteSize)}
	case FieldChecksum:
		return present(source.StringValue(d.Checksum))
	case FieldMediaType:
		return present(source.StringValue(d.MediaType))
	case FieldAccessURL:
		return present(d.AccessURL)
	case FieldFileCount:
		return []source.Value{source.IntValue(int64(len(d.Files)))}
	case FieldDataset:
		return present(source.StringValue(d.DatasetID))
	case FieldSourceUID:
		return present(source.StringValue(d.SeriesUID))
	case FieldConflict:
		return conflictKeys(d.Conflicts)
	default:
		return nil
	}
}

// present drops absent and empty values.
func present(v source.Value) []source.Value {
	if v.IsAbsent() || v.Lexical() == "" {
		return nil
	}
	return []source.Value{v}
}

func stringValues(ss []string) []source.Value {
	if len(ss) == 0 {
		return nil
	}
	out := make([]source.Value, len(ss))
	for i, s := range ss {
		out[i] = source.StringValue(s)
	}
	return out
}

func conflictKeys(conflicts []Conflict) []source.Value {
	seen := make(map[source.Key]bool)
	var out []source.Value
	for _, c := range conflicts {
		if seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		out = append(out, source.StringValue(c.Key.String()))
	}
	return out
}

var (
	_ Entity = (*Catalog)(nil)
	_ Entity = (*Dataset)(nil)
	_ Entity = (*Distribution)(nil)
)
