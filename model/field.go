// Package model defines the catalog entities produced by entity resolution.
package model

import "strconv"

// Field names an attribute exposed by a catalog entity. The set is closed so
// mapping tables can be checked against it.
type Field uint8

// Entity fields.
const (
	FieldIdentifier Field = iota
	FieldTitle
	FieldDescription
	FieldKeyword
	FieldModality
	FieldModalityCount
	FieldStartDate
	FieldEndDate
	FieldIssued
	FieldByteSize
	FieldChecksum
	FieldMediaType
	FieldFormat
	FieldAccessURL
	FieldContributorCount
	FieldInstitution
	FieldFileCount
	FieldDistribution
	FieldDataset
	FieldManufacturer
	FieldBodyPart
	FieldSourceUID
	FieldConflict
	FieldPublisher
	FieldLicense
	FieldLanguage
	FieldTheme
	FieldThemeTaxonomy
	FieldConformsTo
	FieldAccessRights
	FieldModified

	fieldCount
)

var fieldNames = [fieldCount]string{
	FieldIdentifier:       "identifier",
	FieldTitle:            "title",
	FieldDescription:      "description",
	FieldKeyword:          "keyword",
	FieldModality:         "modality",
	FieldModalityCount:    "modality_count",
	FieldStartDate:        "start_date",
	FieldEndDate:          "end_date",
	FieldIssued:           "issued",
	FieldByteSize:         "byte_size",
	FieldChecksum:         "checksum",
	FieldMediaType:        "media_type",
	FieldFormat:           "format",
	FieldAccessURL:        "access_url",
	FieldContributorCount: "contributor_count",
	FieldInstitution:      "institution",
	FieldFileCount:        "file_count",
	FieldDistribution:     "distribution",
	FieldDataset:          "dataset",
	FieldManufacturer:     "manufacturer",
	FieldBodyPart:         "body_part",
	FieldSourceUID:        "source_uid",
	FieldConflict:         "conflict",
	FieldPublisher:        "publisher",
	FieldLicense:          "license",
	FieldLanguage:         "language",
	FieldTheme:            "theme",
	FieldThemeTaxonomy:    "theme_taxonomy",
	FieldConformsTo:       "conforms_to",
	FieldAccessRights:     "access_rights",
	FieldModified:         "modified",
}

// String returns the snake_case field name.
func (f Field) String() string {
	if !f.Valid() {
		return "field(" + strconv.Itoa(int(f)) + ")"
	}
	return fieldNames[f]
}

// Valid reports whether f is a known field.
func (f Field) Valid() bool { return f < fieldCount }

// ParseField returns the field with the given name.
func ParseField(name string) (Field, bool) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), true
		}
	}
	return 0, false
}

// IsReference reports whether the field's values are entity identifiers.
func (f Field) IsReference() bool {
	return f == FieldDistribution || f == FieldDataset
}
