package model

import (
	"testing"

	"github.com/c360studio/semcat/source"
	"github.com/stretchr/testify/assert"
)

func TestParseField_RoundTrip(t *testing.T) {
	for f := Field(0); f < fieldCount; f++ {
		t.Run(f.String(), func(t *testing.T) {
			got, ok := ParseField(f.String())
			assert.True(t, ok)
			assert.Equal(t, f, got)
		})
	}
	_, ok := ParseField("colour")
	assert.False(t, ok)
	assert.True(t, FieldDistribution.IsReference())
	assert.False(t, FieldTitle.IsReference())
}

func sampleDataset() *Dataset {
	dist := &Distribution{
		Identifier: "urn:dist:1",
		DatasetID:  "urn:ds:1",
		SeriesUID:  "SE1",
		Modality:   source.StringValue("CT"),
		ByteSize:   3072,
		Checksum:   "abc",
		MediaType:  MediaTypeDICOM,
		Files:      []File{{Identifier: "urn:file:1"}, {Identifier: "urn:file:2"}},
		Conflicts: []Conflict{{
			Key:    source.KeyModality,
			Chosen: source.StringValue("CT"),
			Counts: map[string]int{"CT": 2, "MR": 1},
		}},
	}
	return &Dataset{
		Identifier:    "urn:ds:1",
		StudyUID:      "S1",
		Title:         source.StringValue("Chest CT"),
		Modalities:    []string{"CT"},
		Institutions:  []string{"General"},
		FileCount:     2,
		Distributions: []*Distribution{dist},
	}
}

func TestDataset_Values(t *testing.T) {
	ds := sampleDataset()

	tests := []struct {
		field Field
		want  []source.Value
	}{
		{FieldIdentifier, []source.Value{source.StringValue("urn:ds:1")}},
		{FieldTitle, []source.Value{source.StringValue("Chest CT")}},
		{FieldDescription, nil},
		{FieldModality, []source.Value{source.StringValue("CT")}},
		{FieldModalityCount, []source.Value{source.IntValue(1)}},
		{FieldContributorCount, []source.Value{source.IntValue(1)}},
		{FieldFileCount, []source.Value{source.IntValue(2)}},
		{FieldDistribution, []source.Value{source.StringValue("urn:dist:1")}},
		{FieldStartDate, nil},
		{FieldConflict, []source.Value{source.StringValue("modality")}},
		{FieldByteSize, nil},
	}

	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ds.Values(tt.field))
		})
	}

	assert.Equal(t, []string{"DICOM", "Medical Imaging", "CT"}, ds.Keywords())
}

func TestDistribution_Values(t *testing.T) {
	dist := sampleDataset().Distributions[0]

	assert.Equal(t, KindDistribution, dist.Kind())
	assert.Equal(t, []source.Value{source.IntValue(3072)}, dist.Values(FieldByteSize))
	assert.Equal(t, []source.Value{source.StringValue("urn:ds:1")}, dist.Values(FieldDataset))
	assert.Equal(t, []source.Value{source.StringValue(MediaTypeDICOM)}, dist.Values(FieldMediaType))
	assert.Equal(t, []source.Value{source.IntValue(2)}, dist.Values(FieldFileCount))
	assert.Nil(t, dist.Values(FieldAccessURL))
	assert.Nil(t, dist.Values(FieldKeyword))
}

func TestCatalog_Values(t *testing.T) {
	c := &Catalog{
		Identifier: "urn:catalog",
		Title:      source.StringValue("Imaging"),
		License:    source.StringValue("https://creativecommons.org/licenses/by/4.0/"),
		Modified:   source.StringValue("2024-03-01"),
		Datasets:   []string{"urn:ds:1", "urn:ds:2"},
	}

	assert.Equal(t, KindCatalog, c.Kind())
	assert.Equal(t, []source.Value{source.StringValue("urn:catalog")}, c.Values(FieldIdentifier))
	assert.Equal(t, []source.Value{source.StringValue("urn:ds:1"), source.StringValue("urn:ds:2")}, c.Values(FieldDataset))
	assert.Equal(t, []source.Value{source.StringValue("2024-03-01")}, c.Values(FieldModified))
	assert.Nil(t, c.Values(FieldPublisher))
	assert.Nil(t, c.Values(FieldIssued))
	assert.Nil(t, (&Catalog{}).Values(FieldDataset))
}
