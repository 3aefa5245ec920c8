package catalog_test

import (
	"testing"

	"github.com/c360studio/semcat/vocabulary/catalog"
	"github.com/c360studio/semstreams/vocabulary"
)

func TestPredicatesRegistered(t *testing.T) {
	predicates := []string{
		catalog.ResourceIdentifier,
		catalog.ResourceTitle,
		catalog.ResourceModality,
		catalog.ResourceConflict,
		catalog.DatasetDistribution,
		catalog.DatasetStartDate,
		catalog.DatasetDerivedFrom,
		catalog.DistributionByteSize,
		catalog.DistributionMediaType,
		catalog.DistributionAccessURL,
		catalog.ResourceLicense,
		catalog.CatalogDataset,
		catalog.CatalogModified,
		catalog.DatasetAccessRights,
	}

	for _, predicate := range predicates {
		t.Run(predicate, func(t *testing.T) {
			meta := vocabulary.GetPredicateMetadata(predicate)
			if meta == nil {
				t.Fatalf("predicate %q not registered", predicate)
			}
			if meta.Description == "" {
				t.Errorf("predicate %q has no description", predicate)
			}
			if meta.DataType == "" {
				t.Errorf("predicate %q has no data type", predicate)
			}
		})
	}
}

func TestPredicateIRIs(t *testing.T) {
	tests := []struct {
		predicate string
		wantIRI   string
	}{
		{catalog.ResourceTitle, "http://purl.org/dc/terms/title"},
		{catalog.DatasetDistribution, "http://www.w3.org/ns/dcat#distribution"},
		{catalog.DistributionByteSize, "http://www.w3.org/ns/dcat#byteSize"},
		{catalog.DatasetDerivedFrom, "http://www.w3.org/ns/prov#wasDerivedFrom"},
		{catalog.ResourceModality, "http://purl.org/roo/ontology#hasModality"},
		{catalog.CatalogDataset, "http://www.w3.org/ns/dcat#dataset"},
		{catalog.ResourceLicense, "http://purl.org/dc/terms/license"},
		{catalog.DatasetTheme, "http://www.w3.org/ns/dcat#theme"},
	}

	for _, tc := range tests {
		t.Run(tc.predicate, func(t *testing.T) {
			if got := catalog.IRI(tc.predicate); got != tc.wantIRI {
				t.Errorf("got IRI %q, want %q", got, tc.wantIRI)
			}
		})
	}
}

func TestIRIFallback(t *testing.T) {
	got := catalog.IRI("catalog.unknown.thing")
	if got != catalog.Namespace+"catalog.unknown.thing" {
		t.Errorf("unexpected fallback IRI %q", got)
	}
	if catalog.IsRegistered("catalog.unknown.thing") {
		t.Error("unknown predicate reported as registered")
	}
}
