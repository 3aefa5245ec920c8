package pipeline

import (
	"fmt"
	"slices"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/mapping"
	"github.com/c360studio/semcat/model"
	"github.com/c360studio/semcat/source"
	"github.com/c360studio/semcat/vocabulary/catalog"
)

// CatalogInfo is the configured metadata of the catalog node. Empty fields
// fall back to the mapping table defaults.
type CatalogInfo struct {
	Title       string
	Description string
	Publisher   string
	License     string
	Language    string
	Issued      string
}

// CatalogBuilder derives the dcat:Catalog node from committed datasets.
type CatalogBuilder struct {
	mapper *mapping.Mapper
	id     string
	info   CatalogInfo
}

// NewCatalogBuilder creates a builder for the catalog node identified by id.
func NewCatalogBuilder(mapper *mapping.Mapper, id string, info CatalogInfo) *CatalogBuilder {
	return &CatalogBuilder{mapper: mapper, id: id, info: info}
}

// ID returns the catalog node identifier.
func (b *CatalogBuilder) ID() string { return b.id }

// Catalog resolves the catalog entity over the datasets of view. Modified
// is the latest temporal coverage end of any dataset.
func (b *CatalogBuilder) Catalog(view graph.View) *model.Catalog {
	c := &model.Catalog{
		Identifier:  b.id,
		Title:       source.StringValue(b.info.Title),
		Description: source.StringValue(b.info.Description),
		Publisher:   source.StringValue(b.info.Publisher),
		License:     source.StringValue(b.info.License),
		Language:    source.StringValue(b.info.Language),
		Issued:      source.StringValue(b.info.Issued),
	}

	datasetType := graph.IRI(catalog.ClassDataset)
	for _, st := range view.Match(graph.Pattern{Predicate: catalog.RDFType, Object: &datasetType}) {
		c.Datasets = append(c.Datasets, st.Subject)
	}
	slices.Sort(c.Datasets)
	c.Datasets = slices.Compact(c.Datasets)

	var modified string
	for _, st := range view.Match(graph.Pattern{Predicate: catalog.PropEndDate}) {
		modified = max(modified, st.Object.Value)
	}
	c.Modified = source.StringValue(modified)
	return c
}

// Build returns every statement of view plus the catalog node.
func (b *CatalogBuilder) Build(view graph.View) (*graph.Graph, error) {
	stmts, err := b.mapper.Map(b.Catalog(view))
	if err != nil {
		return nil, fmt.Errorf("map catalog: %w", err)
	}
	return graph.New(view.Graph().Statements(), stmts), nil
}
