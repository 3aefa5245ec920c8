// Package catalog provides vocabulary predicates for the imaging metadata catalog.
//
// The vocabulary maps resolved imaging studies and series onto DCAT, Dublin Core,
// PROV-O and the Radiation Oncology Ontology (ROO).
//
// # Semstreams Integration
//
// This package follows semstreams vocabulary patterns:
//   - Predicates use three-level dotted notation (domain.category.property)
//   - Predicates are registered in init() using vocabulary.Register()
//   - IRI mappings use vocabulary.WithIRI() so statements carry standard IRIs
//
// # Entity Model
//
//	Dataset (dcat:Dataset, roo:ImagingStudy)       one per (patient, study)
//	  └─ Distribution (dcat:Distribution, roo:ImagingSeries)   one per series
//	       └─ file records (counted, not published)
//
// # Usage
//
// Mapping tables name predicates by their dotted form and resolve the IRI once:
//
//	iri := catalog.IRI(catalog.DatasetTitle) // http://purl.org/dc/terms/title
package catalog
