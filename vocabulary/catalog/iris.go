package catalog

import "github.com/c360studio/semstreams/vocabulary"

// Namespace is the base IRI prefix for semcat ontology terms.
const Namespace = "https://semcat.dev/ontology/"

// Standard namespaces used by the catalog.
const (
	RDF   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSD   = "http://www.w3.org/2001/XMLSchema#"
	DCAT  = "http://www.w3.org/ns/dcat#"
	DCT   = "http://purl.org/dc/terms/"
	PROV  = "http://www.w3.org/ns/prov#"
	ROO   = "http://purl.org/roo/ontology#"
	SPDX  = "http://spdx.org/rdf/terms#"
	FOAF  = "http://xmlns.com/foaf/0.1/"
	IANA  = "https://www.iana.org/assignments/media-types/"
	OIDNS = "urn:oid:"
)

// RDFType is the rdf:type predicate.
const RDFType = RDF + "type"

// XSD datatype IRIs for typed literals.
const (
	XSDString  = XSD + "string"
	XSDInteger = XSD + "integer"
	XSDDate    = XSD + "date"
	XSDAnyURI  = XSD + "anyURI"
)

// Class IRIs for catalog entities.
const (
	// ClassCatalog is a dcat:Catalog.
	ClassCatalog = DCAT + "Catalog"

	// ClassDataset is a dcat:Dataset. One per imaging study.
	ClassDataset = DCAT + "Dataset"

	// ClassDistribution is a dcat:Distribution. One per imaging series.
	ClassDistribution = DCAT + "Distribution"

	// ClassImagingStudy is the ROO imaging study class.
	ClassImagingStudy = ROO + "ImagingStudy"

	// ClassImagingSeries is the ROO imaging series class.
	ClassImagingSeries = ROO + "ImagingSeries"

	// ClassProvEntity is prov:Entity.
	ClassProvEntity = vocabulary.ProvEntity
)

// Property IRIs referenced outside of predicate registration.
const (
	// PropTitle is dct:title. Every dataset needs at least one.
	PropTitle = vocabulary.DcTitle

	// PropIdentifier is dct:identifier.
	PropIdentifier = vocabulary.DcIdentifier

	// PropDescription is dct:description.
	PropDescription = DCT + "description"

	// PropDistribution is dcat:distribution. Every dataset needs at least one.
	PropDistribution = DCAT + "distribution"

	// PropIsPartOf is dct:isPartOf.
	PropIsPartOf = DCT + "isPartOf"

	// PropKeyword is dcat:keyword.
	PropKeyword = DCAT + "keyword"

	// PropStartDate is dcat:startDate.
	PropStartDate = DCAT + "startDate"

	// PropEndDate is dcat:endDate.
	PropEndDate = DCAT + "endDate"

	// PropIssued is dct:issued.
	PropIssued = DCT + "issued"

	// PropByteSize is dcat:byteSize.
	PropByteSize = DCAT + "byteSize"

	// PropMediaType is dcat:mediaType.
	PropMediaType = DCAT + "mediaType"

	// PropFormat is dct:format.
	PropFormat = DCT + "format"

	// PropAccessURL is dcat:accessURL.
	PropAccessURL = DCAT + "accessURL"

	// PropChecksum is spdx:checksumValue.
	PropChecksum = SPDX + "checksumValue"

	// PropContributor is dct:contributor.
	PropContributor = DCT + "contributor"

	// PropDerivedFrom is prov:wasDerivedFrom.
	PropDerivedFrom = vocabulary.ProvWasDerivedFrom

	// PropSource is dct:source.
	PropSource = vocabulary.DcSource

	// PropHasModality is roo:hasModality.
	PropHasModality = ROO + "hasModality"

	// PropModalityCount is roo:hasModalityCount.
	PropModalityCount = ROO + "hasModalityCount"

	// PropFileCount is roo:hasFileCount.
	PropFileCount = ROO + "hasFileCount"

	// PropBodyPart is roo:hasBodyPart.
	PropBodyPart = ROO + "hasBodyPart"

	// PropContributorCount counts distinct contributing institutions.
	PropContributorCount = Namespace + "contributorCount"

	// PropManufacturer names the acquisition equipment manufacturer.
	PropManufacturer = Namespace + "manufacturer"

	// PropDataset is dcat:dataset, linking a catalog to its datasets.
	PropDataset = DCAT + "dataset"

	// PropModified is dct:modified.
	PropModified = DCT + "modified"

	// PropPublisher is dct:publisher.
	PropPublisher = DCT + "publisher"

	// PropLicense is dct:license.
	PropLicense = DCT + "license"

	// PropLanguage is dct:language.
	PropLanguage = DCT + "language"

	// PropConformsTo is dct:conformsTo.
	PropConformsTo = DCT + "conformsTo"

	// PropAccessRights is dct:accessRights.
	PropAccessRights = DCT + "accessRights"

	// PropTheme is dcat:theme.
	PropTheme = DCAT + "theme"

	// PropThemeTaxonomy is dcat:themeTaxonomy.
	PropThemeTaxonomy = DCAT + "themeTaxonomy"

	// PropConflictingAttribute marks an attribute that disagreed across records.
	PropConflictingAttribute = Namespace + "conflictingAttribute"
)

// Prefixes returns the namespace prefixes used when serializing the catalog.
func Prefixes() map[string]string {
	return map[string]string{
		"rdf":    RDF,
		"xsd":    XSD,
		"dcat":   DCAT,
		"dct":    DCT,
		"prov":   PROV,
		"roo":    ROO,
		"spdx":   SPDX,
		"foaf":   FOAF,
		"semcat": Namespace,
	}
}
