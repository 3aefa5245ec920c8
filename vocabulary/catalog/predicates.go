package catalog

import "github.com/c360studio/semstreams/vocabulary"

// Predicates shared by datasets and distributions.
const (
	// ResourceIdentifier is the stable catalog identifier of the entity.
	ResourceIdentifier = "catalog.resource.identifier"

	// ResourceTitle is the human-readable title.
	ResourceTitle = "catalog.resource.title"

	// ResourceDescription is a free-text description.
	ResourceDescription = "catalog.resource.description"

	// ResourceModality is an imaging modality code (CT, MR, PT, ...).
	ResourceModality = "catalog.resource.modality"

	// ResourceFileCount is the number of files behind the entity.
	ResourceFileCount = "catalog.resource.file_count"

	// ResourceConflict names an attribute whose source values disagreed.
	ResourceConflict = "catalog.resource.conflict"

	// ResourceLicense is the license document IRI.
	ResourceLicense = "catalog.resource.license"

	// ResourceLanguage is a language code.
	ResourceLanguage = "catalog.resource.language"

	// ResourceConformsTo is the IRI of a standard the metadata conforms to.
	ResourceConformsTo = "catalog.resource.conforms_to"

	// ResourcePublisher names the publishing organization.
	ResourcePublisher = "catalog.resource.publisher"
)

// Catalog predicates.
const (
	// CatalogDataset links the catalog to one of its datasets.
	CatalogDataset = "catalog.catalog.dataset"

	// CatalogThemeTaxonomy is the IRI of the theme scheme.
	CatalogThemeTaxonomy = "catalog.catalog.theme_taxonomy"

	// CatalogIssued is the publication date of the catalog.
	CatalogIssued = "catalog.catalog.issued"

	// CatalogModified is the latest change to any listed dataset.
	CatalogModified = "catalog.catalog.modified"
)

// Dataset predicates.
const (
	// DatasetKeyword is a search keyword.
	DatasetKeyword = "catalog.dataset.keyword"

	// DatasetTheme is a theme IRI.
	DatasetTheme = "catalog.dataset.theme"

	// DatasetAccessRights is the access rights IRI.
	DatasetAccessRights = "catalog.dataset.access_rights"

	// DatasetDistribution links a dataset to one of its distributions.
	DatasetDistribution = "catalog.dataset.distribution"

	// DatasetStartDate is the start of temporal coverage (xsd:date).
	DatasetStartDate = "catalog.dataset.start_date"

	// DatasetEndDate is the end of temporal coverage (xsd:date).
	DatasetEndDate = "catalog.dataset.end_date"

	// DatasetModalityCount is the number of distinct modalities.
	DatasetModalityCount = "catalog.dataset.modality_count"

	// DatasetContributorCount is the number of distinct contributing institutions.
	DatasetContributorCount = "catalog.dataset.contributor_count"

	// DatasetContributor names a contributing institution.
	DatasetContributor = "catalog.dataset.contributor"

	// DatasetDerivedFrom links the dataset to the source study it was derived from.
	DatasetDerivedFrom = "catalog.dataset.derived_from"
)

// Distribution predicates.
const (
	// DistributionDataset links a distribution back to its owning dataset.
	DistributionDataset = "catalog.distribution.dataset"

	// DistributionByteSize is the total size in bytes.
	DistributionByteSize = "catalog.distribution.byte_size"

	// DistributionChecksum is a SHA-256 digest over the member file checksums.
	DistributionChecksum = "catalog.distribution.checksum"

	// DistributionMediaType is the IANA media type.
	DistributionMediaType = "catalog.distribution.media_type"

	// DistributionFormat is the file format label.
	DistributionFormat = "catalog.distribution.format"

	// DistributionAccessURL is where the files can be retrieved.
	DistributionAccessURL = "catalog.distribution.access_url"

	// DistributionIssued is the acquisition date of the series (xsd:date).
	DistributionIssued = "catalog.distribution.issued"

	// DistributionBodyPart is the examined body part.
	DistributionBodyPart = "catalog.distribution.body_part"

	// DistributionManufacturer is the equipment manufacturer.
	DistributionManufacturer = "catalog.distribution.manufacturer"

	// DistributionSource links the series to its source UID.
	DistributionSource = "catalog.distribution.source"
)

// IRI returns the standard IRI registered for a dotted predicate.
// Unregistered predicates fall back to the semcat namespace.
func IRI(predicate string) string {
	if meta := vocabulary.GetPredicateMetadata(predicate); meta != nil && meta.StandardIRI != "" {
		return meta.StandardIRI
	}
	return Namespace + predicate
}

// IsRegistered reports whether a dotted predicate has been registered.
func IsRegistered(predicate string) bool {
	return vocabulary.GetPredicateMetadata(predicate) != nil
}

func init() {
	// Shared predicates
	vocabulary.Register(ResourceIdentifier,
		vocabulary.WithDescription("Stable catalog identifier"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropIdentifier))

	vocabulary.Register(ResourceTitle,
		vocabulary.WithDescription("Human-readable title"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropTitle))

	vocabulary.Register(ResourceDescription,
		vocabulary.WithDescription("Free-text description"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropDescription))

	vocabulary.Register(ResourceModality,
		vocabulary.WithDescription("Imaging modality code"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropHasModality))

	vocabulary.Register(ResourceFileCount,
		vocabulary.WithDescription("Number of files behind the entity"),
		vocabulary.WithDataType("int"),
		vocabulary.WithRange("positive"),
		vocabulary.WithIRI(PropFileCount))

	vocabulary.Register(ResourceConflict,
		vocabulary.WithDescription("Attribute whose source values disagreed during resolution"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropConflictingAttribute))

	vocabulary.Register(ResourceLicense,
		vocabulary.WithDescription("License document"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropLicense))

	vocabulary.Register(ResourceLanguage,
		vocabulary.WithDescription("Language code"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropLanguage))

	vocabulary.Register(ResourceConformsTo,
		vocabulary.WithDescription("Standard the metadata conforms to"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropConformsTo))

	vocabulary.Register(ResourcePublisher,
		vocabulary.WithDescription("Publishing organization"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropPublisher))

	// Catalog predicates
	vocabulary.Register(CatalogDataset,
		vocabulary.WithDescription("Dataset listed in the catalog"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropDataset))

	vocabulary.Register(CatalogThemeTaxonomy,
		vocabulary.WithDescription("Theme scheme of the catalog"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropThemeTaxonomy))

	vocabulary.Register(CatalogIssued,
		vocabulary.WithDescription("Publication date of the catalog"),
		vocabulary.WithDataType("time.Time"),
		vocabulary.WithIRI(PropIssued))

	vocabulary.Register(CatalogModified,
		vocabulary.WithDescription("Latest change to a listed dataset"),
		vocabulary.WithDataType("time.Time"),
		vocabulary.WithIRI(PropModified))

	// Dataset predicates
	vocabulary.Register(DatasetKeyword,
		vocabulary.WithDescription("Search keyword"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropKeyword))

	vocabulary.Register(DatasetTheme,
		vocabulary.WithDescription("Theme of the dataset"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropTheme))

	vocabulary.Register(DatasetAccessRights,
		vocabulary.WithDescription("Access rights of the dataset"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropAccessRights))

	vocabulary.Register(DatasetDistribution,
		vocabulary.WithDescription("Distribution of the dataset"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropDistribution))

	vocabulary.Register(DatasetStartDate,
		vocabulary.WithDescription("Start of temporal coverage"),
		vocabulary.WithDataType("time.Time"),
		vocabulary.WithIRI(PropStartDate))

	vocabulary.Register(DatasetEndDate,
		vocabulary.WithDescription("End of temporal coverage"),
		vocabulary.WithDataType("time.Time"),
		vocabulary.WithIRI(PropEndDate))

	vocabulary.Register(DatasetModalityCount,
		vocabulary.WithDescription("Number of distinct modalities"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(PropModalityCount))

	vocabulary.Register(DatasetContributorCount,
		vocabulary.WithDescription("Number of distinct contributing institutions"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(PropContributorCount))

	vocabulary.Register(DatasetContributor,
		vocabulary.WithDescription("Contributing institution"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropContributor))

	vocabulary.Register(DatasetDerivedFrom,
		vocabulary.WithDescription("Source study the dataset was derived from"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropDerivedFrom))

	// Distribution predicates
	vocabulary.Register(DistributionDataset,
		vocabulary.WithDescription("Dataset that owns the distribution"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropIsPartOf))

	vocabulary.Register(DistributionByteSize,
		vocabulary.WithDescription("Total size in bytes"),
		vocabulary.WithDataType("int"),
		vocabulary.WithUnits("bytes"),
		vocabulary.WithIRI(PropByteSize))

	vocabulary.Register(DistributionChecksum,
		vocabulary.WithDescription("SHA-256 digest over member file checksums"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropChecksum))

	vocabulary.Register(DistributionMediaType,
		vocabulary.WithDescription("IANA media type"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropMediaType))

	vocabulary.Register(DistributionFormat,
		vocabulary.WithDescription("File format label"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropFormat))

	vocabulary.Register(DistributionAccessURL,
		vocabulary.WithDescription("Retrieval URL"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropAccessURL))

	vocabulary.Register(DistributionIssued,
		vocabulary.WithDescription("Acquisition date of the series"),
		vocabulary.WithDataType("time.Time"),
		vocabulary.WithIRI(PropIssued))

	vocabulary.Register(DistributionBodyPart,
		vocabulary.WithDescription("Examined body part"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropBodyPart))

	vocabulary.Register(DistributionManufacturer,
		vocabulary.WithDescription("Acquisition equipment manufacturer"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropManufacturer))

	vocabulary.Register(DistributionSource,
		vocabulary.WithDescription("Source series UID"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(PropSource))
}
