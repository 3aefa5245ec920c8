package mapping

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/c360studio/semcat/model"
	"github.com/c360studio/semcat/vocabulary/catalog"
)

// AbsencePolicy decides what happens when a rule's field has no usable value.
type AbsencePolicy uint8

// Absence policies.
const (
	// PolicyOmit drops the statement.
	PolicyOmit AbsencePolicy = iota + 1
	// PolicyDefault emits the rule's default literal instead.
	PolicyDefault
	// PolicyFail aborts the entity's mapping with a MappingPolicyError.
	PolicyFail
)

func (p AbsencePolicy) String() string {
	switch p {
	case PolicyOmit:
		return "omit"
	case PolicyDefault:
		return "default-literal"
	case PolicyFail:
		return "fail"
	default:
		return "policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// Rule maps one entity field to one predicate.
type Rule struct {
	// Predicate is a registered dotted predicate name.
	Predicate string
	Field     model.Field
	Transform Transform
	Absent    AbsencePolicy
	// Default is the value transformed and emitted under PolicyDefault.
	Default string
}

// Table is one revision of the mapping from entities to statements.
type Table struct {
	Version string
	// Classes lists the rdf:type IRIs asserted for each entity kind.
	Classes map[model.Kind][]string
	Rules   map[model.Kind][]Rule
}

// Validate checks that every rule is well formed and names a registered
// predicate.
func (t *Table) Validate() error {
	if t.Version == "" {
		return errors.New("mapping table version is required")
	}

	var errs []error
	for _, kind := range t.kinds() {
		if len(t.Classes[kind]) == 0 {
			errs = append(errs, fmt.Errorf("%s: no classes", kind))
		}
		if len(t.Rules[kind]) == 0 {
			errs = append(errs, fmt.Errorf("%s: no rules", kind))
		}
		for i, r := range t.Rules[kind] {
			if err := r.validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s rule %d (%s): %w", kind, i, r.Predicate, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("mapping table %s: %w", t.Version, errors.Join(errs...))
	}
	return nil
}

// kinds returns the dataset and distribution kinds, which every table must
// map, plus any other kind the table names, in order.
func (t *Table) kinds() []model.Kind {
	kinds := []model.Kind{model.KindDataset, model.KindDistribution}
	for k := range t.Classes {
		if !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}
	for k := range t.Rules {
		if !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}
	slices.Sort(kinds)
	return kinds
}

func (r Rule) validate() error {
	if !catalog.IsRegistered(r.Predicate) {
		return fmt.Errorf("predicate %q is not registered", r.Predicate)
	}
	if !r.Field.Valid() {
		return fmt.Errorf("unknown field %s", r.Field)
	}
	if !r.Transform.Kind.Valid() {
		return fmt.Errorf("unknown transform %s", r.Transform.Kind)
	}
	if r.Transform.Kind == TransformURITemplate && !strings.Contains(r.Transform.Template, templateValue) {
		return fmt.Errorf("uri-template %q lacks %s", r.Transform.Template, templateValue)
	}
	if (r.Transform.Kind == TransformReference) != r.Field.IsReference() {
		return fmt.Errorf("reference transform and field %s disagree", r.Field)
	}
	switch r.Absent {
	case PolicyOmit, PolicyFail:
	case PolicyDefault:
		if r.Default == "" {
			return errors.New("default-literal policy needs a default")
		}
	default:
		return fmt.Errorf("unknown absence policy %s", r.Absent)
	}
	return nil
}

// DefaultVersion is the table revision used when none is configured.
const DefaultVersion = "2024.1"

var tables = map[string]*Table{
	"2024.1": table2024(),
	"2025.1": table2025(),
}

// Versions lists the built-in table revisions in order.
func Versions() []string {
	versions := make([]string, 0, len(tables))
	for v := range tables {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions
}

// Lookup returns the built-in table for version. The table is shared and
// must not be modified.
func Lookup(version string) (*Table, error) {
	t, ok := tables[version]
	if !ok {
		return nil, fmt.Errorf("unknown mapping table version %q (known: %s)", version, strings.Join(Versions(), ", "))
	}
	return t, nil
}

// Defaults for catalog-level metadata.
const (
	DefaultCatalogTitle  = "Imaging Metadata Catalog"
	DefaultLicense       = "https://creativecommons.org/licenses/by-nc/4.0/"
	DefaultLanguage      = "en"
	DefaultThemeTaxonomy = "http://purl.org/roo/themes"
	DefaultTheme         = "http://purl.org/roo/themes/radiation-oncology"
	DefaultAccessRights  = "http://purl.org/coar/access_right/c_16ec"
	DefaultConformsTo    = "http://purl.org/roo/ontology"
)

// iri emits a value that already is an absolute IRI.
var iri = URITemplate(templateValue)

// table2024 is the core DCAT mapping.
func table2024() *Table {
	return &Table{
		Version: "2024.1",
		Classes: map[model.Kind][]string{
			model.KindCatalog:      {catalog.ClassCatalog},
			model.KindDataset:      {catalog.ClassDataset},
			model.KindDistribution: {catalog.ClassDistribution},
		},
		Rules: map[model.Kind][]Rule{
			model.KindCatalog: {
				{Predicate: catalog.ResourceIdentifier, Field: model.FieldIdentifier, Transform: Identity(), Absent: PolicyFail},
				{Predicate: catalog.ResourceTitle, Field: model.FieldTitle, Transform: Identity(), Absent: PolicyDefault, Default: DefaultCatalogTitle},
				{Predicate: catalog.ResourceDescription, Field: model.FieldDescription, Transform: Identity(), Absent: PolicyOmit},
				{Predicate: catalog.ResourcePublisher, Field: model.FieldPublisher, Transform: Identity(), Absent: PolicyOmit},
				{Predicate: catalog.ResourceLicense, Field: model.FieldLicense, Transform: iri, Absent: PolicyDefault, Default: DefaultLicense},
				{Predicate: catalog.ResourceLanguage, Field: model.FieldLanguage, Transform: Identity(), Absent: PolicyDefault, Default: DefaultLanguage},
				{Predicate: catalog.CatalogThemeTaxonomy, Field: model.FieldThemeTaxonomy, Transform: iri, Absent: PolicyDefault, Default: DefaultThemeTaxonomy},
				{Predicate: catalog.ResourceConformsTo, Field: model.FieldConformsTo, Transform: iri, Absent: PolicyDefault, Default: DefaultConformsTo},
				{Predicate: catalog.CatalogIssued, Field: model.FieldIssued, Transform: DateParse(), Absent: PolicyOmit},
				{Predicate: catalog.CatalogModified, Field: model.FieldModified, Transform: DateParse(), Absent: PolicyOmit},
				{Predicate: catalog.CatalogDataset, Field: model.FieldDataset, Transform: Reference(), Absent: PolicyOmit},
			},
			model.KindDataset: {
				{Predicate: catalog.ResourceIdentifier, Field: model.FieldIdentifier, Transform: Identity(), Absent: PolicyFail},
				{Predicate: catalog.ResourceTitle, Field: model.FieldTitle, Transform: Identity(), Absent: PolicyDefault, Default: "Untitled imaging study"},
				{Predicate: catalog.ResourceDescription, Field: model.FieldDescription, Transform: Identity(), Absent: PolicyOmit},
				{Predicate: catalog.DatasetKeyword, Field: model.FieldKeyword, Transform: Identity(), Absent: PolicyOmit},
				{Predicate: catalog.ResourceModality, Field: model.FieldModality, Transform: Identity(), Absent: PolicyOmit},
				{Predicate: catalog.DatasetStartDate, Field: model.FieldStartDate, Transform: DateParse(), Absent: PolicyOmit},
				{Predicate: catalog.DatasetEndDate, Field: model.FieldEndDate, Transform: DateParse(), Absent: PolicyOmit},
				{Predicate: catalog.DatasetContributorCount, Field: model.FieldContributorCount, Transform: Identity(), Absent: PolicyOmit},
				{Predicate: catalog.DatasetDistribution, Field: model.FieldDistribution, Transform: Reference(), Absent: PolicyOmit},
				{Predicate: catalog.ResourceConflict, Field: model.FieldConflict, Transform: Identity(), Absent: PolicyOmit},
			},
			model.KindDistribution: {
				{Predicate: catalog.ResourceIdentifier, Field: model.FieldIdentifier, Transform: Identity(), Absent: PolicyFail},
				{Predicate: catalog.ResourceTitle, Field: model.FieldTitle, Transform: Identity(), Absent: PolicyDefault, Default: "DICOM Files"},
				{Predicate: catalog.DistributionDataset, Field: model.FieldDataset, Transform: Reference(), Absent: PolicyFail},
				{Predicate: catalog.DistributionByteSize, Field: model.FieldByteSize, Transform: UnitNormalize(), Absent: PolicyFail},
				{Predicate: catalog.DistributionChecksum, Field: model.FieldChecksum, Transform: Identity(), Absent: PolicyOmit},
				{Predicate: catalog.DistributionMediaType, Field: model.FieldMediaType, Transform: URITemplate(catalog.IANA + templateValue), Absent: PolicyDefault, Default: model.MediaTypeDICOM},
				{Predicate: catalog.DistributionFormat, Field: model.FieldFormat, Transform: Identity(), Absent: PolicyDefault, Default: "DICOM"},
				{Predicate: catalog.DistributionAccessURL, Field: model.FieldAccessURL, Transform: anyURI, Absent: PolicyOmit},
				{Predicate: catalog.DistributionIssued, Field: model.FieldIssued, Transform: DateParse(), Absent: PolicyOmit},
				{Predicate: catalog.ResourceModality, Field: model.FieldModality, Transform: Identity(), Absent: PolicyOmit},
				{Predicate: catalog.ResourceConflict, Field: model.FieldConflict, Transform: Identity(), Absent: PolicyOmit},
			},
		},
	}
}

// table2025 extends 2024.1 with provenance and ROO imaging metadata.
func table2025() *Table {
	t := table2024()
	t.Version = "2025.1"

	t.Classes[model.KindDataset] = append(t.Classes[model.KindDataset],
		catalog.ClassImagingStudy, catalog.ClassProvEntity)
	t.Classes[model.KindDistribution] = append(t.Classes[model.KindDistribution],
		catalog.ClassImagingSeries, catalog.ClassProvEntity)

	t.Rules[model.KindDataset] = append(t.Rules[model.KindDataset],
		Rule{Predicate: catalog.DatasetModalityCount, Field: model.FieldModalityCount, Transform: Identity(), Absent: PolicyOmit},
		Rule{Predicate: catalog.ResourceFileCount, Field: model.FieldFileCount, Transform: Identity(), Absent: PolicyOmit},
		Rule{Predicate: catalog.DatasetContributor, Field: model.FieldInstitution, Transform: Identity(), Absent: PolicyOmit},
		Rule{Predicate: catalog.DatasetDerivedFrom, Field: model.FieldSourceUID, Transform: URITemplate(catalog.OIDNS + templateValue), Absent: PolicyOmit},
		Rule{Predicate: catalog.ResourceLicense, Field: model.FieldLicense, Transform: iri, Absent: PolicyDefault, Default: DefaultLicense},
		Rule{Predicate: catalog.DatasetAccessRights, Field: model.FieldAccessRights, Transform: iri, Absent: PolicyDefault, Default: DefaultAccessRights},
		Rule{Predicate: catalog.ResourceLanguage, Field: model.FieldLanguage, Transform: Identity(), Absent: PolicyDefault, Default: DefaultLanguage},
		Rule{Predicate: catalog.DatasetTheme, Field: model.FieldTheme, Transform: iri, Absent: PolicyDefault, Default: DefaultTheme},
		Rule{Predicate: catalog.ResourceConformsTo, Field: model.FieldConformsTo, Transform: iri, Absent: PolicyDefault, Default: DefaultConformsTo},
	)

	t.Rules[model.KindDistribution] = append(t.Rules[model.KindDistribution],
		Rule{Predicate: catalog.ResourceFileCount, Field: model.FieldFileCount, Transform: Identity(), Absent: PolicyOmit},
		Rule{Predicate: catalog.DistributionBodyPart, Field: model.FieldBodyPart, Transform: Identity(), Absent: PolicyOmit},
		Rule{Predicate: catalog.DistributionManufacturer, Field: model.FieldManufacturer, Transform: Identity(), Absent: PolicyOmit},
		Rule{Predicate: catalog.DistributionSource, Field: model.FieldSourceUID, Transform: URITemplate(catalog.OIDNS + templateValue), Absent: PolicyOmit},
	)
	return t
}
