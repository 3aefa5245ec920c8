package source

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed dictionary.yaml
var defaultDictionaryYAML []byte

// Tag is a DICOM data element tag.
type Tag struct {
	Group   uint16
	Element uint16
}

// String renders the tag as (gggg,eeee).
func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// ParseTag accepts "(gggg,eeee)", "gggg,eeee" and "ggggeeee".
func ParseTag(s string) (Tag, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "(")
	raw = strings.TrimSuffix(raw, ")")
	raw = strings.ReplaceAll(raw, ",", "")
	if len(raw) != 8 {
		return Tag{}, fmt.Errorf("invalid tag %q", s)
	}
	group, err := strconv.ParseUint(raw[:4], 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag group in %q: %w", s, err)
	}
	element, err := strconv.ParseUint(raw[4:], 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag element in %q: %w", s, err)
	}
	return Tag{Group: uint16(group), Element: uint16(element)}, nil
}

// MarshalYAML implements yaml.Marshaler.
func (t Tag) MarshalYAML() (any, error) {
	return t.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Tag) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseTag(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// dictionaryFile is the on-disk layout of a dictionary.
type dictionaryFile struct {
	Version    string           `yaml:"version"`
	Vendor     string           `yaml:"vendor"`
	Attributes map[string][]Tag `yaml:"attributes"`
}

// Dictionary maps attribute keys to the source tags that carry them.
// Tags are tried in order; the first present, non-empty tag wins.
type Dictionary struct {
	version string
	vendors []string
	tags    [keyCount][]Tag
}

// DefaultDictionary returns the built-in standard dictionary.
func DefaultDictionary() *Dictionary {
	d, err := ParseDictionary(defaultDictionaryYAML)
	if err != nil {
		panic("invalid built-in dictionary: " + err.Error())
	}
	return d
}

// LoadDictionary reads a dictionary from a YAML file.
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	d, err := ParseDictionary(data)
	if err != nil {
		return nil, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	return d, nil
}

// ParseDictionary decodes a dictionary from YAML. Unknown attribute keys are
// rejected.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var f dictionaryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Version == "" {
		return nil, fmt.Errorf("dictionary version is required")
	}

	d := &Dictionary{version: f.Version}
	if f.Vendor != "" {
		d.vendors = []string{f.Vendor}
	}
	for name, tags := range f.Attributes {
		k, ok := ParseKey(name)
		if !ok {
			return nil, fmt.Errorf("unknown attribute key %q", name)
		}
		d.tags[k] = appendUnique(nil, tags)
	}
	return d, nil
}

// Version returns the dictionary version.
func (d *Dictionary) Version() string { return d.version }

// Vendors lists the vendor dictionaries merged into d, in merge order.
func (d *Dictionary) Vendors() []string { return slices.Clone(d.vendors) }

// Tags returns the source tags for k in lookup order.
func (d *Dictionary) Tags(k Key) []Tag {
	if !k.Valid() {
		return nil
	}
	return slices.Clone(d.tags[k])
}

// Merge returns a new dictionary holding d's entries followed by other's.
// Merging is additive: existing tags keep their priority and nothing is removed.
func (d *Dictionary) Merge(other *Dictionary) *Dictionary {
	merged := &Dictionary{
		version: d.version,
		vendors: slices.Clone(d.vendors),
	}
	for k := range merged.tags {
		merged.tags[k] = slices.Clone(d.tags[k])
	}
	if other == nil {
		return merged
	}
	merged.vendors = append(merged.vendors, other.vendors...)
	for k := range merged.tags {
		merged.tags[k] = appendUnique(merged.tags[k], other.tags[k])
	}
	return merged
}

func appendUnique(dst, src []Tag) []Tag {
	for _, t := range src {
		if !slices.Contains(dst, t) {
			dst = append(dst, t)
		}
	}
	return dst
}
