// Package source extracts typed attribute records from imaging files.
package source

import (
	"strconv"
)

// Key identifies one attribute in the fixed extraction vocabulary.
type Key uint8

// Attribute keys. The order defines the record layout.
const (
	KeyPatientID Key = iota
	KeyStudyInstanceUID
	KeySeriesInstanceUID
	KeySOPInstanceUID
	KeyModality
	KeyStudyDate
	KeySeriesDate
	KeyStudyDescription
	KeySeriesDescription
	KeyBodyPart
	KeyInstitutionName
	KeyManufacturer
	KeyManufacturerModel
	KeyRows
	KeyColumns
	KeyFileSize
	KeyChecksum

	keyCount
)

// ValueKind discriminates the representation of a Value.
type ValueKind uint8

// Value kinds.
const (
	KindAbsent ValueKind = iota
	KindString
	KindInteger
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	default:
		return "absent"
	}
}

type keyInfo struct {
	name string
	kind ValueKind
}

var keyTable = [keyCount]keyInfo{
	KeyPatientID:         {"patient_id", KindString},
	KeyStudyInstanceUID:  {"study_instance_uid", KindString},
	KeySeriesInstanceUID: {"series_instance_uid", KindString},
	KeySOPInstanceUID:    {"sop_instance_uid", KindString},
	KeyModality:          {"modality", KindString},
	KeyStudyDate:         {"study_date", KindString},
	KeySeriesDate:        {"series_date", KindString},
	KeyStudyDescription:  {"study_description", KindString},
	KeySeriesDescription: {"series_description", KindString},
	KeyBodyPart:          {"body_part", KindString},
	KeyInstitutionName:   {"institution_name", KindString},
	KeyManufacturer:      {"manufacturer", KindString},
	KeyManufacturerModel: {"manufacturer_model", KindString},
	KeyRows:              {"rows", KindInteger},
	KeyColumns:           {"columns", KindInteger},
	KeyFileSize:          {"file_size", KindInteger},
	KeyChecksum:          {"checksum", KindString},
}

// RequiredKeys are the identifying keys every record should carry.
var RequiredKeys = []Key{KeyPatientID, KeyStudyInstanceUID, KeySeriesInstanceUID, KeyModality}

// String returns the snake_case name of the key.
func (k Key) String() string {
	if !k.Valid() {
		return "key(" + strconv.Itoa(int(k)) + ")"
	}
	return keyTable[k].name
}

// Kind returns the value kind the key carries when present.
func (k Key) Kind() ValueKind {
	if !k.Valid() {
		return KindAbsent
	}
	return keyTable[k].kind
}

// Valid reports whether k is a member of the key vocabulary.
func (k Key) Valid() bool {
	return k < keyCount
}

// Keys returns every key in record order.
func Keys() []Key {
	keys := make([]Key, keyCount)
	for i := range keys {
		keys[i] = Key(i)
	}
	return keys
}

// ParseKey returns the key with the given snake_case name.
func ParseKey(name string) (Key, bool) {
	for i, info := range keyTable {
		if info.name == name {
			return Key(i), true
		}
	}
	return 0, false
}

// Value is a scalar attribute value. The zero Value is absent.
type Value struct {
	kind ValueKind
	str  string
	num  int64
}

// Absent returns the absent value.
func Absent() Value { return Value{} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntValue wraps an integer.
func IntValue(n int64) Value { return Value{kind: KindInteger, num: n} }

// Kind returns the representation of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether v carries no value.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) {
	return v.num, v.kind == KindInteger
}

// Lexical returns the textual form of v, or "" when absent.
func (v Value) Lexical() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	default:
		return ""
	}
}

func (v Value) String() string {
	if v.kind == KindAbsent {
		return "<absent>"
	}
	return v.Lexical()
}

// Compare orders values: absent < integer < string, integers numerically
// and strings bytewise.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindInteger:
		switch {
		case v.num < o.num:
			return -1
		case v.num > o.num:
			return 1
		}
		return 0
	case KindString:
		switch {
		case v.str < o.str:
			return -1
		case v.str > o.str:
			return 1
		}
	}
	return 0
}

// FileRef identifies one physical file handed to the extractor.
type FileRef string

// Record is the immutable set of attributes extracted from one file.
type Record struct {
	ref    FileRef
	values [keyCount]Value
}

// NewRecord builds a record. Keys outside the vocabulary are ignored.
func NewRecord(ref FileRef, values map[Key]Value) Record {
	r := Record{ref: ref}
	for k, v := range values {
		if k.Valid() {
			r.values[k] = v
		}
	}
	return r
}

// Ref returns the file the record was extracted from.
func (r Record) Ref() FileRef { return r.ref }

// Get returns the value for k, absent when unset.
func (r Record) Get(k Key) Value {
	if !k.Valid() {
		return Absent()
	}
	return r.values[k]
}

// With returns a copy of r with k set to v.
func (r Record) With(k Key, v Value) Record {
	if k.Valid() {
		r.values[k] = v
	}
	return r
}

// Missing returns the subset of keys that are absent in r.
func (r Record) Missing(keys ...Key) []Key {
	var missing []Key
	for _, k := range keys {
		if r.Get(k).IsAbsent() {
			missing = append(missing, k)
		}
	}
	return missing
}
