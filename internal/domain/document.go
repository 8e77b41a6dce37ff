package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
)

// Resource type discriminators the bridge inspects.
const (
	ResourceTypeOperationOutcome = "OperationOutcome"
	ResourceTypeBundle           = "Bundle"
	ResourceTypePatient          = "Patient"
)

// Document is a decoded FHIR JSON object (a resource, a Bundle or an
// OperationOutcome). Fields are read through the accessor methods, which
// fall back to a supplied default when a field is missing or has an
// unexpected shape.
type Document map[string]any

// ResourceType returns the resourceType discriminator, or "" when absent.
func (d Document) ResourceType() string {
	return d.String("resourceType", "")
}

// Has reports whether key is present, whatever its value.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String returns the string at key, or fallback.
func (d Document) String(key, fallback string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return fallback
}

// Int returns the integer at key, or fallback. JSON numbers decode as
// float64, so integral floats are accepted; fractional ones are not.
func (d Document) Int(key string, fallback int) int {
	switch v := d[key].(type) {
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}

// Object returns the nested object at key, or nil.
func (d Document) Object(key string) Document {
	return asDocument(d[key])
}

// Objects returns the object elements of the array at key. Non-object
// elements are skipped.
func (d Document) Objects(key string) []Document {
	var out []Document
	switch v := d[key].(type) {
	case []any:
		for _, item := range v {
			if doc := asDocument(item); doc != nil {
				out = append(out, doc)
			}
		}
	case []map[string]any:
		for _, item := range v {
			out = append(out, Document(item))
		}
	case []Document:
		out = append(out, v...)
	}
	return out
}

// Strings returns the string elements of the array at key.
func (d Document) Strings(key string) []string {
	var out []string
	switch v := d[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, v...)
	}
	return out
}

// Len returns the length of the array at key (0 when absent).
func (d Document) Len(key string) int {
	switch v := d[key].(type) {
	case []any:
		return len(v)
	case []map[string]any:
		return len(v)
	case []Document:
		return len(v)
	}
	return 0
}

func asDocument(v any) Document {
	switch m := v.(type) {
	case map[string]any:
		return Document(m)
	case Document:
		return m
	}
	return nil
}

// ReferenceID returns the id part of a relative reference such as
// "Patient/123". ok is false when the reference has no "/".
func ReferenceID(reference string) (id string, ok bool) {
	i := strings.LastIndex(reference, "/")
	if i < 0 {
		return "", false
	}
	return reference[i+1:], true
}

// SubjectReference returns subject.reference of a resource, if present.
func (d Document) SubjectReference() (string, bool) {
	subject := d.Object("subject")
	if subject == nil || !subject.Has("reference") {
		return "", false
	}
	ref, ok := subject["reference"].(string)
	return ref, ok
}

// Entries returns the resources wrapped by a Bundle's entries. Entries
// without a resource are skipped.
func (d Document) Entries() []Document {
	var resources []Document
	for _, entry := range d.Objects("entry") {
		if res := entry.Object("resource"); res != nil {
			resources = append(resources, res)
		}
	}
	return resources
}

// HasLink reports whether any Bundle link carries the given relation.
func (d Document) HasLink(relation string) bool {
	for _, link := range d.Objects("link") {
		if link.String("relation", "") == relation {
			return true
		}
	}
	return false
}

// SortedKeys returns the keys of a string set in ascending order.
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
