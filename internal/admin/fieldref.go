package admin

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/blumotif/folio/internal/site"
)

// FieldRef addresses a single field in a section document, either at the
// top level (LeafField only) or inside an array element (ArrayField +
// Index + LeafField).
type FieldRef struct {
	Section    string `json:"section"`
	ArrayField string `json:"arrayField,omitempty"`
	Index      int    `json:"index,omitempty"`
	LeafField  string `json:"leafField"`
}

// Validate checks the reference shape; it does not touch storage.
func (r FieldRef) Validate() error {
	if !site.IsSection(r.Section) {
		return NewValidationError("section", fmt.Sprintf("unknown section %q", r.Section))
	}
	if r.LeafField == "" {
		return NewValidationError("leafField", "cannot be empty")
	}
	if r.ArrayField == "" && r.Index != 0 {
		return NewValidationError("index", "set without arrayField")
	}
	if r.Index < 0 {
		return NewValidationError("index", "cannot be negative")
	}
	return nil
}

// IsArray reports whether the reference addresses an array element.
func (r FieldRef) IsArray() bool {
	return r.ArrayField != ""
}

// StoragePath builds a deterministic blob path for an upload bound to this
// field, so re-uploading to the same field overwrites the old blob.
func (r FieldRef) StoragePath() string {
	if r.IsArray() {
		return strings.Join([]string{r.Section, r.ArrayField, strconv.Itoa(r.Index), r.LeafField}, "/")
	}
	return r.Section + "/" + r.LeafField
}

// String renders the reference for logs.
func (r FieldRef) String() string {
	if r.IsArray() {
		return fmt.Sprintf("%s.%s[%d].%s", r.Section, r.ArrayField, r.Index, r.LeafField)
	}
	return r.Section + "." + r.LeafField
}

// patch applies value at the referenced field inside doc and returns the
// top-level field name that changed together with its new raw value.
func (r FieldRef) patch(doc map[string]json.RawMessage, value string) (string, json.RawMessage, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", nil, fmt.Errorf("encode field value: %w", err)
	}

	if !r.IsArray() {
		doc[r.LeafField] = encoded
		return r.LeafField, encoded, nil
	}

	var elements []map[string]json.RawMessage
	if raw, ok := doc[r.ArrayField]; ok && raw != nil {
		if err := json.Unmarshal(raw, &elements); err != nil {
			return "", nil, fmt.Errorf("field %s is not an object array: %w", r.ArrayField, err)
		}
	}
	for len(elements) <= r.Index {
		elements = append(elements, map[string]json.RawMessage{})
	}
	elements[r.Index][r.LeafField] = encoded

	rewritten, err := json.Marshal(elements)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", r.ArrayField, err)
	}
	doc[r.ArrayField] = rewritten
	return r.ArrayField, rewritten, nil
}
