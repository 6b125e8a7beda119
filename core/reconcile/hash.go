package reconcile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"api-poller/core/apperr"
)

// Normalize selects how a field value is canonicalized before hashing.
type Normalize int

const (
	// Verbatim keeps the value as delivered. Used for identifiers, dates,
	// numbers and booleans.
	Verbatim Normalize = iota
	// Fold trims surrounding whitespace and lowercases string values.
	Fold
)

// FieldRule describes one canonical key of a fingerprint.
type FieldRule struct {
	// Name is the canonical key written into the hashed object.
	Name string

	// Source is the record key the value is read from. Defaults to Name.
	Source string

	// Normalize is applied to string values.
	Normalize Normalize

	// Required makes an absent value a validation error.
	Required bool
}

func (r FieldRule) source() string {
	if r.Source != "" {
		return r.Source
	}
	return r.Name
}

// FieldPolicy is the ordered set of fields that make up a fingerprint.
// The order is part of the hash.
type FieldPolicy []FieldRule

// ConstituentPolicy fingerprints constituent records.
var ConstituentPolicy = FieldPolicy{
	{Name: "external_emp_id"},
	{Name: "full_name", Normalize: Fold},
	{Name: "client_id", Required: true},
	{Name: "mobile_number"},
	{Name: "email", Normalize: Fold},
	{Name: "external_id", Required: true},
	{Name: "active"},
	{Name: "manager_email"},
}

// AccreditationPolicy fingerprints accreditation records.
var AccreditationPolicy = FieldPolicy{
	{Name: "identifier", Source: "certificate_number"},
	{Name: "type", Source: "type_name", Normalize: Fold},
	{Name: "expiry", Source: "date_expire"},
	{Name: "full_name", Normalize: Fold},
	{Name: "external_emp_id"},
	{Name: "client_id"},
}

// Fingerprint returns the lowercase hex SHA-256 of the canonical form of
// record under policy. Fields that are absent, nil, or empty after
// normalization are left out of the canonical form entirely.
func Fingerprint(record Record, policy FieldPolicy) (string, error) {
	canonical, err := Canonicalize(record, policy)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize renders record as a compact JSON object whose keys follow
// policy order.
func Canonicalize(record Record, policy FieldPolicy) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	written := 0
	for _, rule := range policy {
		value, ok := normalizeValue(record[rule.source()], rule.Normalize)
		if !ok {
			if rule.Required {
				return nil, apperr.Invalid(rule.Name, "required field is absent")
			}
			continue
		}

		encoded, err := encodeScalar(value)
		if err != nil {
			return nil, apperr.Invalid(rule.Name, err.Error())
		}
		key, _ := encodeScalar(rule.Name)

		if written > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(encoded)
		written++
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func normalizeValue(v any, mode Normalize) (any, bool) {
	if v == nil {
		return nil, false
	}
	if p, ok := v.(*string); ok {
		if p == nil {
			return nil, false
		}
		v = *p
	}
	s, ok := v.(string)
	if !ok {
		return v, true
	}
	if mode == Fold {
		s = strings.ToLower(strings.TrimSpace(s))
	}
	if s == "" {
		return nil, false
	}
	return s, true
}

// encodeScalar marshals v without HTML escaping and without the trailing
// newline json.Encoder adds.
func encodeScalar(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
