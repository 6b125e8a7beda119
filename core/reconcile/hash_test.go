package reconcile

import (
	"testing"

	"api-poller/core/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCanonicalize(t *testing.T) {
	record := Record{
		"active":          true,
		"external_id":     "x1",
		"email":           "  Jane@Example.com ",
		"client_id":       "c1",
		"full_name":       " Jane Doe",
		"external_emp_id": "E1",
		"mobile_number":   nil,
		"manager_email":   "",
	}

	got, err := Canonicalize(record, ConstituentPolicy)
	require.NoError(t, err)
	assert.Equal(t,
		`{"external_emp_id":"E1","full_name":"jane doe","client_id":"c1","email":"jane@example.com","external_id":"x1","active":true}`,
		string(got))
}

func TestFingerprint_KnownVectors(t *testing.T) {
	t.Run("constituent", func(t *testing.T) {
		c := Constituent{
			ExternalEmpID: strPtr("E1"),
			FullName:      strPtr("Jane Doe"),
			ClientID:      "c1",
			Email:         strPtr("JANE@example.com"),
			ExternalID:    "x1",
			Active:        boolPtr(true),
		}
		fp, err := Fingerprint(c.Record(), ConstituentPolicy)
		require.NoError(t, err)
		assert.Equal(t, "096cb389d64e5438bb6b3bd0e40e2f22a66d1787b1e92b3ce9ea1930dd5ee9fc", fp)
	})

	t.Run("accreditation", func(t *testing.T) {
		a := Accreditation{
			CertificateNumber: strPtr("C-1"),
			FullName:          strPtr("Jane Doe "),
			TypeName:          strPtr(" First Aid"),
			MappedType:        strPtr("first-aid"),
			DateExpire:        strPtr("2027-01-01"),
			ExternalEmpID:     strPtr("E1"),
			ClientID:          "c1",
		}
		fp, err := Fingerprint(a.Record(), AccreditationPolicy)
		require.NoError(t, err)
		assert.Equal(t, "6cf48b5c8376e3c690d20e5332764c5cbeb771a0ecb4f3de3ba339d55cf223b0", fp)
	})
}

func TestFingerprint_Properties(t *testing.T) {
	base := Record{
		"external_emp_id": "E1",
		"full_name":       "Jane Doe",
		"client_id":       "c1",
		"email":           "jane@example.com",
		"external_id":     "x1",
		"active":          true,
	}

	ref, err := Fingerprint(base, ConstituentPolicy)
	require.NoError(t, err)
	assert.Len(t, ref, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", ref)

	tests := []struct {
		name  string
		edit  func(Record)
		equal bool
	}{
		{"case and whitespace in folded fields", func(r Record) {
			r["full_name"] = "  JANE doe  "
			r["email"] = "Jane@Example.COM"
		}, true},
		{"explicit nil equals absent", func(r Record) { r["mobile_number"] = nil }, true},
		{"empty string equals absent", func(r Record) { r["manager_email"] = "   " }, true},
		{"fields outside the policy are ignored", func(r Record) { r["location"] = "Perth" }, true},
		{"verbatim field case matters", func(r Record) { r["external_emp_id"] = "e1" }, false},
		{"active flag matters", func(r Record) { r["active"] = false }, false},
		{"manager reference matters", func(r Record) { r["manager_email"] = "boss@example.com" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{}
			for k, v := range base {
				r[k] = v
			}
			tt.edit(r)

			fp, err := Fingerprint(r, ConstituentPolicy)
			require.NoError(t, err)
			if tt.equal {
				assert.Equal(t, ref, fp)
			} else {
				assert.NotEqual(t, ref, fp)
			}
		})
	}
}

func TestFingerprint_RequiredFields(t *testing.T) {
	_, err := Fingerprint(Record{"client_id": "c1"}, ConstituentPolicy)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "external_id")

	_, err = Fingerprint(Record{"external_id": "x1", "client_id": " "}, ConstituentPolicy)
	require.NoError(t, err, "verbatim whitespace is still a value")
}

func TestCanonicalize_NoHTMLEscaping(t *testing.T) {
	got, err := Canonicalize(Record{"client_id": "a&b<c>"}, FieldPolicy{{Name: "client_id"}})
	require.NoError(t, err)
	assert.Equal(t, `{"client_id":"a&b<c>"}`, string(got))
}
