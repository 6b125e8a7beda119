package constituents

import (
	"encoding/json"

	"api-poller/core/reconcile"
	"api-poller/core/utils"
	"api-poller/feature/constituents/models"
)

// Flag is a boolean that also accepts "true"/"false" strings, as some
// orchestrators pass every input as text.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*f = Flag(utils.ToBool(raw))
	return nil
}

// LineItem is one constituent record collected from a page, optionally
// carrying one accreditation in the same object.
type LineItem struct {
	reconcile.Constituent

	BatchID string `json:"batch_id"`
	JobID   string `json:"job_id"`

	// IsAccreditation marks a record that also holds an accreditation.
	IsAccreditation Flag `json:"is_accreditation"`
	// AllowDeactivation overrides the configured default when set.
	AllowDeactivation *Flag `json:"allow_deactivation,omitempty"`

	CertificateNumber *string `json:"certificate_number,omitempty"`
	TypeName          *string `json:"type_name,omitempty"`
	MappedType        *string `json:"mapped_type,omitempty"`
	DateExpire        *string `json:"date_expire,omitempty"`
	QualificationGUID *string `json:"qualification_guid,omitempty"`
}

// Accreditation returns the accreditation carried by the line item. Owner
// and name fields are shared with the constituent.
func (li LineItem) Accreditation() reconcile.Accreditation {
	externalID := li.ExternalID
	return reconcile.Accreditation{
		CertificateNumber: li.CertificateNumber,
		FullName:          li.FullName,
		TypeName:          li.TypeName,
		MappedType:        li.MappedType,
		DateExpire:        li.DateExpire,
		ExternalEmpID:     li.ExternalEmpID,
		ExternalID:        &externalID,
		QualificationGUID: li.QualificationGUID,
		ClientID:          li.ClientID,
	}
}

// AccreditationRequest reconciles the full accreditation set of one owner.
type AccreditationRequest struct {
	ClientID      string `json:"client_id" validate:"required"`
	ExternalEmpID string `json:"external_emp_id" validate:"required"`
	// ConstituentID is the stored constituent the set belongs to.
	ConstituentID string `json:"constituent_id" validate:"required_if=ConstituentNotFound true"`

	Accreditations []reconcile.Accreditation `json:"accreditations"`

	AllowDeactivation *Flag `json:"allow_deactivation,omitempty"`

	// ConstituentNotFound reports that the source answered 404 for the
	// constituent; its next action becomes delete.
	ConstituentNotFound bool `json:"constituent_not_found"`
}

// LineItemResult is the outcome of one line item.
type LineItemResult struct {
	ConstituentID string             `json:"constituent_id"`
	Fingerprint   string             `json:"hash"`
	Decision      reconcile.Decision `json:"decision"`
	// Accreditations is set when the line item carried an accreditation.
	Accreditations *AccreditationResult `json:"accreditations,omitempty"`
}

// AccreditationResult is the outcome of reconciling one owner's set.
type AccreditationResult struct {
	State   reconcile.SetState   `json:"state"`
	Summary reconcile.SetSummary `json:"summary"`
	// Skipped lists accreditations ignored for missing mandatory fields.
	Skipped []reconcile.SkippedAccreditation `json:"skipped"`
	// ConstituentNextAction is delete when the constituent was not found.
	ConstituentNextAction reconcile.Action `json:"constituent_next_action,omitempty"`
	// Accreditations is the stored set after reconciliation.
	Accreditations []FinalAccreditation `json:"accreditations"`
}

// Detail is the stored state of one constituent.
type Detail struct {
	Constituent    models.Constituent      `json:"constituent"`
	ActionRecord   *models.ConstituentHash `json:"constituent_hash"`
	Accreditations []FinalAccreditation    `json:"accreditations"`
}
