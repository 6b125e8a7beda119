package reconcile

// Constituent is the typed view of a constituent record as delivered by a
// data source. Optional fields are pointers so that "absent" and "empty"
// stay distinguishable until the record is rendered.
type Constituent struct {
	// ExternalEmpID is the employment id in the source system. It is also the
	// owner identity for accreditations.
	ExternalEmpID *string `json:"external_emp_id"`

	// FullName is the display name.
	FullName *string `json:"full_name"`

	// ClientID scopes the constituent to one tenant.
	ClientID string `json:"client_id"`

	MobileNumber *string `json:"mobile_number"`
	Email        *string `json:"email"`

	// ExternalID is the stable identity of the constituent in the source.
	ExternalID string `json:"external_id"`

	// Active is the source's own active flag. Nil when not reported.
	Active *bool `json:"active"`

	// ManagerEmail is the optional manager reference.
	ManagerEmail *string `json:"manager_email,omitempty"`

	// TerminationDate is the raw termination date string, if any.
	TerminationDate *string `json:"termination_date,omitempty"`

	BirthDate *string `json:"birth_date,omitempty"`
	Location  *string `json:"location,omitempty"`
}

// Record renders the constituent as a Record. Nil pointers are left out.
func (c Constituent) Record() Record {
	r := Record{
		"client_id":   c.ClientID,
		"external_id": c.ExternalID,
	}
	putString(r, "external_emp_id", c.ExternalEmpID)
	putString(r, "full_name", c.FullName)
	putString(r, "mobile_number", c.MobileNumber)
	putString(r, "email", c.Email)
	putString(r, "manager_email", c.ManagerEmail)
	putString(r, "termination_date", c.TerminationDate)
	putString(r, "birth_date", c.BirthDate)
	putString(r, "location", c.Location)
	if c.Active != nil {
		r["active"] = *c.Active
	}
	return r
}

// Accreditation is the typed view of one accreditation (qualification) held
// by a constituent.
type Accreditation struct {
	CertificateNumber *string `json:"certificate_number" validate:"required"`
	FullName          *string `json:"full_name" validate:"required"`
	TypeName          *string `json:"type_name" validate:"required"`
	MappedType        *string `json:"mapped_type" validate:"required"`

	// DateExpire is the raw expiry date string.
	DateExpire *string `json:"date_expire"`

	// ExternalEmpID links the accreditation to its owner constituent.
	ExternalEmpID *string `json:"external_emp_id"`

	ExternalID        *string `json:"external_id"`
	QualificationGUID *string `json:"qualification_guid"`
	ClientID          string  `json:"client_id"`
}

// Record renders the accreditation as a Record. Nil pointers are left out.
func (a Accreditation) Record() Record {
	r := Record{"client_id": a.ClientID}
	putString(r, "certificate_number", a.CertificateNumber)
	putString(r, "full_name", a.FullName)
	putString(r, "type_name", a.TypeName)
	putString(r, "mapped_type", a.MappedType)
	putString(r, "date_expire", a.DateExpire)
	putString(r, "external_emp_id", a.ExternalEmpID)
	putString(r, "external_id", a.ExternalID)
	putString(r, "qualification_guid", a.QualificationGUID)
	return r
}

func putString(r Record, key string, v *string) {
	if v != nil {
		r[key] = *v
	}
}
