package models

import "time"

// Constituent represents the 'constituents' table: the last known content of
// one person as delivered by a client.
type Constituent struct {
	ID            string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
	ExternalEmpID *string   `gorm:"column:external_emp_id;size:191;index" json:"external_emp_id"`
	FullName      *string   `gorm:"column:full_name;size:255" json:"full_name"`
	ClientID      string    `gorm:"column:client_id;size:191;index:idx_constituents_identity" json:"client_id"`
	MobileNumber  *string   `gorm:"column:mobile_number;size:64" json:"mobile_number"`
	Email         *string   `gorm:"column:email;size:255" json:"email"`
	ExternalID    string    `gorm:"column:external_id;size:191;index:idx_constituents_identity" json:"external_id"`
	Active        bool      `gorm:"column:active" json:"active"`
	Hash          string    `gorm:"column:hash;size:64;index" json:"hash"`
	BirthDate     *string   `gorm:"column:birth_date;size:64" json:"birth_date"`
	Location      *string   `gorm:"column:location;size:255" json:"location"`
	ManagerEmail  *string   `gorm:"column:manager_email;size:255" json:"manager_email"`
}

// TableName overrides the table name.
func (Constituent) TableName() string {
	return "constituents"
}

// ConstituentHash represents the 'constituents_hash' table: the action record
// of a constituent. It shares the constituent id.
type ConstituentHash struct {
	ID         string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	BatchID    string    `gorm:"column:batch_id;size:36" json:"batch_id"`
	JobID      string    `gorm:"column:job_id;size:36" json:"job_id"`
	NextAction string    `gorm:"column:next_action;size:32" json:"next_action"`
	Hash       string    `gorm:"column:hash;size:64;index" json:"hash"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
	// ChangedFields is a JSON array of field names, or NULL.
	ChangedFields *string `gorm:"column:changed_fields;type:text" json:"changed_fields"`
}

// TableName overrides the table name.
func (ConstituentHash) TableName() string {
	return "constituents_hash"
}

// Accreditation represents the 'accreditations' table.
type Accreditation struct {
	ID                      string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Identifier              *string   `gorm:"column:identifier;size:191" json:"identifier"`
	Type                    *string   `gorm:"column:type;size:255" json:"type"`
	MappedType              *string   `gorm:"column:mapped_type;size:255" json:"mapped_type"`
	Expiry                  *string   `gorm:"column:expiry;size:64" json:"expiry"`
	FullName                *string   `gorm:"column:full_name;size:255" json:"full_name"`
	ExternalEmpID           *string   `gorm:"column:external_emp_id;size:191;index:idx_accreditations_owner" json:"external_emp_id"`
	ExternalID              *string   `gorm:"column:external_id;size:191" json:"external_id"`
	ExternalQualificationID *string   `gorm:"column:external_qualification_id;size:191" json:"external_qualification_id"`
	ClientID                string    `gorm:"column:client_id;size:191;index:idx_accreditations_owner" json:"client_id"`
	Hash                    string    `gorm:"column:hash;size:64;index" json:"hash"`
	CreatedAt               time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt               time.Time `gorm:"column:updated_at" json:"updated_at"`
	// ConstituentID, AccreditationID and PrevIdentifier are filled downstream.
	ConstituentID   *string `gorm:"column:constituent_id;size:36" json:"constituent_id"`
	AccreditationID *string `gorm:"column:accreditation_id;size:191" json:"accreditation_id"`
	Active          bool    `gorm:"column:active" json:"active"`
	PrevIdentifier  *string `gorm:"column:prev_identifier;size:191" json:"prev_identifier"`
}

// TableName overrides the table name.
func (Accreditation) TableName() string {
	return "accreditations"
}

// AccreditationHash represents the 'accreditations_hash' table: the action
// record of an accreditation. It shares the accreditation id.
type AccreditationHash struct {
	ID            string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	ExternalEmpID *string   `gorm:"column:external_emp_id;size:191;index" json:"external_emp_id"`
	NextAction    string    `gorm:"column:next_action;size:32" json:"next_action"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
	Hash          string    `gorm:"column:hash;size:64;index" json:"hash"`
	// CorrelationID and Status are owned by the downstream consumer.
	CorrelationID *string `gorm:"column:correlation_id;size:191" json:"correlation_id"`
	Status        *string `gorm:"column:status;size:64" json:"status"`
}

// TableName overrides the table name.
func (AccreditationHash) TableName() string {
	return "accreditations_hash"
}

// All returns every model of this package, for migrations.
func All() []any {
	return []any{&Constituent{}, &ConstituentHash{}, &Accreditation{}, &AccreditationHash{}}
}

// ExpectedSchema lists the columns each table must have.
func ExpectedSchema() map[string][]string {
	return map[string][]string{
		"constituents": {
			"id", "created_at", "updated_at", "external_emp_id", "full_name", "client_id",
			"mobile_number", "email", "external_id", "active", "hash", "birth_date",
			"location", "manager_email",
		},
		"constituents_hash": {
			"id", "batch_id", "job_id", "next_action", "hash", "updated_at", "changed_fields",
		},
		"accreditations": {
			"id", "identifier", "type", "mapped_type", "expiry", "full_name", "external_emp_id",
			"external_id", "external_qualification_id", "client_id", "hash", "created_at",
			"updated_at", "constituent_id", "accreditation_id", "active", "prev_identifier",
		},
		"accreditations_hash": {
			"id", "external_emp_id", "next_action", "updated_at", "hash", "correlation_id", "status",
		},
	}
}
