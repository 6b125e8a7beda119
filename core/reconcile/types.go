package reconcile

import "time"

// Record is a single observation of an external entity: field name to scalar
// value. A missing key and a nil value both mean "absent".
type Record map[string]any

// Present reports whether field holds a non-nil value.
func (r Record) Present(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Action is the next-action directive handed to the downstream consumer.
type Action string

const (
	// ActionPost creates a brand-new entity downstream.
	ActionPost Action = "post"
	// ActionPut updates an existing entity downstream.
	ActionPut Action = "put"
	// ActionDelete soft-deletes an entity downstream.
	ActionDelete Action = "delete"
	// ActionUpdateAction refreshes bookkeeping only; content is unchanged.
	ActionUpdateAction Action = "updateAction"
	// ActionActivate re-enables a previously deactivated accreditation.
	ActionActivate Action = "activate"
	// ActionDeactivate disables an accreditation missing from the latest fetch.
	ActionDeactivate Action = "deactivate"
)

// StoredEntity is the persisted, last-known state of a reconciled record.
type StoredEntity struct {
	// ID is the local identifier shared with the paired ActionRecord.
	ID string

	// Fields holds the current field values.
	Fields Record

	// Fingerprint is the content hash computed on the last reconciliation.
	Fingerprint string

	// Active is false once the entity has been deactivated.
	Active bool

	// NextAction is the directive currently held by the paired ActionRecord.
	NextAction Action

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Decision is the outcome of Decide for one incoming record.
type Decision struct {
	// Action is what happened to the record content.
	Action Action `json:"action"`

	// NextAction is the directive to store on the ActionRecord. It equals
	// Action except for ActionUpdateAction, where the previously stored
	// directive is kept.
	NextAction Action `json:"next_action"`

	// TargetID is the matched entity. Empty when a new entity must be created.
	TargetID string `json:"target_id,omitempty"`

	// ChangedFields lists the fields that differ from the matched entity.
	// Only populated for ActionPut; nil when nothing in the projection changed.
	ChangedFields []string `json:"changed_fields,omitempty"`
}

// IsInsert reports whether the decision creates a new entity.
func (d Decision) IsInsert() bool {
	return d.TargetID == ""
}

// StoredAccreditation is the minimal stored state needed for set reconciliation.
type StoredAccreditation struct {
	ID          string
	Fingerprint string
	Active      bool
}

// SetState tells the caller whether the owner has any accreditations at all.
type SetState string

const (
	// StateLineItemUpdated means at least one side of the set was non-empty.
	StateLineItemUpdated SetState = "onLineItemUpdated"
	// StateAccreditationNotRecognized means neither side had accreditations.
	StateAccreditationNotRecognized SetState = "onAccreditationNotRecognized"
)

// SetAction is a planned change to one accreditation.
type SetAction struct {
	// Action is one of ActionPost, ActionActivate or ActionDeactivate.
	Action Action `json:"action"`

	// Fingerprint identifies the accreditation.
	Fingerprint string `json:"fingerprint"`

	// Incoming is the fetched accreditation. Nil for ActionDeactivate.
	Incoming *Accreditation `json:"-"`

	// StoredID is the existing row. Empty for ActionPost.
	StoredID string `json:"stored_id,omitempty"`
}

// SetResult is the result of ReconcileSet.
type SetResult struct {
	// Actions holds at most one action per fingerprint.
	Actions []SetAction `json:"actions"`

	// Skipped holds accreditations that failed the mandatory-field rule.
	Skipped []SkippedAccreditation `json:"skipped"`

	// State is the overall line item state.
	State SetState `json:"state"`

	// Summary provides aggregate counts.
	Summary SetSummary `json:"summary"`
}

// SkippedAccreditation records why an incoming accreditation was ignored.
type SkippedAccreditation struct {
	Accreditation Accreditation `json:"accreditation"`
	MissingFields []string      `json:"missing_fields"`
}

// SetSummary provides aggregate counts for a SetResult.
type SetSummary struct {
	Incoming    int `json:"incoming"`
	Valid       int `json:"valid"`
	Existing    int `json:"existing"`
	Posted      int `json:"posted"`
	Activated   int `json:"activated"`
	Deactivated int `json:"deactivated"`
	Unchanged   int `json:"unchanged"`
}
