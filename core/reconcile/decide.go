package reconcile

import (
	"fmt"
	"strings"
)

// DiffFields is the projection compared when an identity match has new content.
var DiffFields = []string{"external_emp_id", "full_name", "mobile_number", "email", "external_id"}

// Decide classifies an incoming record against prior state.
//
// byFingerprint is the stored entity whose fingerprint equals the incoming
// record's, and byIdentity the one sharing its external id and client id.
// Either may be nil. A fingerprint match wins over an identity match.
func Decide(incoming Record, byFingerprint, byIdentity *StoredEntity, terminated bool) Decision {
	if byFingerprint != nil {
		next := byFingerprint.NextAction
		if next == "" {
			next = ActionUpdateAction
		}
		return Decision{
			Action:     ActionUpdateAction,
			NextAction: next,
			TargetID:   byFingerprint.ID,
		}
	}

	if byIdentity == nil {
		if terminated {
			return Decision{Action: ActionDelete, NextAction: ActionDelete}
		}
		return Decision{Action: ActionPost, NextAction: ActionPost}
	}

	if terminated {
		return Decision{Action: ActionDelete, NextAction: ActionDelete, TargetID: byIdentity.ID}
	}

	return Decision{
		Action:        ActionPut,
		NextAction:    ActionPut,
		TargetID:      byIdentity.ID,
		ChangedFields: ChangedFields(incoming, byIdentity.Fields),
	}
}

// ChangedFields lists the DiffFields that differ between incoming and stored.
// A field changed when exactly one side has it, or both have it and their
// trimmed string forms differ. Returns nil when nothing changed.
func ChangedFields(incoming, stored Record) []string {
	var changed []string
	for _, field := range DiffFields {
		in, inOK := diffValue(incoming[field])
		st, stOK := diffValue(stored[field])

		switch {
		case inOK && stOK:
			if in != st {
				changed = append(changed, field)
			}
		case inOK != stOK:
			changed = append(changed, field)
		}
	}
	return changed
}

func diffValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if p, ok := v.(*string); ok {
		if p == nil {
			return "", false
		}
		v = *p
	}
	s := fmt.Sprint(v)
	if s == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}
