package reconcile

import (
	"errors"
	"fmt"

	"api-poller/core/utils"

	"github.com/go-playground/validator/v10"
)

var validate = utils.NewValidator()

// MissingFields returns the mandatory fields a is missing, or nil.
func MissingFields(a Accreditation) ([]string, error) {
	err := validate.Struct(a)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("failed to validate accreditation: %w", err)
	}

	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return missing, nil
}

// ReconcileSet plans the actions that make the stored active accreditations of
// one owner converge to the valid incoming set.
//
// Incoming accreditations missing a mandatory field are reported in Skipped
// and take no part in the plan. Duplicate fingerprints in incoming yield one
// action. Existing active accreditations absent from the incoming set are
// deactivated only when allowDeactivation is set.
func ReconcileSet(incoming []Accreditation, existing []StoredAccreditation, allowDeactivation bool) (SetResult, error) {
	result := SetResult{
		Actions: []SetAction{},
		Skipped: []SkippedAccreditation{},
	}
	result.Summary.Incoming = len(incoming)
	result.Summary.Existing = len(existing)

	stored := make(map[string]StoredAccreditation, len(existing))
	for _, s := range existing {
		stored[s.Fingerprint] = s
	}

	seen := make(map[string]struct{}, len(incoming))
	for i := range incoming {
		acc := incoming[i]

		missing, err := MissingFields(acc)
		if err != nil {
			return SetResult{}, err
		}
		if len(missing) > 0 {
			result.Skipped = append(result.Skipped, SkippedAccreditation{Accreditation: acc, MissingFields: missing})
			continue
		}

		fp, err := Fingerprint(acc.Record(), AccreditationPolicy)
		if err != nil {
			return SetResult{}, fmt.Errorf("failed to fingerprint accreditation: %w", err)
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		result.Summary.Valid++

		prior, ok := stored[fp]
		switch {
		case !ok:
			result.Actions = append(result.Actions, SetAction{Action: ActionPost, Fingerprint: fp, Incoming: &acc})
			result.Summary.Posted++
		case !prior.Active:
			result.Actions = append(result.Actions, SetAction{Action: ActionActivate, Fingerprint: fp, Incoming: &acc, StoredID: prior.ID})
			result.Summary.Activated++
		default:
			result.Summary.Unchanged++
		}
	}

	if allowDeactivation {
		deactivated := make(map[string]struct{})
		for _, s := range existing {
			if !s.Active {
				continue
			}
			if _, ok := seen[s.Fingerprint]; ok {
				continue
			}
			if _, done := deactivated[s.Fingerprint]; done {
				continue
			}
			deactivated[s.Fingerprint] = struct{}{}
			result.Actions = append(result.Actions, SetAction{Action: ActionDeactivate, Fingerprint: s.Fingerprint, StoredID: s.ID})
			result.Summary.Deactivated++
		}
	}

	if result.Summary.Valid == 0 && len(existing) == 0 {
		result.State = StateAccreditationNotRecognized
	} else {
		result.State = StateLineItemUpdated
	}
	return result, nil
}
