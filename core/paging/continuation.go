package paging

import (
	"fmt"

	"api-poller/core/apperr"
)

// Next decides what a job does after a page came back.
//
// It returns StateFailed together with an error wrapping
// apperr.ErrProtocolViolation when the source returned more records than the
// preferred page size. That outcome must not be retried. An outcome with a
// non-positive page size, start index or job count, or a negative record
// count, is a ValidationError and yields no transition.
func Next(o PageOutcome) (Transition, error) {
	if err := o.validate(); err != nil {
		return Transition{}, err
	}
	if o.MetaAvailable {
		return Transition{State: StateFetchedAllPayloads, NextStartIndex: o.StartIndex}, nil
	}

	switch {
	case o.Returned < o.PreferredPageSize:
		return Transition{State: StateEmptyLastRequest, NextStartIndex: o.StartIndex}, nil
	case o.Returned == o.PreferredPageSize:
		if o.StartIndex >= o.NumberOfJobs {
			return Transition{State: StateFilledLastRequest, NextStartIndex: o.StartIndex + 1}, nil
		}
		return Transition{State: StateFetchedAllPayloads, NextStartIndex: o.StartIndex}, nil
	default:
		return Transition{State: StateFailed, NextStartIndex: o.StartIndex},
			fmt.Errorf("page %d returned %d records for page size %d: %w",
				o.StartIndex, o.Returned, o.PreferredPageSize, apperr.ErrProtocolViolation)
	}
}

func (o PageOutcome) validate() error {
	switch {
	case o.PreferredPageSize <= 0:
		return apperr.Invalid("preferred_page_size", fmt.Sprintf("must be positive, got %d", o.PreferredPageSize))
	case o.StartIndex < 1:
		return apperr.Invalid("start_index", fmt.Sprintf("must be at least 1, got %d", o.StartIndex))
	case o.NumberOfJobs < 1:
		return apperr.Invalid("number_of_jobs", fmt.Sprintf("must be at least 1, got %d", o.NumberOfJobs))
	case o.Returned < 0:
		return apperr.Invalid("records_size", fmt.Sprintf("must not be negative, got %d", o.Returned))
	}
	return nil
}
