package poller

import (
	"encoding/json"
	"fmt"

	"api-poller/core/apperr"
	"api-poller/core/utils"
	"api-poller/feature/constituents"
)

// boolFields are decoded as booleans whatever the source sent.
var boolFields = []string{"active"}

// toLineItem turns a fetched record into a line item of task t. Numbers are
// passed on as strings, since sources disagree on whether ids are numeric.
func toLineItem(rec map[string]any, t Task) (constituents.LineItem, error) {
	norm := make(map[string]any, len(rec))
	for k, v := range rec {
		if n, ok := v.(json.Number); ok {
			norm[k] = n.String()
			continue
		}
		norm[k] = v
	}
	for _, k := range boolFields {
		if v, ok := norm[k]; ok && v != nil {
			norm[k] = utils.ToBool(v)
		}
	}

	raw, err := json.Marshal(norm)
	if err != nil {
		return constituents.LineItem{}, apperr.Invalid("record", err.Error())
	}
	var item constituents.LineItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return constituents.LineItem{}, apperr.Invalid("record", fmt.Sprintf("unexpected shape: %v", err))
	}

	if item.ClientID == "" {
		item.ClientID = t.ClientID
	}
	item.BatchID = t.Batch.ID
	item.JobID = t.Job.ID
	return item, nil
}
