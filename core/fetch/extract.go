package fetch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"api-poller/core/apperr"
	"api-poller/core/paging"

	"github.com/tidwall/gjson"
)

// ExtractRecords returns the objects of the array at path in body. Numbers
// are kept as json.Number so they hash exactly as delivered. An explicit null
// is an empty page; a path missing from body is a CollaboratorError.
func ExtractRecords(body []byte, path string) ([]map[string]any, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperr.Collaborator("extract records", errors.New("response is not valid JSON"))
	}

	var result gjson.Result
	if path == "" {
		result = gjson.ParseBytes(body)
	} else {
		result = gjson.GetBytes(body, path)
	}
	if !result.Exists() {
		return nil, apperr.Collaborator("extract records", fmt.Errorf("response has no value at %q", path))
	}
	if result.Type == gjson.Null {
		return []map[string]any{}, nil
	}
	if !result.IsArray() {
		return nil, apperr.Collaborator("extract records", fmt.Errorf("value at %q is not an array", path))
	}

	items := result.Array()
	records := make([]map[string]any, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, apperr.Collaborator("extract records", fmt.Errorf("element %d at %q is not an object", i, path))
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(item.Raw)))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return nil, apperr.Collaborator("extract records", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// RecordCount reads the total record count at path. A missing path, value or
// null is an unknown count.
func RecordCount(body []byte, path string) (paging.RecordCount, error) {
	if path == "" {
		return paging.UnknownCount, nil
	}
	r := gjson.GetBytes(body, path)
	switch r.Type {
	case gjson.Null:
		return paging.UnknownCount, nil
	case gjson.Number:
		return paging.ParseRecordCount(json.Number(r.Raw))
	case gjson.String:
		return paging.ParseRecordCount(r.Str)
	default:
		return paging.ParseRecordCount(r.Value())
	}
}

// Healthy reports whether body carries a value at path. An empty path only
// requires valid JSON.
func Healthy(body []byte, path string) bool {
	if path == "" {
		return gjson.ValidBytes(body)
	}
	r := gjson.GetBytes(body, path)
	return r.Exists() && r.Type != gjson.Null
}
