package fetch

import (
	"fmt"
	"strings"

	"api-poller/core/apperr"
)

// New returns the adapter for fetchType. An empty type means REST.
func New(fetchType string, c *Client) (Adapter, error) {
	switch strings.ToLower(fetchType) {
	case "", TypeREST:
		return NewREST(c), nil
	case TypeGraphQL:
		return NewGraphQL(c), nil
	default:
		return nil, apperr.Invalid("fetch_type", fmt.Sprintf("unknown fetch type %q", fetchType))
	}
}

// ForSource returns the adapter named by the health check of src.
func ForSource(src Source, c *Client) (Adapter, error) {
	return New(src.Healthcheck.FetchType, c)
}
