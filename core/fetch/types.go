package fetch

import (
	"context"
	"encoding/json"
	"time"

	"api-poller/core/secrets"
)

// Fetch types.
const (
	TypeREST    = "rest"
	TypeGraphQL = "graphql"
)

// Auth types.
const (
	AuthBasic  = "basic"
	AuthBearer = "bearer"
)

// Body is a request body as configured for an endpoint.
type Body struct {
	// IsJSON sends Content as a JSON document. Otherwise Content is a
	// GraphQL query string wrapped in {"query": ...}.
	IsJSON bool `json:"is_json"`
	// Content is the body template.
	Content json.RawMessage `json:"content"`
}

// Endpoint describes one call against a data source.
type Endpoint struct {
	// Available disables the call when false.
	Available bool `json:"available"`
	// FetchType selects the adapter. Only read from the health check.
	FetchType string `json:"fetch_type,omitempty"`
	// AuthType is basic or bearer.
	AuthType string `json:"auth_type"`

	BaseURL     string            `json:"base_url" validate:"required_if=Available true"`
	Path        string            `json:"path"`
	RequestType string            `json:"request_type,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Query       map[string]string `json:"query,omitempty"`
	Body        *Body             `json:"body,omitempty"`

	// RecordSizeJSONPath locates the total record count in a metadata response.
	RecordSizeJSONPath string `json:"record_size_json_path,omitempty"`
	// RecordsJSONPath locates the record array in a data response. Empty
	// means the response itself is the array.
	RecordsJSONPath string `json:"records_json_path,omitempty"`
	// HealthyJSONPath must exist in a healthy health check response.
	HealthyJSONPath string `json:"healthy_json_path,omitempty"`

	// PreferPageSize is the page size the source is asked for.
	PreferPageSize int `json:"prefer_page_size,omitempty"`
	// PageParam and PageSizeParam name the paging parameters (query for
	// REST, variables for GraphQL).
	PageParam     string `json:"page_param,omitempty"`
	PageSizeParam string `json:"page_size_param,omitempty"`
	// LastEditParam names the incremental-sync parameter.
	LastEditParam string `json:"last_edit_param,omitempty"`
}

// Method returns the HTTP method, defaulting to GET.
func (e Endpoint) Method() string {
	if e.RequestType == "" {
		return "GET"
	}
	return e.RequestType
}

// Source is the full data source configuration of one client.
type Source struct {
	ClientID    string   `json:"client_id" validate:"required"`
	Healthcheck Endpoint `json:"healthcheck"`
	Meta        Endpoint `json:"meta"`
	Data        Endpoint `json:"data"`
}

// Response is a raw data source response.
type Response struct {
	Status int
	Body   []byte
}

// PageRequest asks for one page.
type PageRequest struct {
	// StartIndex is the 1-based page index.
	StartIndex int
	PageSize   int
	// LastEdit, when set, restricts the page to records edited since then.
	LastEdit *time.Time
}

// Page is one fetched page of records.
type Page struct {
	Status  int
	Records []map[string]any
	Raw     []byte
}

// Adapter executes the calls of a Source for one protocol.
type Adapter interface {
	Name() string
	// HealthCheck returns nil when the health check is not available.
	HealthCheck(ctx context.Context, src Source) (*Response, error)
	// MetaData returns nil when metadata is not available.
	MetaData(ctx context.Context, src Source) (*Response, error)
	FetchPage(ctx context.Context, src Source, req PageRequest) (Page, error)
}

// CredentialSource resolves data source credentials of a client.
type CredentialSource interface {
	Credentials(ctx context.Context, env, clientID string, withSecret bool) (secrets.Credentials, error)
}

// CredentialRefresher is a CredentialSource that caches and can drop the
// cached credentials of a client.
type CredentialRefresher interface {
	CredentialSource
	Forget(env, clientID string)
}

var _ CredentialRefresher = (*secrets.Store)(nil)
