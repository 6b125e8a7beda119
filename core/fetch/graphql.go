package fetch

import (
	"context"
	"encoding/json"
	"time"

	"api-poller/core/apperr"
)

// DefaultHealthyPath is what a GraphQL health check must return when the
// endpoint names no path of its own.
const DefaultHealthyPath = "data.userProfile.id"

// GraphQL posts queries with paging passed as variables.
type GraphQL struct {
	client *Client
}

// NewGraphQL returns the GraphQL adapter.
func NewGraphQL(c *Client) *GraphQL {
	return &GraphQL{client: c}
}

func (g *GraphQL) Name() string { return TypeGraphQL }

func (g *GraphQL) HealthCheck(ctx context.Context, src Source) (*Response, error) {
	src.Healthcheck = asPost(src.Healthcheck)
	path := paramOr(src.Healthcheck.HealthyJSONPath, DefaultHealthyPath)
	return checkHealth(ctx, g.client, TypeGraphQL, src, path, func(ep Endpoint) []byte {
		body, _ := graphQLBody(ep, nil)
		return body
	})
}

func (g *GraphQL) MetaData(ctx context.Context, src Source) (*Response, error) {
	if !src.Meta.Available {
		return nil, nil
	}
	ep := asPost(src.Meta)
	body, err := graphQLBody(ep, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(ctx, TypeGraphQL, "meta", src.ClientID, ep, nil, body)
	if err != nil {
		return nil, err
	}
	if err := graphQLErrors(resp.Body); err != nil {
		return &resp, err
	}
	return &resp, nil
}

func (g *GraphQL) FetchPage(ctx context.Context, src Source, req PageRequest) (Page, error) {
	ep := asPost(src.Data)
	vars := map[string]any{
		paramOr(ep.PageParam, "page"):         req.StartIndex,
		paramOr(ep.PageSizeParam, "pageSize"): req.PageSize,
	}
	if ep.LastEditParam != "" && req.LastEdit != nil {
		vars[ep.LastEditParam] = req.LastEdit.UTC().Format(time.RFC3339)
	}

	body, err := graphQLBody(ep, vars)
	if err != nil {
		return Page{}, err
	}
	resp, err := g.client.Do(ctx, TypeGraphQL, "page", src.ClientID, ep, nil, body)
	if err != nil {
		return Page{Status: resp.Status}, err
	}
	if err := graphQLErrors(resp.Body); err != nil {
		return Page{Status: resp.Status, Raw: resp.Body}, err
	}
	return toPage(resp, ep.RecordsJSONPath)
}

func asPost(ep Endpoint) Endpoint {
	if ep.RequestType == "" {
		ep.RequestType = "POST"
	}
	return ep
}

// graphQLBody builds the request document. A JSON body is used as the
// document; otherwise the content is the query string. vars are merged
// into the document variables.
func graphQLBody(ep Endpoint, vars map[string]any) ([]byte, error) {
	doc := map[string]any{}
	if ep.Body != nil && len(ep.Body.Content) > 0 {
		if ep.Body.IsJSON {
			if err := json.Unmarshal(ep.Body.Content, &doc); err != nil {
				return nil, apperr.Invalid("body", "graphql body is not a JSON object")
			}
		} else {
			var query string
			if err := json.Unmarshal(ep.Body.Content, &query); err != nil {
				query = string(ep.Body.Content)
			}
			doc["query"] = query
		}
	}
	if _, ok := doc["query"]; !ok {
		return nil, apperr.Invalid("body", "graphql endpoint has no query")
	}

	if len(vars) > 0 {
		merged := map[string]any{}
		if existing, ok := doc["variables"].(map[string]any); ok {
			for k, v := range existing {
				merged[k] = v
			}
		}
		for k, v := range vars {
			merged[k] = v
		}
		doc["variables"] = merged
	}
	return json.Marshal(doc)
}

type graphQLError struct {
	Message string `json:"message"`
}

// graphQLErrors turns a populated top-level errors array into an error.
func graphQLErrors(body []byte) error {
	var envelope struct {
		Errors []graphQLError `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Errors) == 0 {
		return nil
	}
	return apperr.Collaborator("graphql", &graphQLFailure{errs: envelope.Errors})
}

type graphQLFailure struct {
	errs []graphQLError
}

func (f *graphQLFailure) Error() string {
	msg := f.errs[0].Message
	if len(f.errs) > 1 {
		msg += " (and more)"
	}
	return "graphql error: " + msg
}
