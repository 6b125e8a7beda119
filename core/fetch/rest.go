package fetch

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"api-poller/core/apperr"
)

// REST calls plain JSON endpoints with paging in the query string.
type REST struct {
	client *Client
}

// NewREST returns the REST adapter.
func NewREST(c *Client) *REST {
	return &REST{client: c}
}

func (r *REST) Name() string { return TypeREST }

func (r *REST) HealthCheck(ctx context.Context, src Source) (*Response, error) {
	return checkHealth(ctx, r.client, TypeREST, src, src.Healthcheck.HealthyJSONPath, restBody)
}

func (r *REST) MetaData(ctx context.Context, src Source) (*Response, error) {
	if !src.Meta.Available {
		return nil, nil
	}
	resp, err := r.client.Do(ctx, TypeREST, "meta", src.ClientID, src.Meta, nil, restBody(src.Meta))
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *REST) FetchPage(ctx context.Context, src Source, req PageRequest) (Page, error) {
	ep := src.Data
	q := url.Values{}
	q.Set(paramOr(ep.PageParam, "page"), strconv.Itoa(req.StartIndex))
	q.Set(paramOr(ep.PageSizeParam, "page_size"), strconv.Itoa(req.PageSize))
	if ep.LastEditParam != "" && req.LastEdit != nil {
		q.Set(ep.LastEditParam, req.LastEdit.UTC().Format(time.RFC3339))
	}

	resp, err := r.client.Do(ctx, TypeREST, "page", src.ClientID, ep, q, restBody(ep))
	if err != nil {
		return Page{Status: resp.Status}, err
	}
	return toPage(resp, ep.RecordsJSONPath)
}

func restBody(ep Endpoint) []byte {
	if ep.Body == nil || !ep.Body.IsJSON || len(ep.Body.Content) == 0 {
		return nil
	}
	return ep.Body.Content
}

type bodyFunc func(Endpoint) []byte

func checkHealth(ctx context.Context, c *Client, adapter string, src Source, healthyPath string, body bodyFunc) (*Response, error) {
	ep := src.Healthcheck
	if !ep.Available {
		return nil, nil
	}
	resp, err := c.Do(ctx, adapter, "health", src.ClientID, ep, nil, body(ep))
	if err != nil {
		return nil, err
	}
	if !Healthy(resp.Body, healthyPath) {
		return &resp, apperr.Collaborator(adapter+" health", errors.New("health check response is not healthy"))
	}
	return &resp, nil
}

func toPage(resp Response, path string) (Page, error) {
	records, err := ExtractRecords(resp.Body, path)
	if err != nil {
		return Page{Status: resp.Status, Raw: resp.Body}, err
	}
	return Page{Status: resp.Status, Records: records, Raw: resp.Body}, nil
}

func paramOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
