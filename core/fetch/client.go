package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"api-poller/core/apperr"
	"api-poller/core/metrics"
)

// maxBodyBytes caps a single response body.
const maxBodyBytes = 64 << 20

// StatusError is a non-2xx data source response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("data source responded %d: %s", e.Status, e.Body)
}

// Client executes endpoint calls with credentials resolved per client.
type Client struct {
	http  *http.Client
	creds CredentialSource
	env   string
}

// NewClient returns a Client reading credentials of environment env.
func NewClient(creds CredentialSource, env string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:  &http.Client{Timeout: timeout},
		creds: creds,
		env:   env,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Authorization builds the Authorization header value for ep.
func (c *Client) Authorization(ctx context.Context, clientID string, ep Endpoint) (string, error) {
	switch strings.ToLower(ep.AuthType) {
	case AuthBasic:
		creds, err := c.creds.Credentials(ctx, c.env, clientID, true)
		if err != nil {
			return "", err
		}
		token := base64.StdEncoding.EncodeToString([]byte(creds.Key + ":" + creds.Secret))
		return "Basic " + token, nil
	case AuthBearer:
		creds, err := c.creds.Credentials(ctx, c.env, clientID, false)
		if err != nil {
			return "", err
		}
		return "Bearer " + creds.Key, nil
	default:
		return "", apperr.Invalid("auth_type", fmt.Sprintf("unknown authentication type %q", ep.AuthType))
	}
}

// Do sends one request for ep. extra query values are merged over the
// configured ones. A 401 answer drops cached credentials of the client, when
// the credential source caches them, and the request is sent once more.
func (c *Client) Do(ctx context.Context, adapter, call, clientID string, ep Endpoint, extra url.Values, body []byte) (Response, error) {
	op := fmt.Sprintf("%s %s", adapter, call)

	target, err := endpointURL(ep, extra)
	if err != nil {
		return Response{}, apperr.Invalid("base_url", err.Error())
	}

	resp, err := c.send(ctx, op, adapter, call, clientID, ep, target, body)
	refresher, ok := c.creds.(CredentialRefresher)
	if !ok || resp.Status != http.StatusUnauthorized {
		return resp, err
	}
	refresher.Forget(c.env, clientID)
	return c.send(ctx, op, adapter, call, clientID, ep, target, body)
}

func (c *Client) send(ctx context.Context, op, adapter, call, clientID string, ep Endpoint, target string, body []byte) (Response, error) {
	auth, err := c.Authorization(ctx, clientID, ep)
	if err != nil {
		return Response{}, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(ep.Method()), target, reader)
	if err != nil {
		return Response{}, apperr.Collaborator(op, err)
	}
	for k, v := range ep.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.FetchDuration.WithLabelValues(adapter, call).Observe(time.Since(start).Seconds())
	if err != nil {
		return Response{}, apperr.Collaborator(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, apperr.Collaborator(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return Response{Status: resp.StatusCode, Body: raw},
			apperr.Collaborator(op, &StatusError{Status: resp.StatusCode, Body: snippet})
	}
	return Response{Status: resp.StatusCode, Body: raw}, nil
}

func endpointURL(ep Endpoint, extra url.Values) (string, error) {
	if ep.BaseURL == "" {
		return "", fmt.Errorf("base url is empty")
	}
	u, err := url.Parse(strings.TrimRight(ep.BaseURL, "/"))
	if err != nil {
		return "", err
	}
	if ep.Path != "" {
		u = u.JoinPath(strings.TrimLeft(ep.Path, "/"))
	}

	q := u.Query()
	for k, v := range ep.Query {
		q.Set(k, v)
	}
	for k, vs := range extra {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
