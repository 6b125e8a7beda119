// Package fetch talks to client data sources.
//
// A Source describes three endpoints of one client: a health check, a
// metadata call reporting the total record count, and the paged data call.
// An Adapter executes them for one protocol. The set of adapters is closed
// and selected by the health check's fetch_type:
//
//   - rest: plain HTTP, paging through query parameters
//   - graphql: POST of a query document, paging through variables
//
// Both share the Client, which resolves credentials per call (basic auth is
// base64 of key:secret, bearer is the key alone), applies timeouts and turns
// transport failures and non-2xx responses into apperr.CollaboratorError.
//
// JSON paths (record arrays, totals, health markers) use gjson syntax, e.g.
// "data.employees.items" or "meta.total".
package fetch
