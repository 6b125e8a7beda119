// Package middleware groups the HTTP middleware of the Fiber application.
//
// # Components
//
//   - auth: API key validation protecting every route except the skipped
//     prefixes (health, metrics).
//   - rayid: assigns each request a ray id, stored in fiber locals and echoed
//     in the X-Ray-ID response header for log correlation.
//   - metrics: Prometheus request counters and latency histograms labelled
//     by route pattern.
//
// The start command registers rayid first so every later log line and
// metric can be traced to a request.
package middleware
