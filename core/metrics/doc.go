// Package metrics registers the Prometheus collectors of the poller.
//
// Collectors live in the default registry and are exposed by the start
// command on /metrics. Label sets are kept small: no client or record ids,
// only bounded enumerations (actions, states, adapters, routes).
package metrics
