// Package secrets reads data source credentials from AWS Secrets Manager.
//
// Every client has an API key and, for basic auth, an API secret stored under
// names of the form
//
//	<prefix>-<env>-connector-<client_id>-api-key
//	<prefix>-<env>-connector-<client_id>-api-secret
//
// Values are cached for a configurable TTL. Concurrent lookups of the same
// name share one AWS call through a singleflight group, so a batch starting
// many jobs for one client does not stampede the API.
package secrets
