// Package utils provides the loose value conversions needed when reading
// untyped JSON coming from data sources and orchestration events, and the
// shared request validator.
package utils
