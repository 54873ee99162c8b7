// Package metrics defines the Prometheus collectors of directory sync.
//
// Collectors are registered on a dedicated registry per Metrics value so that
// servers and tests do not share global state. Handler exposes the registry
// for scraping.
package metrics
