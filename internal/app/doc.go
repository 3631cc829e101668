// Package app wires the bond valuation service together and runs it.
//
// Startup loads the configuration, initializes logging and OpenTelemetry,
// and builds the initial catalog from the configured source. A failed build
// aborts startup with an error classified by the errors package, so the
// caller can pick an exit code. Nothing is served from a partial catalog.
//
// Once built, the catalog is published through a catalog.Holder. When
// source watching is enabled a catalog.Watcher rebuilds it on change and
// swaps the new catalog in; a failed rebuild keeps the previous one.
//
// # Routes
//
//	GET /bonds                        instrument ids
//	GET /bonds/{id}                   definition and daily values
//	GET /bonds/{id}/csv               daily values as CSV
//	GET /bonds/by-date/{date}         instruments on sale on a date
//	GET /bonds/by-buyout-date/{date}  instruments bought out on a date
//	GET /catalog                      catalog summary
//	GET /api/health                   health, readiness, liveness, version
//	GET /metrics                      Prometheus scrape endpoint
//
// Run handles SIGINT and SIGTERM and shuts the server down gracefully. The
// package never calls os.Exit.
package app
