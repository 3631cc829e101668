// Package services is the layer between transports (HTTP, CLI) and the bond
// catalog. Handlers never touch the catalog directly: they call a service,
// which reads the currently published catalog from a catalog.Holder, records
// lookup metrics and returns plain values.
//
// A lookup of an unknown id is reported with ok == false, never as an error.
package services
