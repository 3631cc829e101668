// Package http exposes the bond catalog over HTTP.
//
// Handlers are thin: they read path parameters, call the bond or health
// service and render the result with go-chi/render. Failures are handed to
// the shared ErrorHandler, which answers with RFC 7807 problem details.
//
// Routes mounted by BondHandler.Routes:
//
//	GET /                  sorted instrument ids
//	GET /{id}              instrument with its daily values
//	GET /{id}/csv          date,value projection as text/csv
//	GET /by-date/{date}         instruments on sale on a YYYY-MM-DD date
//	GET /by-buyout-date/{date}  instruments whose buyout window holds the date
//
// Both date routes answer with one instrument per series and accept
// ?series=EDO to narrow the answer.
//
// Decimal rates and values are emitted as JSON numbers in their shortest
// exact form, never as floats.
package http
