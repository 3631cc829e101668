// Package exporter renders bond value histories as CSV.
//
// Every projection has the header "date,value" followed by one row per day,
// dates as YYYY-MM-DD and values in their shortest decimal form (100, 100.5).
// Lines end in "\n" and no byte order mark is written.
//
//	text := exporter.ToCSV(inst)
//
//	w := exporter.NewCSVWriter("out", logger)
//	paths, err := w.ExportAll(ctx, catalog.InSaleOrder())
package exporter
