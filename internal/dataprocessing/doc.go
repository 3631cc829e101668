// Package dataprocessing extracts bond definitions from raw source data.
//
// Two source backends exist, selected by Source.Kind:
//
//   - workbook: an xlsx file with one worksheet per series label. A row belongs
//     to a series when its first cell starts with the label. Columns 3 and 4 hold
//     the sale window, columns 9 onwards the yearly rates.
//   - directory: one JSON or YAML file per instrument holding
//     {id, series, sale_start, sale_end, rates}.
//
// Both backends produce the same Definitions map and fail on the first
// malformed record with an *ExtractionError.
//
//	defs, err := dataprocessing.NewExtractor(logger).Extract(ctx,
//		dataprocessing.Source{Kind: dataprocessing.SourceWorkbook, Path: "bonds.xlsx"},
//		dataprocessing.DefaultSeries())
package dataprocessing
