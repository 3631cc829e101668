// Package config loads the bond service configuration.
//
// # Configuration Sources
//
// Values are layered, later sources overriding earlier ones:
//
//  1. Default()
//  2. a YAML file (BONDS_CONFIG, or config.yaml / configs/config.yaml)
//  3. environment variables with the BONDS_ prefix
//
// # Environment Variables
//
//	BONDS_SERVER_PORT=8080
//	BONDS_SOURCE_PATH=data/bonds.xlsx
//	BONDS_SOURCE_KIND=workbook
//	BONDS_SOURCE_SERIES=EDO:10,ROD:12
//	BONDS_SOURCE_WATCH=true
//	BONDS_LOGGING_LEVEL=debug
//	BONDS_TELEMETRY_TRACE_EXPORTER=none
//
// The loader never reads instrument data itself; it only tells the catalog
// builder where the source lives and which series it carries.
package config
