// Package shared holds helpers used by more than one package of the bond
// service. It carries no business logic.
//
// The testutil subpackage provides:
//
//   - a capturing slog handler for asserting on log output
//   - instrument definition and source record fixtures
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    dir := testutil.WriteRecordDir(t, map[string]string{
//	        "EDO1233.json": testutil.RecordJSON("2023-12-01", "2023-12-31", 0.0725),
//	    })
//	    // build a catalog from dir with logger, then inspect logs
//	}
package shared
