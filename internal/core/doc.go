// Package core provides the service layer for competency framework imports
// and exports.
//
// The package sits between transports (the HTTP server and the CLI) and the
// competency package, which holds the import and export algorithms. It adds
// the parts a long running process needs: upload sessions, a concurrency
// limit, user-facing error messages, and metrics.
//
// # Import Sessions
//
// An upload is imported in two steps so the caller can review the column
// mapping first:
//
//  1. [Service.PrepareImport] reads the CSV and parks it under an import id.
//     It returns the found headers and a mapping guessed from their names.
//  2. [Service.ConfirmImport] materializes the parked rows with the mapping
//     the caller settled on. The session is consumed whether the import
//     succeeds or not.
//
// [Service.CancelImport] drops a session early. Sessions left alone expire
// after Config.Import.SessionTTL. [Service.Import] does both steps at once.
//
// Each preparation carries a [Preview] built with the guessed mapping.
// [Service.PreviewImport] repeats the analysis for another mapping without
// consuming the session. Finished imports are listed by [Service.History].
//
// # Concurrency
//
// Every materialization holds a slot in an [ImportLimiter]. Callers wait up
// to Config.Import.MaxWaitTime for a slot and then get [ErrTooManyImports].
// A confirmed import runs under its own timeout and keeps going if the HTTP
// client disconnects.
//
// # Error Handling
//
// Errors are mapped to user-friendly messages using [MapError]:
//
//   - IMP001-IMP007: Import errors (file, scales, cycles, duplicates, rules, store)
//   - SES001-SES004: Session errors (expired, busy, cancelled, timeout)
//   - FRM001, MAP001, FILE001-FILE002: Request errors
//   - DB001-DB004: Database errors matched on error text
//
// # Metrics
//
// Import and export counts are exported to the default Prometheus registry
// under the lpcsv namespace, labelled with the user error code.
package core
