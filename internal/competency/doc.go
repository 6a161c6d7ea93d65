// Package competency converts competency frameworks to and from CSV.
//
// The package holds the domain logic only. Persistence goes through the
// [Store] interface so the same code runs against PostgreSQL, SQLite, or the
// in-memory store used by tests and dry runs.
//
// # Import Pipeline
//
// An import moves through four stages:
//
//  1. [ReadCSV] tokenizes the upload and splits off the header row
//  2. A [Mapping] turns each raw row into a [Row] of named fields
//  3. [BuildTree] reduces the rows to one [FrameworkRecord] and an arena of
//     [CompetencyRecord] nodes linked by parent idnumber
//  4. [Importer.Import] writes the tree to the store in two phases
//
// Phase one creates the framework and then every competency in preorder, so a
// parent always exists before its children. Phase two runs only after every
// node exists: it migrates rule configurations through the export id table
// and links related competencies.
//
// # Conflict Policy
//
// Duplicate framework rows and duplicate competency idnumbers are resolved by
// a [DuplicatePolicy]. Framework rows default to [Reject], competencies to
// [KeepLast]. Every duplicate that is kept or dropped is reported as a
// [Warning]. Parent cycles fail the build with [ErrCyclicReference].
//
// # Export
//
// [Exporter.Export] writes the framework row followed by one row per
// competency in store order. The export id column carries the competency's
// store id so a later import can rebuild rule references.
package competency
