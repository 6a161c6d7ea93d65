package competency

import "errors"

var (
	// ErrInvalidImportFile is returned when the CSV cannot be read or holds no
	// framework row.
	ErrInvalidImportFile = errors.New("invalid import file")

	// ErrMalformedScaleConfig is returned when a scale configuration is not a
	// JSON array of objects.
	ErrMalformedScaleConfig = errors.New("malformed scale configuration")

	ErrCyclicReference    = errors.New("cyclic parent reference")
	ErrMultipleFrameworks = errors.New("multiple framework rows")
	ErrDuplicateIDNumber  = errors.New("duplicate competency idnumber")

	// ErrImportFailed wraps a store write that failed part way through an
	// import. Rows written before the failure remain.
	ErrImportFailed = errors.New("import failed")

	// ErrRuleMigration is returned when a rule configuration references an
	// export id that was never created.
	ErrRuleMigration = errors.New("rule configuration could not be migrated")

	ErrUnknownFramework = errors.New("framework not found")
	ErrUnknownScale     = errors.New("scale not found")
	ErrUnknownMapping   = errors.New("unknown mapping field")

	// ErrImporterClosed is returned by Import on an importer that already ran.
	ErrImporterClosed = errors.New("importer already used")
)

// WarningKind classifies a non-fatal problem found while building a tree.
type WarningKind string

const (
	WarnDuplicateFramework WarningKind = "duplicate_framework"
	WarnDuplicateIDNumber  WarningKind = "duplicate_idnumber"
	WarnOrphan             WarningKind = "orphan"
)

// Warning reports input that was accepted but altered.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Row      int         `json:"row"`
	IDNumber string      `json:"idnumber,omitempty"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	return string(w.Kind) + ": " + w.Message
}
