package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:       "invalid file",
			err:        fmt.Errorf("%w: no framework row", competency.ErrInvalidImportFile),
			wantCode:   "IMP001",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed scale config",
			err:        fmt.Errorf("competency %q: %w", "c1", competency.ErrMalformedScaleConfig),
			wantCode:   "IMP002",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:     "cycle",
			err:      fmt.Errorf("%w: a -> b -> a", competency.ErrCyclicReference),
			wantCode: "IMP003",
		},
		{
			name:     "multiple frameworks",
			err:      competency.ErrMultipleFrameworks,
			wantCode: "IMP004",
		},
		{
			name:     "duplicate idnumber",
			err:      competency.ErrDuplicateIDNumber,
			wantCode: "IMP005",
		},
		{
			name:     "rule migration",
			err:      competency.ErrRuleMigration,
			wantCode: "IMP006",
		},
		{
			name:       "store failure wins over text patterns",
			err:        fmt.Errorf("create framework: %w: %w", competency.ErrImportFailed, errors.New("duplicate key value")),
			wantCode:   "IMP007",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "session not found",
			err:        ErrSessionNotFound,
			wantCode:   "SES001",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "busy",
			err:        ErrTooManyImports,
			wantCode:   "SES002",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:     "cancelled",
			err:      fmt.Errorf("import: %w", context.Canceled),
			wantCode: "SES003",
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantCode: "SES004",
		},
		{
			name:       "unknown framework",
			err:        fmt.Errorf("%w: 9", competency.ErrUnknownFramework),
			wantCode:   "FRM001",
			wantStatus: http.StatusNotFound,
		},
		{
			name:     "unknown mapping",
			err:      competency.ErrUnknownMapping,
			wantCode: "MAP001",
		},
		{
			name:       "file too large",
			err:        ErrFileTooLarge,
			wantCode:   "FILE001",
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:     "no file",
			err:      ErrNoFile,
			wantCode: "FILE002",
		},
		{
			name:       "duplicate key pattern",
			err:        errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:   "DB001",
			wantStatus: http.StatusConflict,
		},
		{
			name:     "sqlite busy",
			err:      errors.New("database is locked (5) (SQLITE_BUSY)"),
			wantCode: "DB004",
		},
		{
			name:       "unknown error returns default",
			err:        errors.New("some random internal error"),
			wantCode:   "ERR000",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.wantStatus != 0 && got.Status != tt.wantStatus {
				t.Errorf("MapError() status = %d, want %d", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(competency.ErrMultipleFrameworks)
	want := "More than one row is marked as a framework (Code: IMP004). Keep a single row with isframework set"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil error is not user facing")
	}
	if !IsUserFacing(competency.ErrCyclicReference) {
		t.Error("cycle error should be user facing")
	}
	if IsUserFacing(errors.New("random internal error xyz")) {
		t.Error("unknown error should not be user facing")
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	techErr := fmt.Errorf("%w: x -> x", competency.ErrCyclicReference)
	userErr := NewUserError(techErr)
	if userErr.Error() != "Competencies reference each other as parents" {
		t.Errorf("Error() = %q, want user message", userErr.Error())
	}
	if !errors.Is(userErr, competency.ErrCyclicReference) {
		t.Error("Unwrap() should expose the technical error")
	}
}
