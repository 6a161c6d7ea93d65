package main

import (
	"errors"

	"github.com/JonMunkholm/lpcsv/internal/competency"
	"github.com/JonMunkholm/lpcsv/internal/core"
	"github.com/JonMunkholm/lpcsv/internal/store"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

// validationErrors are problems with the input file or arguments that a
// rerun with a fixed file resolves.
var validationErrors = []error{
	competency.ErrInvalidImportFile,
	competency.ErrMalformedScaleConfig,
	competency.ErrCyclicReference,
	competency.ErrMultipleFrameworks,
	competency.ErrDuplicateIDNumber,
	competency.ErrRuleMigration,
	competency.ErrUnknownFramework,
	competency.ErrUnknownMapping,
	core.ErrFileTooLarge,
}

// classify attaches an exit code to an error from the service or store.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return err
	}
	switch {
	case errors.Is(err, competency.ErrImportFailed):
		return withCode(exitDBWrite, err)
	case errors.Is(err, store.ErrConnect):
		return withCode(exitDB, err)
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return withCode(exitValidation, err)
		}
	}
	return err
}
