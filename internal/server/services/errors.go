package services

import (
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// ValidationError lists every problem found in a request. It matches
// common.ErrorValidation with errors.Is.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation error: " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) Unwrap() error {
	return common.ErrorValidation
}

type validator struct {
	details []string
}

func (v *validator) require(cond bool, detail string) {
	if !cond {
		v.details = append(v.details, detail)
	}
}

func (v *validator) err() error {
	if len(v.details) == 0 {
		return nil
	}
	return &ValidationError{Details: v.details}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
