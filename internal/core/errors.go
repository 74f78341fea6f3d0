package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrValidation = errors.New("invalid identifier")
	ErrNotFound   = errors.New("gene not found")
	ErrUpstream   = errors.New("upstream failure")
)

// SourceError records which source failed for which identifier. It unwraps
// to both its Kind sentinel and the underlying cause.
type SourceError struct {
	Source string
	ID     string
	Kind   error
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Source, e.ID, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Kind names the category of err for error documents and reports.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	default:
		return "internal"
	}
}

const maxIDLength = 64

// Ensembl stable ids (ENSG00000141510, ENSMUSG00000059552.8) plus the
// model-organism ids Ensembl also serves (FBgn0000008, YAL001C).
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateID rejects identifiers that must never reach a remote source.
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: identifier is empty", ErrValidation)
	case len(id) > maxIDLength:
		return fmt.Errorf("%w: identifier longer than %d characters", ErrValidation, maxIDLength)
	case !idPattern.MatchString(id):
		return fmt.Errorf("%w: %q", ErrValidation, id)
	}
	return nil
}
