package overlay

import (
	"errors"
	"fmt"
)

// ErrMaxDepth indicates a document nested deeper than the merger allows.
var ErrMaxDepth = errors.New("maximum merge depth exceeded")

// AlignmentError indicates a structural mismatch between the base and
// override streams. The whole merge is rejected; no partial output exists.
type AlignmentError struct {
	// BaseDocs is the number of documents in the base stream.
	BaseDocs int

	// OverrideDocs is the number of documents in the override stream.
	OverrideDocs int
}

// Error implements the error interface.
func (e *AlignmentError) Error() string {
	return fmt.Sprintf(
		"override stream has %d documents but base has only %d",
		e.OverrideDocs, e.BaseDocs,
	)
}

// WarningReason classifies a non-fatal merge conflict.
type WarningReason string

const (
	// WarnDeleteMissingKey is raised when an override deletes a key that does
	// not exist in the base document. The deletion is a no-op.
	WarnDeleteMissingKey WarningReason = "delete-missing-key"

	// WarnSkipBeyondBase is raised when an override sequence has a skip
	// sentinel at an index past the end of the base sequence. The sentinel
	// produces no element.
	WarnSkipBeyondBase WarningReason = "skip-beyond-base"
)

// Warning records a semantically odd but resolvable situation encountered
// during a merge. Processing continues with the documented permissive policy.
type Warning struct {
	// Reason classifies the warning.
	Reason WarningReason

	// Doc is the zero-based document index within the stream.
	Doc int

	// Path locates the conflict within the document, e.g.
	// "spec.template.spec.containers[0].volumeMounts".
	Path string

	// Message describes what happened.
	Message string
}

// String formats the warning for operator-facing output.
func (w Warning) String() string {
	if w.Path == "" {
		return fmt.Sprintf("document %d: %s", w.Doc, w.Message)
	}
	return fmt.Sprintf("document %d at %s: %s", w.Doc, w.Path, w.Message)
}
