// Package deuceerr defines the domain error taxonomy shared by the
// metadata store, the domain model and the HTTP surface.
//
// Metadata operations surface these errors unchanged; the HTTP layer
// owns the mapping to status codes (see pkg/api/errors.go).
package deuceerr

import "fmt"

// Code categorizes a domain error so transports can map it without
// string-matching the message.
type Code int

const (
	// CodeNotFound indicates the requested vault/file/block doesn't exist.
	CodeNotFound Code = iota

	// CodeGap indicates a file's block map leaves a byte range uncovered.
	CodeGap

	// CodeOverlap indicates two blocks (or a block and the declared file
	// size) claim the same byte range.
	CodeOverlap

	// CodeConstraint indicates an operation was refused because it would
	// violate a referential constraint (e.g. unregistering a referenced
	// block, deleting a non-empty vault).
	CodeConstraint

	// CodeAlreadyFinalized indicates a mutation was attempted against a
	// file that has already transitioned to finalized.
	CodeAlreadyFinalized

	// CodeInvalidRequest indicates a malformed request: bad JSON, a
	// missing required field, or an empty id where one is required.
	CodeInvalidRequest
)

func (c Code) String() string {
	switch c {
	case CodeNotFound:
		return "not_found"
	case CodeGap:
		return "gap"
	case CodeOverlap:
		return "overlap"
	case CodeConstraint:
		return "constraint"
	case CodeAlreadyFinalized:
		return "already_finalized"
	case CodeInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// NotFoundError is returned when a lookup of an absent vault, file or
// block is attempted.
type NotFoundError struct {
	Kind string // "vault", "file", "block"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// Code implements the codedError interface.
func (e *NotFoundError) Code() Code { return CodeNotFound }

// NewNotFoundError builds a NotFoundError for the given resource kind and id.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// GapError is raised by finalize_file when a portion of the file's byte
// range [0, size) is not covered by any block.
type GapError struct {
	Start int64
	End   int64
}

func (e *GapError) Error() string {
	return fmt.Sprintf("gap in file from %d to %d", e.Start, e.End)
}

func (e *GapError) Code() Code { return CodeGap }

// NewGapError builds a GapError for the uncovered range [start, end).
func NewGapError(start, end int64) *GapError {
	return &GapError{Start: start, End: end}
}

// OverlapError is raised by finalize_file when a block's declared range
// overlaps a previously-accepted range.
type OverlapError struct {
	BlockID string
	Start   int64
	End     int64
}

func (e *OverlapError) Error() string {
	if e.BlockID == "" {
		return fmt.Sprintf("overlap at [%d-%d]", e.Start, e.End)
	}
	return fmt.Sprintf("overlap at block %s [%d-%d]", e.BlockID, e.Start, e.End)
}

func (e *OverlapError) Code() Code { return CodeOverlap }

// NewOverlapError builds an OverlapError for the overlapping range
// [start, end) introduced by blockID (blockID may be empty when the
// overlap is detected against the declared file size rather than a
// specific block).
func NewOverlapError(blockID string, start, end int64) *OverlapError {
	return &OverlapError{BlockID: blockID, Start: start, End: end}
}

// ConstraintError is raised when an operation is refused because it
// would violate a referential constraint: unregistering a block with
// refcount > 0, or deleting a non-empty vault.
type ConstraintError struct {
	Message string
}

func (e *ConstraintError) Error() string { return e.Message }

func (e *ConstraintError) Code() Code { return CodeConstraint }

// NewConstraintError builds a ConstraintError with the given message.
func NewConstraintError(message string) *ConstraintError {
	return &ConstraintError{Message: message}
}

// AlreadyFinalizedError is raised when a finalized file is the target
// of a block assignment or a second finalize.
type AlreadyFinalizedError struct {
	FileID string
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("file already finalized: %s", e.FileID)
}

func (e *AlreadyFinalizedError) Code() Code { return CodeAlreadyFinalized }

// NewAlreadyFinalizedError builds an AlreadyFinalizedError for fileID.
func NewAlreadyFinalizedError(fileID string) *AlreadyFinalizedError {
	return &AlreadyFinalizedError{FileID: fileID}
}

// InvalidRequestError is raised for malformed JSON bodies or missing
// required fields.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string { return e.Message }

func (e *InvalidRequestError) Code() Code { return CodeInvalidRequest }

// NewInvalidRequestError builds an InvalidRequestError with the given message.
func NewInvalidRequestError(message string) *InvalidRequestError {
	return &InvalidRequestError{Message: message}
}

// codedError is implemented by every error type in this package.
type codedError interface {
	error
	Code() Code
}

// CodeOf returns the Code carried by err, and ok=false if err does not
// carry one of this package's error types.
func CodeOf(err error) (Code, bool) {
	if ce, ok := err.(codedError); ok {
		return ce.Code(), true
	}
	return 0, false
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeNotFound
}
