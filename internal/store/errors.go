package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// CodeNoSuchBucket indicates an operation referenced an unknown bucket id.
	CodeNoSuchBucket ErrorCode = "NO_SUCH_BUCKET"

	// CodeBucketAlreadyExists indicates a create collided with a live bucket id.
	CodeBucketAlreadyExists ErrorCode = "BUCKET_ALREADY_EXISTS"

	// CodeUnavailable indicates exclusive access could not be obtained.
	// Transient from the caller's point of view; the store never retries.
	CodeUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// Error is a store error carrying its category and the offending bucket id.
//
// Compare with errors.Is against the sentinels below (matches by Code), or
// extract with errors.As for the BucketID.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// BucketID is the bucket the operation referenced, if any.
	BucketID string

	// Reason is additional context (e.g., why the store is unavailable).
	Reason string
}

// Sentinel errors for errors.Is comparisons.
var (
	ErrNoSuchBucket        = &Error{Code: CodeNoSuchBucket}
	ErrBucketAlreadyExists = &Error{Code: CodeBucketAlreadyExists}
	ErrStoreUnavailable    = &Error{Code: CodeUnavailable}
)

// ErrInvalidEvent is wrapped by errors for events the store cannot
// represent. See validateEvent.
var ErrInvalidEvent = errors.New("invalid event")

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.BucketID != "":
		return fmt.Sprintf("%s: bucket %q", e.Code, e.BucketID)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Reason)
	default:
		return string(e.Code)
	}
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsNoSuchBucket returns true if err is (or wraps) a NoSuchBucket error.
func IsNoSuchBucket(err error) bool {
	return errors.Is(err, ErrNoSuchBucket)
}

// IsBucketAlreadyExists returns true if err is (or wraps) a BucketAlreadyExists error.
func IsBucketAlreadyExists(err error) bool {
	return errors.Is(err, ErrBucketAlreadyExists)
}

// IsUnavailable returns true if err is (or wraps) a StoreUnavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func noSuchBucket(id string) *Error {
	return &Error{Code: CodeNoSuchBucket, BucketID: id}
}

func bucketAlreadyExists(id string) *Error {
	return &Error{Code: CodeBucketAlreadyExists, BucketID: id}
}

func unavailableError(reason string) *Error {
	return &Error{Code: CodeUnavailable, Reason: reason}
}
