package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. unknown vote decision, note longer than 500 characters).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidState is returned when an operation is not allowed in the
// request's current lifecycle state, e.g. voting on an expired request or
// accepting a seat on a full one.
// Handlers should map this to HTTP 409 Conflict.
var ErrInvalidState = errors.New("invalid state")

// ErrConstraintViolation is returned by the repo layer when a uniqueness
// constraint fails, such as a second vote row for the same (voter, request).
var ErrConstraintViolation = errors.New("constraint violation")

// ErrForbidden is returned when the caller is authenticated but does not own
// the resource they are trying to read or change.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized is returned when no valid identity is attached to the call.
var ErrUnauthorized = errors.New("unauthorized")
