package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInsufficientFunds indicates that a transfer total exceeds the account balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrStaleTransition indicates an adjudication attempt on a transaction that
// has already left the Pending state. Callers treat this as a no-op rather
// than a failure so that repeated adjudications never double-apply.
var ErrStaleTransition = errors.New("transaction is no longer pending")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates the caller lacks the capability for an operation.
var ErrForbidden = errors.New("forbidden")
