package domain

import "errors"

var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrForbidden           = errors.New("only the project creator can do this")
	ErrProjectNotFound     = errors.New("project not found")
	ErrTimeRequestNotFound = errors.New("time request not found")

	ErrInvalidRole        = errors.New("role must be scout or parent")
	ErrInvalidHours       = errors.New("hours must be a positive multiple of 0.5")
	ErrMissingTimeRequest = errors.New("time request id required")
	ErrInvalidInput       = errors.New("invalid input")
)

// IsValidation reports whether err is caused by bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrInvalidHours) ||
		errors.Is(err, ErrMissingTimeRequest) ||
		errors.Is(err, ErrInvalidInput)
}
