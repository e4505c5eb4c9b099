package registry

import perr "constkit/internal/platform/errors"

// Bootstrap-integrity sentinels; match with errors.Is
var (
	// ErrDuplicateValue means (domain, value) is already registered with another description
	ErrDuplicateValue = perr.New(perr.ErrorCodeIntegrity, "duplicate atomic value")
	// ErrFrozenRegistry means Register was called after Freeze
	ErrFrozenRegistry = perr.New(perr.ErrorCodeIntegrity, "registry is frozen")
	// ErrInvalidValue means the domain is unknown or the value does not parse for it
	ErrInvalidValue = perr.New(perr.ErrorCodeInvalidArgument, "invalid atomic value")
)
