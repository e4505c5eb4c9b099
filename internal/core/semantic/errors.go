package semantic

import perr "constkit/internal/platform/errors"

var (
	// ErrUnknownAtomicID means Bind referenced an id the registry does not hold
	ErrUnknownAtomicID = perr.New(perr.ErrorCodeIntegrity, "unknown atomic id")
	// ErrDuplicateBindingName means the name is already bound to a different atomic id
	ErrDuplicateBindingName = perr.New(perr.ErrorCodeIntegrity, "duplicate binding name")
	// ErrUnboundName means no binding exists for the name
	ErrUnboundName = perr.New(perr.ErrorCodeNotFound, "unbound name")
	// ErrSealedLayer means Bind was called after Seal
	ErrSealedLayer = perr.New(perr.ErrorCodeIntegrity, "semantic layer is sealed")
	// ErrInvalidName means the name is not an identifier
	ErrInvalidName = perr.New(perr.ErrorCodeInvalidArgument, "invalid binding name")
)
