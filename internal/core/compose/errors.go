package compose

import perr "constkit/internal/platform/errors"

var (
	// ErrRawLiteralDerivation means an entry is, or is derived from, a bare literal, or a
	// derivation lands on a value the registry already owns
	ErrRawLiteralDerivation = perr.New(perr.ErrorCodeIntegrity, "raw literal in bundle")
	// ErrBundleRedefinition means a bundle name was composed again with different entries
	ErrBundleRedefinition = perr.New(perr.ErrorCodeConflict, "bundle redefinition")
	// ErrCrossBundleReference means an entry points at another bundle
	ErrCrossBundleReference = perr.New(perr.ErrorCodeIntegrity, "bundle references another bundle")
	// ErrPhaseOrder means composition started before the semantic layer was sealed
	ErrPhaseOrder = perr.New(perr.ErrorCodeIntegrity, "compose before bindings are sealed")
	// ErrInvalidDerivation means an entry does not parse or cannot be evaluated
	ErrInvalidDerivation = perr.New(perr.ErrorCodeInvalidArgument, "invalid derivation")
	// ErrUnknownField means a bundle has no such field
	ErrUnknownField = perr.New(perr.ErrorCodeNotFound, "unknown bundle field")
)
