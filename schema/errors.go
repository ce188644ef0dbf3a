package schema

import "gitlab.com/tozd/go/errors"

// Sentinel errors returned by schema operations. Callers match them with
// errors.Is; returned errors carry details (type names, counts) that
// errors.Details exposes.
var (
	// ErrArityMismatch is returned when a generic type is given the wrong
	// number of arguments.
	ErrArityMismatch = errors.Base("type argument count mismatch")

	// ErrBoundParameterArguments is returned when a reference to a type
	// parameter carries arguments of its own.
	ErrBoundParameterArguments = errors.Base("type parameter reference has arguments")

	// ErrNameCollision is returned when two different definitions would
	// share a name.
	ErrNameCollision = errors.Base("type name collision")

	// ErrRenameUnmatched is returned when a rename pattern matched nothing.
	ErrRenameUnmatched = errors.Base("rename pattern matched no types")

	// ErrTransparentCycle is returned when following transparent wrappers
	// does not terminate.
	ErrTransparentCycle = errors.Base("transparent type cycle")

	// ErrUnknownTransform is returned for an unregistered transform name.
	ErrUnknownTransform = errors.Base("unknown field transform")

	// ErrTypeNotFound is returned when a reference names no definition.
	ErrTypeNotFound = errors.Base("type not found")

	// ErrInstantiationDepth is returned when instantiating a generic type
	// keeps producing ever deeper type arguments.
	ErrInstantiationDepth = errors.Base("generic instantiation too deep")

	// ErrInvalidPattern is returned for malformed rename patterns.
	ErrInvalidPattern = errors.Base("invalid rename pattern")
)
