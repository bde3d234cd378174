package constraint

import "errors"

// Sentinel errors for the classification scheme in spec §7. Callers use
// errors.Is against these rather than matching on message text.
var (
	// ErrIllegalInheritance is returned when a C3 MRO merge has no legal
	// linearization.
	ErrIllegalInheritance = errors.New("illegal inheritance")

	// ErrUnsatisfiable indicates a solver found no consistent assignment.
	// Callers treat an empty bounds mapping the same way.
	ErrUnsatisfiable = errors.New("unsatisfiable constraint set")

	// ErrTypeKindMismatch indicates two incompatible type variants were
	// combined in a lattice operation that has no defined case for them.
	// This is a bug in the caller (the abstract interpreter), not a
	// reflection of anything in the program being analyzed.
	ErrTypeKindMismatch = errors.New("type kind mismatch")

	// ErrSubprocessFailed wraps a failure launching or running an external
	// solver/evaluator subprocess.
	ErrSubprocessFailed = errors.New("external solver subprocess failed")

	// ErrMROAlreadySet is returned by MRO.SetClasses when called a second
	// time on the same handle.
	ErrMROAlreadySet = errors.New("MRO classes are already set")

	// ErrMROUnset is returned by MRO.Classes when no linearization has been
	// assigned yet.
	ErrMROUnset = errors.New("MRO classes are not yet set")
)
