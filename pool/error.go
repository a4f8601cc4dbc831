package pool

import "errors"

var (
	// ErrNotFound is returned when a ref or label is absent from the pool.
	ErrNotFound = errors.New("pool: not found")

	// ErrPolicyViolation is returned for an invalid label name or a
	// refused overwrite.
	ErrPolicyViolation = errors.New("pool: policy violation")

	// ErrIntegrity is returned by Check when a stored object's recomputed
	// hash does not match its ref.
	ErrIntegrity = errors.New("pool: integrity failure")
)

// Resolve errors, per the NAME grammar in resolve.go.
var (
	ErrResolve          = errors.New("pool: cannot resolve name")
	ErrNoParent         = errors.New("pool: backup has no parent")
	ErrNotATree         = errors.New("pool: not a tree")
	ErrUnknownComponent = errors.New("pool: unknown path component")
)
