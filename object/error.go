package object

import "errors"

// ErrDecodeFailure is returned when an object's serialized bytes do not
// match the codec expected for the type being decoded. It is distinct
// from a not-found condition, which is a pool-level concern.
var ErrDecodeFailure = errors.New("object: decode failure")
