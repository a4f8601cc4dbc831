// Package object implements the canonical encoding and content addressing
// for the three object kinds held in the pool: Blob, Tree and Backup.
package object

import (
	"crypto/sha1" //nolint:gosec // ref is a content identifier, not an authentication primitive; fixed by wire format.
	"encoding/hex"
	"regexp"
)

// Ref is the lowercase 40-character hex SHA-1 digest of an object's
// serialized bytes. It is a content identifier: collision resistance is
// not a security property relied upon anywhere in this package.
type Ref string

var refPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Valid reports whether r looks like a well-formed ref. It does not check
// that the ref exists in any pool.
func (r Ref) Valid() bool {
	return refPattern.MatchString(string(r))
}

func (r Ref) String() string {
	return string(r)
}

// ComputeRef returns the ref for the given serialized bytes, i.e.,
// hex(SHA1(data)).
func ComputeRef(data []byte) Ref {
	sum := sha1.Sum(data) //nolint:gosec
	return Ref(hex.EncodeToString(sum[:]))
}
