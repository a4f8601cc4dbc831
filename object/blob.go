package object

import "io"

// Blob is an opaque byte sequence: the content of a file as read from a
// remote. It carries no header; its encoding is the identity function.
type Blob struct {
	Reader io.ReadCloser
}

// NewBlob wraps an already-open stream as a Blob.
func NewBlob(r io.ReadCloser) Blob {
	return Blob{Reader: r}
}

// Close releases the underlying stream, if any.
func (b Blob) Close() error {
	if b.Reader == nil {
		return nil
	}
	return b.Reader.Close()
}
