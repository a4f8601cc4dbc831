package object

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// timestampExtCode is the MessagePack extension type code used to carry
// timestamps, per the wire format: payload is an ISO-8601 string in UTF-8.
const timestampExtCode = 1

// legacyTimestampLayout is the older on-disk timestamp format, kept for
// decoding objects written by earlier tooling.
const legacyTimestampLayout = "20060102T15:04:05.000000"

// Timestamp is a point in time, encoded on the wire as MessagePack
// extension type 1 carrying an ISO-8601 string.
type Timestamp struct {
	time.Time
}

// Now returns the current UTC time as a Timestamp, rounded to microsecond
// precision.
func Now() Timestamp {
	return Timestamp{time.Now().UTC().Round(time.Microsecond)}
}

// MarshalBinary implements encoding.BinaryMarshaler, used by msgpack's
// extension-type machinery to produce the ext payload.
func (t Timestamp) MarshalBinary() ([]byte, error) {
	return []byte(t.Time.UTC().Format(time.RFC3339Nano)), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. It accepts both
// RFC3339 (with optional fractional seconds and offset) and the legacy
// "YYYYMMDDT%H:%M:%S.%f" format.
func (t *Timestamp) UnmarshalBinary(data []byte) error {
	s := string(data)
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	if parsed, err := time.Parse(legacyTimestampLayout, s); err == nil {
		t.Time = parsed
		return nil
	}
	return fmt.Errorf("object: %q is not a recognized timestamp", s)
}

func init() {
	msgpack.RegisterExt(timestampExtCode, (*Timestamp)(nil))
}
