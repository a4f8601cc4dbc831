package object

import (
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Backup records a point-in-time snapshot: a root tree, an optional
// parent backup used to skip unchanged blobs, accumulated statistics,
// per-file errors encountered during the walk, and start/end timestamps.
type Backup struct {
	Root   Ref
	Parent Ref // empty means no parent
	Stats  map[string]int64
	Errors map[string]string // filename -> short error message
	Start  Timestamp
	End    Timestamp
}

// NewBackup returns a Backup with empty stats/errors maps, ready to be
// populated by a walk.
func NewBackup(parent Ref) *Backup {
	return &Backup{
		Parent: parent,
		Stats:  make(map[string]int64),
		Errors: make(map[string]string),
	}
}

// Duration returns End minus Start.
func (b *Backup) Duration() (seconds float64) {
	return b.End.Sub(b.Start.Time).Seconds()
}

// backupKeys is the fixed, ordered key set of the canonical map form.
var backupKeys = []string{"root", "parent", "stats", "errors", "start_date", "end_date"}

// EncodeMsgpack implements msgpack.CustomEncoder, producing the canonical
// map form with the fixed key set root/parent/stats/errors/start_date/end_date.
func (b *Backup) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(backupKeys)); err != nil {
		return err
	}
	if err := enc.EncodeString("root"); err != nil {
		return err
	}
	if err := enc.EncodeString(string(b.Root)); err != nil {
		return err
	}
	if err := enc.EncodeString("parent"); err != nil {
		return err
	}
	if b.Parent == "" {
		if err := enc.EncodeNil(); err != nil {
			return err
		}
	} else if err := enc.EncodeString(string(b.Parent)); err != nil {
		return err
	}
	if err := enc.EncodeString("stats"); err != nil {
		return err
	}
	if err := encodeStringIntMap(enc, b.Stats); err != nil {
		return err
	}
	if err := enc.EncodeString("errors"); err != nil {
		return err
	}
	if err := encodeErrorsMap(enc, b.Errors); err != nil {
		return err
	}
	if err := enc.EncodeString("start_date"); err != nil {
		return err
	}
	if err := enc.Encode(b.Start); err != nil {
		return err
	}
	if err := enc.EncodeString("end_date"); err != nil {
		return err
	}
	return enc.Encode(b.End)
}

func encodeStringIntMap(enc *msgpack.Encoder, m map[string]int64) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if err := enc.EncodeMapLen(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := enc.EncodeInt(m[k]); err != nil {
			return err
		}
	}
	return nil
}

func encodeErrorsMap(enc *msgpack.Encoder, m map[string]string) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if err := enc.EncodeMapLen(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := enc.EncodeBytes([]byte(k)); err != nil {
			return err
		}
		if err := enc.EncodeString(m[k]); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (b *Backup) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	*b = Backup{Stats: make(map[string]int64), Errors: make(map[string]string)}
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "root":
			s, err := dec.DecodeString()
			if err != nil {
				return err
			}
			b.Root = Ref(s)
		case "parent":
			v, err := dec.DecodeInterface()
			if err != nil {
				return err
			}
			if v == nil {
				b.Parent = ""
				continue
			}
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: parent is not a string", ErrDecodeFailure)
			}
			b.Parent = Ref(s)
		case "stats":
			m, err := decodeStringIntMap(dec)
			if err != nil {
				return err
			}
			b.Stats = m
		case "errors":
			m, err := decodeErrorsMap(dec)
			if err != nil {
				return err
			}
			b.Errors = m
		case "start_date":
			var ts Timestamp
			if err := dec.Decode(&ts); err != nil {
				return err
			}
			b.Start = ts
		case "end_date":
			var ts Timestamp
			if err := dec.Decode(&ts); err != nil {
				return err
			}
			b.End = ts
		default:
			if err := dec.Skip(); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeStringIntMap(dec *msgpack.Decoder) (map[string]int64, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	m := make(map[string]int64, n)
	for i := 0; i < n; i++ {
		k, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		v, err := dec.DecodeInt64()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func decodeErrorsMap(dec *msgpack.Decoder) (map[string]string, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, n)
	for i := 0; i < n; i++ {
		k, err := dec.DecodeBytes()
		if err != nil {
			return nil, err
		}
		v, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		m[string(k)] = v
	}
	return m, nil
}

// EncodeBackup returns the canonical MessagePack encoding of b.
func EncodeBackup(b *Backup) ([]byte, error) {
	return msgpack.Marshal(b)
}

// DecodeBackup parses the canonical MessagePack encoding into a Backup.
func DecodeBackup(data []byte) (*Backup, error) {
	b := &Backup{}
	if err := msgpack.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return b, nil
}
