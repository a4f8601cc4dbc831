package object

import (
	"bytes"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Item is the open attribute mapping for a single Tree entry. Recognized
// keys are documented on the accessor methods below; unrecognized
// remote-defined keys are preserved verbatim across encode/decode.
type Item map[string]interface{}

// Type returns the "type" attribute ("blob", "tree", or "" if absent).
func (i Item) Type() string {
	v, _ := i["type"].(string)
	return v
}

// Ref returns the "ref" attribute as a Ref, or "" if absent.
func (i Item) Ref() Ref {
	v, _ := i["ref"].(string)
	return Ref(v)
}

// SetRef sets the "ref" attribute.
func (i Item) SetRef(ref Ref) {
	i["ref"] = string(ref)
}

// Filetype returns the original filesystem nature of the entry.
func (i Item) Filetype() string {
	v, _ := i["filetype"].(string)
	return v
}

// Link returns the symlink target, when Filetype() == "link".
func (i Item) Link() []byte {
	switch v := i["link"].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

// Mode returns the low 12 bits of POSIX permissions, or 0 if absent.
func (i Item) Mode() int64 {
	return i.int("mode")
}

// UID returns the owner uid, or 0 if absent.
func (i Item) UID() int64 { return i.int("uid") }

// GID returns the owner gid, or 0 if absent.
func (i Item) GID() int64 { return i.int("gid") }

// Mtime returns the "mtime" attribute, seconds since epoch.
func (i Item) Mtime() int64 { return i.int("mtime") }

// Atime returns the "atime" attribute, seconds since epoch.
func (i Item) Atime() int64 { return i.int("atime") }

// Ctime returns the "ctime" attribute, seconds since epoch.
func (i Item) Ctime() int64 { return i.int("ctime") }

// Size returns the informational original file size, or 0 if absent.
func (i Item) Size() int64 { return i.int("size") }

func (i Item) int(key string) int64 {
	switch v := i[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	default:
		return 0
	}
}

// Clone returns a shallow copy of the item, suitable for mutating a
// forged single-item tree without aliasing the original.
func (i Item) Clone() Item {
	c := make(Item, len(i))
	for k, v := range i {
		c[k] = v
	}
	return c
}

// Tree is an ordered mapping from name to item attributes. The in-memory
// representation has no fixed order; canonical order (by name, bytewise
// ascending) is imposed only at encode time, which is what guarantees two
// logically identical trees produce identical refs.
type Tree struct {
	items map[string]Item
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{items: make(map[string]Item)}
}

// Contains reports whether name is present in the tree.
func (t *Tree) Contains(name string) bool {
	_, ok := t.items[name]
	return ok
}

// Get returns the item for name, and whether it was present.
func (t *Tree) Get(name string) (Item, bool) {
	item, ok := t.items[name]
	return item, ok
}

// Add inserts or replaces the item for name.
func (t *Tree) Add(name string, item Item) {
	t.items[name] = item
}

// Discard removes name from the tree, if present.
func (t *Tree) Discard(name string) {
	delete(t.items, name)
}

// Len returns the number of items in the tree.
func (t *Tree) Len() int {
	return len(t.items)
}

// Names returns the item names in canonical (sorted, bytewise ascending) order.
func (t *Tree) Names() []string {
	names := make([]string, 0, len(t.items))
	for name := range t.items {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return bytes.Compare([]byte(names[i]), []byte(names[j])) < 0
	})
	return names
}

// NamedItem pairs a name with its item, used by Items to iterate canonically.
type NamedItem struct {
	Name string
	Item Item
}

// Items returns (name, item) pairs sorted by name.
func (t *Tree) Items() []NamedItem {
	names := t.Names()
	out := make([]NamedItem, len(names))
	for i, name := range names {
		out[i] = NamedItem{Name: name, Item: t.items[name]}
	}
	return out
}

// EncodeMsgpack implements msgpack.CustomEncoder, producing the canonical
// form: an array of [name_bytes, item_pairs] where item_pairs is itself an
// array of [key, value] sorted by key. This is a pure function of the
// logical item set, which is what makes dedup across identical directory
// contents possible.
func (t *Tree) EncodeMsgpack(enc *msgpack.Encoder) error {
	names := t.Names()
	if err := enc.EncodeArrayLen(len(names)); err != nil {
		return err
	}
	for _, name := range names {
		item := t.items[name]
		if err := enc.EncodeArrayLen(2); err != nil {
			return err
		}
		if err := enc.EncodeBytes([]byte(name)); err != nil {
			return err
		}
		keys := make([]string, 0, len(item))
		for k := range item {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if err := enc.EncodeArrayLen(len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := enc.EncodeArrayLen(2); err != nil {
				return err
			}
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := enc.Encode(item[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (t *Tree) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	items := make(map[string]Item, n)
	for i := 0; i < n; i++ {
		if _, err := dec.DecodeArrayLen(); err != nil {
			return err
		}
		nameBytes, err := dec.DecodeBytes()
		if err != nil {
			return err
		}
		attrLen, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		item := make(Item, attrLen)
		for j := 0; j < attrLen; j++ {
			if _, err := dec.DecodeArrayLen(); err != nil {
				return err
			}
			key, err := dec.DecodeString()
			if err != nil {
				return err
			}
			val, err := dec.DecodeInterface()
			if err != nil {
				return err
			}
			item[key] = val
		}
		items[string(nameBytes)] = item
	}
	t.items = items
	return nil
}

// EncodeTree returns the canonical MessagePack encoding of t.
func EncodeTree(t *Tree) ([]byte, error) {
	return msgpack.Marshal(t)
}

// DecodeTree parses the canonical MessagePack encoding into a Tree. It
// returns ErrDecodeFailure (never a raw msgpack error) on malformed input.
func DecodeTree(data []byte) (*Tree, error) {
	t := NewTree()
	if err := msgpack.Unmarshal(data, t); err != nil {
		return nil, ErrDecodeFailure
	}
	return t, nil
}
