package refset

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Ref is the JSON-facing reference type. It decodes any of the supported
// wire shapes (null, bare identifier, object with a known identifier key,
// array of either) and holds the already-normalized identifiers.
//
// It always marshals back as a sorted array of identifiers, so round-trips
// through the API converge on the canonical shape.
type Ref struct {
	ids []string
	// opaque marks a reference that carried content but no usable
	// identifier. Matching still treats it as empty; save-time
	// validation can reject it instead of silently widening scope.
	opaque bool
}

// FromIDs builds a Ref directly from identifiers.
func FromIDs(ids ...string) Ref {
	set := NewSet(ids...)
	return Ref{ids: set.IDs()}
}

// IsZero reports whether the reference holds no identifiers, meaning
// "unscoped" in coupon terms.
func (r Ref) IsZero() bool {
	return len(r.ids) == 0
}

// Unresolved reports whether the reference carried content that yielded
// no identifiers. An absent or null reference is not unresolved; an
// object missing every known key, or an empty collection, is.
func (r Ref) Unresolved() bool {
	return r.opaque && len(r.ids) == 0
}

// Set returns the identifiers as a Set.
func (r Ref) Set() Set {
	return NewSet(r.ids...)
}

// IDs returns the identifiers in lexicographic order.
func (r Ref) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// UnmarshalJSON decodes a reference in any supported shape using the
// DefaultIDKeys table. Shapes without a usable identifier (objects missing
// every known key, booleans, nested scalars of other types) decode to an
// empty contribution rather than an error; only malformed JSON fails.
//
// Code that carries a configured key table decodes through
// Normalizer.DecodeRef instead.
func (r *Ref) UnmarshalJSON(data []byte) error {
	decoded, err := decode(data, DefaultIDKeys)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// DecodeRef decodes a JSON reference using the normalizer's key table.
// This is the wire-side counterpart of Normalize: handler payloads and
// storage scans route reference bytes through it so the configured table
// governs the whole data path.
func (n *Normalizer) DecodeRef(data []byte) (Ref, error) {
	return decode(data, n.keys)
}

func decode(data []byte, keys []string) (Ref, error) {
	set := Set{}
	d := jx.DecodeBytes(data)
	present := d.Next() != jx.Null
	if err := decodeRef(d, keys, set); err != nil {
		return Ref{}, errors.Wrap(err, "decode reference")
	}
	return Ref{ids: set.IDs(), opaque: present && set.Empty()}, nil
}

// MarshalJSON encodes the reference as a sorted array of identifiers.
// An empty reference encodes as null.
func (r Ref) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	if len(r.ids) == 0 {
		e.Null()
		return e.Bytes(), nil
	}
	e.ArrStart()
	for _, id := range r.ids {
		e.Str(id)
	}
	e.ArrEnd()
	return e.Bytes(), nil
}

func decodeRef(d *jx.Decoder, keys []string, out Set) error {
	switch d.Next() {
	case jx.Null:
		return d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		out.Add(s)
		return nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return err
		}
		out.Add(n.String())
		return nil
	case jx.Object:
		return decodeObjectRef(d, keys, out)
	case jx.Array:
		return d.Arr(func(d *jx.Decoder) error {
			return decodeRef(d, keys, out)
		})
	default:
		// Booleans and anything else are unresolvable: skip, add nothing.
		return d.Skip()
	}
}

func decodeObjectRef(d *jx.Decoder, keys []string, out Set) error {
	found := make(map[string]string, 1)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if !knownKey(keys, key) {
			return d.Skip()
		}
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			found[key] = s
			return nil
		case jx.Number:
			n, err := d.Num()
			if err != nil {
				return err
			}
			found[key] = n.String()
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return err
	}
	// First key in the table wins when several are present.
	for _, key := range keys {
		if id, ok := found[key]; ok && id != "" {
			out.Add(id)
			return nil
		}
	}
	return nil
}

func knownKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
