package local

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Indexed values are encoded with a leading type tag followed by an
// order-preserving byte form, so postings for one index sort by value and
// range reads over an index prefix visit values in order.
const (
	tagNil    byte = 0x00
	tagFalse  byte = 0x01
	tagTrue   byte = 0x02
	tagInt    byte = 0x10
	tagFloat  byte = 0x11
	tagString byte = 0x20
	tagBytes  byte = 0x21
)

// encodeValue returns the order-preserving byte form of a scalar bin value.
func encodeValue(v any) ([]byte, error) {
	switch n := v.(type) {
	case nil:
		return []byte{tagNil}, nil
	case bool:
		if n {
			return []byte{tagTrue}, nil
		}
		return []byte{tagFalse}, nil
	case int:
		return encodeInt(int64(n)), nil
	case int8:
		return encodeInt(int64(n)), nil
	case int16:
		return encodeInt(int64(n)), nil
	case int32:
		return encodeInt(int64(n)), nil
	case int64:
		return encodeInt(n), nil
	case uint8:
		return encodeInt(int64(n)), nil
	case uint16:
		return encodeInt(int64(n)), nil
	case uint32:
		return encodeInt(int64(n)), nil
	case float32:
		return encodeFloat(float64(n)), nil
	case float64:
		return encodeFloat(n), nil
	case string:
		return append([]byte{tagString}, n...), nil
	case []byte:
		return append([]byte{tagBytes}, n...), nil
	}
	return nil, fmt.Errorf("value of type %T is not indexable", v)
}

// encodeInt flips the sign bit so lexicographic byte order matches numeric
// order.
func encodeInt(v int64) []byte {
	out := make([]byte, 1, 9)
	out[0] = tagInt
	return binary.BigEndian.AppendUint64(out, uint64(v)^(1<<63))
}

// encodeFloat maps IEEE 754 bits onto a monotone byte form: positive floats
// get the sign bit flipped, negative floats are bitwise inverted.
func encodeFloat(f float64) []byte {
	u := math.Float64bits(f)
	if f < 0 {
		u = ^u
	} else {
		u ^= 1 << 63
	}
	out := make([]byte, 1, 9)
	out[0] = tagFloat
	return binary.BigEndian.AppendUint64(out, u)
}
