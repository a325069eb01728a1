package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Decode errors. Frame decoding never over-reads and never leaves
// partial state visible to the caller.
var (
	ErrTruncated = errors.New("not enough bytes left in the buffer")
	ErrEncrypted = errors.New("encrypted messages are not supported")
)

type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) need(n int) error {
	if r.remaining() < n {
		return ErrTruncated
	}
	return nil
}

func (r *reader) u8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) i16() (int16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := int16(binary.BigEndian.Uint16(r.data[r.pos:]))
	r.pos += 2
	return v, nil
}

func (r *reader) i32() (int32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.BigEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v, nil
}

func (r *reader) i64() (int64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := int64(binary.BigEndian.Uint64(r.data[r.pos:]))
	r.pos += 8
	return v, nil
}

func (r *reader) f32() (float32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := math.Float32frombits(binary.BigEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v, nil
}

func (r *reader) f64() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := math.Float64frombits(binary.BigEndian.Uint64(r.data[r.pos:]))
	r.pos += 8
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:])
	r.pos += n
	return b, nil
}

// DecodeValue reads one type-tagged value from data starting at pos and
// returns it along with the position of the first unread byte.
func DecodeValue(data []byte, pos int) (Value, int, error) {
	r := &reader{data: data, pos: pos}
	v, err := decodeValue(r)
	return v, r.pos, err
}

// DecodeValueAs reads one value of a known type (no leading tag) from
// data starting at pos.
func DecodeValueAs(data []byte, pos int, kind Kind) (Value, int, error) {
	r := &reader{data: data, pos: pos}
	v, err := decodeValueAs(r, byte(kind))
	return v, r.pos, err
}

func decodeValue(r *reader) (Value, error) {
	tag, err := r.u8()
	if err != nil {
		return Value{}, err
	}
	return decodeValueAs(r, tag)
}

func decodeValueAs(r *reader, tag byte) (Value, error) {
	switch Kind(tag) {
	case kindNullAlt, KindNull:
		return Null(), nil

	case KindDictionary:
		return decodeDictionary(r)

	case KindStringArray:
		n, err := r.i16()
		if err != nil {
			return Value{}, err
		}
		var out []string
		for i := int16(0); i < n; i++ {
			s, err := decodeStringBody(r)
			if err != nil {
				return Value{}, err
			}
			out = append(out, s)
		}
		return NewStringArray(out), nil

	case KindByte:
		b, err := r.u8()
		if err != nil {
			return Value{}, err
		}
		return NewByte(b), nil

	case KindCustom:
		subtype, err := r.u8()
		if err != nil {
			return Value{}, err
		}
		n, err := r.i16()
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{}, fmt.Errorf("negative length for custom data")
		}
		payload, err := r.bytes(int(n))
		if err != nil {
			return Value{}, err
		}
		return NewCustom(subtype, payload), nil

	case KindDouble:
		f, err := r.f64()
		if err != nil {
			return Value{}, err
		}
		return NewDouble(f), nil

	case KindEventData:
		ev, err := decodeEventData(r)
		if err != nil {
			return Value{}, err
		}
		return NewEventDataValue(ev), nil

	case KindFloat:
		f, err := r.f32()
		if err != nil {
			return Value{}, err
		}
		return NewFloat(f), nil

	case KindHashtable:
		n, err := r.i16()
		if err != nil {
			return Value{}, err
		}
		m := NewOrderedMap()
		for i := int16(0); i < n; i++ {
			k, err := decodeValue(r)
			if err != nil {
				return Value{}, err
			}
			v, err := decodeValue(r)
			if err != nil {
				return Value{}, err
			}
			if !k.IsNull() {
				m.Set(k, v)
			}
		}
		return NewHashtable(m), nil

	case KindInteger:
		v, err := r.i32()
		if err != nil {
			return Value{}, err
		}
		return NewInt(v), nil

	case KindShort:
		v, err := r.i16()
		if err != nil {
			return Value{}, err
		}
		return NewShort(v), nil

	case KindLong:
		v, err := r.i64()
		if err != nil {
			return Value{}, err
		}
		return NewLong(v), nil

	case KindIntArray:
		n, err := r.i32()
		if err != nil {
			return Value{}, err
		}
		var out []int32
		for i := int32(0); i < n; i++ {
			v, err := r.i32()
			if err != nil {
				return Value{}, err
			}
			out = append(out, v)
		}
		return NewIntArray(out), nil

	case KindBoolean:
		b, err := r.u8()
		if err != nil {
			return Value{}, err
		}
		return NewBool(b != 0), nil

	case KindOpResponse:
		resp, err := decodeOperationResponse(r)
		if err != nil {
			return Value{}, err
		}
		return NewOpResponseValue(resp), nil

	case KindOpRequest:
		req, err := decodeOperationRequest(r)
		if err != nil {
			return Value{}, err
		}
		return NewOpRequestValue(req), nil

	case KindString:
		s, err := decodeStringBody(r)
		if err != nil {
			return Value{}, err
		}
		return NewString(s), nil

	case KindByteArray:
		n, err := r.i32()
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{}, fmt.Errorf("byte[] length less than 0")
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return Value{}, err
		}
		return NewByteArray(b), nil

	case KindArray:
		n, err := r.i16()
		if err != nil {
			return Value{}, err
		}
		elem, err := r.u8()
		if err != nil {
			return Value{}, err
		}
		var items []Value
		for i := int16(0); i < n; i++ {
			v, err := decodeValueAs(r, elem)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return NewArray(Kind(elem), items), nil

	case KindObjectArray:
		n, err := r.i16()
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{}, fmt.Errorf("object[] length less than 0")
		}
		var items []Value
		for i := int16(0); i < n; i++ {
			v, err := decodeValue(r)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return NewObjectArray(items), nil
	}

	return Value{}, fmt.Errorf("unknown data type 0x%02X", tag)
}

func decodeDictionary(r *reader) (Value, error) {
	keyType, err := r.u8()
	if err != nil {
		return Value{}, err
	}
	valType, err := r.u8()
	if err != nil {
		return Value{}, err
	}
	n, err := r.i16()
	if err != nil {
		return Value{}, err
	}

	taggedKey := keyType == kindNullAlt || Kind(keyType) == KindNull
	taggedVal := valType == kindNullAlt || Kind(valType) == KindNull

	m := NewOrderedMap()
	for i := int16(0); i < n; i++ {
		var k, v Value
		if taggedKey {
			k, err = decodeValue(r)
		} else {
			k, err = decodeValueAs(r, keyType)
		}
		if err != nil {
			return Value{}, err
		}
		if taggedVal {
			v, err = decodeValue(r)
		} else {
			v, err = decodeValueAs(r, valType)
		}
		if err != nil {
			return Value{}, err
		}
		if !k.IsNull() {
			m.Set(k, v)
		}
	}
	return NewDictionary(Kind(keyType), Kind(valType), m), nil
}

// decodeStringBody reads a string payload without the 0x73 tag: a
// 16-bit length followed by UTF-8 bytes. Invalid UTF-8 sequences are
// replaced with U+FFFD, imitating .NET's Encoding.UTF8.GetString.
func decodeStringBody(r *reader) (string, error) {
	n, err := r.i16()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("string length less than 0")
	}
	if n == 0 {
		return "", nil
	}
	raw, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), nil
}

func decodeParamMap(r *reader) (*ParamMap, error) {
	n, err := r.i16()
	if err != nil {
		return nil, err
	}
	m := NewParamMap()
	for i := int16(0); i < n; i++ {
		code, err := r.u8()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		m.Set(code, v)
	}
	return m, nil
}
