package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// EncodeValue appends the type-tagged wire form of v to a buffer and
// returns the bytes. It is the exact inverse of DecodeValue; strings
// are validated (UTF-8, length fits 16 bits) rather than replaced.
func EncodeValue(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	buf.WriteByte(byte(v.Kind))
	return encodeValueBody(buf, v)
}

func encodeValueBody(buf *bytes.Buffer, v Value) error {
	switch v.Kind {
	case KindNull:
		return nil

	case KindDictionary:
		return encodeDictionary(buf, v)

	case KindStringArray:
		if err := putLen16(buf, len(v.Strings), "string[]"); err != nil {
			return err
		}
		for _, s := range v.Strings {
			if err := encodeStringBody(buf, s); err != nil {
				return err
			}
		}
		return nil

	case KindByte:
		buf.WriteByte(v.Byte)
		return nil

	case KindCustom:
		buf.WriteByte(v.CustomType)
		if err := putLen16(buf, len(v.Bytes), "custom data"); err != nil {
			return err
		}
		buf.Write(v.Bytes)
		return nil

	case KindDouble:
		putU64(buf, math.Float64bits(v.Double))
		return nil

	case KindEventData:
		return encodeEventData(buf, v.Event)

	case KindFloat:
		putU32(buf, math.Float32bits(v.Float))
		return nil

	case KindHashtable:
		if err := putLen16(buf, v.Map.Len(), "hashtable"); err != nil {
			return err
		}
		var encErr error
		v.Map.Range(func(k, val Value) bool {
			if encErr = encodeValue(buf, k); encErr != nil {
				return false
			}
			encErr = encodeValue(buf, val)
			return encErr == nil
		})
		return encErr

	case KindInteger:
		putU32(buf, uint32(v.Int))
		return nil

	case KindShort:
		putU16(buf, uint16(v.Short))
		return nil

	case KindLong:
		putU64(buf, uint64(v.Long))
		return nil

	case KindIntArray:
		putU32(buf, uint32(len(v.Ints)))
		for _, n := range v.Ints {
			putU32(buf, uint32(n))
		}
		return nil

	case KindBoolean:
		if v.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil

	case KindOpResponse:
		return encodeOperationResponse(buf, v.OpResp)

	case KindOpRequest:
		return encodeOperationRequest(buf, v.OpReq)

	case KindString:
		return encodeStringBody(buf, v.Str)

	case KindByteArray:
		putU32(buf, uint32(len(v.Bytes)))
		buf.Write(v.Bytes)
		return nil

	case KindArray:
		if err := putLen16(buf, len(v.Items), "array"); err != nil {
			return err
		}
		buf.WriteByte(byte(v.Elem))
		for _, it := range v.Items {
			if it.Kind != v.Elem {
				return fmt.Errorf("array element is %s, declared element type is %s", it.Kind, v.Elem)
			}
			if err := encodeValueBody(buf, it); err != nil {
				return err
			}
		}
		return nil

	case KindObjectArray:
		if err := putLen16(buf, len(v.Items), "object[]"); err != nil {
			return err
		}
		for _, it := range v.Items {
			if err := encodeValue(buf, it); err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("cannot encode value of kind 0x%02X", byte(v.Kind))
}

func encodeDictionary(buf *bytes.Buffer, v Value) error {
	buf.WriteByte(byte(v.KeyKind))
	buf.WriteByte(byte(v.ValKind))
	if err := putLen16(buf, v.Map.Len(), "dictionary"); err != nil {
		return err
	}

	taggedKey := v.KeyKind == kindNullAlt || v.KeyKind == KindNull
	taggedVal := v.ValKind == kindNullAlt || v.ValKind == KindNull

	var encErr error
	v.Map.Range(func(k, val Value) bool {
		if taggedKey {
			encErr = encodeValue(buf, k)
		} else if k.Kind != v.KeyKind {
			encErr = fmt.Errorf("dictionary key is %s, declared key type is %s", k.Kind, v.KeyKind)
		} else {
			encErr = encodeValueBody(buf, k)
		}
		if encErr != nil {
			return false
		}
		if taggedVal {
			encErr = encodeValue(buf, val)
		} else if val.Kind != v.ValKind {
			encErr = fmt.Errorf("dictionary value is %s, declared value type is %s", val.Kind, v.ValKind)
		} else {
			encErr = encodeValueBody(buf, val)
		}
		return encErr == nil
	})
	return encErr
}

func encodeStringBody(buf *bytes.Buffer, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("string is not valid UTF-8")
	}
	if err := putLen16(buf, len(s), "string"); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func encodeParamMap(buf *bytes.Buffer, m *ParamMap) error {
	if err := putLen16(buf, m.Len(), "parameter map"); err != nil {
		return err
	}
	var encErr error
	m.Range(func(code byte, v Value) bool {
		buf.WriteByte(code)
		encErr = encodeValue(buf, v)
		return encErr == nil
	})
	return encErr
}

func putLen16(buf *bytes.Buffer, n int, what string) error {
	if n > math.MaxInt16 {
		return fmt.Errorf("%s length %d does not fit in 16 bits", what, n)
	}
	putU16(buf, uint16(n))
	return nil
}

func putU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
