package protocol

import (
	"fmt"
	"strings"
)

// String renders a compact single-line form of v for log output.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case KindByte:
		return fmt.Sprintf("byte(%d)", v.Byte)
	case KindShort:
		return fmt.Sprintf("short(%d)", v.Short)
	case KindInteger:
		return fmt.Sprintf("int(%d)", v.Int)
	case KindLong:
		return fmt.Sprintf("long(%d)", v.Long)
	case KindFloat:
		return fmt.Sprintf("float(%g)", v.Float)
	case KindDouble:
		return fmt.Sprintf("double(%g)", v.Double)
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindByteArray:
		return fmt.Sprintf("byte[%d]", len(v.Bytes))
	case KindIntArray:
		return fmt.Sprintf("int[%d]%v", len(v.Ints), v.Ints)
	case KindStringArray:
		return fmt.Sprintf("string[%d]%q", len(v.Strings), v.Strings)
	case KindCustom:
		return fmt.Sprintf("custom(%c, %d bytes)", v.CustomType, len(v.Bytes))
	case KindArray:
		return fmt.Sprintf("array<%s>%s", v.Elem, formatItems(v.Items))
	case KindObjectArray:
		return fmt.Sprintf("object[]%s", formatItems(v.Items))
	case KindHashtable:
		return fmt.Sprintf("hashtable(%d entries)", v.Map.Len())
	case KindDictionary:
		return fmt.Sprintf("dictionary<%s,%s>(%d entries)", v.KeyKind, v.ValKind, v.Map.Len())
	case KindEventData:
		return fmt.Sprintf("event(code=%d)", v.Event.Code)
	case KindOpRequest:
		return fmt.Sprintf("op_request(code=%d)", v.OpReq.Code)
	case KindOpResponse:
		return fmt.Sprintf("op_response(code=%d)", v.OpResp.Code)
	}
	return fmt.Sprintf("kind(0x%02X)", byte(v.Kind))
}

func formatItems(items []Value) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}
