package protocol

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the wire type of a Value. The constant values are the
// type code bytes used on the wire, so encoding a tagged value writes
// the Kind directly.
type Kind byte

const (
	KindNull        Kind = 0x2A
	KindDictionary  Kind = 0x44
	KindStringArray Kind = 0x61
	KindByte        Kind = 0x62
	KindCustom      Kind = 0x63
	KindDouble      Kind = 0x64
	KindEventData   Kind = 0x65
	KindFloat       Kind = 0x66
	KindHashtable   Kind = 0x68
	KindInteger     Kind = 0x69
	KindShort       Kind = 0x6B
	KindLong        Kind = 0x6C
	KindIntArray    Kind = 0x6E
	KindBoolean     Kind = 0x6F
	KindOpResponse  Kind = 0x70
	KindOpRequest   Kind = 0x71
	KindString      Kind = 0x73
	KindByteArray   Kind = 0x78
	KindArray       Kind = 0x79
	KindObjectArray Kind = 0x7A
)

// kindNullAlt is the alternate null tag (0x00) accepted on decode.
// It always decodes to KindNull.
const kindNullAlt = 0x00

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindDictionary:
		return "Dictionary"
	case KindStringArray:
		return "StringArray"
	case KindByte:
		return "Byte"
	case KindCustom:
		return "Custom"
	case KindDouble:
		return "Double"
	case KindEventData:
		return "EventData"
	case KindFloat:
		return "Float"
	case KindHashtable:
		return "Hashtable"
	case KindInteger:
		return "Integer"
	case KindShort:
		return "Short"
	case KindLong:
		return "Long"
	case KindIntArray:
		return "IntArray"
	case KindBoolean:
		return "Boolean"
	case KindOpResponse:
		return "OperationResponse"
	case KindOpRequest:
		return "OperationRequest"
	case KindString:
		return "String"
	case KindByteArray:
		return "ByteArray"
	case KindArray:
		return "Array"
	case KindObjectArray:
		return "ObjectArray"
	}
	return "Kind(0x" + strconv.FormatUint(uint64(k), 16) + ")"
}

// Value is a single serialized .NET object as Photon puts it on the
// wire. Exactly the fields relevant to Kind are populated; the rest
// stay at their zero value. The zero Value is not valid, use Null().
type Value struct {
	Kind Kind

	Bool   bool
	Byte   byte
	Short  int16
	Int    int32
	Long   int64
	Float  float32
	Double float64
	Str    string

	// Bytes is the payload of a ByteArray or Custom value.
	Bytes []byte
	// CustomType is the game-defined subtype byte of a Custom value.
	CustomType byte

	Ints    []int32
	Strings []string

	// Elem is the element type of a typed Array.
	Elem Kind
	// Items holds Array and ObjectArray elements.
	Items []Value

	// KeyKind/ValKind describe a Dictionary's homogeneous entry types.
	KeyKind Kind
	ValKind Kind
	// Map holds Hashtable and Dictionary entries in insertion order.
	Map *OrderedMap

	Event  *EventData
	OpReq  *OperationRequest
	OpResp *OperationResponse
}

func Null() Value                 { return Value{Kind: KindNull} }
func NewBool(b bool) Value        { return Value{Kind: KindBoolean, Bool: b} }
func NewByte(b byte) Value        { return Value{Kind: KindByte, Byte: b} }
func NewShort(v int16) Value      { return Value{Kind: KindShort, Short: v} }
func NewInt(v int32) Value        { return Value{Kind: KindInteger, Int: v} }
func NewLong(v int64) Value       { return Value{Kind: KindLong, Long: v} }
func NewFloat(v float32) Value    { return Value{Kind: KindFloat, Float: v} }
func NewDouble(v float64) Value   { return Value{Kind: KindDouble, Double: v} }
func NewString(s string) Value    { return Value{Kind: KindString, Str: s} }
func NewByteArray(b []byte) Value { return Value{Kind: KindByteArray, Bytes: b} }
func NewIntArray(v []int32) Value { return Value{Kind: KindIntArray, Ints: v} }

func NewStringArray(v []string) Value { return Value{Kind: KindStringArray, Strings: v} }

func NewCustom(subtype byte, data []byte) Value {
	return Value{Kind: KindCustom, CustomType: subtype, Bytes: data}
}

func NewArray(elem Kind, items []Value) Value {
	return Value{Kind: KindArray, Elem: elem, Items: items}
}

func NewObjectArray(items []Value) Value {
	return Value{Kind: KindObjectArray, Items: items}
}

func NewHashtable(m *OrderedMap) Value {
	if m == nil {
		m = NewOrderedMap()
	}
	return Value{Kind: KindHashtable, Map: m}
}

func NewDictionary(keyKind, valKind Kind, m *OrderedMap) Value {
	if m == nil {
		m = NewOrderedMap()
	}
	return Value{Kind: KindDictionary, KeyKind: keyKind, ValKind: valKind, Map: m}
}

func NewEventDataValue(e *EventData) Value         { return Value{Kind: KindEventData, Event: e} }
func NewOpRequestValue(r *OperationRequest) Value  { return Value{Kind: KindOpRequest, OpReq: r} }
func NewOpResponseValue(r *OperationResponse) Value { return Value{Kind: KindOpResponse, OpResp: r} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal reports deep equality. Map variants compare order-insensitively,
// matching the semantics the game's own runtime uses; float comparison
// is by bit pattern with all NaNs collapsed to one representative.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBoolean:
		return v.Bool == o.Bool
	case KindByte:
		return v.Byte == o.Byte
	case KindShort:
		return v.Short == o.Short
	case KindInteger:
		return v.Int == o.Int
	case KindLong:
		return v.Long == o.Long
	case KindFloat:
		return floatBits32(v.Float) == floatBits32(o.Float)
	case KindDouble:
		return floatBits64(v.Double) == floatBits64(o.Double)
	case KindString:
		return v.Str == o.Str
	case KindByteArray, KindCustom:
		return v.CustomType == o.CustomType && bytesEqual(v.Bytes, o.Bytes)
	case KindIntArray:
		if len(v.Ints) != len(o.Ints) {
			return false
		}
		for i := range v.Ints {
			if v.Ints[i] != o.Ints[i] {
				return false
			}
		}
		return true
	case KindStringArray:
		if len(v.Strings) != len(o.Strings) {
			return false
		}
		for i := range v.Strings {
			if v.Strings[i] != o.Strings[i] {
				return false
			}
		}
		return true
	case KindArray:
		if v.Elem != o.Elem {
			return false
		}
		return valuesEqual(v.Items, o.Items)
	case KindObjectArray:
		return valuesEqual(v.Items, o.Items)
	case KindHashtable:
		return v.Map.Equal(o.Map)
	case KindDictionary:
		return v.KeyKind == o.KeyKind && v.ValKind == o.ValKind && v.Map.Equal(o.Map)
	case KindEventData:
		return v.Event.Equal(o.Event)
	case KindOpRequest:
		return v.OpReq.Equal(o.OpReq)
	case KindOpResponse:
		return v.OpResp.Equal(o.OpResp)
	}
	return false
}

func valuesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// floatBits32 collapses every NaN bit pattern to a single
// representative so float values hash and compare totally.
func floatBits32(f float32) uint32 {
	if f != f {
		return math.Float32bits(float32(math.NaN()))
	}
	return math.Float32bits(f)
}

func floatBits64(f float64) uint64 {
	if f != f {
		return math.Float64bits(math.NaN())
	}
	return math.Float64bits(f)
}

// mapKey returns a canonical string form of v used to index ordered
// maps. Two values with the same mapKey are equal for key purposes.
func (v Value) mapKey() string {
	var sb strings.Builder
	v.appendKey(&sb)
	return sb.String()
}

func (v Value) appendKey(sb *strings.Builder) {
	sb.WriteByte(byte(v.Kind))
	switch v.Kind {
	case KindNull:
	case KindBoolean:
		if v.Bool {
			sb.WriteByte(1)
		} else {
			sb.WriteByte(0)
		}
	case KindByte:
		sb.WriteByte(v.Byte)
	case KindShort:
		appendUint(sb, uint64(uint16(v.Short)), 2)
	case KindInteger:
		appendUint(sb, uint64(uint32(v.Int)), 4)
	case KindLong:
		appendUint(sb, uint64(v.Long), 8)
	case KindFloat:
		appendUint(sb, uint64(floatBits32(v.Float)), 4)
	case KindDouble:
		appendUint(sb, floatBits64(v.Double), 8)
	case KindString:
		appendUint(sb, uint64(len(v.Str)), 4)
		sb.WriteString(v.Str)
	case KindByteArray, KindCustom:
		sb.WriteByte(v.CustomType)
		appendUint(sb, uint64(len(v.Bytes)), 4)
		sb.Write(v.Bytes)
	case KindIntArray:
		appendUint(sb, uint64(len(v.Ints)), 4)
		for _, n := range v.Ints {
			appendUint(sb, uint64(uint32(n)), 4)
		}
	case KindStringArray:
		appendUint(sb, uint64(len(v.Strings)), 4)
		for _, s := range v.Strings {
			appendUint(sb, uint64(len(s)), 4)
			sb.WriteString(s)
		}
	case KindArray:
		sb.WriteByte(byte(v.Elem))
		appendUint(sb, uint64(len(v.Items)), 4)
		for _, it := range v.Items {
			it.appendKey(sb)
		}
	case KindObjectArray:
		appendUint(sb, uint64(len(v.Items)), 4)
		for _, it := range v.Items {
			it.appendKey(sb)
		}
	case KindHashtable, KindDictionary:
		sb.WriteByte(byte(v.KeyKind))
		sb.WriteByte(byte(v.ValKind))
		if v.Map != nil {
			appendUint(sb, uint64(v.Map.Len()), 4)
			for i := 0; i < v.Map.Len(); i++ {
				v.Map.KeyAt(i).appendKey(sb)
				v.Map.ValueAt(i).appendKey(sb)
			}
		}
	case KindEventData:
		if v.Event != nil {
			sb.WriteByte(v.Event.Code)
			v.Event.Params.appendKey(sb)
		}
	case KindOpRequest:
		if v.OpReq != nil {
			sb.WriteByte(v.OpReq.Code)
			v.OpReq.Params.appendKey(sb)
		}
	case KindOpResponse:
		if v.OpResp != nil {
			sb.WriteByte(v.OpResp.Code)
			appendUint(sb, uint64(uint16(v.OpResp.ReturnCode)), 2)
			if v.OpResp.DebugMessage != nil {
				sb.WriteByte(1)
				sb.WriteString(*v.OpResp.DebugMessage)
			} else {
				sb.WriteByte(0)
			}
			v.OpResp.Params.appendKey(sb)
		}
	}
}

func appendUint(sb *strings.Builder, v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		sb.WriteByte(byte(v >> (8 * i)))
	}
}

// OrderedMap is an insertion-ordered mapping from Value to Value, the
// in-memory form of Hashtable and Dictionary contents. Overwriting an
// existing key keeps its original position; removal shifts later
// entries down so relative order is preserved.
type OrderedMap struct {
	keys []Value
	vals []Value
	idx  map[string]int
}

func NewOrderedMap() *OrderedMap {
	return &OrderedMap{idx: make(map[string]int)}
}

func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *OrderedMap) Get(k Value) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	i, ok := m.idx[k.mapKey()]
	if !ok {
		return Value{}, false
	}
	return m.vals[i], true
}

func (m *OrderedMap) Contains(k Value) bool {
	_, ok := m.Get(k)
	return ok
}

func (m *OrderedMap) Set(k, v Value) {
	key := k.mapKey()
	if i, ok := m.idx[key]; ok {
		m.vals[i] = v
		return
	}
	m.idx[key] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
}

// Take removes k and returns its value. Later entries shift down.
func (m *OrderedMap) Take(k Value) (Value, bool) {
	key := k.mapKey()
	i, ok := m.idx[key]
	if !ok {
		return Value{}, false
	}
	v := m.vals[i]
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	delete(m.idx, key)
	for kk, ii := range m.idx {
		if ii > i {
			m.idx[kk] = ii - 1
		}
	}
	return v, true
}

func (m *OrderedMap) KeyAt(i int) Value   { return m.keys[i] }
func (m *OrderedMap) ValueAt(i int) Value { return m.vals[i] }

func (m *OrderedMap) SetValueAt(i int, v Value) { m.vals[i] = v }

// Range calls fn for each entry in insertion order until fn returns
// false.
func (m *OrderedMap) Range(fn func(k, v Value) bool) {
	if m == nil {
		return
	}
	for i := range m.keys {
		if !fn(m.keys[i], m.vals[i]) {
			return
		}
	}
}

func (m *OrderedMap) Clone() *OrderedMap {
	c := NewOrderedMap()
	if m == nil {
		return c
	}
	for i := range m.keys {
		c.Set(m.keys[i], m.vals[i])
	}
	return c
}

// Equal compares entry sets order-insensitively.
func (m *OrderedMap) Equal(o *OrderedMap) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i := 0; i < m.Len(); i++ {
		ov, ok := o.Get(m.keys[i])
		if !ok || !m.vals[i].Equal(ov) {
			return false
		}
	}
	return true
}

// ParamMap is an insertion-ordered mapping from 8-bit parameter codes
// to values, the payload of every message envelope.
type ParamMap struct {
	codes []byte
	vals  []Value
	idx   map[byte]int
}

func NewParamMap() *ParamMap {
	return &ParamMap{idx: make(map[byte]int)}
}

func (m *ParamMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.codes)
}

func (m *ParamMap) Get(code byte) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	i, ok := m.idx[code]
	if !ok {
		return Value{}, false
	}
	return m.vals[i], true
}

func (m *ParamMap) Set(code byte, v Value) {
	if i, ok := m.idx[code]; ok {
		m.vals[i] = v
		return
	}
	m.idx[code] = len(m.codes)
	m.codes = append(m.codes, code)
	m.vals = append(m.vals, v)
}

func (m *ParamMap) Take(code byte) (Value, bool) {
	i, ok := m.idx[code]
	if !ok {
		return Value{}, false
	}
	v := m.vals[i]
	m.codes = append(m.codes[:i], m.codes[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	delete(m.idx, code)
	for c, ii := range m.idx {
		if ii > i {
			m.idx[c] = ii - 1
		}
	}
	return v, true
}

func (m *ParamMap) CodeAt(i int) byte    { return m.codes[i] }
func (m *ParamMap) ValueAt(i int) Value  { return m.vals[i] }

func (m *ParamMap) Range(fn func(code byte, v Value) bool) {
	if m == nil {
		return
	}
	for i := range m.codes {
		if !fn(m.codes[i], m.vals[i]) {
			return
		}
	}
}

func (m *ParamMap) Clone() *ParamMap {
	c := NewParamMap()
	if m == nil {
		return c
	}
	for i := range m.codes {
		c.Set(m.codes[i], m.vals[i])
	}
	return c
}

func (m *ParamMap) Equal(o *ParamMap) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i := 0; i < m.Len(); i++ {
		ov, ok := o.Get(m.codes[i])
		if !ok || !m.vals[i].Equal(ov) {
			return false
		}
	}
	return true
}

func (m *ParamMap) appendKey(sb *strings.Builder) {
	appendUint(sb, uint64(m.Len()), 4)
	for i := 0; i < m.Len(); i++ {
		sb.WriteByte(m.codes[i])
		m.vals[i].appendKey(sb)
	}
}

// StringMap is an insertion-ordered mapping from string to Value. The
// typed views use it for the residual custom-property bucket.
type StringMap struct {
	keys []string
	vals []Value
	idx  map[string]int
}

func NewStringMap() *StringMap {
	return &StringMap{idx: make(map[string]int)}
}

func (m *StringMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *StringMap) Get(k string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	i, ok := m.idx[k]
	if !ok {
		return Value{}, false
	}
	return m.vals[i], true
}

func (m *StringMap) Set(k string, v Value) {
	if i, ok := m.idx[k]; ok {
		m.vals[i] = v
		return
	}
	m.idx[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
}

func (m *StringMap) KeyAt(i int) string  { return m.keys[i] }
func (m *StringMap) ValueAt(i int) Value { return m.vals[i] }

func (m *StringMap) SetValueAt(i int, v Value) { m.vals[i] = v }

func (m *StringMap) Range(fn func(k string, v Value) bool) {
	if m == nil {
		return
	}
	for i := range m.keys {
		if !fn(m.keys[i], m.vals[i]) {
			return
		}
	}
}
