package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Custom-data subtype bytes registered by PUN.
const (
	CustomTypeVector2    byte = 'W'
	CustomTypeVector3    byte = 'V'
	CustomTypeQuaternion byte = 'Q'
	CustomTypePlayer     byte = 'P'
)

// Vector3 is the payload of a Custom value with subtype 'V': three
// big-endian float32s.
type Vector3 struct {
	X, Y, Z float32
}

// Quaternion is the payload of a Custom value with subtype 'Q': four
// big-endian float32s.
type Quaternion struct {
	X, Y, Z, W float32
}

// Vector3FromValue reinterprets a Custom value as a Vector3.
func Vector3FromValue(v Value) (Vector3, error) {
	if v.Kind != KindCustom || v.CustomType != CustomTypeVector3 {
		return Vector3{}, fmt.Errorf("value is not a Vector3 custom payload")
	}
	if len(v.Bytes) != 12 {
		return Vector3{}, fmt.Errorf("Vector3 payload is %d bytes, want 12", len(v.Bytes))
	}
	return Vector3{
		X: math.Float32frombits(binary.BigEndian.Uint32(v.Bytes[0:])),
		Y: math.Float32frombits(binary.BigEndian.Uint32(v.Bytes[4:])),
		Z: math.Float32frombits(binary.BigEndian.Uint32(v.Bytes[8:])),
	}, nil
}

// Value serializes the vector back into a Custom value.
func (v Vector3) Value() Value {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:], math.Float32bits(v.X))
	binary.BigEndian.PutUint32(b[4:], math.Float32bits(v.Y))
	binary.BigEndian.PutUint32(b[8:], math.Float32bits(v.Z))
	return NewCustom(CustomTypeVector3, b)
}

// QuaternionFromValue reinterprets a Custom value as a Quaternion.
func QuaternionFromValue(v Value) (Quaternion, error) {
	if v.Kind != KindCustom || v.CustomType != CustomTypeQuaternion {
		return Quaternion{}, fmt.Errorf("value is not a Quaternion custom payload")
	}
	if len(v.Bytes) != 16 {
		return Quaternion{}, fmt.Errorf("Quaternion payload is %d bytes, want 16", len(v.Bytes))
	}
	return Quaternion{
		X: math.Float32frombits(binary.BigEndian.Uint32(v.Bytes[0:])),
		Y: math.Float32frombits(binary.BigEndian.Uint32(v.Bytes[4:])),
		Z: math.Float32frombits(binary.BigEndian.Uint32(v.Bytes[8:])),
		W: math.Float32frombits(binary.BigEndian.Uint32(v.Bytes[12:])),
	}, nil
}

// Value serializes the quaternion back into a Custom value.
func (q Quaternion) Value() Value {
	b := make([]byte, 16)
	binary.BigEndian.PutUint32(b[0:], math.Float32bits(q.X))
	binary.BigEndian.PutUint32(b[4:], math.Float32bits(q.Y))
	binary.BigEndian.PutUint32(b[8:], math.Float32bits(q.Z))
	binary.BigEndian.PutUint32(b[12:], math.Float32bits(q.W))
	return NewCustom(CustomTypeQuaternion, b)
}
