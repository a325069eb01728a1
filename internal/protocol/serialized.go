package protocol

import "fmt"

// Each actor owns up to this many view ids; viewID / 1000 is the
// owning actor id.
const maxViewIDsPerActor = 1000

// SerializedData is one object stream from a SEND_SERIALIZE event: a
// Monobehaviour, Transform, Rigidbody or Rigidbody2D snapshot. Element
// 0 of the source object array is the view id, elements 1 and 2 carry
// compression metadata (unused here), the rest is the stream payload.
type SerializedData struct {
	ViewID     int32
	DataStream []Value
}

// SerializedDataFromObjectArray parses the elements of an ObjectArray
// into a SerializedData.
func SerializedDataFromObjectArray(items []Value) (*SerializedData, error) {
	if len(items) < 3 {
		return nil, fmt.Errorf("serialized data has %d elements, want at least 3", len(items))
	}
	if items[0].Kind != KindInteger {
		return nil, fmt.Errorf("serialized data element 0 is %s, want Integer view id", items[0].Kind)
	}
	stream := make([]Value, len(items)-3)
	copy(stream, items[3:])
	return &SerializedData{ViewID: items[0].Int, DataStream: stream}, nil
}

// OwnerID derives the owning actor id from the stream's view id.
func (s *SerializedData) OwnerID() int32 {
	return s.ViewID / maxViewIDsPerActor
}

// SerializedData extracts every object stream from the event's data
// map. Streams are stored under Byte keys counting up from 10; the
// header in front of them is two entries long when Byte(1) is present
// and one entry otherwise. A missing or ill-typed stream entry fails
// the whole extraction.
func (e *SendSerializeEvent) SerializedData() ([]*SerializedData, error) {
	headerLen := 1
	if e.Data.Contains(NewByte(1)) {
		headerLen = 2
	}

	const dataInitialIndex = 10
	count := e.Data.Len() - headerLen
	out := make([]*SerializedData, 0, count)
	for i := 0; i < count; i++ {
		// the game's implementation wraps the index at 255
		key := byte((i + dataInitialIndex) & 0xFF)
		v, ok := e.Data.Get(NewByte(key))
		if !ok {
			return nil, fmt.Errorf("send serialize data is missing stream entry %d", key)
		}
		if v.Kind != KindObjectArray {
			return nil, fmt.Errorf("send serialize stream entry %d is %s, want ObjectArray", key, v.Kind)
		}
		data, err := SerializedDataFromObjectArray(v.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}
