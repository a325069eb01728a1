package protocol

import "testing"

func stream(viewID int32, payload ...Value) Value {
	items := []Value{NewInt(viewID), Null(), Null()}
	items = append(items, payload...)
	return NewObjectArray(items)
}

func TestSerializedDataFromObjectArray(t *testing.T) {
	data, err := SerializedDataFromObjectArray(stream(2001, NewShort(1), NewShort(2)).Items)
	if err != nil {
		t.Fatalf("SerializedDataFromObjectArray error: %v", err)
	}
	if data.ViewID != 2001 {
		t.Errorf("ViewID = %d, want 2001", data.ViewID)
	}
	if data.OwnerID() != 2 {
		t.Errorf("OwnerID = %d, want 2", data.OwnerID())
	}
	if len(data.DataStream) != 2 {
		t.Errorf("DataStream = %d elements, want 2", len(data.DataStream))
	}

	if _, err := SerializedDataFromObjectArray([]Value{NewInt(1)}); err == nil {
		t.Error("short object array accepted, want error")
	}
	if _, err := SerializedDataFromObjectArray([]Value{NewString("x"), Null(), Null()}); err == nil {
		t.Error("non-integer view id accepted, want error")
	}
}

func TestSendSerializeEventExtraction(t *testing.T) {
	// two-entry header: byte(0) timestamp plus byte(1) level prefix
	data := orderedMap(
		NewByte(0), NewInt(123456),
		NewByte(1), NewShort(0),
		NewByte(10), stream(2001),
		NewByte(11), stream(3001),
	)
	ev := &SendSerializeEvent{Data: data}
	streams, err := ev.SerializedData()
	if err != nil {
		t.Fatalf("SerializedData error: %v", err)
	}
	if len(streams) != 2 {
		t.Fatalf("got %d streams, want 2", len(streams))
	}
	if streams[0].ViewID != 2001 || streams[1].ViewID != 3001 {
		t.Errorf("view ids = %d, %d", streams[0].ViewID, streams[1].ViewID)
	}
}

func TestSendSerializeEventSingleEntryHeader(t *testing.T) {
	data := orderedMap(
		NewByte(0), NewInt(123456),
		NewByte(10), stream(2001),
	)
	ev := &SendSerializeEvent{Data: data}
	streams, err := ev.SerializedData()
	if err != nil {
		t.Fatalf("SerializedData error: %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("got %d streams, want 1", len(streams))
	}
}

func TestSendSerializeEventMalformed(t *testing.T) {
	// declared size implies a stream at byte(11) that is not there
	data := orderedMap(
		NewByte(0), NewInt(123456),
		NewByte(10), stream(2001),
		NewByte(20), stream(3001),
	)
	ev := &SendSerializeEvent{Data: data}
	if _, err := ev.SerializedData(); err == nil {
		t.Error("missing stream entry accepted, want error")
	}

	// stream entry of the wrong kind
	data = orderedMap(
		NewByte(0), NewInt(123456),
		NewByte(10), NewString("oops"),
	)
	ev = &SendSerializeEvent{Data: data}
	if _, err := ev.SerializedData(); err == nil {
		t.Error("ill-typed stream entry accepted, want error")
	}
}
