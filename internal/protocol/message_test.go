package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		want Message
	}{
		{"init_response", "f30100", InitResponse{}},
		{
			"operation_request",
			"f302e50000",
			&OperationRequest{Code: 0xE5, Params: NewParamMap()},
		},
		{
			"operation_response",
			"f303e500002a0000",
			&OperationResponse{Code: 0xE5, ReturnCode: 0, Params: NewParamMap()},
		},
		{
			"event_data",
			"f304e20003e36900000011e5690000006ee46900000016",
			&EventData{Code: 0xE2, Params: paramMap(nil,
				0xE3, NewInt(0x11),
				0xE5, NewInt(0x6E),
				0xE4, NewInt(0x16),
			)},
		},
		{
			"internal_operation_request",
			"f3060100010169000330de",
			&InternalOperationRequest{OperationRequest{Code: 1, Params: paramMap(nil,
				0x01, NewInt(0x330DE),
			)}},
		},
		{
			"internal_operation_response",
			"f3070100002a0002016900002efd026938c2510f",
			&InternalOperationResponse{OperationResponse{Code: 1, ReturnCode: 0, Params: paramMap(nil,
				0x01, NewInt(0x2EFD),
				0x02, NewInt(0x38C2510F),
			)}},
		},
		{
			"ping_result",
			"f00000000a00000014",
			PingResult{ServerSentTime: 10, ClientSentTime: 20},
		},
		{"raw_message", "f309deadbeef", RawMessage{Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}},
		{"generic_message", "f3086bfac7", GenericMessage{Value: NewShort(-1337)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := mustHex(t, tt.hex)
			got, err := DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame error: %v", err)
			}
			if !messagesEqual(got, tt.want) {
				t.Errorf("DecodeFrame = %#v, want %#v", got, tt.want)
			}

			encoded, err := EncodeFrame(got)
			if err != nil {
				t.Fatalf("EncodeFrame error: %v", err)
			}
			if !bytes.Equal(encoded, data) {
				t.Errorf("EncodeFrame = %x, want %x", encoded, data)
			}
		})
	}
}

func messagesEqual(a, b Message) bool {
	switch am := a.(type) {
	case InitResponse:
		_, ok := b.(InitResponse)
		return ok
	case *OperationRequest:
		bm, ok := b.(*OperationRequest)
		return ok && am.Equal(bm)
	case *OperationResponse:
		bm, ok := b.(*OperationResponse)
		return ok && am.Equal(bm)
	case *EventData:
		bm, ok := b.(*EventData)
		return ok && am.Equal(bm)
	case *InternalOperationRequest:
		bm, ok := b.(*InternalOperationRequest)
		return ok && am.OperationRequest.Equal(&bm.OperationRequest)
	case *InternalOperationResponse:
		bm, ok := b.(*InternalOperationResponse)
		return ok && am.OperationResponse.Equal(&bm.OperationResponse)
	case PingResult:
		bm, ok := b.(PingResult)
		return ok && am == bm
	case RawMessage:
		bm, ok := b.(RawMessage)
		return ok && bytes.Equal(am.Data, bm.Data)
	case GenericMessage:
		bm, ok := b.(GenericMessage)
		return ok && am.Value.Equal(bm.Value)
	}
	return false
}

// paramMap builds a ParamMap from alternating code, value pairs. The
// first argument is unused and only keeps call sites aligned with the
// testing.T-taking helpers.
func paramMap(_ interface{}, pairs ...interface{}) *ParamMap {
	m := NewParamMap()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(byte(pairs[i].(int)), pairs[i+1].(Value))
	}
	return m
}

func TestDecodeFrameParamOrder(t *testing.T) {
	msg, err := DecodeFrame(mustHex(t, "f304e20003e36900000011e5690000006ee46900000016"))
	if err != nil {
		t.Fatalf("DecodeFrame error: %v", err)
	}
	ev := msg.(*EventData)
	wantOrder := []byte{0xE3, 0xE5, 0xE4}
	for i, want := range wantOrder {
		if got := ev.Params.CodeAt(i); got != want {
			t.Errorf("param %d = 0x%02X, want 0x%02X", i, got, want)
		}
	}
}

func TestDecodeFrameEncrypted(t *testing.T) {
	_, err := DecodeFrame(mustHex(t, "f382e50000"))
	if !errors.Is(err, ErrEncrypted) {
		t.Errorf("DecodeFrame of encrypted frame = %v, want ErrEncrypted", err)
	}
}

func TestDecodeFrameBadMagic(t *testing.T) {
	if _, err := DecodeFrame(mustHex(t, "aa0102")); err == nil {
		t.Error("DecodeFrame with bad magic succeeded, want error")
	}
}

func TestDecodeFrameBadDebugMessage(t *testing.T) {
	// operation response whose debug-message slot holds an integer
	if _, err := DecodeFrame(mustHex(t, "f303e50000690000002a0000")); err == nil {
		t.Error("DecodeFrame with non-string debug message succeeded, want error")
	}
}

func TestDecodeFrameUnknownMessageType(t *testing.T) {
	if _, err := DecodeFrame(mustHex(t, "f30f00")); err == nil {
		t.Error("DecodeFrame with unknown message type succeeded, want error")
	}
}

func TestDisconnectMessageRoundTrip(t *testing.T) {
	msg := &DisconnectMessage{
		Code:         -1,
		DebugMessage: strPtr("bye"),
		Params:       NewParamMap(),
	}
	encoded, err := EncodeFrame(msg)
	if err != nil {
		t.Fatalf("EncodeFrame error: %v", err)
	}
	decoded, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame error: %v", err)
	}
	got, ok := decoded.(*DisconnectMessage)
	if !ok {
		t.Fatalf("DecodeFrame = %T, want *DisconnectMessage", decoded)
	}
	if got.Code != -1 || got.DebugMessage == nil || *got.DebugMessage != "bye" {
		t.Errorf("DisconnectMessage did not survive the round trip: %#v", got)
	}
}
