package protocol

import (
	"bytes"
	"fmt"
)

// Frame magic numbers. 0xF3 carries a structured message, 0xF0 a ping
// result.
const (
	magicPhoton = 0xF3
	magicPing   = 0xF0
)

// Message types carried inside an 0xF3 frame.
const (
	msgTypeInit         = 1
	msgTypeOpRequest    = 2
	msgTypeOpResponse   = 3
	msgTypeEventData    = 4
	msgTypeDisconnect   = 5
	msgTypeInternalReq  = 6
	msgTypeInternalResp = 7
	msgTypeMessage      = 8
	msgTypeRawMessage   = 9
)

// Message is one decoded WebSocket frame payload.
type Message interface {
	messageType() byte
}

// InitResponse indicates the connection has been established.
type InitResponse struct{}

// OperationRequest is a client-initiated operation.
type OperationRequest struct {
	Code   byte
	Params *ParamMap
}

// OperationResponse answers an OperationRequest. DebugMessage is nil
// when the server sent null.
type OperationResponse struct {
	Code         byte
	ReturnCode   int16
	DebugMessage *string
	Params       *ParamMap
}

// EventData is a server-pushed event.
type EventData struct {
	Code   byte
	Params *ParamMap
}

// DisconnectMessage tells the peer the connection is going away.
type DisconnectMessage struct {
	Code         int16
	DebugMessage *string
	Params       *ParamMap
}

// InternalOperationRequest shares the OperationRequest layout under
// message type 6.
type InternalOperationRequest struct {
	OperationRequest
}

// InternalOperationResponse shares the OperationResponse layout under
// message type 7.
type InternalOperationResponse struct {
	OperationResponse
}

// GenericMessage wraps a single serialized value (message type 8).
type GenericMessage struct {
	Value Value
}

// RawMessage carries the remaining frame bytes verbatim (message type
// 9). The payload does not seem to be used by the game.
type RawMessage struct {
	Data []byte
}

// PingResult lets the client compute roundtrip time and server time
// offset.
type PingResult struct {
	ServerSentTime int32
	ClientSentTime int32
}

func (InitResponse) messageType() byte              { return msgTypeInit }
func (*OperationRequest) messageType() byte         { return msgTypeOpRequest }
func (*OperationResponse) messageType() byte        { return msgTypeOpResponse }
func (*EventData) messageType() byte                { return msgTypeEventData }
func (*DisconnectMessage) messageType() byte        { return msgTypeDisconnect }
func (*InternalOperationRequest) messageType() byte { return msgTypeInternalReq }
func (*InternalOperationResponse) messageType() byte {
	return msgTypeInternalResp
}
func (GenericMessage) messageType() byte { return msgTypeMessage }
func (RawMessage) messageType() byte     { return msgTypeRawMessage }
func (PingResult) messageType() byte     { return 0 }

// DecodeFrame decodes a full binary WebSocket frame payload.
func DecodeFrame(data []byte) (Message, error) {
	r := &reader{data: data}
	magic, err := r.u8()
	if err != nil {
		return nil, err
	}

	switch magic {
	case magicPhoton:
		return decodePhotonFrame(r)
	case magicPing:
		server, err := r.i32()
		if err != nil {
			return nil, err
		}
		client, err := r.i32()
		if err != nil {
			return nil, err
		}
		return PingResult{ServerSentTime: server, ClientSentTime: client}, nil
	}
	return nil, fmt.Errorf("frame contained invalid magic number 0x%02X", magic)
}

func decodePhotonFrame(r *reader) (Message, error) {
	msgByte, err := r.u8()
	if err != nil {
		return nil, err
	}
	msgType := msgByte & 0x7F
	if msgByte&0x80 != 0 {
		return nil, ErrEncrypted
	}

	switch msgType {
	case msgTypeInit:
		// one filler byte follows
		if _, err := r.u8(); err != nil {
			return nil, err
		}
		return InitResponse{}, nil
	case msgTypeOpRequest:
		return decodeOperationRequest(r)
	case msgTypeOpResponse:
		return decodeOperationResponse(r)
	case msgTypeEventData:
		return decodeEventData(r)
	case msgTypeDisconnect:
		return decodeDisconnectMessage(r)
	case msgTypeInternalReq:
		req, err := decodeOperationRequest(r)
		if err != nil {
			return nil, err
		}
		return &InternalOperationRequest{OperationRequest: *req}, nil
	case msgTypeInternalResp:
		resp, err := decodeOperationResponse(r)
		if err != nil {
			return nil, err
		}
		return &InternalOperationResponse{OperationResponse: *resp}, nil
	case msgTypeMessage:
		v, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		return GenericMessage{Value: v}, nil
	case msgTypeRawMessage:
		raw, err := r.bytes(r.remaining())
		if err != nil {
			return nil, err
		}
		return RawMessage{Data: raw}, nil
	}
	return nil, fmt.Errorf("message type 0x%02X is unknown", msgType)
}

func decodeOperationRequest(r *reader) (*OperationRequest, error) {
	code, err := r.u8()
	if err != nil {
		return nil, err
	}
	params, err := decodeParamMap(r)
	if err != nil {
		return nil, err
	}
	return &OperationRequest{Code: code, Params: params}, nil
}

func decodeOperationResponse(r *reader) (*OperationResponse, error) {
	code, err := r.u8()
	if err != nil {
		return nil, err
	}
	returnCode, err := r.i16()
	if err != nil {
		return nil, err
	}
	debug, err := decodeDebugMessage(r)
	if err != nil {
		return nil, err
	}
	params, err := decodeParamMap(r)
	if err != nil {
		return nil, err
	}
	return &OperationResponse{Code: code, ReturnCode: returnCode, DebugMessage: debug, Params: params}, nil
}

func decodeEventData(r *reader) (*EventData, error) {
	code, err := r.u8()
	if err != nil {
		return nil, err
	}
	params, err := decodeParamMap(r)
	if err != nil {
		return nil, err
	}
	return &EventData{Code: code, Params: params}, nil
}

func decodeDisconnectMessage(r *reader) (*DisconnectMessage, error) {
	code, err := r.i16()
	if err != nil {
		return nil, err
	}
	debug, err := decodeDebugMessage(r)
	if err != nil {
		return nil, err
	}
	params, err := decodeParamMap(r)
	if err != nil {
		return nil, err
	}
	return &DisconnectMessage{Code: code, DebugMessage: debug, Params: params}, nil
}

// decodeDebugMessage reads the debug-message slot: a tagged string when
// present, a tagged null when absent, anything else is an error.
func decodeDebugMessage(r *reader) (*string, error) {
	v, err := decodeValue(r)
	if err != nil {
		return nil, err
	}
	switch v.Kind {
	case KindString:
		s := v.Str
		return &s, nil
	case KindNull:
		return nil, nil
	}
	return nil, fmt.Errorf("expected string or null as debug message, found %s", v.Kind)
}

// EncodeFrame encodes m into a binary WebSocket frame payload, the
// exact inverse of DecodeFrame.
func EncodeFrame(m Message) ([]byte, error) {
	var buf bytes.Buffer

	if ping, ok := m.(PingResult); ok {
		buf.WriteByte(magicPing)
		putU32(&buf, uint32(ping.ServerSentTime))
		putU32(&buf, uint32(ping.ClientSentTime))
		return buf.Bytes(), nil
	}

	buf.WriteByte(magicPhoton)
	buf.WriteByte(m.messageType())

	var err error
	switch msg := m.(type) {
	case InitResponse:
		buf.WriteByte(0)
	case *OperationRequest:
		err = encodeOperationRequest(&buf, msg)
	case *OperationResponse:
		err = encodeOperationResponse(&buf, msg)
	case *EventData:
		err = encodeEventData(&buf, msg)
	case *DisconnectMessage:
		putU16(&buf, uint16(msg.Code))
		if err = encodeDebugMessage(&buf, msg.DebugMessage); err == nil {
			err = encodeParamMap(&buf, msg.Params)
		}
	case *InternalOperationRequest:
		err = encodeOperationRequest(&buf, &msg.OperationRequest)
	case *InternalOperationResponse:
		err = encodeOperationResponse(&buf, &msg.OperationResponse)
	case GenericMessage:
		err = encodeValue(&buf, msg.Value)
	case RawMessage:
		buf.Write(msg.Data)
	default:
		err = fmt.Errorf("cannot encode message of type %T", m)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeOperationRequest(buf *bytes.Buffer, req *OperationRequest) error {
	buf.WriteByte(req.Code)
	return encodeParamMap(buf, req.Params)
}

func encodeOperationResponse(buf *bytes.Buffer, resp *OperationResponse) error {
	buf.WriteByte(resp.Code)
	putU16(buf, uint16(resp.ReturnCode))
	if err := encodeDebugMessage(buf, resp.DebugMessage); err != nil {
		return err
	}
	return encodeParamMap(buf, resp.Params)
}

func encodeEventData(buf *bytes.Buffer, ev *EventData) error {
	buf.WriteByte(ev.Code)
	return encodeParamMap(buf, ev.Params)
}

func encodeDebugMessage(buf *bytes.Buffer, s *string) error {
	if s == nil {
		buf.WriteByte(byte(KindNull))
		return nil
	}
	buf.WriteByte(byte(KindString))
	return encodeStringBody(buf, *s)
}

func (e *EventData) Equal(o *EventData) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.Code == o.Code && e.Params.Equal(o.Params)
}

func (r *OperationRequest) Equal(o *OperationRequest) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Code == o.Code && r.Params.Equal(o.Params)
}

func (r *OperationResponse) Equal(o *OperationResponse) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Code != o.Code || r.ReturnCode != o.ReturnCode {
		return false
	}
	if (r.DebugMessage == nil) != (o.DebugMessage == nil) {
		return false
	}
	if r.DebugMessage != nil && *r.DebugMessage != *o.DebugMessage {
		return false
	}
	return r.Params.Equal(o.Params)
}
