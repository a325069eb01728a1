package game

import (
	"testing"

	"bulletforce_proxy/internal/protocol"
)

func byteP(b byte) *byte       { return &b }
func strP(s string) *string    { return &s }

func TestRPCMethodNameByIndex(t *testing.T) {
	call := &protocol.RpcCall{NetViewID: 2001, RpcIndex: byteP(0)}
	name, err := RPCMethodName(call)
	if err != nil {
		t.Fatalf("RPCMethodName error: %v", err)
	}
	if name != "AcknowledgeDamageDoneRPC" {
		t.Errorf("index 0 = %q, want AcknowledgeDamageDoneRPC", name)
	}

	call.RpcIndex = byteP(79)
	name, err = RPCMethodName(call)
	if err != nil {
		t.Fatalf("RPCMethodName error: %v", err)
	}
	if name != "RpcForceKillstreak" {
		t.Errorf("index 79 = %q, want RpcForceKillstreak", name)
	}
}

func TestRPCMethodNameOutOfRange(t *testing.T) {
	call := &protocol.RpcCall{NetViewID: 2001, RpcIndex: byteP(80)}
	if _, err := RPCMethodName(call); err == nil {
		t.Error("index 80 accepted, want error")
	}
}

func TestRPCMethodNameExplicitNameWins(t *testing.T) {
	call := &protocol.RpcCall{
		NetViewID:  2001,
		MethodName: strP("CustomMethod"),
		RpcIndex:   byteP(5),
	}
	name, err := RPCMethodName(call)
	if err != nil {
		t.Fatalf("RPCMethodName error: %v", err)
	}
	if name != "CustomMethod" {
		t.Errorf("name = %q, want CustomMethod", name)
	}
}

func TestRPCMethodNameMalformed(t *testing.T) {
	if _, err := RPCMethodName(&protocol.RpcCall{NetViewID: 2001}); err == nil {
		t.Error("call without name or index accepted, want error")
	}
}
