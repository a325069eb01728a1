package server

import (
	"testing"

	"bulletforce_proxy/internal/game"
	"bulletforce_proxy/internal/protocol"
)

func newTestState(flags game.FeatureFlags) *game.HaxState {
	state := game.NewHaxState()
	state.Flags = flags
	return state
}

func withGameplaySlot(state *game.HaxState) *game.GameplayState {
	gameplay := game.NewGameplayState()
	state.Gameplay = &game.GameplaySlot{State: gameplay}
	return gameplay
}

func encodeFrame(t *testing.T, m protocol.Message) []byte {
	t.Helper()
	data, err := protocol.EncodeFrame(m)
	if err != nil {
		t.Fatalf("EncodeFrame error: %v", err)
	}
	return data
}

// gameListFrame builds a GAME_LIST event holding a single room whose
// property map is given as alternating key, value pairs.
func gameListFrame(t *testing.T, roomName string, props ...protocol.Value) []byte {
	t.Helper()
	room := protocol.NewOrderedMap()
	for i := 0; i < len(props); i += 2 {
		room.Set(props[i], props[i+1])
	}
	games := protocol.NewOrderedMap()
	games.Set(protocol.NewString(roomName), protocol.NewHashtable(room))

	params := protocol.NewParamMap()
	params.Set(protocol.ParamGameList, protocol.NewHashtable(games))
	return encodeFrame(t, &protocol.EventData{Code: protocol.EvGameList, Params: params})
}

// decodeSingleRoom pulls the lone room property map back out of a
// rewritten GAME_LIST frame.
func decodeSingleRoom(t *testing.T, frame []byte) *protocol.OrderedMap {
	t.Helper()
	msg, err := protocol.DecodeFrame(frame)
	if err != nil {
		t.Fatalf("DecodeFrame error: %v", err)
	}
	ev, ok := msg.(*protocol.EventData)
	if !ok {
		t.Fatalf("rewritten frame is %T, want *EventData", msg)
	}
	games, ok := ev.Params.Get(protocol.ParamGameList)
	if !ok || games.Kind != protocol.KindHashtable || games.Map.Len() != 1 {
		t.Fatal("rewritten frame lost the game list")
	}
	room := games.Map.ValueAt(0)
	if room.Kind != protocol.KindHashtable {
		t.Fatalf("room entry is %s, want Hashtable", room.Kind)
	}
	return room.Map
}

func customString(t *testing.T, m *protocol.OrderedMap, key string) string {
	t.Helper()
	v, ok := m.Get(protocol.NewString(key))
	if !ok || v.Kind != protocol.KindString {
		t.Fatalf("room custom property %q missing or not a string", key)
	}
	return v.Str
}

func TestHookStripPasswords(t *testing.T) {
	state := newTestState(game.FeatureFlags{StripPasswords: true})
	hook := NewHook(state)

	frame := gameListFrame(t, "game1",
		protocol.NewString("roomName"), protocol.NewString("Arena"),
		protocol.NewString("password"), protocol.NewString("secret"),
		protocol.NewString("mapName"), protocol.NewString("Urban"),
		protocol.NewByte(protocol.GamePropPlayerCount), protocol.NewByte(5),
	)

	rewritten, forward, err := hook.HandleFrame(frame, RoleLobbyServer, ServerToClient)
	if err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}
	if !forward {
		t.Fatal("frame not forwarded")
	}
	if rewritten == nil {
		t.Fatal("frame not rewritten")
	}

	room := decodeSingleRoom(t, rewritten)
	if got := customString(t, room, "password"); got != "" {
		t.Errorf("password = %q, want empty", got)
	}
	if got := customString(t, room, "roomName"); got != "[p] Arena" {
		t.Errorf("roomName = %q, want \"[p] Arena\"", got)
	}
	if got := customString(t, room, "mapName"); got != "Urban" {
		t.Errorf("unrelated property changed: mapName = %q", got)
	}
	if v, ok := room.Get(protocol.NewByte(protocol.GamePropPlayerCount)); !ok || v.Byte != 5 {
		t.Error("player count property lost")
	}

	// relative order of the custom keys is unchanged
	var customOrder []string
	room.Range(func(k, _ protocol.Value) bool {
		if k.Kind == protocol.KindString {
			customOrder = append(customOrder, k.Str)
		}
		return true
	})
	want := []string{"roomName", "password", "mapName"}
	for i := range want {
		if customOrder[i] != want[i] {
			t.Errorf("custom key order = %v, want %v", customOrder, want)
			break
		}
	}
}

func TestHookStripPasswordsLeavesUnprotectedRooms(t *testing.T) {
	state := newTestState(game.FeatureFlags{StripPasswords: true})
	hook := NewHook(state)

	frame := gameListFrame(t, "game1",
		protocol.NewString("roomName"), protocol.NewString("Arena"),
		protocol.NewString("password"), protocol.NewString(""),
	)
	rewritten, _, err := hook.HandleFrame(frame, RoleLobbyServer, ServerToClient)
	if err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}
	// the policy ran, so the frame is re-encoded, but the name stays
	if rewritten == nil {
		t.Fatal("frame not rewritten")
	}
	room := decodeSingleRoom(t, rewritten)
	if got := customString(t, room, "roomName"); got != "Arena" {
		t.Errorf("roomName = %q, want Arena", got)
	}
}

func TestHookForceWeb(t *testing.T) {
	state := newTestState(game.FeatureFlags{ShowMobileGames: true})
	hook := NewHook(state)

	frame := gameListFrame(t, "game1",
		protocol.NewString("roomName"), protocol.NewString("Arena"),
		protocol.NewString("storeID"), protocol.NewString("BALYZE_MOBILE"),
	)
	rewritten, _, err := hook.HandleFrame(frame, RoleLobbyServer, ServerToClient)
	if err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}
	room := decodeSingleRoom(t, rewritten)
	if got := customString(t, room, "storeID"); got != "BALYZE_WEB" {
		t.Errorf("storeID = %q, want BALYZE_WEB", got)
	}
	if got := customString(t, room, "roomName"); got != "[M] Arena" {
		t.Errorf("roomName = %q, want \"[M] Arena\"", got)
	}
}

func TestHookForceWebOtherStore(t *testing.T) {
	state := newTestState(game.FeatureFlags{ShowMobileGames: true})
	hook := NewHook(state)

	frame := gameListFrame(t, "game1",
		protocol.NewString("roomName"), protocol.NewString("Arena"),
		protocol.NewString("storeID"), protocol.NewString("STEAM"),
	)
	rewritten, _, err := hook.HandleFrame(frame, RoleLobbyServer, ServerToClient)
	if err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}
	room := decodeSingleRoom(t, rewritten)
	if got := customString(t, room, "roomName"); got != "[STEAM] Arena" {
		t.Errorf("roomName = %q, want \"[STEAM] Arena\"", got)
	}
}

func TestHookShowOtherVersions(t *testing.T) {
	state := newTestState(game.FeatureFlags{ShowOtherVersions: true})
	state.Global.Version = &game.VersionInfo{GameVersion: "1.1.0", PhotonVersion: "2.40"}
	hook := NewHook(state)

	frame := gameListFrame(t, "game1",
		protocol.NewString("roomName"), protocol.NewString("Arena"),
		protocol.NewString("gameVersion"), protocol.NewString("1.0.0"),
	)
	rewritten, _, err := hook.HandleFrame(frame, RoleLobbyServer, ServerToClient)
	if err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}
	room := decodeSingleRoom(t, rewritten)
	if got := customString(t, room, "gameVersion"); got != "1.1.0" {
		t.Errorf("gameVersion = %q, want 1.1.0", got)
	}
	if got := customString(t, room, "roomName"); got != "[1.0.0] Arena" {
		t.Errorf("roomName = %q, want \"[1.0.0] Arena\"", got)
	}
}

func TestHookNewfpsRoomsUntouched(t *testing.T) {
	state := newTestState(game.FeatureFlags{
		ShowMobileGames:   true,
		ShowOtherVersions: true,
		StripPasswords:    true,
	})
	state.Global.Version = &game.VersionInfo{GameVersion: "1.1.0"}
	hook := NewHook(state)

	frame := gameListFrame(t, "game1",
		protocol.NewString("roomName"), protocol.NewString("Other Title"),
		protocol.NewString("gameversion"), protocol.NewString("newfps-1.2"),
		protocol.NewString("password"), protocol.NewString("secret"),
	)
	rewritten, forward, err := hook.HandleFrame(frame, RoleLobbyServer, ServerToClient)
	if err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}
	if !forward {
		t.Fatal("frame not forwarded")
	}
	if rewritten != nil {
		t.Fatal("frame containing only a newfps room was rewritten")
	}
}

func TestHookNoFlagsForwardsOriginal(t *testing.T) {
	hook := NewHook(newTestState(game.FeatureFlags{}))
	frame := gameListFrame(t, "game1",
		protocol.NewString("roomName"), protocol.NewString("Arena"),
		protocol.NewString("password"), protocol.NewString("secret"),
	)
	rewritten, forward, err := hook.HandleFrame(frame, RoleLobbyServer, ServerToClient)
	if err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}
	if !forward || rewritten != nil {
		t.Error("unchanged frame must be forwarded verbatim")
	}
}

func TestHookAuthenticateHarvest(t *testing.T) {
	state := newTestState(game.FeatureFlags{})
	hook := NewHook(state)

	params := protocol.NewParamMap()
	params.Set(protocol.ParamAppVersion, protocol.NewString("1.0.2_2.40"))
	params.Set(protocol.ParamUserID, protocol.NewString("user-42"))
	frame := encodeFrame(t, &protocol.OperationRequest{Code: protocol.OpAuthenticate, Params: params})

	if _, _, err := hook.HandleFrame(frame, RoleLobbyServer, ClientToServer); err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}

	if state.Global.UserID == nil || *state.Global.UserID != "user-42" {
		t.Errorf("UserID = %v, want user-42", state.Global.UserID)
	}
	if state.Global.Version == nil {
		t.Fatal("Version not harvested")
	}
	if state.Global.Version.GameVersion != "1.0.2" || state.Global.Version.PhotonVersion != "2.40" {
		t.Errorf("Version = %+v", state.Global.Version)
	}
}

func TestHookActorLifecycle(t *testing.T) {
	state := newTestState(game.FeatureFlags{})
	gameplay := withGameplaySlot(state)
	hook := NewHook(state)

	// successful join response with one known actor
	playerProps := protocol.NewOrderedMap()
	playerProps.Set(protocol.NewInt(7), protocol.NewHashtable(func() *protocol.OrderedMap {
		m := protocol.NewOrderedMap()
		m.Set(protocol.NewByte(protocol.ActorPropPlayerName), protocol.NewString("alice"))
		return m
	}()))

	params := protocol.NewParamMap()
	params.Set(protocol.ParamActorNr, protocol.NewInt(7))
	params.Set(protocol.ParamPlayerProperties, protocol.NewHashtable(playerProps))
	params.Set(protocol.ParamGameProperties, protocol.NewHashtable(protocol.NewOrderedMap()))
	joinFrame := encodeFrame(t, &protocol.OperationResponse{
		Code:       protocol.OpJoinGame,
		ReturnCode: 0,
		Params:     params,
	})

	if _, _, err := hook.HandleFrame(joinFrame, RoleGameServer, ServerToClient); err != nil {
		t.Fatalf("HandleFrame(join) error: %v", err)
	}

	if gameplay.PlayerID == nil || *gameplay.PlayerID != 7 {
		t.Errorf("PlayerID = %v, want 7", gameplay.PlayerID)
	}
	actor, ok := gameplay.Players.Get(7)
	if !ok {
		t.Fatal("actor 7 not tracked after join response")
	}
	if actor.Nickname == nil || *actor.Nickname != "alice" {
		t.Errorf("Nickname = %v, want alice", actor.Nickname)
	}

	// the matching leave event empties the room again
	leaveParams := protocol.NewParamMap()
	leaveParams.Set(protocol.ParamActorNr, protocol.NewInt(7))
	leaveFrame := encodeFrame(t, &protocol.EventData{Code: protocol.EvLeave, Params: leaveParams})

	if _, _, err := hook.HandleFrame(leaveFrame, RoleGameServer, ServerToClient); err != nil {
		t.Fatalf("HandleFrame(leave) error: %v", err)
	}
	if gameplay.Players.Len() != 0 {
		t.Errorf("players = %d entries after leave, want 0", gameplay.Players.Len())
	}
}

func TestHookJoinEventUnionsActorList(t *testing.T) {
	state := newTestState(game.FeatureFlags{})
	gameplay := withGameplaySlot(state)
	hook := NewHook(state)

	params := protocol.NewParamMap()
	params.Set(protocol.ParamActorNr, protocol.NewInt(2))
	params.Set(protocol.ParamActorList, protocol.NewArray(protocol.KindInteger, []protocol.Value{
		protocol.NewInt(1), protocol.NewInt(2),
	}))
	frame := encodeFrame(t, &protocol.EventData{Code: protocol.EvJoin, Params: params})

	if _, _, err := hook.HandleFrame(frame, RoleGameServer, ServerToClient); err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}
	if gameplay.ActorNr == nil || *gameplay.ActorNr != 2 {
		t.Errorf("ActorNr = %v, want 2", gameplay.ActorNr)
	}
	if gameplay.Players.Len() != 2 {
		t.Errorf("players = %d entries, want 2", gameplay.Players.Len())
	}
}

func TestHookPropertiesChangedUnknownActor(t *testing.T) {
	state := newTestState(game.FeatureFlags{})
	withGameplaySlot(state)
	hook := NewHook(state)

	params := protocol.NewParamMap()
	params.Set(protocol.ParamTargetActorNr, protocol.NewInt(9))
	params.Set(protocol.ParamProperties, protocol.NewHashtable(protocol.NewOrderedMap()))
	frame := encodeFrame(t, &protocol.EventData{Code: protocol.EvPropertiesChanged, Params: params})

	rewritten, forward, err := hook.HandleFrame(frame, RoleGameServer, ServerToClient)
	if err == nil {
		t.Error("unknown target actor accepted, want error")
	}
	// the frame is still forwarded untouched
	if !forward || rewritten != nil {
		t.Error("frame with state error must still be forwarded verbatim")
	}
}

func TestHookInstantiationMergeRules(t *testing.T) {
	state := newTestState(game.FeatureFlags{})
	gameplay := withGameplaySlot(state)
	hook := NewHook(state)

	data := protocol.NewOrderedMap()
	data.Set(protocol.NewByte(0), protocol.NewString("PlayerBody"))
	data.Set(protocol.NewByte(1), protocol.Vector3{X: 4, Y: 5, Z: 6}.Value())
	data.Set(protocol.NewByte(6), protocol.NewInt(1000))
	data.Set(protocol.NewByte(7), protocol.NewInt(3001))

	params := protocol.NewParamMap()
	params.Set(protocol.ParamActorNr, protocol.NewInt(3))
	params.Set(protocol.ParamData, protocol.NewHashtable(data))
	frame := encodeFrame(t, &protocol.EventData{Code: protocol.PunEvInstantiation, Params: params})

	if _, _, err := hook.HandleFrame(frame, RoleGameServer, ServerToClient); err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}

	actor, ok := gameplay.Players.Get(3)
	if !ok {
		t.Fatal("PlayerBody instantiation did not create the actor")
	}
	if actor.ViewID == nil || *actor.ViewID != 3001 {
		t.Errorf("ViewID = %v, want 3001", actor.ViewID)
	}
	if actor.Position == nil || actor.Position.X != 4 {
		t.Errorf("Position = %v", actor.Position)
	}

	// a match manager instantiation records the view id instead
	managerData := protocol.NewOrderedMap()
	managerData.Set(protocol.NewByte(0), protocol.NewString("Match Manager"))
	managerData.Set(protocol.NewByte(6), protocol.NewInt(1000))
	managerData.Set(protocol.NewByte(7), protocol.NewInt(5001))
	managerParams := protocol.NewParamMap()
	managerParams.Set(protocol.ParamActorNr, protocol.NewInt(5))
	managerParams.Set(protocol.ParamData, protocol.NewHashtable(managerData))
	managerFrame := encodeFrame(t, &protocol.EventData{Code: protocol.PunEvInstantiation, Params: managerParams})

	if _, _, err := hook.HandleFrame(managerFrame, RoleGameServer, ServerToClient); err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}
	if gameplay.MatchManagerViewID == nil || *gameplay.MatchManagerViewID != 5001 {
		t.Errorf("MatchManagerViewID = %v, want 5001", gameplay.MatchManagerViewID)
	}
}

func TestHookSendSerializeMergesActors(t *testing.T) {
	state := newTestState(game.FeatureFlags{})
	gameplay := withGameplaySlot(state)
	gameplay.Players.GetOrCreate(2)
	hook := NewHook(state)

	stream := []protocol.Value{
		protocol.NewInt(2001), protocol.Null(), protocol.Null(),
	}
	stream = append(stream, playerScriptStream()...)

	data := protocol.NewOrderedMap()
	data.Set(protocol.NewByte(0), protocol.NewInt(123))
	data.Set(protocol.NewByte(10), protocol.NewObjectArray(stream))

	params := protocol.NewParamMap()
	params.Set(protocol.ParamActorNr, protocol.NewInt(2))
	params.Set(protocol.ParamData, protocol.NewHashtable(data))
	frame := encodeFrame(t, &protocol.EventData{Code: protocol.PunEvSendSerialize, Params: params})

	if _, _, err := hook.HandleFrame(frame, RoleGameServer, ServerToClient); err != nil {
		t.Fatalf("HandleFrame error: %v", err)
	}

	actor, _ := gameplay.Players.Get(2)
	if actor.Health == nil || *actor.Health != 85 {
		t.Errorf("Health = %v, want 85", actor.Health)
	}
}

// playerScriptStream is a minimal valid 21-slot player body payload.
func playerScriptStream() []protocol.Value {
	items := []protocol.Value{}
	shorts := []int16{0, 900, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 8500}
	for _, s := range shorts {
		items = append(items, protocol.NewShort(s))
	}
	for i := 0; i < 5; i++ {
		items = append(items, protocol.NewByte(0))
	}
	items = append(items, protocol.NewInt(0))
	items = append(items, protocol.Vector3{}.Value())
	items = append(items, protocol.Quaternion{W: 1}.Value())
	return items
}

func TestHookParseFailureForwardsVerbatim(t *testing.T) {
	hook := NewHook(newTestState(game.FeatureFlags{}))

	rewritten, forward, err := hook.HandleFrame([]byte{0xAA, 0xBB}, RoleLobbyServer, ServerToClient)
	if err == nil {
		t.Error("undecodable frame accepted, want error")
	}
	if !forward || rewritten != nil {
		t.Error("undecodable frame must still be forwarded verbatim")
	}
}

func TestHookGameplayStateRequired(t *testing.T) {
	hook := NewHook(newTestState(game.FeatureFlags{}))

	params := protocol.NewParamMap()
	params.Set(protocol.ParamActorNr, protocol.NewInt(7))
	frame := encodeFrame(t, &protocol.EventData{Code: protocol.EvLeave, Params: params})

	_, forward, err := hook.HandleFrame(frame, RoleGameServer, ServerToClient)
	if err == nil {
		t.Error("missing gameplay state accepted, want error")
	}
	if !forward {
		t.Error("frame must still be forwarded")
	}
}
