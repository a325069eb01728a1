package protocol

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Typed views over envelope parameter maps and property maps.
//
// Two conversion disciplines exist, mirroring the two map shapes on the
// wire. Parameter views consume 8-bit parameter codes; a field whose
// value has the wrong kind is silently dropped (left absent). Property
// views consume Byte-keyed entries of an untyped hashtable; a wrong
// kind is logged and dropped, unknown Byte keys are logged and dropped,
// and String-keyed residuals are collected into CustomProperties in
// their original relative order.
//
// Every view round-trips: emitting a freshly parsed view reproduces the
// source map up to removal of null-valued known fields.

func requiredErr(view, field string, code byte) error {
	return fmt.Errorf("%s: required field %s (code %d) is missing or ill-typed", view, field, code)
}

// Parameter-map take helpers. The entry is removed even on a kind
// mismatch, matching how the game's own deserializer consumes keys.

func (m *ParamMap) takeKind(code byte, k Kind) (Value, bool) {
	v, ok := m.Take(code)
	if !ok || v.Kind != k {
		return Value{}, false
	}
	return v, true
}

func (m *ParamMap) takeString(code byte) *string {
	if v, ok := m.takeKind(code, KindString); ok {
		return &v.Str
	}
	return nil
}

func (m *ParamMap) takeInt(code byte) *int32 {
	if v, ok := m.takeKind(code, KindInteger); ok {
		return &v.Int
	}
	return nil
}

func (m *ParamMap) takeByte(code byte) *byte {
	if v, ok := m.takeKind(code, KindByte); ok {
		return &v.Byte
	}
	return nil
}

func (m *ParamMap) takeBool(code byte) *bool {
	if v, ok := m.takeKind(code, KindBoolean); ok {
		return &v.Bool
	}
	return nil
}

func (m *ParamMap) takeHashtable(code byte) *OrderedMap {
	if v, ok := m.takeKind(code, KindHashtable); ok {
		return v.Map
	}
	return nil
}

// takeIntArray returns a non-nil (possibly empty) slice when the
// parameter was present, nil when absent.
func (m *ParamMap) takeIntArray(code byte) []int32 {
	if v, ok := m.takeKind(code, KindIntArray); ok {
		if v.Ints == nil {
			return []int32{}
		}
		return v.Ints
	}
	return nil
}

func (m *ParamMap) takeStringArray(code byte) []string {
	if v, ok := m.takeKind(code, KindStringArray); ok {
		if v.Strings == nil {
			return []string{}
		}
		return v.Strings
	}
	return nil
}

func (m *ParamMap) takeValue(code byte) *Value {
	if v, ok := m.Take(code); ok {
		return &v
	}
	return nil
}

func (m *ParamMap) putString(code byte, v *string) {
	if v != nil {
		m.Set(code, NewString(*v))
	}
}

func (m *ParamMap) putInt(code byte, v *int32) {
	if v != nil {
		m.Set(code, NewInt(*v))
	}
}

func (m *ParamMap) putByte(code byte, v *byte) {
	if v != nil {
		m.Set(code, NewByte(*v))
	}
}

func (m *ParamMap) putBool(code byte, v *bool) {
	if v != nil {
		m.Set(code, NewBool(*v))
	}
}

func (m *ParamMap) putHashtable(code byte, v *OrderedMap) {
	if v != nil {
		m.Set(code, NewHashtable(v))
	}
}

func (m *ParamMap) putIntArray(code byte, v []int32) {
	if v != nil {
		m.Set(code, NewIntArray(v))
	}
}

func (m *ParamMap) putStringArray(code byte, v []string) {
	if v != nil {
		m.Set(code, NewStringArray(v))
	}
}

// Property-map take helpers.

func takeProp(m *OrderedMap, view string, key byte, k Kind) (Value, bool) {
	v, ok := m.Take(NewByte(key))
	if !ok {
		return Value{}, false
	}
	if v.Kind != k {
		log.WithFields(log.Fields{
			"view":  view,
			"key":   key,
			"found": v.Kind.String(),
			"want":  k.String(),
		}).Warn("known property has unexpected data type")
		return Value{}, false
	}
	return v, true
}

func takePropString(m *OrderedMap, view string, key byte) *string {
	if v, ok := takeProp(m, view, key, KindString); ok {
		return &v.Str
	}
	return nil
}

func takePropBool(m *OrderedMap, view string, key byte) *bool {
	if v, ok := takeProp(m, view, key, KindBoolean); ok {
		return &v.Bool
	}
	return nil
}

func takePropByte(m *OrderedMap, view string, key byte) *byte {
	if v, ok := takeProp(m, view, key, KindByte); ok {
		return &v.Byte
	}
	return nil
}

func takePropShort(m *OrderedMap, view string, key byte) *int16 {
	if v, ok := takeProp(m, view, key, KindShort); ok {
		return &v.Short
	}
	return nil
}

func takePropInt(m *OrderedMap, view string, key byte) *int32 {
	if v, ok := takeProp(m, view, key, KindInteger); ok {
		return &v.Int
	}
	return nil
}

func takePropStringArray(m *OrderedMap, view string, key byte) []string {
	if v, ok := takeProp(m, view, key, KindStringArray); ok {
		if v.Strings == nil {
			return []string{}
		}
		return v.Strings
	}
	return nil
}

func takePropIntArray(m *OrderedMap, view string, key byte) []int32 {
	if v, ok := takeProp(m, view, key, KindIntArray); ok {
		if v.Ints == nil {
			return []int32{}
		}
		return v.Ints
	}
	return nil
}

func takePropObjectArray(m *OrderedMap, view string, key byte) []Value {
	if v, ok := takeProp(m, view, key, KindObjectArray); ok {
		if v.Items == nil {
			return []Value{}
		}
		return v.Items
	}
	return nil
}

func takePropCustom(m *OrderedMap, view string, key byte) *Value {
	if v, ok := takeProp(m, view, key, KindCustom); ok {
		return &v
	}
	return nil
}

// drainCustomProperties moves the remaining String-keyed entries into a
// StringMap, preserving their relative order. Anything still keyed by a
// non-String value at this point is unknown; it is logged and dropped.
func drainCustomProperties(m *OrderedMap, view string) *StringMap {
	custom := NewStringMap()
	for m.Len() > 0 {
		k := m.KeyAt(0)
		v, _ := m.Take(k)
		if k.Kind == KindString {
			custom.Set(k.Str, v)
			continue
		}
		log.WithFields(log.Fields{
			"view": view,
			"key":  k.Kind.String(),
		}).Warn("dropping property with non-string key")
	}
	return custom
}

func putCustomProperties(m *OrderedMap, custom *StringMap) {
	custom.Range(func(k string, v Value) bool {
		m.Set(NewString(k), v)
		return true
	})
}

func putPropString(m *OrderedMap, key byte, v *string) {
	if v != nil {
		m.Set(NewByte(key), NewString(*v))
	}
}

func putPropBool(m *OrderedMap, key byte, v *bool) {
	if v != nil {
		m.Set(NewByte(key), NewBool(*v))
	}
}

func putPropByte(m *OrderedMap, key byte, v *byte) {
	if v != nil {
		m.Set(NewByte(key), NewByte(*v))
	}
}

func putPropShort(m *OrderedMap, key byte, v *int16) {
	if v != nil {
		m.Set(NewByte(key), NewShort(*v))
	}
}

func putPropInt(m *OrderedMap, key byte, v *int32) {
	if v != nil {
		m.Set(NewByte(key), NewInt(*v))
	}
}

func putPropStringArray(m *OrderedMap, key byte, v []string) {
	if v != nil {
		m.Set(NewByte(key), NewStringArray(v))
	}
}

func putPropIntArray(m *OrderedMap, key byte, v []int32) {
	if v != nil {
		m.Set(NewByte(key), NewIntArray(v))
	}
}

func putPropObjectArray(m *OrderedMap, key byte, v []Value) {
	if v != nil {
		m.Set(NewByte(key), NewObjectArray(v))
	}
}

func putPropValue(m *OrderedMap, key byte, v *Value) {
	if v != nil {
		m.Set(NewByte(key), *v)
	}
}

// RoomInfoList is the parameter view of GAME_LIST and GAME_LIST_UPDATE
// events. Games maps room names to serialized RoomInfo hashtables.
type RoomInfoList struct {
	Games *OrderedMap
}

func RoomInfoListFromParams(m *ParamMap) (*RoomInfoList, error) {
	games := m.takeHashtable(ParamGameList)
	if games == nil {
		return nil, requiredErr("RoomInfoList", "games", ParamGameList)
	}
	return &RoomInfoList{Games: games}, nil
}

func (l *RoomInfoList) IntoParams(m *ParamMap) {
	m.putHashtable(ParamGameList, l.Games)
}

// SetPropertiesRequest is the parameter view of the SET_PROPERTIES
// operation. ActorNr is only present when updating an actor rather than
// the room.
type SetPropertiesRequest struct {
	Properties     *OrderedMap
	ActorNr        *int32
	Broadcast      bool
	ExpectedValues *OrderedMap
	EventForward   *bool
}

func SetPropertiesRequestFromParams(m *ParamMap) (*SetPropertiesRequest, error) {
	props := m.takeHashtable(ParamProperties)
	if props == nil {
		return nil, requiredErr("SetPropertiesRequest", "properties", ParamProperties)
	}
	broadcast := m.takeBool(ParamBroadcast)
	if broadcast == nil {
		return nil, requiredErr("SetPropertiesRequest", "broadcast", ParamBroadcast)
	}
	return &SetPropertiesRequest{
		Properties:     props,
		ActorNr:        m.takeInt(ParamActorNr),
		Broadcast:      *broadcast,
		ExpectedValues: m.takeHashtable(ParamExpectedValues),
		EventForward:   m.takeBool(ParamEventForward),
	}, nil
}

func (r *SetPropertiesRequest) IntoParams(m *ParamMap) {
	m.putHashtable(ParamProperties, r.Properties)
	m.putInt(ParamActorNr, r.ActorNr)
	m.Set(ParamBroadcast, NewBool(r.Broadcast))
	m.putHashtable(ParamExpectedValues, r.ExpectedValues)
	m.putBool(ParamEventForward, r.EventForward)
}

// JoinGameRequest is the parameter view of the JOIN_GAME operation
// request.
type JoinGameRequest struct {
	RoomName            *string
	Properties          *OrderedMap
	Broadcast           *bool
	PlayerProperties    *OrderedMap
	GameProperties      *OrderedMap
	CleanupCacheOnLeave *bool
	PublishUserID       *bool
	Add                 []string
	SuppressRoomEvents  *bool
	EmptyRoomTTL        *int32
	PlayerTTL           *int32
	CheckUserOnJoin     *bool
	JoinMode            *byte
	LobbyName           *string
	LobbyType           *byte
	Plugins             []string
	RoomOptionFlags     *int32
}

func JoinGameRequestFromParams(m *ParamMap) (*JoinGameRequest, error) {
	return &JoinGameRequest{
		RoomName:            m.takeString(ParamRoomName),
		Properties:          m.takeHashtable(ParamProperties),
		Broadcast:           m.takeBool(ParamBroadcast),
		PlayerProperties:    m.takeHashtable(ParamPlayerProperties),
		GameProperties:      m.takeHashtable(ParamGameProperties),
		CleanupCacheOnLeave: m.takeBool(ParamCleanupCacheOnLeave),
		PublishUserID:       m.takeBool(ParamPublishUserID),
		Add:                 m.takeStringArray(ParamAdd),
		SuppressRoomEvents:  m.takeBool(ParamSuppressRoomEvents),
		EmptyRoomTTL:        m.takeInt(ParamEmptyRoomTTL),
		PlayerTTL:           m.takeInt(ParamPlayerTTL),
		CheckUserOnJoin:     m.takeBool(ParamCheckUserOnJoin),
		JoinMode:            m.takeByte(ParamJoinMode),
		LobbyName:           m.takeString(ParamLobbyName),
		LobbyType:           m.takeByte(ParamLobbyType),
		Plugins:             m.takeStringArray(ParamPlugins),
		RoomOptionFlags:     m.takeInt(ParamRoomOptionFlags),
	}, nil
}

func (r *JoinGameRequest) IntoParams(m *ParamMap) {
	m.putString(ParamRoomName, r.RoomName)
	m.putHashtable(ParamProperties, r.Properties)
	m.putBool(ParamBroadcast, r.Broadcast)
	m.putHashtable(ParamPlayerProperties, r.PlayerProperties)
	m.putHashtable(ParamGameProperties, r.GameProperties)
	m.putBool(ParamCleanupCacheOnLeave, r.CleanupCacheOnLeave)
	m.putBool(ParamPublishUserID, r.PublishUserID)
	m.putStringArray(ParamAdd, r.Add)
	m.putBool(ParamSuppressRoomEvents, r.SuppressRoomEvents)
	m.putInt(ParamEmptyRoomTTL, r.EmptyRoomTTL)
	m.putInt(ParamPlayerTTL, r.PlayerTTL)
	m.putBool(ParamCheckUserOnJoin, r.CheckUserOnJoin)
	m.putByte(ParamJoinMode, r.JoinMode)
	m.putString(ParamLobbyName, r.LobbyName)
	m.putByte(ParamLobbyType, r.LobbyType)
	m.putStringArray(ParamPlugins, r.Plugins)
	m.putInt(ParamRoomOptionFlags, r.RoomOptionFlags)
}

// JoinGameResponseSuccess is the parameter view of a JOIN_GAME
// operation response with return code 0. PlayerProperties maps integer
// actor ids to serialized Player hashtables; GameProperties is a
// serialized RoomInfo.
type JoinGameResponseSuccess struct {
	RoomName         *string
	ActorNr          int32
	ActorList        []int32
	PlayerProperties *OrderedMap
	GameProperties   *OrderedMap
	Address          *string
	RoomOptionFlags  *int32
}

func JoinGameResponseSuccessFromParams(m *ParamMap) (*JoinGameResponseSuccess, error) {
	actorNr := m.takeInt(ParamActorNr)
	if actorNr == nil {
		return nil, requiredErr("JoinGameResponseSuccess", "actor_nr", ParamActorNr)
	}
	playerProps := m.takeHashtable(ParamPlayerProperties)
	if playerProps == nil {
		return nil, requiredErr("JoinGameResponseSuccess", "player_properties", ParamPlayerProperties)
	}
	gameProps := m.takeHashtable(ParamGameProperties)
	if gameProps == nil {
		return nil, requiredErr("JoinGameResponseSuccess", "game_properties", ParamGameProperties)
	}
	return &JoinGameResponseSuccess{
		RoomName:         m.takeString(ParamRoomName),
		ActorNr:          *actorNr,
		ActorList:        m.takeIntArray(ParamActorList),
		PlayerProperties: playerProps,
		GameProperties:   gameProps,
		Address:          m.takeString(ParamAddress),
		RoomOptionFlags:  m.takeInt(ParamRoomOptionFlags),
	}, nil
}

func (r *JoinGameResponseSuccess) IntoParams(m *ParamMap) {
	m.putString(ParamRoomName, r.RoomName)
	m.Set(ParamActorNr, NewInt(r.ActorNr))
	m.putIntArray(ParamActorList, r.ActorList)
	m.putHashtable(ParamPlayerProperties, r.PlayerProperties)
	m.putHashtable(ParamGameProperties, r.GameProperties)
	m.putString(ParamAddress, r.Address)
	m.putInt(ParamRoomOptionFlags, r.RoomOptionFlags)
}

// RaiseEvent is the parameter view of the RAISE_EVENT operation
// request.
type RaiseEvent struct {
	EventCode     byte
	Data          *Value
	Cache         *byte
	ReceiverGroup *byte
	InterestGroup *byte
	ActorList     []int32
	EventForward  *bool
}

func RaiseEventFromParams(m *ParamMap) (*RaiseEvent, error) {
	code := m.takeByte(ParamCode)
	if code == nil {
		return nil, requiredErr("RaiseEvent", "event_code", ParamCode)
	}
	return &RaiseEvent{
		EventCode:     *code,
		Data:          m.takeValue(ParamData),
		Cache:         m.takeByte(ParamCache),
		ReceiverGroup: m.takeByte(ParamReceiverGroup),
		InterestGroup: m.takeByte(ParamGroup),
		ActorList:     m.takeIntArray(ParamActorList),
		EventForward:  m.takeBool(ParamEventForward),
	}, nil
}

func (r *RaiseEvent) IntoParams(m *ParamMap) {
	m.Set(ParamCode, NewByte(r.EventCode))
	if r.Data != nil {
		m.Set(ParamData, *r.Data)
	}
	m.putByte(ParamCache, r.Cache)
	m.putByte(ParamReceiverGroup, r.ReceiverGroup)
	m.putByte(ParamGroup, r.InterestGroup)
	m.putIntArray(ParamActorList, r.ActorList)
	m.putBool(ParamEventForward, r.EventForward)
}

// LeaveEvent is the parameter view of the LEAVE room event.
type LeaveEvent struct {
	SenderActor    *int32
	Actors         *Value
	IsInactive     *bool
	MasterClientID *int32
}

func LeaveEventFromParams(m *ParamMap) (*LeaveEvent, error) {
	var actors *Value
	if v, ok := m.takeKind(ParamActorList, KindArray); ok {
		actors = &v
	}
	return &LeaveEvent{
		SenderActor:    m.takeInt(ParamActorNr),
		Actors:         actors,
		IsInactive:     m.takeBool(ParamIsInactive),
		MasterClientID: m.takeInt(ParamMasterClientID),
	}, nil
}

func (e *LeaveEvent) IntoParams(m *ParamMap) {
	m.putInt(ParamActorNr, e.SenderActor)
	if e.Actors != nil {
		m.Set(ParamActorList, *e.Actors)
	}
	m.putBool(ParamIsInactive, e.IsInactive)
	m.putInt(ParamMasterClientID, e.MasterClientID)
}

// PropertiesChangedEvent is the parameter view of the
// PROPERTIES_CHANGED room event. A target actor number of 0 means the
// properties belong to the room, otherwise to that actor.
type PropertiesChangedEvent struct {
	SenderActor   *int32
	TargetActorNr int32
	Properties    *OrderedMap
}

func PropertiesChangedEventFromParams(m *ParamMap) (*PropertiesChangedEvent, error) {
	target := m.takeInt(ParamTargetActorNr)
	if target == nil {
		return nil, requiredErr("PropertiesChangedEvent", "target_actor_number", ParamTargetActorNr)
	}
	props := m.takeHashtable(ParamProperties)
	if props == nil {
		return nil, requiredErr("PropertiesChangedEvent", "properties", ParamProperties)
	}
	return &PropertiesChangedEvent{
		SenderActor:   m.takeInt(ParamActorNr),
		TargetActorNr: *target,
		Properties:    props,
	}, nil
}

func (e *PropertiesChangedEvent) IntoParams(m *ParamMap) {
	m.putInt(ParamActorNr, e.SenderActor)
	m.Set(ParamTargetActorNr, NewInt(e.TargetActorNr))
	m.putHashtable(ParamProperties, e.Properties)
}

// DestroyEvent is the parameter view of the PUN DESTROY event.
type DestroyEvent struct {
	SenderActor *int32
	Data        *OrderedMap
}

func DestroyEventFromParams(m *ParamMap) (*DestroyEvent, error) {
	data := m.takeHashtable(ParamData)
	if data == nil {
		return nil, requiredErr("DestroyEvent", "data", ParamData)
	}
	return &DestroyEvent{SenderActor: m.takeInt(ParamActorNr), Data: data}, nil
}

func (e *DestroyEvent) IntoParams(m *ParamMap) {
	m.putInt(ParamActorNr, e.SenderActor)
	m.putHashtable(ParamData, e.Data)
}

// InstantiationEvent is the parameter view of the PUN INSTANTIATION
// event.
type InstantiationEvent struct {
	SenderActor *int32
	Data        *OrderedMap
}

func InstantiationEventFromParams(m *ParamMap) (*InstantiationEvent, error) {
	data := m.takeHashtable(ParamData)
	if data == nil {
		return nil, requiredErr("InstantiationEvent", "data", ParamData)
	}
	return &InstantiationEvent{SenderActor: m.takeInt(ParamActorNr), Data: data}, nil
}

func (e *InstantiationEvent) IntoParams(m *ParamMap) {
	m.putInt(ParamActorNr, e.SenderActor)
	m.putHashtable(ParamData, e.Data)
}

// SendSerializeEvent is the parameter view of the PUN SEND_SERIALIZE
// and SEND_SERIALIZE_RELIABLE events.
type SendSerializeEvent struct {
	SenderActor *int32
	Data        *OrderedMap
}

func SendSerializeEventFromParams(m *ParamMap) (*SendSerializeEvent, error) {
	data := m.takeHashtable(ParamData)
	if data == nil {
		return nil, requiredErr("SendSerializeEvent", "data", ParamData)
	}
	return &SendSerializeEvent{SenderActor: m.takeInt(ParamActorNr), Data: data}, nil
}

func (e *SendSerializeEvent) IntoParams(m *ParamMap) {
	m.putInt(ParamActorNr, e.SenderActor)
	m.putHashtable(ParamData, e.Data)
}

// RpcEvent is the parameter view of the PUN RPC event. Data holds a
// single serialized RpcCall.
type RpcEvent struct {
	SenderActor *int32
	Data        *OrderedMap
}

func RpcEventFromParams(m *ParamMap) (*RpcEvent, error) {
	data := m.takeHashtable(ParamCustomEventContent)
	if data == nil {
		return nil, requiredErr("RpcEvent", "data", ParamCustomEventContent)
	}
	return &RpcEvent{SenderActor: m.takeInt(ParamActorNr), Data: data}, nil
}

func (e *RpcEvent) IntoParams(m *ParamMap) {
	m.putInt(ParamActorNr, e.SenderActor)
	m.putHashtable(ParamCustomEventContent, e.Data)
}

// ExtractRpcCall drains the Data field into an RpcCall view.
func (e *RpcEvent) ExtractRpcCall() (*RpcCall, error) {
	return RpcCallFromMap(e.Data)
}

// RoomInfo describes a room as listed in the lobby. Game-specific
// attributes (room name, password, store id, game version, ...) live in
// CustomProperties.
type RoomInfo struct {
	Removed             *bool
	MaxPlayers          *byte
	IsOpen              *bool
	IsVisible           *bool
	PlayerCount         *byte
	CleanupCacheOnLeave *bool
	MasterClientID      *int32
	PropsListedInLobby  []string
	ExpectedUsers       []string
	EmptyRoomTTL        *int32
	PlayerTTL           *int32

	CustomProperties *StringMap
}

func RoomInfoFromMap(m *OrderedMap) (*RoomInfo, error) {
	const view = "RoomInfo"
	return &RoomInfo{
		Removed:             takePropBool(m, view, GamePropRemoved),
		MaxPlayers:          takePropByte(m, view, GamePropMaxPlayers),
		IsOpen:              takePropBool(m, view, GamePropIsOpen),
		IsVisible:           takePropBool(m, view, GamePropIsVisible),
		PlayerCount:         takePropByte(m, view, GamePropPlayerCount),
		CleanupCacheOnLeave: takePropBool(m, view, GamePropCleanupCacheOnLeave),
		MasterClientID:      takePropInt(m, view, GamePropMasterClientID),
		PropsListedInLobby:  takePropStringArray(m, view, GamePropPropsListedInLobby),
		ExpectedUsers:       takePropStringArray(m, view, GamePropExpectedUsers),
		EmptyRoomTTL:        takePropInt(m, view, GamePropEmptyRoomTTL),
		PlayerTTL:           takePropInt(m, view, GamePropPlayerTTL),
		CustomProperties:    drainCustomProperties(m, view),
	}, nil
}

func (r *RoomInfo) IntoMap(m *OrderedMap) {
	putPropBool(m, GamePropRemoved, r.Removed)
	putPropByte(m, GamePropMaxPlayers, r.MaxPlayers)
	putPropBool(m, GamePropIsOpen, r.IsOpen)
	putPropBool(m, GamePropIsVisible, r.IsVisible)
	putPropByte(m, GamePropPlayerCount, r.PlayerCount)
	putPropBool(m, GamePropCleanupCacheOnLeave, r.CleanupCacheOnLeave)
	putPropInt(m, GamePropMasterClientID, r.MasterClientID)
	putPropStringArray(m, GamePropPropsListedInLobby, r.PropsListedInLobby)
	putPropStringArray(m, GamePropExpectedUsers, r.ExpectedUsers)
	putPropInt(m, GamePropEmptyRoomTTL, r.EmptyRoomTTL)
	putPropInt(m, GamePropPlayerTTL, r.PlayerTTL)
	putCustomProperties(m, r.CustomProperties)
}

// Player describes an in-room actor. Most game data hides in
// CustomProperties.
type Player struct {
	Nickname   *string
	UserID     *string
	IsInactive *bool

	CustomProperties *StringMap
}

func PlayerFromMap(m *OrderedMap) (*Player, error) {
	const view = "Player"
	return &Player{
		Nickname:         takePropString(m, view, ActorPropPlayerName),
		UserID:           takePropString(m, view, ActorPropUserID),
		IsInactive:       takePropBool(m, view, ActorPropIsInactive),
		CustomProperties: drainCustomProperties(m, view),
	}, nil
}

func (p *Player) IntoMap(m *OrderedMap) {
	putPropString(m, ActorPropPlayerName, p.Nickname)
	putPropString(m, ActorPropUserID, p.UserID)
	putPropBool(m, ActorPropIsInactive, p.IsInactive)
	putCustomProperties(m, p.CustomProperties)
}

// DestroyEventData is the property view of a DestroyEvent's data map.
type DestroyEventData struct {
	ViewID int32

	CustomProperties *StringMap
}

func DestroyEventDataFromMap(m *OrderedMap) (*DestroyEventData, error) {
	const view = "DestroyEventData"
	viewID := takePropInt(m, view, 0)
	if viewID == nil {
		return nil, requiredErr(view, "view_id", 0)
	}
	return &DestroyEventData{
		ViewID:           *viewID,
		CustomProperties: drainCustomProperties(m, view),
	}, nil
}

func (d *DestroyEventData) IntoMap(m *OrderedMap) {
	m.Set(NewByte(0), NewInt(d.ViewID))
	putCustomProperties(m, d.CustomProperties)
}

// InstantiationEventData is the property view of an
// InstantiationEvent's data map. Position is a Vector3 custom payload
// and Rotation a Quaternion one.
type InstantiationEventData struct {
	PrefabName                string
	Position                  *Value
	Rotation                  *Value
	Group                     *byte
	ViewIDs                   []int32
	IncomingInstantiationData []Value
	ServerTime                int32
	InstantiationID           int32
	ObjLevelPrefix            *int16

	CustomProperties *StringMap
}

func InstantiationEventDataFromMap(m *OrderedMap) (*InstantiationEventData, error) {
	const view = "InstantiationEventData"
	prefab := takePropString(m, view, 0)
	if prefab == nil {
		return nil, requiredErr(view, "prefab_name", 0)
	}
	position := takePropCustom(m, view, 1)
	rotation := takePropCustom(m, view, 2)
	group := takePropByte(m, view, 3)
	viewIDs := takePropIntArray(m, view, 4)
	incoming := takePropObjectArray(m, view, 5)
	serverTime := takePropInt(m, view, 6)
	if serverTime == nil {
		return nil, requiredErr(view, "server_time", 6)
	}
	instantiationID := takePropInt(m, view, 7)
	if instantiationID == nil {
		return nil, requiredErr(view, "instantiation_id", 7)
	}
	return &InstantiationEventData{
		PrefabName:                *prefab,
		Position:                  position,
		Rotation:                  rotation,
		Group:                     group,
		ViewIDs:                   viewIDs,
		IncomingInstantiationData: incoming,
		ServerTime:                *serverTime,
		InstantiationID:           *instantiationID,
		ObjLevelPrefix:            takePropShort(m, view, 8),
		CustomProperties:          drainCustomProperties(m, view),
	}, nil
}

func (d *InstantiationEventData) IntoMap(m *OrderedMap) {
	m.Set(NewByte(0), NewString(d.PrefabName))
	putPropValue(m, 1, d.Position)
	putPropValue(m, 2, d.Rotation)
	putPropByte(m, 3, d.Group)
	putPropIntArray(m, 4, d.ViewIDs)
	putPropObjectArray(m, 5, d.IncomingInstantiationData)
	m.Set(NewByte(6), NewInt(d.ServerTime))
	m.Set(NewByte(7), NewInt(d.InstantiationID))
	putPropShort(m, 8, d.ObjLevelPrefix)
	putCustomProperties(m, d.CustomProperties)
}

// OwnerID derives the owning actor id from the instantiation view id.
func (d *InstantiationEventData) OwnerID() int32 {
	return d.InstantiationID / maxViewIDsPerActor
}

// RpcCall is the property view of a single remote procedure call.
// MethodName and RpcIndex are mutually exclusive; ServerTimestamp is
// only present on client-to-server calls.
type RpcCall struct {
	NetViewID          int32
	OtherSidePrefix    *int16
	ServerTimestamp    *int32
	MethodName         *string
	InMethodParameters []Value
	RpcIndex           *byte

	CustomProperties *StringMap
}

func RpcCallFromMap(m *OrderedMap) (*RpcCall, error) {
	const view = "RpcCall"
	netViewID := takePropInt(m, view, 0)
	if netViewID == nil {
		return nil, requiredErr(view, "net_view_id", 0)
	}
	return &RpcCall{
		NetViewID:          *netViewID,
		OtherSidePrefix:    takePropShort(m, view, 1),
		ServerTimestamp:    takePropInt(m, view, 2),
		MethodName:         takePropString(m, view, 3),
		InMethodParameters: takePropObjectArray(m, view, 4),
		RpcIndex:           takePropByte(m, view, 5),
		CustomProperties:   drainCustomProperties(m, view),
	}, nil
}

func (c *RpcCall) IntoMap(m *OrderedMap) {
	m.Set(NewByte(0), NewInt(c.NetViewID))
	putPropShort(m, 1, c.OtherSidePrefix)
	putPropInt(m, 2, c.ServerTimestamp)
	putPropString(m, 3, c.MethodName)
	putPropObjectArray(m, 4, c.InMethodParameters)
	putPropByte(m, 5, c.RpcIndex)
	putCustomProperties(m, c.CustomProperties)
}

// OwnerID derives the owning actor id from the call's view id.
func (c *RpcCall) OwnerID() int32 {
	return c.NetViewID / maxViewIDsPerActor
}
