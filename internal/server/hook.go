package server

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"bulletforce_proxy/internal/game"
	"bulletforce_proxy/internal/protocol"
)

// Hook inspects every binary frame flowing through a spliced
// connection, mirrors the observed game state into HaxState, and
// rewrites lobby listings according to the feature flags.
//
// A parse failure is never a reason to drop a frame: the hook reports
// the error and the pump forwards the original bytes verbatim, so a
// parser gap cannot break the game.
type Hook struct {
	state *game.HaxState
}

func NewHook(state *game.HaxState) *Hook {
	return &Hook{state: state}
}

var errNoGameplayState = errors.New("gameplay state is not set")

// HandleFrame decodes and dispatches one binary frame. The returned
// slice is non-nil only when an enabled lobby policy ran on at least one
// room (even if it found nothing to change) and the frame must be
// replaced; otherwise the caller forwards the original bytes, which
// avoids perturbing byte order inside maps for no reason.
func (h *Hook) HandleFrame(data []byte, role Role, dir Direction) ([]byte, bool, error) {
	msg, err := protocol.DecodeFrame(data)
	if err != nil {
		return nil, true, err
	}

	logFrame(msg, dir)

	var changed protocol.Message
	switch role {
	case RoleLobbyServer:
		changed, err = h.dispatchLobby(msg)
	case RoleGameServer:
		changed, err = h.dispatchGame(msg, dir)
	default:
		return nil, true, nil
	}
	if err != nil {
		return nil, true, err
	}
	if changed == nil {
		return nil, true, nil
	}

	out, err := protocol.EncodeFrame(changed)
	if err != nil {
		return nil, true, fmt.Errorf("re-encoding rewritten frame: %w", err)
	}
	return out, true, nil
}

func logFrame(msg protocol.Message, dir Direction) {
	var name string
	var code byte
	switch m := msg.(type) {
	case *protocol.OperationRequest:
		name, code = "OperationRequest", m.Code
	case *protocol.OperationResponse:
		name, code = "OperationResponse", m.Code
	case *protocol.EventData:
		name, code = "EventData", m.Code
	case *protocol.InternalOperationRequest:
		name, code = "InternalOperationRequest", m.Code
	case *protocol.InternalOperationResponse:
		name, code = "InternalOperationResponse", m.Code
	default:
		return
	}
	log.WithFields(log.Fields{
		"type":      name,
		"code":      code,
		"direction": dir.String(),
	}).Debug("message")

	// full payload dumps are trace-only, they are meant for offline
	// analysis of captures
	if log.IsLevelEnabled(log.TraceLevel) {
		log.WithFields(log.Fields{
			"type":      name,
			"code":      code,
			"direction": dir.String(),
			"data":      fmt.Sprintf("%+v", msg),
		}).Trace("message data")
	}
}

func (h *Hook) dispatchLobby(msg protocol.Message) (protocol.Message, error) {
	switch m := msg.(type) {
	case *protocol.OperationRequest:
		if m.Code == protocol.OpAuthenticate {
			h.harvestAuthenticate(m)
		}
	case *protocol.EventData:
		if m.Code == protocol.EvGameList || m.Code == protocol.EvGameListUpdate {
			return h.rewriteGameList(m)
		}
	}
	return nil, nil
}

// harvestAuthenticate records the user id and the game/Photon version
// pair from the AUTHENTICATE request. The app version has the shape
// "<game>_<photon>".
func (h *Hook) harvestAuthenticate(m *protocol.OperationRequest) {
	h.state.Mu.Lock()
	defer h.state.Mu.Unlock()

	if v, ok := m.Params.Get(protocol.ParamAppVersion); ok && v.Kind == protocol.KindString {
		if gameVer, photonVer, found := strings.Cut(v.Str, "_"); found {
			h.state.Global.Version = &game.VersionInfo{
				GameVersion:   gameVer,
				PhotonVersion: photonVer,
			}
		} else {
			h.state.Global.Version = nil
		}
	}
	if v, ok := m.Params.Get(protocol.ParamUserID); ok && v.Kind == protocol.KindString {
		userID := v.Str
		h.state.Global.UserID = &userID
	}
}

// rewriteGameList applies the flag-controlled policies to every room in
// a GAME_LIST or GAME_LIST_UPDATE event. The event is re-encoded only
// when at least one policy ran.
func (h *Hook) rewriteGameList(ev *protocol.EventData) (protocol.Message, error) {
	h.state.Mu.Lock()
	flags := h.state.Flags
	version := h.state.Global.Version
	h.state.Mu.Unlock()

	gameList, err := protocol.RoomInfoListFromParams(ev.Params)
	if err != nil {
		return nil, err
	}

	changesMade := false
	for i := 0; i < gameList.Games.Len(); i++ {
		key := gameList.Games.KeyAt(i)
		val := gameList.Games.ValueAt(i)
		if key.Kind != protocol.KindString || val.Kind != protocol.KindHashtable {
			continue
		}
		props := val.Map

		room, err := protocol.RoomInfoFromMap(props)
		if err != nil {
			return nil, err
		}

		// "newfps-" marks rooms of an unrelated title sharing the
		// lobby; they pass through untouched. Note this key is all
		// lowercase while Bullet Force itself uses "gameVersion".
		if v, ok := room.CustomProperties.Get("gameversion"); ok &&
			v.Kind == protocol.KindString && strings.HasPrefix(v.Str, "newfps-") {
			room.IntoMap(props)
			continue
		}

		if flags.ShowMobileGames {
			forceRoomWeb(room)
			changesMade = true
		}
		if flags.ShowOtherVersions {
			if version != nil {
				forceRoomVersion(room, version.GameVersion)
				changesMade = true
			} else {
				log.Warn("tried to adjust game version of lobby games but it was not known")
			}
		}
		if flags.StripPasswords {
			stripRoomPassword(room)
			changesMade = true
		}

		room.IntoMap(props)
	}

	if !changesMade {
		return nil, nil
	}
	gameList.IntoParams(ev.Params)
	return ev, nil
}

// forceRoomWeb tags non-web rooms in the display name and rewrites
// their store id to the web store so the client lists them.
func forceRoomWeb(room *protocol.RoomInfo) {
	storeID, _ := room.CustomProperties.Get("storeID")

	if name, ok := room.CustomProperties.Get("roomName"); ok &&
		name.Kind == protocol.KindString && storeID.Kind == protocol.KindString {
		switch storeID.Str {
		case "BALYZE_WEB":
			// already listed, leave the name alone
		case "BALYZE_MOBILE":
			room.CustomProperties.Set("roomName", protocol.NewString("[M] "+name.Str))
		default:
			room.CustomProperties.Set("roomName", protocol.NewString("["+storeID.Str+"] "+name.Str))
		}
	}

	if v, ok := room.CustomProperties.Get("storeID"); ok && v.Kind == protocol.KindString {
		room.CustomProperties.Set("storeID", protocol.NewString("BALYZE_WEB"))
	}
}

// forceRoomVersion rewrites rooms of a different game version to the
// local one so they appear in the lobby, tagging the original version
// in the display name.
func forceRoomVersion(room *protocol.RoomInfo, target string) {
	v, ok := room.CustomProperties.Get("gameVersion")
	if !ok || v.Kind != protocol.KindString {
		return
	}
	actual := v.Str
	if actual == target {
		return
	}
	if name, ok := room.CustomProperties.Get("roomName"); ok && name.Kind == protocol.KindString {
		room.CustomProperties.Set("roomName", protocol.NewString("["+actual+"] "+name.Str))
	}
	room.CustomProperties.Set("gameVersion", protocol.NewString(target))
}

// stripRoomPassword blanks the password of protected rooms and tags
// them in the display name.
func stripRoomPassword(room *protocol.RoomInfo) {
	v, ok := room.CustomProperties.Get("password")
	if !ok || v.Kind != protocol.KindString || v.Str == "" {
		return
	}
	if name, ok := room.CustomProperties.Get("roomName"); ok && name.Kind == protocol.KindString {
		room.CustomProperties.Set("roomName", protocol.NewString("[p] "+name.Str))
	}
	room.CustomProperties.Set("password", protocol.NewString(""))
}

func (h *Hook) dispatchGame(msg protocol.Message, dir Direction) (protocol.Message, error) {
	switch m := msg.(type) {
	case *protocol.OperationRequest:
		return nil, h.gameOperationRequest(m)
	case *protocol.OperationResponse:
		return nil, h.gameOperationResponse(m)
	case *protocol.EventData:
		return nil, h.gameEvent(m, dir)
	}
	return nil, nil
}

// withGameplay runs fn with the gameplay state under the HaxState
// mutex.
func (h *Hook) withGameplay(fn func(*game.GameplayState) error) error {
	h.state.Mu.Lock()
	defer h.state.Mu.Unlock()
	if h.state.Gameplay == nil {
		return errNoGameplayState
	}
	return fn(h.state.Gameplay.State)
}

func (h *Hook) gameOperationRequest(m *protocol.OperationRequest) error {
	switch m.Code {
	case protocol.OpJoinGame:
		req, err := protocol.JoinGameRequestFromParams(m.Params)
		if err != nil {
			return err
		}
		log.WithField("room", strOrEmpty(req.RoomName)).Debug("game join request")
		return nil

	case protocol.OpSetProperties:
		req, err := protocol.SetPropertiesRequestFromParams(m.Params)
		if err != nil {
			return err
		}
		if req.ActorNr == nil {
			// room properties, not actor properties
			return nil
		}
		player, err := protocol.PlayerFromMap(req.Properties)
		if err != nil {
			return err
		}
		return h.withGameplay(func(state *game.GameplayState) error {
			if actor, ok := state.Players.Get(*req.ActorNr); ok {
				actor.MergePlayer(player)
			}
			return nil
		})

	case protocol.OpRaiseEvent:
		return h.gameRaiseEvent(m)
	}
	return nil
}

func (h *Hook) gameRaiseEvent(m *protocol.OperationRequest) error {
	req, err := protocol.RaiseEventFromParams(m.Params)
	if err != nil {
		return err
	}

	var data *protocol.OrderedMap
	if req.Data != nil && req.Data.Kind == protocol.KindHashtable {
		data = req.Data.Map
	}

	switch req.EventCode {
	case protocol.EvLeave, protocol.EvPropertiesChanged, protocol.PunEvDestroy:
		// never seen raised by the client in practice
		log.WithField("event_code", req.EventCode).Warn("unexpected raised event")
		return nil

	case protocol.PunEvInstantiation:
		if data == nil {
			return errors.New("INSTANTIATION event without data")
		}
		eventData, err := protocol.InstantiationEventDataFromMap(data)
		if err != nil {
			return err
		}
		sender := eventData.OwnerID()
		log.WithFields(log.Fields{
			"prefab":    eventData.PrefabName,
			"sender":    sender,
			"direction": "server",
		}).Debug("instantiation")
		return h.withGameplay(func(state *game.GameplayState) error {
			mergeInstantiation(state, sender, eventData)
			return nil
		})

	case protocol.PunEvSendSerialize, protocol.PunEvSendSerializeReliable:
		if data == nil {
			return errors.New("SEND_SERIALIZE(_RELIABLE) event without data")
		}
		ev := &protocol.SendSerializeEvent{Data: data}
		streams, err := ev.SerializedData()
		if err != nil {
			return err
		}
		return h.mergeSerializedStreams(streams)

	case protocol.PunEvRpc:
		if data == nil {
			return errors.New("RPC call with no data")
		}
		call, err := protocol.RpcCallFromMap(data)
		if err != nil {
			return err
		}
		logRpcCall(call, "server")
		return nil
	}
	return nil
}

func (h *Hook) gameOperationResponse(m *protocol.OperationResponse) error {
	if m.Code != protocol.OpJoinGame || m.ReturnCode != 0 {
		return nil
	}
	resp, err := protocol.JoinGameResponseSuccessFromParams(m.Params)
	if err != nil {
		return err
	}
	return h.withGameplay(func(state *game.GameplayState) error {
		actorNr := resp.ActorNr
		state.PlayerID = &actorNr

		resp.PlayerProperties.Range(func(k, v protocol.Value) bool {
			if k.Kind != protocol.KindInteger || v.Kind != protocol.KindHashtable {
				return true
			}
			player, err := protocol.PlayerFromMap(v.Map.Clone())
			if err != nil {
				return true
			}
			actor := &game.PlayerActor{}
			actor.MergePlayer(player)
			log.WithField("actor_id", k.Int).Debug("found new actor")
			state.Players.Set(k.Int, actor)
			return true
		})
		return nil
	})
}

func (h *Hook) gameEvent(m *protocol.EventData, dir Direction) error {
	switch m.Code {
	case protocol.EvJoin:
		return h.withGameplay(func(state *game.GameplayState) error {
			if v, ok := m.Params.Get(protocol.ParamActorNr); ok && v.Kind == protocol.KindInteger {
				actorNr := v.Int
				state.ActorNr = &actorNr
			}
			if v, ok := m.Params.Get(protocol.ParamActorList); ok && v.Kind == protocol.KindArray {
				for _, item := range v.Items {
					if item.Kind == protocol.KindInteger {
						state.Players.GetOrCreate(item.Int)
					}
				}
			}
			// the PLAYER_PROPERTIES field usually only carries an empty
			// nickname, log it for the record
			if v, ok := m.Params.Get(protocol.ParamPlayerProperties); ok && v.Kind == protocol.KindHashtable {
				if player, err := protocol.PlayerFromMap(v.Map.Clone()); err == nil {
					log.WithFields(log.Fields{
						"nickname": strOrEmpty(player.Nickname),
						"user_id":  strOrEmpty(player.UserID),
					}).Debug("received player info on join")
				}
			}
			return nil
		})

	case protocol.EvLeave:
		ev, err := protocol.LeaveEventFromParams(m.Params)
		if err != nil {
			return err
		}
		sender := int32(-1)
		if ev.SenderActor != nil {
			sender = *ev.SenderActor
		}
		log.WithFields(log.Fields{"sender": sender, "direction": dir.String()}).Debug("leave")
		return h.withGameplay(func(state *game.GameplayState) error {
			state.Players.Remove(sender)
			return nil
		})

	case protocol.EvPropertiesChanged:
		ev, err := protocol.PropertiesChangedEventFromParams(m.Params)
		if err != nil {
			return err
		}
		if ev.TargetActorNr == 0 {
			// game properties, not actor properties
			return nil
		}
		player, err := protocol.PlayerFromMap(ev.Properties)
		if err != nil {
			return err
		}
		return h.withGameplay(func(state *game.GameplayState) error {
			actor, ok := state.Players.Get(ev.TargetActorNr)
			if !ok {
				return fmt.Errorf("failed to find actor %d", ev.TargetActorNr)
			}
			actor.MergePlayer(player)
			return nil
		})

	case protocol.PunEvDestroy:
		ev, err := protocol.DestroyEventFromParams(m.Params)
		if err != nil {
			return err
		}
		eventData, err := protocol.DestroyEventDataFromMap(ev.Data)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"view_id":   eventData.ViewID,
			"direction": dir.String(),
		}).Debug("destroy")
		return nil

	case protocol.PunEvInstantiation:
		ev, err := protocol.InstantiationEventFromParams(m.Params)
		if err != nil {
			return err
		}
		eventData, err := protocol.InstantiationEventDataFromMap(ev.Data)
		if err != nil {
			return err
		}
		sender := int32(-1)
		if ev.SenderActor != nil {
			sender = *ev.SenderActor
		}
		log.WithFields(log.Fields{
			"prefab":    eventData.PrefabName,
			"sender":    sender,
			"direction": dir.String(),
		}).Debug("instantiation")
		return h.withGameplay(func(state *game.GameplayState) error {
			mergeInstantiation(state, sender, eventData)
			return nil
		})

	case protocol.PunEvSendSerialize, protocol.PunEvSendSerializeReliable:
		ev, err := protocol.SendSerializeEventFromParams(m.Params)
		if err != nil {
			return err
		}
		streams, err := ev.SerializedData()
		if err != nil {
			return err
		}
		return h.mergeSerializedStreams(streams)

	case protocol.PunEvRpc:
		ev, err := protocol.RpcEventFromParams(m.Params)
		if err != nil {
			return err
		}
		call, err := ev.ExtractRpcCall()
		if err != nil {
			return err
		}
		logRpcCall(call, dir.String())
		return nil
	}
	return nil
}

// mergeSerializedStreams folds every player body stream into its owning
// actor; streams for unknown actors are skipped.
func (h *Hook) mergeSerializedStreams(streams []*protocol.SerializedData) error {
	return h.withGameplay(func(state *game.GameplayState) error {
		for _, obj := range streams {
			actorID := obj.OwnerID()
			if actor, ok := state.Players.Get(actorID); ok {
				script, err := game.PlayerScriptFromObjectArray(obj.DataStream)
				if err != nil {
					return err
				}
				actor.MergePlayerScript(script)
			}
			log.WithFields(log.Fields{
				"view_id": obj.ViewID,
			}).Trace("send serialize")
		}
		return nil
	})
}

func mergeInstantiation(state *game.GameplayState, sender int32, d *protocol.InstantiationEventData) {
	switch d.PrefabName {
	case "PlayerBody":
		state.Players.GetOrCreate(sender).MergeInstantiation(d)
	case "Match Manager":
		viewID := d.InstantiationID
		state.MatchManagerViewID = &viewID
	default:
		log.WithField("prefab", d.PrefabName).Debug("unknown prefab name in instantiation packet")
	}
}

func logRpcCall(call *protocol.RpcCall, direction string) {
	method, err := game.RPCMethodName(call)
	if err != nil {
		method = "?"
	}
	params := make([]string, len(call.InMethodParameters))
	for i, p := range call.InMethodParameters {
		params[i] = p.String()
	}
	log.WithFields(log.Fields{
		"method":     method,
		"sender":     call.OwnerID(),
		"parameters": strings.Join(params, ","),
		"direction":  direction,
	}).Debug("rpc call")
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
