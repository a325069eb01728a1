package game

import (
	"sync"

	"bulletforce_proxy/internal/protocol"
)

// ProxyConn is the handle a state slot keeps on the spliced connection
// that feeds it.
type ProxyConn interface {
	// ID identifies the connection in logs.
	ID() string
	// TargetPort is the port of the upstream the connection targets.
	TargetPort() uint16
}

// FeatureFlags are the user-controlled lobby rewrite policies. They are
// read under the HaxState mutex; flips in the middle of a list event
// batch are acceptable.
type FeatureFlags struct {
	ShowMobileGames   bool
	ShowOtherVersions bool
	StripPasswords    bool
}

// VersionInfo is the game/Photon version pair extracted from the
// AUTHENTICATE app version string.
type VersionInfo struct {
	GameVersion string
	// PhotonVersion is the version of Photon Unity Networking, not of
	// the Photon .Net client library.
	PhotonVersion string
}

// GlobalState survives for the lifetime of the process.
type GlobalState struct {
	UserID  *string
	Version *VersionInfo
}

// LobbyState lives as long as one lobby socket. It carries nothing at
// present but keeps the slot shape symmetric with GameplayState.
type LobbyState struct{}

// GameplayState lives as long as one game socket.
type GameplayState struct {
	// PlayerID is our own actor id as confirmed by the join response.
	PlayerID *int32
	// ActorNr is our actor id as announced by the JOIN event.
	ActorNr *int32

	MatchManagerViewID *int32

	// Players tracks the actors currently in the room, keyed by actor
	// id, in the order they were first observed.
	Players *ActorMap
}

func NewGameplayState() *GameplayState {
	return &GameplayState{Players: NewActorMap()}
}

// LobbySlot binds a proxied lobby connection to its state.
type LobbySlot struct {
	Conn  ProxyConn
	State *LobbyState
}

// GameplaySlot binds a proxied game connection to its state.
type GameplaySlot struct {
	Conn  ProxyConn
	State *GameplayState
}

// HaxState is the root of all tracked state. It is shared between the
// forwarding tasks and the connection tracker and is guarded by a
// single mutex; there are no nested locks and the lock is never held
// across network I/O.
type HaxState struct {
	Mu sync.Mutex

	Global   GlobalState
	Lobby    *LobbySlot
	Gameplay *GameplaySlot

	Flags FeatureFlags
}

func NewHaxState() *HaxState {
	return &HaxState{}
}

// PlayerActor is the tracked view of one in-room player, accumulated
// from join responses, property updates, instantiations and
// serialization streams.
type PlayerActor struct {
	ViewID   *int32
	UserID   *string
	Nickname *string

	TeamNumber *byte

	Health          *float32
	Position        *protocol.Vector3
	FacingDirection *float32
}

// MergePlayer overlays the fields present in a Player property view;
// absent fields keep their current value.
func (a *PlayerActor) MergePlayer(p *protocol.Player) {
	if p.Nickname != nil {
		a.Nickname = p.Nickname
	}
	if p.UserID != nil {
		a.UserID = p.UserID
	}
	if v, ok := p.CustomProperties.Get("teamNumber"); ok {
		switch v.Kind {
		case protocol.KindByte:
			team := v.Byte
			a.TeamNumber = &team
		case protocol.KindInteger:
			team := byte(v.Int)
			a.TeamNumber = &team
		}
	}
}

// MergePlayerScript overlays the live fields of a serialized player
// body stream. Health on the wire is in hundredths of a percent (10000
// means 100%), yaw is in tenths of a degree.
func (a *PlayerActor) MergePlayerScript(ps *PlayerScript) {
	health := float32(ps.Health) / 100
	a.Health = &health

	pos := ps.Position
	a.Position = &pos

	facing := float32(ps.Yaw) / 10
	a.FacingDirection = &facing
}

// MergeInstantiation records the view id and spawn position announced
// by a PlayerBody instantiation.
func (a *PlayerActor) MergeInstantiation(d *protocol.InstantiationEventData) {
	viewID := d.InstantiationID
	a.ViewID = &viewID

	if d.Position != nil {
		if pos, err := protocol.Vector3FromValue(*d.Position); err == nil {
			a.Position = &pos
		}
	}
}

// ActorMap is an insertion-ordered mapping from actor id to
// PlayerActor.
type ActorMap struct {
	ids    []int32
	actors map[int32]*PlayerActor
}

func NewActorMap() *ActorMap {
	return &ActorMap{actors: make(map[int32]*PlayerActor)}
}

func (m *ActorMap) Len() int { return len(m.ids) }

func (m *ActorMap) Get(id int32) (*PlayerActor, bool) {
	a, ok := m.actors[id]
	return a, ok
}

// GetOrCreate returns the actor for id, default-constructing it if
// missing.
func (m *ActorMap) GetOrCreate(id int32) *PlayerActor {
	if a, ok := m.actors[id]; ok {
		return a
	}
	a := &PlayerActor{}
	m.ids = append(m.ids, id)
	m.actors[id] = a
	return a
}

// Set installs (or replaces) the actor for id.
func (m *ActorMap) Set(id int32, a *PlayerActor) {
	if _, ok := m.actors[id]; !ok {
		m.ids = append(m.ids, id)
	}
	m.actors[id] = a
}

func (m *ActorMap) Remove(id int32) {
	if _, ok := m.actors[id]; !ok {
		return
	}
	delete(m.actors, id)
	for i, v := range m.ids {
		if v == id {
			m.ids = append(m.ids[:i], m.ids[i+1:]...)
			break
		}
	}
}

// Range visits actors in insertion order.
func (m *ActorMap) Range(fn func(id int32, a *PlayerActor) bool) {
	for _, id := range m.ids {
		if !fn(id, m.actors[id]) {
			return
		}
	}
}
