package server

import (
	"testing"
	"time"

	"bulletforce_proxy/internal/game"
)

func newTrackedServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		state:    game.NewHaxState(),
		newConns: make(chan *Proxy, 4),
	}
	go s.trackConnections()
	t.Cleanup(func() { close(s.newConns) })
	return s
}

func testProxy(role Role, port uint16) *Proxy {
	return &Proxy{
		id:     "test-conn",
		port:   port,
		role:   role,
		closed: make(chan struct{}),
	}
}

// eventually polls cond for up to one second.
func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never became true: %s", what)
}

func TestTrackerInstallsAndClearsLobbySlot(t *testing.T) {
	s := newTrackedServer(t)
	p := testProxy(RoleLobbyServer, 2053)

	s.newConns <- p
	eventually(t, func() bool {
		s.state.Mu.Lock()
		defer s.state.Mu.Unlock()
		return s.state.Lobby != nil
	}, "lobby slot occupied")

	s.state.Mu.Lock()
	if s.state.Lobby.Conn.ID() != "test-conn" {
		t.Error("lobby slot bound to the wrong connection")
	}
	if s.state.Gameplay != nil {
		t.Error("gameplay slot occupied by a lobby connection")
	}
	s.state.Mu.Unlock()

	p.signalClosed()
	eventually(t, func() bool {
		s.state.Mu.Lock()
		defer s.state.Mu.Unlock()
		return s.state.Lobby == nil
	}, "lobby slot cleared after close")
}

func TestTrackerInstallsAndClearsGameplaySlot(t *testing.T) {
	s := newTrackedServer(t)
	p := testProxy(RoleGameServer, 2083)

	s.newConns <- p
	eventually(t, func() bool {
		s.state.Mu.Lock()
		defer s.state.Mu.Unlock()
		return s.state.Gameplay != nil
	}, "gameplay slot occupied")

	s.state.Mu.Lock()
	if s.state.Gameplay.State == nil || s.state.Gameplay.State.Players == nil {
		t.Error("gameplay slot installed without a default state")
	}
	s.state.Mu.Unlock()

	p.signalClosed()
	eventually(t, func() bool {
		s.state.Mu.Lock()
		defer s.state.Mu.Unlock()
		return s.state.Gameplay == nil
	}, "gameplay slot cleared after close")
}

func TestTrackerIgnoresUnknownRole(t *testing.T) {
	s := newTrackedServer(t)
	s.newConns <- testProxy(RoleUnknown, 9999)

	// give the tracker a moment, then confirm neither slot was taken
	time.Sleep(50 * time.Millisecond)
	s.state.Mu.Lock()
	defer s.state.Mu.Unlock()
	if s.state.Lobby != nil || s.state.Gameplay != nil {
		t.Error("unknown-role connection occupied a state slot")
	}
}

func TestTrackerReplacesStaleSlot(t *testing.T) {
	s := newTrackedServer(t)

	first := testProxy(RoleLobbyServer, 2053)
	s.newConns <- first
	eventually(t, func() bool {
		s.state.Mu.Lock()
		defer s.state.Mu.Unlock()
		return s.state.Lobby != nil
	}, "first lobby slot occupied")

	// a second connection takes the slot over (with a warning)
	second := testProxy(RoleLobbyServer, 2053)
	second.id = "second-conn"
	s.newConns <- second
	eventually(t, func() bool {
		s.state.Mu.Lock()
		defer s.state.Mu.Unlock()
		return s.state.Lobby != nil && s.state.Lobby.Conn.ID() == "second-conn"
	}, "second lobby connection installed")
}
